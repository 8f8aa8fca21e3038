package services

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/xqvvu/yokg/internal/domain/graph"
	appErrors "github.com/xqvvu/yokg/internal/errors"
)

// inputValidator checks caller input before any repository or cache call.
type inputValidator struct {
	validate *validator.Validate
}

func newInputValidator() *inputValidator {
	v := validator.New()
	// Use JSON tag names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &inputValidator{validate: v}
}

func (v *inputValidator) Struct(operation string, s any) error {
	if err := v.validate.Struct(s); err != nil {
		return invalidInput(operation, formatValidationError(err))
	}
	return nil
}

func (v *inputValidator) ID(operation, field, id string) error {
	if err := v.validate.Var(id, "required,uuid"); err != nil {
		return invalidInput(operation, fmt.Sprintf("%s must be a UUID", field))
	}
	return nil
}

// Properties rejects system fields and values the graph store cannot hold.
// Updates may carry nulls, which remove keys.
func (v *inputValidator) Properties(operation string, props graph.Properties, update bool) error {
	if err := graph.CheckReservedKeys(props); err != nil {
		return invalidInput(operation, err.Error())
	}
	if err := props.ValidateStorable(update); err != nil {
		return invalidInput(operation, err.Error())
	}
	return nil
}

func formatValidationError(err error) string {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	messages := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		messages = append(messages, fieldMessage(fe))
	}
	return strings.Join(messages, "; ")
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "uuid":
		return fmt.Sprintf("%s must be a UUID", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed on %s", field, fe.Tag())
	}
}

func invalidInput(operation, message string) error {
	return appErrors.Validation(appErrors.CodeInvalidInput, message).
		WithOperation(operation).
		Build()
}
