package neo4j

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxIdentifierLength bounds labels and relationship types.
const MaxIdentifierLength = 100

// Cypher cannot parameterise labels, relationship types or the bounds of a
// variable-length pattern, so those are interpolated. Everything else goes
// through query parameters.

// QuoteIdentifier backtick-quotes a label or relationship type, doubling any
// backtick inside it.
func QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// ValidateIdentifier rejects names that cannot be used as a label or type.
func ValidateIdentifier(kind, name string) error {
	if name == "" {
		return fmt.Errorf("%s must not be empty", kind)
	}
	if utf8.RuneCountInString(name) > MaxIdentifierLength {
		return fmt.Errorf("%s must be at most %d characters", kind, MaxIdentifierLength)
	}
	if !utf8.ValidString(name) || strings.ContainsRune(name, 0) {
		return fmt.Errorf("%s contains invalid characters", kind)
	}
	return nil
}

// LabelExpression renders ":`A`|`B`" for a label filter, or "" for none.
func LabelExpression(labels []string) string {
	if len(labels) == 0 {
		return ""
	}
	quoted := make([]string, len(labels))
	for i, label := range labels {
		quoted[i] = QuoteIdentifier(label)
	}
	return ":" + strings.Join(quoted, "|")
}

// DepthRange renders the "*1..n" bound of a variable-length pattern.
func DepthRange(minDepth, maxDepth, depth int) (string, error) {
	if depth < minDepth || depth > maxDepth {
		return "", fmt.Errorf("depth %d outside %d..%d", depth, minDepth, maxDepth)
	}
	return fmt.Sprintf("*1..%d", depth), nil
}
