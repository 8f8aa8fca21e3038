package neo4j

import (
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/xqvvu/yokg/internal/domain/graph"
	"github.com/xqvvu/yokg/internal/repository"
)

// Timestamps are stored as ISO-8601 strings with millisecond precision.
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseTime accepts the stored string form as well as native temporal values
// written by other clients.
func parseTime(raw any) (time.Time, error) {
	switch v := raw.(type) {
	case nil:
		return time.Time{}, nil
	case string:
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return time.Time{}, err
		}
		return t.UTC(), nil
	case time.Time:
		return v.UTC(), nil
	case interface{ Time() time.Time }:
		return v.Time().UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp of type %T", raw)
	}
}

// splitProperties separates the system fields from the caller-visible map.
func splitProperties(operation string, raw map[string]any) (id string, createdAt, updatedAt time.Time, props graph.Properties, err error) {
	props = make(graph.Properties, len(raw))
	for key, value := range raw {
		switch key {
		case graph.FieldID:
			s, ok := value.(string)
			if !ok {
				return "", time.Time{}, time.Time{}, nil, repository.ErrUnexpectedResult{
					Operation: operation,
					Reason:    fmt.Sprintf("id has type %T", value),
				}
			}
			id = s
		case graph.FieldCreatedAt:
			if createdAt, err = parseTime(value); err != nil {
				return "", time.Time{}, time.Time{}, nil, unexpected(operation, key, err)
			}
		case graph.FieldUpdatedAt:
			if updatedAt, err = parseTime(value); err != nil {
				return "", time.Time{}, time.Time{}, nil, unexpected(operation, key, err)
			}
		default:
			v, convErr := graph.FromAny(value)
			if convErr != nil {
				// spatial and duration values written by other clients
				v = graph.String(fmt.Sprint(value))
			}
			props[key] = v
		}
	}
	if id == "" {
		return "", time.Time{}, time.Time{}, nil, repository.ErrUnexpectedResult{
			Operation: operation,
			Reason:    "entity has no id",
		}
	}
	return id, createdAt, updatedAt, props, nil
}

func unexpected(operation, field string, err error) error {
	return repository.ErrUnexpectedResult{
		Operation: operation,
		Reason:    fmt.Sprintf("%s: %v", field, err),
	}
}

// toNode maps a driver node. The first label is the domain label.
func toNode(operation string, raw any) (graph.Node, error) {
	n, ok := raw.(neo4j.Node)
	if !ok {
		return graph.Node{}, repository.ErrUnexpectedResult{
			Operation: operation,
			Reason:    fmt.Sprintf("expected node, got %T", raw),
		}
	}
	id, createdAt, updatedAt, props, err := splitProperties(operation, n.Props)
	if err != nil {
		return graph.Node{}, err
	}
	label := ""
	if len(n.Labels) > 0 {
		label = n.Labels[0]
	}
	return graph.Node{
		ID:         id,
		Label:      label,
		Properties: props,
		CreatedAt:  createdAt,
		UpdatedAt:  updatedAt,
	}, nil
}

func toRelationship(operation, relType string, rawProps map[string]any, sourceID, targetID string) (graph.Relationship, error) {
	id, createdAt, _, props, err := splitProperties(operation, rawProps)
	if err != nil {
		return graph.Relationship{}, err
	}
	return graph.Relationship{
		ID:         id,
		Type:       relType,
		SourceID:   sourceID,
		TargetID:   targetID,
		Properties: props,
		CreatedAt:  createdAt,
	}, nil
}

// toEdge maps a {rel, sourceId, targetId} projection.
func toEdge(operation string, raw any) (graph.Relationship, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return graph.Relationship{}, repository.ErrUnexpectedResult{
			Operation: operation,
			Reason:    fmt.Sprintf("expected edge map, got %T", raw),
		}
	}
	rel, ok := m["rel"].(neo4j.Relationship)
	if !ok {
		return graph.Relationship{}, repository.ErrUnexpectedResult{
			Operation: operation,
			Reason:    fmt.Sprintf("expected relationship, got %T", m["rel"]),
		}
	}
	sourceID, _ := m["sourceId"].(string)
	targetID, _ := m["targetId"].(string)
	return toRelationship(operation, rel.Type, rel.Props, sourceID, targetID)
}

func toList(operation, key string, raw any) ([]any, error) {
	if raw == nil {
		return nil, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, repository.ErrUnexpectedResult{
			Operation: operation,
			Reason:    fmt.Sprintf("%s: expected list, got %T", key, raw),
		}
	}
	return list, nil
}

// writeProps turns domain properties plus system fields into parameters.
func writeProps(props graph.Properties, system map[string]any) map[string]any {
	out := props.ToAny()
	for k, v := range system {
		out[k] = v
	}
	return out
}

func get(record *neo4j.Record, key string) any {
	v, _ := record.Get(key)
	return v
}
