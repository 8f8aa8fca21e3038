// Package graph holds the property-graph domain model: nodes, directed typed
// relationships, and the bounded snapshots returned by traversals.
package graph

import (
	"fmt"
	"time"
)

// System-assigned fields. They live on the stored entity but never inside the
// caller-visible Properties map.
const (
	FieldID        = "id"
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
)

// IsSystemField reports whether key is reserved for system-assigned data.
func IsSystemField(key string) bool {
	switch key {
	case FieldID, FieldCreatedAt, FieldUpdatedAt:
		return true
	}
	return false
}

// CheckReservedKeys fails when props carries any system field.
func CheckReservedKeys(props Properties) error {
	for k := range props {
		if IsSystemField(k) {
			return fmt.Errorf("property %q is system-assigned", k)
		}
	}
	return nil
}

// Node is a labelled vertex. Label is open vocabulary.
type Node struct {
	ID         string     `json:"id"`
	Label      string     `json:"label"`
	Properties Properties `json:"properties"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// Name returns the "name" property when it is a string.
func (n Node) Name() string {
	name, _ := n.Properties.Text("name")
	return name
}

// Endpoint projects the node to the shape shown at the far end of an edge.
func (n Node) Endpoint() EdgeEndpoint {
	return EdgeEndpoint{ID: n.ID, Label: n.Label, Name: n.Name()}
}
