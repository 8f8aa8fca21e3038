package graph

import "time"

// Relationship is a directed, typed edge from SourceID to TargetID.
type Relationship struct {
	ID         string     `json:"id"`
	Type       string     `json:"type"`
	SourceID   string     `json:"sourceId"`
	TargetID   string     `json:"targetId"`
	Properties Properties `json:"properties"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// Touches reports whether nodeID is either endpoint.
func (r Relationship) Touches(nodeID string) bool {
	return r.SourceID == nodeID || r.TargetID == nodeID
}

// Other returns the endpoint opposite nodeID.
func (r Relationship) Other(nodeID string) string {
	if r.SourceID == nodeID {
		return r.TargetID
	}
	return r.SourceID
}

// Direction selects which incident edges of a node a query considers.
type Direction string

const (
	DirectionIncoming Direction = "incoming"
	DirectionOutgoing Direction = "outgoing"
	DirectionBoth     Direction = "both"
)

// Matches reports whether r is an edge of nodeID in direction d.
func (d Direction) Matches(r Relationship, nodeID string) bool {
	switch d {
	case DirectionOutgoing:
		return r.SourceID == nodeID
	case DirectionIncoming:
		return r.TargetID == nodeID
	default:
		return r.Touches(nodeID)
	}
}
