package graph

// Bounds and defaults for caller-supplied queries.
const (
	MaxNameLength = 100

	DefaultNodeLimit = 50
	MaxNodeLimit     = 1000

	DefaultGraphLimit = 500
	MaxGraphLimit     = 1000

	DefaultSearchLimit = 50
	MaxSearchLimit     = 100

	DefaultDepth = 1
	MaxDepth     = 3
)

// NodeFilter pages through nodes, optionally scoped to one label.
type NodeFilter struct {
	Label  string `json:"label,omitempty" validate:"omitempty,min=1,max=100"`
	Limit  int    `json:"limit" validate:"min=1,max=1000"`
	Offset int    `json:"offset" validate:"min=0"`
}

// WithDefaults fills zero-valued fields.
func (f NodeFilter) WithDefaults() NodeFilter {
	if f.Limit == 0 {
		f.Limit = DefaultNodeLimit
	}
	return f
}

// GraphFilter bounds a full-graph scan.
type GraphFilter struct {
	Labels []string `json:"labels,omitempty" validate:"omitempty,dive,min=1,max=100"`
	Limit  int      `json:"limit" validate:"min=1,max=1000"`
}

func (f GraphFilter) WithDefaults() GraphFilter {
	if f.Limit == 0 {
		f.Limit = DefaultGraphLimit
	}
	return f
}

// SubgraphQuery asks for everything within Depth hops of NodeID.
type SubgraphQuery struct {
	NodeID string `json:"nodeId" validate:"required,uuid"`
	Depth  int    `json:"depth" validate:"min=1,max=3"`
}

func (q SubgraphQuery) WithDefaults() SubgraphQuery {
	if q.Depth == 0 {
		q.Depth = DefaultDepth
	}
	return q
}

// NeighborQuery narrows a one-hop lookup by edge type and direction.
type NeighborQuery struct {
	RelationshipType string    `json:"relationshipType,omitempty" validate:"omitempty,min=1,max=100"`
	Direction        Direction `json:"direction,omitempty" validate:"omitempty,oneof=incoming outgoing both"`
}

func (q NeighborQuery) WithDefaults() NeighborQuery {
	if q.Direction == "" {
		q.Direction = DirectionBoth
	}
	return q
}

// IsUnfiltered reports whether q asks for all neighbours in both directions,
// the only shape that shares the neighbours cache entry.
func (q NeighborQuery) IsUnfiltered() bool {
	return q.RelationshipType == "" && (q.Direction == "" || q.Direction == DirectionBoth)
}

// RelationshipFilter narrows the edges listed for one node.
type RelationshipFilter struct {
	Type      string    `json:"type,omitempty" validate:"omitempty,min=1,max=100"`
	Direction Direction `json:"direction,omitempty" validate:"omitempty,oneof=incoming outgoing both"`
}

func (f RelationshipFilter) WithDefaults() RelationshipFilter {
	if f.Direction == "" {
		f.Direction = DirectionBoth
	}
	return f
}

// NodeSearch is a substring search over name, title and description.
type NodeSearch struct {
	Query string `json:"q" validate:"required,min=1"`
	Label string `json:"label,omitempty" validate:"omitempty,min=1,max=100"`
	Limit int    `json:"limit" validate:"min=1,max=100"`
}

func (s NodeSearch) WithDefaults() NodeSearch {
	if s.Limit == 0 {
		s.Limit = DefaultSearchLimit
	}
	return s
}

// SearchFields are the text-bearing properties searchNodes matches against.
var SearchFields = []string{"name", "title", "description"}

type CreateNodeInput struct {
	Label      string     `json:"label" validate:"required,min=1,max=100"`
	Properties Properties `json:"properties"`
}

type UpdateNodeInput struct {
	Properties Properties `json:"properties" validate:"required"`
}

type CreateRelationshipInput struct {
	Type       string     `json:"type" validate:"required,min=1,max=100"`
	SourceID   string     `json:"sourceId" validate:"required,uuid"`
	TargetID   string     `json:"targetId" validate:"required,uuid"`
	Properties Properties `json:"properties"`
}
