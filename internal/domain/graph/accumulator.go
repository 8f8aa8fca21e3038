package graph

// Accumulator collects nodes and relationships from query rows that may
// repeat the same entity, keeping the first occurrence of each id in
// arrival order.
type Accumulator struct {
	nodes     []Node
	rels      []Relationship
	seenNodes map[string]struct{}
	seenRels  map[string]struct{}
}

func NewAccumulator() *Accumulator {
	return &Accumulator{
		nodes:     []Node{},
		rels:      []Relationship{},
		seenNodes: make(map[string]struct{}),
		seenRels:  make(map[string]struct{}),
	}
}

// AddNode records n unless its id was already seen. It reports whether n was new.
func (a *Accumulator) AddNode(n Node) bool {
	if _, ok := a.seenNodes[n.ID]; ok {
		return false
	}
	a.seenNodes[n.ID] = struct{}{}
	a.nodes = append(a.nodes, n)
	return true
}

// AddRelationship records r unless its id was already seen.
func (a *Accumulator) AddRelationship(r Relationship) bool {
	if _, ok := a.seenRels[r.ID]; ok {
		return false
	}
	a.seenRels[r.ID] = struct{}{}
	a.rels = append(a.rels, r)
	return true
}

func (a *Accumulator) HasNode(id string) bool {
	_, ok := a.seenNodes[id]
	return ok
}

func (a *Accumulator) Nodes() []Node                 { return a.nodes }
func (a *Accumulator) Relationships() []Relationship { return a.rels }

// Graph returns the accumulated snapshot.
func (a *Accumulator) Graph() Graph {
	return Graph{Nodes: a.nodes, Relationships: a.rels}
}
