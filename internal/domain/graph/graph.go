package graph

// Graph is a bounded snapshot, unique by id within itself.
type Graph struct {
	Nodes         []Node         `json:"nodes"`
	Relationships []Relationship `json:"relationships"`
}

// Empty reports whether the snapshot has no nodes.
func (g Graph) Empty() bool {
	return len(g.Nodes) == 0
}

// Subgraph is everything reachable from CenterNodeID within Depth hops,
// ignoring edge direction.
type Subgraph struct {
	Graph
	Depth        int    `json:"depth"`
	CenterNodeID string `json:"centerNodeId"`
}

// NodeNeighbors is the one-hop neighbourhood of Center.
type NodeNeighbors struct {
	Center        Node           `json:"center"`
	Neighbors     []Node         `json:"neighbors"`
	Relationships []Relationship `json:"relationships"`
}

// EdgeEndpoint is the shallow view of the node at the other end of an edge.
type EdgeEndpoint struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Name  string `json:"name,omitempty"`
}

type OutgoingEdge struct {
	Relationship Relationship `json:"relationship"`
	Target       EdgeEndpoint `json:"target"`
}

type IncomingEdge struct {
	Relationship Relationship `json:"relationship"`
	Source       EdgeEndpoint `json:"source"`
}

// IncidentEdges splits the edges of one node by direction.
type IncidentEdges struct {
	Outgoing []OutgoingEdge `json:"outgoing"`
	Incoming []IncomingEdge `json:"incoming"`
}

// NodeWithRelationships is a node with its incident edges, each paired with
// a shallow view of the node at the other end.
type NodeWithRelationships struct {
	Node          Node          `json:"node"`
	Relationships IncidentEdges `json:"relationships"`
}

// NodeDeletion reports what a detach delete removed. NeighborIDs lists the
// nodes that were one hop away before the delete.
type NodeDeletion struct {
	Deleted     bool     `json:"deleted"`
	NeighborIDs []string `json:"neighborIds"`
}

// Pagination is the metadata attached to a paged node listing.
type Pagination struct {
	Total  int64 `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}

type PaginatedNodes struct {
	Nodes      []Node     `json:"nodes"`
	Pagination Pagination `json:"pagination"`
}
