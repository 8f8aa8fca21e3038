// Package memory provides an in-process GraphRepository. It backs the
// "memory" graph provider for local development and is the repository used
// by service and handler tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xqvvu/yokg/internal/domain/graph"
	"github.com/xqvvu/yokg/internal/repository"
)

// GraphRepository keeps nodes and relationships in maps guarded by a mutex.
type GraphRepository struct {
	mu sync.RWMutex

	nodes    map[string]graph.Node
	nodeSeq  map[string]int64
	rels     map[string]graph.Relationship
	relSeq   map[string]int64
	sequence int64

	now func() time.Time

	// For testing error scenarios
	shouldFailOn map[string]error
	calls        map[string]int
}

var _ repository.GraphRepository = (*GraphRepository)(nil)

// NewGraphRepository creates an empty repository. now may be nil.
func NewGraphRepository(now func() time.Time) *GraphRepository {
	if now == nil {
		now = time.Now
	}
	return &GraphRepository{
		nodes:        make(map[string]graph.Node),
		nodeSeq:      make(map[string]int64),
		rels:         make(map[string]graph.Relationship),
		relSeq:       make(map[string]int64),
		now:          now,
		shouldFailOn: make(map[string]error),
		calls:        make(map[string]int),
	}
}

// SetError makes method fail with err until ClearErrors is called.
func (m *GraphRepository) SetError(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shouldFailOn[method] = err
}

// ClearErrors removes all configured errors.
func (m *GraphRepository) ClearErrors() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shouldFailOn = make(map[string]error)
}

// Calls returns how many times method has been invoked.
func (m *GraphRepository) Calls(method string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls[method]
}

// enter records the call and returns the configured error, if any. It must
// be called with the write lock held.
func (m *GraphRepository) enter(method string) error {
	m.calls[method]++
	return m.shouldFailOn[method]
}

func (m *GraphRepository) timestamp() time.Time {
	return m.now().UTC().Truncate(time.Millisecond)
}

// Node operations

func (m *GraphRepository) CreateNode(_ context.Context, label string, props graph.Properties) (*graph.Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("CreateNode"); err != nil {
		return nil, err
	}

	now := m.timestamp()
	node := graph.Node{
		ID:         uuid.NewString(),
		Label:      label,
		Properties: props.Clone(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	m.sequence++
	m.nodes[node.ID] = node
	m.nodeSeq[node.ID] = m.sequence

	return copyNode(node), nil
}

func (m *GraphRepository) FindNodeByID(_ context.Context, id string) (*graph.Node, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("FindNodeByID"); err != nil {
		return nil, false, err
	}

	node, ok := m.nodes[id]
	if !ok {
		return nil, false, nil
	}
	return copyNode(node), true, nil
}

func (m *GraphRepository) FindNodes(_ context.Context, filter graph.NodeFilter) ([]graph.Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("FindNodes"); err != nil {
		return nil, err
	}

	matched := m.orderedNodes(func(n graph.Node) bool {
		return filter.Label == "" || n.Label == filter.Label
	})
	return page(matched, filter.Offset, filter.Limit), nil
}

func (m *GraphRepository) CountNodes(_ context.Context, filter graph.NodeFilter) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("CountNodes"); err != nil {
		return 0, err
	}

	var total int64
	for _, n := range m.nodes {
		if filter.Label == "" || n.Label == filter.Label {
			total++
		}
	}
	return total, nil
}

func (m *GraphRepository) UpdateNode(_ context.Context, id string, props graph.Properties) (*graph.Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("UpdateNode"); err != nil {
		return nil, err
	}

	node, ok := m.nodes[id]
	if !ok {
		return nil, repository.NewNotFound(repository.ResourceNode, id)
	}
	node.Properties = node.Properties.Merge(props)
	node.UpdatedAt = m.timestamp()
	m.nodes[id] = node

	return copyNode(node), nil
}

func (m *GraphRepository) DeleteNode(_ context.Context, id string) (graph.NodeDeletion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("DeleteNode"); err != nil {
		return graph.NodeDeletion{}, err
	}

	if _, ok := m.nodes[id]; !ok {
		return graph.NodeDeletion{Deleted: false, NeighborIDs: []string{}}, nil
	}

	neighborIDs := []string{}
	seen := map[string]bool{id: true}
	for relID, rel := range m.rels {
		if !rel.Touches(id) {
			continue
		}
		if other := rel.Other(id); !seen[other] {
			seen[other] = true
			neighborIDs = append(neighborIDs, other)
		}
		delete(m.rels, relID)
		delete(m.relSeq, relID)
	}
	delete(m.nodes, id)
	delete(m.nodeSeq, id)
	sort.Strings(neighborIDs)

	return graph.NodeDeletion{Deleted: true, NeighborIDs: neighborIDs}, nil
}

func (m *GraphRepository) SearchNodes(_ context.Context, search graph.NodeSearch) ([]graph.Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("SearchNodes"); err != nil {
		return nil, err
	}

	matched := m.orderedNodes(func(n graph.Node) bool {
		if search.Label != "" && n.Label != search.Label {
			return false
		}
		for _, field := range graph.SearchFields {
			if text, ok := n.Properties.Text(field); ok && strings.Contains(text, search.Query) {
				return true
			}
		}
		return false
	})
	return page(matched, 0, search.Limit), nil
}

// Relationship operations

func (m *GraphRepository) CreateRelationship(_ context.Context, relType, sourceID, targetID string, props graph.Properties) (*graph.Relationship, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("CreateRelationship"); err != nil {
		return nil, err
	}

	_, sourceOK := m.nodes[sourceID]
	_, targetOK := m.nodes[targetID]
	if !sourceOK || !targetOK {
		return nil, repository.ErrEndpointNotFound{SourceID: sourceID, TargetID: targetID}
	}

	rel := graph.Relationship{
		ID:         uuid.NewString(),
		Type:       relType,
		SourceID:   sourceID,
		TargetID:   targetID,
		Properties: props.Clone(),
		CreatedAt:  m.timestamp(),
	}
	m.sequence++
	m.rels[rel.ID] = rel
	m.relSeq[rel.ID] = m.sequence

	return copyRel(rel), nil
}

func (m *GraphRepository) FindRelationshipByID(_ context.Context, id string) (*graph.Relationship, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("FindRelationshipByID"); err != nil {
		return nil, false, err
	}

	rel, ok := m.rels[id]
	if !ok {
		return nil, false, nil
	}
	return copyRel(rel), true, nil
}

func (m *GraphRepository) FindRelationships(_ context.Context, nodeID string, filter graph.RelationshipFilter) ([]graph.Relationship, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("FindRelationships"); err != nil {
		return nil, err
	}

	return m.incident(nodeID, filter.Type, filter.Direction), nil
}

func (m *GraphRepository) DeleteRelationship(_ context.Context, id string) (*graph.Relationship, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("DeleteRelationship"); err != nil {
		return nil, false, err
	}

	rel, ok := m.rels[id]
	if !ok {
		return nil, false, nil
	}
	delete(m.rels, id)
	delete(m.relSeq, id)
	return copyRel(rel), true, nil
}

// Traversals

func (m *GraphRepository) FindGraph(_ context.Context, filter graph.GraphFilter) (graph.Graph, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("FindGraph"); err != nil {
		return graph.Graph{}, err
	}

	labels := make(map[string]bool, len(filter.Labels))
	for _, l := range filter.Labels {
		labels[l] = true
	}
	scanned := page(m.orderedNodes(func(n graph.Node) bool {
		return len(labels) == 0 || labels[n.Label]
	}), 0, filter.Limit)

	acc := graph.NewAccumulator()
	for _, n := range scanned {
		acc.AddNode(n)
		for _, rel := range m.incident(n.ID, "", graph.DirectionOutgoing) {
			acc.AddNode(*copyNode(m.nodes[rel.TargetID]))
			acc.AddRelationship(rel)
		}
	}
	return acc.Graph(), nil
}

func (m *GraphRepository) FindSubgraph(_ context.Context, nodeID string, depth int) (graph.Subgraph, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("FindSubgraph"); err != nil {
		return graph.Subgraph{}, err
	}

	acc := graph.NewAccumulator()
	result := graph.Subgraph{Depth: depth, CenterNodeID: nodeID}
	center, ok := m.nodes[nodeID]
	if !ok {
		result.Graph = acc.Graph()
		return result, nil
	}

	// breadth-first over undirected edges; an edge lies on some walk of at
	// most depth hops exactly when one of its ends is closer than depth
	dist := map[string]int{center.ID: 0}
	frontier := []string{center.ID}
	acc.AddNode(*copyNode(center))

	for hop := 0; hop < depth && len(frontier) > 0; hop++ {
		var next []string
		for _, id := range frontier {
			for _, rel := range m.incident(id, "", graph.DirectionBoth) {
				acc.AddRelationship(rel)
				other := rel.Other(id)
				if _, seen := dist[other]; seen {
					continue
				}
				dist[other] = hop + 1
				acc.AddNode(*copyNode(m.nodes[other]))
				next = append(next, other)
			}
		}
		frontier = next
	}

	result.Graph = acc.Graph()
	return result, nil
}

func (m *GraphRepository) FindNeighbors(_ context.Context, nodeID string, query graph.NeighborQuery) (graph.NodeNeighbors, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("FindNeighbors"); err != nil {
		return graph.NodeNeighbors{}, err
	}

	center, ok := m.nodes[nodeID]
	if !ok {
		return graph.NodeNeighbors{}, repository.NewNotFound(repository.ResourceNode, nodeID)
	}

	acc := graph.NewAccumulator()
	for _, rel := range m.incident(nodeID, query.RelationshipType, query.Direction) {
		acc.AddRelationship(rel)
		if other := rel.Other(nodeID); other != nodeID {
			acc.AddNode(*copyNode(m.nodes[other]))
		}
	}

	return graph.NodeNeighbors{
		Center:        *copyNode(center),
		Neighbors:     acc.Nodes(),
		Relationships: acc.Relationships(),
	}, nil
}

func (m *GraphRepository) FindNodeWithRelationships(_ context.Context, nodeID string) (*graph.NodeWithRelationships, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("FindNodeWithRelationships"); err != nil {
		return nil, false, err
	}

	node, ok := m.nodes[nodeID]
	if !ok {
		return nil, false, nil
	}

	result := &graph.NodeWithRelationships{
		Node: *copyNode(node),
		Relationships: graph.IncidentEdges{
			Outgoing: []graph.OutgoingEdge{},
			Incoming: []graph.IncomingEdge{},
		},
	}
	for _, rel := range m.incident(nodeID, "", graph.DirectionOutgoing) {
		result.Relationships.Outgoing = append(result.Relationships.Outgoing, graph.OutgoingEdge{
			Relationship: rel,
			Target:       m.nodes[rel.TargetID].Endpoint(),
		})
	}
	for _, rel := range m.incident(nodeID, "", graph.DirectionIncoming) {
		result.Relationships.Incoming = append(result.Relationships.Incoming, graph.IncomingEdge{
			Relationship: rel,
			Source:       m.nodes[rel.SourceID].Endpoint(),
		})
	}
	return result, true, nil
}

// orderedNodes returns matching nodes in creation order.
func (m *GraphRepository) orderedNodes(match func(graph.Node) bool) []graph.Node {
	out := make([]graph.Node, 0, len(m.nodes))
	for _, n := range m.nodes {
		if match(n) {
			out = append(out, *copyNode(n))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return m.nodeSeq[out[i].ID] < m.nodeSeq[out[j].ID]
	})
	return out
}

// incident returns the edges of nodeID in creation order.
func (m *GraphRepository) incident(nodeID, relType string, direction graph.Direction) []graph.Relationship {
	out := []graph.Relationship{}
	for _, rel := range m.rels {
		if relType != "" && rel.Type != relType {
			continue
		}
		if direction.Matches(rel, nodeID) {
			out = append(out, *copyRel(rel))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return m.relSeq[out[i].ID] < m.relSeq[out[j].ID]
	})
	return out
}

func page(nodes []graph.Node, offset, limit int) []graph.Node {
	if offset >= len(nodes) {
		return []graph.Node{}
	}
	nodes = nodes[offset:]
	if limit > 0 && limit < len(nodes) {
		nodes = nodes[:limit]
	}
	return nodes
}

func copyNode(n graph.Node) *graph.Node {
	n.Properties = n.Properties.Clone()
	return &n
}

func copyRel(r graph.Relationship) *graph.Relationship {
	r.Properties = r.Properties.Clone()
	return &r
}
