// Package repository defines the data access interface for the property
// graph. Implementations translate domain operations into graph store queries
// and map the results back; they never touch the cache.
package repository

import (
	"context"

	"github.com/xqvvu/yokg/internal/domain/graph"
)

// Resource names used in ErrNotFound.
const (
	ResourceNode         = "node"
	ResourceRelationship = "relationship"
)

// GraphRepository is the only component that talks to the graph store.
//
// Lookups return (value, found, err): a missing entity is found == false
// with a nil error. Operations that require an existing entity return
// ErrNotFound instead.
type GraphRepository interface {
	NodeRepository
	RelationshipRepository
	TraversalRepository
}

type NodeRepository interface {
	// CreateNode assigns id and timestamps and stores the node.
	CreateNode(ctx context.Context, label string, props graph.Properties) (*graph.Node, error)
	FindNodeByID(ctx context.Context, id string) (*graph.Node, bool, error)
	FindNodes(ctx context.Context, filter graph.NodeFilter) ([]graph.Node, error)
	// CountNodes ignores Limit and Offset.
	CountNodes(ctx context.Context, filter graph.NodeFilter) (int64, error)
	// UpdateNode merges props into the stored map and refreshes updatedAt.
	// A null value removes the key. Returns ErrNotFound.
	UpdateNode(ctx context.Context, id string, props graph.Properties) (*graph.Node, error)
	// DeleteNode detach-deletes the node. Deleting a missing id succeeds
	// with Deleted == false.
	DeleteNode(ctx context.Context, id string) (graph.NodeDeletion, error)
	SearchNodes(ctx context.Context, search graph.NodeSearch) ([]graph.Node, error)
}

type RelationshipRepository interface {
	// CreateRelationship returns ErrEndpointNotFound when either node is missing.
	CreateRelationship(ctx context.Context, relType, sourceID, targetID string, props graph.Properties) (*graph.Relationship, error)
	FindRelationshipByID(ctx context.Context, id string) (*graph.Relationship, bool, error)
	FindRelationships(ctx context.Context, nodeID string, filter graph.RelationshipFilter) ([]graph.Relationship, error)
	// DeleteRelationship removes the edge and returns it as it was. Deleting a
	// missing id succeeds with found == false.
	DeleteRelationship(ctx context.Context, id string) (*graph.Relationship, bool, error)
}

type TraversalRepository interface {
	// FindGraph scans up to filter.Limit nodes with their outgoing edges and
	// the nodes at the far end, unique by id.
	FindGraph(ctx context.Context, filter graph.GraphFilter) (graph.Graph, error)
	// FindSubgraph walks up to depth hops in either direction. An unknown
	// center yields an empty subgraph.
	FindSubgraph(ctx context.Context, nodeID string, depth int) (graph.Subgraph, error)
	// FindNeighbors returns ErrNotFound when the center node does not exist.
	FindNeighbors(ctx context.Context, nodeID string, query graph.NeighborQuery) (graph.NodeNeighbors, error)
	FindNodeWithRelationships(ctx context.Context, nodeID string) (*graph.NodeWithRelationships, bool, error)
}

// HealthChecker is implemented by repositories backed by a remote store.
type HealthChecker interface {
	Health(ctx context.Context) error
}
