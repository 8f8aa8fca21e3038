package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/xqvvu/yokg/internal/domain/graph"
	"github.com/xqvvu/yokg/internal/repository"
)

// InstrumentRepository wraps a repository so every call opens a span named
// "graph.repository.<Operation>" and is counted in the graph query metrics.
func InstrumentRepository(repo repository.GraphRepository, tracer trace.Tracer, metrics *Collector) repository.GraphRepository {
	return &instrumentedRepository{inner: repo, tracer: tracer, metrics: metrics}
}

type instrumentedRepository struct {
	inner   repository.GraphRepository
	tracer  trace.Tracer
	metrics *Collector
}

func (r *instrumentedRepository) begin(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	ctx, span := r.tracer.Start(ctx, "graph.repository."+operation, trace.WithAttributes(attrs...))
	start := time.Now()

	return ctx, func(err error) {
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, operation+" failed")
		}
		r.metrics.GraphQuery(operation, status, time.Since(start))
		span.End()
	}
}

func (r *instrumentedRepository) CreateNode(ctx context.Context, label string, props graph.Properties) (*graph.Node, error) {
	ctx, done := r.begin(ctx, "CreateNode", attribute.String("node.label", label))
	node, err := r.inner.CreateNode(ctx, label, props)
	done(err)
	return node, err
}

func (r *instrumentedRepository) FindNodeByID(ctx context.Context, id string) (*graph.Node, bool, error) {
	ctx, done := r.begin(ctx, "FindNodeByID", attribute.String("node.id", id))
	node, found, err := r.inner.FindNodeByID(ctx, id)
	done(err)
	return node, found, err
}

func (r *instrumentedRepository) FindNodes(ctx context.Context, filter graph.NodeFilter) ([]graph.Node, error) {
	ctx, done := r.begin(ctx, "FindNodes",
		attribute.String("node.label", filter.Label),
		attribute.Int("query.limit", filter.Limit),
		attribute.Int("query.offset", filter.Offset),
	)
	nodes, err := r.inner.FindNodes(ctx, filter)
	done(err)
	return nodes, err
}

func (r *instrumentedRepository) CountNodes(ctx context.Context, filter graph.NodeFilter) (int64, error) {
	ctx, done := r.begin(ctx, "CountNodes", attribute.String("node.label", filter.Label))
	total, err := r.inner.CountNodes(ctx, filter)
	done(err)
	return total, err
}

func (r *instrumentedRepository) UpdateNode(ctx context.Context, id string, props graph.Properties) (*graph.Node, error) {
	ctx, done := r.begin(ctx, "UpdateNode", attribute.String("node.id", id))
	node, err := r.inner.UpdateNode(ctx, id, props)
	done(err)
	return node, err
}

func (r *instrumentedRepository) DeleteNode(ctx context.Context, id string) (graph.NodeDeletion, error) {
	ctx, done := r.begin(ctx, "DeleteNode", attribute.String("node.id", id))
	deletion, err := r.inner.DeleteNode(ctx, id)
	done(err)
	return deletion, err
}

func (r *instrumentedRepository) SearchNodes(ctx context.Context, search graph.NodeSearch) ([]graph.Node, error) {
	ctx, done := r.begin(ctx, "SearchNodes",
		attribute.String("node.label", search.Label),
		attribute.Int("query.limit", search.Limit),
	)
	nodes, err := r.inner.SearchNodes(ctx, search)
	done(err)
	return nodes, err
}

func (r *instrumentedRepository) CreateRelationship(ctx context.Context, relType, sourceID, targetID string, props graph.Properties) (*graph.Relationship, error) {
	ctx, done := r.begin(ctx, "CreateRelationship",
		attribute.String("relationship.type", relType),
		attribute.String("relationship.source_id", sourceID),
		attribute.String("relationship.target_id", targetID),
	)
	rel, err := r.inner.CreateRelationship(ctx, relType, sourceID, targetID, props)
	done(err)
	return rel, err
}

func (r *instrumentedRepository) FindRelationshipByID(ctx context.Context, id string) (*graph.Relationship, bool, error) {
	ctx, done := r.begin(ctx, "FindRelationshipByID", attribute.String("relationship.id", id))
	rel, found, err := r.inner.FindRelationshipByID(ctx, id)
	done(err)
	return rel, found, err
}

func (r *instrumentedRepository) FindRelationships(ctx context.Context, nodeID string, filter graph.RelationshipFilter) ([]graph.Relationship, error) {
	ctx, done := r.begin(ctx, "FindRelationships",
		attribute.String("node.id", nodeID),
		attribute.String("relationship.type", filter.Type),
		attribute.String("relationship.direction", string(filter.Direction)),
	)
	rels, err := r.inner.FindRelationships(ctx, nodeID, filter)
	done(err)
	return rels, err
}

func (r *instrumentedRepository) DeleteRelationship(ctx context.Context, id string) (*graph.Relationship, bool, error) {
	ctx, done := r.begin(ctx, "DeleteRelationship", attribute.String("relationship.id", id))
	rel, found, err := r.inner.DeleteRelationship(ctx, id)
	done(err)
	return rel, found, err
}

func (r *instrumentedRepository) FindGraph(ctx context.Context, filter graph.GraphFilter) (graph.Graph, error) {
	ctx, done := r.begin(ctx, "FindGraph",
		attribute.StringSlice("node.labels", filter.Labels),
		attribute.Int("query.limit", filter.Limit),
	)
	g, err := r.inner.FindGraph(ctx, filter)
	done(err)
	return g, err
}

func (r *instrumentedRepository) FindSubgraph(ctx context.Context, nodeID string, depth int) (graph.Subgraph, error) {
	ctx, done := r.begin(ctx, "FindSubgraph",
		attribute.String("node.id", nodeID),
		attribute.Int("query.depth", depth),
	)
	sub, err := r.inner.FindSubgraph(ctx, nodeID, depth)
	done(err)
	return sub, err
}

func (r *instrumentedRepository) FindNeighbors(ctx context.Context, nodeID string, query graph.NeighborQuery) (graph.NodeNeighbors, error) {
	ctx, done := r.begin(ctx, "FindNeighbors",
		attribute.String("node.id", nodeID),
		attribute.String("relationship.type", query.RelationshipType),
		attribute.String("relationship.direction", string(query.Direction)),
	)
	neighbors, err := r.inner.FindNeighbors(ctx, nodeID, query)
	// a missing center is an answer, not a store failure
	if repository.IsNotFound(err) {
		done(nil)
	} else {
		done(err)
	}
	return neighbors, err
}

func (r *instrumentedRepository) FindNodeWithRelationships(ctx context.Context, nodeID string) (*graph.NodeWithRelationships, bool, error) {
	ctx, done := r.begin(ctx, "FindNodeWithRelationships", attribute.String("node.id", nodeID))
	node, found, err := r.inner.FindNodeWithRelationships(ctx, nodeID)
	done(err)
	return node, found, err
}

// Health forwards to the inner repository when it supports health checks.
func (r *instrumentedRepository) Health(ctx context.Context) error {
	if checker, ok := r.inner.(repository.HealthChecker); ok {
		return checker.Health(ctx)
	}
	return nil
}
