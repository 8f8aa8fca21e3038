// Package services contains the application services. GraphService is the
// single entry point for graph reads and writes: it validates input, keeps
// the cache consistent with the graph store and translates repository
// failures into application errors.
package services

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xqvvu/yokg/internal/domain/graph"
	appErrors "github.com/xqvvu/yokg/internal/errors"
	"github.com/xqvvu/yokg/internal/infrastructure/cache"
	"github.com/xqvvu/yokg/internal/infrastructure/observability"
	"github.com/xqvvu/yokg/internal/repository"
)

// GraphService orchestrates the graph repository and the cache.
type GraphService struct {
	repo      repository.GraphRepository
	cache     *cacheAside
	keys      cache.Keys
	validator *inputValidator
	logger    *zap.Logger
	tracer    trace.Tracer
}

// GraphServiceDeps groups the collaborators of a GraphService.
type GraphServiceDeps struct {
	Repository repository.GraphRepository
	Cache      cache.Store
	Keys       cache.Keys
	TTL        *cache.TTLCalculator
	Policy     CachePolicy
	Metrics    *observability.Collector
	Logger     *zap.Logger
}

// NewGraphService creates a GraphService. A nil cache disables caching.
func NewGraphService(deps GraphServiceDeps) (*GraphService, error) {
	if deps.Repository == nil {
		return nil, fmt.Errorf("graph repository is required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.TTL == nil {
		deps.TTL = cache.NewTTLCalculator(nil)
	}
	if deps.Keys.Namespace() == "" {
		deps.Keys = cache.NewKeys("")
	}
	if err := deps.Policy.Validate(deps.TTL); err != nil {
		return nil, err
	}

	logger := deps.Logger.Named("graph-service")
	return &GraphService{
		repo:      deps.Repository,
		cache:     newCacheAside(deps.Cache, deps.TTL, deps.Policy, deps.Metrics, logger),
		keys:      deps.Keys,
		validator: newInputValidator(),
		logger:    logger,
		tracer:    otel.Tracer("yokg.application.graph_service"),
	}, nil
}

// SetCachePolicy swaps the TTL policy used by subsequent cache writes.
func (s *GraphService) SetCachePolicy(policy CachePolicy) error {
	if err := policy.Validate(s.cache.ttl); err != nil {
		return err
	}
	s.cache.policy.Store(&policy)
	s.logger.Info("Cache policy updated",
		zap.Stringer("node_ttl", policy.Node),
		zap.Stringer("neighbors_ttl", policy.Neighbors),
		zap.Stringer("subgraph_ttl", policy.Subgraph),
	)
	return nil
}

// Drain waits for background cache writes to finish.
func (s *GraphService) Drain() {
	s.cache.drain()
}

func (s *GraphService) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "GraphService."+name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// Nodes

// GetNodeByID serves a node from the cache or the store. Absence is never
// cached.
func (s *GraphService) GetNodeByID(ctx context.Context, id string) (node *graph.Node, err error) {
	const op = "GetNodeByID"
	ctx, span := s.startSpan(ctx, op, attribute.String("node.id", id))
	defer func() { endSpan(span, err) }()

	if err := s.validator.ID(op, "id", id); err != nil {
		return nil, err
	}

	found, err := readThrough(ctx, s.cache, kindNode, s.keys.Node(id), func(ctx context.Context) (graph.Node, error) {
		n, ok, err := s.repo.FindNodeByID(ctx, id)
		if err != nil {
			return graph.Node{}, s.translate(op, repository.ResourceNode, id, err)
		}
		if !ok {
			return graph.Node{}, nodeNotFound(op, id)
		}
		return *n, nil
	})
	if err != nil {
		return nil, err
	}
	return &found, nil
}

// ListNodes pages through nodes and reports the total independent of paging.
func (s *GraphService) ListNodes(ctx context.Context, filter graph.NodeFilter) (page *graph.PaginatedNodes, err error) {
	const op = "ListNodes"
	ctx, span := s.startSpan(ctx, op, attribute.String("node.label", filter.Label))
	defer func() { endSpan(span, err) }()

	filter = filter.WithDefaults()
	if err := s.validator.Struct(op, filter); err != nil {
		return nil, err
	}

	nodes, err := s.repo.FindNodes(ctx, filter)
	if err != nil {
		return nil, s.translate(op, repository.ResourceNode, "", err)
	}
	total, err := s.repo.CountNodes(ctx, filter)
	if err != nil {
		return nil, s.translate(op, repository.ResourceNode, "", err)
	}

	return &graph.PaginatedNodes{
		Nodes: nodes,
		Pagination: graph.Pagination{
			Total:  total,
			Limit:  filter.Limit,
			Offset: filter.Offset,
		},
	}, nil
}

func (s *GraphService) CreateNode(ctx context.Context, input graph.CreateNodeInput) (node *graph.Node, err error) {
	const op = "CreateNode"
	ctx, span := s.startSpan(ctx, op, attribute.String("node.label", input.Label))
	defer func() { endSpan(span, err) }()

	if err := s.validator.Struct(op, input); err != nil {
		return nil, err
	}
	if err := s.validator.Properties(op, input.Properties, false); err != nil {
		return nil, err
	}

	node, err = s.repo.CreateNode(ctx, input.Label, input.Properties.Clone())
	if err != nil {
		return nil, s.translate(op, repository.ResourceNode, "", err)
	}

	s.logger.Info("Node created", zap.String("node_id", node.ID), zap.String("label", node.Label))
	return node, nil
}

// UpdateNode merges properties into the node and drops its cached views.
func (s *GraphService) UpdateNode(ctx context.Context, id string, input graph.UpdateNodeInput) (node *graph.Node, err error) {
	const op = "UpdateNode"
	ctx, span := s.startSpan(ctx, op, attribute.String("node.id", id))
	defer func() { endSpan(span, err) }()

	if err := s.validator.ID(op, "id", id); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(op, input); err != nil {
		return nil, err
	}
	if err := s.validator.Properties(op, input.Properties, true); err != nil {
		return nil, err
	}

	node, err = s.repo.UpdateNode(ctx, id, input.Properties)
	if err != nil {
		return nil, s.translate(op, repository.ResourceNode, id, err)
	}

	s.cache.invalidate(ctx, "update_node", s.keys.NodeFamily(id, graph.MaxDepth))
	return node, nil
}

// DeleteNode detach-deletes the node. Deleting an unknown id succeeds. The
// cached views of the node and of every former neighbour are dropped.
func (s *GraphService) DeleteNode(ctx context.Context, id string) (err error) {
	const op = "DeleteNode"
	ctx, span := s.startSpan(ctx, op, attribute.String("node.id", id))
	defer func() { endSpan(span, err) }()

	if err := s.validator.ID(op, "id", id); err != nil {
		return err
	}

	deletion, err := s.repo.DeleteNode(ctx, id)
	if err != nil {
		return s.translate(op, repository.ResourceNode, id, err)
	}

	keys := s.keys.NodeFamily(id, graph.MaxDepth)
	for _, neighborID := range deletion.NeighborIDs {
		keys = append(keys, s.keys.NodeFamily(neighborID, graph.MaxDepth)...)
	}
	s.cache.invalidate(ctx, "delete_node", keys)

	if deletion.Deleted {
		s.logger.Info("Node deleted", zap.String("node_id", id), zap.Int("neighbors", len(deletion.NeighborIDs)))
	}
	return nil
}

func (s *GraphService) SearchNodes(ctx context.Context, search graph.NodeSearch) (nodes []graph.Node, err error) {
	const op = "SearchNodes"
	ctx, span := s.startSpan(ctx, op, attribute.String("node.label", search.Label))
	defer func() { endSpan(span, err) }()

	search = search.WithDefaults()
	if err := s.validator.Struct(op, search); err != nil {
		return nil, err
	}

	nodes, err = s.repo.SearchNodes(ctx, search)
	if err != nil {
		return nil, s.translate(op, repository.ResourceNode, "", err)
	}
	return nodes, nil
}

// Relationships

// CreateRelationship adds a directed edge and drops the cached views of both
// endpoints.
func (s *GraphService) CreateRelationship(ctx context.Context, input graph.CreateRelationshipInput) (rel *graph.Relationship, err error) {
	const op = "CreateRelationship"
	ctx, span := s.startSpan(ctx, op,
		attribute.String("relationship.type", input.Type),
		attribute.String("relationship.source_id", input.SourceID),
		attribute.String("relationship.target_id", input.TargetID),
	)
	defer func() { endSpan(span, err) }()

	if err := s.validator.Struct(op, input); err != nil {
		return nil, err
	}
	if err := s.validator.Properties(op, input.Properties, false); err != nil {
		return nil, err
	}

	rel, err = s.repo.CreateRelationship(ctx, input.Type, input.SourceID, input.TargetID, input.Properties.Clone())
	if err != nil {
		return nil, s.translate(op, repository.ResourceRelationship, "", err)
	}

	s.cache.invalidate(ctx, "create_relationship", s.endpointKeys(rel))
	return rel, nil
}

func (s *GraphService) GetRelationshipByID(ctx context.Context, id string) (rel *graph.Relationship, err error) {
	const op = "GetRelationshipByID"
	ctx, span := s.startSpan(ctx, op, attribute.String("relationship.id", id))
	defer func() { endSpan(span, err) }()

	if err := s.validator.ID(op, "id", id); err != nil {
		return nil, err
	}

	rel, found, err := s.repo.FindRelationshipByID(ctx, id)
	if err != nil {
		return nil, s.translate(op, repository.ResourceRelationship, id, err)
	}
	if !found {
		return nil, relationshipNotFound(op, id)
	}
	return rel, nil
}

// ListRelationships returns the edges incident to nodeID.
func (s *GraphService) ListRelationships(ctx context.Context, nodeID string, filter graph.RelationshipFilter) (rels []graph.Relationship, err error) {
	const op = "ListRelationships"
	ctx, span := s.startSpan(ctx, op, attribute.String("node.id", nodeID))
	defer func() { endSpan(span, err) }()

	if err := s.validator.ID(op, "nodeId", nodeID); err != nil {
		return nil, err
	}
	filter = filter.WithDefaults()
	if err := s.validator.Struct(op, filter); err != nil {
		return nil, err
	}

	rels, err = s.repo.FindRelationships(ctx, nodeID, filter)
	if err != nil {
		return nil, s.translate(op, repository.ResourceRelationship, "", err)
	}
	return rels, nil
}

// DeleteRelationship removes one edge. An unknown id is NotFound, since
// there are no endpoints to invalidate.
func (s *GraphService) DeleteRelationship(ctx context.Context, id string) (err error) {
	const op = "DeleteRelationship"
	ctx, span := s.startSpan(ctx, op, attribute.String("relationship.id", id))
	defer func() { endSpan(span, err) }()

	if err := s.validator.ID(op, "id", id); err != nil {
		return err
	}

	rel, found, err := s.repo.DeleteRelationship(ctx, id)
	if err != nil {
		return s.translate(op, repository.ResourceRelationship, id, err)
	}
	if !found {
		return relationshipNotFound(op, id)
	}

	s.cache.invalidate(ctx, "delete_relationship", s.endpointKeys(rel))
	return nil
}

func (s *GraphService) endpointKeys(rel *graph.Relationship) []string {
	keys := s.keys.NodeFamily(rel.SourceID, graph.MaxDepth)
	if rel.TargetID != rel.SourceID {
		keys = append(keys, s.keys.NodeFamily(rel.TargetID, graph.MaxDepth)...)
	}
	return keys
}

// Traversals

func (s *GraphService) GetGraph(ctx context.Context, filter graph.GraphFilter) (g graph.Graph, err error) {
	const op = "GetGraph"
	ctx, span := s.startSpan(ctx, op, attribute.Int("query.limit", filter.Limit))
	defer func() { endSpan(span, err) }()

	filter = filter.WithDefaults()
	if err := s.validator.Struct(op, filter); err != nil {
		return graph.Graph{}, err
	}

	g, err = s.repo.FindGraph(ctx, filter)
	if err != nil {
		return graph.Graph{}, s.translate(op, repository.ResourceNode, "", err)
	}
	return g, nil
}

// GetSubgraph serves everything within query.Depth hops of the center. Each
// depth has its own cache entry.
func (s *GraphService) GetSubgraph(ctx context.Context, query graph.SubgraphQuery) (sub graph.Subgraph, err error) {
	const op = "GetSubgraph"
	ctx, span := s.startSpan(ctx, op,
		attribute.String("node.id", query.NodeID),
		attribute.Int("query.depth", query.Depth),
	)
	defer func() { endSpan(span, err) }()

	query = query.WithDefaults()
	if err := s.validator.Struct(op, query); err != nil {
		return graph.Subgraph{}, err
	}

	return readThrough(ctx, s.cache, kindSubgraph, s.keys.Subgraph(query.NodeID, query.Depth), func(ctx context.Context) (graph.Subgraph, error) {
		sub, err := s.repo.FindSubgraph(ctx, query.NodeID, query.Depth)
		if err != nil {
			return graph.Subgraph{}, s.translate(op, repository.ResourceNode, query.NodeID, err)
		}
		return sub, nil
	})
}

// GetNeighbors returns the one-hop neighbourhood of nodeID. Only the
// unfiltered query shares the neighbours cache entry.
func (s *GraphService) GetNeighbors(ctx context.Context, nodeID string, query graph.NeighborQuery) (result graph.NodeNeighbors, err error) {
	const op = "GetNeighbors"
	ctx, span := s.startSpan(ctx, op,
		attribute.String("node.id", nodeID),
		attribute.String("relationship.type", query.RelationshipType),
	)
	defer func() { endSpan(span, err) }()

	if err := s.validator.ID(op, "nodeId", nodeID); err != nil {
		return graph.NodeNeighbors{}, err
	}
	query = query.WithDefaults()
	if err := s.validator.Struct(op, query); err != nil {
		return graph.NodeNeighbors{}, err
	}

	load := func(ctx context.Context) (graph.NodeNeighbors, error) {
		neighbors, err := s.repo.FindNeighbors(ctx, nodeID, query)
		if err != nil {
			return graph.NodeNeighbors{}, s.translate(op, repository.ResourceNode, nodeID, err)
		}
		return neighbors, nil
	}

	if !query.IsUnfiltered() {
		return load(ctx)
	}
	return readThrough(ctx, s.cache, kindNeighbors, s.keys.Neighbors(nodeID), load)
}

func (s *GraphService) GetNodeWithRelationships(ctx context.Context, nodeID string) (result *graph.NodeWithRelationships, err error) {
	const op = "GetNodeWithRelationships"
	ctx, span := s.startSpan(ctx, op, attribute.String("node.id", nodeID))
	defer func() { endSpan(span, err) }()

	if err := s.validator.ID(op, "nodeId", nodeID); err != nil {
		return nil, err
	}

	result, found, err := s.repo.FindNodeWithRelationships(ctx, nodeID)
	if err != nil {
		return nil, s.translate(op, repository.ResourceNode, nodeID, err)
	}
	if !found {
		return nil, nodeNotFound(op, nodeID)
	}
	return result, nil
}

// Health reports the graph store and cache status. A cache failure is
// reported but does not make the service unhealthy.
func (s *GraphService) Health(ctx context.Context) HealthReport {
	report := HealthReport{Graph: "ok", Cache: "ok"}
	if checker, ok := s.repo.(repository.HealthChecker); ok {
		if err := checker.Health(ctx); err != nil {
			s.logger.Error("Graph store health check failed", zap.Error(err))
			report.Graph = "unavailable"
			report.Err = err
		}
	}
	if err := s.cache.store.Ping(ctx); err != nil {
		s.logger.Warn("Cache health check failed", zap.Error(err))
		report.Cache = "unavailable"
	}
	return report
}

// HealthReport is the outcome of GraphService.Health.
type HealthReport struct {
	Graph string `json:"graph"`
	Cache string `json:"cache"`
	Err   error  `json:"-"`
}

// Healthy reports whether the graph store answered.
func (h HealthReport) Healthy() bool {
	return h.Err == nil
}

// Error translation

func (s *GraphService) translate(operation, resource, id string, err error) error {
	if _, ok := appErrors.As(err); ok {
		return err
	}
	switch {
	case repository.IsNotFound(err):
		if resource == repository.ResourceRelationship {
			return relationshipNotFound(operation, id)
		}
		return nodeNotFound(operation, id)
	case repository.IsEndpointNotFound(err):
		return appErrors.EndpointNotFound(appErrors.CodeInvalidRelationship, "source or target node not found").
			WithOperation(operation).
			WithCause(err).
			Build()
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		s.logger.Warn("Graph query did not finish",
			zap.String("operation", operation),
			zap.String("id", id),
			zap.Error(err),
		)
		return queryTimeout(operation, err)
	}

	transient := repository.IsTransient(err)
	s.logger.Error("Graph query failed",
		zap.String("operation", operation),
		zap.String("resource", resource),
		zap.String("id", id),
		zap.Bool("transient", transient),
		zap.Error(err),
	)
	builder := appErrors.QueryFailed(appErrors.CodeGraphQuery, fmt.Sprintf("failed to %s", operationVerb(operation))).
		WithOperation(operation).
		WithResource(resource, id).
		WithCause(err)
	if transient {
		builder = builder.WithRetryable(true).WithSeverity(appErrors.SeverityMedium)
	}
	return builder.Build()
}

func queryTimeout(operation string, err error) error {
	return appErrors.Timeout(appErrors.CodeGraphTimeout, "graph query timed out").
		WithOperation(operation).
		WithCause(err).
		Build()
}

func nodeNotFound(operation, id string) error {
	return appErrors.NotFound(appErrors.CodeNodeNotFound, fmt.Sprintf("Node with id %s not found", id)).
		WithOperation(operation).
		WithResource(repository.ResourceNode, id).
		Build()
}

func relationshipNotFound(operation, id string) error {
	return appErrors.NotFound(appErrors.CodeRelationshipNotFound, fmt.Sprintf("Relationship with id %s not found", id)).
		WithOperation(operation).
		WithResource(repository.ResourceRelationship, id).
		Build()
}

var operationVerbs = map[string]string{
	"GetNodeByID":              "get node",
	"ListNodes":                "list nodes",
	"CreateNode":               "create node",
	"UpdateNode":               "update node",
	"DeleteNode":               "delete node",
	"SearchNodes":              "search nodes",
	"CreateRelationship":       "create relationship",
	"GetRelationshipByID":      "get relationship",
	"ListRelationships":        "list relationships",
	"DeleteRelationship":       "delete relationship",
	"GetGraph":                 "get graph",
	"GetSubgraph":              "get subgraph",
	"GetNeighbors":             "get neighbors",
	"GetNodeWithRelationships": "get node with relationships",
}

func operationVerb(operation string) string {
	if verb, ok := operationVerbs[operation]; ok {
		return verb
	}
	return operation
}
