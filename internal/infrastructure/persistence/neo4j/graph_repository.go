// Package neo4j implements the graph repository on top of a Neo4j database.
// It translates domain operations into Cypher and maps the records back; it
// never touches the cache.
package neo4j

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/xqvvu/yokg/internal/domain/graph"
	graphdb "github.com/xqvvu/yokg/internal/infrastructure/neo4j"
	"github.com/xqvvu/yokg/internal/repository"
)

// Executor runs managed transactions. *graphdb.Client satisfies it.
type Executor interface {
	ExecuteRead(ctx context.Context, work neo4j.ManagedTransactionWork) (any, error)
	ExecuteWrite(ctx context.Context, work neo4j.ManagedTransactionWork) (any, error)
	Health(ctx context.Context) error
}

// GraphRepository implements repository.GraphRepository using Neo4j.
type GraphRepository struct {
	client Executor
	logger *zap.Logger
	now    func() time.Time
}

var (
	_ repository.GraphRepository = (*GraphRepository)(nil)
	_ repository.HealthChecker   = (*GraphRepository)(nil)
	_ Executor                   = (*graphdb.Client)(nil)
)

// NewGraphRepository creates a repository over client.
func NewGraphRepository(client Executor, logger *zap.Logger) *GraphRepository {
	return &GraphRepository{
		client: client,
		logger: logger.Named("graph-repository"),
		now:    time.Now,
	}
}

// Health checks the database connection.
func (r *GraphRepository) Health(ctx context.Context) error {
	return r.client.Health(ctx)
}

func read[T any](ctx context.Context, r *GraphRepository, work func(tx neo4j.ManagedTransaction) (T, error)) (T, error) {
	out, err := r.client.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return work(tx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out.(T), nil
}

func write[T any](ctx context.Context, r *GraphRepository, work func(tx neo4j.ManagedTransaction) (T, error)) (T, error) {
	out, err := r.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return work(tx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out.(T), nil
}

func collect(ctx context.Context, tx neo4j.ManagedTransaction, cypher string, params map[string]any) ([]*neo4j.Record, error) {
	result, err := tx.Run(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	return result.Collect(ctx)
}

func (r *GraphRepository) timestamp() string {
	return formatTime(r.now())
}

func queryError(operation string, err error) error {
	if err == nil {
		return nil
	}
	if repository.IsNotFound(err) || repository.IsEndpointNotFound(err) {
		return err
	}
	if neo4j.IsRetryable(err) {
		return repository.ErrTransient{Operation: operation, Err: err}
	}
	return fmt.Errorf("%s: %w", operation, err)
}

// Node operations

func (r *GraphRepository) CreateNode(ctx context.Context, label string, props graph.Properties) (*graph.Node, error) {
	const op = "CreateNode"
	if err := graphdb.ValidateIdentifier("label", label); err != nil {
		return nil, err
	}

	now := r.timestamp()
	params := map[string]any{
		"props": writeProps(props, map[string]any{
			graph.FieldID:        uuid.NewString(),
			graph.FieldCreatedAt: now,
			graph.FieldUpdatedAt: now,
		}),
	}
	cypher := fmt.Sprintf("CREATE (n:%s) SET n = $props RETURN n", graphdb.QuoteIdentifier(label))

	node, err := write(ctx, r, func(tx neo4j.ManagedTransaction) (*graph.Node, error) {
		records, err := collect(ctx, tx, cypher, params)
		if err != nil {
			return nil, err
		}
		if len(records) != 1 {
			return nil, repository.ErrUnexpectedResult{Operation: op, Reason: "no node returned"}
		}
		n, err := toNode(op, get(records[0], "n"))
		if err != nil {
			return nil, err
		}
		return &n, nil
	})
	if err != nil {
		return nil, queryError(op, err)
	}

	r.logger.Debug("Created node", zap.String("node_id", node.ID), zap.String("label", label))
	return node, nil
}

func (r *GraphRepository) FindNodeByID(ctx context.Context, id string) (*graph.Node, bool, error) {
	const op = "FindNodeByID"
	node, err := read(ctx, r, func(tx neo4j.ManagedTransaction) (*graph.Node, error) {
		records, err := collect(ctx, tx, "MATCH (n {id: $id}) RETURN n LIMIT 1", map[string]any{"id": id})
		if err != nil || len(records) == 0 {
			return nil, err
		}
		n, err := toNode(op, get(records[0], "n"))
		if err != nil {
			return nil, err
		}
		return &n, nil
	})
	if err != nil {
		return nil, false, queryError(op, err)
	}
	return node, node != nil, nil
}

func (r *GraphRepository) FindNodes(ctx context.Context, filter graph.NodeFilter) ([]graph.Node, error) {
	const op = "FindNodes"
	filter = filter.WithDefaults()
	pattern, err := nodePattern("n", filter.Label)
	if err != nil {
		return nil, err
	}
	cypher := fmt.Sprintf(`MATCH %s
RETURN n
ORDER BY n.createdAt, n.id
SKIP $offset LIMIT $limit`, pattern)
	params := map[string]any{"offset": filter.Offset, "limit": filter.Limit}

	nodes, err := read(ctx, r, func(tx neo4j.ManagedTransaction) ([]graph.Node, error) {
		records, err := collect(ctx, tx, cypher, params)
		if err != nil {
			return nil, err
		}
		return nodesFromRecords(op, records, "n")
	})
	return nodes, queryError(op, err)
}

func (r *GraphRepository) CountNodes(ctx context.Context, filter graph.NodeFilter) (int64, error) {
	const op = "CountNodes"
	pattern, err := nodePattern("n", filter.Label)
	if err != nil {
		return 0, err
	}
	cypher := fmt.Sprintf("MATCH %s RETURN count(n) AS total", pattern)

	total, err := read(ctx, r, func(tx neo4j.ManagedTransaction) (int64, error) {
		records, err := collect(ctx, tx, cypher, nil)
		if err != nil {
			return 0, err
		}
		if len(records) != 1 {
			return 0, repository.ErrUnexpectedResult{Operation: op, Reason: "no count returned"}
		}
		n, ok := get(records[0], "total").(int64)
		if !ok {
			return 0, repository.ErrUnexpectedResult{Operation: op, Reason: "count is not an integer"}
		}
		return n, nil
	})
	return total, queryError(op, err)
}

// UpdateNode merges props into the stored map. A null value removes the key,
// which is what SET += does with nulls.
func (r *GraphRepository) UpdateNode(ctx context.Context, id string, props graph.Properties) (*graph.Node, error) {
	const op = "UpdateNode"
	params := map[string]any{
		"id":        id,
		"props":     props.ToAny(),
		"updatedAt": r.timestamp(),
	}
	const cypher = `MATCH (n {id: $id})
WITH n LIMIT 1
SET n += $props, n.updatedAt = $updatedAt
RETURN n`

	node, err := write(ctx, r, func(tx neo4j.ManagedTransaction) (*graph.Node, error) {
		records, err := collect(ctx, tx, cypher, params)
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			return nil, repository.NewNotFound(repository.ResourceNode, id)
		}
		n, err := toNode(op, get(records[0], "n"))
		if err != nil {
			return nil, err
		}
		return &n, nil
	})
	if err != nil {
		return nil, queryError(op, err)
	}
	return node, nil
}

// DeleteNode detach-deletes the node and reports its former neighbours.
func (r *GraphRepository) DeleteNode(ctx context.Context, id string) (graph.NodeDeletion, error) {
	const op = "DeleteNode"
	const cypher = `MATCH (n {id: $id})
OPTIONAL MATCH (n)--(m)
WITH n, collect(DISTINCT m.id) AS neighborIds
DETACH DELETE n
RETURN neighborIds`

	deletion, err := write(ctx, r, func(tx neo4j.ManagedTransaction) (graph.NodeDeletion, error) {
		records, err := collect(ctx, tx, cypher, map[string]any{"id": id})
		if err != nil {
			return graph.NodeDeletion{}, err
		}
		result := graph.NodeDeletion{Deleted: len(records) > 0, NeighborIDs: []string{}}
		seen := map[string]bool{id: true}
		for _, record := range records {
			ids, err := toList(op, "neighborIds", get(record, "neighborIds"))
			if err != nil {
				return graph.NodeDeletion{}, err
			}
			for _, raw := range ids {
				if s, ok := raw.(string); ok && !seen[s] {
					seen[s] = true
					result.NeighborIDs = append(result.NeighborIDs, s)
				}
			}
		}
		sort.Strings(result.NeighborIDs)
		return result, nil
	})
	return deletion, queryError(op, err)
}

func (r *GraphRepository) SearchNodes(ctx context.Context, search graph.NodeSearch) ([]graph.Node, error) {
	const op = "SearchNodes"
	search = search.WithDefaults()
	pattern, err := nodePattern("n", search.Label)
	if err != nil {
		return nil, err
	}
	conditions := make([]string, len(graph.SearchFields))
	for i, field := range graph.SearchFields {
		conditions[i] = fmt.Sprintf("n.%s CONTAINS $query", field)
	}
	cypher := fmt.Sprintf(`MATCH %s
WHERE %s
RETURN n
ORDER BY n.createdAt, n.id
LIMIT $limit`, pattern, strings.Join(conditions, " OR "))
	params := map[string]any{"query": search.Query, "limit": search.Limit}

	nodes, err := read(ctx, r, func(tx neo4j.ManagedTransaction) ([]graph.Node, error) {
		records, err := collect(ctx, tx, cypher, params)
		if err != nil {
			return nil, err
		}
		return nodesFromRecords(op, records, "n")
	})
	return nodes, queryError(op, err)
}

// Relationship operations

func (r *GraphRepository) CreateRelationship(ctx context.Context, relType, sourceID, targetID string, props graph.Properties) (*graph.Relationship, error) {
	const op = "CreateRelationship"
	if err := graphdb.ValidateIdentifier("relationship type", relType); err != nil {
		return nil, err
	}

	params := map[string]any{
		"sourceId": sourceID,
		"targetId": targetID,
		"props": writeProps(props, map[string]any{
			graph.FieldID:        uuid.NewString(),
			graph.FieldCreatedAt: r.timestamp(),
		}),
	}
	cypher := fmt.Sprintf(`MATCH (s {id: $sourceId}), (t {id: $targetId})
WITH s, t LIMIT 1
CREATE (s)-[r:%s]->(t)
SET r = $props
RETURN {rel: r, sourceId: s.id, targetId: t.id} AS edge`, graphdb.QuoteIdentifier(relType))

	rel, err := write(ctx, r, func(tx neo4j.ManagedTransaction) (*graph.Relationship, error) {
		records, err := collect(ctx, tx, cypher, params)
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			return nil, repository.ErrEndpointNotFound{SourceID: sourceID, TargetID: targetID}
		}
		rel, err := toEdge(op, get(records[0], "edge"))
		if err != nil {
			return nil, err
		}
		return &rel, nil
	})
	if err != nil {
		return nil, queryError(op, err)
	}
	return rel, nil
}

func (r *GraphRepository) FindRelationshipByID(ctx context.Context, id string) (*graph.Relationship, bool, error) {
	const op = "FindRelationshipByID"
	const cypher = `MATCH (s)-[r {id: $id}]->(t)
RETURN {rel: r, sourceId: s.id, targetId: t.id} AS edge
LIMIT 1`

	rel, err := read(ctx, r, func(tx neo4j.ManagedTransaction) (*graph.Relationship, error) {
		records, err := collect(ctx, tx, cypher, map[string]any{"id": id})
		if err != nil || len(records) == 0 {
			return nil, err
		}
		rel, err := toEdge(op, get(records[0], "edge"))
		if err != nil {
			return nil, err
		}
		return &rel, nil
	})
	if err != nil {
		return nil, false, queryError(op, err)
	}
	return rel, rel != nil, nil
}

func (r *GraphRepository) FindRelationships(ctx context.Context, nodeID string, filter graph.RelationshipFilter) ([]graph.Relationship, error) {
	const op = "FindRelationships"
	filter = filter.WithDefaults()
	pattern, err := incidentPattern(filter.Type, filter.Direction)
	if err != nil {
		return nil, err
	}
	cypher := fmt.Sprintf(`MATCH %s
RETURN DISTINCT {rel: r, sourceId: startNode(r).id, targetId: endNode(r).id} AS edge, r.createdAt AS createdAt
ORDER BY createdAt`, pattern)

	rels, err := read(ctx, r, func(tx neo4j.ManagedTransaction) ([]graph.Relationship, error) {
		records, err := collect(ctx, tx, cypher, map[string]any{"nodeId": nodeID})
		if err != nil {
			return nil, err
		}
		acc := graph.NewAccumulator()
		for _, record := range records {
			rel, err := toEdge(op, get(record, "edge"))
			if err != nil {
				return nil, err
			}
			acc.AddRelationship(rel)
		}
		return acc.Relationships(), nil
	})
	return rels, queryError(op, err)
}

// DeleteRelationship removes one edge and returns it. Endpoints are kept.
func (r *GraphRepository) DeleteRelationship(ctx context.Context, id string) (*graph.Relationship, bool, error) {
	const op = "DeleteRelationship"
	// a deleted relationship cannot be returned, so project it first
	const cypher = `MATCH (s)-[r {id: $id}]->(t)
WITH r, type(r) AS relType, properties(r) AS relProps, s.id AS sourceId, t.id AS targetId
LIMIT 1
DELETE r
RETURN relType, relProps, sourceId, targetId`

	rel, err := write(ctx, r, func(tx neo4j.ManagedTransaction) (*graph.Relationship, error) {
		records, err := collect(ctx, tx, cypher, map[string]any{"id": id})
		if err != nil || len(records) == 0 {
			return nil, err
		}
		record := records[0]
		relType, _ := get(record, "relType").(string)
		props, _ := get(record, "relProps").(map[string]any)
		sourceID, _ := get(record, "sourceId").(string)
		targetID, _ := get(record, "targetId").(string)
		rel, err := toRelationship(op, relType, props, sourceID, targetID)
		if err != nil {
			return nil, err
		}
		return &rel, nil
	})
	if err != nil {
		return nil, false, queryError(op, err)
	}
	return rel, rel != nil, nil
}

// Traversals

// FindGraph scans up to filter.Limit nodes with their outgoing edges and the
// nodes at the far end. The same node or edge can appear on several rows;
// the accumulator keeps the first.
func (r *GraphRepository) FindGraph(ctx context.Context, filter graph.GraphFilter) (graph.Graph, error) {
	const op = "FindGraph"
	filter = filter.WithDefaults()
	for _, label := range filter.Labels {
		if err := graphdb.ValidateIdentifier("label", label); err != nil {
			return graph.Graph{}, err
		}
	}
	cypher := fmt.Sprintf(`MATCH (n%s)
WITH n ORDER BY n.createdAt, n.id LIMIT $limit
OPTIONAL MATCH (n)-[r]->(m)
RETURN n, collect(CASE WHEN r IS NULL THEN null ELSE {rel: r, target: m, sourceId: n.id, targetId: m.id} END) AS edges`,
		graphdb.LabelExpression(filter.Labels))

	g, err := read(ctx, r, func(tx neo4j.ManagedTransaction) (graph.Graph, error) {
		records, err := collect(ctx, tx, cypher, map[string]any{"limit": filter.Limit})
		if err != nil {
			return graph.Graph{}, err
		}
		acc := graph.NewAccumulator()
		for _, record := range records {
			n, err := toNode(op, get(record, "n"))
			if err != nil {
				return graph.Graph{}, err
			}
			acc.AddNode(n)

			edges, err := toList(op, "edges", get(record, "edges"))
			if err != nil {
				return graph.Graph{}, err
			}
			for _, raw := range edges {
				rel, err := toEdge(op, raw)
				if err != nil {
					return graph.Graph{}, err
				}
				target, err := toNode(op, raw.(map[string]any)["target"])
				if err != nil {
					return graph.Graph{}, err
				}
				acc.AddNode(target)
				acc.AddRelationship(rel)
			}
		}
		return acc.Graph(), nil
	})
	return g, queryError(op, err)
}

// FindSubgraph collects every node and edge on an undirected path of at most
// depth hops from nodeID. An unknown center yields an empty subgraph.
func (r *GraphRepository) FindSubgraph(ctx context.Context, nodeID string, depth int) (graph.Subgraph, error) {
	const op = "FindSubgraph"
	hops, err := graphdb.DepthRange(1, graph.MaxDepth, depth)
	if err != nil {
		return graph.Subgraph{}, err
	}
	cypher := fmt.Sprintf(`MATCH (start {id: $nodeId})
WITH start LIMIT 1
OPTIONAL MATCH path = (start)-[%s]-()
WITH start, collect(path) AS paths
RETURN start,
  reduce(ns = [], p IN paths | ns + nodes(p)) AS nodes,
  [rel IN reduce(rs = [], p IN paths | rs + relationships(p)) |
    {rel: rel, sourceId: startNode(rel).id, targetId: endNode(rel).id}] AS edges`, hops)

	g, err := read(ctx, r, func(tx neo4j.ManagedTransaction) (graph.Graph, error) {
		records, err := collect(ctx, tx, cypher, map[string]any{"nodeId": nodeID})
		if err != nil {
			return graph.Graph{}, err
		}
		acc := graph.NewAccumulator()
		if len(records) == 0 {
			return acc.Graph(), nil
		}
		record := records[0]

		start, err := toNode(op, get(record, "start"))
		if err != nil {
			return graph.Graph{}, err
		}
		acc.AddNode(start)

		nodes, err := toList(op, "nodes", get(record, "nodes"))
		if err != nil {
			return graph.Graph{}, err
		}
		for _, raw := range nodes {
			n, err := toNode(op, raw)
			if err != nil {
				return graph.Graph{}, err
			}
			acc.AddNode(n)
		}

		edges, err := toList(op, "edges", get(record, "edges"))
		if err != nil {
			return graph.Graph{}, err
		}
		for _, raw := range edges {
			rel, err := toEdge(op, raw)
			if err != nil {
				return graph.Graph{}, err
			}
			acc.AddRelationship(rel)
		}
		return acc.Graph(), nil
	})
	if err != nil {
		return graph.Subgraph{}, queryError(op, err)
	}
	return graph.Subgraph{Graph: g, Depth: depth, CenterNodeID: nodeID}, nil
}

// FindNeighbors returns the one-hop neighbourhood. A missing center is
// reported as ErrNotFound so callers can tell it from an isolated node.
func (r *GraphRepository) FindNeighbors(ctx context.Context, nodeID string, query graph.NeighborQuery) (graph.NodeNeighbors, error) {
	const op = "FindNeighbors"
	query = query.WithDefaults()
	relPattern, err := relationshipPattern("r", query.RelationshipType, query.Direction)
	if err != nil {
		return graph.NodeNeighbors{}, err
	}
	cypher := fmt.Sprintf(`MATCH (center {id: $nodeId})
WITH center LIMIT 1
OPTIONAL MATCH (center)%s(neighbor)
RETURN center,
  collect(CASE WHEN r IS NULL THEN null ELSE
    {rel: r, neighbor: neighbor, sourceId: startNode(r).id, targetId: endNode(r).id} END) AS edges`, relPattern)

	result, err := read(ctx, r, func(tx neo4j.ManagedTransaction) (graph.NodeNeighbors, error) {
		records, err := collect(ctx, tx, cypher, map[string]any{"nodeId": nodeID})
		if err != nil {
			return graph.NodeNeighbors{}, err
		}
		if len(records) == 0 {
			return graph.NodeNeighbors{}, repository.NewNotFound(repository.ResourceNode, nodeID)
		}
		record := records[0]

		center, err := toNode(op, get(record, "center"))
		if err != nil {
			return graph.NodeNeighbors{}, err
		}
		edges, err := toList(op, "edges", get(record, "edges"))
		if err != nil {
			return graph.NodeNeighbors{}, err
		}

		acc := graph.NewAccumulator()
		for _, raw := range edges {
			rel, err := toEdge(op, raw)
			if err != nil {
				return graph.NodeNeighbors{}, err
			}
			acc.AddRelationship(rel)
			if rel.Other(nodeID) == nodeID {
				continue
			}
			neighbor, err := toNode(op, raw.(map[string]any)["neighbor"])
			if err != nil {
				return graph.NodeNeighbors{}, err
			}
			acc.AddNode(neighbor)
		}
		return graph.NodeNeighbors{
			Center:        center,
			Neighbors:     acc.Nodes(),
			Relationships: acc.Relationships(),
		}, nil
	})
	return result, queryError(op, err)
}

func (r *GraphRepository) FindNodeWithRelationships(ctx context.Context, nodeID string) (*graph.NodeWithRelationships, bool, error) {
	const op = "FindNodeWithRelationships"
	const cypher = `MATCH (n {id: $nodeId})
WITH n LIMIT 1
OPTIONAL MATCH (n)-[o]->(target)
WITH n, collect(CASE WHEN o IS NULL THEN null ELSE {rel: o, other: target, sourceId: n.id, targetId: target.id} END) AS outgoing
OPTIONAL MATCH (n)<-[i]-(source)
RETURN n, outgoing,
  collect(CASE WHEN i IS NULL THEN null ELSE {rel: i, other: source, sourceId: source.id, targetId: n.id} END) AS incoming`

	result, err := read(ctx, r, func(tx neo4j.ManagedTransaction) (*graph.NodeWithRelationships, error) {
		records, err := collect(ctx, tx, cypher, map[string]any{"nodeId": nodeID})
		if err != nil || len(records) == 0 {
			return nil, err
		}
		record := records[0]

		n, err := toNode(op, get(record, "n"))
		if err != nil {
			return nil, err
		}
		out := &graph.NodeWithRelationships{
			Node: n,
			Relationships: graph.IncidentEdges{
				Outgoing: []graph.OutgoingEdge{},
				Incoming: []graph.IncomingEdge{},
			},
		}

		outgoing, err := toList(op, "outgoing", get(record, "outgoing"))
		if err != nil {
			return nil, err
		}
		for _, raw := range outgoing {
			rel, other, err := edgeWithEndpoint(op, raw)
			if err != nil {
				return nil, err
			}
			out.Relationships.Outgoing = append(out.Relationships.Outgoing, graph.OutgoingEdge{Relationship: rel, Target: other})
		}

		incoming, err := toList(op, "incoming", get(record, "incoming"))
		if err != nil {
			return nil, err
		}
		for _, raw := range incoming {
			rel, other, err := edgeWithEndpoint(op, raw)
			if err != nil {
				return nil, err
			}
			out.Relationships.Incoming = append(out.Relationships.Incoming, graph.IncomingEdge{Relationship: rel, Source: other})
		}
		return out, nil
	})
	if err != nil {
		return nil, false, queryError(op, err)
	}
	return result, result != nil, nil
}

// Helpers

func edgeWithEndpoint(op string, raw any) (graph.Relationship, graph.EdgeEndpoint, error) {
	rel, err := toEdge(op, raw)
	if err != nil {
		return graph.Relationship{}, graph.EdgeEndpoint{}, err
	}
	other, err := toNode(op, raw.(map[string]any)["other"])
	if err != nil {
		return graph.Relationship{}, graph.EdgeEndpoint{}, err
	}
	return rel, other.Endpoint(), nil
}

func nodesFromRecords(op string, records []*neo4j.Record, key string) ([]graph.Node, error) {
	nodes := make([]graph.Node, 0, len(records))
	for _, record := range records {
		n, err := toNode(op, get(record, key))
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// nodePattern renders "(n)" or "(n:`Label`)".
func nodePattern(variable, label string) (string, error) {
	if label == "" {
		return "(" + variable + ")", nil
	}
	if err := graphdb.ValidateIdentifier("label", label); err != nil {
		return "", err
	}
	return fmt.Sprintf("(%s:%s)", variable, graphdb.QuoteIdentifier(label)), nil
}

// relationshipPattern renders the arrow between two node patterns, for
// example "-[r:`KNOWS`]->".
func relationshipPattern(variable, relType string, direction graph.Direction) (string, error) {
	inner := variable
	if relType != "" {
		if err := graphdb.ValidateIdentifier("relationship type", relType); err != nil {
			return "", err
		}
		inner += ":" + graphdb.QuoteIdentifier(relType)
	}
	switch direction {
	case graph.DirectionOutgoing:
		return "-[" + inner + "]->", nil
	case graph.DirectionIncoming:
		return "<-[" + inner + "]-", nil
	case graph.DirectionBoth, "":
		return "-[" + inner + "]-", nil
	default:
		return "", fmt.Errorf("unknown direction %q", direction)
	}
}

func incidentPattern(relType string, direction graph.Direction) (string, error) {
	rel, err := relationshipPattern("r", relType, direction)
	if err != nil {
		return "", err
	}
	return "(n {id: $nodeId})" + rel + "()", nil
}
