package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xqvvu/yokg/internal/domain/graph"
	appErrors "github.com/xqvvu/yokg/internal/errors"
	"github.com/xqvvu/yokg/internal/infrastructure/cache"
	"github.com/xqvvu/yokg/internal/infrastructure/observability"
	"github.com/xqvvu/yokg/internal/infrastructure/persistence/memory"
	"github.com/xqvvu/yokg/internal/repository"
)

// spyStore records every key the service touches.
type spyStore struct {
	cache.Store

	mu      sync.Mutex
	gets    []string
	sets    []string
	deletes []string
}

func (s *spyStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	s.gets = append(s.gets, key)
	s.mu.Unlock()
	return s.Store.Get(ctx, key)
}

func (s *spyStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	s.sets = append(s.sets, key)
	s.mu.Unlock()
	return s.Store.Set(ctx, key, value, ttl)
}

func (s *spyStore) Delete(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	s.deletes = append(s.deletes, keys...)
	s.mu.Unlock()
	return s.Store.Delete(ctx, keys...)
}

func (s *spyStore) touched(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, list := range [][]string{s.gets, s.sets, s.deletes} {
		for _, k := range list {
			if k == key {
				return true
			}
		}
	}
	return false
}

func (s *spyStore) cached(t *testing.T, key string) bool {
	t.Helper()
	_, found, err := s.Store.Get(context.Background(), key)
	require.NoError(t, err)
	return found
}

// failingStore fails every operation.
type failingStore struct{ cache.NoopStore }

var errCacheDown = errors.New("cache down")

func (failingStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errCacheDown
}

func (failingStore) Set(context.Context, string, []byte, time.Duration) error {
	return errCacheDown
}

func (failingStore) Delete(context.Context, ...string) error {
	return errCacheDown
}

func (failingStore) Ping(context.Context) error {
	return errCacheDown
}

type fixture struct {
	svc     *GraphService
	repo    *memory.GraphRepository
	store   *spyStore
	keys    cache.Keys
	metrics *observability.Collector
}

type fixtureOptions struct {
	store  cache.Store
	wrap   func(repository.GraphRepository) repository.GraphRepository
	logger *zap.Logger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWith(t, fixtureOptions{})
}

func newFixtureWithStore(t *testing.T, store cache.Store) *fixture {
	t.Helper()
	return newFixtureWith(t, fixtureOptions{store: store})
}

func newFixtureWith(t *testing.T, opts fixtureOptions) *fixture {
	t.Helper()
	if opts.store == nil {
		opts.store = cache.NewMemoryStore(cache.MemoryOptions{}, zap.NewNop())
	}
	if opts.logger == nil {
		opts.logger = zap.NewNop()
	}
	repo := memory.NewGraphRepository(nil)
	var graphRepo repository.GraphRepository = repo
	if opts.wrap != nil {
		graphRepo = opts.wrap(repo)
	}
	spy := &spyStore{Store: opts.store}
	keys := cache.NewKeys("test")
	metrics := observability.NewCollector("test")

	svc, err := NewGraphService(GraphServiceDeps{
		Repository: graphRepo,
		Cache:      spy,
		Keys:       keys,
		Policy:     DefaultCachePolicy(),
		Metrics:    metrics,
		Logger:     opts.logger,
	})
	require.NoError(t, err)
	t.Cleanup(svc.Drain)

	return &fixture{svc: svc, repo: repo, store: spy, keys: keys, metrics: metrics}
}

func (f *fixture) createNode(t *testing.T, label, name string) *graph.Node {
	t.Helper()
	node, err := f.svc.CreateNode(context.Background(), graph.CreateNodeInput{
		Label:      label,
		Properties: graph.Properties{"name": graph.String(name)},
	})
	require.NoError(t, err)
	return node
}

func (f *fixture) relate(t *testing.T, relType string, source, target *graph.Node) *graph.Relationship {
	t.Helper()
	rel, err := f.svc.CreateRelationship(context.Background(), graph.CreateRelationshipInput{
		Type:     relType,
		SourceID: source.ID,
		TargetID: target.ID,
	})
	require.NoError(t, err)
	return rel
}

func assertSameNode(t *testing.T, want, got *graph.Node) {
	t.Helper()
	require.NotNil(t, got)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Label, got.Label)
	assert.True(t, want.Properties.Equal(got.Properties), "properties differ: %v vs %v", want.Properties, got.Properties)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt))
	assert.True(t, want.UpdatedAt.Equal(got.UpdatedAt))
}

func TestGraphService_CreateThenGet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created := f.createNode(t, "Person", "Ada")
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Ada", created.Name())
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)

	first, err := f.svc.GetNodeByID(ctx, created.ID)
	require.NoError(t, err)
	assertSameNode(t, created, first)
	f.svc.Drain()
	assert.True(t, f.store.cached(t, f.keys.Node(created.ID)))

	second, err := f.svc.GetNodeByID(ctx, created.ID)
	require.NoError(t, err)
	assertSameNode(t, created, second)
	assert.Equal(t, 1, f.repo.Calls("FindNodeByID"), "second read must come from the cache")
}

func TestGraphService_GetNode_NotFoundIsNotCached(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := "8d3f1c2a-1111-4c4c-9a9a-000000000001"

	_, err := f.svc.GetNodeByID(ctx, id)
	require.Error(t, err)
	assert.True(t, appErrors.IsNotFound(err))
	f.svc.Drain()
	assert.False(t, f.store.cached(t, f.keys.Node(id)))

	_, err = f.svc.GetNodeByID(ctx, id)
	assert.True(t, appErrors.IsNotFound(err))
	assert.Equal(t, 2, f.repo.Calls("FindNodeByID"))
}

func TestGraphService_UpdateInvalidatesNode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	node := f.createNode(t, "Person", "Ada")

	_, err := f.svc.GetNodeByID(ctx, node.ID)
	require.NoError(t, err)
	f.svc.Drain()
	require.True(t, f.store.cached(t, f.keys.Node(node.ID)))

	updated, err := f.svc.UpdateNode(ctx, node.ID, graph.UpdateNodeInput{
		Properties: graph.Properties{"name": graph.String("Ada Lovelace"), "field": graph.String("math")},
	})
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", updated.Name())
	assert.False(t, f.store.cached(t, f.keys.Node(node.ID)))

	got, err := f.svc.GetNodeByID(ctx, node.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", got.Name())
	field, _ := got.Properties.Text("field")
	assert.Equal(t, "math", field)
}

func TestGraphService_UpdateMissingNode(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.UpdateNode(context.Background(), "8d3f1c2a-1111-4c4c-9a9a-000000000002", graph.UpdateNodeInput{
		Properties: graph.Properties{"name": graph.String("x")},
	})
	require.Error(t, err)
	assert.True(t, appErrors.IsNotFound(err))
}

func TestGraphService_RelationshipInvalidatesBothEndpoints(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.createNode(t, "Person", "A")
	b := f.createNode(t, "Person", "B")

	for _, n := range []*graph.Node{a, b} {
		neighbors, err := f.svc.GetNeighbors(ctx, n.ID, graph.NeighborQuery{})
		require.NoError(t, err)
		assert.Empty(t, neighbors.Neighbors)
	}
	f.svc.Drain()
	require.True(t, f.store.cached(t, f.keys.Neighbors(a.ID)))
	require.True(t, f.store.cached(t, f.keys.Neighbors(b.ID)))

	rel := f.relate(t, "KNOWS", a, b)
	assert.False(t, f.store.cached(t, f.keys.Neighbors(a.ID)))
	assert.False(t, f.store.cached(t, f.keys.Neighbors(b.ID)))

	for _, tc := range []struct{ center, other *graph.Node }{{a, b}, {b, a}} {
		neighbors, err := f.svc.GetNeighbors(ctx, tc.center.ID, graph.NeighborQuery{})
		require.NoError(t, err)
		require.Len(t, neighbors.Neighbors, 1)
		assert.Equal(t, tc.other.ID, neighbors.Neighbors[0].ID)
		require.Len(t, neighbors.Relationships, 1)
		assert.Equal(t, rel.ID, neighbors.Relationships[0].ID)
	}
	f.svc.Drain()

	require.NoError(t, f.svc.DeleteRelationship(ctx, rel.ID))
	assert.False(t, f.store.cached(t, f.keys.Neighbors(a.ID)))
	assert.False(t, f.store.cached(t, f.keys.Neighbors(b.ID)))

	neighbors, err := f.svc.GetNeighbors(ctx, a.ID, graph.NeighborQuery{})
	require.NoError(t, err)
	assert.Empty(t, neighbors.Neighbors)
}

func TestGraphService_FilteredNeighborsBypassCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.createNode(t, "Person", "A")
	b := f.createNode(t, "Person", "B")
	f.relate(t, "KNOWS", a, b)

	queries := []graph.NeighborQuery{
		{RelationshipType: "KNOWS"},
		{Direction: graph.DirectionOutgoing},
		{RelationshipType: "KNOWS", Direction: graph.DirectionIncoming},
	}
	for _, q := range queries {
		_, err := f.svc.GetNeighbors(ctx, a.ID, q)
		require.NoError(t, err)
	}
	f.svc.Drain()

	key := f.keys.Neighbors(a.ID)
	f.store.mu.Lock()
	gets, sets := append([]string(nil), f.store.gets...), append([]string(nil), f.store.sets...)
	f.store.mu.Unlock()
	assert.NotContains(t, gets, key)
	assert.NotContains(t, sets, key)
	assert.Equal(t, len(queries), f.repo.Calls("FindNeighbors"))

	outgoing, err := f.svc.GetNeighbors(ctx, b.ID, graph.NeighborQuery{Direction: graph.DirectionOutgoing})
	require.NoError(t, err)
	assert.Empty(t, outgoing.Neighbors)
}

func TestGraphService_GetNeighbors_MissingCenter(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.GetNeighbors(context.Background(), "8d3f1c2a-1111-4c4c-9a9a-000000000003", graph.NeighborQuery{})
	require.Error(t, err)
	assert.True(t, appErrors.IsNotFound(err))
}

func TestGraphService_DeleteNode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ada := f.createNode(t, "Person", "Ada")
	bob := f.createNode(t, "Person", "Bob")
	f.relate(t, "KNOWS", ada, bob)

	_, err := f.svc.GetNodeByID(ctx, ada.ID)
	require.NoError(t, err)
	_, err = f.svc.GetNeighbors(ctx, bob.ID, graph.NeighborQuery{})
	require.NoError(t, err)
	_, err = f.svc.GetSubgraph(ctx, graph.SubgraphQuery{NodeID: bob.ID, Depth: 2})
	require.NoError(t, err)
	f.svc.Drain()

	require.NoError(t, f.svc.DeleteNode(ctx, ada.ID))

	// the neighbour's views listed the deleted node and must go too
	assert.False(t, f.store.cached(t, f.keys.Node(ada.ID)))
	assert.False(t, f.store.cached(t, f.keys.Neighbors(bob.ID)))
	assert.False(t, f.store.cached(t, f.keys.Subgraph(bob.ID, 2)))

	_, err = f.svc.GetNodeByID(ctx, ada.ID)
	require.Error(t, err)
	assert.True(t, appErrors.IsNotFound(err))

	neighbors, err := f.svc.GetNeighbors(ctx, bob.ID, graph.NeighborQuery{})
	require.NoError(t, err)
	assert.Empty(t, neighbors.Neighbors)

	// deleting again is not an error and still invalidates
	f.store.mu.Lock()
	f.store.deletes = nil
	f.store.mu.Unlock()
	require.NoError(t, f.svc.DeleteNode(ctx, ada.ID))
	assert.True(t, f.store.touched(f.keys.Node(ada.ID)))
}

func TestGraphService_Subgraph(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.createNode(t, "Concept", "A")
	b := f.createNode(t, "Concept", "B")
	c := f.createNode(t, "Concept", "C")
	d := f.createNode(t, "Concept", "D")
	f.relate(t, "NEXT", a, b)
	f.relate(t, "NEXT", b, c)
	f.relate(t, "NEXT", c, d)

	ids := func(sub graph.Subgraph) []string {
		out := []string{}
		for _, n := range sub.Nodes {
			out = append(out, n.ID)
		}
		return out
	}

	one, err := f.svc.GetSubgraph(ctx, graph.SubgraphQuery{NodeID: a.ID, Depth: 1})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a.ID, b.ID}, ids(one))
	assert.Equal(t, 1, one.Depth)
	assert.Equal(t, a.ID, one.CenterNodeID)

	two, err := f.svc.GetSubgraph(ctx, graph.SubgraphQuery{NodeID: a.ID, Depth: 2})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a.ID, b.ID, c.ID}, ids(two))
	f.svc.Drain()

	assert.True(t, f.store.cached(t, f.keys.Subgraph(a.ID, 1)))
	assert.True(t, f.store.cached(t, f.keys.Subgraph(a.ID, 2)))

	cached, err := f.svc.GetSubgraph(ctx, graph.SubgraphQuery{NodeID: a.ID, Depth: 2})
	require.NoError(t, err)
	assert.ElementsMatch(t, ids(two), ids(cached))
	assert.Equal(t, 2, f.repo.Calls("FindSubgraph"))

	defaulted, err := f.svc.GetSubgraph(ctx, graph.SubgraphQuery{NodeID: a.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, defaulted.Depth)

	unknown, err := f.svc.GetSubgraph(ctx, graph.SubgraphQuery{NodeID: "8d3f1c2a-1111-4c4c-9a9a-000000000004", Depth: 2})
	require.NoError(t, err)
	assert.Empty(t, unknown.Nodes)
}

func TestGraphService_ValidationHappensFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	validID := "8d3f1c2a-1111-4c4c-9a9a-000000000005"

	tests := []struct {
		name string
		call func() error
	}{
		{"node id not uuid", func() error { _, err := f.svc.GetNodeByID(ctx, "nope"); return err }},
		{"empty label", func() error {
			_, err := f.svc.CreateNode(ctx, graph.CreateNodeInput{})
			return err
		}},
		{"reserved property", func() error {
			_, err := f.svc.CreateNode(ctx, graph.CreateNodeInput{Label: "X", Properties: graph.Properties{"id": graph.String("mine")}})
			return err
		}},
		{"nested map property", func() error {
			_, err := f.svc.CreateNode(ctx, graph.CreateNodeInput{Label: "X", Properties: graph.Properties{
				"meta": graph.Map(map[string]graph.Value{"a": graph.Int(1)}),
			}})
			return err
		}},
		{"update without properties", func() error {
			_, err := f.svc.UpdateNode(ctx, validID, graph.UpdateNodeInput{})
			return err
		}},
		{"limit too large", func() error {
			_, err := f.svc.ListNodes(ctx, graph.NodeFilter{Limit: 5000})
			return err
		}},
		{"negative offset", func() error {
			_, err := f.svc.ListNodes(ctx, graph.NodeFilter{Offset: -1})
			return err
		}},
		{"depth too deep", func() error {
			_, err := f.svc.GetSubgraph(ctx, graph.SubgraphQuery{NodeID: validID, Depth: 4})
			return err
		}},
		{"bad direction", func() error {
			_, err := f.svc.GetNeighbors(ctx, validID, graph.NeighborQuery{Direction: "sideways"})
			return err
		}},
		{"relationship endpoint not uuid", func() error {
			_, err := f.svc.CreateRelationship(ctx, graph.CreateRelationshipInput{Type: "KNOWS", SourceID: "a", TargetID: validID})
			return err
		}},
		{"empty search", func() error {
			_, err := f.svc.SearchNodes(ctx, graph.NodeSearch{})
			return err
		}},
		{"graph limit too large", func() error {
			_, err := f.svc.GetGraph(ctx, graph.GraphFilter{Limit: 1001})
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)
			assert.True(t, appErrors.IsValidation(err), "got %v", err)
		})
	}

	for _, method := range []string{"FindNodeByID", "CreateNode", "UpdateNode", "FindNodes", "FindSubgraph", "FindNeighbors", "CreateRelationship", "SearchNodes", "FindGraph"} {
		assert.Zero(t, f.repo.Calls(method), method)
	}
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	assert.Empty(t, f.store.gets)
}

func TestGraphService_CreateRelationship_EndpointMissing(t *testing.T) {
	f := newFixture(t)
	a := f.createNode(t, "Person", "A")

	_, err := f.svc.CreateRelationship(context.Background(), graph.CreateRelationshipInput{
		Type:     "KNOWS",
		SourceID: a.ID,
		TargetID: "8d3f1c2a-1111-4c4c-9a9a-000000000006",
	})
	require.Error(t, err)
	assert.True(t, appErrors.IsEndpointNotFound(err))
}

func TestGraphService_DeleteRelationship_NotFound(t *testing.T) {
	f := newFixture(t)
	err := f.svc.DeleteRelationship(context.Background(), "8d3f1c2a-1111-4c4c-9a9a-000000000007")
	require.Error(t, err)
	assert.True(t, appErrors.IsNotFound(err))
}

func TestGraphService_RelationshipQueries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.createNode(t, "Person", "A")
	b := f.createNode(t, "Document", "B")
	rel := f.relate(t, "WROTE", a, b)

	got, err := f.svc.GetRelationshipByID(ctx, rel.ID)
	require.NoError(t, err)
	assert.Equal(t, "WROTE", got.Type)

	outgoing, err := f.svc.ListRelationships(ctx, a.ID, graph.RelationshipFilter{Direction: graph.DirectionOutgoing})
	require.NoError(t, err)
	assert.Len(t, outgoing, 1)

	incoming, err := f.svc.ListRelationships(ctx, a.ID, graph.RelationshipFilter{Direction: graph.DirectionIncoming})
	require.NoError(t, err)
	assert.Empty(t, incoming)

	withRels, err := f.svc.GetNodeWithRelationships(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, withRels.Relationships.Incoming, 1)
	assert.Equal(t, graph.EdgeEndpoint{ID: a.ID, Label: "Person", Name: "A"}, withRels.Relationships.Incoming[0].Source)
	assert.Empty(t, withRels.Relationships.Outgoing)

	_, err = f.svc.GetNodeWithRelationships(ctx, "8d3f1c2a-1111-4c4c-9a9a-000000000008")
	assert.True(t, appErrors.IsNotFound(err))

	_, err = f.svc.GetRelationshipByID(ctx, "8d3f1c2a-1111-4c4c-9a9a-000000000009")
	assert.True(t, appErrors.IsNotFound(err))
}

func TestGraphService_ListGraphAndSearch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.createNode(t, "Person", "Ada Lovelace")
	b := f.createNode(t, "Person", "Charles Babbage")
	c := f.createNode(t, "Topic", "Analytical Engine")
	f.relate(t, "KNOWS", a, b)
	f.relate(t, "WORKED_ON", a, c)
	f.relate(t, "WORKED_ON", b, c)

	page, err := f.svc.ListNodes(ctx, graph.NodeFilter{Label: "Person", Limit: 1})
	require.NoError(t, err)
	assert.Len(t, page.Nodes, 1)
	assert.Equal(t, graph.Pagination{Total: 2, Limit: 1, Offset: 0}, page.Pagination)

	all, err := f.svc.ListNodes(ctx, graph.NodeFilter{})
	require.NoError(t, err)
	assert.Equal(t, graph.DefaultNodeLimit, all.Pagination.Limit)
	assert.Equal(t, int64(3), all.Pagination.Total)

	g, err := f.svc.GetGraph(ctx, graph.GraphFilter{})
	require.NoError(t, err)
	assert.Len(t, g.Nodes, 3)
	assert.Len(t, g.Relationships, 3)

	found, err := f.svc.SearchNodes(ctx, graph.NodeSearch{Query: "Engine"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, c.ID, found[0].ID)
}

func TestGraphService_RepositoryFailureIsSanitized(t *testing.T) {
	f := newFixture(t)
	f.repo.SetError("FindNodes", errors.New("Neo.ClientError.Statement.SyntaxError: MATCH (n:`Secret`)"))

	_, err := f.svc.ListNodes(context.Background(), graph.NodeFilter{})
	require.Error(t, err)
	assert.True(t, appErrors.IsQueryFailed(err))

	unified, ok := appErrors.As(err)
	require.True(t, ok)
	assert.Equal(t, "internal server error", unified.PublicMessage())
	assert.Equal(t, "failed to list nodes", unified.Message)
	assert.NotContains(t, unified.Message, "MATCH")
}

func TestGraphService_CacheFailuresAreSwallowed(t *testing.T) {
	f := newFixtureWithStore(t, failingStore{})
	ctx := context.Background()

	node := f.createNode(t, "Person", "Ada")
	got, err := f.svc.GetNodeByID(ctx, node.ID)
	require.NoError(t, err)
	assert.Equal(t, node.ID, got.ID)

	_, err = f.svc.UpdateNode(ctx, node.ID, graph.UpdateNodeInput{Properties: graph.Properties{"age": graph.Int(36)}})
	require.NoError(t, err)
	require.NoError(t, f.svc.DeleteNode(ctx, node.ID))

	report := f.svc.Health(ctx)
	assert.True(t, report.Healthy())
	assert.Equal(t, "unavailable", report.Cache)
}

// blockingStore holds every Set until release is closed.
type blockingStore struct {
	cache.Store
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *blockingStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.once.Do(func() { close(s.entered) })
	<-s.release
	return s.Store.Set(ctx, key, value, ttl)
}

func TestGraphService_LateCacheWriteDoesNotResurrectStaleValue(t *testing.T) {
	blocking := &blockingStore{
		Store:   cache.NewMemoryStore(cache.MemoryOptions{}, zap.NewNop()),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	f := newFixtureWithStore(t, blocking)
	ctx := context.Background()
	node := f.createNode(t, "Person", "Ada")

	_, err := f.svc.GetNodeByID(ctx, node.ID)
	require.NoError(t, err)
	<-blocking.entered

	_, err = f.svc.UpdateNode(ctx, node.ID, graph.UpdateNodeInput{Properties: graph.Properties{"name": graph.String("Grace")}})
	require.NoError(t, err)

	close(blocking.release)
	f.svc.Drain()

	assert.False(t, f.store.cached(t, f.keys.Node(node.ID)))
	got, err := f.svc.GetNodeByID(ctx, node.ID)
	require.NoError(t, err)
	assert.Equal(t, "Grace", got.Name())
}

func TestGraphService_ConcurrentMissesShareOneQuery(t *testing.T) {
	f := newFixture(t)
	node := f.createNode(t, "Person", "Ada")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := f.svc.GetNodeByID(context.Background(), node.ID)
			assert.NoError(t, err)
			assert.Equal(t, node.ID, got.ID)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, f.repo.Calls("FindNodeByID"), 20)
	assert.GreaterOrEqual(t, f.repo.Calls("FindNodeByID"), 1)
}

func TestGraphService_CachePolicy(t *testing.T) {
	f := newFixture(t)

	err := f.svc.SetCachePolicy(CachePolicy{
		Node:         TTL{Quantity: 0, Unit: cache.UnitMinute},
		Neighbors:    TTL{Quantity: 1, Unit: cache.UnitMinute},
		Subgraph:     TTL{Quantity: 1, Unit: cache.UnitMinute},
		WriteTimeout: time.Second,
	})
	require.Error(t, err)
	assert.True(t, appErrors.IsInvalidDuration(err))

	policy := DefaultCachePolicy()
	policy.Node = TTL{Quantity: 1, Unit: cache.UnitMonth}
	require.NoError(t, f.svc.SetCachePolicy(policy))
	assert.Equal(t, policy, f.svc.cache.currentPolicy())

	_, err = NewGraphService(GraphServiceDeps{})
	assert.Error(t, err)
}

func TestGraphService_Health(t *testing.T) {
	f := newFixture(t)
	report := f.svc.Health(context.Background())
	assert.True(t, report.Healthy())
	assert.Equal(t, HealthReport{Graph: "ok", Cache: "ok"}, report)
}

// gatedRepository reads the first FindNodeByID, then holds the answer until
// release is closed, like a slow query whose snapshot predates later writes.
type gatedRepository struct {
	repository.GraphRepository
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func gate(repo repository.GraphRepository) *gatedRepository {
	return &gatedRepository{
		GraphRepository: repo,
		entered:         make(chan struct{}),
		release:         make(chan struct{}),
	}
}

func (r *gatedRepository) FindNodeByID(ctx context.Context, id string) (*graph.Node, bool, error) {
	node, ok, err := r.GraphRepository.FindNodeByID(ctx, id)
	first := false
	r.once.Do(func() { first = true })
	if first {
		close(r.entered)
		<-r.release
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, false, ctxErr
		}
	}
	return node, ok, err
}

type readResult struct {
	node *graph.Node
	err  error
}

func TestGraphService_ReadAfterUpdateDoesNotJoinOlderQuery(t *testing.T) {
	var gated *gatedRepository
	f := newFixtureWith(t, fixtureOptions{wrap: func(repo repository.GraphRepository) repository.GraphRepository {
		gated = gate(repo)
		return gated
	}})
	ctx := context.Background()
	node := f.createNode(t, "Person", "Ada")

	early := make(chan readResult, 1)
	go func() {
		n, err := f.svc.GetNodeByID(ctx, node.ID)
		early <- readResult{n, err}
	}()
	<-gated.entered

	_, err := f.svc.UpdateNode(ctx, node.ID, graph.UpdateNodeInput{Properties: graph.Properties{"name": graph.String("Grace")}})
	require.NoError(t, err)

	late := make(chan readResult, 1)
	go func() {
		n, err := f.svc.GetNodeByID(ctx, node.ID)
		late <- readResult{n, err}
	}()

	select {
	case res := <-late:
		require.NoError(t, res.err)
		assert.Equal(t, "Grace", res.node.Name())
	case <-time.After(2 * time.Second):
		close(gated.release)
		t.Fatal("read issued after the update waited on the query started before it")
	}

	close(gated.release)
	res := <-early
	require.NoError(t, res.err)
	assert.Equal(t, "Ada", res.node.Name())

	f.svc.Drain()
	got, err := f.svc.GetNodeByID(ctx, node.ID)
	require.NoError(t, err)
	assert.Equal(t, "Grace", got.Name())
}

func TestGraphService_CanceledLeaderDoesNotFailSharedRead(t *testing.T) {
	var gated *gatedRepository
	f := newFixtureWith(t, fixtureOptions{wrap: func(repo repository.GraphRepository) repository.GraphRepository {
		gated = gate(repo)
		return gated
	}})
	node := f.createNode(t, "Person", "Ada")

	leaderCtx, cancel := context.WithCancel(context.Background())
	leader := make(chan readResult, 1)
	go func() {
		n, err := f.svc.GetNodeByID(leaderCtx, node.ID)
		leader <- readResult{n, err}
	}()
	<-gated.entered

	follower := make(chan readResult, 1)
	go func() {
		n, err := f.svc.GetNodeByID(context.Background(), node.ID)
		follower <- readResult{n, err}
	}()
	time.Sleep(50 * time.Millisecond)

	cancel()
	close(gated.release)

	for _, ch := range []chan readResult{leader, follower} {
		res := <-ch
		require.NoError(t, res.err)
		assert.Equal(t, node.ID, res.node.ID)
	}
}

// undeletableStore blocks writes like blockingStore and fails every delete.
type undeletableStore struct {
	*blockingStore
}

func (undeletableStore) Delete(context.Context, ...string) error {
	return errCacheDown
}

func TestGraphService_FailedUndoOfRacingWriteIsReported(t *testing.T) {
	store := undeletableStore{&blockingStore{
		Store:   cache.NewMemoryStore(cache.MemoryOptions{}, zap.NewNop()),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}}
	core, logs := observer.New(zapcore.WarnLevel)
	f := newFixtureWith(t, fixtureOptions{store: store, logger: zap.New(core)})
	ctx := context.Background()
	node := f.createNode(t, "Person", "Ada")

	_, err := f.svc.GetNodeByID(ctx, node.ID)
	require.NoError(t, err)
	<-store.entered

	_, err = f.svc.UpdateNode(ctx, node.ID, graph.UpdateNodeInput{Properties: graph.Properties{"name": graph.String("Grace")}})
	require.NoError(t, err)
	close(store.release)
	f.svc.Drain()

	undo := logs.FilterMessage("Failed to undo cache write that raced an invalidation")
	require.Equal(t, 1, undo.Len())
	assert.Equal(t, f.keys.Node(node.ID), undo.All()[0].ContextMap()["key"])
	// one failure from the update's invalidation, one from the undo
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.CacheErrors.WithLabelValues("delete")))
}

func TestGraphService_RepositoryFailureClassification(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		errType   appErrors.ErrorType
		code      string
		retryable bool
	}{
		{"deadline", fmt.Errorf("FindNodes: %w", context.DeadlineExceeded), appErrors.ErrorTypeTimeout, appErrors.CodeGraphTimeout, true},
		{"transient", repository.ErrTransient{Operation: "FindNodes", Err: errors.New("connection reset")}, appErrors.ErrorTypeQueryFailed, appErrors.CodeGraphQuery, true},
		{"permanent", errors.New("syntax error"), appErrors.ErrorTypeQueryFailed, appErrors.CodeGraphQuery, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.repo.SetError("FindNodes", tt.err)

			_, err := f.svc.ListNodes(context.Background(), graph.NodeFilter{})
			require.Error(t, err)
			unified, ok := appErrors.As(err)
			require.True(t, ok)
			assert.Equal(t, tt.errType, unified.Type)
			assert.Equal(t, tt.code, unified.Code)
			assert.Equal(t, tt.retryable, appErrors.IsRetryable(err))
			assert.ErrorIs(t, err, tt.err)
		})
	}
}
