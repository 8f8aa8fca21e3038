package rest_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xqvvu/yokg/internal/application/services"
	"github.com/xqvvu/yokg/internal/domain/graph"
	"github.com/xqvvu/yokg/internal/infrastructure/cache"
	"github.com/xqvvu/yokg/internal/infrastructure/observability"
	"github.com/xqvvu/yokg/internal/infrastructure/persistence/memory"
	"github.com/xqvvu/yokg/internal/interfaces/http/rest"
	"github.com/xqvvu/yokg/internal/repository"
)

type envelope struct {
	OK        bool            `json:"ok"`
	Code      json.RawMessage `json:"code"`
	Data      json.RawMessage `json:"data"`
	ErrCode   int             `json:"errcode"`
	ErrMsg    string          `json:"errmsg"`
	RequestID string          `json:"requestId"`
}

type server struct {
	handler http.Handler
	repo    *memory.GraphRepository
	metrics *observability.Collector
	svc     *services.GraphService
}

func newServer(t *testing.T) *server {
	t.Helper()
	repo := memory.NewGraphRepository(nil)
	metrics := observability.NewCollector("test")
	svc, err := services.NewGraphService(services.GraphServiceDeps{
		Repository: repo,
		Cache:      cache.NewMemoryStore(cache.MemoryOptions{}, zap.NewNop()),
		Keys:       cache.NewKeys("test"),
		Policy:     services.DefaultCachePolicy(),
		Metrics:    metrics,
		Logger:     zap.NewNop(),
	})
	require.NoError(t, err)
	t.Cleanup(svc.Drain)

	handler := rest.NewRouter(rest.RouterOptions{
		Service:     svc,
		Logger:      zap.NewNop(),
		Metrics:     metrics,
		MetricsPath: "/metrics",
		Tracer:      noop.NewTracerProvider().Tracer("test"),
		CORS: rest.CORSOptions{
			Enabled:        true,
			AllowedOrigins: []string{"https://app.example"},
			AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE"},
			AllowedHeaders: []string{"Content-Type"},
			MaxAge:         300,
		},
		MaxBodyBytes: 4096,
	})
	return &server{handler: handler, repo: repo, metrics: metrics, svc: svc}
}

func (s *server) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out), string(env.Data))
	return out
}

func (s *server) createNode(t *testing.T, label, name string) graph.Node {
	t.Helper()
	rec, env := s.do(t, http.MethodPost, "/api/graph/nodes", map[string]any{
		"label":      label,
		"properties": map[string]any{"name": name},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeData[graph.Node](t, env)
}

func (s *server) relate(t *testing.T, relType string, source, target graph.Node) graph.Relationship {
	t.Helper()
	rec, env := s.do(t, http.MethodPost, "/api/graph/relationships", map[string]any{
		"type":     relType,
		"sourceId": source.ID,
		"targetId": target.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeData[graph.Relationship](t, env)
}

func TestRouter_NodeLifecycle(t *testing.T) {
	s := newServer(t)

	rec, env := s.do(t, http.MethodPost, "/api/graph/nodes", map[string]any{
		"label":      "Person",
		"properties": map[string]any{"name": "Ada", "born": 1815},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.True(t, env.OK)
	assert.JSONEq(t, "0", string(env.Code))
	created := decodeData[graph.Node](t, env)
	_, err := uuid.Parse(created.ID)
	require.NoError(t, err)
	assert.Equal(t, "/api/graph/nodes/"+created.ID, rec.Header().Get("Location"))

	rec, env = s.do(t, http.MethodGet, "/api/graph/nodes/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	fetched := decodeData[graph.Node](t, env)
	assert.Equal(t, created.ID, fetched.ID)
	name, _ := fetched.Properties.Text("name")
	assert.Equal(t, "Ada", name)

	rec, env = s.do(t, http.MethodPatch, "/api/graph/nodes/"+created.ID, map[string]any{
		"properties": map[string]any{"name": "Ada Lovelace", "born": nil},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decodeData[graph.Node](t, env)
	name, _ = updated.Properties.Text("name")
	assert.Equal(t, "Ada Lovelace", name)
	assert.NotContains(t, updated.Properties, "born")

	rec, env = s.do(t, http.MethodGet, "/api/graph/nodes?label=Person", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decodeData[graph.PaginatedNodes](t, env)
	assert.Equal(t, int64(1), page.Pagination.Total)
	assert.Equal(t, graph.DefaultNodeLimit, page.Pagination.Limit)

	rec, env = s.do(t, http.MethodDelete, "/api/graph/nodes/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]bool{"deleted": true}, decodeData[map[string]bool](t, env))

	rec, env = s.do(t, http.MethodGet, "/api/graph/nodes/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, env.OK)
	assert.Equal(t, -4, env.ErrCode)
	assert.Equal(t, "Node with id "+created.ID+" not found", env.ErrMsg)
	assert.JSONEq(t, `"NODE_NOT_FOUND"`, string(env.Code))
	assert.NotEmpty(t, env.RequestID)
}

func TestRouter_Traversals(t *testing.T) {
	s := newServer(t)
	a := s.createNode(t, "Person", "A")
	b := s.createNode(t, "Person", "B")
	c := s.createNode(t, "Topic", "C")
	ab := s.relate(t, "KNOWS", a, b)
	s.relate(t, "LIKES", b, c)

	t.Run("neighbors", func(t *testing.T) {
		rec, env := s.do(t, http.MethodGet, "/api/graph/nodes/"+b.ID+"/neighbors", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		result := decodeData[graph.NodeNeighbors](t, env)
		assert.Equal(t, b.ID, result.Center.ID)
		assert.Len(t, result.Neighbors, 2)
		assert.Len(t, result.Relationships, 2)
	})

	t.Run("filtered neighbors", func(t *testing.T) {
		rec, env := s.do(t, http.MethodGet, "/api/graph/nodes/"+b.ID+"/neighbors?relationshipType=LIKES&direction=outgoing", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		result := decodeData[graph.NodeNeighbors](t, env)
		require.Len(t, result.Neighbors, 1)
		assert.Equal(t, c.ID, result.Neighbors[0].ID)
	})

	t.Run("subgraph depth", func(t *testing.T) {
		rec, env := s.do(t, http.MethodGet, "/api/graph/nodes/"+a.ID+"/subgraph?depth=1", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		sub := decodeData[graph.Subgraph](t, env)
		assert.Equal(t, 1, sub.Depth)
		assert.Equal(t, a.ID, sub.CenterNodeID)
		assert.ElementsMatch(t, []string{a.ID, b.ID}, nodeIDs(sub.Nodes))

		rec, env = s.do(t, http.MethodGet, "/api/graph/nodes/"+a.ID+"/subgraph?depth=2", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		sub = decodeData[graph.Subgraph](t, env)
		assert.ElementsMatch(t, []string{a.ID, b.ID, c.ID}, nodeIDs(sub.Nodes))
	})

	t.Run("node with relationships", func(t *testing.T) {
		rec, env := s.do(t, http.MethodGet, "/api/graph/nodes/"+b.ID+"/full", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		result := decodeData[graph.NodeWithRelationships](t, env)
		require.Len(t, result.Relationships.Incoming, 1)
		require.Len(t, result.Relationships.Outgoing, 1)
		assert.Equal(t, a.ID, result.Relationships.Incoming[0].Source.ID)
		assert.Equal(t, c.ID, result.Relationships.Outgoing[0].Target.ID)
	})

	t.Run("incident relationships", func(t *testing.T) {
		rec, env := s.do(t, http.MethodGet, "/api/graph/nodes/"+b.ID+"/relationships?type=KNOWS", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		result := decodeData[map[string][]graph.Relationship](t, env)
		require.Len(t, result["relationships"], 1)
		assert.Equal(t, ab.ID, result["relationships"][0].ID)
	})

	t.Run("whole graph", func(t *testing.T) {
		rec, env := s.do(t, http.MethodGet, "/api/graph", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		g := decodeData[graph.Graph](t, env)
		assert.ElementsMatch(t, []string{a.ID, b.ID, c.ID}, nodeIDs(g.Nodes))
		assert.Len(t, g.Relationships, 2)

		rec, env = s.do(t, http.MethodGet, "/api/graph?labels=Topic", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		g = decodeData[graph.Graph](t, env)
		assert.Equal(t, []string{c.ID}, nodeIDs(g.Nodes))
		assert.Empty(t, g.Relationships)
	})

	t.Run("search", func(t *testing.T) {
		rec, env := s.do(t, http.MethodGet, "/api/graph/search?q=C&label=Topic", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		result := decodeData[map[string][]graph.Node](t, env)
		require.Len(t, result["nodes"], 1)
		assert.Equal(t, c.ID, result["nodes"][0].ID)
	})

	t.Run("relationship lifecycle", func(t *testing.T) {
		rec, env := s.do(t, http.MethodGet, "/api/graph/relationships/"+ab.ID, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, ab.ID, decodeData[graph.Relationship](t, env).ID)

		rec, _ = s.do(t, http.MethodDelete, "/api/graph/relationships/"+ab.ID, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		rec, env = s.do(t, http.MethodDelete, "/api/graph/relationships/"+ab.ID, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.JSONEq(t, `"RELATIONSHIP_NOT_FOUND"`, string(env.Code))

		// the cached neighbourhood of a no longer shows b
		rec, env = s.do(t, http.MethodGet, "/api/graph/nodes/"+a.ID+"/neighbors", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, decodeData[graph.NodeNeighbors](t, env).Neighbors)
	})
}

func nodeIDs(nodes []graph.Node) []string {
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}
	return ids
}

func TestRouter_BadRequests(t *testing.T) {
	s := newServer(t)
	node := s.createNode(t, "Person", "Ada")

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		code   string
	}{
		{"malformed body", http.MethodPost, "/api/graph/nodes", `{"label":`, "INVALID_INPUT"},
		{"empty body", http.MethodPost, "/api/graph/nodes", "", "INVALID_INPUT"},
		{"unknown field", http.MethodPost, "/api/graph/nodes", `{"label":"Person","colour":"red"}`, "INVALID_INPUT"},
		{"trailing data", http.MethodPost, "/api/graph/nodes", `{"label":"Person"} {}`, "INVALID_INPUT"},
		{"oversized body", http.MethodPost, "/api/graph/nodes", `{"label":"` + strings.Repeat("x", 5000) + `"}`, "INVALID_INPUT"},
		{"missing label", http.MethodPost, "/api/graph/nodes", map[string]any{"properties": map[string]any{}}, "INVALID_INPUT"},
		{"reserved property", http.MethodPost, "/api/graph/nodes", map[string]any{"label": "Person", "properties": map[string]any{"id": "x"}}, "INVALID_INPUT"},
		{"non uuid id", http.MethodGet, "/api/graph/nodes/not-a-uuid", nil, "INVALID_INPUT"},
		{"non integer limit", http.MethodGet, "/api/graph/nodes?limit=ten", nil, "INVALID_INPUT"},
		{"limit too large", http.MethodGet, "/api/graph?limit=5000", nil, "INVALID_INPUT"},
		{"depth too deep", http.MethodGet, "/api/graph/nodes/" + node.ID + "/subgraph?depth=4", nil, "INVALID_INPUT"},
		{"bad direction", http.MethodGet, "/api/graph/nodes/" + node.ID + "/neighbors?direction=sideways", nil, "INVALID_INPUT"},
		{"empty search", http.MethodGet, "/api/graph/search", nil, "INVALID_INPUT"},
		{
			"missing endpoint", http.MethodPost, "/api/graph/relationships",
			map[string]any{"type": "KNOWS", "sourceId": node.ID, "targetId": uuid.NewString()},
			"INVALID_RELATIONSHIP",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := s.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.False(t, env.OK)
			assert.Equal(t, -2, env.ErrCode)
			assert.JSONEq(t, `"`+tt.code+`"`, string(env.Code))
			assert.NotEmpty(t, env.ErrMsg)
		})
	}
}

func TestRouter_StoreFailureIsNotLeaked(t *testing.T) {
	s := newServer(t)
	s.repo.SetError("FindNodeByID", errors.New("Neo.ClientError.Statement.SyntaxError: MATCH (n {id: $id}) RETURN n"))

	rec, env := s.do(t, http.MethodGet, "/api/graph/nodes/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, -3, env.ErrCode)
	assert.Equal(t, "internal server error", env.ErrMsg)
	assert.JSONEq(t, `"GRAPH_QUERY_ERROR"`, string(env.Code))
	assert.NotContains(t, rec.Body.String(), "MATCH")
	assert.NotContains(t, rec.Body.String(), "Neo.ClientError")
	assert.Empty(t, rec.Header().Get("Retry-After"))
}

func TestRouter_RetryableFailures(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
		errMsg string
	}{
		{
			name:   "transient store failure",
			err:    repository.ErrTransient{Operation: "FindNodeByID", Err: errors.New("connection reset")},
			status: http.StatusInternalServerError,
			code:   `"GRAPH_QUERY_ERROR"`,
			errMsg: "internal server error",
		},
		{
			name:   "query deadline",
			err:    context.DeadlineExceeded,
			status: http.StatusGatewayTimeout,
			code:   `"GRAPH_TIMEOUT"`,
			errMsg: "the operation timed out",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newServer(t)
			s.repo.SetError("FindNodeByID", tt.err)

			rec, env := s.do(t, http.MethodGet, "/api/graph/nodes/"+uuid.NewString(), nil)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, -3, env.ErrCode)
			assert.Equal(t, tt.errMsg, env.ErrMsg)
			assert.JSONEq(t, tt.code, string(env.Code))
			assert.Equal(t, "1", rec.Header().Get("Retry-After"))
		})
	}
}

func TestRouter_Health(t *testing.T) {
	s := newServer(t)

	rec, _ := s.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, map[string]any{"graph": "ok", "cache": "ok"}, body["checks"])

	rec, _ = s.do(t, http.MethodGet, "/health/live", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_MetricsAndHeaders(t *testing.T) {
	s := newServer(t)
	s.createNode(t, "Person", "Ada")

	rec, _ := s.do(t, http.MethodGet, "/api/graph/nodes", nil)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec, _ = s.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "test_http_requests_total")
	assert.Contains(t, body, `method="POST"`)
	assert.Contains(t, body, `status="201"`)
}

func TestRouter_CORSPreflight(t *testing.T) {
	s := newServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/graph/nodes", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)

	req = httptest.NewRequest(http.MethodGet, "/api/graph", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
