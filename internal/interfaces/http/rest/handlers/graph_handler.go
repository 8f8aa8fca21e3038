package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/xqvvu/yokg/internal/domain/graph"
)

// GraphHandler serves whole-graph reads and search.
type GraphHandler struct {
	responder
	service GraphService
}

func NewGraphHandler(service GraphService, logger *zap.Logger) *GraphHandler {
	if service == nil {
		panic("graph service is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GraphHandler{
		responder: newResponder(logger.Named("GraphHandler"), 0),
		service:   service,
	}
}

// GetGraph handles GET /graph?limit=&labels=.
func (h *GraphHandler) GetGraph(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	g, err := h.service.GetGraph(r.Context(), graph.GraphFilter{
		Labels: queryList(r, "labels", "label"),
		Limit:  limit,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, g)
}

// SearchNodes handles GET /graph/search?q=&label=&limit=.
func (h *GraphHandler) SearchNodes(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	nodes, err := h.service.SearchNodes(r.Context(), graph.NodeSearch{
		Query: r.URL.Query().Get("q"),
		Label: r.URL.Query().Get("label"),
		Limit: limit,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if nodes == nil {
		nodes = []graph.Node{}
	}
	h.ok(w, http.StatusOK, map[string][]graph.Node{"nodes": nodes})
}
