package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/xqvvu/yokg/internal/domain/graph"
)

// NodeHandler serves /nodes and the per-node traversals.
type NodeHandler struct {
	responder
	service GraphService
}

func NewNodeHandler(service GraphService, logger *zap.Logger, maxBodyBytes int64) *NodeHandler {
	if service == nil {
		panic("graph service is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NodeHandler{
		responder: newResponder(logger.Named("NodeHandler"), maxBodyBytes),
		service:   service,
	}
}

// CreateNode handles POST /nodes.
func (h *NodeHandler) CreateNode(w http.ResponseWriter, r *http.Request) {
	var input graph.CreateNodeInput
	if err := h.decode(w, r, &input); err != nil {
		h.fail(w, r, err)
		return
	}

	node, err := h.service.CreateNode(r.Context(), input)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Location", r.URL.Path+"/"+node.ID)
	h.ok(w, http.StatusCreated, node)
}

// ListNodes handles GET /nodes?label=&limit=&offset=.
func (h *NodeHandler) ListNodes(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	page, err := h.service.ListNodes(r.Context(), graph.NodeFilter{
		Label:  r.URL.Query().Get("label"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, page)
}

// GetNode handles GET /nodes/{nodeID}.
func (h *NodeHandler) GetNode(w http.ResponseWriter, r *http.Request) {
	node, err := h.service.GetNodeByID(r.Context(), chi.URLParam(r, "nodeID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, node)
}

// UpdateNode handles PATCH /nodes/{nodeID}. Properties are merged; a null
// value removes the key.
func (h *NodeHandler) UpdateNode(w http.ResponseWriter, r *http.Request) {
	var input graph.UpdateNodeInput
	if err := h.decode(w, r, &input); err != nil {
		h.fail(w, r, err)
		return
	}

	node, err := h.service.UpdateNode(r.Context(), chi.URLParam(r, "nodeID"), input)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, node)
}

// DeleteNode handles DELETE /nodes/{nodeID}.
func (h *NodeHandler) DeleteNode(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteNode(r.Context(), chi.URLParam(r, "nodeID")); err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, map[string]bool{"deleted": true})
}

// GetNodeWithRelationships handles GET /nodes/{nodeID}/full.
func (h *NodeHandler) GetNodeWithRelationships(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.GetNodeWithRelationships(r.Context(), chi.URLParam(r, "nodeID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, result)
}

// GetNeighbors handles GET /nodes/{nodeID}/neighbors?relationshipType=&direction=.
func (h *NodeHandler) GetNeighbors(w http.ResponseWriter, r *http.Request) {
	query := graph.NeighborQuery{
		RelationshipType: r.URL.Query().Get("relationshipType"),
		Direction:        graph.Direction(r.URL.Query().Get("direction")),
	}
	result, err := h.service.GetNeighbors(r.Context(), chi.URLParam(r, "nodeID"), query)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, result)
}

// GetSubgraph handles GET /nodes/{nodeID}/subgraph?depth=.
func (h *NodeHandler) GetSubgraph(w http.ResponseWriter, r *http.Request) {
	depth, err := queryInt(r, "depth")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	sub, err := h.service.GetSubgraph(r.Context(), graph.SubgraphQuery{
		NodeID: chi.URLParam(r, "nodeID"),
		Depth:  depth,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, sub)
}

// ListRelationships handles GET /nodes/{nodeID}/relationships?type=&direction=.
func (h *NodeHandler) ListRelationships(w http.ResponseWriter, r *http.Request) {
	filter := graph.RelationshipFilter{
		Type:      r.URL.Query().Get("type"),
		Direction: graph.Direction(r.URL.Query().Get("direction")),
	}
	rels, err := h.service.ListRelationships(r.Context(), chi.URLParam(r, "nodeID"), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if rels == nil {
		rels = []graph.Relationship{}
	}
	h.ok(w, http.StatusOK, map[string][]graph.Relationship{"relationships": rels})
}
