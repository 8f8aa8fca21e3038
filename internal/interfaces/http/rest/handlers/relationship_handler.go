package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/xqvvu/yokg/internal/domain/graph"
)

type RelationshipHandler struct {
	responder
	service GraphService
}

func NewRelationshipHandler(service GraphService, logger *zap.Logger, maxBodyBytes int64) *RelationshipHandler {
	if service == nil {
		panic("graph service is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RelationshipHandler{
		responder: newResponder(logger.Named("RelationshipHandler"), maxBodyBytes),
		service:   service,
	}
}

// CreateRelationship handles POST /relationships.
func (h *RelationshipHandler) CreateRelationship(w http.ResponseWriter, r *http.Request) {
	var input graph.CreateRelationshipInput
	if err := h.decode(w, r, &input); err != nil {
		h.fail(w, r, err)
		return
	}

	rel, err := h.service.CreateRelationship(r.Context(), input)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Location", r.URL.Path+"/"+rel.ID)
	h.ok(w, http.StatusCreated, rel)
}

// GetRelationship handles GET /relationships/{relationshipID}.
func (h *RelationshipHandler) GetRelationship(w http.ResponseWriter, r *http.Request) {
	rel, err := h.service.GetRelationshipByID(r.Context(), chi.URLParam(r, "relationshipID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, rel)
}

// DeleteRelationship handles DELETE /relationships/{relationshipID}.
func (h *RelationshipHandler) DeleteRelationship(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteRelationship(r.Context(), chi.URLParam(r, "relationshipID")); err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, map[string]bool{"deleted": true})
}
