// Package handlers adapts HTTP requests onto the graph service. Handlers
// parse and shape; every rule lives in the service.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/xqvvu/yokg/internal/application/services"
	"github.com/xqvvu/yokg/internal/domain/graph"
	appErrors "github.com/xqvvu/yokg/internal/errors"
)

// GraphService is the part of services.GraphService the handlers call.
type GraphService interface {
	GetNodeByID(ctx context.Context, id string) (*graph.Node, error)
	ListNodes(ctx context.Context, filter graph.NodeFilter) (*graph.PaginatedNodes, error)
	CreateNode(ctx context.Context, input graph.CreateNodeInput) (*graph.Node, error)
	UpdateNode(ctx context.Context, id string, input graph.UpdateNodeInput) (*graph.Node, error)
	DeleteNode(ctx context.Context, id string) error
	SearchNodes(ctx context.Context, search graph.NodeSearch) ([]graph.Node, error)

	CreateRelationship(ctx context.Context, input graph.CreateRelationshipInput) (*graph.Relationship, error)
	GetRelationshipByID(ctx context.Context, id string) (*graph.Relationship, error)
	ListRelationships(ctx context.Context, nodeID string, filter graph.RelationshipFilter) ([]graph.Relationship, error)
	DeleteRelationship(ctx context.Context, id string) error

	GetGraph(ctx context.Context, filter graph.GraphFilter) (graph.Graph, error)
	GetSubgraph(ctx context.Context, query graph.SubgraphQuery) (graph.Subgraph, error)
	GetNeighbors(ctx context.Context, nodeID string, query graph.NeighborQuery) (graph.NodeNeighbors, error)
	GetNodeWithRelationships(ctx context.Context, nodeID string) (*graph.NodeWithRelationships, error)

	Health(ctx context.Context) services.HealthReport
}

// Numeric result codes carried in every response body.
const (
	resultOK             = 0
	resultInvalidRequest = -2
	resultInternal       = -3
	resultNotFound       = -4
)

// retryAfterSeconds is the Retry-After value sent with retryable failures.
const retryAfterSeconds = "1"

// DefaultMaxBodyBytes caps request bodies when no limit is configured.
const DefaultMaxBodyBytes int64 = 1 << 20

type successBody struct {
	OK      bool   `json:"ok"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type errorBody struct {
	OK        bool   `json:"ok"`
	ErrCode   int    `json:"errcode"`
	ErrMsg    string `json:"errmsg"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

// responder holds what every handler needs to read requests and write
// responses.
type responder struct {
	logger       *zap.Logger
	maxBodyBytes int64
}

func newResponder(logger *zap.Logger, maxBodyBytes int64) responder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	return responder{logger: logger, maxBodyBytes: maxBodyBytes}
}

func (rs responder) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		rs.logger.Warn("Failed to write response", zap.Error(err))
	}
}

func (rs responder) ok(w http.ResponseWriter, status int, data any) {
	rs.writeJSON(w, status, successBody{OK: true, Code: resultOK, Message: "ok", Data: data})
}

// fail writes err with the status its type maps to. System errors carry a
// generic message only; retryable ones get a Retry-After hint.
func (rs responder) fail(w http.ResponseWriter, r *http.Request, err error) {
	unified, ok := appErrors.As(err)
	if !ok {
		unified = appErrors.Wrap(err, r.Method+" "+r.URL.Path, "unhandled error")
	}
	status := appErrors.HTTPStatus(unified)
	body := errorBody{
		ErrCode:   resultCode(status),
		ErrMsg:    unified.PublicMessage(),
		Code:      unified.Code,
		RequestID: chimiddleware.GetReqID(r.Context()),
	}

	retryable := appErrors.IsRetryable(err)
	if retryable && status >= http.StatusInternalServerError {
		w.Header().Set("Retry-After", retryAfterSeconds)
	}

	fields := []zap.Field{
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.String("code", body.Code),
	}
	switch appErrors.GetSeverity(err) {
	case appErrors.SeverityCritical, appErrors.SeverityHigh:
		rs.logger.Error("Request failed", append(fields, zap.Bool("retryable", retryable), zap.Error(err))...)
	case appErrors.SeverityMedium:
		rs.logger.Warn("Request failed", append(fields, zap.Bool("retryable", retryable), zap.Error(err))...)
	default:
		rs.logger.Debug("Request rejected", fields...)
	}
	rs.writeJSON(w, status, body)
}

func resultCode(status int) int {
	switch {
	case status == http.StatusNotFound:
		return resultNotFound
	case status >= 400 && status < 500:
		return resultInvalidRequest
	default:
		return resultInternal
	}
}

// decode reads a JSON body into dst, rejecting unknown fields and trailing
// data.
func (rs responder) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, rs.maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return badRequest(fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
		case errors.Is(err, io.EOF):
			return badRequest("request body is required")
		default:
			return badRequest("invalid request body: " + err.Error())
		}
	}
	if decoder.More() {
		return badRequest("request body must contain a single JSON object")
	}
	return nil
}

func badRequest(message string) error {
	return appErrors.Validation(appErrors.CodeInvalidInput, message).Build()
}

// queryInt reads an optional integer query parameter; absent means 0 so the
// service default applies.
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, badRequest(fmt.Sprintf("%s must be an integer", name))
	}
	return n, nil
}

// queryList accepts both ?label=a&label=b and ?labels=a,b.
func queryList(r *http.Request, names ...string) []string {
	var out []string
	for _, name := range names {
		for _, raw := range r.URL.Query()[name] {
			for _, part := range strings.Split(raw, ",") {
				if part = strings.TrimSpace(part); part != "" {
					out = append(out, part)
				}
			}
		}
	}
	return out
}
