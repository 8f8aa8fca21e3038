// Package rest wires the HTTP surface: middleware, CORS and routes.
package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xqvvu/yokg/internal/infrastructure/observability"
	"github.com/xqvvu/yokg/internal/interfaces/http/rest/handlers"
	"github.com/xqvvu/yokg/internal/interfaces/http/rest/middleware"
)

// CORSOptions mirrors the configurable subset of cors.Options.
type CORSOptions struct {
	Enabled          bool
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

// RouterOptions configures NewRouter. Metrics and Tracer are optional.
type RouterOptions struct {
	Service      handlers.GraphService
	Logger       *zap.Logger
	Metrics      *observability.Collector
	MetricsPath  string
	Tracer       trace.Tracer
	CORS         CORSOptions
	MaxBodyBytes int64
}

// NewRouter builds the application router.
//
//	GET    /health, /health/live
//	GET    /metrics
//	GET    /api/graph                                  whole graph
//	GET    /api/graph/search                           text search
//	POST   /api/graph/nodes                            create node
//	GET    /api/graph/nodes                            list nodes
//	GET    /api/graph/nodes/{nodeID}                   get node
//	PATCH  /api/graph/nodes/{nodeID}                   update node
//	DELETE /api/graph/nodes/{nodeID}                   delete node
//	GET    /api/graph/nodes/{nodeID}/full              node with edges
//	GET    /api/graph/nodes/{nodeID}/neighbors         one-hop neighbours
//	GET    /api/graph/nodes/{nodeID}/subgraph          bounded traversal
//	GET    /api/graph/nodes/{nodeID}/relationships     incident edges
//	POST   /api/graph/relationships                    create relationship
//	GET    /api/graph/relationships/{relationshipID}   get relationship
//	DELETE /api/graph/relationships/{relationshipID}   delete relationship
func NewRouter(opts RouterOptions) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(middleware.ExposeRequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(logger.Named("http")))
	if opts.Tracer != nil {
		router.Use(observability.TracingMiddleware(opts.Tracer))
	}
	if opts.Metrics != nil {
		router.Use(observability.MetricsMiddleware(opts.Metrics))
	}
	if opts.CORS.Enabled {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.CORS.AllowedOrigins,
			AllowedMethods:   opts.CORS.AllowedMethods,
			AllowedHeaders:   opts.CORS.AllowedHeaders,
			ExposedHeaders:   []string{"Location", "X-Request-ID", "X-Trace-ID"},
			AllowCredentials: opts.CORS.AllowCredentials,
			MaxAge:           opts.CORS.MaxAge,
		}))
	}

	health := handlers.NewHealthHandler(opts.Service, logger)
	router.Get("/health", health.Ready)
	router.Get("/health/live", health.Live)

	if opts.Metrics != nil {
		path := opts.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		router.Method(http.MethodGet, path, opts.Metrics.Handler())
	}

	nodes := handlers.NewNodeHandler(opts.Service, logger, opts.MaxBodyBytes)
	relationships := handlers.NewRelationshipHandler(opts.Service, logger, opts.MaxBodyBytes)
	graphs := handlers.NewGraphHandler(opts.Service, logger)

	router.Route("/api/graph", func(r chi.Router) {
		r.Get("/", graphs.GetGraph)
		r.Get("/search", graphs.SearchNodes)

		r.Route("/nodes", func(r chi.Router) {
			r.Post("/", nodes.CreateNode)
			r.Get("/", nodes.ListNodes)
			r.Route("/{nodeID}", func(r chi.Router) {
				r.Get("/", nodes.GetNode)
				r.Patch("/", nodes.UpdateNode)
				r.Delete("/", nodes.DeleteNode)
				r.Get("/full", nodes.GetNodeWithRelationships)
				r.Get("/neighbors", nodes.GetNeighbors)
				r.Get("/subgraph", nodes.GetSubgraph)
				r.Get("/relationships", nodes.ListRelationships)
			})
		})

		r.Route("/relationships", func(r chi.Router) {
			r.Post("/", relationships.CreateRelationship)
			r.Route("/{relationshipID}", func(r chi.Router) {
				r.Get("/", relationships.GetRelationship)
				r.Delete("/", relationships.DeleteRelationship)
			})
		})
	})

	return router
}
