// Package api exposes the Batch Controller's five operations (spec.md §6)
// over HTTP, using go-chi/chi for routing — the control surface is
// explicitly "not a specific protocol," and HTTP/JSON is the binding this
// repo chooses rather than a gRPC surface needing generated protobuf code.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/neerajsharma26/resumerank/pkg/controller"
	"github.com/neerajsharma26/resumerank/pkg/metrics"
)

// Server wraps a Controller with an HTTP router.
type Server struct {
	ctrl   *controller.Controller
	router chi.Router
}

// NewServer builds a Server ready to Serve. corsOrigins may be nil to allow
// any origin, a permissive default for a control-plane API.
func NewServer(ctrl *controller.Controller, corsOrigins []string) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(2 * time.Minute))

	allowed := corsOrigins
	if len(allowed) == 0 {
		allowed = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowed,
		AllowedMethods: []string{"GET", "POST", "DELETE"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Owner-ID"},
		MaxAge:         300,
	}))

	s := &Server{ctrl: ctrl, router: r}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler so Server can be passed straight to
// http.ListenAndServe.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Get("/healthz", metrics.LivenessHandler())
	s.router.Get("/readyz", metrics.ReadyHandler())
	s.router.Handle("/metrics", metrics.Handler())

	s.router.Route("/batches", func(r chi.Router) {
		r.Post("/", s.handleCreateBatch)
		r.Route("/{batchID}", func(r chi.Router) {
			r.Get("/", s.handleGetBatch)
			r.Post("/control", s.handleControlBatch)
			r.Get("/items", s.handleListItems)
			r.Delete("/", s.handleTeardownBatch)
		})
	})
}
