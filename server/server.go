// Package server exposes the workflow's boundary operations over HTTP: a thin
// chi router in front of the recommendation service and the auth provider.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/gokul-gopan-k/agent-recommender/auth"
	"github.com/gokul-gopan-k/agent-recommender/recommend"
)

// Server wires HTTP handlers to the recommendation service and auth provider.
type Server struct {
	svc      *recommend.Service
	auth     *auth.Provider
	log      zerolog.Logger
	validate *validator.Validate
	metrics  prometheus.Gatherer

	// modelConfigured feeds the health check's model-readiness flag.
	modelConfigured bool
}

// New creates a Server. metrics may be nil to omit the /metrics endpoint.
func New(svc *recommend.Service, authProvider *auth.Provider, log zerolog.Logger, metrics prometheus.Gatherer, modelConfigured bool) *Server {
	return &Server{
		svc:             svc,
		auth:            authProvider,
		log:             log,
		validate:        validator.New(),
		metrics:         metrics,
		modelConfigured: modelConfigured,
	}
}

// Router assembles the route table.
//
// Public: health, workflow visualization (static, non-sensitive), metrics,
// and the auth endpoints themselves. Recommendation and state inspection
// require a bearer token.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/", s.handleHealth)
	r.Get("/visualize_workflow", s.handleVisualize)
	if s.metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.metrics, promhttp.HandlerOpts{}))
	}

	r.Post("/register", s.handleRegister)
	r.Post("/login", s.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Post("/recommend", s.handleRecommend)
		r.Post("/get_state", s.handleGetState)
	})

	return r
}

// requestLogger logs one line per request with method, path, status, and
// duration.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}
