package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"
)

type Options struct {
	RequestTimeout time.Duration
	CORSOrigins    []string
}

type Server struct{ mux *chi.Mux }

func New(opt Options) *Server {
	m := chi.NewRouter()

	// all middlewares go here, before any routes are added
	m.Use(RequestID)
	m.Use(chimw.RealIP)
	m.Use(chimw.Recoverer)
	m.Use(cors.Handler(cors.Options{
		AllowedOrigins: opt.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-API-Key", "X-Request-ID", "If-None-Match"},
		ExposedHeaders: []string{"ETag", "X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		MaxAge:         300,
	}))
	m.Use(Timeout(opt.RequestTimeout))
	m.Use(Metrics)
	m.Use(Logger(log.Logger))

	m.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeCode(w, r, http.StatusNotFound, codeNotFound, "route not found", nil)
	})
	m.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeCode(w, r, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed", nil)
	})

	return &Server{mux: m}
}

func (s *Server) Mux() http.Handler { return s.mux }

// Mount attaches any extra handler (e.g., /metrics) to the router.
func (s *Server) Mount(path string, h http.Handler) {
	s.mux.Handle(path, h)
}
