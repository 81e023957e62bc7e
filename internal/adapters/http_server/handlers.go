package httpserver

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"openstays_catalog/internal/app"
	"openstays_catalog/internal/domain"
)

// Pinger is a dependency checked by /readyz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers wires the application services to routes. Limiter may be nil
// when rate limiting is disabled; a nil entry in Ready reports "disabled".
type Handlers struct {
	Catalog *app.CatalogService
	Auth    *app.Authenticator
	Limiter *app.RateLimiter
	Ready   map[string]Pinger
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", h.health)
	s.mux.Get("/readyz", h.ready)

	s.mux.Group(func(r chi.Router) {
		r.Use(Authenticate(h.Auth))
		r.Use(RateLimit(h.Limiter))

		r.Get("/v1/properties", h.listProperties)
		r.Get("/v1/properties/{id}", h.getProperty)

		admin := r.With(RequireScopes(ScopeAdminRateLimits))
		admin.Delete("/v1/admin/rate-limits/{kind}/{value}", h.resetRateLimit)
		admin.Post("/v1/admin/rate-limits/{kind}/{value}/decrement", h.decrementRateLimit)
		admin.Put("/v1/admin/rate-limits/{kind}/{value}/override", h.overrideRateLimit)
	})
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return "", nil, err
	}
	sum := sha1.Sum(body)
	return `W/"` + hex.EncodeToString(sum[:]) + `"`, body, nil
}

func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	etag, body, err := calcETagAndBody(v)
	if err != nil {
		writeError(w, r, err)
		return
	}
	// If client already has this version, short-circuit.
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("write body failed")
	}
}

func (h *Handlers) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handlers) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status, code := "ready", http.StatusOK
	services := make(map[string]string, len(h.Ready))
	for name, p := range h.Ready {
		if p == nil {
			services[name] = "disabled"
			continue
		}
		if err := p.Ping(ctx); err != nil {
			log.Warn().Err(err).Str("service", name).Msg("readiness check failed")
			services[name] = "error"
			status, code = "not_ready", http.StatusServiceUnavailable
			continue
		}
		services[name] = "ok"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{"status": status, "services": services})
}

func (h *Handlers) listProperties(w http.ResponseWriter, r *http.Request) {
	f, err := app.ParseFilters(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := h.Catalog.List(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, page)
}

func (h *Handlers) getProperty(w http.ResponseWriter, r *http.Request) {
	opt, err := app.ParseProjection(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.Catalog.Get(r.Context(), chi.URLParam(r, "id"), opt)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, p)
}

func (h *Handlers) resetRateLimit(w http.ResponseWriter, r *http.Request) {
	h.adminRateLimit(w, r, (*app.RateLimiter).Reset)
}

func (h *Handlers) decrementRateLimit(w http.ResponseWriter, r *http.Request) {
	h.adminRateLimit(w, r, (*app.RateLimiter).Decrement)
}

type overrideRequest struct {
	Limit *int64 `json:"limit"`
}

// overrideRateLimit sets a per-identity limit; {"limit": 0} removes it.
func (h *Handlers) overrideRateLimit(w http.ResponseWriter, r *http.Request) {
	var req overrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Limit == nil || *req.Limit < 0 {
		verr := &domain.ValidationError{}
		verr.Add("limit", "limit must be a non-negative integer")
		writeError(w, r, verr)
		return
	}
	h.adminRateLimit(w, r, func(l *app.RateLimiter, ctx context.Context, id domain.Identity) error {
		return l.SetOverride(ctx, id, *req.Limit)
	})
}

func (h *Handlers) adminRateLimit(w http.ResponseWriter, r *http.Request, op func(*app.RateLimiter, context.Context, domain.Identity) error) {
	if h.Limiter == nil {
		writeCode(w, r, http.StatusNotFound, codeNotFound, "rate limiting is disabled", nil)
		return
	}
	id, err := identityParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := op(h.Limiter, r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	log.Info().Str("identity", id.String()).Str("path", r.URL.Path).
		Str("request_id", RequestIDFrom(r.Context())).Msg("rate limit adjusted")
	w.WriteHeader(http.StatusNoContent)
}

func identityParam(r *http.Request) (domain.Identity, error) {
	verr := &domain.ValidationError{}
	kind := domain.IdentityKind(chi.URLParam(r, "kind"))
	switch kind {
	case domain.IdentityAPIKey, domain.IdentityOAuth, domain.IdentityIP:
	default:
		verr.Add("kind", "kind must be one of: api_key oauth ip")
	}
	value := chi.URLParam(r, "value")
	if value == "" {
		verr.Add("value", "value is required")
	}
	if err := verr.Err(); err != nil {
		return domain.Identity{}, err
	}
	return domain.Identity{Kind: kind, Value: value}, nil
}
