package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/epiledger/internal/recordservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *recordservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Records.
	r.Get("/records", h.ListRecords)
	r.Post("/records", h.CreateRecord)

	// Analysis.
	r.Get("/risk-zones", h.RiskZones)
	r.Get("/hotspot", h.Hotspot)
	r.Get("/totals", h.Totals)
	r.Get("/trends", h.Trends)
	r.Get("/trends/{city}", h.Trend)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
