package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wildfrostsss/Blood-pressure/internal/diary"
	"github.com/wildfrostsss/Blood-pressure/internal/offline"
	"github.com/wildfrostsss/Blood-pressure/internal/sse"
)

// NewRouter creates a chi router with all API routes mounted.
// mgr may be nil when the offline worker is disabled; the skip-waiting
// endpoint then reports 503. sseHandler, if non-nil, is mounted at
// GET /events.
func NewRouter(svc *diary.Service, mgr *offline.Manager, broker *sse.Broker, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc, mgr, broker)

	r := chi.NewRouter()

	// Measurements.
	r.Post("/measurements", h.CreateMeasurement)
	r.Get("/measurements", h.ListByDay)
	r.Get("/measurements/range", h.ListByRange)
	r.Get("/measurements/dates", h.ListDates)
	r.Delete("/measurements/{id}", h.DeleteMeasurement)

	// Theme preference.
	r.Get("/theme", h.GetTheme)
	r.Put("/theme", h.SetTheme)

	// Backup.
	r.Get("/export", h.Export)
	r.Post("/import", h.Import)

	// Offline worker lifecycle.
	r.Post("/worker/skip-waiting", h.SkipWaiting)

	// SSE endpoint.
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
