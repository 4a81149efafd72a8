package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/wildfrostsss/Blood-pressure/internal/apperr"
	"github.com/wildfrostsss/Blood-pressure/internal/diary"
	"github.com/wildfrostsss/Blood-pressure/internal/offline"
	"github.com/wildfrostsss/Blood-pressure/internal/sse"
)

// Handler holds API route handlers.
type Handler struct {
	svc    *diary.Service
	mgr    *offline.Manager
	broker *sse.Broker
}

// NewHandler creates a new Handler. mgr and broker may be nil when the
// offline worker or event stream is disabled.
func NewHandler(svc *diary.Service, mgr *offline.Manager, broker *sse.Broker) *Handler {
	return &Handler{svc: svc, mgr: mgr, broker: broker}
}

// publishMeasurement broadcasts a collection change. kind is the short
// verb ("created" or "deleted"); the broker expands it to the full
// measurement.* event name.
func (h *Handler) publishMeasurement(kind, day string) {
	if h.broker != nil {
		h.broker.PublishMeasurementEvent(kind, day)
	}
}

// CreateMeasurement handles POST /api/measurements.
//
//	@Summary		Record a blood pressure measurement
//	@Tags			measurements
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateMeasurementRequest	true	"Measurement to record"
//	@Success		201		{object}	models.Measurement
//	@Failure		400		{object}	errResponse
//	@Router			/measurements [post]
func (h *Handler) CreateMeasurement(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req CreateMeasurementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	m, err := h.svc.Create(req.Systolic, req.Diastolic, req.Pulse, req.Datetime)
	if err != nil {
		if errors.Is(err, apperr.ErrInvalidInput) {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid datetime, expected YYYY-MM-DDTHH:MM"))
			return
		}
		slog.Error("create measurement failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("could not save measurement"))
		return
	}
	h.publishMeasurement("created", m.DayKey(h.svc.Location()))
	writeJSON(w, http.StatusCreated, m)
}

// ListByDay handles GET /api/measurements.
//
//	@Summary		List measurements recorded on a calendar day, newest first
//	@Tags			measurements
//	@Produce		json
//	@Param			date	query		string	true	"Day in YYYY-MM-DD"
//	@Success		200		{object}	MeasurementListResponse
//	@Failure		400		{object}	errResponse
//	@Router			/measurements [get]
func (h *Handler) ListByDay(w http.ResponseWriter, r *http.Request) {
	day := r.URL.Query().Get("date")
	if day == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'date' is required"))
		return
	}
	items, err := h.svc.QueryByDay(day)
	if err != nil {
		if errors.Is(err, apperr.ErrInvalidInput) {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid date, expected YYYY-MM-DD"))
			return
		}
		slog.Error("list measurements failed", slog.String("day", day), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"measurements": items,
	})
}

// ListByRange handles GET /api/measurements/range.
//
//	@Summary		List measurements inside a day range, oldest first
//	@Tags			measurements
//	@Produce		json
//	@Param			start	query		string	true	"First day in YYYY-MM-DD"
//	@Param			end		query		string	true	"Last day in YYYY-MM-DD, inclusive"
//	@Success		200		{object}	MeasurementListResponse
//	@Failure		400		{object}	errResponse
//	@Router			/measurements/range [get]
func (h *Handler) ListByRange(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, end := q.Get("start"), q.Get("end")
	if start == "" || end == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameters 'start' and 'end' are required"))
		return
	}
	items, err := h.svc.QueryByRange(start, end)
	if err != nil {
		if errors.Is(err, apperr.ErrInvalidInput) {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid date, expected YYYY-MM-DD"))
			return
		}
		slog.Error("range query failed", slog.String("start", start), slog.String("end", end), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"measurements": items,
	})
}

// ListDates handles GET /api/measurements/dates.
//
//	@Summary		List calendar days that have at least one measurement
//	@Tags			measurements
//	@Produce		json
//	@Success		200	{object}	DatesResponse
//	@Router			/measurements/dates [get]
func (h *Handler) ListDates(w http.ResponseWriter, r *http.Request) {
	set, err := h.svc.DatesWithMeasurements()
	if err != nil {
		slog.Error("list dates failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	days := make([]string, 0, len(set))
	for d := range set {
		days = append(days, d)
	}
	sort.Strings(days)
	writeJSON(w, http.StatusOK, map[string]any{
		"dates": days,
	})
}

// DeleteMeasurement handles DELETE /api/measurements/{id}.
//
//	@Summary		Delete a measurement by identifier
//	@Tags			measurements
//	@Param			id	path	string	true	"Measurement identifier"
//	@Success		204	"Measurement deleted"
//	@Failure		404	{object}	errResponse
//	@Router			/measurements/{id} [delete]
func (h *Handler) DeleteMeasurement(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("id is required"))
		return
	}

	// Capture the day before the record disappears so the event carries it.
	day := ""
	if all, err := h.svc.All(); err == nil {
		for _, m := range all {
			if m.ID == id {
				day = m.DayKey(h.svc.Location())
				break
			}
		}
	}

	removed, err := h.svc.Delete(id)
	if err != nil {
		slog.Error("delete measurement failed", slog.String("id", id), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if !removed {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	h.publishMeasurement("deleted", day)
	w.WriteHeader(http.StatusNoContent)
}

// GetTheme handles GET /api/theme.
//
//	@Summary		Get the stored UI theme preference
//	@Tags			theme
//	@Produce		json
//	@Success		200	{object}	ThemeResponse
//	@Router			/theme [get]
func (h *Handler) GetTheme(w http.ResponseWriter, r *http.Request) {
	theme, explicit, err := h.svc.ThemePreference()
	if err != nil {
		slog.Error("load theme failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, ThemeResponse{Theme: theme, Explicit: explicit})
}

// SetTheme handles PUT /api/theme.
//
//	@Summary		Switch the UI theme
//	@Tags			theme
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SetThemeRequest	true	"Theme to store"
//	@Success		200		{object}	ThemeResponse
//	@Failure		400		{object}	errResponse
//	@Router			/theme [put]
func (h *Handler) SetTheme(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 4<<10)
	var req SetThemeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := h.svc.SetTheme(req.Theme); err != nil {
		if errors.Is(err, apperr.ErrInvalidInput) {
			writeJSON(w, http.StatusBadRequest, errorBody("theme must be 'light' or 'dark'"))
			return
		}
		slog.Error("save theme failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, ThemeResponse{Theme: req.Theme, Explicit: true})
}

// SkipWaiting handles POST /api/worker/skip-waiting.
//
//	@Summary		Activate a waiting offline cache version immediately
//	@Tags			worker
//	@Produce		json
//	@Success		200	{object}	WorkerResponse
//	@Router			/worker/skip-waiting [post]
func (h *Handler) SkipWaiting(w http.ResponseWriter, r *http.Request) {
	if h.mgr == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("offline worker disabled"))
		return
	}
	activated, err := h.mgr.SkipWaiting(r.Context())
	if err != nil {
		slog.Error("skip waiting failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, WorkerResponse{
		State:     h.mgr.State().String(),
		Bucket:    h.mgr.CurrentBucket(),
		Activated: activated,
	})
}
