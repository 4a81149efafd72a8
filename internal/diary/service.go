// Package diary implements the measurement store: durable persistence and
// temporal querying of blood-pressure records over a key-value provider.
package diary

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/wildfrostsss/Blood-pressure/internal/apperr"
	"github.com/wildfrostsss/Blood-pressure/internal/dates"
	"github.com/wildfrostsss/Blood-pressure/internal/models"
	"github.com/wildfrostsss/Blood-pressure/internal/storage"
)

// Storage keys for the persisted collection and the theme preference.
const (
	MeasurementsKey = "blood_pressure_measurements"
	ThemeKey        = "blood_pressure_theme"
)

// Themes.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// Service owns the measurement collection. All operations load the full
// collection, transform it, and write it back; record counts stay small
// (a few per day) so full scans are the intended design, not a shortcut.
type Service struct {
	store storage.Provider
	loc   *time.Location
}

// NewService creates a diary service. Day boundaries, range bounds and the
// dates-with-measurements projection all use loc.
func NewService(store storage.Provider, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{store: store, loc: loc}
}

// Location returns the calendar-day location the service was pinned to.
func (s *Service) Location() *time.Location {
	return s.loc
}

// load reads the full collection. A missing key yields an empty
// collection; so does a corrupt payload, which is logged and otherwise
// treated as empty rather than crashing.
func (s *Service) load() ([]models.Measurement, error) {
	data, err := s.store.Get(MeasurementsKey)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return []models.Measurement{}, nil
		}
		return nil, fmt.Errorf("diary: load collection: %w", err)
	}
	var out []models.Measurement
	if err := json.Unmarshal(data, &out); err != nil {
		slog.Warn("diary: corrupt measurement collection, treating as empty",
			slog.String("error", err.Error()))
		return []models.Measurement{}, nil
	}
	if out == nil {
		out = []models.Measurement{}
	}
	return out, nil
}

// save writes the full collection back. Write failures (quota, disabled
// storage) surface to the caller.
func (s *Service) save(all []models.Measurement) error {
	data, err := json.Marshal(all)
	if err != nil {
		return fmt.Errorf("diary: encode collection: %w", err)
	}
	if err := s.store.Set(MeasurementsKey, data); err != nil {
		return fmt.Errorf("diary: save collection: %w", err)
	}
	return nil
}

// assignIDs gives records persisted by older builds a stable identifier.
// Returns true when any record was changed.
func assignIDs(all []models.Measurement) bool {
	changed := false
	for i := range all {
		if all[i].ID == "" {
			all[i].ID = uuid.NewString()
			changed = true
		}
	}
	return changed
}

// Create appends a new measurement and persists the collection. The
// datetime must be a minute-precision timestamp; clinical range checks are
// the caller's responsibility.
func (s *Service) Create(systolic, diastolic, pulse int, datetime string) (*models.Measurement, error) {
	if _, err := dates.Parse(datetime, s.loc); err != nil {
		return nil, fmt.Errorf("diary: %w: %v", apperr.ErrInvalidInput, err)
	}

	all, err := s.load()
	if err != nil {
		return nil, err
	}
	assignIDs(all)

	m := models.Measurement{
		ID:        uuid.NewString(),
		Systolic:  systolic,
		Diastolic: diastolic,
		Pulse:     pulse,
		Datetime:  datetime,
	}
	all = append(all, m)

	if err := s.save(all); err != nil {
		return nil, err
	}
	return &m, nil
}

// QueryByDay returns every measurement on the given local calendar day,
// sorted newest-first. An unknown day yields an empty slice, never an
// error.
func (s *Service) QueryByDay(day string) ([]models.Measurement, error) {
	if _, err := dates.ParseDay(day, s.loc); err != nil {
		return nil, fmt.Errorf("diary: %w: %v", apperr.ErrInvalidInput, err)
	}

	all, err := s.load()
	if err != nil {
		return nil, err
	}

	out := []models.Measurement{}
	for _, m := range all {
		if m.DayKey(s.loc) == day {
			out = append(out, m)
		}
	}
	s.sortByTime(out, false)
	return out, nil
}

// QueryByRange returns every measurement between startDay 00:00:00 and
// endDay 23:59:59.999 inclusive, sorted oldest-first for chronological
// charting. A degenerate window (start after end) yields an empty slice.
func (s *Service) QueryByRange(startDay, endDay string) ([]models.Measurement, error) {
	start, err := dates.ParseDay(startDay, s.loc)
	if err != nil {
		return nil, fmt.Errorf("diary: %w: %v", apperr.ErrInvalidInput, err)
	}
	end, err := dates.ParseDay(endDay, s.loc)
	if err != nil {
		return nil, fmt.Errorf("diary: %w: %v", apperr.ErrInvalidInput, err)
	}
	end = dates.EndOfDay(end)

	all, err := s.load()
	if err != nil {
		return nil, err
	}

	out := []models.Measurement{}
	for _, m := range all {
		t, err := m.Time(s.loc)
		if err != nil {
			continue
		}
		if t.Before(start) || t.After(end) {
			continue
		}
		out = append(out, m)
	}
	s.sortByTime(out, true)
	return out, nil
}

// Delete removes the measurement with the given identifier. Returns false
// when no record matches; the collection is left unchanged in that case.
func (s *Service) Delete(id string) (bool, error) {
	all, err := s.load()
	if err != nil {
		return false, err
	}
	migrated := assignIDs(all)

	idx := -1
	for i, m := range all {
		if m.ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		if migrated {
			// Persist the assigned identifiers even when the delete
			// itself missed.
			if err := s.save(all); err != nil {
				return false, err
			}
		}
		return false, nil
	}

	all = append(all[:idx], all[idx+1:]...)
	if err := s.save(all); err != nil {
		return false, err
	}
	return true, nil
}

// All returns the full collection in stored order.
func (s *Service) All() ([]models.Measurement, error) {
	return s.load()
}

// Import appends records from a backup, assigning fresh identifiers so an
// import can never collide with or overwrite existing records. Returns the
// number of records added.
func (s *Service) Import(records []models.Measurement) (int, error) {
	added := 0
	all, err := s.load()
	if err != nil {
		return 0, err
	}
	assignIDs(all)
	for _, m := range records {
		if _, err := dates.Parse(m.Datetime, s.loc); err != nil {
			continue
		}
		m.ID = uuid.NewString()
		all = append(all, m)
		added++
	}
	if added == 0 {
		return 0, nil
	}
	if err := s.save(all); err != nil {
		return 0, err
	}
	return added, nil
}

// DatesWithMeasurements projects the collection onto the set of calendar
// days that have at least one record. Recomputed on demand, never
// persisted.
func (s *Service) DatesWithMeasurements() (map[string]struct{}, error) {
	all, err := s.load()
	if err != nil {
		return nil, err
	}
	out := make(map[string]struct{}, len(all))
	for _, m := range all {
		if key := m.DayKey(s.loc); key != "" {
			out[key] = struct{}{}
		}
	}
	return out, nil
}

// ThemePreference returns the stored theme and whether the user ever
// chose one explicitly. An absent or corrupt value reads as the light
// default with explicit=false, which lets the client substitute the
// system color scheme instead.
func (s *Service) ThemePreference() (string, bool, error) {
	data, err := s.store.Get(ThemeKey)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return ThemeLight, false, nil
		}
		return "", false, fmt.Errorf("diary: load theme: %w", err)
	}
	var theme string
	if err := json.Unmarshal(data, &theme); err != nil || (theme != ThemeLight && theme != ThemeDark) {
		return ThemeLight, false, nil
	}
	return theme, true, nil
}

// Theme returns the stored theme preference, defaulting to light.
func (s *Service) Theme() (string, error) {
	theme, _, err := s.ThemePreference()
	return theme, err
}

// SetTheme persists the theme preference.
func (s *Service) SetTheme(theme string) error {
	if theme != ThemeLight && theme != ThemeDark {
		return fmt.Errorf("diary: %w: unknown theme %q", apperr.ErrInvalidInput, theme)
	}
	data, _ := json.Marshal(theme)
	if err := s.store.Set(ThemeKey, data); err != nil {
		return fmt.Errorf("diary: save theme: %w", err)
	}
	return nil
}

// sortByTime orders measurements by their parsed timestamp. Records whose
// timestamps fail to parse sort last in either direction.
func (s *Service) sortByTime(ms []models.Measurement, ascending bool) {
	key := func(m models.Measurement) (time.Time, bool) {
		t, err := m.Time(s.loc)
		return t, err == nil
	}
	sort.SliceStable(ms, func(i, j int) bool {
		ti, oki := key(ms[i])
		tj, okj := key(ms[j])
		if oki != okj {
			return oki
		}
		if ascending {
			return ti.Before(tj)
		}
		return ti.After(tj)
	})
}
