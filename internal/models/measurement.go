// Package models defines the domain types for the blood-pressure diary.
package models

import (
	"time"

	"github.com/wildfrostsss/Blood-pressure/internal/dates"
)

// Measurement is the sole persisted entity: one blood-pressure/pulse
// reading taken at a minute-precision point in time.
//
// ID is a generated UUID assigned at creation. Arrays written by older
// builds carry no id field; those records are assigned IDs the next time
// the collection is loaded for mutation.
type Measurement struct {
	ID        string `json:"id,omitempty"`
	Systolic  int    `json:"systolic"`
	Diastolic int    `json:"diastolic"`
	Pulse     int    `json:"pulse"`
	Datetime  string `json:"datetime"`
}

// Time parses the measurement timestamp in the given location.
func (m Measurement) Time(loc *time.Location) (time.Time, error) {
	return dates.Parse(m.Datetime, loc)
}

// DayKey returns the YYYY-MM-DD calendar day the measurement falls on
// in the given location, or "" when the timestamp does not parse.
func (m Measurement) DayKey(loc *time.Location) string {
	t, err := dates.Parse(m.Datetime, loc)
	if err != nil {
		return ""
	}
	return dates.DayKey(t)
}

// EpochMillis returns the millisecond-epoch value of the timestamp,
// used for chart axes. It is not an identity key; that is ID.
func (m Measurement) EpochMillis(loc *time.Location) int64 {
	t, err := dates.Parse(m.Datetime, loc)
	if err != nil {
		return 0
	}
	return dates.EpochMillis(t)
}
