package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/wildfrostsss/Blood-pressure/internal/models"
)

// CreateMeasurementRequest is the request body for recording a measurement.
type CreateMeasurementRequest struct {
	Systolic  int    `json:"systolic" example:"120" validate:"required"`
	Diastolic int    `json:"diastolic" example:"80" validate:"required"`
	Pulse     int    `json:"pulse" example:"70" validate:"required"`
	Datetime  string `json:"datetime" example:"2024-03-01T08:30" validate:"required"`
}

// Validate checks the readings against physiologically plausible ranges.
func (r CreateMeasurementRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Systolic, validation.Required, validation.Min(50), validation.Max(250)),
		validation.Field(&r.Diastolic, validation.Required, validation.Min(30), validation.Max(150)),
		validation.Field(&r.Pulse, validation.Required, validation.Min(30), validation.Max(220)),
		validation.Field(&r.Datetime, validation.Required),
	)
}

// MeasurementListResponse wraps a list of measurements.
type MeasurementListResponse struct {
	Measurements []models.Measurement `json:"measurements" validate:"required"`
}

// DatesResponse lists the days that have at least one measurement.
type DatesResponse struct {
	Dates []string `json:"dates" validate:"required"`
}

// ThemeResponse carries the current UI theme. Explicit is false until
// the user has chosen one; the client then follows the system color
// scheme instead of the light default.
type ThemeResponse struct {
	Theme    string `json:"theme" example:"light" validate:"required"`
	Explicit bool   `json:"explicit" validate:"required"`
}

// SetThemeRequest is the request body for switching the UI theme.
type SetThemeRequest struct {
	Theme string `json:"theme" example:"dark" validate:"required"`
}

// ImportResponse reports the outcome of a diary import.
type ImportResponse struct {
	Imported int `json:"imported" example:"12" validate:"required"`
}

// WorkerResponse reports the offline worker state after a lifecycle request.
type WorkerResponse struct {
	State     string `json:"state" example:"active" validate:"required"`
	Bucket    string `json:"bucket,omitempty" example:"blood-pressure-diary-1a2b3c4d5e6f"`
	Activated bool   `json:"activated" validate:"required"`
}
