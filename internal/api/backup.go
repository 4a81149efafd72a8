package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/wildfrostsss/Blood-pressure/internal/models"
)

const maxImportBytes = 10 << 20 // 10 MB

// backupFile is the on-disk shape of an exported diary.
type backupFile struct {
	ExportedAt   string               `json:"exported_at"`
	Measurements []models.Measurement `json:"measurements"`
}

// Export handles GET /api/export. The response downloads as a JSON file
// that Import accepts unchanged.
//
//	@Summary		Download the full diary as a JSON backup
//	@Tags			backup
//	@Produce		json
//	@Success		200	{object}	backupFile
//	@Router			/export [get]
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	all, err := h.svc.All()
	if err != nil {
		slog.Error("export failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if all == nil {
		all = []models.Measurement{}
	}
	w.Header().Set("Content-Disposition", `attachment; filename="blood-pressure-backup.json"`)
	writeJSON(w, http.StatusOK, backupFile{
		ExportedAt:   time.Now().UTC().Format(time.RFC3339),
		Measurements: all,
	})
}

// Import handles POST /api/import (multipart/form-data, field "file").
// Records get fresh identifiers on the way in; entries with unparseable
// timestamps are skipped rather than failing the whole import.
//
//	@Summary		Import measurements from a JSON backup
//	@Tags			backup
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file	true	"Backup file"
//	@Success		200		{object}	ImportResponse
//	@Failure		400		{object}	errResponse
//	@Router			/import [post]
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)

	if err := r.ParseMultipartForm(maxImportBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read file"))
		return
	}

	records, err := decodeBackup(data)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("not a recognizable backup file"))
		return
	}

	added, err := h.svc.Import(records)
	if err != nil {
		slog.Error("import failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	day := ""
	if added > 0 && len(records) > 0 {
		day = records[0].DayKey(h.svc.Location())
	}
	if added > 0 {
		h.publishMeasurement("created", day)
	}
	writeJSON(w, http.StatusOK, ImportResponse{Imported: added})
}

// decodeBackup accepts either the Export envelope or a bare measurement
// array, so hand-edited files still import.
func decodeBackup(data []byte) ([]models.Measurement, error) {
	var envelope backupFile
	if err := json.Unmarshal(data, &envelope); err == nil && envelope.Measurements != nil {
		return envelope.Measurements, nil
	}
	var bare []models.Measurement
	if err := json.Unmarshal(data, &bare); err != nil {
		return nil, err
	}
	return bare, nil
}
