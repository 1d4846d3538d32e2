package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"genworker/internal/domain"
)

type jobStatusResponse struct {
	JobID  string          `json:"job_id"`
	Status string          `json:"status"`
	Error  string          `json:"error,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
}

// JobStatus reports the current state of a job so submitters can poll a
// push-mode job they handed off.
func (a *App) JobStatus(w http.ResponseWriter, r *http.Request) {
	if !a.authorized(r) {
		a.json(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		a.json(w, http.StatusBadRequest, map[string]string{"error": "invalid job id"})
		return
	}

	job, err := a.Jobs.GetByID(r.Context(), id)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		a.json(w, http.StatusNotFound, map[string]string{"error": "unknown job"})
		return
	case err != nil:
		a.Logger.Error().Err(err).Str("job_id", id).Msg("http: job lookup failed")
		a.json(w, http.StatusInternalServerError, map[string]string{"error": "lookup failed"})
		return
	}

	a.json(w, http.StatusOK, jobStatusResponse{
		JobID:  job.ID,
		Status: string(job.Status),
		Error:  job.ErrorMessage,
		Result: job.Result,
	})
}
