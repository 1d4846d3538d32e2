package handlers

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"

	"genworker/internal/domain"
)

const (
	workerSecretHeader = "x-worker-secret"
	maxProcessBody     = 1 << 20
)

type processRequest struct {
	JobID   string          `json:"job_id"`
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload"`
	UserID  string          `json:"user_id"`
	Cost    int             `json:"cost"`
}

// Process is the intake endpoint. An empty body claims the next pending job
// (pull mode); a body naming a job processes that specific job (push mode).
// The shared-secret credential is checked before any job state is touched.
func (a *App) Process(w http.ResponseWriter, r *http.Request) {
	if !a.authorized(r) {
		a.json(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxProcessBody))
	if err != nil {
		a.json(w, http.StatusBadRequest, map[string]string{"error": "read body"})
		return
	}

	var req processRequest
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			a.json(w, http.StatusBadRequest, map[string]string{"error": "invalid json body"})
			return
		}
	}

	if req.JobID == "" && req.Action == "" {
		a.processPull(w, r)
		return
	}
	a.processPush(w, r, req)
}

func (a *App) processPull(w http.ResponseWriter, r *http.Request) {
	processed, err := a.Processor.ProcessNext(r.Context())
	if !processed && err == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		// Detail lives on the job record; the response stays coarse.
		a.json(w, http.StatusInternalServerError, map[string]string{"error": "processing failed"})
		return
	}
	a.json(w, http.StatusOK, map[string]string{"status": string(domain.JobStatusCompleted)})
}

func (a *App) processPush(w http.ResponseWriter, r *http.Request, req processRequest) {
	if !a.Registry.Supports(domain.JobType(req.Action)) {
		a.json(w, http.StatusBadRequest, map[string]string{
			"error": fmt.Sprintf("unsupported action %q", req.Action),
		})
		return
	}
	if _, err := uuid.Parse(req.JobID); err != nil {
		a.json(w, http.StatusBadRequest, map[string]string{"error": "invalid job_id"})
		return
	}

	job, err := a.Jobs.ClaimByID(r.Context(), req.JobID)
	switch {
	case errors.Is(err, domain.ErrAlreadyProcessed):
		// Duplicate submission: answer with the current state, run nothing.
		a.json(w, http.StatusOK, map[string]string{
			"job_id": req.JobID,
			"status": string(job.Status),
		})
		return
	case errors.Is(err, domain.ErrNotFound):
		a.json(w, http.StatusNotFound, map[string]string{"error": "unknown job"})
		return
	case err != nil:
		a.Logger.Error().Err(err).Str("job_id", req.JobID).Msg("http: claim failed")
		a.json(w, http.StatusInternalServerError, map[string]string{"error": "claim failed"})
		return
	}

	// The stored row is canonical; caller-supplied fields only fill gaps.
	if len(job.Input) == 0 || bytes.Equal(bytes.TrimSpace(job.Input), []byte("null")) {
		job.Input = req.Payload
	}
	if job.UserID == "" {
		job.UserID = req.UserID
	}
	if job.CreditsUsed == 0 {
		job.CreditsUsed = req.Cost
	}

	if err := a.Processor.Process(r.Context(), job); err != nil {
		a.json(w, http.StatusInternalServerError, map[string]string{
			"job_id": job.ID,
			"error":  "job failed",
		})
		return
	}
	a.json(w, http.StatusOK, map[string]string{
		"job_id": job.ID,
		"status": string(domain.JobStatusCompleted),
	})
}

func (a *App) authorized(r *http.Request) bool {
	if a.Secret == "" {
		return false
	}
	provided := r.Header.Get(workerSecretHeader)
	return subtle.ConstantTimeCompare([]byte(provided), []byte(a.Secret)) == 1
}
