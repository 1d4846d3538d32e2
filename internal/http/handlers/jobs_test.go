package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"genworker/internal/domain"
)

func doJobStatus(app *App, id, secret string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/v1/jobs/"+id, nil)
	if secret != "" {
		req.Header.Set(workerSecretHeader, secret)
	}
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	rec := httptest.NewRecorder()
	app.JobStatus(rec, req)
	return rec
}

func TestJobStatusRequiresCredential(t *testing.T) {
	app := newTestApp(&fakeProcessor{}, &fakeIntake{})

	rec := doJobStatus(app, testJobID, "wrong")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestJobStatusReportsTerminalState(t *testing.T) {
	intake := &fakeIntake{getJob: &domain.Job{
		ID:           testJobID,
		Status:       domain.JobStatusCancelled,
		ErrorMessage: "generation backend overloaded",
	}}
	app := newTestApp(&fakeProcessor{}, intake)

	rec := doJobStatus(app, testJobID, "topsecret")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body jobStatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.JobID != testJobID || body.Status != "cancelled" {
		t.Fatalf("body = %+v", body)
	}
	if body.Error != "generation backend overloaded" {
		t.Fatalf("error = %q", body.Error)
	}
}

func TestJobStatusUnknownJob(t *testing.T) {
	app := newTestApp(&fakeProcessor{}, &fakeIntake{getErr: domain.ErrNotFound})

	rec := doJobStatus(app, testJobID, "topsecret")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestJobStatusInvalidID(t *testing.T) {
	app := newTestApp(&fakeProcessor{}, &fakeIntake{})

	rec := doJobStatus(app, "not-a-uuid", "topsecret")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
