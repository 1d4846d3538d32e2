package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"genworker/internal/dispatch"
	"genworker/internal/domain"
)

const testJobID = "6f9619ff-8b86-4d01-b42d-00c04fc964ff"

type fakeProcessor struct {
	nextProcessed bool
	nextErr       error
	processErr    error
	processedJobs []*domain.Job
	nextCalls     int
}

func (p *fakeProcessor) ProcessNext(ctx context.Context) (bool, error) {
	p.nextCalls++
	return p.nextProcessed, p.nextErr
}

func (p *fakeProcessor) Process(ctx context.Context, job *domain.Job) error {
	p.processedJobs = append(p.processedJobs, job)
	return p.processErr
}

type fakeIntake struct {
	claimJob *domain.Job
	claimErr error
	getJob   *domain.Job
	getErr   error
}

func (f *fakeIntake) ClaimByID(ctx context.Context, id string) (*domain.Job, error) {
	if f.claimErr != nil && errors.Is(f.claimErr, domain.ErrAlreadyProcessed) {
		return f.getJob, f.claimErr
	}
	return f.claimJob, f.claimErr
}

func (f *fakeIntake) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	return f.getJob, f.getErr
}

func newTestApp(processor *fakeProcessor, intake *fakeIntake) *App {
	registry := dispatch.NewRegistry()
	registry.Register(domain.JobTypeGenerateImage, func(ctx context.Context, job *domain.Job) (json.RawMessage, error) {
		return nil, nil
	})
	return NewApp(zerolog.New(io.Discard), "topsecret", intake, processor, registry)
}

func doProcess(app *App, body, secret string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/process", strings.NewReader(body))
	if secret != "" {
		req.Header.Set(workerSecretHeader, secret)
	}
	rec := httptest.NewRecorder()
	app.Process(rec, req)
	return rec
}

func TestProcessRejectsBadCredential(t *testing.T) {
	processor := &fakeProcessor{}
	app := newTestApp(processor, &fakeIntake{})

	for _, secret := range []string{"", "wrong"} {
		rec := doProcess(app, "", secret)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("secret %q: status = %d, want 401", secret, rec.Code)
		}
	}
	if processor.nextCalls != 0 || len(processor.processedJobs) != 0 {
		t.Fatal("nothing may run before the credential check")
	}
}

func TestProcessPullEmptyQueue(t *testing.T) {
	app := newTestApp(&fakeProcessor{}, &fakeIntake{})

	rec := doProcess(app, "", "topsecret")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
}

func TestProcessPullSuccess(t *testing.T) {
	app := newTestApp(&fakeProcessor{nextProcessed: true}, &fakeIntake{})

	rec := doProcess(app, "", "topsecret")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestProcessPullFailure(t *testing.T) {
	app := newTestApp(&fakeProcessor{nextProcessed: true, nextErr: errors.New("boom")}, &fakeIntake{})

	rec := doProcess(app, "", "topsecret")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

func TestProcessPushUnsupportedAction(t *testing.T) {
	processor := &fakeProcessor{}
	app := newTestApp(processor, &fakeIntake{})

	rec := doProcess(app, `{"job_id":"`+testJobID+`","action":"generate-video"}`, "topsecret")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if len(processor.processedJobs) != 0 {
		t.Fatal("unsupported action must have no side effects")
	}
}

func TestProcessPushInvalidJobID(t *testing.T) {
	app := newTestApp(&fakeProcessor{}, &fakeIntake{})

	rec := doProcess(app, `{"job_id":"not-a-uuid","action":"generate-image"}`, "topsecret")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestProcessPushIdempotentResubmission(t *testing.T) {
	processor := &fakeProcessor{}
	intake := &fakeIntake{
		claimErr: domain.ErrAlreadyProcessed,
		getJob:   &domain.Job{ID: testJobID, Status: domain.JobStatusCompleted},
	}
	app := newTestApp(processor, intake)

	rec := doProcess(app, `{"job_id":"`+testJobID+`","action":"generate-image"}`, "topsecret")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "completed" {
		t.Fatalf("status = %q, want completed", body["status"])
	}
	if len(processor.processedJobs) != 0 {
		t.Fatal("terminal job must not be re-executed")
	}
}

func TestProcessPushUnknownJob(t *testing.T) {
	app := newTestApp(&fakeProcessor{}, &fakeIntake{claimErr: domain.ErrNotFound})

	rec := doProcess(app, `{"job_id":"`+testJobID+`","action":"generate-image"}`, "topsecret")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestProcessPushHappyPath(t *testing.T) {
	processor := &fakeProcessor{}
	intake := &fakeIntake{claimJob: &domain.Job{
		ID:     testJobID,
		Type:   domain.JobTypeGenerateImage,
		Status: domain.JobStatusProcessing,
	}}
	app := newTestApp(processor, intake)

	body := `{"job_id":"` + testJobID + `","action":"generate-image","payload":{"prompt":"a red cube"},"user_id":"u1","cost":5}`
	rec := doProcess(app, body, "topsecret")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(processor.processedJobs) != 1 {
		t.Fatalf("processed %d jobs, want 1", len(processor.processedJobs))
	}
	job := processor.processedJobs[0]
	if string(job.Input) != `{"prompt":"a red cube"}` {
		t.Fatalf("input = %s", job.Input)
	}
	if job.UserID != "u1" || job.CreditsUsed != 5 {
		t.Fatalf("job = %+v", job)
	}
}

func TestProcessPushJobFailure(t *testing.T) {
	processor := &fakeProcessor{processErr: errors.New("backend exploded")}
	intake := &fakeIntake{claimJob: &domain.Job{
		ID:     testJobID,
		Type:   domain.JobTypeGenerateImage,
		Status: domain.JobStatusProcessing,
	}}
	app := newTestApp(processor, intake)

	rec := doProcess(app, `{"job_id":"`+testJobID+`","action":"generate-image"}`, "topsecret")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "exploded") {
		t.Fatal("error detail must not leak into the response body")
	}
}

func TestProcessInvalidJSONBody(t *testing.T) {
	app := newTestApp(&fakeProcessor{}, &fakeIntake{})

	rec := doProcess(app, "{not json", "topsecret")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestRootHealth(t *testing.T) {
	app := newTestApp(&fakeProcessor{}, &fakeIntake{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	app.Root(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Fatalf("status = %d body = %q", rec.Code, rec.Body.String())
	}
}
