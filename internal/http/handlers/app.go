package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"genworker/internal/dispatch"
	"genworker/internal/domain"
	"genworker/internal/infra"
)

// JobProcessor runs jobs through the claim/dispatch/compensate protocol.
type JobProcessor interface {
	ProcessNext(ctx context.Context) (bool, error)
	Process(ctx context.Context, job *domain.Job) error
}

// JobIntake claims and reads jobs for push-mode submissions.
type JobIntake interface {
	ClaimByID(ctx context.Context, id string) (*domain.Job, error)
	GetByID(ctx context.Context, id string) (*domain.Job, error)
}

// App bundles the dependencies the HTTP layer needs. Everything is injected
// so tests can substitute fakes.
type App struct {
	Logger    infra.Logger
	Secret    string
	Jobs      JobIntake
	Processor JobProcessor
	Registry  *dispatch.Registry
}

func NewApp(logger infra.Logger, secret string, jobs JobIntake, processor JobProcessor, registry *dispatch.Registry) *App {
	return &App{
		Logger:    logger,
		Secret:    secret,
		Jobs:      jobs,
		Processor: processor,
		Registry:  registry,
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
