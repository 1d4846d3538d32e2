// Package dispatch maps a claimed job's declared type to a registered
// handler.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"

	"genworker/internal/domain"
)

// Handler executes one job and returns its result payload.
type Handler func(ctx context.Context, job *domain.Job) (json.RawMessage, error)

// UnsupportedTypeError is returned when no handler is registered for a job's
// declared type. Dispatch fails before any external state is touched so the
// compensation path runs cleanly.
type UnsupportedTypeError struct {
	Type string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("unsupported job type %q", e.Type)
}

// Registry holds the handler for each supported job type. Registration
// happens at startup; Dispatch is read-only afterwards.
type Registry struct {
	handlers map[domain.JobType]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[domain.JobType]Handler)}
}

func (r *Registry) Register(t domain.JobType, h Handler) {
	r.handlers[t] = h
}

// Supports reports whether a handler is registered for t. Push-mode intake
// uses it to reject unsupported actions before claiming anything.
func (r *Registry) Supports(t domain.JobType) bool {
	_, ok := r.handlers[t]
	return ok
}

// Dispatch invokes the handler matching job.Type.
func (r *Registry) Dispatch(ctx context.Context, job *domain.Job) (json.RawMessage, error) {
	h, ok := r.handlers[job.Type]
	if !ok {
		return nil, &UnsupportedTypeError{Type: string(job.Type)}
	}
	return h(ctx, job)
}
