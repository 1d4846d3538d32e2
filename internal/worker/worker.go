// Package worker ties the job store, dispatcher and compensator together:
// claim (or accept) a job, dispatch it, then write exactly one terminal
// status. Failures always route through the compensator exactly once.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"genworker/internal/domain"
	"genworker/internal/providers/genai"
	"genworker/internal/retry"
)

// JobStore is the slice of the job store adapter the worker consumes.
type JobStore interface {
	ClaimNext(ctx context.Context) (*domain.Job, error)
	Complete(ctx context.Context, id string, result json.RawMessage) error
	Fail(ctx context.Context, id, errorMessage string) error
	Cancel(ctx context.Context, id, reason string) (bool, error)
	Refund(ctx context.Context, userID, jobID string, amount int, reason string) error
}

// Dispatcher maps a job to its handler.
type Dispatcher interface {
	Dispatch(ctx context.Context, job *domain.Job) (json.RawMessage, error)
}

// Options tunes compensation policy.
type Options struct {
	// RefundOnFailure extends the refund to hard failures as well. The
	// default refunds only overload cancellations, where the spend was not
	// the user's fault.
	RefundOnFailure bool
}

type Worker struct {
	store      JobStore
	dispatcher Dispatcher
	logger     zerolog.Logger
	opts       Options
}

func New(store JobStore, dispatcher Dispatcher, logger zerolog.Logger, opts Options) *Worker {
	return &Worker{store: store, dispatcher: dispatcher, logger: logger, opts: opts}
}

// ProcessNext claims and processes one job. The bool reports whether a job
// was claimed; (false, nil) is the normal empty-queue condition. A claim
// failure is a store-access error, distinct from an empty queue.
func (w *Worker) ProcessNext(ctx context.Context) (bool, error) {
	job, err := w.store.ClaimNext(ctx)
	if err != nil {
		return false, fmt.Errorf("claim next job: %w", err)
	}
	if job == nil {
		return false, nil
	}
	return true, w.Process(ctx, job)
}

// Process executes one claimed job. Exactly one terminal status write
// happens per call: the success path marks the job completed, any failure is
// routed through compensation, which marks it failed or cancelled.
func (w *Worker) Process(ctx context.Context, job *domain.Job) error {
	logger := w.logger.With().
		Str("job_id", job.ID).
		Str("job_type", string(job.Type)).
		Str("execution_id", uuid.NewString()).
		Logger()
	logger.Info().Int("attempts", job.Attempts).Msg("worker: picked job")

	result, err := w.dispatcher.Dispatch(ctx, job)
	if err == nil {
		if completeErr := w.store.Complete(ctx, job.ID, result); completeErr != nil {
			if errors.Is(completeErr, domain.ErrAlreadyTerminal) {
				logger.Warn().Msg("worker: job already finished elsewhere, result discarded")
				return nil
			}
			// Best effort: without a terminal write the row stays stuck in
			// processing. If the store is down this will fail too, and the row
			// is recovered operationally.
			if failErr := w.store.Fail(ctx, job.ID, "persist completion: "+completeErr.Error()); failErr != nil && !errors.Is(failErr, domain.ErrAlreadyTerminal) {
				logger.Error().Err(failErr).Msg("worker: terminal write failed after completion error")
			}
			return fmt.Errorf("persist completion: %w", completeErr)
		}
		logger.Info().Msg("worker: job completed")
		return nil
	}

	logger.Error().Err(err).Msg("worker: job failed")
	w.compensate(ctx, logger, job, err)
	return err
}

// compensate classifies the terminal failure and writes the matching end
// state. Exhausted transient overload cancels the job and returns the user's
// spend; everything else marks the job failed. It is safe to call with a
// partially populated job.
func (w *Worker) compensate(ctx context.Context, logger zerolog.Logger, job *domain.Job, cause error) {
	if job == nil || job.ID == "" {
		logger.Error().Err(cause).Msg("worker: cannot compensate without a job id")
		return
	}

	if genai.IsTransient(cause) {
		reason := "generation backend overloaded: " + cause.Error()
		changed, err := w.store.Cancel(ctx, job.ID, reason)
		if err != nil {
			logger.Error().Err(err).Msg("worker: cancel failed")
			return
		}
		if !changed {
			logger.Warn().Msg("worker: job already compensated elsewhere")
			return
		}
		w.refund(ctx, logger, job, "generation backend overloaded")
		return
	}

	message := cause.Error()
	var exhausted *retry.ExhaustedError
	if errors.As(cause, &exhausted) {
		message = exhausted.Error()
	}
	if err := w.store.Fail(ctx, job.ID, message); err != nil {
		if errors.Is(err, domain.ErrAlreadyTerminal) {
			logger.Warn().Msg("worker: job already compensated elsewhere")
			return
		}
		logger.Error().Err(err).Msg("worker: fail write failed")
		return
	}
	if w.opts.RefundOnFailure {
		w.refund(ctx, logger, job, "job failed")
	}
}

func (w *Worker) refund(ctx context.Context, logger zerolog.Logger, job *domain.Job, reason string) {
	if job.CreditsUsed <= 0 || job.UserID == "" {
		return
	}
	if err := w.store.Refund(ctx, job.UserID, job.ID, job.CreditsUsed, reason); err != nil {
		logger.Error().Err(err).Msg("worker: refund failed")
	}
}
