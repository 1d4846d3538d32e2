// Package jobstore adapts the shared Postgres job table. All status
// transitions go through guarded updates so that cross-instance exclusion is
// delegated entirely to the store: a claim is a single conditional update
// returning the claimed row, and every terminal write is conditioned on the
// row still being in processing.
package jobstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"

	"genworker/internal/domain"
	"genworker/internal/infra"
	"genworker/internal/sqlinline"
)

type Store struct {
	runner infra.SQLExecutor
	logger zerolog.Logger
}

func New(runner infra.SQLExecutor, logger zerolog.Logger) *Store {
	return &Store{runner: runner, logger: logger}
}

// ClaimNext atomically selects one pending job, moves it to processing and
// returns it exclusively to the caller. A nil job with nil error means the
// queue is empty; that is the normal condition, not a failure.
func (s *Store) ClaimNext(ctx context.Context) (*domain.Job, error) {
	row := s.runner.QueryRow(ctx, sqlinline.QClaimNextJob)
	job, err := scanJob(row)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("claim next job: %w", err)
	}
	return job, nil
}

// ClaimByID claims a specific pending job for push-mode intake. When the row
// exists but is no longer pending, ErrAlreadyProcessed is returned so the
// caller can answer a duplicate submission without re-running anything.
func (s *Store) ClaimByID(ctx context.Context, id string) (*domain.Job, error) {
	row := s.runner.QueryRow(ctx, sqlinline.QClaimJobByID, id)
	job, err := scanJob(row)
	if err == nil {
		return job, nil
	}
	if !infra.IsNoRows(err) {
		return nil, fmt.Errorf("claim job %s: %w", id, err)
	}

	existing, getErr := s.GetByID(ctx, id)
	if getErr != nil {
		return nil, getErr
	}
	return existing, domain.ErrAlreadyProcessed
}

// GetByID fetches a job by its identifier.
func (s *Store) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	row := s.runner.QueryRow(ctx, sqlinline.QSelectJobByID, id)
	job, err := scanJob(row)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	return job, nil
}

// Complete transitions processing -> completed and persists the result
// payload. A second call is a no-op surfaced as ErrAlreadyTerminal.
func (s *Store) Complete(ctx context.Context, id string, result json.RawMessage) error {
	if len(result) == 0 {
		result = json.RawMessage(`{}`)
	}
	tag, err := s.runner.Exec(ctx, sqlinline.QCompleteJob, id, []byte(result))
	if err != nil {
		return fmt.Errorf("complete job %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadyTerminal
	}
	return nil
}

// Fail transitions processing -> failed and persists the error message.
func (s *Store) Fail(ctx context.Context, id, errorMessage string) error {
	tag, err := s.runner.Exec(ctx, sqlinline.QFailJob, id, errorMessage)
	if err != nil {
		return fmt.Errorf("fail job %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadyTerminal
	}
	return nil
}

// Cancel transitions processing -> cancelled, guarded by a compare-and-set on
// the current status. The returned bool reports whether this call changed the
// row; duplicate compensation attempts observe false and must not refund.
func (s *Store) Cancel(ctx context.Context, id, reason string) (bool, error) {
	tag, err := s.runner.Exec(ctx, sqlinline.QCancelJob, id, reason)
	if err != nil {
		return false, fmt.Errorf("cancel job %s: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

// Refund credits amount back to the user and records a ledger entry in the
// same statement. Callers gate it on Cancel (or Fail) having changed state so
// a refund is issued at most once per job.
func (s *Store) Refund(ctx context.Context, userID, jobID string, amount int, reason string) error {
	if amount <= 0 {
		return nil
	}
	metadata, _ := json.Marshal(map[string]any{"job_id": jobID})
	if _, err := s.runner.Exec(ctx, sqlinline.QRefundCredits, userID, amount, jobID, reason, metadata); err != nil {
		return fmt.Errorf("refund user %s for job %s: %w", userID, jobID, err)
	}
	s.logger.Info().
		Str("user_id", userID).
		Str("job_id", jobID).
		Int("amount", amount).
		Msg("jobstore: refunded credits")
	return nil
}

func scanJob(row pgx.Row) (*domain.Job, error) {
	var j domain.Job
	// user_id and error_message are nullable columns; a freshly enqueued job
	// carries NULL in both, which a plain *string scan would reject.
	var userID, errorMessage pgtype.Text
	if err := row.Scan(
		&j.ID,
		&userID,
		&j.Type,
		&j.Status,
		&j.Input,
		&j.Result,
		&j.CreditsUsed,
		&j.Attempts,
		&errorMessage,
		&j.CreatedAt,
		&j.UpdatedAt,
	); err != nil {
		return nil, err
	}
	j.UserID = userID.String
	j.ErrorMessage = errorMessage.String
	// Ensure payload bytes are not aliased to the driver's buffer.
	j.Input = append(json.RawMessage(nil), j.Input...)
	j.Result = append(json.RawMessage(nil), j.Result...)
	return &j, nil
}
