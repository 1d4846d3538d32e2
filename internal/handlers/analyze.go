package handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"genworker/internal/blob"
	"genworker/internal/domain"
	"genworker/internal/providers/genai"
	"genworker/internal/retry"
)

type analyzeInput struct {
	ReferenceKey string `json:"reference_key"`
	Question     string `json:"question"`
	Locale       string `json:"locale"`
	Tier         string `json:"tier"`
}

type analyzeResult struct {
	Analysis string `json:"analysis"`
	Model    string `json:"model"`
}

// AnalyzeHandler executes analyze-material jobs: it feeds a stored reference
// asset to the backend and persists the textual analysis.
type AnalyzeHandler struct {
	backend  Backend
	blobs    blob.Store
	logger   zerolog.Logger
	policies func(tier string) retry.Policy
}

func NewAnalyzeHandler(backend Backend, blobs blob.Store, logger zerolog.Logger) *AnalyzeHandler {
	return &AnalyzeHandler{
		backend:  backend,
		blobs:    blobs,
		logger:   logger,
		policies: policyFor,
	}
}

func (h *AnalyzeHandler) Handle(ctx context.Context, job *domain.Job) (json.RawMessage, error) {
	var input analyzeInput
	if err := json.Unmarshal(job.Input, &input); err != nil {
		return nil, fmt.Errorf("decode analyze input: %w", err)
	}
	if input.ReferenceKey == "" {
		return nil, fmt.Errorf("analyze input missing reference_key")
	}

	data, err := h.blobs.Download(ctx, input.ReferenceKey)
	if err != nil {
		return nil, fmt.Errorf("download reference %s: %w", input.ReferenceKey, err)
	}

	req := genai.AnalyzeRequest{
		Question:  input.Question,
		Locale:    input.Locale,
		RequestID: job.ID,
		Reference: genai.Reference{MimeType: mimeForKey(input.ReferenceKey), Data: data},
	}
	analysis, err := retry.Do(ctx, h.policies(input.Tier), func(ctx context.Context) (*genai.Analysis, error) {
		return h.backend.AnalyzeImage(ctx, req)
	})
	if err != nil {
		return nil, fmt.Errorf("material analysis: %w", err)
	}

	h.logger.Info().Str("job_id", job.ID).Msg("handlers: analyze job completed")

	payload, err := json.Marshal(analyzeResult{Analysis: analysis.Text, Model: analysis.Model})
	if err != nil {
		return nil, fmt.Errorf("encode analyze result: %w", err)
	}
	return payload, nil
}
