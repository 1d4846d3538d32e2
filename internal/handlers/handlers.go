// Package handlers implements the job-type handlers executed by the
// dispatcher: each one turns a claimed job's input payload into calls against
// the generation backend and the blob store, and returns the result payload
// persisted on completion.
package handlers

import (
	"context"
	"strings"

	"genworker/internal/providers/genai"
	"genworker/internal/retry"
)

// Backend is the slice of the generation client the handlers consume.
type Backend interface {
	GenerateImages(ctx context.Context, req genai.ImageRequest) ([]genai.ImageAsset, error)
	AnalyzeImage(ctx context.Context, req genai.AnalyzeRequest) (*genai.Analysis, error)
}

// policyFor selects the retry budget by plan tier. Pro-tier jobs get more
// attempts and a longer base delay.
func policyFor(tier string) retry.Policy {
	var p retry.Policy
	if strings.EqualFold(strings.TrimSpace(tier), "pro") {
		p = retry.ProPolicy()
	} else {
		p = retry.DefaultPolicy()
	}
	p.IsRetryable = genai.IsRetryable
	return p
}

func hasSuffixFold(s, suffix string) bool {
	return strings.HasSuffix(strings.ToLower(s), suffix)
}

func extensionForMIME(mime string) string {
	switch strings.ToLower(strings.TrimSpace(mime)) {
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".bin"
	}
}
