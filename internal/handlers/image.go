package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"genworker/internal/blob"
	"genworker/internal/domain"
	"genworker/internal/providers/genai"
	"genworker/internal/retry"
)

type imageInput struct {
	Prompt        string   `json:"prompt"`
	Quantity      int      `json:"quantity"`
	AspectRatio   string   `json:"aspect_ratio"`
	Locale        string   `json:"locale"`
	Watermark     string   `json:"watermark"`
	Tier          string   `json:"tier"`
	ReferenceKeys []string `json:"reference_keys"`
}

type assetResult struct {
	URL    string `json:"url"`
	Key    string `json:"key"`
	Format string `json:"format"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type imageResult struct {
	ImageURL    string        `json:"imageUrl"`
	StoragePath string        `json:"storagePath"`
	Assets      []assetResult `json:"assets"`
}

// ImageHandler executes generate-image jobs.
type ImageHandler struct {
	backend  Backend
	blobs    blob.Store
	logger   zerolog.Logger
	ttl      time.Duration
	policies func(tier string) retry.Policy
}

func NewImageHandler(backend Backend, blobs blob.Store, logger zerolog.Logger, signTTL time.Duration) *ImageHandler {
	if signTTL <= 0 {
		signTTL = 24 * time.Hour
	}
	return &ImageHandler{
		backend:  backend,
		blobs:    blobs,
		logger:   logger,
		ttl:      signTTL,
		policies: policyFor,
	}
}

// Handle generates image assets for the job and uploads them to the blob
// store. The backend call is the only retried step; reference downloads and
// uploads fail the attempt outright.
func (h *ImageHandler) Handle(ctx context.Context, job *domain.Job) (json.RawMessage, error) {
	var input imageInput
	if err := json.Unmarshal(job.Input, &input); err != nil {
		return nil, fmt.Errorf("decode image input: %w", err)
	}

	references, err := h.downloadReferences(ctx, input.ReferenceKeys)
	if err != nil {
		return nil, err
	}

	req := genai.ImageRequest{
		Prompt:       input.Prompt,
		Quantity:     input.Quantity,
		AspectRatio:  input.AspectRatio,
		Locale:       input.Locale,
		WatermarkTag: input.Watermark,
		RequestID:    job.ID,
		References:   references,
	}
	assets, err := retry.Do(ctx, h.policies(input.Tier), func(ctx context.Context) ([]genai.ImageAsset, error) {
		return h.backend.GenerateImages(ctx, req)
	})
	if err != nil {
		return nil, fmt.Errorf("image generation: %w", err)
	}

	result := imageResult{Assets: make([]assetResult, 0, len(assets))}
	for idx, asset := range assets {
		key := fmt.Sprintf("generated/images/%s/image-%02d%s", job.ID, idx+1, extensionForMIME(asset.Format))
		storedKey, err := h.blobs.Upload(ctx, key, asset.Data, asset.Format)
		if err != nil {
			return nil, fmt.Errorf("upload asset %s: %w", key, err)
		}
		signedURL, err := h.blobs.SignURL(ctx, storedKey, h.ttl)
		if err != nil {
			return nil, fmt.Errorf("sign url for %s: %w", storedKey, err)
		}
		result.Assets = append(result.Assets, assetResult{
			URL:    signedURL,
			Key:    storedKey,
			Format: asset.Format,
			Width:  asset.Width,
			Height: asset.Height,
		})
	}
	if len(result.Assets) > 0 {
		result.ImageURL = result.Assets[0].URL
		result.StoragePath = result.Assets[0].Key
	}

	h.logger.Info().
		Str("job_id", job.ID).
		Int("assets", len(result.Assets)).
		Msg("handlers: image job generated")

	payload, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encode image result: %w", err)
	}
	return payload, nil
}

func (h *ImageHandler) downloadReferences(ctx context.Context, keys []string) ([]genai.Reference, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	references := make([]genai.Reference, 0, len(keys))
	for _, key := range keys {
		data, err := h.blobs.Download(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("download reference %s: %w", key, err)
		}
		references = append(references, genai.Reference{MimeType: mimeForKey(key), Data: data})
	}
	return references, nil
}

func mimeForKey(key string) string {
	switch {
	case hasSuffixFold(key, ".jpg"), hasSuffixFold(key, ".jpeg"):
		return "image/jpeg"
	case hasSuffixFold(key, ".webp"):
		return "image/webp"
	default:
		return "image/png"
	}
}
