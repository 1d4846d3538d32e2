package genai

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"genworker/internal/retry"
)

func TestClassifyStatus(t *testing.T) {
	cases := []struct {
		code int
		want Kind
	}{
		{http.StatusTooManyRequests, KindTransient},
		{http.StatusInternalServerError, KindTransient},
		{http.StatusBadGateway, KindTransient},
		{http.StatusServiceUnavailable, KindTransient},
		{http.StatusGatewayTimeout, KindTransient},
		{http.StatusNotFound, KindNotFound},
		{http.StatusBadRequest, KindFatal},
		{http.StatusUnauthorized, KindFatal},
		{http.StatusForbidden, KindFatal},
	}
	for _, tc := range cases {
		if got := classifyStatus(tc.code); got != tc.want {
			t.Errorf("classifyStatus(%d) = %v, want %v", tc.code, got, tc.want)
		}
	}
}

func TestIsTransientUnwrapsExhausted(t *testing.T) {
	inner := newStatusError(http.StatusTooManyRequests, "slow down")
	wrapped := &retry.ExhaustedError{Attempts: 3, Err: inner}
	if !IsTransient(wrapped) {
		t.Fatal("IsTransient must see through retry.ExhaustedError")
	}
	if IsTransient(newStatusError(http.StatusBadRequest, "nope")) {
		t.Fatal("bad request must not classify as transient")
	}
}

func newTestClient(t *testing.T, baseURL, apiKey string) *Client {
	t.Helper()
	c, err := NewClient(Options{APIKey: apiKey, BaseURL: baseURL, Model: "gemini-test"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestGenerateImagesClassifiesOverload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":429,"message":"rate limited"}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, "test-key")
	_, err := c.GenerateImages(context.Background(), ImageRequest{Prompt: "a red cube"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsTransient(err) {
		t.Fatalf("error %v should be transient", err)
	}
}

func TestGenerateImagesClassifiesBadRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":400,"message":"prompt blocked"}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, "test-key")
	_, err := c.GenerateImages(context.Background(), ImageRequest{Prompt: "a red cube"})
	if err == nil {
		t.Fatal("expected error")
	}
	if IsTransient(err) {
		t.Fatalf("error %v should not be transient", err)
	}
}

func TestGenerateImagesDecodesInlineData(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte("not-a-real-png"))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"inlineData":{"mimeType":"image/png","data":"` + payload + `"}}]}}]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, "test-key")
	assets, err := c.GenerateImages(context.Background(), ImageRequest{Prompt: "a red cube", Quantity: 1})
	if err != nil {
		t.Fatalf("GenerateImages: %v", err)
	}
	if len(assets) != 1 {
		t.Fatalf("got %d assets, want 1", len(assets))
	}
	if string(assets[0].Data) != "not-a-real-png" {
		t.Fatalf("asset data = %q", assets[0].Data)
	}
	if assets[0].Format != "image/png" {
		t.Fatalf("asset format = %q", assets[0].Format)
	}
}

func TestGenerateImagesSyntheticWithoutAPIKey(t *testing.T) {
	c := newTestClient(t, "", "")
	assets, err := c.GenerateImages(context.Background(), ImageRequest{
		RequestID: "j1",
		Prompt:    "a red cube",
		Quantity:  2,
	})
	if err != nil {
		t.Fatalf("GenerateImages: %v", err)
	}
	if len(assets) != 2 {
		t.Fatalf("got %d assets, want 2", len(assets))
	}
	for _, a := range assets {
		if len(a.Data) == 0 {
			t.Fatal("synthetic asset has no data")
		}
		if a.Format != "image/png" {
			t.Fatalf("format = %q", a.Format)
		}
	}

	again, err := c.GenerateImages(context.Background(), ImageRequest{
		RequestID: "j1",
		Prompt:    "a red cube",
		Quantity:  2,
	})
	if err != nil {
		t.Fatalf("GenerateImages: %v", err)
	}
	if string(again[0].Data) != string(assets[0].Data) {
		t.Fatal("synthetic assets should be deterministic per request")
	}
}

func TestAnalyzeImageReturnsText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"brushed aluminium"}]}}]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, "test-key")
	analysis, err := c.AnalyzeImage(context.Background(), AnalyzeRequest{
		Question:  "what material is this?",
		Reference: Reference{MimeType: "image/png", Data: []byte("ref")},
	})
	if err != nil {
		t.Fatalf("AnalyzeImage: %v", err)
	}
	if analysis.Text != "brushed aluminium" {
		t.Fatalf("Text = %q", analysis.Text)
	}
	if analysis.Model != "gemini-test" {
		t.Fatalf("Model = %q", analysis.Model)
	}
}

func TestNormalizeLocale(t *testing.T) {
	if got := normalizeLocale("EN-us"); got != "en-US" {
		t.Fatalf("normalizeLocale = %q, want en-US", got)
	}
	if got := normalizeLocale("  "); got != "" {
		t.Fatalf("normalizeLocale blank = %q", got)
	}
}
