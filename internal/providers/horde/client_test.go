package horde

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"server/internal/domain"
)

func newTestClient(t *testing.T, transport http.RoundTripper) *Client {
	t.Helper()
	client, err := NewClient(Options{
		APIKey:     "test-key",
		Model:      "stable_diffusion",
		HTTPClient: &http.Client{Transport: transport},
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestSubmitModifyPayload(t *testing.T) {
	transport := &captureTransport{responses: map[string]responseStub{}}
	transport.setJSONResponse("/api/v2/generate/async", http.StatusAccepted, map[string]any{
		"id": "job-123", "kudos": 4.5,
	})
	client := newTestClient(t, transport)

	source := []byte{0xde, 0xad, 0xbe, 0xef}
	id, err := client.Submit(context.Background(), domain.JobSpec{
		Prompt:      "same person, gentle smile",
		SourceImage: source,
		Steps:       20,
		Width:       512,
		Height:      512,
		CfgScale:    7.5,
		Sampler:     "k_euler",
		Denoise:     0.5,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if id != "job-123" {
		t.Fatalf("job id = %q, want job-123", id)
	}
	if transport.lastBody == nil {
		t.Fatalf("expected payload to be captured")
	}

	var payload map[string]any
	if err := json.Unmarshal(transport.lastBody, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload["source_processing"] != "img2img" {
		t.Fatalf("source_processing = %v, want img2img", payload["source_processing"])
	}
	decoded, err := base64.StdEncoding.DecodeString(payload["source_image"].(string))
	if err != nil || !bytes.Equal(decoded, source) {
		t.Fatalf("source_image not base64 of upload: %v", err)
	}
	params := payload["params"].(map[string]any)
	if params["denoising_strength"].(float64) != 0.5 {
		t.Fatalf("denoising_strength = %v, want 0.5", params["denoising_strength"])
	}
	if params["n"].(float64) != 1 {
		t.Fatalf("n = %v, want 1", params["n"])
	}
	models := payload["models"].([]any)
	if len(models) != 1 || models[0] != "stable_diffusion" {
		t.Fatalf("models = %v", models)
	}
	if payload["trusted_workers"] != true {
		t.Fatalf("trusted_workers should be set")
	}
	if req := transport.lastRequest; req.Header.Get("apikey") != "test-key" {
		t.Fatalf("apikey header missing")
	}
}

func TestSubmitGenerateOmitsSourceFields(t *testing.T) {
	transport := &captureTransport{responses: map[string]responseStub{}}
	transport.setJSONResponse("/api/v2/generate/async", http.StatusAccepted, map[string]any{"id": "job-9"})
	client := newTestClient(t, transport)

	if _, err := client.Submit(context.Background(), domain.JobSpec{
		Prompt: "portrait of a person", Steps: 25, Width: 512, Height: 512, CfgScale: 7.5, Sampler: "k_euler",
	}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(transport.lastBody, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if _, ok := payload["source_image"]; ok {
		t.Fatalf("source_image should be omitted for pure generation")
	}
	params := payload["params"].(map[string]any)
	if _, ok := params["denoising_strength"]; ok {
		t.Fatalf("denoising_strength should be omitted for pure generation")
	}
}

func TestSubmitErrorMapping(t *testing.T) {
	transport := &captureTransport{responses: map[string]responseStub{}}
	client := newTestClient(t, transport)

	transport.setJSONResponse("/api/v2/generate/async", http.StatusBadRequest, map[string]any{"message": "prompt too long"})
	_, err := client.Submit(context.Background(), domain.JobSpec{Prompt: "x"})
	if !errors.Is(err, domain.ErrInvalidParameters) {
		t.Fatalf("400 should map to ErrInvalidParameters, got %v", err)
	}

	transport.responses["/api/v2/generate/async"] = responseStub{
		status: http.StatusTooManyRequests,
		header: http.Header{"Retry-After": []string{"30"}},
		body:   []byte(`{"message":"too many requests"}`),
	}
	_, err = client.Submit(context.Background(), domain.JobSpec{Prompt: "x"})
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("429 should map to ErrRateLimited, got %v", err)
	}
	var rl *domain.RateLimitError
	if !errors.As(err, &rl) || rl.RetryAfter != 30*time.Second {
		t.Fatalf("retry-after not propagated: %v", err)
	}

	transport.setJSONResponse("/api/v2/generate/async", http.StatusServiceUnavailable, map[string]any{"message": "queue full"})
	_, err = client.Submit(context.Background(), domain.JobSpec{Prompt: "x"})
	if !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Fatalf("503 should map to ErrProviderUnavailable, got %v", err)
	}
}

func TestPollStatusSnapshot(t *testing.T) {
	transport := &captureTransport{responses: map[string]responseStub{}}
	transport.setJSONResponse("/api/v2/generate/check/job-1", http.StatusOK, map[string]any{
		"done": false, "processing": 1, "queue_position": 3, "wait_time": 42,
	})
	client := newTestClient(t, transport)

	snap, err := client.PollStatus(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if snap.Done || !snap.Processing || snap.QueuePos != 3 || snap.WaitTime != 42*time.Second {
		t.Fatalf("snapshot mismatch: %+v", snap)
	}
}

func TestPollStatusImpossibleJobIsFaulted(t *testing.T) {
	transport := &captureTransport{responses: map[string]responseStub{}}
	transport.setJSONResponse("/api/v2/generate/check/job-1", http.StatusOK, map[string]any{
		"done": false, "is_possible": false,
	})
	client := newTestClient(t, transport)

	snap, err := client.PollStatus(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if !snap.Faulted {
		t.Fatalf("impossible job should report faulted, got %+v", snap)
	}
}

func TestPollStatusNotFound(t *testing.T) {
	transport := &captureTransport{responses: map[string]responseStub{}}
	transport.setJSONResponse("/api/v2/generate/check/job-1", http.StatusNotFound, map[string]any{"message": "not found"})
	client := newTestClient(t, transport)

	_, err := client.PollStatus(context.Background(), "job-1")
	if !errors.Is(err, domain.ErrJobNotFound) {
		t.Fatalf("404 should map to ErrJobNotFound, got %v", err)
	}
}

func TestFetchAssetInlineBase64(t *testing.T) {
	image := []byte{0x89, 'P', 'N', 'G'}
	transport := &captureTransport{responses: map[string]responseStub{}}
	transport.setJSONResponse("/api/v2/generate/status/job-1", http.StatusOK, map[string]any{
		"done": true,
		"generations": []any{
			map[string]any{"img": base64.StdEncoding.EncodeToString(image), "censored": false},
		},
	})
	client := newTestClient(t, transport)

	data, mime, err := client.FetchAsset(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !bytes.Equal(data, image) {
		t.Fatalf("image bytes mismatch")
	}
	if mime != "image/png" {
		t.Fatalf("mime = %q, want image/png", mime)
	}
}

func TestFetchAssetDownloadsR2URL(t *testing.T) {
	image := []byte{0x89, 'P', 'N', 'G', 0x0d}
	transport := &captureTransport{responses: map[string]responseStub{}}
	transport.setJSONResponse("/api/v2/generate/status/job-1", http.StatusOK, map[string]any{
		"done": true,
		"generations": []any{
			map[string]any{"img": "https://r2.example.com/out.webp"},
		},
	})
	transport.setBinaryResponse("https://r2.example.com/out.webp", "image/webp", image)
	client := newTestClient(t, transport)

	data, mime, err := client.FetchAsset(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !bytes.Equal(data, image) {
		t.Fatalf("downloaded bytes mismatch")
	}
	if mime != "image/webp" {
		t.Fatalf("mime = %q, want image/webp", mime)
	}
}

func TestFetchAssetCensored(t *testing.T) {
	transport := &captureTransport{responses: map[string]responseStub{}}
	transport.setJSONResponse("/api/v2/generate/status/job-1", http.StatusOK, map[string]any{
		"done": true,
		"generations": []any{
			map[string]any{"img": "", "censored": true, "worker_id": "w-7"},
		},
	})
	client := newTestClient(t, transport)

	_, _, err := client.FetchAsset(context.Background(), "job-1")
	if !errors.Is(err, domain.ErrCensored) {
		t.Fatalf("censored generation should map to ErrCensored, got %v", err)
	}
}

func TestFetchAssetEmpty(t *testing.T) {
	transport := &captureTransport{responses: map[string]responseStub{}}
	transport.setJSONResponse("/api/v2/generate/status/job-1", http.StatusOK, map[string]any{
		"done": true, "generations": []any{},
	})
	client := newTestClient(t, transport)

	_, _, err := client.FetchAsset(context.Background(), "job-1")
	if !errors.Is(err, domain.ErrEmptyResult) {
		t.Fatalf("done without generations should map to ErrEmptyResult, got %v", err)
	}
}

type captureTransport struct {
	responses   map[string]responseStub
	lastBody    []byte
	lastRequest *http.Request
}

type responseStub struct {
	status int
	header http.Header
	body   []byte
}

func (c *captureTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	c.lastRequest = req
	if req.Body != nil {
		body, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		req.Body.Close()
		c.lastBody = body
	}
	if stub, ok := c.responses[req.URL.String()]; ok {
		return stub.toResponse(), nil
	}
	if stub, ok := c.responses[req.URL.Path]; ok {
		return stub.toResponse(), nil
	}
	return &http.Response{
		StatusCode: http.StatusNotFound,
		Body:       io.NopCloser(strings.NewReader("not found")),
	}, nil
}

func (c *captureTransport) setJSONResponse(path string, status int, payload any) {
	body, _ := json.Marshal(payload)
	c.responses[path] = responseStub{
		status: status,
		header: http.Header{"Content-Type": []string{"application/json"}},
		body:   body,
	}
}

func (c *captureTransport) setBinaryResponse(url, mime string, data []byte) {
	c.responses[url] = responseStub{
		status: http.StatusOK,
		header: http.Header{"Content-Type": []string{mime}},
		body:   data,
	}
}

func (s responseStub) toResponse() *http.Response {
	header := http.Header{}
	for k, values := range s.header {
		cloned := make([]string, len(values))
		copy(cloned, values)
		header[k] = cloned
	}
	return &http.Response{
		StatusCode: s.status,
		Header:     header,
		Body:       io.NopCloser(bytes.NewReader(s.body)),
	}
}
