// Package horde is the low-level client for the AI Horde, a distributed
// volunteer-GPU image generation network with an asynchronous queue API.
// Jobs are submitted, polled with a lightweight check call, and the final
// asset is fetched once the network reports completion. The client performs
// single attempts only; retry and timeout policy lives in the orchestrator.
package horde

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/infra"
)

// Options configures the AI Horde client.
type Options struct {
	APIKey         string
	BaseURL        string
	Model          string
	ClientAgent    string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client performs HTTP calls against the AI Horde generation endpoints.
type Client struct {
	apiKey      string
	baseURL     string
	model       string
	clientAgent string
	httpClient  *http.Client
	logger      *infra.Logger
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://stablehorde.net/api/v2"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "stable_diffusion"
	}
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		// Anonymous access is allowed, at the lowest queue priority.
		apiKey = "0000000000"
	}
	clientAgent := strings.TrimSpace(opts.ClientAgent)
	if clientAgent == "" {
		clientAgent = "emotion-portrait-service/1.0"
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Client{
		apiKey:      apiKey,
		baseURL:     baseURL,
		model:       model,
		clientAgent: clientAgent,
		httpClient:  httpClient,
		logger:      logger,
	}, nil
}

// Model returns the configured generation model identifier.
func (c *Client) Model() string {
	return c.model
}

// Submit enqueues a generation job and returns the provider-assigned
// handle. Invalid payloads map to domain.ErrInvalidParameters, 429-class
// responses to domain.RateLimitError, and network or 5xx failures to
// domain.ErrProviderUnavailable.
func (c *Client) Submit(ctx context.Context, spec domain.JobSpec) (domain.JobHandle, error) {
	payload := submitRequest{
		Prompt: spec.Prompt,
		Params: submitParams{
			SamplerName: spec.Sampler,
			CfgScale:    spec.CfgScale,
			Width:       spec.Width,
			Height:      spec.Height,
			Steps:       spec.Steps,
			N:           1,
		},
		NSFW:           false,
		TrustedWorkers: true,
		R2:             true,
		Models:         []string{c.model},
	}
	if len(spec.SourceImage) > 0 {
		payload.SourceImage = base64.StdEncoding.EncodeToString(spec.SourceImage)
		payload.SourceProcessing = "img2img"
		denoise := spec.Denoise
		if denoise <= 0 {
			denoise = 0.75
		}
		payload.Params.DenoisingStrength = &denoise
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("horde: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/generate/async", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("horde: build request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("horde: submit: %v: %w", err, domain.ErrProviderUnavailable)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("horde: read submit response: %w", domain.ErrProviderUnavailable)
	}

	switch {
	case resp.StatusCode == http.StatusAccepted || resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", &domain.RateLimitError{RetryAfter: retryAfter(resp)}
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return "", fmt.Errorf("horde: %s: %w", apiMessage(raw, resp.StatusCode), domain.ErrInvalidParameters)
	default:
		return "", fmt.Errorf("horde: %s: %w", apiMessage(raw, resp.StatusCode), domain.ErrProviderUnavailable)
	}

	var decoded submitResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("horde: decode submit response: %w", err)
	}
	if decoded.ID == "" {
		return "", fmt.Errorf("horde: submission accepted without a job id: %w", domain.ErrProviderUnavailable)
	}
	c.logger.Debug().
		Str("job_id", decoded.ID).
		Float64("kudos", decoded.Kudos).
		Msg("horde: job submitted")
	return domain.JobHandle(decoded.ID), nil
}

// PollStatus fetches the lightweight check endpoint and normalizes the
// reply into a StatusSnapshot. An expired or unknown job maps to
// domain.ErrJobNotFound; network hiccups map to domain.ErrTransient.
func (c *Client) PollStatus(ctx context.Context, id domain.JobHandle) (domain.StatusSnapshot, error) {
	var snap domain.StatusSnapshot
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/generate/check/"+string(id), nil)
	if err != nil {
		return snap, fmt.Errorf("horde: build check request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return snap, fmt.Errorf("horde: check: %v: %w", err, domain.ErrTransient)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return snap, fmt.Errorf("horde: read check response: %w", domain.ErrTransient)
	}
	if resp.StatusCode == http.StatusNotFound {
		return snap, fmt.Errorf("horde: job %s: %w", id, domain.ErrJobNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return snap, fmt.Errorf("horde: %s: %w", apiMessage(raw, resp.StatusCode), domain.ErrTransient)
	}

	var decoded checkResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return snap, fmt.Errorf("horde: decode check response: %w", domain.ErrTransient)
	}
	snap = domain.StatusSnapshot{
		Done:       decoded.Done,
		Processing: decoded.Processing > 0,
		QueuePos:   decoded.QueuePosition,
		WaitTime:   time.Duration(decoded.WaitTime) * time.Second,
		Faulted:    decoded.Faulted,
	}
	if decoded.IsPossible != nil && !*decoded.IsPossible {
		snap.Faulted = true
	}
	return snap, nil
}

// FetchAsset retrieves the finished image for a completed job. The horde
// returns either an R2 download URL or inline base64. Censored content maps
// to domain.ErrCensored, a completed job without payload to
// domain.ErrEmptyResult.
func (c *Client) FetchAsset(ctx context.Context, id domain.JobHandle) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/generate/status/"+string(id), nil)
	if err != nil {
		return nil, "", fmt.Errorf("horde: build status request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("horde: status: %v: %w", err, domain.ErrProviderUnavailable)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("horde: read status response: %w", domain.ErrProviderUnavailable)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, "", fmt.Errorf("horde: job %s: %w", id, domain.ErrJobNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("horde: %s: %w", apiMessage(raw, resp.StatusCode), domain.ErrProviderUnavailable)
	}

	var decoded statusResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, "", fmt.Errorf("horde: decode status response: %w", err)
	}
	if len(decoded.Generations) == 0 {
		return nil, "", fmt.Errorf("horde: job %s: %w", id, domain.ErrEmptyResult)
	}
	gen := decoded.Generations[0]
	if gen.Censored {
		return nil, "", fmt.Errorf("horde: job %s worker %s: %w", id, gen.WorkerID, domain.ErrCensored)
	}
	if strings.TrimSpace(gen.Img) == "" {
		return nil, "", fmt.Errorf("horde: job %s: %w", id, domain.ErrEmptyResult)
	}
	data, mime, err := c.decodeImage(ctx, gen.Img)
	if err != nil {
		return nil, "", err
	}
	c.logger.Debug().
		Str("job_id", string(id)).
		Str("worker", gen.WorkerName).
		Int("bytes", len(data)).
		Msg("horde: fetched generated asset")
	return data, mime, nil
}

// Cancel asks the horde to drop a pending job. Cancellation is advisory;
// a worker that already picked the job up may still finish it.
func (c *Client) Cancel(ctx context.Context, id domain.JobHandle) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/generate/status/"+string(id), nil)
	if err != nil {
		return fmt.Errorf("horde: build cancel request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("horde: cancel: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("horde: cancel status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Client-Agent", c.clientAgent)
}

// decodeImage resolves the generation payload, which is either an R2 URL,
// a data: URI, or bare base64.
func (c *Client) decodeImage(ctx context.Context, img string) ([]byte, string, error) {
	img = strings.TrimSpace(img)
	if strings.HasPrefix(img, "http://") || strings.HasPrefix(img, "https://") {
		return c.download(ctx, img)
	}
	if strings.HasPrefix(img, "data:") {
		if idx := strings.Index(img, ","); idx >= 0 {
			img = img[idx+1:]
		}
	}
	data, err := base64.StdEncoding.DecodeString(img)
	if err != nil {
		return nil, "", fmt.Errorf("horde: decode image payload: %w", err)
	}
	return data, "image/png", nil
}

func (c *Client) download(ctx context.Context, imageURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("horde: build download request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("horde: download image: %v: %w", err, domain.ErrProviderUnavailable)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("horde: download status %d: %w", resp.StatusCode, domain.ErrProviderUnavailable)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("horde: read image: %w", err)
	}
	mime := resp.Header.Get("Content-Type")
	if mime == "" {
		mime = "image/png"
	}
	return data, mime, nil
}

func apiMessage(raw []byte, status int) string {
	var detail apiError
	if err := json.Unmarshal(raw, &detail); err == nil && detail.Message != "" {
		return fmt.Sprintf("%s (status %d)", detail.Message, status)
	}
	return fmt.Sprintf("status %d: %s", status, strings.TrimSpace(string(raw)))
}

func retryAfter(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return 0
}
