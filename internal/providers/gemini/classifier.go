// Package gemini calls the Gemini multimodal API to classify the dominant
// facial emotion in an image. The orchestration core consumes the result;
// it never retries this call, so one user request costs one attempt.
package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"server/internal/domain"
)

const detectPrompt = "Identify the dominant facial emotion in the attached image and return ONLY JSON: {dominant_emotion, confidence, all_scores}."

// Confidence below this marks the result low-confidence for the caller.
const lowConfidenceThreshold = 0.5

type Options struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

// Classifier performs emotion detection calls against the Gemini API.
type Classifier struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

const classifierDefaultTimeout = 30 * time.Second

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

type detectPayload struct {
	DominantEmotion *string            `json:"dominant_emotion"`
	Confidence      *float64           `json:"confidence"`
	AllScores       map[string]float64 `json:"all_scores"`
}

func NewClassifier(opts Options) (*Classifier, error) {
	if opts.APIKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "gemini-2.5-flash"
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: classifierDefaultTimeout}
	}
	return &Classifier{
		apiKey:  opts.APIKey,
		model:   model,
		baseURL: baseURL,
		client:  client,
	}, nil
}

// Classify sends the image to Gemini and parses the JSON verdict. The
// model may wrap its JSON in a markdown code fence, which is stripped
// before decoding.
func (c *Classifier) Classify(ctx context.Context, image []byte) (*domain.EmotionDetectionResult, error) {
	if len(image) == 0 {
		return nil, errors.New("gemini: image is required")
	}
	payload := geminiRequest{
		Contents: []geminiContent{{
			Parts: []geminiPart{
				{Text: detectPrompt},
				{InlineData: &geminiInlineData{
					MimeType: "image/jpeg",
					Data:     base64.StdEncoding.EncodeToString(image),
				}},
			},
		}},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return nil, fmt.Errorf("gemini: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), &buf)
	if err != nil {
		return nil, fmt.Errorf("gemini: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("gemini: http request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("gemini: status %d", resp.StatusCode)
	}
	var out geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("gemini: decode response: %w", err)
	}
	text := extractText(out)
	if text == "" {
		return nil, errors.New("gemini: empty response")
	}
	parsed, err := parseDetectPayload(text)
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	result := &domain.EmotionDetectionResult{
		Emotion:       strings.ToLower(strings.TrimSpace(*parsed.DominantEmotion)),
		Confidence:    *parsed.Confidence,
		AllScores:     parsed.AllScores,
		LowConfidence: *parsed.Confidence < lowConfidenceThreshold,
	}
	if result.Emotion == "none" || result.Emotion == "no_face" {
		return nil, fmt.Errorf("gemini: %w", domain.ErrNoFaceDetected)
	}
	return result, nil
}

func (c *Classifier) endpoint() string {
	return fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, url.PathEscape(c.model))
}

func extractText(resp geminiResponse) string {
	for _, cand := range resp.Candidates {
		for _, part := range cand.Content.Parts {
			if strings.TrimSpace(part.Text) != "" {
				return part.Text
			}
		}
	}
	return ""
}

func parseDetectPayload(raw string) (*detectPayload, error) {
	cleaned := extractJSONFragment(raw)
	if cleaned == "" {
		return nil, errors.New("empty detect payload")
	}
	var decoded detectPayload
	if err := json.Unmarshal([]byte(cleaned), &decoded); err != nil {
		return nil, fmt.Errorf("parse detect payload: %w", err)
	}
	if decoded.DominantEmotion == nil || decoded.Confidence == nil || decoded.AllScores == nil {
		return nil, errors.New("detect payload missing dominant_emotion, confidence or all_scores")
	}
	return &decoded, nil
}

func extractJSONFragment(raw string) string {
	text := strings.TrimSpace(raw)
	if text == "" {
		return ""
	}
	text = trimCodeFence(text)
	start := strings.IndexAny(text, "{[")
	end := strings.LastIndexAny(text, "]}")
	if start >= 0 && end >= start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}

func trimCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```JSON")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}
