package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	cache "github.com/patrickmn/go-cache"

	"server/internal/domain"
	"server/internal/history"
	"server/internal/infra"
)

// Generator runs one portrait generation end to end.
type Generator interface {
	Generate(ctx context.Context, req domain.GenerationRequest) domain.GenerationResult
}

// EmotionClassifier labels the dominant emotion on an uploaded face.
type EmotionClassifier interface {
	Classify(ctx context.Context, image []byte) (*domain.EmotionDetectionResult, error)
}

type App struct {
	Logger      infra.Logger
	Cfg         *infra.Config
	Generator   Generator
	Classifier  EmotionClassifier
	History     *history.Repo
	DetectCache *cache.Cache
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, kind, msg string) {
	a.json(w, code, map[string]string{"error": msg, "kind": kind})
}

// readImageUpload pulls the "image" file out of a multipart form, enforcing
// the configured size cap and an image/* content type.
func (a *App) readImageUpload(r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, a.Cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(a.Cfg.MaxUploadBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, fmt.Errorf("image exceeds the %d byte limit: %w", a.Cfg.MaxUploadBytes, domain.ErrInvalidParameters)
		}
		return nil, fmt.Errorf("invalid multipart form: %w", domain.ErrInvalidParameters)
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		return nil, fmt.Errorf("image file is required: %w", domain.ErrInvalidParameters)
	}
	defer file.Close()

	if ct := uploadContentType(header); ct != "" && !strings.HasPrefix(ct, "image/") {
		return nil, fmt.Errorf("unsupported content type %q: %w", ct, domain.ErrInvalidParameters)
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("uploaded image is empty: %w", domain.ErrInvalidParameters)
	}
	return data, nil
}

func uploadContentType(header *multipart.FileHeader) string {
	if header == nil {
		return ""
	}
	return header.Header.Get("Content-Type")
}

// parseGenerationParams reads the shared target_emotion/intensity/style
// form fields. Range clamping happens later in the orchestrator; only shape
// errors are rejected here.
func parseGenerationParams(r *http.Request) (domain.Emotion, float64, domain.Style, error) {
	emotion, err := domain.ParseEmotion(r.FormValue("target_emotion"))
	if err != nil {
		return "", 0, "", err
	}
	intensity := 0.5
	if raw := r.FormValue("intensity"); raw != "" {
		intensity, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			return "", 0, "", fmt.Errorf("intensity %q is not a number: %w", raw, domain.ErrInvalidParameters)
		}
	}
	style := domain.StylePhotorealistic
	if raw := r.FormValue("style"); raw != "" {
		style, err = domain.ParseStyle(raw)
		if err != nil {
			return "", 0, "", err
		}
	}
	return emotion, intensity, style, nil
}
