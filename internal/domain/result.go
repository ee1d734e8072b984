package domain

import "time"

// ErrorKind classifies terminal failures for callers.
type ErrorKind string

const (
	ErrorKindNone                ErrorKind = ""
	ErrorKindInvalidParameters   ErrorKind = "invalid_parameters"
	ErrorKindProviderUnavailable ErrorKind = "provider_unavailable"
	ErrorKindRateLimited         ErrorKind = "rate_limited"
	ErrorKindContentFiltered     ErrorKind = "content_filtered"
	ErrorKindNotFound            ErrorKind = "not_found"
	ErrorKindTimeout             ErrorKind = "timeout"
	ErrorKindCancelled           ErrorKind = "cancelled"
)

// GenerationResult is the terminal outcome of one generation. It is
// immutable once constructed.
type GenerationResult struct {
	Success      bool
	Image        []byte
	MIME         string
	ErrorKind    ErrorKind
	Message      string
	Suggestion   string
	Elapsed      time.Duration
	PollAttempts int
	JobID        JobHandle
}

// EmotionDetectionResult is produced by the external emotion classifier.
type EmotionDetectionResult struct {
	Emotion       string             `json:"dominant_emotion"`
	Confidence    float64            `json:"confidence"`
	AllScores     map[string]float64 `json:"all_scores"`
	LowConfidence bool               `json:"low_confidence"`
}
