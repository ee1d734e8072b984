package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidParameters   = errors.New("invalid parameters")
	ErrProviderUnavailable = errors.New("provider unavailable")
	ErrRateLimited         = errors.New("rate limited")
	ErrJobNotFound         = errors.New("job not found")
	ErrTransient           = errors.New("transient provider failure")
	ErrCensored            = errors.New("content censored by provider")
	ErrEmptyResult         = errors.New("completed job returned no image")
	ErrNoFaceDetected      = errors.New("no face detected")
)

// RateLimitError carries the provider-suggested retry delay from a
// 429-class response. errors.Is(err, ErrRateLimited) matches it.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
	}
	return "rate limited"
}

func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}
