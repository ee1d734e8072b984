package orchestrator

import (
	"testing"
	"time"

	"server/internal/domain"
)

func TestNormalizeCompleted(t *testing.T) {
	out := outcome{
		job:   domain.Job{ID: "j", State: domain.JobStateCompleted, PollCount: 3},
		image: []byte("img"),
		mime:  "image/webp",
	}
	res := normalize(out, 42*time.Second)
	if !res.Success || res.ErrorKind != "" {
		t.Fatalf("res = %+v", res)
	}
	if res.MIME != "image/webp" || res.PollAttempts != 3 || res.JobID != "j" {
		t.Fatalf("metadata lost: %+v", res)
	}
}

func TestNormalizeFailureKinds(t *testing.T) {
	cases := []struct {
		name string
		out  outcome
		kind domain.ErrorKind
	}{
		{"timeout", outcome{job: domain.Job{State: domain.JobStateTimedOut}}, domain.ErrorKindTimeout},
		{"cancelled", outcome{job: domain.Job{State: domain.JobStateCancelled}}, domain.ErrorKindCancelled},
		{"censored", outcome{job: domain.Job{State: domain.JobStateFailed}, cause: domain.ErrCensored}, domain.ErrorKindContentFiltered},
		{"vanished", outcome{job: domain.Job{State: domain.JobStateFailed}, cause: domain.ErrJobNotFound}, domain.ErrorKindNotFound},
		{"rate limited", outcome{job: domain.Job{State: domain.JobStateFailed}, cause: &domain.RateLimitError{}}, domain.ErrorKindRateLimited},
		{"empty result", outcome{job: domain.Job{State: domain.JobStateFailed}, cause: domain.ErrEmptyResult}, domain.ErrorKindProviderUnavailable},
		{"invalid", outcome{job: domain.Job{State: domain.JobStateFailed}, cause: domain.ErrInvalidParameters}, domain.ErrorKindInvalidParameters},
		{"unavailable", outcome{job: domain.Job{State: domain.JobStateFailed}, cause: domain.ErrProviderUnavailable}, domain.ErrorKindProviderUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := normalize(tc.out, time.Second)
			if res.Success {
				t.Fatalf("failure outcome must not be success")
			}
			if res.ErrorKind != tc.kind {
				t.Fatalf("kind = %s, want %s", res.ErrorKind, tc.kind)
			}
			if res.Message == "" {
				t.Fatalf("every failure needs a message")
			}
		})
	}
}

func TestNormalizeCensoredSuggestsAdjustment(t *testing.T) {
	res := normalize(outcome{job: domain.Job{State: domain.JobStateFailed}, cause: domain.ErrCensored}, time.Second)
	if res.Suggestion == "" {
		t.Fatalf("content-filter failures carry an actionable suggestion")
	}
}
