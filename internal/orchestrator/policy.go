package orchestrator

import (
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"server/internal/domain"
)

// Policy bundles the retry, backoff and budget knobs for generation jobs.
// The defaults balance responsiveness against load on the shared volunteer
// network; all of them are tunable through configuration.
type Policy struct {
	PollInitial      time.Duration
	PollMultiplier   float64
	PollMax          time.Duration
	PollFailureLimit int
	SubmitRetries    int
	SubmitRetryDelay time.Duration
	ModifyBudget     time.Duration
	GenerateBudget   time.Duration
}

// DefaultPolicy returns the stock policy used when no configuration
// overrides are present.
func DefaultPolicy() Policy {
	return Policy{
		PollInitial:      5 * time.Second,
		PollMultiplier:   1.5,
		PollMax:          20 * time.Second,
		PollFailureLimit: 3,
		SubmitRetries:    2,
		SubmitRetryDelay: 10 * time.Second,
		ModifyBudget:     180 * time.Second,
		GenerateBudget:   300 * time.Second,
	}
}

// schedule builds the poll cadence. Randomization is disabled so the
// interval sequence is monotone non-decreasing up to the cap.
func (p Policy) schedule() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.PollInitial
	b.Multiplier = p.PollMultiplier
	b.MaxInterval = p.PollMax
	b.RandomizationFactor = 0
	// The wall-clock budget is enforced by the tracker, not the schedule.
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// Budget returns the wall-clock limit for a job in the given mode,
// measured from submission.
func (p Policy) Budget(mode domain.Mode) time.Duration {
	if mode == domain.ModeGenerate {
		return p.GenerateBudget
	}
	return p.ModifyBudget
}

// retryableSubmission reports whether a failed submission may be retried.
// Invalid parameters are a caller defect and never retried.
func retryableSubmission(err error) bool {
	return errors.Is(err, domain.ErrProviderUnavailable) || errors.Is(err, domain.ErrRateLimited)
}

// submitDelay returns the pause before the next submission attempt. A
// provider-suggested retry-after wins when it exceeds the fixed delay.
func (p Policy) submitDelay(err error) time.Duration {
	delay := p.SubmitRetryDelay
	var rl *domain.RateLimitError
	if errors.As(err, &rl) && rl.RetryAfter > delay {
		delay = rl.RetryAfter
	}
	return delay
}
