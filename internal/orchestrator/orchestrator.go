// Package orchestrator drives emotion portrait jobs against the external
// generation network: it validates requests, submits them, polls to
// completion under retry/backoff and timeout policy, and normalizes the
// outcome into a stable result contract.
package orchestrator

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/prompt"
)

// Options configures the orchestrator facade.
type Options struct {
	Provider ProviderClient
	Policy   Policy
	Logger   infra.Logger
	// MaxConcurrent caps in-flight generations; zero disables the cap.
	MaxConcurrent int
	// SubmitInterval spaces submissions to the shared network as a
	// courtesy; zero disables the limiter.
	SubmitInterval time.Duration
	// OnProgress receives observational snapshots during polling.
	OnProgress func(domain.Progress)
}

// Orchestrator is the facade the request layer calls. It is safe for
// concurrent use; every Generate call owns an independent job and tracker.
type Orchestrator struct {
	provider   ProviderClient
	policy     Policy
	logger     infra.Logger
	sem        *semaphore.Weighted
	limiter    *rate.Limiter
	onProgress func(domain.Progress)
}

func New(opts Options) *Orchestrator {
	o := &Orchestrator{
		provider:   opts.Provider,
		policy:     opts.Policy,
		logger:     opts.Logger,
		onProgress: opts.OnProgress,
	}
	if o.policy == (Policy{}) {
		o.policy = DefaultPolicy()
	}
	if opts.MaxConcurrent > 0 {
		o.sem = semaphore.NewWeighted(int64(opts.MaxConcurrent))
	}
	if opts.SubmitInterval > 0 {
		o.limiter = rate.NewLimiter(rate.Every(opts.SubmitInterval), 1)
	}
	return o
}

// Generate runs one generation end to end and always returns a terminal
// result; provider-side conditions never surface as raw errors. The
// request is validated (and its intensity clamped) before any network
// call is made.
func (o *Orchestrator) Generate(ctx context.Context, req domain.GenerationRequest) domain.GenerationResult {
	start := time.Now()
	requestID := uuid.NewString()
	logger := o.logger.With().Str("request_id", requestID).Logger()

	req.Normalize()
	if err := req.Validate(); err != nil {
		logger.Warn().Err(err).Msg("rejected invalid generation request")
		return normalize(outcome{
			job:   domain.Job{State: domain.JobStateFailed},
			cause: err,
		}, time.Since(start))
	}

	if o.sem != nil {
		if err := o.sem.Acquire(ctx, 1); err != nil {
			return normalize(outcome{
				job:   domain.Job{State: domain.JobStateCancelled},
				cause: err,
			}, time.Since(start))
		}
		defer o.sem.Release(1)
	}
	if o.limiter != nil {
		if err := o.limiter.Wait(ctx); err != nil {
			return normalize(outcome{
				job:   domain.Job{State: domain.JobStateCancelled},
				cause: err,
			}, time.Since(start))
		}
	}

	spec := prompt.Build(req)
	logger.Info().
		Str("mode", string(req.Mode)).
		Str("emotion", string(req.Emotion)).
		Str("style", string(req.Style)).
		Float64("intensity", req.Intensity).
		Msg("dispatching generation")

	tr := &tracker{
		client:     o.provider,
		policy:     o.policy,
		logger:     logger,
		onProgress: o.onProgress,
	}
	out := tr.run(ctx, spec, o.policy.Budget(req.Mode))
	res := normalize(out, time.Since(start))

	evt := logger.Info()
	if !res.Success {
		evt = logger.Warn()
	}
	evt.
		Str("job_id", string(res.JobID)).
		Str("state", string(out.job.State)).
		Str("error_kind", string(res.ErrorKind)).
		Dur("elapsed", res.Elapsed).
		Int("polls", res.PollAttempts).
		Msg("generation finished")
	return res
}
