package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"server/internal/domain"
	"server/internal/infra"
)

// ProviderClient is the slice of the generation network the tracker needs.
// None of these calls retry internally.
type ProviderClient interface {
	Submit(ctx context.Context, spec domain.JobSpec) (domain.JobHandle, error)
	PollStatus(ctx context.Context, id domain.JobHandle) (domain.StatusSnapshot, error)
	FetchAsset(ctx context.Context, id domain.JobHandle) ([]byte, string, error)
	Cancel(ctx context.Context, id domain.JobHandle) error
}

// tracker owns the lifecycle of one submitted job: submission with retry,
// poll cadence, budget enforcement, and terminal state classification.
// A tracker is used for exactly one job and never shared.
type tracker struct {
	client     ProviderClient
	policy     Policy
	logger     infra.Logger
	onProgress func(domain.Progress)
}

// outcome carries the terminal job plus the fetched asset or the causing
// error; the normalizer turns it into a GenerationResult.
type outcome struct {
	job   domain.Job
	image []byte
	mime  string
	cause error
}

// run drives submit → poll loop → fetch for one job. It always returns a
// terminal job state and never panics for provider-side conditions.
func (t *tracker) run(ctx context.Context, spec domain.JobSpec, budget time.Duration) outcome {
	job := domain.Job{State: domain.JobStateSubmitted}

	id, err := t.submit(ctx, spec)
	if err != nil {
		if ctx.Err() != nil {
			job.State = domain.JobStateCancelled
			return outcome{job: job, cause: ctx.Err()}
		}
		// Submission errors are terminal immediately.
		job.State = domain.JobStateFailed
		return outcome{job: job, cause: err}
	}

	job.ID = id
	job.SubmittedAt = time.Now()
	job.State = domain.JobStateQueued
	deadline := job.SubmittedAt.Add(budget)
	schedule := t.policy.schedule()
	consecutiveFailures := 0

	t.logger.Info().
		Str("job_id", string(id)).
		Dur("budget", budget).
		Msg("job submitted, polling until completion")

	for {
		if !t.sleep(ctx, schedule.NextBackOff()) {
			t.cancelRemote(id)
			job.State = domain.JobStateCancelled
			return outcome{job: job, cause: ctx.Err()}
		}
		if time.Now().After(deadline) {
			t.cancelRemote(id)
			job.State = domain.JobStateTimedOut
			return outcome{job: job}
		}

		snap, err := t.client.PollStatus(ctx, id)
		job.PollCount++
		job.LastPollAt = time.Now()
		job.Waited = time.Since(job.SubmittedAt)
		if err != nil {
			if ctx.Err() != nil {
				t.cancelRemote(id)
				job.State = domain.JobStateCancelled
				return outcome{job: job, cause: ctx.Err()}
			}
			if errors.Is(err, domain.ErrJobNotFound) {
				job.State = domain.JobStateFailed
				return outcome{job: job, cause: err}
			}
			consecutiveFailures++
			t.logger.Warn().
				Str("job_id", string(id)).
				Int("consecutive_failures", consecutiveFailures).
				Err(err).
				Msg("poll failed")
			if consecutiveFailures >= t.policy.PollFailureLimit {
				job.State = domain.JobStateFailed
				return outcome{job: job, cause: fmt.Errorf("%d consecutive poll failures: %w", consecutiveFailures, domain.ErrProviderUnavailable)}
			}
			continue
		}
		consecutiveFailures = 0
		job.QueuePos = snap.QueuePos

		if snap.Faulted {
			job.State = domain.JobStateFailed
			return outcome{job: job, cause: fmt.Errorf("generation faulted on the network: %w", domain.ErrProviderUnavailable)}
		}
		if snap.Done {
			image, mime, err := t.client.FetchAsset(ctx, id)
			if err != nil {
				job.State = domain.JobStateFailed
				return outcome{job: job, cause: err}
			}
			job.State = domain.JobStateCompleted
			return outcome{job: job, image: image, mime: mime}
		}

		if snap.Processing {
			job.State = domain.JobStateProcessing
		} else {
			job.State = domain.JobStateQueued
		}
		t.emitProgress(job)
	}
}

// submit attempts the submission under the retry policy. Rate-limit and
// availability errors are retried with a fixed delay; parameter errors
// surface immediately.
func (t *tracker) submit(ctx context.Context, spec domain.JobSpec) (domain.JobHandle, error) {
	var lastErr error
	for attempt := 0; attempt <= t.policy.SubmitRetries; attempt++ {
		if attempt > 0 {
			t.logger.Info().
				Int("attempt", attempt+1).
				Err(lastErr).
				Msg("retrying submission")
			if !t.sleep(ctx, t.policy.submitDelay(lastErr)) {
				return "", ctx.Err()
			}
		}
		id, err := t.client.Submit(ctx, spec)
		if err == nil {
			return id, nil
		}
		if !retryableSubmission(err) {
			return "", err
		}
		lastErr = err
	}
	return "", lastErr
}

// sleep suspends for d while observing ctx. It reports false when the
// context ended first, which the caller treats as cancellation.
func (t *tracker) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// cancelRemote notifies the provider on a best-effort basis. The provider
// may still finish the job; its result is discarded either way.
func (t *tracker) cancelRemote(id domain.JobHandle) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := t.client.Cancel(ctx, id); err != nil {
		t.logger.Debug().Str("job_id", string(id)).Err(err).Msg("best-effort cancel failed")
	}
}

func (t *tracker) emitProgress(job domain.Job) {
	if t.onProgress == nil {
		return
	}
	t.onProgress(domain.Progress{
		State:    job.State,
		Elapsed:  job.Waited,
		QueuePos: job.QueuePos,
	})
}
