package orchestrator

import (
	"errors"
	"fmt"
	"time"

	"server/internal/domain"
)

// normalize maps a terminal job outcome onto the stable GenerationResult
// contract. Every failure carries a human-readable reason and, where it
// helps, a suggestion.
func normalize(out outcome, elapsed time.Duration) domain.GenerationResult {
	res := domain.GenerationResult{
		Elapsed:      elapsed,
		PollAttempts: out.job.PollCount,
		JobID:        out.job.ID,
	}

	switch out.job.State {
	case domain.JobStateCompleted:
		res.Success = true
		res.Image = out.image
		res.MIME = out.mime
		return res
	case domain.JobStateTimedOut:
		res.ErrorKind = domain.ErrorKindTimeout
		res.Message = fmt.Sprintf("generation did not finish within the time budget (%d polls over %s)",
			out.job.PollCount, elapsed.Round(time.Second))
		res.Suggestion = "the network is busy; try again later"
		return res
	case domain.JobStateCancelled:
		res.ErrorKind = domain.ErrorKindCancelled
		res.Message = "generation was cancelled before completion"
		return res
	}

	res.ErrorKind, res.Message, res.Suggestion = classifyFailure(out.cause)
	return res
}

func classifyFailure(cause error) (domain.ErrorKind, string, string) {
	switch {
	case cause == nil:
		return domain.ErrorKindProviderUnavailable, "generation failed for an unknown reason", "try again later"
	case errors.Is(cause, domain.ErrInvalidParameters):
		return domain.ErrorKindInvalidParameters, cause.Error(), "check the request parameters and image"
	case errors.Is(cause, domain.ErrCensored):
		return domain.ErrorKindContentFiltered, "the network declined to return the generated content", "adjust the source image or reduce the intensity"
	case errors.Is(cause, domain.ErrJobNotFound):
		return domain.ErrorKindNotFound, "the network no longer knows this job; it likely expired", "resubmit the request"
	case errors.Is(cause, domain.ErrRateLimited):
		return domain.ErrorKindRateLimited, cause.Error(), "wait a moment before submitting again"
	case errors.Is(cause, domain.ErrEmptyResult):
		// A done job without payload is a provider anomaly, not a caller error.
		return domain.ErrorKindProviderUnavailable, "the job completed but the network returned no image", "try again later"
	default:
		return domain.ErrorKindProviderUnavailable, cause.Error(), "try again later"
	}
}
