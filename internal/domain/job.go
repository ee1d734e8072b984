package domain

import "time"

// JobHandle is the opaque identifier the provider assigns on submission.
type JobHandle string

// JobState enumerates job lifecycle states.
type JobState string

const (
	JobStateSubmitted  JobState = "submitted"
	JobStateQueued     JobState = "queued"
	JobStateProcessing JobState = "processing"
	JobStateCompleted  JobState = "completed"
	JobStateFailed     JobState = "failed"
	JobStateTimedOut   JobState = "timed_out"
	JobStateCancelled  JobState = "cancelled"
)

// Terminal reports whether the state ends the job lifecycle.
func (s JobState) Terminal() bool {
	switch s {
	case JobStateCompleted, JobStateFailed, JobStateTimedOut, JobStateCancelled:
		return true
	}
	return false
}

// Job tracks one submitted generation. It is owned exclusively by the
// tracker that created it and discarded once a terminal result is produced.
type Job struct {
	ID          JobHandle
	SubmittedAt time.Time
	State       JobState
	LastPollAt  time.Time
	PollCount   int
	Waited      time.Duration
	QueuePos    int
}

// JobSpec is the provider-neutral shape of a submission, produced by the
// prompt builder. No provider field names appear here.
type JobSpec struct {
	Prompt      string
	SourceImage []byte
	Steps       int
	Width       int
	Height      int
	CfgScale    float64
	Sampler     string
	Denoise     float64
}

// StatusSnapshot is the provider-reported progress of a job, normalized at
// the provider client boundary.
type StatusSnapshot struct {
	Done       bool
	Processing bool
	QueuePos   int
	WaitTime   time.Duration
	Faulted    bool
}

// Progress is the observational snapshot emitted to progress callbacks
// while a job is polled. It never influences orchestration decisions.
type Progress struct {
	State    JobState
	Elapsed  time.Duration
	QueuePos int
}
