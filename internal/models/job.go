package models

// JobState is the derived state of a report generation job.
type JobState string

const (
	JobStateNotFound   JobState = "not_found"
	JobStateInProgress JobState = "in_progress"
	JobStateSuccess    JobState = "success"
	JobStateFailed     JobState = "failed"
)

// Sentinel files written by the report generator into output/<job>.
const (
	SuccessSentinel = "success.txt"
	FailureSentinel = "failure.txt"
)

// JobStatus is recomputed from the output folder on every poll.
type JobStatus struct {
	Name  string   `json:"name"`
	State JobState `json:"state"`
	Files []string `json:"files,omitempty"` // result files, only set on success
}
