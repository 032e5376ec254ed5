// Package jobqueue schedules non-critical follow-up emails with a delay,
// decoupled from the settlement path. Delivery is at-most-once; callers
// must never depend on it for correctness.
package jobqueue

import (
	"context"
	"time"
)

// EmailJob is the payload a scheduled job delivers.
type EmailJob struct {
	Kind      string `json:"kind"`
	To        string `json:"to"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	Reference string `json:"reference"`
}

// DeliverFunc sends the email when the job fires.
type DeliverFunc func(ctx context.Context, job EmailJob) error

// Counts is a point-in-time snapshot of the queue.
type Counts struct {
	Waiting   int64 `json:"waiting"`
	Active    int64 `json:"active"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
}

// Queue is implemented by the Redis-backed and the in-process backends.
type Queue interface {
	// ScheduleEmail enqueues a job to run after delay and returns its id.
	ScheduleEmail(ctx context.Context, delay time.Duration, job EmailJob) (string, error)
	// CancelEmail removes a not-yet-started job. Returns false when the job
	// is unknown or already running.
	CancelEmail(ctx context.Context, jobID string) bool
	// Status reports queue counters.
	Status(ctx context.Context) (Counts, error)
	// Close stops background workers.
	Close() error
}
