package jobqueue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Ebonybrucetravel/Ebonybrucetravel-sub003/internal/util"
)

// MemoryQueue is the best-effort in-process backend used when no Redis
// address is configured. Scheduled jobs are lost on restart and failed
// deliveries are not retried.
type MemoryQueue struct {
	deliver DeliverFunc
	logger  *zap.Logger

	mu        sync.Mutex
	timers    map[string]*time.Timer
	active    int64
	completed int64
	failed    int64
	closed    bool
}

func NewMemoryQueue(deliver DeliverFunc) *MemoryQueue {
	return &MemoryQueue{
		deliver: deliver,
		logger:  util.GetLogger(),
		timers:  make(map[string]*time.Timer),
	}
}

func (q *MemoryQueue) ScheduleEmail(_ context.Context, delay time.Duration, job EmailJob) (string, error) {
	jobID := uuid.New().String()

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return "", context.Canceled
	}

	q.timers[jobID] = time.AfterFunc(delay, func() {
		q.run(jobID, job)
	})

	util.EmailJobsScheduledTotal.Inc()
	return jobID, nil
}

func (q *MemoryQueue) run(jobID string, job EmailJob) {
	q.mu.Lock()
	if _, ok := q.timers[jobID]; !ok {
		q.mu.Unlock()
		return
	}
	delete(q.timers, jobID)
	q.active++
	q.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	err := q.deliver(ctx, job)

	q.mu.Lock()
	q.active--
	if err != nil {
		q.failed++
		q.mu.Unlock()
		util.EmailJobsFailedTotal.Inc()
		q.logger.Warn("Email job failed (no retry in memory backend)",
			zap.String("job_id", jobID),
			zap.String("kind", job.Kind),
			zap.Error(err))
		return
	}
	q.completed++
	q.mu.Unlock()
}

func (q *MemoryQueue) CancelEmail(_ context.Context, jobID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	timer, ok := q.timers[jobID]
	if !ok {
		return false
	}
	delete(q.timers, jobID)
	return timer.Stop()
}

func (q *MemoryQueue) Status(_ context.Context) (Counts, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Counts{
		Waiting:   int64(len(q.timers)),
		Active:    q.active,
		Completed: q.completed,
		Failed:    q.failed,
	}, nil
}

func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	for id, timer := range q.timers {
		timer.Stop()
		delete(q.timers, id)
	}
	return nil
}
