package jobqueue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryQueueDelivers(t *testing.T) {
	var delivered int32
	got := make(chan EmailJob, 1)

	q := NewMemoryQueue(func(ctx context.Context, job EmailJob) error {
		atomic.AddInt32(&delivered, 1)
		got <- job
		return nil
	})
	defer q.Close()

	jobID, err := q.ScheduleEmail(context.Background(), 10*time.Millisecond, EmailJob{
		Kind:      "receipt",
		To:        "guest@example.com",
		Reference: "EBT-1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, jobID)

	select {
	case job := <-got:
		assert.Equal(t, "receipt", job.Kind)
	case <-time.After(time.Second):
		t.Fatal("job never delivered")
	}

	assert.Eventually(t, func() bool {
		counts, err := q.Status(context.Background())
		return err == nil && counts.Completed == 1 && counts.Waiting == 0
	}, time.Second, 10*time.Millisecond)
}

func TestMemoryQueueCancel(t *testing.T) {
	q := NewMemoryQueue(func(ctx context.Context, job EmailJob) error {
		t.Fatal("cancelled job must not run")
		return nil
	})
	defer q.Close()

	jobID, err := q.ScheduleEmail(context.Background(), time.Hour, EmailJob{Kind: "receipt"})
	require.NoError(t, err)

	assert.True(t, q.CancelEmail(context.Background(), jobID))
	assert.False(t, q.CancelEmail(context.Background(), jobID))
	assert.False(t, q.CancelEmail(context.Background(), "unknown"))

	counts, err := q.Status(context.Background())
	require.NoError(t, err)
	assert.Zero(t, counts.Waiting)
}

func TestMemoryQueueNoRetry(t *testing.T) {
	var attempts int32
	q := NewMemoryQueue(func(ctx context.Context, job EmailJob) error {
		atomic.AddInt32(&attempts, 1)
		return errors.New("smtp down")
	})
	defer q.Close()

	_, err := q.ScheduleEmail(context.Background(), time.Millisecond, EmailJob{Kind: "receipt"})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		counts, err := q.Status(context.Background())
		return err == nil && counts.Failed == 1
	}, time.Second, 10*time.Millisecond)

	// at-most-once: a failed delivery is not attempted again
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
}
