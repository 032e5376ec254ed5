package jobqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Ebonybrucetravel/Ebonybrucetravel-sub003/internal/util"
)

const (
	keyScheduled = "mailq:scheduled"
	keyFailed    = "mailq:failed"
	keyCompleted = "mailq:completed"
	keyJobPrefix = "mailq:job:"

	maxAttempts  = 3
	baseBackoff  = 5 * time.Second
	pollInterval = time.Second
	claimBatch   = 16
)

// RedisQueue is the persistent delayed-email backend. Jobs survive restarts,
// get up to three attempts with exponential backoff, and failed jobs are
// retained for inspection while completed jobs are discarded.
type RedisQueue struct {
	rdb     *redis.Client
	deliver DeliverFunc
	logger  *zap.Logger

	active int64
	cancel context.CancelFunc
	done   sync.WaitGroup
}

func NewRedisQueue(addr, password string, db int, deliver DeliverFunc) (*RedisQueue, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelPing()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	workerCtx, cancel := context.WithCancel(context.Background())
	q := &RedisQueue{
		rdb:     rdb,
		deliver: deliver,
		logger:  util.GetLogger(),
		cancel:  cancel,
	}

	q.done.Add(1)
	go q.worker(workerCtx)
	return q, nil
}

func (q *RedisQueue) ScheduleEmail(ctx context.Context, delay time.Duration, job EmailJob) (string, error) {
	jobID := uuid.New().String()
	payload, err := json.Marshal(job)
	if err != nil {
		return "", err
	}

	runAt := time.Now().Add(delay).UnixMilli()
	pipe := q.rdb.TxPipeline()
	pipe.HSet(ctx, keyJobPrefix+jobID, "payload", payload, "attempts", 0)
	pipe.ZAdd(ctx, keyScheduled, &redis.Z{Score: float64(runAt), Member: jobID})
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("failed to schedule email job: %w", err)
	}

	util.EmailJobsScheduledTotal.Inc()
	return jobID, nil
}

func (q *RedisQueue) CancelEmail(ctx context.Context, jobID string) bool {
	removed, err := q.rdb.ZRem(ctx, keyScheduled, jobID).Result()
	if err != nil || removed == 0 {
		return false
	}
	q.rdb.Del(ctx, keyJobPrefix+jobID)
	return true
}

func (q *RedisQueue) Status(ctx context.Context) (Counts, error) {
	pipe := q.rdb.Pipeline()
	waiting := pipe.ZCard(ctx, keyScheduled)
	failed := pipe.SCard(ctx, keyFailed)
	completed := pipe.Get(ctx, keyCompleted)
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return Counts{}, err
	}

	completedN, _ := strconv.ParseInt(completed.Val(), 10, 64)
	return Counts{
		Waiting:   waiting.Val(),
		Active:    atomic.LoadInt64(&q.active),
		Completed: completedN,
		Failed:    failed.Val(),
	}, nil
}

func (q *RedisQueue) Close() error {
	q.cancel()
	q.done.Wait()
	return q.rdb.Close()
}

func (q *RedisQueue) worker(ctx context.Context) {
	defer q.done.Done()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			q.drainDue(ctx)
		}
	}
}

func (q *RedisQueue) drainDue(ctx context.Context) {
	now := time.Now().UnixMilli()
	jobIDs, err := q.rdb.ZRangeByScore(ctx, keyScheduled, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now, 10),
		Count: claimBatch,
	}).Result()
	if err != nil {
		if ctx.Err() == nil {
			q.logger.Warn("Failed to poll email queue", zap.Error(err))
		}
		return
	}

	for _, jobID := range jobIDs {
		// ZRem is the claim: only one worker wins a given member.
		claimed, err := q.rdb.ZRem(ctx, keyScheduled, jobID).Result()
		if err != nil || claimed == 0 {
			continue
		}
		q.process(ctx, jobID)
	}
}

func (q *RedisQueue) process(ctx context.Context, jobID string) {
	atomic.AddInt64(&q.active, 1)
	defer atomic.AddInt64(&q.active, -1)

	jobKey := keyJobPrefix + jobID
	payload, err := q.rdb.HGet(ctx, jobKey, "payload").Result()
	if err != nil {
		q.logger.Warn("Email job payload missing", zap.String("job_id", jobID), zap.Error(err))
		return
	}

	var job EmailJob
	if err := json.Unmarshal([]byte(payload), &job); err != nil {
		q.logger.Error("Email job payload corrupt", zap.String("job_id", jobID), zap.Error(err))
		q.rdb.SAdd(ctx, keyFailed, jobID)
		return
	}

	deliverCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	err = q.deliver(deliverCtx, job)
	cancel()

	if err == nil {
		q.rdb.Del(ctx, jobKey)
		q.rdb.Incr(ctx, keyCompleted)
		return
	}

	attempts, incrErr := q.rdb.HIncrBy(ctx, jobKey, "attempts", 1).Result()
	if incrErr != nil {
		attempts = maxAttempts
	}

	if attempts >= maxAttempts {
		// Retain the job hash for inspection.
		q.rdb.SAdd(ctx, keyFailed, jobID)
		util.EmailJobsFailedTotal.Inc()
		q.logger.Warn("Email job exhausted retries",
			zap.String("job_id", jobID),
			zap.String("kind", job.Kind),
			zap.Error(err))
		return
	}

	backoff := baseBackoff * time.Duration(1<<uint(attempts-1))
	q.rdb.ZAdd(ctx, keyScheduled, &redis.Z{
		Score:  float64(time.Now().Add(backoff).UnixMilli()),
		Member: jobID,
	})
	q.logger.Info("Email job rescheduled",
		zap.String("job_id", jobID),
		zap.Int64("attempt", attempts),
		zap.Duration("backoff", backoff))
}
