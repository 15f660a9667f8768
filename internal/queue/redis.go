package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisQueue is the production Queue implementation: a Redis sorted set for
// priority ordering, a Redis set for the processing claim, and one string
// key per job/result record with an independent TTL on the result. This
// mirrors the original source's queue_service.py ZADD(negative
// priority)/ZRANGE/SADD/SISMEMBER/SREM design 1:1 against the same three
// key namespaces.
type RedisQueue struct {
	client *redis.Client
	prefix string
}

// NewRedis wraps an existing go-redis client. prefix namespaces every key
// this queue touches (e.g. "chessanalysis").
func NewRedis(client *redis.Client, prefix string) *RedisQueue {
	if prefix == "" {
		prefix = "chessanalysis"
	}
	return &RedisQueue{client: client, prefix: prefix}
}

func (q *RedisQueue) queueKey() string      { return q.prefix + ":queue" }
func (q *RedisQueue) processingKey() string { return q.prefix + ":processing" }
func (q *RedisQueue) jobKey(gameID string) string {
	return q.prefix + ":job:" + gameID
}
func (q *RedisQueue) resultKey(gameID string) string {
	return q.prefix + ":result:" + gameID
}

func (q *RedisQueue) getJob(ctx context.Context, gameID string) (*Job, error) {
	raw, err := q.client.Get(ctx, q.jobKey(gameID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", gameID, err)
	}
	var job Job
	if err := json.Unmarshal(raw, &job); err != nil {
		return nil, fmt.Errorf("decode job %s: %w", gameID, err)
	}
	return &job, nil
}

func (q *RedisQueue) putJob(ctx context.Context, job *Job) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job %s: %w", job.GameID, err)
	}
	return q.client.Set(ctx, q.jobKey(job.GameID), raw, 0).Err()
}

func (q *RedisQueue) Enqueue(ctx context.Context, gameID, requester string, priority int) error {
	existing, err := q.getJob(ctx, gameID)
	if err != nil {
		return err
	}
	if existing != nil && existing.Status == StatusQueued {
		return nil // idempotent
	}

	now := time.Now()
	job := &Job{
		GameID:     gameID,
		Requester:  requester,
		Priority:   priority,
		EnqueuedAt: now,
		Status:     StatusQueued,
		Phase:      PhaseWaiting,
	}
	if err := q.putJob(ctx, job); err != nil {
		return err
	}
	return q.client.ZAdd(ctx, q.queueKey(), redis.Z{Score: float64(-priority), Member: gameID}).Err()
}

func (q *RedisQueue) PeekNext(ctx context.Context) (*Job, error) {
	entries, err := q.client.ZRangeWithScores(ctx, q.queueKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("zrange: %w", err)
	}
	if len(entries) == 0 {
		return nil, nil
	}

	type candidate struct {
		job   *Job
		score float64
	}
	var candidates []candidate
	for _, e := range entries {
		gameID := e.Member.(string)
		busy, err := q.client.SIsMember(ctx, q.processingKey(), gameID).Result()
		if err != nil {
			return nil, fmt.Errorf("sismember: %w", err)
		}
		if busy {
			continue
		}
		job, err := q.getJob(ctx, gameID)
		if err != nil || job == nil {
			continue
		}
		candidates = append(candidates, candidate{job: job, score: e.Score})
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score < candidates[j].score // lower score = higher priority
		}
		return candidates[i].job.EnqueuedAt.Before(candidates[j].job.EnqueuedAt)
	})
	return candidates[0].job, nil
}

func (q *RedisQueue) Claim(ctx context.Context, gameID string) (bool, error) {
	added, err := q.client.SAdd(ctx, q.processingKey(), gameID).Result()
	if err != nil {
		return false, fmt.Errorf("sadd: %w", err)
	}
	if added == 0 {
		return false, nil
	}

	removed, err := q.client.ZRem(ctx, q.queueKey(), gameID).Result()
	if err != nil {
		return true, fmt.Errorf("zrem after claim: %w", err)
	}
	if removed == 0 {
		// Not queue-visible (never enqueued, or already released): undo
		// the processing-set insertion.
		if err := q.client.SRem(ctx, q.processingKey(), gameID).Err(); err != nil {
			return false, fmt.Errorf("srem after rejected claim: %w", err)
		}
		return false, nil
	}

	job, err := q.getJob(ctx, gameID)
	if err != nil {
		return true, err
	}
	if job == nil {
		return true, nil
	}
	now := time.Now()
	job.Status = StatusProcessing
	job.Phase = PhaseInitial
	job.StartedAt = &now
	return true, q.putJob(ctx, job)
}

func (q *RedisQueue) Release(ctx context.Context, gameID string, outcome Status) error {
	if err := q.client.SRem(ctx, q.processingKey(), gameID).Err(); err != nil {
		return fmt.Errorf("srem: %w", err)
	}
	job, err := q.getJob(ctx, gameID)
	if err != nil || job == nil {
		return err
	}
	job.Status = outcome
	now := time.Now()
	job.EndedAt = &now
	return q.putJob(ctx, job)
}

func (q *RedisQueue) StoreResult(ctx context.Context, gameID string, payload []byte, phase Phase, ttl time.Duration) error {
	result := Result{GameID: gameID, Payload: payload, Phase: phase, StoredAt: time.Now(), TTL: ttl}
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	if err := q.client.Set(ctx, q.resultKey(gameID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("set result: %w", err)
	}

	job, err := q.getJob(ctx, gameID)
	if err != nil || job == nil {
		return err
	}
	job.Phase = phase
	job.Progress = progressForPhase(phase)
	job.ResultTTL = ttl
	if phase == PhaseComplete {
		job.Status = StatusCompleted
		now := time.Now()
		job.EndedAt = &now
	}
	return q.putJob(ctx, job)
}

func (q *RedisQueue) GetResult(ctx context.Context, gameID string) (*Result, error) {
	raw, err := q.client.Get(ctx, q.resultKey(gameID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get result: %w", err)
	}
	var result Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	return &result, nil
}

func (q *RedisQueue) GetStatus(ctx context.Context, gameID string) (*Job, error) {
	return q.getJob(ctx, gameID)
}

func (q *RedisQueue) ReapStalled(ctx context.Context, maxAge time.Duration) (int, error) {
	members, err := q.client.SMembers(ctx, q.processingKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("smembers: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	reclaimed := 0
	for _, gameID := range members {
		job, err := q.getJob(ctx, gameID)
		if err != nil || job == nil || job.StartedAt == nil {
			continue
		}
		if job.StartedAt.Before(cutoff) {
			if err := q.client.SRem(ctx, q.processingKey(), gameID).Err(); err != nil {
				return reclaimed, fmt.Errorf("srem stalled %s: %w", gameID, err)
			}
			job.Status = StatusError
			job.Error = "processing timed out"
			now := time.Now()
			job.EndedAt = &now
			if err := q.putJob(ctx, job); err != nil {
				return reclaimed, err
			}
			reclaimed++
		}
	}
	return reclaimed, nil
}

func (q *RedisQueue) Len(ctx context.Context) (int, error) {
	n, err := q.client.ZCard(ctx, q.queueKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("zcard: %w", err)
	}
	return int(n), nil
}
