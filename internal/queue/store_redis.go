package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisQueue implements Queue on top of redis: a pending list per topic, a
// delayed sorted set scored by ready time, an in-flight sorted set scored by
// visibility deadline, and a dead-letter list. Job bodies live under their own
// keys so ack/nack can address a job by id alone.
//
// Operations are not atomic across keys; a crash between steps yields
// redelivery, never loss, which is the at-least-once contract handlers are
// written against.
type RedisQueue struct {
	rdb    redis.UniversalClient
	policy Policy
	prefix string
}

func NewRedisQueue(rdb redis.UniversalClient, policy Policy) *RedisQueue {
	return &RedisQueue{rdb: rdb, policy: policy, prefix: "agrigate"}
}

func (q *RedisQueue) jobKey(id string) string    { return fmt.Sprintf("%s:job:%s", q.prefix, id) }
func (q *RedisQueue) pendingKey(t Topic) string  { return fmt.Sprintf("%s:pending:%s", q.prefix, t) }
func (q *RedisQueue) delayedKey(t Topic) string  { return fmt.Sprintf("%s:delayed:%s", q.prefix, t) }
func (q *RedisQueue) inflightKey(t Topic) string { return fmt.Sprintf("%s:inflight:%s", q.prefix, t) }
func (q *RedisQueue) deadKey(t Topic) string     { return fmt.Sprintf("%s:dead:%s", q.prefix, t) }

func (q *RedisQueue) Enqueue(ctx context.Context, topic Topic, payload any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	job := Job{
		ID:         uuid.NewString(),
		Topic:      topic,
		Payload:    body,
		EnqueuedAt: time.Now(),
	}
	if err := q.saveJob(ctx, job); err != nil {
		return "", err
	}
	if err := q.rdb.LPush(ctx, q.pendingKey(topic), job.ID).Err(); err != nil {
		return "", fmt.Errorf("push pending: %w", err)
	}
	return job.ID, nil
}

func (q *RedisQueue) Dequeue(ctx context.Context, topic Topic) (*Job, error) {
	now := time.Now()
	if err := q.promoteDelayed(ctx, topic, now); err != nil {
		return nil, err
	}
	if err := q.reapInflight(ctx, topic, now); err != nil {
		return nil, err
	}

	id, err := q.rdb.RPop(ctx, q.pendingKey(topic)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pop pending: %w", err)
	}

	job, err := q.loadJob(ctx, id)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// Body vanished (acked by a racing worker after a reap); skip.
			return nil, nil
		}
		return nil, err
	}

	deadline := now.Add(q.policy.Visibility)
	if err := q.rdb.ZAdd(ctx, q.inflightKey(topic), redis.Z{Score: float64(deadline.UnixMilli()), Member: id}).Err(); err != nil {
		return nil, fmt.Errorf("mark in flight: %w", err)
	}
	return job, nil
}

func (q *RedisQueue) Ack(ctx context.Context, jobID string) error {
	job, err := q.loadJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("ack %s: %w", jobID, err)
	}
	pipe := q.rdb.TxPipeline()
	pipe.ZRem(ctx, q.inflightKey(job.Topic), jobID)
	pipe.Del(ctx, q.jobKey(jobID))
	_, err = pipe.Exec(ctx)
	return err
}

func (q *RedisQueue) Nack(ctx context.Context, jobID string, reason string) error {
	job, err := q.loadJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("nack %s: %w", jobID, err)
	}
	return q.fail(ctx, *job, reason)
}

func (q *RedisQueue) Reject(ctx context.Context, jobID string, reason string) error {
	job, err := q.loadJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("reject %s: %w", jobID, err)
	}
	job.LastError = reason
	return q.deadLetter(ctx, *job)
}

func (q *RedisQueue) DeadLetters(ctx context.Context, topic Topic) ([]Job, error) {
	bodies, err := q.rdb.LRange(ctx, q.deadKey(topic), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list dead letters: %w", err)
	}
	jobs := make([]Job, 0, len(bodies))
	for _, body := range bodies {
		var job Job
		if err := json.Unmarshal([]byte(body), &job); err != nil {
			return nil, fmt.Errorf("decode dead letter: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (q *RedisQueue) fail(ctx context.Context, job Job, reason string) error {
	job.Attempts++
	job.LastError = reason
	if job.Attempts >= q.policy.MaxAttempts {
		return q.deadLetter(ctx, job)
	}

	if err := q.saveJob(ctx, job); err != nil {
		return err
	}
	readyAt := time.Now().Add(q.policy.Delay(job.Attempts))
	pipe := q.rdb.TxPipeline()
	pipe.ZRem(ctx, q.inflightKey(job.Topic), job.ID)
	pipe.ZAdd(ctx, q.delayedKey(job.Topic), redis.Z{Score: float64(readyAt.UnixMilli()), Member: job.ID})
	_, err := pipe.Exec(ctx)
	return err
}

func (q *RedisQueue) deadLetter(ctx context.Context, job Job) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal dead letter: %w", err)
	}
	pipe := q.rdb.TxPipeline()
	pipe.ZRem(ctx, q.inflightKey(job.Topic), job.ID)
	pipe.LPush(ctx, q.deadKey(job.Topic), body)
	pipe.Del(ctx, q.jobKey(job.ID))
	_, err = pipe.Exec(ctx)
	return err
}

// promoteDelayed moves jobs whose backoff elapsed back onto the pending list.
func (q *RedisQueue) promoteDelayed(ctx context.Context, topic Topic, now time.Time) error {
	ids, err := q.rdb.ZRangeByScore(ctx, q.delayedKey(topic), &redis.ZRangeBy{
		Min: "-inf", Max: fmt.Sprintf("%d", now.UnixMilli()), Count: 100,
	}).Result()
	if err != nil {
		return fmt.Errorf("scan delayed: %w", err)
	}
	for _, id := range ids {
		removed, err := q.rdb.ZRem(ctx, q.delayedKey(topic), id).Result()
		if err != nil {
			return err
		}
		if removed == 0 {
			continue // another worker promoted it
		}
		if err := q.rdb.LPush(ctx, q.pendingKey(topic), id).Err(); err != nil {
			return err
		}
	}
	return nil
}

// reapInflight treats jobs past their visibility deadline as failed attempts,
// making them eligible for redelivery to another worker.
func (q *RedisQueue) reapInflight(ctx context.Context, topic Topic, now time.Time) error {
	ids, err := q.rdb.ZRangeByScore(ctx, q.inflightKey(topic), &redis.ZRangeBy{
		Min: "-inf", Max: fmt.Sprintf("%d", now.UnixMilli()), Count: 100,
	}).Result()
	if err != nil {
		return fmt.Errorf("scan inflight: %w", err)
	}
	for _, id := range ids {
		removed, err := q.rdb.ZRem(ctx, q.inflightKey(topic), id).Result()
		if err != nil {
			return err
		}
		if removed == 0 {
			continue
		}
		job, err := q.loadJob(ctx, id)
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return err
		}
		if err := q.fail(ctx, *job, "visibility deadline exceeded"); err != nil {
			return err
		}
	}
	return nil
}

func (q *RedisQueue) saveJob(ctx context.Context, job Job) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.rdb.Set(ctx, q.jobKey(job.ID), body, 0).Err(); err != nil {
		return fmt.Errorf("save job: %w", err)
	}
	return nil
}

func (q *RedisQueue) loadJob(ctx context.Context, id string) (*Job, error) {
	body, err := q.rdb.Get(ctx, q.jobKey(id)).Result()
	if err != nil {
		return nil, err
	}
	var job Job
	if err := json.Unmarshal([]byte(body), &job); err != nil {
		return nil, fmt.Errorf("decode job: %w", err)
	}
	return &job, nil
}
