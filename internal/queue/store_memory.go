package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

type jobState int

const (
	statePending jobState = iota
	stateDelayed
	stateInFlight
	stateDead
)

type memJob struct {
	job      Job
	state    jobState
	readyAt  time.Time // delayed jobs become visible at this instant
	deadline time.Time // in-flight jobs are presumed dead past this instant
	seq      uint64
}

// InMemoryQueue implements Queue for tests and single-process deployments.
// Semantics match the redis implementation: at-least-once, backoff on nack,
// dead-letter at the attempt ceiling.
type InMemoryQueue struct {
	mu     sync.Mutex
	policy Policy
	now    func() time.Time
	jobs   map[string]*memJob
	seq    uint64
}

type MemoryOption func(*InMemoryQueue)

// WithClock substitutes the time source so tests can drive the retry schedule.
func WithClock(now func() time.Time) MemoryOption {
	return func(q *InMemoryQueue) {
		q.now = now
	}
}

func NewInMemoryQueue(policy Policy, opts ...MemoryOption) *InMemoryQueue {
	q := &InMemoryQueue{
		policy: policy,
		now:    time.Now,
		jobs:   make(map[string]*memJob),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

func (q *InMemoryQueue) Enqueue(_ context.Context, topic Topic, payload any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.seq++
	job := Job{
		ID:         uuid.NewString(),
		Topic:      topic,
		Payload:    body,
		EnqueuedAt: q.now(),
	}
	q.jobs[job.ID] = &memJob{job: job, state: statePending, seq: q.seq}
	return job.ID, nil
}

func (q *InMemoryQueue) Dequeue(_ context.Context, topic Topic) (*Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	q.reapLocked(now)

	var pick *memJob
	for _, mj := range q.jobs {
		if mj.job.Topic != topic {
			continue
		}
		switch mj.state {
		case statePending:
		case stateDelayed:
			if mj.readyAt.After(now) {
				continue
			}
		default:
			continue
		}
		if pick == nil || mj.seq < pick.seq {
			pick = mj
		}
	}
	if pick == nil {
		return nil, nil
	}

	pick.state = stateInFlight
	pick.deadline = now.Add(q.policy.Visibility)
	job := pick.job
	return &job, nil
}

func (q *InMemoryQueue) Ack(_ context.Context, jobID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	mj, ok := q.jobs[jobID]
	if !ok || mj.state != stateInFlight {
		return fmt.Errorf("ack %s: job not in flight", jobID)
	}
	delete(q.jobs, jobID)
	return nil
}

func (q *InMemoryQueue) Nack(_ context.Context, jobID string, reason string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	mj, ok := q.jobs[jobID]
	if !ok {
		return fmt.Errorf("nack %s: unknown job", jobID)
	}
	q.failLocked(mj, reason)
	return nil
}

func (q *InMemoryQueue) Reject(_ context.Context, jobID string, reason string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	mj, ok := q.jobs[jobID]
	if !ok {
		return fmt.Errorf("reject %s: unknown job", jobID)
	}
	mj.job.LastError = reason
	mj.state = stateDead
	return nil
}

func (q *InMemoryQueue) DeadLetters(_ context.Context, topic Topic) ([]Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var dead []Job
	for _, mj := range q.jobs {
		if mj.job.Topic == topic && mj.state == stateDead {
			dead = append(dead, mj.job)
		}
	}
	return dead, nil
}

// failLocked applies nack semantics: count the attempt, then either
// dead-letter or reschedule with backoff.
func (q *InMemoryQueue) failLocked(mj *memJob, reason string) {
	mj.job.Attempts++
	mj.job.LastError = reason
	if mj.job.Attempts >= q.policy.MaxAttempts {
		mj.state = stateDead
		return
	}
	mj.state = stateDelayed
	mj.readyAt = q.now().Add(q.policy.Delay(mj.job.Attempts))
}

// reapLocked returns jobs whose visibility deadline passed to the retry path.
func (q *InMemoryQueue) reapLocked(now time.Time) {
	for _, mj := range q.jobs {
		if mj.state == stateInFlight && !mj.deadline.After(now) {
			q.failLocked(mj, "visibility deadline exceeded")
		}
	}
}
