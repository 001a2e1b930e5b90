package queue

import (
	"context"
	"encoding/json"
	"time"
)

// Topic names one of the pipeline's job streams.
type Topic string

const (
	TopicNoticeProcessing  Topic = "notice-processing"
	TopicComplianceCheck   Topic = "compliance-check"
	TopicPaymentProcessing Topic = "payment-processing"
)

// Topics lists every stream a worker pool can consume.
func Topics() []Topic {
	return []Topic{TopicNoticeProcessing, TopicComplianceCheck, TopicPaymentProcessing}
}

// Job is a unit of work with at-least-once delivery. A worker crash after side
// effects but before ack causes redelivery, so handlers must converge when
// re-run with the same payload.
type Job struct {
	ID         string          `json:"id"`
	Topic      Topic           `json:"topic"`
	Payload    json.RawMessage `json:"payload"`
	Attempts   int             `json:"attempts"` // failed deliveries so far
	EnqueuedAt time.Time       `json:"enqueuedAt"`
	LastError  string          `json:"lastError,omitempty"`
}

// Queue is the durable work distribution contract. Ordering across jobs of the
// same topic is not guaranteed; per-entity serialization belongs to consumers.
type Queue interface {
	Enqueue(ctx context.Context, topic Topic, payload any) (string, error)
	// Dequeue returns the next visible job for the topic, or nil when none is
	// ready. The job stays invisible to other workers until its visibility
	// deadline passes.
	Dequeue(ctx context.Context, topic Topic) (*Job, error)
	Ack(ctx context.Context, jobID string) error
	// Nack records a failed attempt and reschedules with exponential backoff,
	// dead-lettering once the attempt ceiling is reached.
	Nack(ctx context.Context, jobID string, reason string) error
	// Reject dead-letters a job immediately, bypassing retries. Used for
	// permanent failures such as malformed payloads.
	Reject(ctx context.Context, jobID string, reason string) error
	DeadLetters(ctx context.Context, topic Topic) ([]Job, error)
}

// Policy bounds retry behavior for a queue.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Visibility  time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    time.Minute,
		Visibility:  30 * time.Second,
	}
}

// Delay computes the backoff before retry number attempt+1: base × 2^(attempt−1),
// capped at MaxDelay. Attempt counts failed deliveries and starts at 1.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Wire payloads, one per topic.

type NoticePayload struct {
	NoticeID    string    `json:"noticeId"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	PublishDate time.Time `json:"publishDate"`
}

type CompliancePayload struct {
	FarmID           string `json:"farmId"`
	ImageryReference string `json:"imageryReference"`
}

type PaymentPayload struct {
	PaymentID string `json:"paymentId"`
}
