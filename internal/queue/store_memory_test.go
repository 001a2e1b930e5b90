package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    time.Minute,
		Visibility:  30 * time.Second,
	}
}

// clock is a manual time source for driving the retry schedule.
type clock struct {
	now time.Time
}

func (c *clock) advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestQueue() (*InMemoryQueue, *clock) {
	c := &clock{now: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
	q := NewInMemoryQueue(testPolicy(), WithClock(func() time.Time { return c.now }))
	return q, c
}

func TestPolicyDelay(t *testing.T) {
	p := testPolicy()
	assert.Equal(t, time.Second, p.Delay(1))
	assert.Equal(t, 2*time.Second, p.Delay(2))
	assert.Equal(t, 4*time.Second, p.Delay(3))
	assert.Equal(t, time.Minute, p.Delay(10), "capped at MaxDelay")
	assert.Equal(t, time.Second, p.Delay(0), "attempt floor is 1")
}

func TestEnqueueDequeueAck(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestQueue()

	id, err := q.Enqueue(ctx, TopicPaymentProcessing, PaymentPayload{PaymentID: "pay-1"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	job, err := q.Dequeue(ctx, TopicPaymentProcessing)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, id, job.ID)
	assert.Equal(t, 0, job.Attempts)
	assert.JSONEq(t, `{"paymentId":"pay-1"}`, string(job.Payload))

	require.NoError(t, q.Ack(ctx, job.ID))

	again, err := q.Dequeue(ctx, TopicPaymentProcessing)
	require.NoError(t, err)
	assert.Nil(t, again, "acked job is gone")
}

func TestDequeueEmptyTopicReturnsNil(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestQueue()

	_, err := q.Enqueue(ctx, TopicNoticeProcessing, NoticePayload{NoticeID: "n-1"})
	require.NoError(t, err)

	job, err := q.Dequeue(ctx, TopicComplianceCheck)
	require.NoError(t, err)
	assert.Nil(t, job, "jobs do not leak across topics")
}

func TestDequeueIsFIFO(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestQueue()

	first, err := q.Enqueue(ctx, TopicPaymentProcessing, PaymentPayload{PaymentID: "pay-1"})
	require.NoError(t, err)
	second, err := q.Enqueue(ctx, TopicPaymentProcessing, PaymentPayload{PaymentID: "pay-2"})
	require.NoError(t, err)

	job, err := q.Dequeue(ctx, TopicPaymentProcessing)
	require.NoError(t, err)
	assert.Equal(t, first, job.ID)

	job, err = q.Dequeue(ctx, TopicPaymentProcessing)
	require.NoError(t, err)
	assert.Equal(t, second, job.ID)
}

func TestInFlightJobIsInvisible(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestQueue()

	_, err := q.Enqueue(ctx, TopicComplianceCheck, CompliancePayload{FarmID: "farm-1"})
	require.NoError(t, err)

	first, err := q.Dequeue(ctx, TopicComplianceCheck)
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := q.Dequeue(ctx, TopicComplianceCheck)
	require.NoError(t, err)
	assert.Nil(t, second, "job is invisible while in flight")
}

func TestNackRetrySchedule(t *testing.T) {
	ctx := context.Background()
	q, c := newTestQueue()

	id, err := q.Enqueue(ctx, TopicNoticeProcessing, NoticePayload{NoticeID: "n-1"})
	require.NoError(t, err)

	// First failure: retry after base delay.
	job, err := q.Dequeue(ctx, TopicNoticeProcessing)
	require.NoError(t, err)
	require.NoError(t, q.Nack(ctx, job.ID, "interpreter timeout"))

	early, err := q.Dequeue(ctx, TopicNoticeProcessing)
	require.NoError(t, err)
	assert.Nil(t, early, "not visible before the backoff elapses")

	c.advance(time.Second)
	job, err = q.Dequeue(ctx, TopicNoticeProcessing)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, 1, job.Attempts)
	assert.Equal(t, "interpreter timeout", job.LastError)

	// Second failure: backoff doubles.
	require.NoError(t, q.Nack(ctx, job.ID, "interpreter timeout"))
	c.advance(time.Second)
	early, err = q.Dequeue(ctx, TopicNoticeProcessing)
	require.NoError(t, err)
	assert.Nil(t, early)

	c.advance(time.Second)
	job, err = q.Dequeue(ctx, TopicNoticeProcessing)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, 2, job.Attempts)

	// Third failure exhausts the attempt ceiling.
	require.NoError(t, q.Nack(ctx, job.ID, "interpreter timeout"))
	c.advance(time.Minute)
	gone, err := q.Dequeue(ctx, TopicNoticeProcessing)
	require.NoError(t, err)
	assert.Nil(t, gone)

	dead, err := q.DeadLetters(ctx, TopicNoticeProcessing)
	require.NoError(t, err)
	require.Len(t, dead, 1)
	assert.Equal(t, id, dead[0].ID)
	assert.Equal(t, 3, dead[0].Attempts)
	assert.Equal(t, "interpreter timeout", dead[0].LastError)
}

func TestVisibilityDeadlineRedelivers(t *testing.T) {
	ctx := context.Background()
	q, c := newTestQueue()

	_, err := q.Enqueue(ctx, TopicPaymentProcessing, PaymentPayload{PaymentID: "pay-1"})
	require.NoError(t, err)

	job, err := q.Dequeue(ctx, TopicPaymentProcessing)
	require.NoError(t, err)
	require.NotNil(t, job)

	// The worker stalls past the visibility deadline: the job is reaped into
	// the retry path and becomes visible again after the backoff.
	c.advance(31 * time.Second)
	reaped, err := q.Dequeue(ctx, TopicPaymentProcessing)
	require.NoError(t, err)
	assert.Nil(t, reaped, "reaped job waits out its backoff first")

	c.advance(time.Second)
	redelivered, err := q.Dequeue(ctx, TopicPaymentProcessing)
	require.NoError(t, err)
	require.NotNil(t, redelivered)
	assert.Equal(t, job.ID, redelivered.ID)
	assert.Equal(t, 1, redelivered.Attempts, "a missed deadline counts as a failed attempt")
	assert.Equal(t, "visibility deadline exceeded", redelivered.LastError)
}

func TestRejectDeadLettersImmediately(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestQueue()

	id, err := q.Enqueue(ctx, TopicComplianceCheck, CompliancePayload{FarmID: "farm-1"})
	require.NoError(t, err)

	job, err := q.Dequeue(ctx, TopicComplianceCheck)
	require.NoError(t, err)
	require.NoError(t, q.Reject(ctx, job.ID, "malformed payload"))

	dead, err := q.DeadLetters(ctx, TopicComplianceCheck)
	require.NoError(t, err)
	require.Len(t, dead, 1)
	assert.Equal(t, id, dead[0].ID)
	assert.Equal(t, "malformed payload", dead[0].LastError)
	assert.Equal(t, 0, dead[0].Attempts, "no retry attempts were burned")
}

func TestAckUnknownJobFails(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestQueue()
	assert.Error(t, q.Ack(ctx, "no-such-job"))
	assert.Error(t, q.Nack(ctx, "no-such-job", "x"))
	assert.Error(t, q.Reject(ctx, "no-such-job", "x"))
}
