//go:build integration

package queue_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"agrigate/internal/queue"
	"agrigate/internal/testutil/containers"
)

type RedisQueueSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	queue *queue.RedisQueue
}

func TestRedisQueueSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisQueueSuite))
}

func (s *RedisQueueSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
}

func (s *RedisQueueSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
	s.queue = queue.NewRedisQueue(s.redis.Client, queue.Policy{
		MaxAttempts: 3,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    time.Second,
		Visibility:  500 * time.Millisecond,
	})
}

func (s *RedisQueueSuite) TestEnqueueDequeueAck() {
	ctx := context.Background()

	id, err := s.queue.Enqueue(ctx, queue.TopicPaymentProcessing, queue.PaymentPayload{PaymentID: "pay-1"})
	s.Require().NoError(err)

	job, err := s.queue.Dequeue(ctx, queue.TopicPaymentProcessing)
	s.Require().NoError(err)
	s.Require().NotNil(job)
	s.Equal(id, job.ID)
	s.Equal(queue.TopicPaymentProcessing, job.Topic)
	s.JSONEq(`{"paymentId":"pay-1"}`, string(job.Payload))

	s.Require().NoError(s.queue.Ack(ctx, job.ID))

	again, err := s.queue.Dequeue(ctx, queue.TopicPaymentProcessing)
	s.Require().NoError(err)
	s.Nil(again)
}

func (s *RedisQueueSuite) TestTopicsAreIsolated() {
	ctx := context.Background()

	_, err := s.queue.Enqueue(ctx, queue.TopicNoticeProcessing, queue.NoticePayload{NoticeID: "n-1"})
	s.Require().NoError(err)

	job, err := s.queue.Dequeue(ctx, queue.TopicComplianceCheck)
	s.Require().NoError(err)
	s.Nil(job)
}

func (s *RedisQueueSuite) TestNackBackoffThenDeadLetter() {
	ctx := context.Background()

	id, err := s.queue.Enqueue(ctx, queue.TopicNoticeProcessing, queue.NoticePayload{NoticeID: "n-1"})
	s.Require().NoError(err)

	// Fail the first two deliveries, waiting out the backoff each time.
	for attempt := 1; attempt <= 2; attempt++ {
		job, err := s.queue.Dequeue(ctx, queue.TopicNoticeProcessing)
		s.Require().NoError(err)
		s.Require().NotNil(job, "attempt %d", attempt)
		s.Equal(attempt-1, job.Attempts)

		s.Require().NoError(s.queue.Nack(ctx, job.ID, "interpreter timeout"))

		early, err := s.queue.Dequeue(ctx, queue.TopicNoticeProcessing)
		s.Require().NoError(err)
		s.Nil(early, "job must wait out its backoff")

		time.Sleep(time.Duration(attempt) * 100 * time.Millisecond * 2)
	}

	// Third failure hits the ceiling.
	job, err := s.queue.Dequeue(ctx, queue.TopicNoticeProcessing)
	s.Require().NoError(err)
	s.Require().NotNil(job)
	s.Equal(2, job.Attempts)
	s.Require().NoError(s.queue.Nack(ctx, job.ID, "interpreter timeout"))

	dead, err := s.queue.DeadLetters(ctx, queue.TopicNoticeProcessing)
	s.Require().NoError(err)
	s.Require().Len(dead, 1)
	s.Equal(id, dead[0].ID)
	s.Equal(3, dead[0].Attempts)
	s.Equal("interpreter timeout", dead[0].LastError)
}

func (s *RedisQueueSuite) TestVisibilityDeadlineRedelivers() {
	ctx := context.Background()

	id, err := s.queue.Enqueue(ctx, queue.TopicComplianceCheck, queue.CompliancePayload{FarmID: "farm-1"})
	s.Require().NoError(err)

	job, err := s.queue.Dequeue(ctx, queue.TopicComplianceCheck)
	s.Require().NoError(err)
	s.Require().NotNil(job)

	// Stall past the visibility deadline: the job is reaped into the retry
	// path and becomes visible again after the backoff.
	time.Sleep(700 * time.Millisecond)
	reaped, err := s.queue.Dequeue(ctx, queue.TopicComplianceCheck)
	s.Require().NoError(err)
	s.Nil(reaped, "reaped job waits out its backoff first")

	time.Sleep(200 * time.Millisecond)
	redelivered, err := s.queue.Dequeue(ctx, queue.TopicComplianceCheck)
	s.Require().NoError(err)
	s.Require().NotNil(redelivered)
	s.Equal(id, redelivered.ID)
	s.Equal(1, redelivered.Attempts)
	s.Equal("visibility deadline exceeded", redelivered.LastError)
}

func (s *RedisQueueSuite) TestRejectSkipsRetries() {
	ctx := context.Background()

	id, err := s.queue.Enqueue(ctx, queue.TopicComplianceCheck, queue.CompliancePayload{FarmID: "ghost"})
	s.Require().NoError(err)

	job, err := s.queue.Dequeue(ctx, queue.TopicComplianceCheck)
	s.Require().NoError(err)
	s.Require().NoError(s.queue.Reject(ctx, job.ID, "farm not found"))

	dead, err := s.queue.DeadLetters(ctx, queue.TopicComplianceCheck)
	s.Require().NoError(err)
	s.Require().Len(dead, 1)
	s.Equal(id, dead[0].ID)
	s.Equal(0, dead[0].Attempts)

	again, err := s.queue.Dequeue(ctx, queue.TopicComplianceCheck)
	s.Require().NoError(err)
	s.Nil(again)
}
