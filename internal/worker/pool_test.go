package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agrigate/internal/queue"
	"agrigate/internal/worker/metrics"
)

func fastPolicy(maxAttempts int) queue.Policy {
	return queue.Policy{
		MaxAttempts: maxAttempts,
		BaseDelay:   time.Millisecond,
		MaxDelay:    10 * time.Millisecond,
		Visibility:  time.Second,
	}
}

func runPool(t *testing.T, p *Pool) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("pool did not stop after cancel")
		}
	})
	return cancel
}

func TestNewRequiresQueue(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}

func TestRunRequiresHandlers(t *testing.T) {
	p, err := New(queue.NewInMemoryQueue(fastPolicy(3)))
	require.NoError(t, err)
	assert.Error(t, p.Run(context.Background()))
}

func TestPoolAcksSuccessfulJobs(t *testing.T) {
	ctx := context.Background()
	q := queue.NewInMemoryQueue(fastPolicy(3))

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	var handled atomic.Int32
	p, err := New(q, WithWorkers(1), WithPollInterval(time.Millisecond), WithMetrics(m))
	require.NoError(t, err)
	p.Handle(queue.TopicPaymentProcessing, func(_ context.Context, _ *queue.Job) error {
		handled.Add(1)
		return nil
	})

	_, err = q.Enqueue(ctx, queue.TopicPaymentProcessing, queue.PaymentPayload{PaymentID: "pay-1"})
	require.NoError(t, err)

	runPool(t, p)

	require.Eventually(t, func() bool { return handled.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		return promtestutil.ToFloat64(m.JobsProcessed.WithLabelValues("payment-processing")) == 1
	}, 2*time.Second, 5*time.Millisecond)

	dead, err := q.DeadLetters(ctx, queue.TopicPaymentProcessing)
	require.NoError(t, err)
	assert.Empty(t, dead)
}

func TestPoolRejectsPermanentFailures(t *testing.T) {
	ctx := context.Background()
	q := queue.NewInMemoryQueue(fastPolicy(3))

	p, err := New(q, WithWorkers(1), WithPollInterval(time.Millisecond))
	require.NoError(t, err)
	p.Handle(queue.TopicComplianceCheck, func(_ context.Context, _ *queue.Job) error {
		return Permanent(errors.New("farm not found"))
	})

	_, err = q.Enqueue(ctx, queue.TopicComplianceCheck, queue.CompliancePayload{FarmID: "ghost"})
	require.NoError(t, err)

	runPool(t, p)

	require.Eventually(t, func() bool {
		dead, err := q.DeadLetters(ctx, queue.TopicComplianceCheck)
		return err == nil && len(dead) == 1
	}, 2*time.Second, 5*time.Millisecond)

	dead, err := q.DeadLetters(ctx, queue.TopicComplianceCheck)
	require.NoError(t, err)
	require.Len(t, dead, 1)
	assert.Equal(t, 0, dead[0].Attempts, "permanent failures skip the retry budget")
	assert.Contains(t, dead[0].LastError, "farm not found")
}

func TestPoolRetriesTransientFailuresUntilSuccess(t *testing.T) {
	ctx := context.Background()
	q := queue.NewInMemoryQueue(fastPolicy(3))

	var calls atomic.Int32
	p, err := New(q, WithWorkers(1), WithPollInterval(time.Millisecond))
	require.NoError(t, err)
	p.Handle(queue.TopicNoticeProcessing, func(_ context.Context, _ *queue.Job) error {
		if calls.Add(1) < 3 {
			return errors.New("interpreter timeout")
		}
		return nil
	})

	_, err = q.Enqueue(ctx, queue.TopicNoticeProcessing, queue.NoticePayload{NoticeID: "n-1"})
	require.NoError(t, err)

	runPool(t, p)

	require.Eventually(t, func() bool { return calls.Load() == 3 }, 2*time.Second, 5*time.Millisecond)

	dead, err := q.DeadLetters(ctx, queue.TopicNoticeProcessing)
	require.NoError(t, err)
	assert.Empty(t, dead, "job succeeded within its retry budget")
}

func TestPoolDeadLettersAfterAttemptCeiling(t *testing.T) {
	ctx := context.Background()
	q := queue.NewInMemoryQueue(fastPolicy(2))

	var calls atomic.Int32
	p, err := New(q, WithWorkers(1), WithPollInterval(time.Millisecond))
	require.NoError(t, err)
	p.Handle(queue.TopicNoticeProcessing, func(_ context.Context, _ *queue.Job) error {
		calls.Add(1)
		return errors.New("interpreter timeout")
	})

	_, err = q.Enqueue(ctx, queue.TopicNoticeProcessing, queue.NoticePayload{NoticeID: "n-1"})
	require.NoError(t, err)

	runPool(t, p)

	require.Eventually(t, func() bool {
		dead, err := q.DeadLetters(ctx, queue.TopicNoticeProcessing)
		return err == nil && len(dead) == 1
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, int32(2), calls.Load())
}

func TestPermanentWrapping(t *testing.T) {
	assert.Nil(t, Permanent(nil))

	wrapped := Permanent(errors.New("bad payload"))
	assert.ErrorIs(t, wrapped, ErrPermanent)
	assert.Contains(t, wrapped.Error(), "bad payload")
}
