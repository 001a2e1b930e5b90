package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"agrigate/internal/queue"
	"agrigate/internal/worker/metrics"
)

// Handler processes one job. Returning nil acks the job; a plain error nacks
// it back to the queue's retry policy; an error wrapping ErrPermanent
// dead-letters it immediately. Handlers must be idempotent under redelivery.
type Handler func(ctx context.Context, job *queue.Job) error

// Pool runs concurrent executors per topic against a shared queue. Workers
// never communicate with each other; the queue is the only broker of
// cross-worker coordination.
type Pool struct {
	queue      queue.Queue
	handlers   map[queue.Topic]Handler
	workers    int
	poll       time.Duration
	visibility time.Duration
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

type Option func(*Pool)

func WithWorkers(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.workers = n
		}
	}
}

func WithPollInterval(d time.Duration) Option {
	return func(p *Pool) {
		if d > 0 {
			p.poll = d
		}
	}
}

// WithVisibility bounds a single handler execution. It should match the
// queue's visibility deadline so a handler gives up before redelivery starts.
func WithVisibility(d time.Duration) Option {
	return func(p *Pool) {
		if d > 0 {
			p.visibility = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Pool) {
		p.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pool) {
		p.metrics = m
	}
}

func New(q queue.Queue, opts ...Option) (*Pool, error) {
	if q == nil {
		return nil, fmt.Errorf("queue is required")
	}
	p := &Pool{
		queue:      q,
		handlers:   make(map[queue.Topic]Handler),
		workers:    2,
		poll:       250 * time.Millisecond,
		visibility: 30 * time.Second,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Handle registers the handler for a topic. Must be called before Run.
func (p *Pool) Handle(topic queue.Topic, h Handler) {
	p.handlers[topic] = h
}

// Run blocks until ctx is cancelled, fanning out p.workers goroutines per
// registered topic.
func (p *Pool) Run(ctx context.Context) error {
	if len(p.handlers) == 0 {
		return fmt.Errorf("no handlers registered")
	}

	g, ctx := errgroup.WithContext(ctx)
	for topic, handler := range p.handlers {
		topic, handler := topic, handler
		for i := 0; i < p.workers; i++ {
			g.Go(func() error {
				return p.consume(ctx, topic, handler)
			})
		}
	}
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (p *Pool) consume(ctx context.Context, topic queue.Topic, handler Handler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		job, err := p.queue.Dequeue(ctx, topic)
		if err != nil {
			p.logger.Error("dequeue failed", "topic", topic, "error", err)
			if !p.sleep(ctx, p.poll) {
				return ctx.Err()
			}
			continue
		}
		if job == nil {
			if !p.sleep(ctx, p.poll) {
				return ctx.Err()
			}
			continue
		}
		p.process(ctx, job, handler)
	}
}

func (p *Pool) process(ctx context.Context, job *queue.Job, handler Handler) {
	jobCtx, cancel := context.WithTimeout(ctx, p.visibility)
	defer cancel()

	start := time.Now()
	err := handler(jobCtx, job)
	if p.metrics != nil {
		p.metrics.JobDuration.WithLabelValues(string(job.Topic)).Observe(time.Since(start).Seconds())
	}

	switch {
	case err == nil:
		if ackErr := p.queue.Ack(ctx, job.ID); ackErr != nil {
			// The job will be redelivered; handlers converge on re-run.
			p.logger.Error("ack failed", "topic", job.Topic, "job_id", job.ID, "error", ackErr)
			return
		}
		if p.metrics != nil {
			p.metrics.JobsProcessed.WithLabelValues(string(job.Topic)).Inc()
		}
		p.logger.Info("job completed", "topic", job.Topic, "job_id", job.ID, "attempt", job.Attempts+1)

	case errors.Is(err, ErrPermanent):
		if rejErr := p.queue.Reject(ctx, job.ID, err.Error()); rejErr != nil {
			p.logger.Error("reject failed", "topic", job.Topic, "job_id", job.ID, "error", rejErr)
			return
		}
		if p.metrics != nil {
			p.metrics.JobsRejected.WithLabelValues(string(job.Topic)).Inc()
		}
		p.logger.Warn("job dead-lettered", "topic", job.Topic, "job_id", job.ID, "error", err)

	default:
		if nackErr := p.queue.Nack(ctx, job.ID, err.Error()); nackErr != nil {
			p.logger.Error("nack failed", "topic", job.Topic, "job_id", job.ID, "error", nackErr)
			return
		}
		if p.metrics != nil {
			p.metrics.JobsFailed.WithLabelValues(string(job.Topic)).Inc()
		}
		p.logger.Warn("job failed", "topic", job.Topic, "job_id", job.ID,
			"attempt", job.Attempts+1, "error", err)
	}
}

// sleep waits for d or ctx cancellation; reports false when cancelled.
func (p *Pool) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
