package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"agrigate/internal/audit"
	"agrigate/internal/domain"
	"agrigate/internal/queue"
	"agrigate/internal/storage"
	"agrigate/internal/worker"
)

// Service advances payments through their settlement lifecycle. Transitions
// are monotonic: PENDING/SCHEDULED move to COMPLETED or FAILED, COMPLETED is
// terminal, FAILED stays eligible for a fresh settlement attempt.
type Service struct {
	payments storage.PaymentStore
	auditor  *audit.Service
	logger   *slog.Logger
	now      func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(payments storage.PaymentStore, auditor *audit.Service, opts ...Option) (*Service, error) {
	if payments == nil {
		return nil, fmt.Errorf("payment store is required")
	}
	s := &Service{payments: payments, auditor: auditor, logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// HandleJob is the payment-processing topic handler.
func (s *Service) HandleJob(ctx context.Context, job *queue.Job) error {
	var payload queue.PaymentPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return worker.Permanent(fmt.Errorf("decode payload: %w", err))
	}
	if payload.PaymentID == "" {
		return worker.Permanent(fmt.Errorf("paymentId is required"))
	}
	return s.Settle(ctx, payload.PaymentID)
}

// Settle completes a payment, assigning the processed date and a transaction
// reference. Re-delivering a settlement for an already COMPLETED payment is a
// verified no-op: no state change, no duplicate transaction reference.
func (s *Service) Settle(ctx context.Context, paymentID string) error {
	payment, err := s.payments.Get(ctx, paymentID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return worker.Permanent(fmt.Errorf("payment %s: %w", paymentID, err))
		}
		return fmt.Errorf("load payment %s: %w", paymentID, err)
	}

	if payment.Status == domain.PaymentCompleted {
		s.logger.Info("payment already settled", "payment_id", paymentID,
			"transaction_id", payment.TransactionID)
		return nil
	}

	before := payment.Status
	processed := s.now()
	payment.Status = domain.PaymentCompleted
	payment.ProcessedDate = &processed
	payment.TransactionID = "TXN-" + uuid.NewString()

	if err := s.payments.Save(ctx, payment); err != nil {
		return fmt.Errorf("save payment %s: %w", paymentID, err)
	}

	s.emitSettleAudit(ctx, payment, before)
	return nil
}

func (s *Service) emitSettleAudit(ctx context.Context, payment domain.Payment, before domain.PaymentStatus) {
	if s.auditor == nil {
		return
	}
	oldData, _ := json.Marshal(map[string]any{"status": before})
	newData, _ := json.Marshal(map[string]any{
		"status":        payment.Status,
		"transactionId": payment.TransactionID,
	})
	event := domain.AuditEvent{
		Actor:      "system",
		EntityType: "payment",
		EntityID:   payment.ID,
		Action:     domain.AuditActionPaymentSettled,
		OldData:    oldData,
		NewData:    newData,
	}
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.Warn("audit emit failed", "payment_id", payment.ID, "error", err)
	}
}

// FarmSummary totals a farm's payments by status.
type FarmSummary struct {
	Total     decimal.Decimal
	Pending   decimal.Decimal
	Scheduled decimal.Decimal
	Completed decimal.Decimal
}

func (s *Service) Summary(ctx context.Context, farmID string) (FarmSummary, error) {
	payments, err := s.payments.ListByFarm(ctx, farmID)
	if err != nil {
		return FarmSummary{}, fmt.Errorf("list payments for farm %s: %w", farmID, err)
	}
	summary := FarmSummary{
		Total:     decimal.Zero,
		Pending:   decimal.Zero,
		Scheduled: decimal.Zero,
		Completed: decimal.Zero,
	}
	for _, p := range payments {
		summary.Total = summary.Total.Add(p.Amount)
		switch p.Status {
		case domain.PaymentPending:
			summary.Pending = summary.Pending.Add(p.Amount)
		case domain.PaymentScheduled:
			summary.Scheduled = summary.Scheduled.Add(p.Amount)
		case domain.PaymentCompleted:
			summary.Completed = summary.Completed.Add(p.Amount)
		}
	}
	return summary, nil
}
