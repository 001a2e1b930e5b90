package compliance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bsm/redislock"

	"agrigate/internal/audit"
	"agrigate/internal/domain"
	"agrigate/internal/queue"
	"agrigate/internal/storage"
	"agrigate/internal/worker"
)

// MinConfidence is the lowest analyzer confidence a reconciliation run will
// act on. Below it the job is a permanent failure and logs keep their
// last-known-good state.
const MinConfidence = 0.5

// casRetries bounds local recompute-and-retry on version conflicts before the
// failure is surfaced to the queue as transient.
const casRetries = 3

// Service drives compliance-check jobs: analyze imagery, reconcile every log
// of the farm, and persist each verdict under a versioned update. Two jobs
// racing on the same farm are serialized per log by compare-and-swap, and per
// farm by an optional distributed lock.
type Service struct {
	farms    storage.FarmStore
	logs     storage.ComplianceStore
	analyzer ImageryAnalyzer
	auditor  *audit.Service
	locker   *redislock.Client
	lockTTL  time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithLocker serializes whole-farm reconciliation runs across processes. The
// CAS check on each log remains the correctness backstop either way.
func WithLocker(locker *redislock.Client) Option {
	return func(s *Service) {
		s.locker = locker
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(farms storage.FarmStore, logs storage.ComplianceStore, analyzer ImageryAnalyzer, auditor *audit.Service, opts ...Option) (*Service, error) {
	if farms == nil || logs == nil {
		return nil, fmt.Errorf("farm and compliance stores are required")
	}
	if analyzer == nil {
		return nil, fmt.Errorf("imagery analyzer is required")
	}
	s := &Service{
		farms:    farms,
		logs:     logs,
		analyzer: analyzer,
		auditor:  auditor,
		lockTTL:  30 * time.Second,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// HandleJob is the compliance-check topic handler. Safe to re-run with the
// same payload: re-applying an observation converges to the same row state.
func (s *Service) HandleJob(ctx context.Context, job *queue.Job) error {
	var payload queue.CompliancePayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return worker.Permanent(fmt.Errorf("decode payload: %w", err))
	}
	if payload.FarmID == "" || payload.ImageryReference == "" {
		return worker.Permanent(fmt.Errorf("farmId and imageryReference are required"))
	}
	return s.Run(ctx, payload.FarmID, payload.ImageryReference)
}

// Run reconciles every compliance log of the farm against a fresh analysis.
func (s *Service) Run(ctx context.Context, farmID, imageryReference string) error {
	farm, err := s.farms.Get(ctx, farmID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return worker.Permanent(fmt.Errorf("farm %s: %w", farmID, err))
		}
		return fmt.Errorf("load farm %s: %w", farmID, err)
	}

	analysis, err := s.analyzer.Analyze(ctx, farm.ID, imageryReference)
	if err != nil {
		return fmt.Errorf("analyze imagery for farm %s: %w", farm.ID, err)
	}
	if analysis.Confidence < MinConfidence {
		return worker.Permanent(fmt.Errorf("analysis confidence %.2f below usable threshold %.2f",
			analysis.Confidence, MinConfidence))
	}

	if s.locker != nil {
		lock, err := s.locker.Obtain(ctx, "agrigate:reconcile:farm:"+farm.ID, s.lockTTL, nil)
		if err != nil {
			if errors.Is(err, redislock.ErrNotObtained) {
				return fmt.Errorf("farm %s reconciliation already in progress", farm.ID)
			}
			return fmt.Errorf("obtain farm lock: %w", err)
		}
		defer lock.Release(context.WithoutCancel(ctx))
	}

	logs, err := s.logs.ListByFarm(ctx, farm.ID)
	if err != nil {
		return fmt.Errorf("list compliance logs for farm %s: %w", farm.ID, err)
	}

	evidence := &domain.ImageryEvidence{
		ImageryReference:  imageryReference,
		CapturedAt:        s.now(),
		ObservedCoverage:  analysis.ObservedCoverage,
		DetectedPractices: analysis.DetectedPractices,
		Confidence:        analysis.Confidence,
	}

	var reconciled, skipped, refused int
	for _, log := range logs {
		observed, ok := analysis.ObservedCoverage[log.Practice]
		if !ok {
			// The analyzer reported no figure for this practice; do not guess.
			skipped++
			s.logger.Info("no observation for practice", "farm_id", farm.ID,
				"log_id", log.ID, "practice", log.Practice)
			continue
		}
		if err := s.reconcileLog(ctx, log.ID, observed, evidence); err != nil {
			if errors.Is(err, ErrInvalidReported) {
				refused++
				s.logger.Error("reconciliation refused", "log_id", log.ID, "error", err)
				continue
			}
			return err
		}
		reconciled++
	}

	s.emitRunAudit(ctx, farm.ID, imageryReference, reconciled, skipped, refused)
	return nil
}

// reconcileLog applies one observation to one log under a versioned update,
// recomputing from a fresh read on every conflict.
func (s *Service) reconcileLog(ctx context.Context, logID string, observed float64, evidence *domain.ImageryEvidence) error {
	for attempt := 0; attempt < casRetries; attempt++ {
		log, err := s.logs.Get(ctx, logID)
		if err != nil {
			return fmt.Errorf("load compliance log %s: %w", logID, err)
		}

		outcome, err := Reconcile(log.AcreageReported, observed)
		if err != nil {
			return err
		}

		actual := observed
		log.AcreageActual = &actual
		log.Variance = &outcome.Variance
		log.Status = outcome.Status
		log.Evidence = evidence

		err = s.logs.UpdateReconciled(ctx, log)
		if err == nil {
			return nil
		}
		if !errors.Is(err, storage.ErrVersionConflict) {
			return fmt.Errorf("update compliance log %s: %w", logID, err)
		}
	}
	return fmt.Errorf("compliance log %s: version conflicts exhausted %d retries", logID, casRetries)
}

func (s *Service) emitRunAudit(ctx context.Context, farmID, imageryReference string, reconciled, skipped, refused int) {
	if s.auditor == nil {
		return
	}
	event := domain.AuditEvent{
		Actor:      "system",
		EntityType: "compliance",
		EntityID:   farmID,
		Action:     domain.AuditActionSatelliteAnalysis,
		Metadata: map[string]any{
			"imageryReference": imageryReference,
			"reconciled":       reconciled,
			"skipped":          skipped,
			"refused":          refused,
		},
	}
	// Best-effort side channel: the log rows already carry the verdicts.
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.Warn("audit emit failed", "farm_id", farmID, "error", err)
	}
}

// FarmSummary counts a farm's logs by status.
type FarmSummary struct {
	Total            int
	Compliant        int
	NonCompliant     int
	PendingReview    int
	VarianceDetected int
}

func (s *Service) Summary(ctx context.Context, farmID string) (FarmSummary, error) {
	logs, err := s.logs.ListByFarm(ctx, farmID)
	if err != nil {
		return FarmSummary{}, fmt.Errorf("list compliance logs for farm %s: %w", farmID, err)
	}
	summary := FarmSummary{Total: len(logs)}
	for _, log := range logs {
		switch log.Status {
		case domain.ComplianceCompliant:
			summary.Compliant++
		case domain.ComplianceNonCompliant:
			summary.NonCompliant++
		case domain.CompliancePendingReview:
			summary.PendingReview++
		case domain.ComplianceVariance:
			summary.VarianceDetected++
		}
	}
	return summary, nil
}
