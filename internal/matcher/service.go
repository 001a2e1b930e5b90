package matcher

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/shopspring/decimal"

	"agrigate/internal/audit"
	"agrigate/internal/domain"
	"agrigate/internal/storage"
)

// Response aggregates match results across all active programs for a farm.
// Eligible programs are ranked by estimated payment descending; ties keep
// program enumeration order. Ineligible programs carry their full reasons.
type Response struct {
	Eligible         []Result
	Ineligible       []Result
	TotalOpportunity decimal.Decimal
}

// Service loads the inputs, runs the pure matcher per program, and emits one
// summary audit event per request. It never mutates programs or farms.
type Service struct {
	farms    storage.FarmStore
	programs storage.ProgramStore
	auditor  *audit.Service
	logger   *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func NewService(farms storage.FarmStore, programs storage.ProgramStore, auditor *audit.Service, opts ...Option) (*Service, error) {
	if farms == nil || programs == nil {
		return nil, fmt.Errorf("farm and program stores are required")
	}
	s := &Service{farms: farms, programs: programs, auditor: auditor, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// MatchAll evaluates the farm against every active program. Programs are read
// as immutable snapshots; enumeration order is the store's listing order.
func (s *Service) MatchAll(ctx context.Context, actor, farmID string) (*Response, error) {
	farm, err := s.farms.Get(ctx, farmID)
	if err != nil {
		return nil, fmt.Errorf("load farm %s: %w", farmID, err)
	}

	programs, err := s.programs.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active programs: %w", err)
	}

	resp := &Response{TotalOpportunity: decimal.Zero}
	for _, program := range programs {
		result := Match(farm, program)
		if result.IsEligible {
			resp.Eligible = append(resp.Eligible, result)
		} else {
			resp.Ineligible = append(resp.Ineligible, result)
		}
	}

	sort.SliceStable(resp.Eligible, func(i, j int) bool {
		return resp.Eligible[i].EstimatedPayment.GreaterThan(resp.Eligible[j].EstimatedPayment)
	})
	for _, r := range resp.Eligible {
		resp.TotalOpportunity = resp.TotalOpportunity.Add(r.EstimatedPayment)
	}

	if s.auditor != nil {
		event := domain.AuditEvent{
			Actor:      actor,
			EntityType: "eligibility",
			EntityID:   farmID,
			Action:     domain.AuditActionEligibilityMatch,
			Metadata: map[string]any{
				"eligibleCount": len(resp.Eligible),
				"totalPrograms": len(programs),
			},
		}
		if err := s.auditor.Emit(ctx, event); err != nil {
			s.logger.Warn("audit emit failed", "farm_id", farmID, "error", err)
		}
	}

	return resp, nil
}
