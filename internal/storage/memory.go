package storage

import (
	"context"
	"sync"

	"agrigate/internal/domain"
)

// In-memory stores keep single-process deployments and tests lightweight. They
// intentionally favor clarity over performance.

type InMemoryProgramStore struct {
	mu       sync.RWMutex
	programs map[string]domain.Program
}

func NewInMemoryProgramStore() *InMemoryProgramStore {
	return &InMemoryProgramStore{programs: make(map[string]domain.Program)}
}

func (s *InMemoryProgramStore) Get(_ context.Context, id string) (domain.Program, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.programs[id]; ok {
		return p, nil
	}
	return domain.Program{}, ErrNotFound
}

func (s *InMemoryProgramStore) FindByProgramID(_ context.Context, programID string) (domain.Program, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.programs {
		if p.ProgramID == programID {
			return p, nil
		}
	}
	return domain.Program{}, ErrNotFound
}

func (s *InMemoryProgramStore) Save(_ context.Context, program domain.Program) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.programs[program.ID] = program
	return nil
}

func (s *InMemoryProgramStore) ListActive(_ context.Context) ([]domain.Program, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var active []domain.Program
	for _, p := range s.programs {
		if p.IsActive {
			active = append(active, p)
		}
	}
	return active, nil
}

type InMemoryFarmStore struct {
	mu    sync.RWMutex
	farms map[string]domain.Farm
}

func NewInMemoryFarmStore() *InMemoryFarmStore {
	return &InMemoryFarmStore{farms: make(map[string]domain.Farm)}
}

func (s *InMemoryFarmStore) Get(_ context.Context, id string) (domain.Farm, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if f, ok := s.farms[id]; ok {
		return f, nil
	}
	return domain.Farm{}, ErrNotFound
}

// Put seeds a farm. The core never writes farms; this exists for wiring and tests.
func (s *InMemoryFarmStore) Put(_ context.Context, farm domain.Farm) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.farms[farm.ID] = farm
	return nil
}

type InMemoryComplianceStore struct {
	mu   sync.RWMutex
	logs map[string]domain.ComplianceLog
}

func NewInMemoryComplianceStore() *InMemoryComplianceStore {
	return &InMemoryComplianceStore{logs: make(map[string]domain.ComplianceLog)}
}

func (s *InMemoryComplianceStore) Create(_ context.Context, log domain.ComplianceLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs[log.ID] = log
	return nil
}

func (s *InMemoryComplianceStore) Get(_ context.Context, id string) (domain.ComplianceLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if l, ok := s.logs[id]; ok {
		return l, nil
	}
	return domain.ComplianceLog{}, ErrNotFound
}

func (s *InMemoryComplianceStore) ListByFarm(_ context.Context, farmID string) ([]domain.ComplianceLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var logs []domain.ComplianceLog
	for _, l := range s.logs {
		if l.FarmID == farmID {
			logs = append(logs, l)
		}
	}
	return logs, nil
}

func (s *InMemoryComplianceStore) UpdateReconciled(_ context.Context, log domain.ComplianceLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.logs[log.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != log.Version {
		return ErrVersionConflict
	}
	log.Version++
	s.logs[log.ID] = log
	return nil
}

type InMemoryPaymentStore struct {
	mu       sync.RWMutex
	payments map[string]domain.Payment
}

func NewInMemoryPaymentStore() *InMemoryPaymentStore {
	return &InMemoryPaymentStore{payments: make(map[string]domain.Payment)}
}

func (s *InMemoryPaymentStore) Get(_ context.Context, id string) (domain.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.payments[id]; ok {
		return p, nil
	}
	return domain.Payment{}, ErrNotFound
}

func (s *InMemoryPaymentStore) Save(_ context.Context, payment domain.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments[payment.ID] = payment
	return nil
}

func (s *InMemoryPaymentStore) ListByFarm(_ context.Context, farmID string) ([]domain.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var payments []domain.Payment
	for _, p := range s.payments {
		if p.FarmID == farmID {
			payments = append(payments, p)
		}
	}
	return payments, nil
}

type InMemoryNoticeStore struct {
	mu      sync.RWMutex
	notices map[string]domain.Notice
}

func NewInMemoryNoticeStore() *InMemoryNoticeStore {
	return &InMemoryNoticeStore{notices: make(map[string]domain.Notice)}
}

func (s *InMemoryNoticeStore) Get(_ context.Context, id string) (domain.Notice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n, ok := s.notices[id]; ok {
		return n, nil
	}
	return domain.Notice{}, ErrNotFound
}

func (s *InMemoryNoticeStore) Save(_ context.Context, notice domain.Notice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notices[notice.ID] = notice
	return nil
}

type InMemoryAuditStore struct {
	mu     sync.RWMutex
	events []domain.AuditEvent
}

func NewInMemoryAuditStore() *InMemoryAuditStore {
	return &InMemoryAuditStore{}
}

func (s *InMemoryAuditStore) Append(_ context.Context, event domain.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *InMemoryAuditStore) ListByEntity(_ context.Context, entityType, entityID string) ([]domain.AuditEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var events []domain.AuditEvent
	for _, e := range s.events {
		if e.EntityType == entityType && e.EntityID == entityID {
			events = append(events, e)
		}
	}
	return events, nil
}
