package storage

import (
	"context"

	"agrigate/internal/domain"
)

// Stores are interface-driven to keep the domain logic testable and to allow
// swapping in-memory and postgres persistence without rewiring business code.
// Updates are atomic per record; nothing here spans records transactionally.

type ProgramStore interface {
	Get(ctx context.Context, id string) (domain.Program, error)
	// FindByProgramID looks a program up by its external identifier, the key
	// notice parsing upserts on.
	FindByProgramID(ctx context.Context, programID string) (domain.Program, error)
	Save(ctx context.Context, program domain.Program) error
	ListActive(ctx context.Context) ([]domain.Program, error)
}

type FarmStore interface {
	Get(ctx context.Context, id string) (domain.Farm, error)
}

type ComplianceStore interface {
	Create(ctx context.Context, log domain.ComplianceLog) error
	Get(ctx context.Context, id string) (domain.ComplianceLog, error)
	ListByFarm(ctx context.Context, farmID string) ([]domain.ComplianceLog, error)
	// UpdateReconciled writes acreageActual, variance, status and evidence in
	// one atomic step, guarded by the log's version. It returns
	// ErrVersionConflict when the stored version moved on.
	UpdateReconciled(ctx context.Context, log domain.ComplianceLog) error
}

type PaymentStore interface {
	Get(ctx context.Context, id string) (domain.Payment, error)
	Save(ctx context.Context, payment domain.Payment) error
	ListByFarm(ctx context.Context, farmID string) ([]domain.Payment, error)
}

type NoticeStore interface {
	Get(ctx context.Context, id string) (domain.Notice, error)
	Save(ctx context.Context, notice domain.Notice) error
}

type AuditStore interface {
	Append(ctx context.Context, event domain.AuditEvent) error
	ListByEntity(ctx context.Context, entityType, entityID string) ([]domain.AuditEvent, error)
}
