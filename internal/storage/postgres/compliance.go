package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"agrigate/internal/domain"
	"agrigate/internal/storage"
)

type ComplianceStore struct {
	pool *pgxpool.Pool
}

func NewComplianceStore(pool *pgxpool.Pool) *ComplianceStore {
	return &ComplianceStore{pool: pool}
}

const complianceColumns = `id, farm_id, practice, date, description, acreage_reported, acreage_actual, variance, status, evidence, version`

func (s *ComplianceStore) Create(ctx context.Context, log domain.ComplianceLog) error {
	evidence, err := encodeEvidence(log.Evidence)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO compliance_logs (`+complianceColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		log.ID, log.FarmID, log.Practice, log.Date, log.Description,
		log.AcreageReported, log.AcreageActual, log.Variance, log.Status, evidence, log.Version)
	if err != nil {
		return fmt.Errorf("create compliance log: %w", err)
	}
	return nil
}

func (s *ComplianceStore) Get(ctx context.Context, id string) (domain.ComplianceLog, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+complianceColumns+` FROM compliance_logs WHERE id = $1`, id)
	return scanComplianceLog(row)
}

func (s *ComplianceStore) ListByFarm(ctx context.Context, farmID string) ([]domain.ComplianceLog, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+complianceColumns+` FROM compliance_logs WHERE farm_id = $1 ORDER BY date DESC`, farmID)
	if err != nil {
		return nil, fmt.Errorf("list compliance logs: %w", err)
	}
	defer rows.Close()

	var logs []domain.ComplianceLog
	for rows.Next() {
		log, err := scanComplianceLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}

// UpdateReconciled writes the reconciliation verdict in one statement guarded
// by the version column, so racing runs cannot silently overwrite each other.
func (s *ComplianceStore) UpdateReconciled(ctx context.Context, log domain.ComplianceLog) error {
	evidence, err := encodeEvidence(log.Evidence)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE compliance_logs
		SET acreage_actual = $2, variance = $3, status = $4, evidence = $5, version = version + 1
		WHERE id = $1 AND version = $6`,
		log.ID, log.AcreageActual, log.Variance, log.Status, evidence, log.Version)
	if err != nil {
		return fmt.Errorf("update compliance log: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.Get(ctx, log.ID); errors.Is(err, storage.ErrNotFound) {
			return storage.ErrNotFound
		}
		return storage.ErrVersionConflict
	}
	return nil
}

func scanComplianceLog(row pgx.Row) (domain.ComplianceLog, error) {
	var (
		l        domain.ComplianceLog
		evidence []byte
	)
	err := row.Scan(&l.ID, &l.FarmID, &l.Practice, &l.Date, &l.Description,
		&l.AcreageReported, &l.AcreageActual, &l.Variance, &l.Status, &evidence, &l.Version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ComplianceLog{}, storage.ErrNotFound
		}
		return domain.ComplianceLog{}, fmt.Errorf("scan compliance log: %w", err)
	}
	if len(evidence) > 0 {
		l.Evidence = &domain.ImageryEvidence{}
		if err := json.Unmarshal(evidence, l.Evidence); err != nil {
			return domain.ComplianceLog{}, fmt.Errorf("decode evidence: %w", err)
		}
	}
	return l, nil
}

func encodeEvidence(evidence *domain.ImageryEvidence) ([]byte, error) {
	if evidence == nil {
		return nil, nil
	}
	body, err := json.Marshal(evidence)
	if err != nil {
		return nil, fmt.Errorf("encode evidence: %w", err)
	}
	return body, nil
}
