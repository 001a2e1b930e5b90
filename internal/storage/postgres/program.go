// Package postgres provides pgx-backed implementations of the storage
// interfaces. Rules, rates, evidence and audit snapshots are stored as JSONB;
// everything else maps to plain columns. See schema.sql for the DDL.
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

type ProgramStore struct {
	pool *pgxpool.Pool
}

func NewProgramStore(pool *pgxpool.Pool) *ProgramStore {
	return &ProgramStore{pool: pool}
}

const programColumns = `id, program_id, name, description, eligibility_rules, payment_rates, forms_required, start_date, end_date, is_active`

func (s *ProgramStore) Get(ctx context.Context, id string) (domain.Program, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+programColumns+` FROM programs WHERE id = $1`, id)
	return scanProgram(row)
}

func (s *ProgramStore) FindByProgramID(ctx context.Context, programID string) (domain.Program, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+programColumns+` FROM programs WHERE program_id = $1`, programID)
	return scanProgram(row)
}

func (s *ProgramStore) Save(ctx context.Context, program domain.Program) error {
	rules, err := json.Marshal(program.EligibilityRules)
	if err != nil {
		return fmt.Errorf("encode eligibility rules: %w", err)
	}
	rates, err := json.Marshal(program.PaymentRates)
	if err != nil {
		return fmt.Errorf("encode payment rates: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO programs (`+programColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			program_id = EXCLUDED.program_id,
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			eligibility_rules = EXCLUDED.eligibility_rules,
			payment_rates = EXCLUDED.payment_rates,
			forms_required = EXCLUDED.forms_required,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			is_active = EXCLUDED.is_active`,
		program.ID, program.ProgramID, program.Name, program.Description,
		rules, rates, program.FormsRequired, program.StartDate, program.EndDate, program.IsActive)
	if err != nil {
		return fmt.Errorf("save program: %w", err)
	}
	return nil
}

func (s *ProgramStore) ListActive(ctx context.Context) ([]domain.Program, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+programColumns+` FROM programs WHERE is_active ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list active programs: %w", err)
	}
	defer rows.Close()

	var programs []domain.Program
	for rows.Next() {
		program, err := scanProgram(rows)
		if err != nil {
			return nil, err
		}
		programs = append(programs, program)
	}
	return programs, rows.Err()
}

func scanProgram(row pgx.Row) (domain.Program, error) {
	var (
		p            domain.Program
		rules, rates []byte
	)
	err := row.Scan(&p.ID, &p.ProgramID, &p.Name, &p.Description, &rules, &rates,
		&p.FormsRequired, &p.StartDate, &p.EndDate, &p.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Program{}, storage.ErrNotFound
		}
		return domain.Program{}, fmt.Errorf("scan program: %w", err)
	}
	if err := json.Unmarshal(rules, &p.EligibilityRules); err != nil {
		return domain.Program{}, fmt.Errorf("decode eligibility rules: %w", err)
	}
	if err := json.Unmarshal(rates, &p.PaymentRates); err != nil {
		return domain.Program{}, fmt.Errorf("decode payment rates: %w", err)
	}
	return p, nil
}
