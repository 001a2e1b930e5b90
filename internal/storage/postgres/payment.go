package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"agrigate/internal/domain"
	"agrigate/internal/storage"
)

type PaymentStore struct {
	pool *pgxpool.Pool
}

func NewPaymentStore(pool *pgxpool.Pool) *PaymentStore {
	return &PaymentStore{pool: pool}
}

const paymentColumns = `id, farm_id, program_id, amount, due_date, status, processed_date, transaction_id, notes`

func (s *PaymentStore) Get(ctx context.Context, id string) (domain.Payment, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id)
	return scanPayment(row)
}

func (s *PaymentStore) Save(ctx context.Context, payment domain.Payment) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO payments (`+paymentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			processed_date = EXCLUDED.processed_date,
			transaction_id = EXCLUDED.transaction_id,
			notes = EXCLUDED.notes`,
		payment.ID, payment.FarmID, payment.ProgramID, payment.Amount, payment.DueDate,
		payment.Status, payment.ProcessedDate, payment.TransactionID, payment.Notes)
	if err != nil {
		return fmt.Errorf("save payment: %w", err)
	}
	return nil
}

func (s *PaymentStore) ListByFarm(ctx context.Context, farmID string) ([]domain.Payment, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE farm_id = $1 ORDER BY due_date`, farmID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}
	return payments, rows.Err()
}

func scanPayment(row pgx.Row) (domain.Payment, error) {
	var p domain.Payment
	err := row.Scan(&p.ID, &p.FarmID, &p.ProgramID, &p.Amount, &p.DueDate,
		&p.Status, &p.ProcessedDate, &p.TransactionID, &p.Notes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Payment{}, storage.ErrNotFound
		}
		return domain.Payment{}, fmt.Errorf("scan payment: %w", err)
	}
	return p, nil
}
