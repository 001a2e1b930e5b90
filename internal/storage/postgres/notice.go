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

type NoticeStore struct {
	pool *pgxpool.Pool
}

func NewNoticeStore(pool *pgxpool.Pool) *NoticeStore {
	return &NoticeStore{pool: pool}
}

func (s *NoticeStore) Get(ctx context.Context, id string) (domain.Notice, error) {
	var n domain.Notice
	err := s.pool.QueryRow(ctx,
		`SELECT id, program_id, title, content, parsed_data, publish_date, status FROM notices WHERE id = $1`, id).
		Scan(&n.ID, &n.ProgramID, &n.Title, &n.Content, &n.ParsedData, &n.PublishDate, &n.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Notice{}, storage.ErrNotFound
		}
		return domain.Notice{}, fmt.Errorf("scan notice: %w", err)
	}
	return n, nil
}

func (s *NoticeStore) Save(ctx context.Context, notice domain.Notice) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO notices (id, program_id, title, content, parsed_data, publish_date, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			program_id = EXCLUDED.program_id,
			parsed_data = EXCLUDED.parsed_data,
			status = EXCLUDED.status`,
		notice.ID, notice.ProgramID, notice.Title, notice.Content,
		notice.ParsedData, notice.PublishDate, notice.Status)
	if err != nil {
		return fmt.Errorf("save notice: %w", err)
	}
	return nil
}
