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

type FarmStore struct {
	pool *pgxpool.Pool
}

func NewFarmStore(pool *pgxpool.Pool) *FarmStore {
	return &FarmStore{pool: pool}
}

func (s *FarmStore) Get(ctx context.Context, id string) (domain.Farm, error) {
	var f domain.Farm
	err := s.pool.QueryRow(ctx,
		`SELECT id, org_id, name, acres, crops, practices FROM farms WHERE id = $1`, id).
		Scan(&f.ID, &f.OrgID, &f.Name, &f.Acres, &f.Crops, &f.Practices)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Farm{}, storage.ErrNotFound
		}
		return domain.Farm{}, fmt.Errorf("scan farm: %w", err)
	}
	return f, nil
}
