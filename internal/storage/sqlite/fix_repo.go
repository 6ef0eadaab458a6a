package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"netsampler/internal/domain"
)

// FixRepository keeps the most recent location fix in a single row.
type FixRepository struct {
	db *sql.DB
}

func NewFixRepository(db *sql.DB) *FixRepository {
	return &FixRepository{db: db}
}

func (r *FixRepository) Save(ctx context.Context, fix domain.Fix) error {
	query := `
	INSERT INTO location_fix (id, latitude, longitude, fixed_at)
	VALUES (1, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		latitude = excluded.latitude,
		longitude = excluded.longitude,
		fixed_at = excluded.fixed_at
	`
	if _, err := r.db.ExecContext(ctx, query, fix.Latitude, fix.Longitude, fix.At.UnixMilli()); err != nil {
		return fmt.Errorf("failed to save location fix: %w", err)
	}
	return nil
}

func (r *FixRepository) Last(ctx context.Context) (domain.Fix, error) {
	var (
		fix     domain.Fix
		fixedAt int64
	)

	query := "SELECT latitude, longitude, fixed_at FROM location_fix WHERE id = 1"
	err := r.db.QueryRowContext(ctx, query).Scan(&fix.Latitude, &fix.Longitude, &fixedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Fix{}, domain.ErrFixNotFound
		}
		return domain.Fix{}, fmt.Errorf("failed to load location fix: %w", err)
	}

	fix.At = time.UnixMilli(fixedAt).UTC()
	return fix, nil
}
