// README: Driver statistics and earnings aggregates backed by PostgreSQL.
package stats

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"unihub/internal/types"
)

// Store writes the external driver aggregates mutated on order completion.
// The dispatch core only ever increments; reads belong to the dashboard.
type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) IncrementRideCount(ctx context.Context, driverID types.ID) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO driver_stats (driver_id, total_rides, updated_at)
		VALUES ($1, 1, now())
		ON CONFLICT (driver_id)
		DO UPDATE SET total_rides = driver_stats.total_rides + 1, updated_at = now()`,
		string(driverID),
	)
	return err
}

func (s *Store) RecordEarnings(ctx context.Context, driverID types.ID, amount float64) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO driver_earnings (driver_id, total_earnings, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (driver_id)
		DO UPDATE SET total_earnings = driver_earnings.total_earnings + $2, updated_at = now()`,
		string(driverID), amount,
	)
	return err
}
