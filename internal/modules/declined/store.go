// README: Durable declined-order table backed by PostgreSQL.
package declined

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"unihub/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// Insert appends one (driver, order) decline. The table is append-only with
// a unique constraint on the pair; re-declining the same order is a no-op,
// not an error.
func (s *Store) Insert(ctx context.Context, driverID, orderID types.ID, orderType string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO declined_orders (driver_id, order_id, order_type, declined_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (driver_id, order_id) DO NOTHING`,
		string(driverID), string(orderID), orderType,
	)
	return err
}

func (s *Store) List(ctx context.Context, driverID types.ID) ([]types.ID, error) {
	rows, err := s.db.Query(ctx, `
		SELECT order_id FROM declined_orders WHERE driver_id = $1`,
		string(driverID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.ID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, types.ID(id))
	}
	return out, rows.Err()
}
