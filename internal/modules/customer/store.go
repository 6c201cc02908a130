// README: Transaction store backed by PostgreSQL.
package customer

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PGTransactionStore struct {
	db *pgxpool.Pool
}

func NewPGTransactionStore(db *pgxpool.Pool) *PGTransactionStore {
	return &PGTransactionStore{db: db}
}

func (s *PGTransactionStore) CreateTransaction(ctx context.Context, t Transaction) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO transactions (id, order_id, customer_id, driver_id, amount, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (order_id) DO NOTHING`,
		string(t.ID), string(t.OrderID), string(t.CustomerID), string(t.DriverID),
		t.Amount, t.Status, t.CreatedAt,
	)
	return err
}
