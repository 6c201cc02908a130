// README: Notification side-channel; durable rows in the notifications table.
package notify

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"unihub/internal/types"
)

// PG enqueues a durable, user-visible notification record. Delivery to the
// device is someone else's job.
type PG struct {
	db *pgxpool.Pool
}

func NewPG(db *pgxpool.Pool) *PG {
	return &PG{db: db}
}

func (n *PG) Notify(ctx context.Context, userID types.ID, title, message, severity string) error {
	_, err := n.db.Exec(ctx, `
		INSERT INTO notifications (id, user_id, title, message, severity, created_at)
		VALUES ($1, $2, $3, $4, $5, now())`,
		uuid.NewString(), string(userID), title, message, severity,
	)
	return err
}
