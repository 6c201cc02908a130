// README: Change-feed transport; Redis pub/sub implementation and event shape.
package feed

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"unihub/internal/modules/order"
	"unihub/internal/types"
)

// Event is the partial change payload delivered on a watched table. It
// carries just enough to decide whether a row is worth re-fetching; the
// bridge never acts on the payload alone.
type Event struct {
	Table    order.Source `json:"table"`
	Type     string       `json:"event"` // INSERT or UPDATE
	OrderID  types.ID     `json:"id"`
	Status   order.Status `json:"status"`
	DriverID *types.ID    `json:"driver_id"`
}

// Realtime delivers insert/update events for the given source tables until
// the returned stop func is called. Delivery is at-least-once and unordered
// relative to the poll path.
type Realtime interface {
	Subscribe(ctx context.Context, tables []order.Source) (<-chan Event, func(), error)
}

const channelPrefix = "cdc:"

// RedisRealtime subscribes to one pub/sub channel per watched table
// ("cdc:orders", "cdc:ride_requests").
type RedisRealtime struct {
	client *redis.Client
	log    *zap.Logger
}

func NewRedisRealtime(client *redis.Client, log *zap.Logger) *RedisRealtime {
	return &RedisRealtime{client: client, log: log}
}

func (r *RedisRealtime) Subscribe(ctx context.Context, tables []order.Source) (<-chan Event, func(), error) {
	channels := make([]string, len(tables))
	for i, t := range tables {
		channels[i] = channelPrefix + string(t)
	}

	pubsub := r.client.Subscribe(ctx, channels...)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, err
	}

	out := make(chan Event, 64)
	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				r.log.Warn("realtime: bad payload", zap.String("channel", msg.Channel), zap.Error(err))
				continue
			}
			if ev.Table == "" {
				ev.Table = order.Source(msg.Channel[len(channelPrefix):])
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	stop := func() { _ = pubsub.Close() }
	return out, stop, nil
}

// Publish mirrors a row change onto the table's channel. The write paths use
// it so every client sees mutations without polling for them.
func (r *RedisRealtime) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, channelPrefix+string(ev.Table), payload).Err()
}
