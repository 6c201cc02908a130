// README: Per-driver declined-order ledger; local fast path plus durable remote.
package declined

import (
	"context"

	"go.uber.org/zap"

	"unihub/internal/kv"
	"unihub/internal/types"
)

// Remote is the durable cross-device record of declines.
type Remote interface {
	Insert(ctx context.Context, driverID, orderID types.ID, orderType string) error
	List(ctx context.Context, driverID types.ID) ([]types.ID, error)
}

// Ledger merges the device-local declined set with the remote table. The
// local set is written first and is authoritative for this device, so a
// remote outage can hide a decline from other devices but never resurface a
// declined order here.
type Ledger struct {
	local  kv.SetStore
	remote Remote
	log    *zap.Logger
}

func NewLedger(local kv.SetStore, remote Remote, log *zap.Logger) *Ledger {
	return &Ledger{local: local, remote: remote, log: log}
}

// Record marks an order as declined by the driver. The local write is the
// only one that can fail the call; the remote write is best effort.
func (l *Ledger) Record(ctx context.Context, driverID, orderID types.ID, orderType string) error {
	if err := l.local.Add(ctx, localKey(driverID), string(orderID)); err != nil {
		return err
	}
	if err := l.remote.Insert(ctx, driverID, orderID, orderType); err != nil {
		l.log.Warn("declined ledger: remote write failed, local copy kept",
			zap.String("driver_id", string(driverID)),
			zap.String("order_id", string(orderID)),
			zap.Error(err))
	}
	return nil
}

// Declined returns the union of the local and remote declined sets. A remote
// read failure degrades to the local set; remote entries missing locally are
// written back so the fast path self-heals.
func (l *Ledger) Declined(ctx context.Context, driverID types.ID) (map[types.ID]struct{}, error) {
	set := make(map[types.ID]struct{})

	local, err := l.local.Members(ctx, localKey(driverID))
	if err != nil {
		l.log.Warn("declined ledger: local read failed",
			zap.String("driver_id", string(driverID)), zap.Error(err))
	}
	for _, id := range local {
		set[types.ID(id)] = struct{}{}
	}

	remote, err := l.remote.List(ctx, driverID)
	if err != nil {
		l.log.Warn("declined ledger: remote read failed, using local set",
			zap.String("driver_id", string(driverID)), zap.Error(err))
		return set, nil
	}

	var backfill []string
	for _, id := range remote {
		if _, ok := set[id]; !ok {
			backfill = append(backfill, string(id))
		}
		set[id] = struct{}{}
	}
	if len(backfill) > 0 {
		if err := l.local.Add(ctx, localKey(driverID), backfill...); err != nil {
			l.log.Warn("declined ledger: local backfill failed",
				zap.String("driver_id", string(driverID)), zap.Error(err))
		}
	}
	return set, nil
}

func localKey(driverID types.ID) string {
	return "declined:" + string(driverID)
}
