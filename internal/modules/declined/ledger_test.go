// README: Ledger tests: local-first writes, remote outage fallback, self-healing merge.
package declined

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"unihub/internal/kv"
	"unihub/internal/types"
)

type fakeRemote struct {
	mu        sync.Mutex
	rows      map[types.ID][]types.ID
	insertErr error
	listErr   error
	inserts   int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{rows: make(map[types.ID][]types.ID)}
}

func (f *fakeRemote) Insert(_ context.Context, driverID, orderID types.ID, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserts++
	if f.insertErr != nil {
		return f.insertErr
	}
	for _, id := range f.rows[driverID] {
		if id == orderID {
			return nil // unique constraint: conflict is a no-op
		}
	}
	f.rows[driverID] = append(f.rows[driverID], orderID)
	return nil
}

func (f *fakeRemote) List(_ context.Context, driverID types.ID) ([]types.ID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]types.ID(nil), f.rows[driverID]...), nil
}

func TestRecordAndDeclined(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	ledger := NewLedger(kv.NewMemory(), remote, zap.NewNop())

	require.NoError(t, ledger.Record(ctx, "d1", "o1", "unimove"))
	require.NoError(t, ledger.Record(ctx, "d1", "o2", "ride_request"))
	require.NoError(t, ledger.Record(ctx, "d2", "o1", "unimove"))

	set, err := ledger.Declined(ctx, "d1")
	require.NoError(t, err)
	require.Len(t, set, 2)
	require.Contains(t, set, types.ID("o1"))
	require.Contains(t, set, types.ID("o2"))

	set, err = ledger.Declined(ctx, "d2")
	require.NoError(t, err)
	require.Len(t, set, 1)
}

func TestRecordIdempotent(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	ledger := NewLedger(kv.NewMemory(), remote, zap.NewNop())

	require.NoError(t, ledger.Record(ctx, "d1", "o1", "unimove"))
	require.NoError(t, ledger.Record(ctx, "d1", "o1", "unimove"))

	set, err := ledger.Declined(ctx, "d1")
	require.NoError(t, err)
	require.Len(t, set, 1)
}

// A failed remote write must not lose the decline: the local copy keeps the
// order filtered on this device.
func TestRemoteWriteFailureMasked(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	remote.insertErr = errors.New("network down")
	ledger := NewLedger(kv.NewMemory(), remote, zap.NewNop())

	require.NoError(t, ledger.Record(ctx, "d1", "o1", "unimove"))

	set, err := ledger.Declined(ctx, "d1")
	require.NoError(t, err)
	require.Contains(t, set, types.ID("o1"))
}

// A remote outage on read degrades to the local set rather than failing or
// un-filtering anything.
func TestRemoteReadFailureDegrades(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	ledger := NewLedger(kv.NewMemory(), remote, zap.NewNop())

	require.NoError(t, ledger.Record(ctx, "d1", "o1", "unimove"))
	remote.listErr = errors.New("timeout")

	set, err := ledger.Declined(ctx, "d1")
	require.NoError(t, err)
	require.Contains(t, set, types.ID("o1"))
}

// Remote rows from another device get merged in and written back to the
// local cache.
func TestRemoteBackfillsLocal(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	remote.rows["d1"] = []types.ID{"o9"}
	local := kv.NewMemory()
	ledger := NewLedger(local, remote, zap.NewNop())

	set, err := ledger.Declined(ctx, "d1")
	require.NoError(t, err)
	require.Contains(t, set, types.ID("o9"))

	// now break the remote: the backfilled local copy must still serve it
	remote.listErr = errors.New("gone")
	set, err = ledger.Declined(ctx, "d1")
	require.NoError(t, err)
	require.Contains(t, set, types.ID("o9"))
}

func TestLocalWriteFailureIsFatal(t *testing.T) {
	ctx := context.Background()
	ledger := NewLedger(failingSetStore{}, newFakeRemote(), zap.NewNop())
	require.Error(t, ledger.Record(ctx, "d1", "o1", "unimove"))
}

type failingSetStore struct{}

func (failingSetStore) Add(context.Context, string, ...string) error { return errors.New("disk full") }
func (failingSetStore) Members(context.Context, string) ([]string, error) {
	return nil, errors.New("disk full")
}
func (failingSetStore) Contains(context.Context, string, string) (bool, error) {
	return false, errors.New("disk full")
}
