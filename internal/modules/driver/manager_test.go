// README: Session manager tests: reopened sessions rebuild their queue from the poll.
package driver

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"unihub/internal/kv"
	"unihub/internal/modules/feed"
	"unihub/internal/modules/order"
	"unihub/internal/types"
)

// feed.PendingSource side of the shared fake store, so a fakeBackend
// satisfies the full session Backend surface.
func (f *fakeBackend) PendingOrders(_ context.Context, serviceTypes []order.ServiceType) ([]order.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []order.Order
	for _, row := range f.rows {
		if row.Source != order.SourceOrders || row.Status != order.StatusPending || row.DriverID != nil {
			continue
		}
		for _, st := range serviceTypes {
			if row.ServiceType == st {
				out = append(out, *row)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeBackend) PendingRideRequests(context.Context) ([]order.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []order.Order
	for _, row := range f.rows {
		if row.Source == order.SourceRideRequests && row.Status == order.StatusPending && row.DriverID == nil {
			out = append(out, *row)
		}
	}
	return out, nil
}

// sessionRealtime hands every subscriber its own idle channel.
type sessionRealtime struct{}

func (sessionRealtime) Subscribe(context.Context, []order.Source) (<-chan feed.Event, func(), error) {
	return make(chan feed.Event), func() {}, nil
}

type emptyDeclined struct{}

func (emptyDeclined) Declined(context.Context, types.ID) (map[types.ID]struct{}, error) {
	return nil, nil
}

func newTestManager(backend *fakeBackend, notified kv.SetStore, sink OfferSink) *Manager {
	return NewManager(context.Background(), ManagerDeps{
		Store:        backend,
		Ledger:       emptyDeclined{},
		Recorder:     &fakeRecorder{},
		Stats:        newFakeStats(),
		Publisher:    &fakePublisher{},
		Realtime:     sessionRealtime{},
		Notified:     notified,
		PollInterval: 20 * time.Millisecond,
		Log:          zap.NewNop(),
	}, sink)
}

func waitForPending(t *testing.T, s *Session, id types.ID) {
	t.Helper()
	require.Eventually(t, func() bool {
		for _, o := range s.Controller.Pending() {
			if o.ID == id {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond, "order %s never reached the session queue", id)
}

// Closing and reopening a session must rebuild the actionable queue from the
// store: orders that are still pending, unclaimed, and not declined stay
// visible and acceptable no matter what was pushed to a previous session.
func TestReopenedSessionSeesPendingOrders(t *testing.T) {
	backend := newFakeBackend()
	backend.put(testOrder("o1", order.ServiceUniMove, 25))
	m := newTestManager(backend, kv.NewMemory(), nil)

	s, err := m.Open("d1")
	require.NoError(t, err)
	waitForPending(t, s, "o1")

	m.Close("d1")

	s, err = m.Open("d1")
	require.NoError(t, err)
	waitForPending(t, s, "o1")
	require.NoError(t, s.Controller.Accept(context.Background(), "o1"))
}

// The notified set only dedups pushes. Even when an order is already marked
// notified, a fresh session must list and accept it.
func TestAcceptWorksAfterNotifiedMark(t *testing.T) {
	backend := newFakeBackend()
	backend.put(testOrder("o1", order.ServiceUniMove, 25))
	notified := kv.NewMemory()
	require.NoError(t, notified.Add(context.Background(), "notified:d1", "o1"))

	var mu sync.Mutex
	var pushed []types.ID
	sink := func(_ types.ID, o order.Order) {
		mu.Lock()
		defer mu.Unlock()
		pushed = append(pushed, o.ID)
	}
	m := newTestManager(backend, notified, sink)

	s, err := m.Open("d1")
	require.NoError(t, err)
	waitForPending(t, s, "o1")
	require.NoError(t, s.Controller.Accept(context.Background(), "o1"))
	mu.Lock()
	defer mu.Unlock()
	require.Empty(t, pushed, "a notified order must not be re-pushed")
}

func TestManagerOpenIsIdempotent(t *testing.T) {
	backend := newFakeBackend()
	m := newTestManager(backend, kv.NewMemory(), nil)

	s1, err := m.Open("d1")
	require.NoError(t, err)
	s2, err := m.Open("d1")
	require.NoError(t, err)
	require.Same(t, s1, s2)
	m.CloseAll()
}
