// README: Customer manager tests: terminal orders stay reachable for status and pay.
package customer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"unihub/internal/modules/feed"
	"unihub/internal/modules/order"
	"unihub/internal/types"
)

// idleRealtime hands every subscriber a channel nothing writes to.
type idleRealtime struct{}

func (idleRealtime) Subscribe(context.Context, []order.Source) (<-chan feed.Event, func(), error) {
	return make(chan feed.Event), func() {}, nil
}

func newManagerFixture() (*Manager, *fixture) {
	fx := newFixture()
	fx.svc.realtime = idleRealtime{}
	return NewManager(context.Background(), fx.svc), fx
}

func TestManagerRequestAndGet(t *testing.T) {
	m, _ := newManagerFixture()
	defer m.CloseAll()

	ctrl, err := m.Request(context.Background(), validCommand())
	require.NoError(t, err)
	o := ctrl.Order()

	got, ok := m.Get(o.ID)
	require.True(t, ok)
	require.Equal(t, o.ID, got.Order().ID)

	_, ok = m.Get("stranger")
	require.False(t, ok)
}

// A completed order's controller must keep resolving: the first access after
// the terminal transition cannot be the last.
func TestManagerKeepsTerminalControllers(t *testing.T) {
	m, fx := newManagerFixture()
	defer m.CloseAll()

	ctrl, err := m.Request(context.Background(), validCommand())
	require.NoError(t, err)
	o := ctrl.Order()

	d := types.ID("d1")
	upd := o
	upd.DriverID = &d
	upd.Status = order.StatusAccepted
	ctrl.HandleOrderUpdate(upd)
	upd.Status = order.StatusCompleted
	ctrl.HandleOrderUpdate(upd)

	first, ok := m.Get(o.ID)
	require.True(t, ok)
	require.Equal(t, PhaseCompleted, first.Phase())

	second, ok := m.Get(o.ID)
	require.True(t, ok)
	require.NoError(t, second.Pay(context.Background()))
	require.Len(t, fx.tx.txs, 1)

	third, ok := m.Get(o.ID)
	require.True(t, ok)
	require.Equal(t, PhaseCompleted, third.Phase())
}
