// README: Customer session manager; one watching controller per active order.
package customer

import (
	"context"
	"sync"

	"unihub/internal/modules/order"
	"unihub/internal/types"
)

// Manager creates orders and keeps a watching controller per order. A
// terminal order's watch is torn down on access but the controller stays
// registered so follow-up status and pay requests still resolve; the map is
// cleared on shutdown.
type Manager struct {
	ctx context.Context // application lifetime; watches outlive the creating request
	svc *Service

	mu          sync.Mutex
	controllers map[types.ID]*Controller
}

func NewManager(ctx context.Context, svc *Service) *Manager {
	return &Manager{ctx: ctx, svc: svc, controllers: make(map[types.ID]*Controller)}
}

// Request creates the order and starts its watch.
func (m *Manager) Request(ctx context.Context, cmd CreateCommand) (*Controller, error) {
	o, err := m.svc.CreateOrder(ctx, cmd)
	if err != nil {
		return nil, err
	}
	ctrl := newController(m.svc, *o)
	if err := ctrl.Start(m.ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.controllers[o.ID] = ctrl
	m.mu.Unlock()
	return ctrl, nil
}

func (m *Manager) Get(orderID types.ID) (*Controller, bool) {
	m.mu.Lock()
	ctrl, ok := m.controllers[orderID]
	m.mu.Unlock()
	if !ok {
		return nil, false
	}
	// A terminal order no longer needs its watch, but the controller stays
	// registered: status reads and pay must keep working after completion.
	// Stop is idempotent, so tearing down on every access is fine.
	if order.IsTerminal(ctrl.Order().Status) {
		go ctrl.Stop()
	}
	return ctrl, true
}

func (m *Manager) CloseAll() {
	m.mu.Lock()
	controllers := m.controllers
	m.controllers = make(map[types.ID]*Controller)
	m.mu.Unlock()
	for _, c := range controllers {
		c.Stop()
	}
}
