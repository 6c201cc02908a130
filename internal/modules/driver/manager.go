// README: Driver session manager; one controller plus its feed bridges per online driver.
package driver

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"unihub/internal/kv"
	"unihub/internal/modules/feed"
	"unihub/internal/modules/order"
	"unihub/internal/types"
)

// Session is an online driver: the lifecycle controller, one bridge per
// watched vertical feeding the offer queue, and a watch that reconciles
// pushes about the claimed order (the customer cancelling, above all).
type Session struct {
	Controller *Controller
	bridges    []*feed.Bridge

	cancelWatch context.CancelFunc
	stopSub     func()
	wg          sync.WaitGroup
}

func (s *Session) Close() {
	if s.cancelWatch != nil {
		s.cancelWatch()
	}
	if s.stopSub != nil {
		s.stopSub()
	}
	for _, b := range s.bridges {
		b.Stop()
	}
	s.wg.Wait()
}

// OfferSink receives first-time notifications (the websocket feed); it sits
// behind the bridge's notified-set gate, unlike the controller's queue feed.
type OfferSink func(driverID types.ID, o order.Order)

// Backend is the full store surface a session needs: feed reads for the
// bridges plus the controller's mutations.
type Backend interface {
	feed.PendingSource
	OrderStore
}

type ManagerDeps struct {
	Store        Backend
	Ledger       feed.DeclinedSet
	Recorder     DeclineRecorder
	Stats        Stats
	Publisher    EventPublisher
	Realtime     feed.Realtime
	Notified     kv.SetStore
	PollInterval time.Duration
	Log          *zap.Logger
}

// Manager opens and closes driver sessions. The ride and delivery verticals
// get separate bridges with their own table filters, per the broadcast
// model: every online driver watches the same feeds.
type Manager struct {
	ctx  context.Context // application lifetime, not request lifetime
	deps ManagerDeps
	sink OfferSink

	mu       sync.Mutex
	sessions map[types.ID]*Session
}

func NewManager(ctx context.Context, deps ManagerDeps, sink OfferSink) *Manager {
	return &Manager{
		ctx:      ctx,
		deps:     deps,
		sink:     sink,
		sessions: make(map[types.ID]*Session),
	}
}

// Open starts a session for the driver, or returns the existing one. The
// session's bridges outlive the calling request; they run until Close.
func (m *Manager) Open(driverID types.ID) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[driverID]; ok {
		return s, nil
	}

	ctrl := NewController(driverID, m.deps.Store, m.deps.Recorder, m.deps.Stats, m.deps.Publisher, m.deps.Log)
	// The queue feed is ungated so a reopened session rebuilds its pending
	// list from the first poll; the notified set only dedups the push sink.
	sinks := feed.BridgeSinks{
		Queue: ctrl.HandleOffer,
		Notify: func(o order.Order) {
			if m.sink != nil {
				m.sink(driverID, o)
			}
		},
	}

	verticals := []feed.AggregatorConfig{
		{ServiceTypes: []order.ServiceType{order.ServiceUniMove}, IncludeLegacy: true},
		{ServiceTypes: []order.ServiceType{order.ServiceUniSend}},
	}

	s := &Session{Controller: ctrl}
	for _, cfg := range verticals {
		agg := feed.NewAggregator(m.deps.Store, m.deps.Ledger, cfg, m.deps.Log)
		bridge := feed.NewBridge(agg, m.deps.Store, m.deps.Realtime, m.deps.Notified,
			feed.BridgeConfig{DriverID: driverID, PollInterval: m.deps.PollInterval},
			sinks, m.deps.Log)
		if err := bridge.Start(m.ctx); err != nil {
			s.Close()
			return nil, err
		}
		s.bridges = append(s.bridges, bridge)
	}

	if err := m.startOrderWatch(s); err != nil {
		s.Close()
		return nil, err
	}

	m.sessions[driverID] = s
	return s, nil
}

// startOrderWatch subscribes to both tables and forwards updates that name
// the controller's current order, re-fetched in full first.
func (m *Manager) startOrderWatch(s *Session) error {
	ctx, cancel := context.WithCancel(m.ctx)

	tables := []order.Source{order.SourceOrders, order.SourceRideRequests}
	events, stopSub, err := m.deps.Realtime.Subscribe(ctx, tables)
	if err != nil {
		cancel()
		return err
	}
	s.cancelWatch = cancel
	s.stopSub = stopSub

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				cur := s.Controller.Current()
				if cur == nil || cur.ID != ev.OrderID {
					continue
				}
				fresh, err := m.deps.Store.Get(ctx, cur.Source, cur.ID)
				if err != nil {
					if err != order.ErrNotFound {
						m.deps.Log.Warn("session watch: re-fetch failed", zap.Error(err))
					}
					continue
				}
				s.Controller.HandleOrderUpdate(*fresh)
			}
		}
	}()
	return nil
}

func (m *Manager) Get(driverID types.ID) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[driverID]
	return s, ok
}

// Close tears down the driver's bridges and forgets the session.
func (m *Manager) Close(driverID types.ID) {
	m.mu.Lock()
	s, ok := m.sessions[driverID]
	delete(m.sessions, driverID)
	m.mu.Unlock()
	if ok {
		s.Close()
	}
}

// CloseAll is used on shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[types.ID]*Session)
	m.mu.Unlock()
	for _, s := range sessions {
		s.Close()
	}
}
