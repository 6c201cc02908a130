// README: Websocket feed hub; pushes surfaced orders to connected driver clients.
package httpapi

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"unihub/internal/modules/order"
	"unihub/internal/types"
)

var upgrader = websocket.Upgrader{
	// TODO: restrict origins once the app domains are final.
	CheckOrigin: func(r *http.Request) bool { return true },
}

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 16
)

type feedMessage struct {
	Type      string   `json:"type"`
	Order     orderDTO `json:"order"`
	Timestamp string   `json:"timestamp"`
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// FeedHub keeps the open sockets per driver. It sits on the bridge's
// notified-gated sink, so each order is pushed at most once per device; a
// slow client gets dropped rather than blocking the feed.
type FeedHub struct {
	mu      sync.RWMutex
	clients map[types.ID]map[*wsClient]bool
	log     *zap.Logger
}

func NewFeedHub(log *zap.Logger) *FeedHub {
	return &FeedHub{clients: make(map[types.ID]map[*wsClient]bool), log: log}
}

// Offer fans a surfaced order out to the driver's connected clients.
func (h *FeedHub) Offer(driverID types.ID, o order.Order) {
	msg := feedMessage{
		Type:      "new_order",
		Order:     toOrderDTO(o),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		h.log.Warn("feed hub: marshal failed", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[driverID] {
		select {
		case client.send <- payload:
		default:
			// Buffer full; the poll backstop will catch this client up.
		}
	}
}

func (h *FeedHub) Serve(c *gin.Context) {
	driverID := types.ID(c.Param("driver_id"))
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("feed hub: upgrade failed", zap.Error(err))
		return
	}

	client := &wsClient{conn: conn, send: make(chan []byte, sendBuffer)}
	h.register(driverID, client)

	go h.writePump(client)
	h.readPump(driverID, client)
}

func (h *FeedHub) register(driverID types.ID, client *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[driverID]
	if !ok {
		set = make(map[*wsClient]bool)
		h.clients[driverID] = set
	}
	set[client] = true
}

func (h *FeedHub) unregister(driverID types.ID, client *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.clients[driverID]
	if _, ok := set[client]; !ok {
		return
	}
	delete(set, client)
	if len(set) == 0 {
		delete(h.clients, driverID)
	}
	close(client.send)
}

// readPump exists to notice the peer closing; inbound frames are ignored.
func (h *FeedHub) readPump(driverID types.ID, client *wsClient) {
	defer func() {
		h.unregister(driverID, client)
		_ = client.conn.Close()
	}()
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *FeedHub) writePump(client *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = client.conn.Close()
	}()
	for {
		select {
		case payload, ok := <-client.send:
			if !ok {
				_ = client.conn.WriteControl(websocket.CloseMessage, []byte{}, time.Now().Add(writeWait))
				return
			}
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
