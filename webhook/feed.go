package webhook

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// Feed broadcasts accepted deliveries to websocket observers, for live
// debugging of incoming events. It implements http.Handler for the upgrade
// endpoint; wire Broadcast into a Mux via OnDelivery.
type Feed struct {
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu    sync.RWMutex
	conns map[*websocket.Conn]bool
}

// NewFeed creates a delivery feed. A nil logger uses slog.Default().
func NewFeed(logger *slog.Logger) *Feed {
	if logger == nil {
		logger = slog.Default()
	}
	return &Feed{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: logger,
		conns:  make(map[*websocket.Conn]bool),
	}
}

// ServeHTTP upgrades the connection and keeps it subscribed until the
// client disconnects.
func (f *Feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.logger.Warn("feed upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	f.mu.Lock()
	f.conns[conn] = true
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		delete(f.conns, conn)
		f.mu.Unlock()
	}()

	// Drain client messages to notice disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Broadcast sends the delivery as JSON to every connected observer.
// Connections that fail to write are dropped.
func (f *Feed) Broadcast(d Delivery) {
	f.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(f.conns))
	for conn := range f.conns {
		conns = append(conns, conn)
	}
	f.mu.RUnlock()

	for _, conn := range conns {
		if err := conn.WriteJSON(d); err != nil {
			f.logger.Warn("feed write failed", "error", err)
			f.mu.Lock()
			delete(f.conns, conn)
			f.mu.Unlock()
			conn.Close()
		}
	}
}

// Count reports the number of connected observers.
func (f *Feed) Count() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.conns)
}
