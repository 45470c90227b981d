// SPDX-License-Identifier: MIT

package transport

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"soundcheck/internal/log"
)

// SpectrumHub broadcasts spectrum frames to connected WebSocket
// clients. It owns no listener; the HTTP server mounts HandleWS on its
// own mux. Broadcasts are rate limited so a fast analysis loop cannot
// flood slow clients.
//
// Thread Safety:
// - Uses mutex for client map access and the rate limiter
// - Handles concurrent connections safely
type SpectrumHub struct {
	upgrader        websocket.Upgrader
	clients         map[*websocket.Conn]bool
	clientsMu       sync.Mutex
	lastSend        time.Time
	minSendInterval time.Duration
}

// NewSpectrumHub creates a hub that sends at most one frame per
// interval. interval <= 0 disables rate limiting.
func NewSpectrumHub(interval time.Duration) *SpectrumHub {
	return &SpectrumHub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins for testing
			},
		},
		clients:         make(map[*websocket.Conn]bool),
		minSendInterval: interval,
	}
}

// HandleWS upgrades the request and registers the client. A reader
// goroutine drains the connection and prunes it on close.
func (h *SpectrumHub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("spectrum hub: upgrade error: %v", err)
		return
	}

	h.clientsMu.Lock()
	h.clients[conn] = true
	total := len(h.clients)
	h.clientsMu.Unlock()
	log.Infof("spectrum hub: client connected, total: %d", total)

	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.clientsMu.Lock()
				delete(h.clients, conn)
				total := len(h.clients)
				h.clientsMu.Unlock()
				conn.Close()
				log.Infof("spectrum hub: client disconnected, total: %d", total)
				return
			}
		}
	}()
}

// Send broadcasts data as JSON to all connected clients. Frames that
// arrive faster than the configured interval are dropped, and a failed
// client write removes that client rather than failing the broadcast.
func (h *SpectrumHub) Send(data any) error {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()

	now := time.Now()
	if h.minSendInterval > 0 && now.Sub(h.lastSend) < h.minSendInterval {
		return nil // Skip this update
	}
	h.lastSend = now

	for client := range h.clients {
		if err := client.WriteJSON(data); err != nil {
			client.Close()
			delete(h.clients, client)
		}
	}
	return nil
}

// ClientCount reports the number of connected clients.
func (h *SpectrumHub) ClientCount() int {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	return len(h.clients)
}

// Close disconnects all clients.
func (h *SpectrumHub) Close() error {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	for client := range h.clients {
		client.Close()
	}
	h.clients = make(map[*websocket.Conn]bool)
	return nil
}

var _ Transport = (*SpectrumHub)(nil)
