// SPDX-License-Identifier: MIT
package transport

import (
	"net/http"
	"sync"

	"mira/internal/analysis"
	applog "mira/internal/log"

	"github.com/gorilla/websocket"
)

// WebSocketTransport broadcasts per-hop results as JSON to all connected
// clients. Send queues a deep copy and returns immediately; a broadcast
// goroutine does the actual writes so the analysis goroutine never waits on
// a slow client.
type WebSocketTransport struct {
	upgrader  websocket.Upgrader
	clients   map[*websocket.Conn]bool
	clientsMu sync.Mutex
	broadcast chan analysis.Result
	server    *http.Server
}

// NewWebSocketTransport starts a websocket server on the given port serving
// the result stream at /analysis.
func NewWebSocketTransport(port string) *WebSocketTransport {
	t := &WebSocketTransport{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // visualizers connect from file:// and local hosts
			},
		},
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan analysis.Result, 256),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/analysis", t.handleWebSocket)
	t.server = &http.Server{
		Addr:    ":" + port,
		Handler: mux,
	}

	go func() {
		applog.Infof("Transport: websocket server listening on port %s", port)
		if err := t.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			applog.Errorf("Transport: websocket server error: %v", err)
		}
	}()
	go t.handleBroadcasts()

	return t
}

func (t *WebSocketTransport) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := t.upgrader.Upgrade(w, r, nil)
	if err != nil {
		applog.Errorf("Transport: websocket upgrade error: %v", err)
		return
	}

	t.clientsMu.Lock()
	t.clients[conn] = true
	total := len(t.clients)
	t.clientsMu.Unlock()
	applog.Infof("Transport: websocket client connected, total: %d", total)

	// Reads are only used to detect disconnects.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				t.clientsMu.Lock()
				delete(t.clients, conn)
				t.clientsMu.Unlock()
				conn.Close()
				applog.Infof("Transport: websocket client disconnected")
				return
			}
		}
	}()
}

func (t *WebSocketTransport) handleBroadcasts() {
	for result := range t.broadcast {
		t.clientsMu.Lock()
		for client := range t.clients {
			if err := client.WriteJSON(&result); err != nil {
				applog.Debugf("Transport: dropping websocket client: %v", err)
				client.Close()
				delete(t.clients, client)
			}
		}
		t.clientsMu.Unlock()
	}
}

// Send queues a copy of the result for broadcast. When the queue is full the
// frame is dropped; clients interpolate anyway.
func (t *WebSocketTransport) Send(result *analysis.Result) error {
	select {
	case t.broadcast <- result.Clone():
	default:
	}
	return nil
}

// Close shuts down the server and all client connections.
func (t *WebSocketTransport) Close() error {
	t.clientsMu.Lock()
	for client := range t.clients {
		client.Close()
	}
	t.clients = make(map[*websocket.Conn]bool)
	t.clientsMu.Unlock()

	if t.server != nil {
		return t.server.Close()
	}
	return nil
}

var _ Transport = (*WebSocketTransport)(nil)
