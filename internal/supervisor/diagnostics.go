package supervisor

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/technosupport/trackerd/internal/fleet"
	"github.com/technosupport/trackerd/internal/obs"
	"github.com/technosupport/trackerd/internal/tracking"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub fans lifecycle events (track.finished, dispatch.result) out to
// every connected /debug/ws client, grounded on
// internal/api/sfu_ws_handlers.go's upgrade-and-loop shape but inverted:
// trackerd only ever pushes to operators; it reads and discards client
// frames only to detect a dropped connection.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

func newHub() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]struct{})}
}

// Publish implements EventBus so the Hub can be handed to the same call
// sites as a NATSBus/NoopBus.
func (h *Hub) Publish(subject string, payload any) {
	data, err := json.Marshal(map[string]any{"subject": subject, "payload": payload})
	if err != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.Close()
	}
	h.clients = make(map[*websocket.Conn]struct{})
}

func (h *Hub) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		obs.Warn(obs.TagSupervisor, "debug ws upgrade failed: %v", err)
		return
	}
	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()

	// Drain and discard anything the client sends; we only push. Reading
	// is what detects the client going away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.mu.Lock()
			delete(h.clients, conn)
			h.mu.Unlock()
			conn.Close()
			return
		}
	}
}

// BroadcastBus fans a publish out to both an upstream bus (NATS or
// noop) and the local diagnostics Hub, so operators attached to
// /debug/ws see the same events the message broker does.
type BroadcastBus struct {
	upstream EventBus
	hub      *Hub
}

func newBroadcastBus(upstream EventBus, hub *Hub) *BroadcastBus {
	return &BroadcastBus{upstream: upstream, hub: hub}
}

func (b *BroadcastBus) Publish(subject string, payload any) {
	b.upstream.Publish(subject, payload)
	b.hub.Publish(subject, payload)
}

func (b *BroadcastBus) Close() {
	b.upstream.Close()
	b.hub.Close()
}

// newDiagnosticsRouter builds the operator-facing HTTP surface:
// /healthz, /metrics, /debug/tracks and /debug/ws (SPEC_FULL.md §11),
// grounded on cmd/hlsd/main.go's chi.NewRouter()-plus-middleware-stack
// shape.
func newDiagnosticsRouter(registry *tracking.Registry, monitor *fleet.Monitor, metrics *obs.Metrics, hub *Hub) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(10 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Handle("/metrics", metrics.Handler())

	r.Get("/debug/tracks", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"active_cameras":    monitor.ActiveCameraCount(),
			"tracks_per_camera": registry.Stats(),
			"tracks_total":      registry.Len(),
		})
	})

	r.Get("/debug/ws", hub.serveWS)

	return r
}
