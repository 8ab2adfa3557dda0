package transport

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mattfrayser/whiteboard-relay/internal/board"
	"github.com/mattfrayser/whiteboard-relay/internal/config"
	"github.com/mattfrayser/whiteboard-relay/internal/handlers"
	"github.com/mattfrayser/whiteboard-relay/internal/session"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10 // ping at 90% of pong deadline
	writeWait  = 10 * time.Second
)

// Manager accepts websocket connections, runs one session per connection and
// tears the session down when the connection goes away.
type Manager struct {
	registry *board.Registry
	router   *handlers.MessageRouter
	cfg      config.Config
	upgrader websocket.Upgrader
	conns    map[string]*websocket.Conn // session id -> connection
	mu       sync.Mutex
	wg       sync.WaitGroup
}

func NewManager(registry *board.Registry, router *handlers.MessageRouter, cfg config.Config) *Manager {
	m := &Manager{
		registry: registry,
		router:   router,
		cfg:      cfg,
		conns:    make(map[string]*websocket.Conn),
	}
	m.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || cfg.OriginAllowed(origin)
		},
	}
	return m
}

// HandleWebSocket: upgrades the request and serves the session until the
// connection closes
func (m *Manager) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}

	s := session.New(session.Options{
		SendBuffer:   m.cfg.SendBuffer,
		PanZoomRate:  m.cfg.PanZoomRate,
		PanZoomBurst: m.cfg.PanZoomBurst,
	})
	m.track(s, conn)
	slog.Info("session connected", "session", s.ID(), "remote", r.RemoteAddr)

	go m.writePump(s, conn)
	m.readPump(s, conn)
}

// readPump: message loop for one connection. Protocol errors drop the frame;
// only a transport error ends the loop.
func (m *Manager) readPump(s *session.Session, conn *websocket.Conn) {
	defer m.teardown(s, conn)

	conn.SetReadLimit(m.cfg.MaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("read failed", "session", s.ID(), "err", err)
			}
			return
		}

		if err := m.router.Route(s, msg); err != nil {
			slog.Warn("message dropped", "session", s.ID(), "err", err)
		}
	}
}

// writePump drains the session's queue onto the socket and keeps it alive
// with pings. It exits when the queue closes or a write fails.
func (m *Manager) writePump(s *session.Session, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case msg, ok := <-s.Outbound():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				slog.Warn("write failed", "session", s.ID(), "err", err)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// teardown releases the session from its board. Safe to call repeatedly;
// only the first call does anything.
func (m *Manager) teardown(s *session.Session, conn *websocket.Conn) {
	b, first := s.Close()
	if !first {
		return
	}
	defer m.wg.Done()

	m.untrack(s.ID())
	conn.Close()

	if b != nil {
		b.Leave(s.ID())
		m.registry.RemoveIfEmpty(b)
	}
	slog.Info("session disconnected", "session", s.ID())
}

func (m *Manager) track(s *session.Session, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.wg.Add(1)
	m.conns[s.ID()] = conn
}

func (m *Manager) untrack(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.conns, id)
}

// Count: number of live connections
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.conns)
}

// Shutdown closes every live connection and waits for their sessions to be
// torn down, or for ctx to end.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(m.conns))
	for _, conn := range m.conns {
		conns = append(conns, conn)
	}
	m.mu.Unlock()

	deadline := time.Now().Add(writeWait)
	closing := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	for _, conn := range conns {
		conn.WriteControl(websocket.CloseMessage, closing, deadline)
		conn.Close()
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
