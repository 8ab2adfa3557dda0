package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mattfrayser/whiteboard-relay/internal/board"
	"github.com/mattfrayser/whiteboard-relay/internal/config"
	"github.com/mattfrayser/whiteboard-relay/internal/handlers"
)

type frame map[string]interface{}

type testServer struct {
	*httptest.Server
	registry *board.Registry
	manager  *Manager
}

func newTestServer(t *testing.T, cfg config.Config) *testServer {
	t.Helper()

	registry := board.NewRegistry()
	router := handlers.NewMessageRouter(registry, handlers.Options{AutoCreateBoards: cfg.AutoCreateBoards})
	manager := NewManager(registry, router, cfg)
	srv := httptest.NewServer(NewRouter(NewAPI(registry, manager), manager, cfg))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		manager.Shutdown(ctx)
		srv.Close()
	})

	return &testServer{Server: srv, registry: registry, manager: manager}
}

func (ts *testServer) dial(t *testing.T) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, raw string) {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(raw)); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func read(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var f frame
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("read: %v", err)
	}
	return f
}

// readType skips frames until one of the wanted type arrives.
func readType(t *testing.T, conn *websocket.Conn, want string) frame {
	t.Helper()
	for {
		if f := read(t, conn); f["type"] == want {
			return f
		}
	}
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestWebSocketScenario(t *testing.T) {
	ts := newTestServer(t, config.Default())
	c1 := ts.dial(t)

	send(t, c1, `{"type":"join","whiteboardId":"abc"}`)
	initial := read(t, c1)
	if initial["type"] != "initial" {
		t.Fatalf("expected initial, got %v", initial)
	}
	c1ID := initial["userId"].(string)
	if joined := read(t, c1); joined["type"] != "userJoined" || joined["userId"] != c1ID {
		t.Fatalf("expected own userJoined, got %v", joined)
	}

	send(t, c1, `{"type":"draw","payload":{"x":1,"y":2}}`)
	drawn := read(t, c1)
	elementID, _ := drawn["elementId"].(string)
	if drawn["type"] != "draw" || elementID == "" {
		t.Fatalf("expected draw echo with elementId, got %v", drawn)
	}

	c2 := ts.dial(t)
	send(t, c2, `{"type":"join","whiteboardId":"abc"}`)
	initial = read(t, c2)
	elements := initial["elements"].(map[string]interface{})
	if e, ok := elements[elementID].(map[string]interface{}); !ok || e["x"] != 1.0 || e["y"] != 2.0 {
		t.Fatalf("snapshot missing drawn element: %v", elements)
	}
	readType(t, c1, "userJoined")

	send(t, c1, `{"type":"move","elementId":"`+elementID+`","payload":{"x":5}}`)
	for _, c := range []*websocket.Conn{c1, c2} {
		if moved := readType(t, c, "move"); moved["elementId"] != elementID {
			t.Errorf("unexpected move %v", moved)
		}
	}

	b, _ := ts.registry.Get("abc")
	stored := b.Elements()[elementID]
	if stored.Payload["x"] != 5.0 || stored.Payload["y"] != 2.0 {
		t.Errorf("expected {x:5,y:2}, got %v", stored.Payload)
	}
}

func TestMalformedFrameKeepsConnectionOpen(t *testing.T) {
	ts := newTestServer(t, config.Default())
	c := ts.dial(t)

	send(t, c, `{{{ not json`)
	send(t, c, `{"type":"mystery"}`)
	send(t, c, `{"type":"join","whiteboardId":"abc"}`)

	if f := read(t, c); f["type"] != "initial" {
		t.Errorf("expected initial after bad frames, got %v", f)
	}
}

func TestDisconnectAnnouncesAndCollectsBoard(t *testing.T) {
	ts := newTestServer(t, config.Default())
	c1, c2 := ts.dial(t), ts.dial(t)

	send(t, c1, `{"type":"join","whiteboardId":"gc"}`)
	readType(t, c1, "userJoined")
	send(t, c2, `{"type":"join","whiteboardId":"gc"}`)
	c2ID := read(t, c2)["userId"]
	readType(t, c1, "userJoined")

	c2.Close()
	if left := readType(t, c1, "userLeft"); left["userId"] != c2ID {
		t.Errorf("expected userLeft for %v, got %v", c2ID, left)
	}
	if _, ok := ts.registry.Get("gc"); !ok {
		t.Fatal("board removed while a session remained")
	}

	c1.Close()
	eventually(t, func() bool {
		_, ok := ts.registry.Get("gc")
		return !ok
	}, "board not removed after last session left")
	eventually(t, func() bool { return ts.manager.Count() == 0 }, "connections still tracked")
}

func TestCreateAndCreateCustom(t *testing.T) {
	ts := newTestServer(t, config.Default())

	resp, err := http.Post(ts.URL+"/create", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	var created boardResponse
	json.NewDecoder(resp.Body).Decode(&created)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || created.BoardID == "" {
		t.Fatalf("create: status %d, body %+v", resp.StatusCode, created)
	}
	if _, ok := ts.registry.Get(created.BoardID); !ok {
		t.Error("created board not registered")
	}

	post := func(body string) (int, map[string]string) {
		resp, err := http.Post(ts.URL+"/create-custom", "application/json", bytes.NewBufferString(body))
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		var out map[string]string
		json.NewDecoder(resp.Body).Decode(&out)
		return resp.StatusCode, out
	}

	code, out := post(`{"customId":"team"}`)
	if code != http.StatusOK || out["boardId"] != "team" {
		t.Fatalf("create-custom: status %d, body %v", code, out)
	}

	tests := []struct {
		name string
		body string
	}{
		{"taken", `{"customId":"team"}`},
		{"missing", `{}`},
		{"invalid", `{"customId":"<script>"}`},
		{"not json", `nope`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, out := post(tt.body)
			if code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", code)
			}
			if out["error"] == "" {
				t.Error("expected error message")
			}
		})
	}
}

func TestGetBoardAndHealth(t *testing.T) {
	ts := newTestServer(t, config.Default())
	ts.registry.Create("stats")
	h := NewRouter(NewAPI(ts.registry, ts.manager), ts.manager, config.Default())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/boards/stats", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var stats boardStats
	json.Unmarshal(w.Body.Bytes(), &stats)
	if stats.BoardID != "stats" || stats.Sessions != 0 || stats.Elements != 0 {
		t.Errorf("unexpected stats %+v", stats)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/boards/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Errorf("unexpected health response %d %s", w.Code, w.Body.String())
	}
}

func TestStrictModeRejectsUnknownBoardOnJoin(t *testing.T) {
	cfg := config.Default()
	cfg.AutoCreateBoards = false
	ts := newTestServer(t, cfg)
	ts.registry.Create("known")
	c := ts.dial(t)

	send(t, c, `{"type":"join","whiteboardId":"unknown"}`)
	send(t, c, `{"type":"join","whiteboardId":"known"}`)

	if f := read(t, c); f["type"] != "initial" {
		t.Errorf("expected initial for the known board only, got %v", f)
	}
	if _, ok := ts.registry.Get("unknown"); ok {
		t.Error("strict mode created a board on join")
	}
}

func TestOriginCheck(t *testing.T) {
	cfg := config.Default()
	cfg.AllowedOrigins = []string{"https://ok.example"}
	ts := newTestServer(t, cfg)
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"

	header := http.Header{"Origin": []string{"https://evil.example"}}
	if _, _, err := websocket.DefaultDialer.Dial(url, header); err == nil {
		t.Error("disallowed origin was upgraded")
	}

	header = http.Header{"Origin": []string{"https://ok.example"}}
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("allowed origin rejected: %v", err)
	}
	conn.Close()
}

func TestShutdownClosesSessions(t *testing.T) {
	ts := newTestServer(t, config.Default())
	c := ts.dial(t)
	send(t, c, `{"type":"join","whiteboardId":"bye"}`)
	readType(t, c, "userJoined")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := ts.manager.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	if ts.manager.Count() != 0 {
		t.Errorf("expected no live connections, got %d", ts.manager.Count())
	}
	if _, ok := ts.registry.Get("bye"); ok {
		t.Error("board survived shutdown")
	}
}
