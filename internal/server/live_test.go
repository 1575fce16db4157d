package server

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialLive(t *testing.T, env *testEnv) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/ws/graph"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// expect reads messages until one of type typ arrives and pred accepts it.
func expect(t *testing.T, conn *websocket.Conn, typ string, pred func(serverMessage) bool) serverMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var msg serverMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("waiting for %q: %v", typ, err)
		}
		if msg.Type == typ && (pred == nil || pred(msg)) {
			return msg
		}
	}
}

func loadSample(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	expect(t, conn, "hello", nil)
	conn.WriteJSON(clientMessage{Type: msgLoad, Search: &searchQuery{Type: "user", Name: "alice", Find: "repo"}})
	expect(t, conn, "loading", nil)
	view := expect(t, conn, "view", nil)
	if view.View != "graph" {
		t.Fatalf("view = %+v, want graph", view)
	}
	frame := expect(t, conn, "frame", nil)
	if !strings.Contains(frame.SVG, `data-id="golang/go"`) {
		t.Fatalf("frame svg missing node: %s", frame.SVG)
	}
}

func TestLiveLoadAndClick(t *testing.T) {
	env := newTestEnv(t, nil)
	conn := dialLive(t, env)
	loadSample(t, conn)

	conn.WriteJSON(clientMessage{Type: msgClick, ID: "golang/go"})
	sel := expect(t, conn, "selected", nil)
	if sel.Node == nil || sel.Node.ID != "golang/go" {
		t.Fatalf("selected = %+v", sel.Node)
	}
	got := expect(t, conn, "analysis", func(m serverMessage) bool {
		return m.Analysis != nil && m.Analysis.Phase == "loaded"
	})
	if got.Analysis.Analysis != "alice 与 golang/go 相似" {
		t.Errorf("analysis = %+v", got.Analysis)
	}
	expect(t, conn, "frame", func(m serverMessage) bool {
		return strings.Contains(m.SVG, "node-core selected")
	})
}

func TestLiveCenterClickDoesNotFetch(t *testing.T) {
	env := newTestEnv(t, nil)
	conn := dialLive(t, env)
	loadSample(t, conn)
	before := env.backend.calls.Load()

	conn.WriteJSON(clientMessage{Type: msgClick, ID: "alice"})
	expect(t, conn, "selected", nil)
	conn.WriteJSON(clientMessage{Type: msgZoom, Factor: 2, X: 0, Y: 0})
	expect(t, conn, "frame", func(m serverMessage) bool { return m.Viewport == "translate(0,0) scale(2)" })

	if n := env.backend.calls.Load(); n != before {
		t.Errorf("center click made %d backend calls", n-before)
	}
}

func TestLiveDrag(t *testing.T) {
	env := newTestEnv(t, nil)
	conn := dialLive(t, env)
	loadSample(t, conn)

	conn.WriteJSON(clientMessage{Type: msgDragStart, ID: "spf13/cobra"})
	conn.WriteJSON(clientMessage{Type: msgDrag, ID: "spf13/cobra", X: 50, Y: 60})
	expect(t, conn, "frame", func(m serverMessage) bool {
		return strings.Contains(m.SVG, `data-id="spf13/cobra" transform="translate(50.00,60.00)"`)
	})
	conn.WriteJSON(clientMessage{Type: msgDragEnd, ID: "spf13/cobra"})
}

func TestLiveErrors(t *testing.T) {
	env := newTestEnv(t, nil)
	conn := dialLive(t, env)
	expect(t, conn, "hello", nil)

	conn.WriteJSON(clientMessage{Type: msgClick, ID: "alice"})
	if msg := expect(t, conn, "error", nil); msg.Message != "no graph loaded" {
		t.Errorf("message = %q", msg.Message)
	}

	conn.WriteJSON(clientMessage{Type: "teleport"})
	expect(t, conn, "error", nil)

	conn.WriteJSON(clientMessage{Type: msgLoad, Search: &searchQuery{Type: "repo", Name: "golang", Find: "user"}})
	if msg := expect(t, conn, "error", nil); msg.Message != "仓库名称格式错误，应为: owner/repo" {
		t.Errorf("message = %q", msg.Message)
	}
}

func TestLiveErrorAndEmptyViews(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		wantView string
		wantMsg  string
	}{
		{"error payload", `{"status":"error","message":"GitHub API 限流"}`, "error", "GitHub API 限流"},
		{"empty payload", `{"nodes":[],"links":[],"center":{"id":"alice"}}`, "empty", "没有找到推荐结果"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil)
			env.backend.handler = func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(tt.payload)) }
			conn := dialLive(t, env)
			expect(t, conn, "hello", nil)
			conn.WriteJSON(clientMessage{Type: msgLoad, Search: &searchQuery{Type: "user", Name: "alice", Find: "repo"}})
			msg := expect(t, conn, "view", nil)
			if msg.View != tt.wantView || msg.Message != tt.wantMsg {
				t.Errorf("view = %q %q, want %q %q", msg.View, msg.Message, tt.wantView, tt.wantMsg)
			}
		})
	}
}
