package ws

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"voxelverse.gg/internal/protocol"
	"voxelverse.gg/internal/sim/world"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	w := world.New(world.WorldConfig{ID: "ws"}, log.New(io.Discard, "", 0))
	w.Seed([]world.ParcelSpec{
		{Name: "Plaza", X: -20, Y: 0, Z: -20, Width: 40, Height: 20, Depth: 40},
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = w.Run(ctx) }()
	t.Cleanup(cancel)

	srv := httptest.NewServer(NewServer(w, log.New(io.Discard, "", 0)).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	b, _ := json.Marshal(v)
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func read(t *testing.T, conn *websocket.Conn) []byte {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

// readUntil skips frames until one of the wanted type arrives. Presence
// broadcasts from concurrent joins make exact frame ordering between
// clients nondeterministic.
func readUntil(t *testing.T, conn *websocket.Conn, msgType string) []byte {
	t.Helper()
	for i := 0; i < 32; i++ {
		msg := read(t, conn)
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if base.Type == msgType {
			return msg
		}
	}
	t.Fatalf("no %s frame within 32 frames", msgType)
	return nil
}

func hello(name, wallet string) map[string]string {
	h := map[string]string{
		"type":             protocol.TypeHello,
		"protocol_version": protocol.Version,
		"display_name":     name,
	}
	if wallet != "" {
		h["wallet"] = wallet
	}
	return h
}

func TestHandshake_WelcomeThenInit(t *testing.T) {
	srv := newTestServer(t)
	conn := dial(t, srv)
	send(t, conn, hello("alice", ""))

	var welcome protocol.WelcomeMsg
	if err := json.Unmarshal(read(t, conn), &welcome); err != nil {
		t.Fatalf("welcome: %v", err)
	}
	if welcome.Type != protocol.TypeWelcome || welcome.SessionID == "" {
		t.Fatalf("welcome=%+v", welcome)
	}

	var init protocol.InitMsg
	if err := json.Unmarshal(read(t, conn), &init); err != nil {
		t.Fatalf("init: %v", err)
	}
	if init.Type != protocol.TypeInit || len(init.Parcels) != 1 || len(init.Sessions) != 1 {
		t.Fatalf("init=%+v", init)
	}
	if init.Sessions[0].DisplayName != "alice" {
		t.Fatalf("session=%+v", init.Sessions[0])
	}
}

func TestHandshake_RejectsNonHelloAndBadVersion(t *testing.T) {
	srv := newTestServer(t)

	conn := dial(t, srv)
	send(t, conn, map[string]any{"type": protocol.TypeMove})
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatalf("expected close for non-HELLO first frame")
	}

	conn2 := dial(t, srv)
	send(t, conn2, map[string]string{
		"type":             protocol.TypeHello,
		"protocol_version": "0.9",
	})
	_ = conn2.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := conn2.ReadMessage(); err == nil {
		t.Fatalf("expected close for bad protocol version")
	}
}

func TestBuild_GuestFanout(t *testing.T) {
	srv := newTestServer(t)

	builder := dial(t, srv)
	send(t, builder, hello("bob", ""))
	read(t, builder) // WELCOME
	read(t, builder) // INIT

	watcher := dial(t, srv)
	send(t, watcher, hello("carol", ""))
	read(t, watcher) // WELCOME
	read(t, watcher) // INIT

	readUntil(t, builder, protocol.TypeSessionJoined)

	send(t, builder, map[string]any{
		"type":  protocol.TypeBuild,
		"pos":   [3]int{1, 2, 3},
		"color": "#00ff00",
	})

	// Builds fan out to everyone, including the builder.
	var got protocol.VoxelBuiltMsg
	if err := json.Unmarshal(readUntil(t, builder, protocol.TypeVoxelBuilt), &got); err != nil {
		t.Fatalf("builder frame: %v", err)
	}
	if got.Voxel.Pos != [3]int{1, 2, 3} || got.Voxel.Color != "#00ff00" {
		t.Fatalf("voxel=%+v", got.Voxel)
	}
	if err := json.Unmarshal(readUntil(t, watcher, protocol.TypeVoxelBuilt), &got); err != nil {
		t.Fatalf("watcher frame: %v", err)
	}
	if got.Voxel.Pos != [3]int{1, 2, 3} {
		t.Fatalf("watcher voxel=%+v", got.Voxel)
	}
}

func TestMove_ExcludesMoverIncludesOthers(t *testing.T) {
	srv := newTestServer(t)

	mover := dial(t, srv)
	send(t, mover, hello("dave", ""))
	var welcome protocol.WelcomeMsg
	_ = json.Unmarshal(read(t, mover), &welcome)
	read(t, mover) // INIT

	watcher := dial(t, srv)
	send(t, watcher, hello("erin", ""))
	read(t, watcher) // WELCOME
	read(t, watcher) // INIT

	send(t, mover, map[string]any{
		"type":     protocol.TypeMove,
		"position": protocol.Vec3{X: 1, Y: 2, Z: 3},
		"rotation": protocol.Vec3{Y: 90},
	})

	var moved protocol.SessionMovedMsg
	if err := json.Unmarshal(readUntil(t, watcher, protocol.TypeSessionMoved), &moved); err != nil {
		t.Fatalf("moved: %v", err)
	}
	if moved.ID != welcome.SessionID || moved.Position.X != 1 {
		t.Fatalf("moved=%+v", moved)
	}
}

func TestDisconnect_BroadcastsLeft(t *testing.T) {
	srv := newTestServer(t)

	leaver := dial(t, srv)
	send(t, leaver, hello("frank", ""))
	var welcome protocol.WelcomeMsg
	_ = json.Unmarshal(read(t, leaver), &welcome)
	read(t, leaver) // INIT

	watcher := dial(t, srv)
	send(t, watcher, hello("grace", ""))
	read(t, watcher) // WELCOME
	read(t, watcher) // INIT

	leaver.Close()

	var left protocol.SessionLeftMsg
	if err := json.Unmarshal(readUntil(t, watcher, protocol.TypeSessionLeft), &left); err != nil {
		t.Fatalf("left: %v", err)
	}
	if left.ID != welcome.SessionID {
		t.Fatalf("left=%+v want %s", left, welcome.SessionID)
	}
}
