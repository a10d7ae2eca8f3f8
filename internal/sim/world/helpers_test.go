package world

import (
	"encoding/json"
	"io"
	"log"
	"testing"

	"voxelverse.gg/internal/protocol"
)

func newTestWorld(t *testing.T) *World {
	t.Helper()
	return New(WorldConfig{ID: "test"}, log.New(io.Discard, "", 0))
}

// joinTest registers a session directly on the (not running) world loop.
func joinTest(t *testing.T, w *World, name, wallet string) (string, chan []byte) {
	t.Helper()
	out := make(chan []byte, 64)
	resp := make(chan JoinResponse, 1)
	w.handleJoin(JoinRequest{DisplayName: name, Wallet: wallet, Out: out, Resp: resp})
	jr := <-resp
	if jr.Welcome.SessionID == "" {
		t.Fatalf("join: empty session id")
	}
	return jr.Welcome.SessionID, out
}

func drain(out chan []byte) [][]byte {
	var frames [][]byte
	for {
		select {
		case b := <-out:
			frames = append(frames, b)
		default:
			return frames
		}
	}
}

func frameTypes(frames [][]byte) []string {
	types := make([]string, 0, len(frames))
	for _, b := range frames {
		base, _ := protocol.DecodeBase(b)
		types = append(types, base.Type)
	}
	return types
}

func lastFrameOfType(t *testing.T, frames [][]byte, typ string) []byte {
	t.Helper()
	var found []byte
	for _, b := range frames {
		base, _ := protocol.DecodeBase(b)
		if base.Type == typ {
			found = b
		}
	}
	if found == nil {
		t.Fatalf("no %s frame in %v", typ, frameTypes(frames))
	}
	return found
}

func hasFrameType(frames [][]byte, typ string) bool {
	for _, b := range frames {
		base, _ := protocol.DecodeBase(b)
		if base.Type == typ {
			return true
		}
	}
	return false
}

func unmarshalFrame(t *testing.T, b []byte, v any) {
	t.Helper()
	if err := json.Unmarshal(b, v); err != nil {
		t.Fatalf("unmarshal frame: %v", err)
	}
}

type captureAudit struct {
	entries []AuditEntry
}

func (c *captureAudit) WriteAudit(e AuditEntry) error {
	c.entries = append(c.entries, e)
	return nil
}
