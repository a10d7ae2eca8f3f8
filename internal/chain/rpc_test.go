package chain

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNoop_Degrades(t *testing.T) {
	var a Authority = Noop{}
	ctx := context.Background()

	if ok, err := a.IsOwnerOf(ctx, "0xA", 1); ok || !errors.Is(err, ErrUnavailable) {
		t.Fatalf("IsOwnerOf: ok=%v err=%v", ok, err)
	}
	if _, err := a.Mint(ctx, "0xA", 1, "meta"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Mint: %v", err)
	}
	if _, err := a.MetadataOf(ctx, 1); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("MetadataOf: %v", err)
	}
}

func TestRPC_IsOwnerOf(t *testing.T) {
	// 32-byte ABI word holding the owner address in the low 20 bytes.
	ownerWord := "0x" + strings.Repeat("0", 24) + "00112233445566778899aabbccddeeff00112233"

	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Method != "eth_call" {
			http.Error(rw, "bad request", http.StatusBadRequest)
			return
		}
		var call struct {
			To   string `json:"to"`
			Data string `json:"data"`
		}
		_ = json.Unmarshal(req.Params[0], &call)
		if !strings.HasPrefix(call.Data, selOwnerOf) {
			http.Error(rw, "unexpected selector", http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(rw).Encode(map[string]any{"jsonrpc": "2.0", "id": 1, "result": ownerWord})
	}))
	defer srv.Close()

	rpc := NewRPC(srv.URL, "0xcontract", log.New(io.Discard, "", 0))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	ok, err := rpc.IsOwnerOf(ctx, "0x00112233445566778899AABBCCDDEEFF00112233", 7)
	if err != nil || !ok {
		t.Fatalf("owner match: ok=%v err=%v", ok, err)
	}
	ok, err = rpc.IsOwnerOf(ctx, "0xdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef", 7)
	if err != nil || ok {
		t.Fatalf("non-owner: ok=%v err=%v", ok, err)
	}
}

func TestRPC_MetadataOf(t *testing.T) {
	// ABI encoding of the string "ipfs://QmParcel7".
	uri := "ipfs://QmParcel7"
	payload := make([]byte, 96)
	payload[31] = 0x20              // offset 32
	payload[63] = byte(len(uri))    // length
	copy(payload[64:], []byte(uri)) // data
	result := "0x" + hexOf(payload)

	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(rw).Encode(map[string]any{"jsonrpc": "2.0", "id": 1, "result": result})
	}))
	defer srv.Close()

	rpc := NewRPC(srv.URL, "0xcontract", log.New(io.Discard, "", 0))
	got, err := rpc.MetadataOf(context.Background(), 7)
	if err != nil {
		t.Fatalf("metadata: %v", err)
	}
	if got != uri {
		t.Fatalf("uri=%q want %q", got, uri)
	}
}

func TestRPC_UnreachableEndpointIsUnavailable(t *testing.T) {
	rpc := NewRPC("http://127.0.0.1:1", "0xcontract", log.New(io.Discard, "", 0))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := rpc.IsOwnerOf(ctx, "0xA", 1); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("want ErrUnavailable, got %v", err)
	}
}

func TestRPC_MintIsMock(t *testing.T) {
	rpc := NewRPC("http://unused.invalid", "0xcontract", log.New(io.Discard, "", 0))
	tx, err := rpc.Mint(context.Background(), "0xA", 3, "Parcel #3")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if !strings.HasPrefix(tx, "0x") || len(tx) != 66 {
		t.Fatalf("tx=%q", tx)
	}
}

func hexOf(b []byte) string {
	const digits = "0123456789abcdef"
	out := make([]byte, 0, len(b)*2)
	for _, c := range b {
		out = append(out, digits[c>>4], digits[c&0x0f])
	}
	return string(out)
}
