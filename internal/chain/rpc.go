package chain

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"strings"
	"time"
)

// ERC-721 function selectors.
const (
	selOwnerOf  = "0x6352211e" // ownerOf(uint256)
	selTokenURI = "0xc87b56dd" // tokenURI(uint256)
)

// RPC talks to a land-registry contract over Ethereum JSON-RPC. Reads use
// eth_call; Mint is an explicitly non-cryptographic mock that fabricates a
// receipt hash, since real settlement is out of scope.
type RPC struct {
	endpoint string
	contract string
	hc       *http.Client
	logger   *log.Logger
}

func NewRPC(endpoint, contract string, logger *log.Logger) *RPC {
	if logger == nil {
		logger = log.Default()
	}
	return &RPC{
		endpoint: endpoint,
		contract: contract,
		hc:       &http.Client{Timeout: 5 * time.Second},
		logger:   logger,
	}
}

func (r *RPC) IsOwnerOf(ctx context.Context, address string, parcelID int64) (bool, error) {
	res, err := r.ethCall(ctx, selOwnerOf+tokenArg(parcelID))
	if err != nil {
		return false, fmt.Errorf("ownerOf: %w", err)
	}
	owner, err := decodeAddress(res)
	if err != nil {
		return false, fmt.Errorf("ownerOf: %w", err)
	}
	return strings.EqualFold(owner, strings.TrimPrefix(address, "0x")), nil
}

func (r *RPC) Mint(ctx context.Context, address string, parcelID int64, metadataRef string) (string, error) {
	// Placeholder for the real minting transaction: log intent, fabricate a
	// hash. A real implementation must submit a signed transaction from an
	// operator account.
	r.logger.Printf("mint parcel=%d to=%s meta=%q (mock)", parcelID, address, metadataRef)
	b := make([]byte, 32)
	for i := range b {
		b[i] = byte(rand.Intn(256))
	}
	return "0x" + hex.EncodeToString(b), nil
}

func (r *RPC) MetadataOf(ctx context.Context, parcelID int64) (string, error) {
	res, err := r.ethCall(ctx, selTokenURI+tokenArg(parcelID))
	if err != nil {
		return "", fmt.Errorf("tokenURI: %w", err)
	}
	return decodeString(res)
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	Result string `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (r *RPC) ethCall(ctx context.Context, data string) (string, error) {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "eth_call",
		Params: []any{
			map[string]string{"to": r.contract, "data": data},
			"latest",
		},
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := r.hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	var out rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("rpc error %d: %s", out.Error.Code, out.Error.Message)
	}
	return out.Result, nil
}

func tokenArg(parcelID int64) string {
	return fmt.Sprintf("%064x", parcelID)
}

// decodeAddress extracts the address from a 32-byte ABI word.
func decodeAddress(result string) (string, error) {
	h := strings.TrimPrefix(result, "0x")
	if len(h) != 64 {
		return "", fmt.Errorf("bad address word length %d", len(h))
	}
	return h[24:], nil
}

// decodeString decodes a single ABI-encoded dynamic string return value.
func decodeString(result string) (string, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(result, "0x"))
	if err != nil {
		return "", err
	}
	if len(raw) < 64 {
		if len(raw) == 0 {
			return "", nil
		}
		return "", fmt.Errorf("short string payload: %d bytes", len(raw))
	}
	offset := binary.BigEndian.Uint64(raw[24:32])
	if int(offset)+32 > len(raw) {
		return "", fmt.Errorf("string offset out of range")
	}
	length := binary.BigEndian.Uint64(raw[offset+24 : offset+32])
	start := int(offset) + 32
	end := start + int(length)
	if end > len(raw) {
		return "", fmt.Errorf("string length out of range")
	}
	return string(raw[start:end]), nil
}
