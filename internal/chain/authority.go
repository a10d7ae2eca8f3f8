// Package chain is the optional ownership authority: an external oracle for
// on-chain-style parcel ownership. The world core functions with it entirely
// absent; every answer here is advisory.
package chain

import (
	"context"
	"errors"
)

// ErrUnavailable means the authority cannot answer; callers must degrade to
// local state, never fail the request.
var ErrUnavailable = errors.New("ownership authority unavailable")

type Receipt struct {
	TxHash   string `json:"tx_hash"`
	ParcelID int64  `json:"parcel_id"`
}

// Authority mirrors the land-registry contract surface.
type Authority interface {
	// IsOwnerOf reports whether address owns the parcel token. An error
	// means "unknown", not "no".
	IsOwnerOf(ctx context.Context, address string, parcelID int64) (bool, error)
	// Mint records a new land token and returns the transaction hash.
	Mint(ctx context.Context, address string, parcelID int64, metadataRef string) (string, error)
	// MetadataOf returns the token metadata URI, or "" when unset.
	MetadataOf(ctx context.Context, parcelID int64) (string, error)
}

// Noop is substituted when no authority is configured.
type Noop struct{}

func (Noop) IsOwnerOf(context.Context, string, int64) (bool, error) {
	return false, ErrUnavailable
}

func (Noop) Mint(context.Context, string, int64, string) (string, error) {
	return "", ErrUnavailable
}

func (Noop) MetadataOf(context.Context, int64) (string, error) {
	return "", ErrUnavailable
}
