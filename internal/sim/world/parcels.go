package world

import (
	"fmt"
	"strings"
	"time"

	"voxelverse.gg/internal/protocol"
)

// Parcel is an ownable axis-aligned box region. Bounds are half-open:
// a point is inside iff origin <= p < origin+size on every axis.
type Parcel struct {
	ID        int64
	Name      string
	X, Y, Z   int
	Width     int
	Height    int
	Depth     int
	Owner     string // empty = unclaimed
	Price     float64
	ForSale   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (p *Parcel) Contains(x, y, z int) bool {
	return x >= p.X && x < p.X+p.Width &&
		y >= p.Y && y < p.Y+p.Height &&
		z >= p.Z && z < p.Z+p.Depth
}

func (p *Parcel) wire() protocol.Parcel {
	return protocol.Parcel{
		ID:        p.ID,
		Name:      p.Name,
		X:         p.X,
		Y:         p.Y,
		Z:         p.Z,
		Width:     p.Width,
		Height:    p.Height,
		Depth:     p.Depth,
		Owner:     p.Owner,
		Price:     p.Price,
		ForSale:   p.ForSale,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

// ParcelSpec describes a parcel to create. Zero values take defaults
// (no owner, price 0, not for sale).
type ParcelSpec struct {
	Name    string
	X, Y, Z int
	Width   int
	Height  int
	Depth   int
	Owner   string
	Price   float64
	ForSale bool
}

// ParcelPatch is a partial update. Nil fields are left untouched. The id and
// creation timestamp are not patchable by construction.
type ParcelPatch struct {
	Name    *string
	Owner   *string
	Price   *float64
	ForSale *bool
}

// Seed creates the initial parcel set. Call before Run; parcels are never
// created after bootstrap.
func (w *World) Seed(specs []ParcelSpec) {
	for _, s := range specs {
		w.createParcel(s)
	}
}

func (w *World) createParcel(spec ParcelSpec) *Parcel {
	w.nextParcel++
	id := w.nextParcel
	name := spec.Name
	if name == "" {
		name = fmt.Sprintf("Parcel %d", id)
	}
	now := time.Now().UTC()
	p := &Parcel{
		ID:        id,
		Name:      name,
		X:         spec.X,
		Y:         spec.Y,
		Z:         spec.Z,
		Width:     spec.Width,
		Height:    spec.Height,
		Depth:     spec.Depth,
		Owner:     spec.Owner,
		Price:     spec.Price,
		ForSale:   spec.ForSale,
		CreatedAt: now,
		UpdatedAt: now,
	}
	w.parcels[id] = p
	w.parcelOrder = append(w.parcelOrder, id)
	w.parcelGauge.Store(int64(len(w.parcels)))
	return p
}

func (w *World) parcelsByOwner(address string) []protocol.Parcel {
	out := []protocol.Parcel{}
	for _, id := range w.parcelOrder {
		p := w.parcels[id]
		if p.Owner != "" && strings.EqualFold(p.Owner, address) {
			out = append(out, p.wire())
		}
	}
	return out
}

func (w *World) updateParcel(id int64, patch ParcelPatch) (*Parcel, error) {
	p, ok := w.parcels[id]
	if !ok {
		return nil, fmt.Errorf("parcel %d: %w", id, ErrNotFound)
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Owner != nil {
		p.Owner = *patch.Owner
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.ForSale != nil {
		p.ForSale = *patch.ForSale
	}
	p.UpdatedAt = time.Now().UTC()
	return p, nil
}

func (w *World) transferParcel(id int64, newOwner string) (*Parcel, error) {
	p, ok := w.parcels[id]
	if !ok {
		return nil, fmt.Errorf("parcel %d: %w", id, ErrNotFound)
	}
	p.Owner = newOwner
	p.ForSale = false
	p.UpdatedAt = time.Now().UTC()
	return p, nil
}

// parcelAt returns the first parcel in creation order containing the point.
// Overlapping parcels are not disallowed anywhere; first-match-wins is a
// documented ambiguity inherited from the reference behavior, not a policy.
func (w *World) parcelAt(x, y, z int) *Parcel {
	for _, id := range w.parcelOrder {
		if p := w.parcels[id]; p.Contains(x, y, z) {
			return p
		}
	}
	return nil
}
