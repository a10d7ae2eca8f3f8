package world

import (
	"context"
	"fmt"

	"voxelverse.gg/internal/protocol"
)

// Envelope is one transport-agnostic mutation request. Exactly one of the
// request fields is set. SessionID is empty for requests that did not
// originate from a live session (REST callers).
type Envelope struct {
	SessionID string

	Move     *MoveReq
	Build    *BuildReq
	Remove   *RemoveReq
	Purchase *PurchaseReq
	Listing  *ListingReq
}

type MoveReq struct {
	Position protocol.Vec3
	Rotation protocol.Vec3
}

type BuildReq struct {
	Pos   [3]int
	Color string
}

type RemoveReq struct {
	Pos [3]int
}

type PurchaseReq struct {
	ParcelID     int64
	BuyerAddress string
	Resp         chan PurchaseResult // optional, buffered by the caller
}

type PurchaseResult struct {
	OK      bool
	Code    string
	Message string
	Parcel  *protocol.Parcel
}

type ListingReq struct {
	ParcelID int64
	Price    float64
	ForSale  bool
	Resp     chan ListingResult // optional, buffered by the caller
}

type ListingResult struct {
	OK      bool
	Code    string
	Message string
	Parcel  *protocol.Parcel
}

// SubmitPurchase queues a purchase through the same serialized path as
// session-originated requests and waits for its result.
func (w *World) SubmitPurchase(ctx context.Context, parcelID int64, buyer string) (PurchaseResult, error) {
	resp := make(chan PurchaseResult, 1)
	env := Envelope{Purchase: &PurchaseReq{ParcelID: parcelID, BuyerAddress: buyer, Resp: resp}}
	if err := w.submit(ctx, env); err != nil {
		return PurchaseResult{}, err
	}
	select {
	case r := <-resp:
		return r, nil
	case <-w.stop:
		return PurchaseResult{}, ErrStopped
	case <-ctx.Done():
		return PurchaseResult{}, ctx.Err()
	}
}

// SubmitListing queues a for-sale toggle and waits for its result.
func (w *World) SubmitListing(ctx context.Context, parcelID int64, price float64, forSale bool) (ListingResult, error) {
	resp := make(chan ListingResult, 1)
	env := Envelope{Listing: &ListingReq{ParcelID: parcelID, Price: price, ForSale: forSale, Resp: resp}}
	if err := w.submit(ctx, env); err != nil {
		return ListingResult{}, err
	}
	select {
	case r := <-resp:
		return r, nil
	case <-w.stop:
		return ListingResult{}, ErrStopped
	case <-ctx.Done():
		return ListingResult{}, ctx.Err()
	}
}

func (w *World) submit(ctx context.Context, env Envelope) error {
	select {
	case w.inbox <- env:
		return nil
	case <-w.stop:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// apply is the mutation gateway. It runs on the world goroutine; each
// envelope is processed to completion before the next is started.
func (w *World) apply(env Envelope) {
	switch {
	case env.Move != nil:
		w.applyMove(env.SessionID, env.Move)
	case env.Build != nil:
		w.applyBuild(env.SessionID, env.Build)
	case env.Remove != nil:
		w.applyRemove(env.SessionID, env.Remove)
	case env.Purchase != nil:
		w.applyPurchase(env.SessionID, env.Purchase)
	case env.Listing != nil:
		w.applyListing(env.SessionID, env.Listing)
	}
}

func (w *World) applyMove(sessionID string, req *MoveReq) {
	s, ok := w.sessions[sessionID]
	if !ok {
		return
	}
	s.Position = req.Position
	s.Rotation = req.Rotation

	w.broadcast(protocol.SessionMovedMsg{
		Type:     protocol.TypeSessionMoved,
		ID:       sessionID,
		Position: req.Position,
		Rotation: req.Rotation,
	}, sessionID)
}

// applyBuild places a voxel when the requester may build at the target.
//
// A session with no linked wallet acts as the sentinel "guest" identity and
// is allowed to build anywhere; this bypass is the reference demo behavior,
// kept intentionally and kept out of canBuildAt.
func (w *World) applyBuild(sessionID string, req *BuildReq) {
	s, ok := w.sessions[sessionID]
	if !ok {
		return
	}
	identity := s.Wallet
	if identity == "" {
		identity = "guest"
	}

	key := KeyFromArray(req.Pos)
	allowed := identity == "guest" || w.canBuildAt(identity, key.X, key.Y, key.Z)
	if !allowed {
		w.denials.Add(1)
		w.sendTo(sessionID, protocol.BuildDeniedMsg{
			Type:   protocol.TypeBuildDenied,
			Pos:    req.Pos,
			Reason: "You do not own this land",
		})
		return
	}

	block := &VoxelBlock{Key: key, Color: req.Color, Builder: sessionID}
	if !w.insertVoxel(key, block) {
		// Occupied: first-writer-wins, silent idempotent skip.
		return
	}
	w.mutations.Add(1)

	w.broadcast(protocol.VoxelBuiltMsg{
		Type:  protocol.TypeVoxelBuilt,
		Voxel: block.wire(),
	}, "")

	pos := key.Array()
	w.audit(AuditEntry{Actor: sessionID, Action: "BUILD", Pos: &pos, Detail: req.Color})
}

// applyRemove deletes the voxel at the key if present. No ownership or
// builder check is made: any session can remove any block. That gap is the
// reference behavior, kept as-is rather than fixed implicitly.
func (w *World) applyRemove(sessionID string, req *RemoveReq) {
	key := KeyFromArray(req.Pos)
	if !w.removeVoxel(key) {
		return
	}
	w.mutations.Add(1)

	w.broadcast(protocol.VoxelRemovedMsg{
		Type: protocol.TypeVoxelRemoved,
		Pos:  req.Pos,
	}, "")

	pos := key.Array()
	w.audit(AuditEntry{Actor: sessionID, Action: "REMOVE", Pos: &pos})
}

func (w *World) applyPurchase(sessionID string, req *PurchaseReq) {
	buyer := req.BuyerAddress
	if buyer == "" {
		if s, ok := w.sessions[sessionID]; ok {
			buyer = s.Wallet
		}
	}

	fail := func(code, msg string) {
		w.replyPurchase(sessionID, req, PurchaseResult{OK: false, Code: code, Message: msg})
	}

	if buyer == "" {
		fail(protocol.ErrValidation, "Buyer address is required")
		return
	}
	p, ok := w.parcels[req.ParcelID]
	if !ok {
		fail(protocol.ErrNotFound, "Parcel not found")
		return
	}
	if !p.ForSale {
		fail(protocol.ErrInvalidState, "Parcel is not for sale")
		return
	}

	updated, err := w.transferParcel(req.ParcelID, buyer)
	if err != nil {
		// Unreachable after the existence check above; keep the boundary
		// non-fatal anyway.
		fail(protocol.ErrInternal, err.Error())
		return
	}
	w.mutations.Add(1)

	wire := updated.wire()
	w.broadcast(protocol.ParcelUpdatedMsg{
		Type:   protocol.TypeParcelUpdated,
		Parcel: wire,
	}, "")

	w.audit(AuditEntry{
		Actor:    actorOrBuyer(sessionID, buyer),
		Action:   "PURCHASE",
		ParcelID: updated.ID,
		Detail:   buyer,
		Parcel:   &wire,
	})

	w.replyPurchase(sessionID, req, PurchaseResult{
		OK:      true,
		Message: fmt.Sprintf("Successfully purchased parcel #%d", updated.ID),
		Parcel:  &wire,
	})

	// Advisory mint against the ownership oracle. Never blocks the
	// serializer: bounded timeout, failures logged and degraded.
	go w.mintReceipt(buyer, updated.ID, updated.Name)
}

func (w *World) applyListing(sessionID string, req *ListingReq) {
	patch := ParcelPatch{ForSale: &req.ForSale}
	if req.ForSale {
		patch.Price = &req.Price
	}
	updated, err := w.updateParcel(req.ParcelID, patch)
	if err != nil {
		w.replyListing(req, ListingResult{
			OK: false, Code: protocol.ErrNotFound, Message: "Parcel not found",
		})
		return
	}
	w.mutations.Add(1)

	wire := updated.wire()
	w.broadcast(protocol.ParcelUpdatedMsg{
		Type:   protocol.TypeParcelUpdated,
		Parcel: wire,
	}, "")

	action := "LIST_FOR_SALE"
	if !req.ForSale {
		action = "CANCEL_SALE"
	}
	w.audit(AuditEntry{Actor: sessionID, Action: action, ParcelID: updated.ID, Parcel: &wire})

	w.replyListing(req, ListingResult{OK: true, Parcel: &wire})
}

func (w *World) replyPurchase(sessionID string, req *PurchaseReq, res PurchaseResult) {
	if sessionID != "" {
		w.sendTo(sessionID, protocol.PurchaseResultMsg{
			Type:    protocol.TypePurchaseResult,
			OK:      res.OK,
			Code:    res.Code,
			Message: res.Message,
			Parcel:  res.Parcel,
		})
	}
	if req.Resp != nil {
		req.Resp <- res
	}
}

// Session callers already observe listing changes via the PARCEL_UPDATED
// fan-out; only channel waiters get a direct result.
func (w *World) replyListing(req *ListingReq, res ListingResult) {
	if req.Resp != nil {
		req.Resp <- res
	}
}

func (w *World) mintReceipt(buyer string, parcelID int64, name string) {
	ctx, cancel := w.oracleCtx()
	defer cancel()
	tx, err := w.oracle.Mint(ctx, buyer, parcelID, name)
	if err != nil {
		w.logger.Printf("oracle mint parcel=%d: degraded: %v", parcelID, err)
		return
	}
	w.logger.Printf("oracle mint parcel=%d tx=%s", parcelID, tx)
}

func actorOrBuyer(sessionID, buyer string) string {
	if sessionID != "" {
		return sessionID
	}
	return buyer
}
