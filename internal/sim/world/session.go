package world

import (
	"fmt"
	"sort"

	"voxelverse.gg/internal/protocol"
)

// Session is one connected participant's live, ephemeral presence state.
type Session struct {
	ID          string
	Num         uint64
	DisplayName string
	Wallet      string // linked external identity, may be empty
	Position    protocol.Vec3
	Rotation    protocol.Vec3
}

func (s *Session) wire() protocol.Session {
	return protocol.Session{
		ID:          s.ID,
		DisplayName: s.DisplayName,
		Wallet:      s.Wallet,
		Position:    s.Position,
		Rotation:    s.Rotation,
	}
}

func (w *World) handleJoin(req JoinRequest) {
	w.nextSessionNum++
	n := w.nextSessionNum
	id := fmt.Sprintf("S%d", n)
	name := req.DisplayName
	if name == "" {
		name = fmt.Sprintf("Guest_%d", n)
	}

	s := &Session{ID: id, Num: n, DisplayName: name, Wallet: req.Wallet}
	w.sessions[id] = s
	w.clients[id] = &clientState{Out: req.Out}
	w.sessionGauge.Store(int64(len(w.sessions)))

	if req.Resp != nil {
		req.Resp <- JoinResponse{
			Welcome: protocol.WelcomeMsg{
				Type:            protocol.TypeWelcome,
				ProtocolVersion: protocol.Version,
				SessionID:       id,
			},
			Init: w.snapshot(),
		}
	}

	w.broadcast(protocol.SessionJoinedMsg{
		Type:    protocol.TypeSessionJoined,
		Session: s.wire(),
	}, id)

	w.audit(AuditEntry{Actor: id, Action: "JOIN", Detail: name})
}

func (w *World) handleLeave(sessionID string) {
	if _, ok := w.sessions[sessionID]; !ok {
		return
	}
	delete(w.sessions, sessionID)
	delete(w.clients, sessionID)
	w.sessionGauge.Store(int64(len(w.sessions)))

	w.broadcast(protocol.SessionLeftMsg{
		Type: protocol.TypeSessionLeft,
		ID:   sessionID,
	}, "")

	w.audit(AuditEntry{Actor: sessionID, Action: "LEAVE"})
}

// snapshot builds the full INIT payload: all sessions (including the new
// one), all parcels, all voxel blocks, in deterministic order.
func (w *World) snapshot() protocol.InitMsg {
	sessions := make([]protocol.Session, 0, len(w.sessions))
	for _, s := range w.sortedSessions() {
		sessions = append(sessions, s.wire())
	}

	parcels := make([]protocol.Parcel, 0, len(w.parcelOrder))
	for _, id := range w.parcelOrder {
		parcels = append(parcels, w.parcels[id].wire())
	}

	voxels := make([]protocol.Voxel, 0, len(w.voxels))
	for _, b := range w.voxels {
		voxels = append(voxels, b.wire())
	}
	sort.Slice(voxels, func(i, j int) bool {
		a, b := voxels[i].Pos, voxels[j].Pos
		if a[0] != b[0] {
			return a[0] < b[0]
		}
		if a[1] != b[1] {
			return a[1] < b[1]
		}
		return a[2] < b[2]
	})

	return protocol.InitMsg{
		Type:     protocol.TypeInit,
		Sessions: sessions,
		Parcels:  parcels,
		Voxels:   voxels,
	}
}

func (w *World) sortedSessions() []*Session {
	out := make([]*Session, 0, len(w.sessions))
	for _, s := range w.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Num < out[j].Num })
	return out
}
