package protocol

import "time"

// Vec3 is a continuous world position or rotation (degrees).
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Parcel is the wire form of an ownable land region. Bounds are a half-open
// box: a point is inside iff origin <= p < origin+size on every axis.
type Parcel struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	X         int       `json:"x"`
	Y         int       `json:"y"`
	Z         int       `json:"z"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	Depth     int       `json:"depth"`
	Owner     string    `json:"owner,omitempty"`
	Price     float64   `json:"price"`
	ForSale   bool      `json:"for_sale"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Session is the wire form of a connected participant.
type Session struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Wallet      string `json:"wallet,omitempty"`
	Position    Vec3   `json:"position"`
	Rotation    Vec3   `json:"rotation"`
}

// Voxel is the wire form of a placed block.
type Voxel struct {
	Pos     [3]int `json:"pos"`
	Color   string `json:"color"`
	Builder string `json:"builder"`
}

// HELLO (client -> server): first message on a fresh connection.
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	DisplayName     string `json:"display_name,omitempty"`
	Wallet          string `json:"wallet,omitempty"`
}

// WELCOME (server -> client): handshake reply carrying the session id.
type WelcomeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	SessionID       string `json:"session_id"`
}

// INIT (server -> client): full world snapshot, sent once after WELCOME.
type InitMsg struct {
	Type     string    `json:"type"`
	Sessions []Session `json:"sessions"`
	Parcels  []Parcel  `json:"parcels"`
	Voxels   []Voxel   `json:"voxels"`
}

// MOVE (client -> server).
type MoveMsg struct {
	Type     string `json:"type"`
	Position Vec3   `json:"position"`
	Rotation Vec3   `json:"rotation"`
}

// BUILD (client -> server): place a voxel at an integer grid coordinate.
type BuildMsg struct {
	Type  string `json:"type"`
	Pos   [3]int `json:"pos"`
	Color string `json:"color"`
}

// REMOVE (client -> server).
type RemoveMsg struct {
	Type string `json:"type"`
	Pos  [3]int `json:"pos"`
}

// PURCHASE (client -> server). BuyerAddress defaults to the session wallet.
type PurchaseMsg struct {
	Type         string `json:"type"`
	ParcelID     int64  `json:"parcel_id"`
	BuyerAddress string `json:"buyer_address,omitempty"`
}

// LIST_FOR_SALE / CANCEL_SALE (client -> server).
type ListingMsg struct {
	Type     string  `json:"type"`
	ParcelID int64   `json:"parcel_id"`
	Price    float64 `json:"price,omitempty"`
}

// SESSION_JOINED (server -> client, fan-out excluding the new session).
type SessionJoinedMsg struct {
	Type    string  `json:"type"`
	Session Session `json:"session"`
}

// SESSION_MOVED (server -> client, fan-out excluding the mover).
type SessionMovedMsg struct {
	Type     string `json:"type"`
	ID       string `json:"id"`
	Position Vec3   `json:"position"`
	Rotation Vec3   `json:"rotation"`
}

// SESSION_LEFT (server -> client, fan-out to everyone remaining).
type SessionLeftMsg struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// VOXEL_BUILT (server -> client, fan-out including the builder).
type VoxelBuiltMsg struct {
	Type  string `json:"type"`
	Voxel Voxel  `json:"voxel"`
}

// VOXEL_REMOVED (server -> client, fan-out including the remover).
type VoxelRemovedMsg struct {
	Type string `json:"type"`
	Pos  [3]int `json:"pos"`
}

// BUILD_DENIED (server -> client, targeted to the requester only).
type BuildDeniedMsg struct {
	Type   string `json:"type"`
	Pos    [3]int `json:"pos"`
	Reason string `json:"reason"`
}

// PARCEL_UPDATED (server -> client, fan-out including the actor).
type ParcelUpdatedMsg struct {
	Type   string `json:"type"`
	Parcel Parcel `json:"parcel"`
}

// PURCHASE_RESULT (server -> client, targeted to the requester only).
type PurchaseResultMsg struct {
	Type    string  `json:"type"`
	OK      bool    `json:"ok"`
	Code    string  `json:"code,omitempty"`
	Message string  `json:"message,omitempty"`
	Parcel  *Parcel `json:"parcel,omitempty"`
}
