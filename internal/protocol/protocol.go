package protocol

import "encoding/json"

const Version = "1.0"

// Message types.
const (
	// Client -> server.
	TypeHello    = "HELLO"
	TypeMove     = "MOVE"
	TypeBuild    = "BUILD"
	TypeRemove   = "REMOVE"
	TypePurchase = "PURCHASE"
	TypeList     = "LIST_FOR_SALE"
	TypeCancel   = "CANCEL_SALE"

	// Server -> client.
	TypeWelcome        = "WELCOME"
	TypeInit           = "INIT"
	TypeSessionJoined  = "SESSION_JOINED"
	TypeSessionMoved   = "SESSION_MOVED"
	TypeSessionLeft    = "SESSION_LEFT"
	TypeVoxelBuilt     = "VOXEL_BUILT"
	TypeVoxelRemoved   = "VOXEL_REMOVED"
	TypeBuildDenied    = "BUILD_DENIED"
	TypeParcelUpdated  = "PARCEL_UPDATED"
	TypePurchaseResult = "PURCHASE_RESULT"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
