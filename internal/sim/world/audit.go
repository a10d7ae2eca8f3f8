package world

import (
	"time"

	"voxelverse.gg/internal/protocol"
)

type AuditLogger interface {
	WriteAudit(entry AuditEntry) error
}

// AuditEntry records one committed world mutation. Parcel is set for
// transfer/listing actions so read-model sinks can stay in sync.
type AuditEntry struct {
	UnixMs   int64            `json:"unix_ms"`
	Actor    string           `json:"actor"`
	Action   string           `json:"action"` // e.g. "BUILD"
	Pos      *[3]int          `json:"pos,omitempty"`
	ParcelID int64            `json:"parcel_id,omitempty"`
	Detail   string           `json:"detail,omitempty"`
	Parcel   *protocol.Parcel `json:"parcel,omitempty"`
}

func (w *World) audit(e AuditEntry) {
	if w.auditLogger == nil {
		return
	}
	if e.UnixMs == 0 {
		e.UnixMs = time.Now().UnixMilli()
	}
	if err := w.auditLogger.WriteAudit(e); err != nil {
		w.logger.Printf("audit write: %v", err)
	}
}
