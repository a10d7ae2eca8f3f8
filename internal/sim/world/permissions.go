package world

import "strings"

// canBuildAt is the pure spatial permission decision:
// no containing parcel -> deny; unclaimed parcel -> deny; otherwise allow
// iff identity matches the owner case-insensitively.
//
// The guest bypass is deliberately not here; it is a gateway concern
// (see applyBuild).
func (w *World) canBuildAt(identity string, x, y, z int) bool {
	p := w.parcelAt(x, y, z)
	if p == nil || p.Owner == "" {
		return false
	}
	return strings.EqualFold(p.Owner, identity)
}
