package world

import (
	"fmt"
	"strconv"
	"strings"

	"voxelverse.gg/internal/protocol"
)

// VoxelKey is an integer grid coordinate.
type VoxelKey struct {
	X, Y, Z int
}

func (k VoxelKey) String() string {
	return fmt.Sprintf("%d,%d,%d", k.X, k.Y, k.Z)
}

func (k VoxelKey) Array() [3]int { return [3]int{k.X, k.Y, k.Z} }

func KeyFromArray(a [3]int) VoxelKey { return VoxelKey{X: a[0], Y: a[1], Z: a[2]} }

// ParseVoxelKey parses the "x,y,z" composite form.
func ParseVoxelKey(s string) (VoxelKey, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return VoxelKey{}, fmt.Errorf("voxel key %q: want x,y,z", s)
	}
	var vals [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return VoxelKey{}, fmt.Errorf("voxel key %q: %w", s, err)
		}
		vals[i] = n
	}
	return KeyFromArray(vals), nil
}

// VoxelBlock is a unit cube placed at a grid coordinate. At most one block
// exists per key.
type VoxelBlock struct {
	Key     VoxelKey
	Color   string
	Builder string // session id of the builder
}

func (b *VoxelBlock) wire() protocol.Voxel {
	return protocol.Voxel{Pos: b.Key.Array(), Color: b.Color, Builder: b.Builder}
}

func (w *World) hasVoxelAt(key VoxelKey) bool {
	_, ok := w.voxels[key]
	return ok
}

// insertVoxel is first-writer-wins: a no-op when the key is occupied.
func (w *World) insertVoxel(key VoxelKey, block *VoxelBlock) bool {
	if _, ok := w.voxels[key]; ok {
		return false
	}
	w.voxels[key] = block
	w.voxelGauge.Store(int64(len(w.voxels)))
	return true
}

func (w *World) removeVoxel(key VoxelKey) bool {
	if _, ok := w.voxels[key]; !ok {
		return false
	}
	delete(w.voxels, key)
	w.voxelGauge.Store(int64(len(w.voxels)))
	return true
}
