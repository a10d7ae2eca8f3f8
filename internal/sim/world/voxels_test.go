package world

import "testing"

func TestVoxelKeyRoundTrip(t *testing.T) {
	k := VoxelKey{X: -3, Y: 0, Z: 42}
	if k.String() != "-3,0,42" {
		t.Fatalf("key string=%q", k.String())
	}
	parsed, err := ParseVoxelKey("-3, 0,42")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed != k {
		t.Fatalf("parsed=%v want %v", parsed, k)
	}
	if _, err := ParseVoxelKey("1,2"); err == nil {
		t.Fatalf("expected error for short key")
	}
	if _, err := ParseVoxelKey("a,b,c"); err == nil {
		t.Fatalf("expected error for non-integer key")
	}
}

func TestInsertVoxel_FirstWriterWins(t *testing.T) {
	w := newTestWorld(t)
	key := VoxelKey{X: 1, Y: 2, Z: 3}

	if !w.insertVoxel(key, &VoxelBlock{Key: key, Color: "#ff0000", Builder: "S1"}) {
		t.Fatalf("first insert must succeed")
	}
	if w.insertVoxel(key, &VoxelBlock{Key: key, Color: "#00ff00", Builder: "S2"}) {
		t.Fatalf("second insert at occupied key must be a no-op")
	}
	if got := w.voxels[key]; got.Color != "#ff0000" || got.Builder != "S1" {
		t.Fatalf("occupied block overwritten: %+v", got)
	}

	if !w.removeVoxel(key) {
		t.Fatalf("remove of existing block must succeed")
	}
	if w.removeVoxel(key) {
		t.Fatalf("remove of absent block must be a no-op")
	}
	if w.hasVoxelAt(key) {
		t.Fatalf("block still present after remove")
	}
}
