package world

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"
)

func TestRun_QueriesAndSerializedPurchases(t *testing.T) {
	w := New(WorldConfig{ID: "run"}, log.New(io.Discard, "", 0))
	w.Seed([]ParcelSpec{
		{Name: "Plaza", X: -20, Y: 0, Z: -20, Width: 40, Height: 20, Depth: 40},
		{Name: "Lot", X: 30, Y: 0, Z: 30, Width: 10, Height: 10, Depth: 10, Price: 1.5, ForSale: true},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	qctx, qcancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer qcancel()

	parcels, err := w.Parcels(qctx)
	if err != nil {
		t.Fatalf("parcels: %v", err)
	}
	if len(parcels) != 2 || parcels[0].Name != "Plaza" || parcels[1].ID != 2 {
		t.Fatalf("parcels=%+v", parcels)
	}

	if _, err := w.ParcelByID(qctx, 99); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}

	ok, err := w.CanBuildAt(qctx, "0xA", 0, 0, 0)
	if err != nil || ok {
		t.Fatalf("plaza is unclaimed, canBuild=%v err=%v", ok, err)
	}

	// Two purchases for the same lot: the serializer makes the outcome
	// deterministic regardless of submission goroutine.
	first, err := w.SubmitPurchase(qctx, 2, "0xC")
	if err != nil || !first.OK {
		t.Fatalf("first purchase: %+v err=%v", first, err)
	}
	second, err := w.SubmitPurchase(qctx, 2, "0xD")
	if err != nil {
		t.Fatalf("second purchase: %v", err)
	}
	if second.OK || second.Message != "Parcel is not for sale" {
		t.Fatalf("second purchase result=%+v", second)
	}

	owned, err := w.ParcelsByOwner(qctx, "0xc")
	if err != nil || len(owned) != 1 || owned[0].ID != 2 {
		t.Fatalf("byOwner=%+v err=%v", owned, err)
	}

	res, err := w.SubmitListing(qctx, 2, 9.5, true)
	if err != nil || !res.OK || !res.Parcel.ForSale {
		t.Fatalf("relist: %+v err=%v", res, err)
	}

	w.Stop()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("world loop did not stop")
	}

	if _, err := w.Parcels(qctx); !errors.Is(err, ErrStopped) {
		t.Fatalf("query after stop: %v", err)
	}
}
