package algo

import (
	"testing"

	"github.com/orange-dot/mapf-grid/internal/core"
)

func TestReservationBlocksSameCellSameTick(t *testing.T) {
	rt := NewReservationTable()
	rt.Reserve(1, core.Position{0, 0}, []core.Position{{1, 0}, {2, 0}}, 0)

	if rt.Passable(2, core.Position{0, 0}, core.Position{1, 0}, 1) {
		t.Fatalf("expected cell reserved by agent 1 at t=1 to block agent 2")
	}
	if !rt.Passable(1, core.Position{0, 0}, core.Position{1, 0}, 1) {
		t.Fatalf("owner should still be able to pass through its own reservation")
	}
}

func TestReservationDetectsHeadOnSwap(t *testing.T) {
	rt := NewReservationTable()
	// Agent 1 goes (0,0)->(1,0) at tick 1.
	rt.Reserve(1, core.Position{0, 0}, []core.Position{{1, 0}}, 0)

	// Agent 2 tries to go the other way at the same tick: (1,0)->(0,0).
	if rt.Passable(2, core.Position{1, 0}, core.Position{0, 0}, 1) {
		t.Fatalf("expected head-on swap to be rejected")
	}
}

func TestPermanentReservationBlocksLaterArrival(t *testing.T) {
	rt := NewReservationTable()
	rt.Reserve(1, core.Position{0, 0}, []core.Position{{1, 0}}, 0) // parks permanently at (1,0) from tick 1

	if rt.Passable(2, core.Position{2, 0}, core.Position{1, 0}, 5) {
		t.Fatalf("expected permanent reservation to block a later arrival")
	}
}

func TestUnreserveRemovesOwnerEntries(t *testing.T) {
	rt := NewReservationTable()
	rt.Reserve(1, core.Position{0, 0}, []core.Position{{1, 0}}, 0)
	rt.Unreserve(1)

	if !rt.Passable(2, core.Position{2, 0}, core.Position{1, 0}, 5) {
		t.Fatalf("expected reservation to be gone after Unreserve")
	}
}
