// README: Taxi and fleet tests (assignment, advancing, repositioning).
package fleet

import (
	"testing"
	"time"

	"taxisim/internal/modules/network"
	"taxisim/internal/modules/order"
	"taxisim/internal/types"
)

// route builds a unit-step route starting at startTime.
func route(startTime int, nodes ...types.NodeID) network.Route {
	r := make(network.Route, len(nodes))
	for i, n := range nodes {
		r[i] = network.RoutePoint{Node: n, Time: startTime + i}
	}
	return r
}

func TestAssignOrderRequiresIdle(t *testing.T) {
	taxi := NewTaxi(1, 0)
	if taxi.AssignOrder(10, 2, nil) {
		t.Fatal("assign with empty route succeeded")
	}
	if !taxi.AssignOrder(10, 2, route(0, 0, 1, 2, 3)) {
		t.Fatal("assign on idle taxi failed")
	}
	if taxi.Status != StatusEnroutePickup {
		t.Fatalf("status = %s, want enroute_pickup", taxi.Status)
	}
	if taxi.AssignOrder(11, 3, route(0, 0, 1, 2)) {
		t.Fatal("assign on busy taxi succeeded")
	}
	if len(taxi.OrderHistory) != 1 || taxi.OrderHistory[0] != 10 {
		t.Fatalf("order history = %v, want [10]", taxi.OrderHistory)
	}
}

func TestAdvancePickupThenComplete(t *testing.T) {
	taxi := NewTaxi(1, 0)
	// pickup at node 2 (t=2), dropoff at node 5 (t=5); the pickup node
	// appears twice because the delivery leg departs where leg one ends
	combined := append(route(0, 0, 1, 2), route(2, 2, 3, 4, 5)...)
	if !taxi.AssignOrder(10, 2, combined) {
		t.Fatal("assign failed")
	}

	// partway: still heading to pickup
	if ev, ok := taxi.Advance(1); ok {
		t.Fatalf("unexpected event %+v before pickup", ev)
	}
	if taxi.Position != 1 || taxi.Status != StatusEnroutePickup {
		t.Fatalf("position=%d status=%s, want 1/enroute_pickup", taxi.Position, taxi.Status)
	}

	// reach the pickup node
	ev, ok := taxi.Advance(3)
	if !ok || ev.Status != order.StatusPickedUp || ev.Time != 2 || ev.OrderID != 10 {
		t.Fatalf("event = %+v/%v, want picked_up order 10 at t=2", ev, ok)
	}
	if taxi.Status != StatusOccupied {
		t.Fatalf("status = %s, want occupied", taxi.Status)
	}
	if *taxi.CurrentDestination != 5 {
		t.Fatalf("destination = %d, want dropoff node 5", *taxi.CurrentDestination)
	}

	// reach the dropoff node
	ev, ok = taxi.Advance(5)
	if !ok || ev.Status != order.StatusCompleted || ev.Time != 5 {
		t.Fatalf("event = %+v/%v, want completed at t=5", ev, ok)
	}
	if taxi.Status != StatusIdle || taxi.Position != 5 {
		t.Fatalf("status=%s position=%d, want idle at 5", taxi.Status, taxi.Position)
	}
	if taxi.CurrentOrder != nil || taxi.CurrentRoute != nil {
		t.Fatal("route state not cleared after completion")
	}
}

func TestAdvanceShortTripEmitsOnlyCompleted(t *testing.T) {
	taxi := NewTaxi(1, 0)
	combined := append(route(0, 0, 1), route(1, 1, 2)...)
	if !taxi.AssignOrder(10, 1, combined) {
		t.Fatal("assign failed")
	}
	// the whole trip fits in one advance: only the terminal event comes out
	ev, ok := taxi.Advance(10)
	if !ok || ev.Status != order.StatusCompleted || ev.Time != 2 {
		t.Fatalf("event = %+v/%v, want single completed at t=2", ev, ok)
	}
	if taxi.Status != StatusIdle || taxi.Position != 2 {
		t.Fatalf("status=%s position=%d, want idle at 2", taxi.Status, taxi.Position)
	}
}

func TestAdvanceIdempotent(t *testing.T) {
	taxi := NewTaxi(1, 0)
	combined := append(route(0, 0, 1, 2), route(2, 2, 3)...)
	taxi.AssignOrder(10, 2, combined)
	if _, ok := taxi.Advance(10); !ok {
		t.Fatal("first advance produced no event")
	}
	if ev, ok := taxi.Advance(10); ok {
		t.Fatalf("second advance at same time produced event %+v", ev)
	}
}

func TestRepositioning(t *testing.T) {
	taxi := NewTaxi(1, 0)
	if !taxi.StartRepositioning(3, route(0, 0, 1, 2, 3)) {
		t.Fatal("start repositioning failed")
	}
	if taxi.Status != StatusRepositioning {
		t.Fatalf("status = %s, want repositioning", taxi.Status)
	}
	if ev, ok := taxi.Advance(2); ok {
		t.Fatalf("repositioning advance produced order event %+v", ev)
	}
	if taxi.Position != 2 {
		t.Fatalf("position = %d, want 2", taxi.Position)
	}
	taxi.Advance(3)
	if taxi.Status != StatusIdle || taxi.Position != 3 {
		t.Fatalf("status=%s position=%d, want idle at 3", taxi.Status, taxi.Position)
	}
	if len(taxi.RouteHistory) != 4 {
		t.Fatalf("route history len = %d, want 4", len(taxi.RouteHistory))
	}
}

func TestFleetIdleAndAdvanceOrder(t *testing.T) {
	f := New([]types.NodeID{0, 5, 9})
	if f.Len() != 3 {
		t.Fatalf("fleet len = %d, want 3", f.Len())
	}
	idle := f.IdleTaxis()
	if len(idle) != 3 || idle[0].ID != 1 || idle[2].ID != 3 {
		t.Fatalf("idle taxis = %v, want ids 1..3 ascending", idle)
	}

	if !f.Assign(2, 10, 6, route(0, 5, 6, 7)) {
		t.Fatal("fleet assign failed")
	}
	if f.Assign(99, 11, 6, route(0, 5, 6)) {
		t.Fatal("assign to unknown taxi succeeded")
	}
	idle = f.IdleTaxis()
	if len(idle) != 2 {
		t.Fatalf("idle after assign = %d, want 2", len(idle))
	}

	events := f.AdvanceAll(10)
	if len(events) != 1 || events[0].OrderID != 10 || events[0].Status != order.StatusCompleted {
		t.Fatalf("events = %+v, want one completed for order 10", events)
	}
}

func TestFleetRepositionSkipsBusy(t *testing.T) {
	f := New([]types.NodeID{0, 0})
	f.Assign(1, 10, 1, route(0, 0, 1, 2))
	f.Reposition([]Move{
		{TaxiID: 1, Destination: 3, Route: route(0, 0, 3)},
		{TaxiID: 2, Destination: 3, Route: route(0, 0, 3)},
		{TaxiID: 9, Destination: 3, Route: route(0, 0, 3)},
	})
	t1, _ := f.Get(1)
	t2, _ := f.Get(2)
	if t1.Status != StatusEnroutePickup {
		t.Fatalf("busy taxi status = %s, want enroute_pickup unchanged", t1.Status)
	}
	if t2.Status != StatusRepositioning {
		t.Fatalf("idle taxi status = %s, want repositioning", t2.Status)
	}
}

func TestExportHistoryShape(t *testing.T) {
	f := New([]types.NodeID{0, 5})
	f.Assign(1, 10, 1, route(0, 0, 1, 2))

	generated := timeFixed(t)
	exp := f.ExportHistory(generated)
	if exp.Metadata.TotalTaxis != 2 {
		t.Fatalf("total_taxis = %d, want 2", exp.Metadata.TotalTaxis)
	}
	if exp.Metadata.GeneratedTime != "2024-01-02T03:04:05Z" {
		t.Fatalf("generated_time = %s", exp.Metadata.GeneratedTime)
	}
	h1, ok := exp.FleetData["1"]
	if !ok {
		t.Fatal("fleet_data missing taxi 1")
	}
	if len(h1.OrderHistory) != 1 || h1.OrderHistory[0].OrderID != 10 {
		t.Fatalf("order history = %v, want [{10}]", h1.OrderHistory)
	}
	h2 := exp.FleetData["2"]
	if h2.OrderHistory == nil || h2.RouteHistory == nil {
		t.Fatal("empty histories must export as [] not null")
	}
}

func timeFixed(t *testing.T) time.Time {
	t.Helper()
	return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
}
