// README: Order lifecycle and book tests (transitions, timeouts, export).
package order

import (
	"testing"

	"taxisim/internal/types"
)

// TestCanTransition verifies the state machine transition table.
func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		// happy-path forward transitions
		{StatusWaiting, StatusAssigned, true},
		{StatusAssigned, StatusPickedUp, true},
		{StatusPickedUp, StatusCompleted, true},
		// waiting-timeout cancellation
		{StatusWaiting, StatusCancelled, true},
		// invalid: terminal states have no outgoing transitions
		{StatusCompleted, StatusWaiting, false},
		{StatusCancelled, StatusWaiting, false},
		{StatusCompleted, StatusAssigned, false},
		// invalid: skipping states
		{StatusWaiting, StatusPickedUp, false},
		{StatusWaiting, StatusCompleted, false},
		{StatusAssigned, StatusCompleted, false},
		// invalid: cancel after assignment
		{StatusAssigned, StatusCancelled, false},
		{StatusPickedUp, StatusCancelled, false},
	}
	for _, tc := range cases {
		got := CanTransition(tc.from, tc.to)
		if got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestOrderLifecycleGuards(t *testing.T) {
	o := New(1, 2, 3, 10)
	if o.Status != StatusWaiting {
		t.Fatalf("new order status = %s, want waiting", o.Status)
	}
	if !o.Assign(7, 20) {
		t.Fatal("assign on waiting order failed")
	}
	if o.Assign(8, 21) {
		t.Fatal("second assign succeeded, want refusal")
	}
	if *o.AssignedTaxi != 7 || *o.AssignedTime != 20 {
		t.Fatalf("assigned_taxi=%d assigned_time=%d, want 7/20", *o.AssignedTaxi, *o.AssignedTime)
	}
	if o.Cancel(25) {
		t.Fatal("cancel on assigned order succeeded, want refusal")
	}
	if !o.Pickup(30) {
		t.Fatal("pickup on assigned order failed")
	}
	if !o.Complete(40) {
		t.Fatal("complete on picked-up order failed")
	}
	if o.Complete(50) {
		t.Fatal("second complete succeeded, want refusal")
	}
	if *o.PickupTime != 30 || *o.DropoffTime != 40 {
		t.Fatalf("pickup_time=%d dropoff_time=%d, want 30/40", *o.PickupTime, *o.DropoffTime)
	}
}

func TestNewBookFiltersEarlyOrders(t *testing.T) {
	records := []Record{
		{ID: 1, PickupNode: 0, DropoffNode: 5, RequestTime: 99},  // before start
		{ID: 2, PickupNode: 0, DropoffNode: 5, RequestTime: 100}, // exactly at start
		{ID: 3, PickupNode: 0, DropoffNode: 5, RequestTime: 101},
	}
	b := NewBook(records, 100, 0)
	if b.Len() != 2 {
		t.Fatalf("book len = %d, want 2", b.Len())
	}
	if b.Get(1) != nil {
		t.Fatal("order with ot < start_time was not discarded")
	}
	if b.Get(2) == nil {
		t.Fatal("order with ot = start_time was discarded")
	}
}

func TestWaitingOrdersTimeoutBoundary(t *testing.T) {
	records := []Record{{ID: 1, PickupNode: 0, DropoffNode: 5, RequestTime: 0}}
	b := NewBook(records, 0, 5)

	// waited exactly the threshold: still waiting
	waiting := b.WaitingOrders(5)
	if len(waiting) != 1 {
		t.Fatalf("at t=threshold got %d waiting orders, want 1", len(waiting))
	}
	if b.Get(1).Status != StatusWaiting {
		t.Fatalf("status = %s, want waiting", b.Get(1).Status)
	}

	// waited strictly longer: cancelled and excluded
	waiting = b.WaitingOrders(6)
	if len(waiting) != 0 {
		t.Fatalf("past threshold got %d waiting orders, want 0", len(waiting))
	}
	o := b.Get(1)
	if o.Status != StatusCancelled {
		t.Fatalf("status = %s, want cancelled", o.Status)
	}
	if o.CancelTime == nil || *o.CancelTime != 6 {
		t.Fatalf("cancel_time = %v, want 6", o.CancelTime)
	}
}

func TestWaitingOrdersExcludesFutureRequests(t *testing.T) {
	records := []Record{
		{ID: 1, PickupNode: 0, DropoffNode: 5, RequestTime: 10},
		{ID: 2, PickupNode: 1, DropoffNode: 6, RequestTime: 50},
	}
	b := NewBook(records, 0, 300)
	waiting := b.WaitingOrders(20)
	if len(waiting) != 1 || waiting[0].ID != 1 {
		t.Fatalf("waiting at t=20 = %v, want just order 1", waiting)
	}
}

func TestApplyTransitions(t *testing.T) {
	records := []Record{{ID: 1, PickupNode: 0, DropoffNode: 5, RequestTime: 0}}
	b := NewBook(records, 0, 300)
	if !b.Assign(1, 3, 10) {
		t.Fatal("assign failed")
	}
	b.ApplyTransitions([]Transition{
		{OrderID: 1, Status: StatusPickedUp, Time: 15},
		{OrderID: 1, Status: StatusCompleted, Time: 30},
		{OrderID: 99, Status: StatusCompleted, Time: 30}, // unknown id ignored
	})
	o := b.Get(1)
	if o.Status != StatusCompleted {
		t.Fatalf("status = %s, want completed", o.Status)
	}
	if *o.PickupTime != 15 || *o.DropoffTime != 30 {
		t.Fatalf("pickup_time=%v dropoff_time=%v, want 15/30", *o.PickupTime, *o.DropoffTime)
	}
}

func TestExportRoundTrip(t *testing.T) {
	records := []Record{
		{ID: 1, PickupNode: 0, DropoffNode: 5, RequestTime: 0},
		{ID: 2, PickupNode: 1, DropoffNode: 6, RequestTime: 20},
	}
	b := NewBook(records, 0, 300)
	b.Assign(1, 3, 10)
	b.ApplyTransitions([]Transition{
		{OrderID: 1, Status: StatusPickedUp, Time: 15},
		{OrderID: 1, Status: StatusCompleted, Time: 30},
	})

	exported := b.Export(0, 100)
	if len(exported) != 2 {
		t.Fatalf("exported %d orders, want 2", len(exported))
	}
	rec, ok := exported["1"]
	if !ok {
		t.Fatal("export missing key \"1\"")
	}
	if rec.AssignedTaxi == nil || *rec.AssignedTaxi != types.TaxiID(3) {
		t.Fatalf("assigned_taxi = %v, want 3", rec.AssignedTaxi)
	}
	if exported["2"].AssignedTime != nil {
		t.Fatal("unassigned order has non-null assigned_time")
	}

	reloaded := NewBookFromExport(exported, 300)
	if reloaded.Len() != b.Len() {
		t.Fatalf("reloaded len = %d, want %d", reloaded.Len(), b.Len())
	}
	got := reloaded.Get(1)
	if got.Status != StatusCompleted || *got.PickupTime != 15 || *got.DropoffTime != 30 {
		t.Fatalf("reloaded order 1 = %+v, mismatch with original", got)
	}
}

func TestExportWindowFiltersRequestTime(t *testing.T) {
	records := []Record{
		{ID: 1, PickupNode: 0, DropoffNode: 5, RequestTime: 10},
		{ID: 2, PickupNode: 1, DropoffNode: 6, RequestTime: 200},
	}
	b := NewBook(records, 0, 300)
	exported := b.Export(0, 100)
	if len(exported) != 1 {
		t.Fatalf("exported %d orders, want 1", len(exported))
	}
	if _, ok := exported["2"]; ok {
		t.Fatal("order outside export window was exported")
	}
}
