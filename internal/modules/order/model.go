// README: Order aggregate, lifecycle statuses, and monotone transitions.
package order

import "taxisim/internal/types"

type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusAssigned  Status = "assigned"
	StatusPickedUp  Status = "picked_up"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// AllowedTransitions represents the order state flow as code. Completed and
// cancelled are terminal.
var AllowedTransitions = map[Status][]Status{
	StatusWaiting:  {StatusAssigned, StatusCancelled},
	StatusAssigned: {StatusPickedUp},
	StatusPickedUp: {StatusCompleted},
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

// Order is a passenger request. Vehicles are referenced by id only.
type Order struct {
	ID           types.OrderID
	PickupNode   types.NodeID
	DropoffNode  types.NodeID
	RequestTime  int
	AssignedTaxi *types.TaxiID
	AssignedTime *int
	PickupTime   *int
	DropoffTime  *int
	CancelTime   *int
	Status       Status
}

// New creates a waiting order.
func New(id types.OrderID, pickup, dropoff types.NodeID, requestTime int) *Order {
	return &Order{
		ID:          id,
		PickupNode:  pickup,
		DropoffNode: dropoff,
		RequestTime: requestTime,
		Status:      StatusWaiting,
	}
}

// Assign moves a waiting order to assigned, recording the taxi and the
// assignment time. Returns false (no state change) from any other status.
func (o *Order) Assign(taxi types.TaxiID, t int) bool {
	if o.Status != StatusWaiting {
		return false
	}
	o.Status = StatusAssigned
	o.AssignedTaxi = &taxi
	o.AssignedTime = &t
	return true
}

// Pickup moves an assigned order to picked_up.
func (o *Order) Pickup(t int) bool {
	if o.Status != StatusAssigned {
		return false
	}
	o.Status = StatusPickedUp
	o.PickupTime = &t
	return true
}

// Complete moves a picked-up order to completed.
func (o *Order) Complete(t int) bool {
	if o.Status != StatusPickedUp {
		return false
	}
	o.Status = StatusCompleted
	o.DropoffTime = &t
	return true
}

// Cancel moves a waiting order to cancelled (waiting-timeout path).
func (o *Order) Cancel(t int) bool {
	if o.Status != StatusWaiting {
		return false
	}
	o.Status = StatusCancelled
	o.CancelTime = &t
	return true
}

// Transition is an order-lifecycle event produced by the fleet while
// advancing vehicle positions, applied in batch by the book.
type Transition struct {
	OrderID types.OrderID
	Status  Status
	Time    int
}
