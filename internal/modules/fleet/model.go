// README: Taxi entity: position, status machine, active route, histories.
package fleet

import (
	"taxisim/internal/modules/network"
	"taxisim/internal/modules/order"
	"taxisim/internal/types"
)

type Status string

const (
	StatusIdle          Status = "idle"
	StatusEnroutePickup Status = "enroute_pickup"
	StatusOccupied      Status = "occupied"
	StatusRepositioning Status = "repositioning"
)

// Taxi is a vehicle in the simulation. Orders are referenced by id only;
// the order book owns the order entities.
type Taxi struct {
	ID                 types.TaxiID
	Position           types.NodeID
	Status             Status
	CurrentOrder       *types.OrderID
	CurrentDestination *types.NodeID
	CurrentRoute       network.Route
	OrderHistory       []types.OrderID
	RouteHistory       network.Route
}

// NewTaxi creates an idle taxi at the given node.
func NewTaxi(id types.TaxiID, position types.NodeID) *Taxi {
	return &Taxi{ID: id, Position: position, Status: StatusIdle}
}

// AssignOrder puts an idle taxi en route to the order's pickup node. The
// route is the combined pickup+delivery plan; its last node is the dropoff.
// Returns false without mutating state when the taxi is not idle or the
// route is empty.
func (t *Taxi) AssignOrder(orderID types.OrderID, pickupNode types.NodeID, route network.Route) bool {
	if t.Status != StatusIdle || len(route) == 0 {
		return false
	}
	t.Status = StatusEnroutePickup
	t.CurrentOrder = &orderID
	t.CurrentDestination = &pickupNode
	t.CurrentRoute = route
	t.OrderHistory = append(t.OrderHistory, orderID)
	t.RouteHistory = append(t.RouteHistory, route...)
	return true
}

// StartRepositioning sends an idle taxi toward dest along route.
func (t *Taxi) StartRepositioning(dest types.NodeID, route network.Route) bool {
	if t.Status != StatusIdle || len(route) == 0 {
		return false
	}
	t.Status = StatusRepositioning
	t.CurrentDestination = &dest
	t.CurrentRoute = route
	t.RouteHistory = append(t.RouteHistory, route...)
	return true
}

// arriveAtPickup flips enroute_pickup to occupied: position moves to the
// pickup node and the destination becomes the final route node (dropoff).
func (t *Taxi) arriveAtPickup() bool {
	if t.Status != StatusEnroutePickup {
		return false
	}
	t.Status = StatusOccupied
	t.Position = *t.CurrentDestination
	dropoff := t.CurrentRoute[len(t.CurrentRoute)-1].Node
	t.CurrentDestination = &dropoff
	return true
}

// completeOrder returns the taxi to idle at the dropoff node.
func (t *Taxi) completeOrder() bool {
	if t.Status != StatusOccupied {
		return false
	}
	t.Position = *t.CurrentDestination
	t.clearRoute()
	return true
}

// completeRepositioning returns the taxi to idle at its reposition target.
func (t *Taxi) completeRepositioning() bool {
	if t.Status != StatusRepositioning {
		return false
	}
	t.Position = *t.CurrentDestination
	t.clearRoute()
	return true
}

func (t *Taxi) clearRoute() {
	t.Status = StatusIdle
	t.CurrentOrder = nil
	t.CurrentDestination = nil
	t.CurrentRoute = nil
}

// Advance walks the taxi along its route up to now, handling the pickup and
// arrival transitions. At most one order-lifecycle event is returned; when
// pickup and completion both fall inside a single advance, only the
// terminal completed event is emitted and the pickup timestamp is lost
// (the analyzer reports such orders as special cases).
func (t *Taxi) Advance(now int) (order.Transition, bool) {
	if len(t.CurrentRoute) == 0 || t.Status == StatusIdle {
		return order.Transition{}, false
	}

	var event order.Transition
	haveEvent := false
	orderID := t.CurrentOrder

	for _, rp := range t.CurrentRoute {
		if rp.Time > now {
			break
		}
		t.Position = rp.Node
		if t.Status == StatusEnroutePickup && rp.Node == *t.CurrentDestination {
			if t.arriveAtPickup() {
				event = order.Transition{OrderID: *orderID, Status: order.StatusPickedUp, Time: rp.Time}
				haveEvent = true
			}
		}
	}

	last := t.CurrentRoute[len(t.CurrentRoute)-1]
	if now >= last.Time {
		t.Position = last.Node
		switch t.Status {
		case StatusOccupied:
			if t.completeOrder() {
				event = order.Transition{OrderID: *orderID, Status: order.StatusCompleted, Time: last.Time}
				haveEvent = true
			}
		case StatusRepositioning:
			t.completeRepositioning()
		}
	}
	return event, haveEvent
}
