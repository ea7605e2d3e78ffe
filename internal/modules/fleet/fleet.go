// README: Fleet manager owns every taxi; dispatches assignments, advances
// positions, and exports history.
package fleet

import (
	"log"
	"strconv"
	"time"

	"taxisim/internal/modules/network"
	"taxisim/internal/modules/order"
	"taxisim/internal/types"
)

// Fleet owns all taxis, keyed by id. Ids are sequential from 1 in creation
// order; every traversal iterates the sorted id slice.
type Fleet struct {
	taxis map[types.TaxiID]*Taxi
	ids   []types.TaxiID
}

// New creates a fleet with one taxi per initial position, ids 1..n.
func New(positions []types.NodeID) *Fleet {
	f := &Fleet{taxis: make(map[types.TaxiID]*Taxi, len(positions))}
	for i, pos := range positions {
		id := types.TaxiID(i + 1)
		f.taxis[id] = NewTaxi(id, pos)
		f.ids = append(f.ids, id)
	}
	return f
}

// Get returns the taxi with the given id.
func (f *Fleet) Get(id types.TaxiID) (*Taxi, bool) {
	t, ok := f.taxis[id]
	return t, ok
}

// Len returns the fleet size.
func (f *Fleet) Len() int { return len(f.ids) }

// IdleTaxis returns all idle taxis in ascending id order.
func (f *Fleet) IdleTaxis() []*Taxi {
	var idle []*Taxi
	for _, id := range f.ids {
		if t := f.taxis[id]; t.Status == StatusIdle {
			idle = append(idle, t)
		}
	}
	return idle
}

// Assign hands the combined pickup+delivery route to a taxi. Unknown ids
// are logged and ignored.
func (f *Fleet) Assign(taxiID types.TaxiID, orderID types.OrderID, pickupNode types.NodeID, route network.Route) bool {
	t, ok := f.taxis[taxiID]
	if !ok {
		log.Printf("taxi %d not found, cannot assign order %d", taxiID, orderID)
		return false
	}
	return t.AssignOrder(orderID, pickupNode, route)
}

// Move is one entry of a repositioning plan.
type Move struct {
	TaxiID      types.TaxiID
	Destination types.NodeID
	Route       network.Route
}

// Reposition applies a repositioning plan. Entries for unknown or non-idle
// taxis are skipped.
func (f *Fleet) Reposition(plan []Move) {
	for _, m := range plan {
		t, ok := f.taxis[m.TaxiID]
		if !ok {
			log.Printf("taxi %d not found, cannot reposition", m.TaxiID)
			continue
		}
		t.StartRepositioning(m.Destination, m.Route)
	}
}

// AdvanceAll advances every taxi to now and returns the produced
// order-lifecycle events in taxi-id order.
func (f *Fleet) AdvanceAll(now int) []order.Transition {
	var events []order.Transition
	for _, id := range f.ids {
		if e, ok := f.taxis[id].Advance(now); ok {
			events = append(events, e)
		}
	}
	return events
}

// Export shapes for the fleet history JSON.
type (
	Export struct {
		Metadata  Metadata               `json:"metadata"`
		FleetData map[string]TaxiHistory `json:"fleet_data"`
	}
	Metadata struct {
		GeneratedTime string `json:"generated_time"`
		TotalTaxis    int    `json:"total_taxis"`
	}
	TaxiHistory struct {
		TaxiID       types.TaxiID         `json:"taxi_id"`
		OrderHistory []OrderRef           `json:"order_history"`
		RouteHistory []network.RoutePoint `json:"route_history"`
	}
	OrderRef struct {
		OrderID types.OrderID `json:"order_id"`
	}
)

// ExportHistory returns the per-taxi order and route histories. The
// generation timestamp is injected so fixed-clock replays stay
// byte-identical.
func (f *Fleet) ExportHistory(generatedAt time.Time) Export {
	data := make(map[string]TaxiHistory, len(f.ids))
	for _, id := range f.ids {
		t := f.taxis[id]
		h := TaxiHistory{
			TaxiID:       t.ID,
			OrderHistory: make([]OrderRef, 0, len(t.OrderHistory)),
			RouteHistory: append([]network.RoutePoint(nil), t.RouteHistory...),
		}
		for _, oid := range t.OrderHistory {
			h.OrderHistory = append(h.OrderHistory, OrderRef{OrderID: oid})
		}
		if h.RouteHistory == nil {
			h.RouteHistory = []network.RoutePoint{}
		}
		data[strconv.Itoa(int(t.ID))] = h
	}
	return Export{
		Metadata:  Metadata{GeneratedTime: generatedAt.Format(time.RFC3339), TotalTaxis: len(f.ids)},
		FleetData: data,
	}
}
