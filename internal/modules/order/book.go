// README: Order book owns every order; filters waiting orders, applies
// batch transitions, and enforces waiting-timeout cancellation.
package order

import (
	"log"
	"sort"
	"strconv"

	"taxisim/internal/types"
)

// DefaultWaitingThreshold is how long an order may wait before it is
// auto-cancelled, in simulation time units.
const DefaultWaitingThreshold = 300

// Record is a raw order row as loaded from the input table.
type Record struct {
	ID          types.OrderID
	PickupNode  types.NodeID
	DropoffNode types.NodeID
	RequestTime int
}

// Book owns all orders, keyed by id. Iteration always happens over the
// sorted id slice so results are deterministic.
type Book struct {
	orders    map[types.OrderID]*Order
	ids       []types.OrderID
	threshold int
}

// NewBook creates a book from loaded records, discarding any order that
// requests service before startTime. waitingThreshold <= 0 selects the
// default.
func NewBook(records []Record, startTime, waitingThreshold int) *Book {
	if waitingThreshold <= 0 {
		waitingThreshold = DefaultWaitingThreshold
	}
	b := &Book{
		orders:    make(map[types.OrderID]*Order, len(records)),
		threshold: waitingThreshold,
	}
	for _, r := range records {
		if r.RequestTime < startTime {
			continue
		}
		b.orders[r.ID] = New(r.ID, r.PickupNode, r.DropoffNode, r.RequestTime)
		b.ids = append(b.ids, r.ID)
	}
	sort.Slice(b.ids, func(i, j int) bool { return b.ids[i] < b.ids[j] })
	return b
}

// Get returns the order with the given id, or nil.
func (b *Book) Get(id types.OrderID) *Order { return b.orders[id] }

// Len returns the number of orders in the book.
func (b *Book) Len() int { return len(b.ids) }

// WaitingOrders returns orders that are waiting and already requested at
// now, after cancelling any of them that waited strictly longer than the
// threshold. Cancelled orders are excluded from the result.
func (b *Book) WaitingOrders(now int) []*Order {
	var waiting []*Order
	for _, id := range b.ids {
		o := b.orders[id]
		if o.Status != StatusWaiting || o.RequestTime > now {
			continue
		}
		if now-o.RequestTime > b.threshold {
			o.Cancel(now)
			continue
		}
		waiting = append(waiting, o)
	}
	return waiting
}

// Assign transitions a waiting order to assigned. Returns whether the
// transition occurred.
func (b *Book) Assign(orderID types.OrderID, taxiID types.TaxiID, now int) bool {
	o := b.orders[orderID]
	if o == nil {
		log.Printf("order %d not found, cannot assign", orderID)
		return false
	}
	return o.Assign(taxiID, now)
}

// ApplyTransitions applies a batch of lifecycle events produced by the
// fleet. Unknown order ids are logged and skipped.
func (b *Book) ApplyTransitions(events []Transition) {
	for _, e := range events {
		o := b.orders[e.OrderID]
		if o == nil {
			log.Printf("order %d not found, dropping %s event", e.OrderID, e.Status)
			continue
		}
		t := e.Time
		o.Status = e.Status
		switch e.Status {
		case StatusPickedUp:
			o.PickupTime = &t
		case StatusCompleted:
			o.DropoffTime = &t
		}
	}
}

// ExportRecord is the JSON shape of one exported order. Missing timestamps
// serialize as null.
type ExportRecord struct {
	OrderID      types.OrderID `json:"order_id"`
	PickupNode   types.NodeID  `json:"pickup_node"`
	DropoffNode  types.NodeID  `json:"dropoff_node"`
	RequestTime  int           `json:"request_time"`
	AssignedTaxi *types.TaxiID `json:"assigned_taxi"`
	AssignedTime *int          `json:"assigned_time"`
	PickupTime   *int          `json:"pickup_time"`
	DropoffTime  *int          `json:"dropoff_time"`
	Status       Status        `json:"status"`
}

// Export returns the orders whose request time falls in
// [startTime, endTime], keyed by order id string.
func (b *Book) Export(startTime, endTime int) map[string]ExportRecord {
	out := make(map[string]ExportRecord)
	for _, id := range b.ids {
		o := b.orders[id]
		if o.RequestTime < startTime || o.RequestTime > endTime {
			continue
		}
		out[strconv.Itoa(int(o.ID))] = ExportRecord{
			OrderID:      o.ID,
			PickupNode:   o.PickupNode,
			DropoffNode:  o.DropoffNode,
			RequestTime:  o.RequestTime,
			AssignedTaxi: o.AssignedTaxi,
			AssignedTime: o.AssignedTime,
			PickupTime:   o.PickupTime,
			DropoffTime:  o.DropoffTime,
			Status:       o.Status,
		}
	}
	return out
}

// NewBookFromExport reconstructs a book from previously exported records,
// preserving statuses and timestamps. Used for round-tripping results back
// into memory for analysis.
func NewBookFromExport(records map[string]ExportRecord, waitingThreshold int) *Book {
	if waitingThreshold <= 0 {
		waitingThreshold = DefaultWaitingThreshold
	}
	b := &Book{
		orders:    make(map[types.OrderID]*Order, len(records)),
		threshold: waitingThreshold,
	}
	for _, r := range records {
		o := New(r.OrderID, r.PickupNode, r.DropoffNode, r.RequestTime)
		o.Status = r.Status
		o.AssignedTaxi = r.AssignedTaxi
		o.AssignedTime = r.AssignedTime
		o.PickupTime = r.PickupTime
		o.DropoffTime = r.DropoffTime
		b.orders[o.ID] = o
		b.ids = append(b.ids, o.ID)
	}
	sort.Slice(b.ids, func(i, j int) bool { return b.ids[i] < b.ids[j] })
	return b
}
