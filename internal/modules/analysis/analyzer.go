// README: Post-run metrics over the exported order set: response rate, wait
// times, trip time, occupancy, and special-case counts.
package analysis

import (
	"fmt"
	"sort"
	"strings"

	"taxisim/internal/modules/order"
	"taxisim/internal/types"
)

// Metrics is the key-metrics report computed from one run's order export.
// Averages are nil when no order qualifies for them.
type Metrics struct {
	TotalOrders              int      `json:"total_orders"`
	ResponseRate             float64  `json:"response_rate"`
	AvgResponseWait          *float64 `json:"avg_response_wait_time"`
	AvgPickupAfterAssignment *float64 `json:"avg_pickup_after_assignment"`
	AvgTripTime              *float64 `json:"avg_trip_time"`
	AvgOccupancyRate         *float64 `json:"avg_occupancy_rate"`

	SpecialNoPickup          int `json:"special_case_no_pickup"`
	SpecialSameLocation      int `json:"special_case_same_location"`
	SpecialInvalidAssignment int `json:"special_case_invalid_assignment"`
	SpecialNegativeTrip      int `json:"special_case_negative_trip"`
	TotalSpecialCases        int `json:"total_special_cases"`
}

// Analyze computes the key metrics from exported order records.
func Analyze(records map[string]order.ExportRecord) Metrics {
	var m Metrics
	m.TotalOrders = len(records)
	if m.TotalOrders == 0 {
		return m
	}

	responded := 0
	var waitSum, waitN int
	var pickupSum, pickupN int
	var tripSum, tripN int
	for _, r := range records {
		if r.AssignedTaxi != nil {
			responded++
		}
		if r.AssignedTime != nil {
			waitSum += *r.AssignedTime - r.RequestTime
			waitN++
			if *r.AssignedTime < r.RequestTime {
				m.SpecialInvalidAssignment++
			}
		}
		if r.PickupTime != nil && r.AssignedTime != nil {
			pickupSum += *r.PickupTime - *r.AssignedTime
			pickupN++
		}
		if r.PickupTime != nil && r.DropoffTime != nil {
			trip := *r.DropoffTime - *r.PickupTime
			tripSum += trip
			tripN++
			if trip < 0 {
				m.SpecialNegativeTrip++
			}
		}
		if r.PickupTime == nil && r.DropoffTime != nil {
			m.SpecialNoPickup++
		}
		if r.PickupNode == r.DropoffNode {
			m.SpecialSameLocation++
		}
	}

	m.ResponseRate = float64(responded) / float64(m.TotalOrders)
	if waitN > 0 {
		m.AvgResponseWait = mean(waitSum, waitN)
	}
	if pickupN > 0 {
		m.AvgPickupAfterAssignment = mean(pickupSum, pickupN)
	}
	if tripN > 0 {
		m.AvgTripTime = mean(tripSum, tripN)
	}
	m.AvgOccupancyRate = occupancyRate(records)
	m.TotalSpecialCases = m.SpecialNoPickup + m.SpecialSameLocation +
		m.SpecialInvalidAssignment + m.SpecialNegativeTrip
	return m
}

// occupancyRate averages, over all taxis that served at least one order, the
// share of the observed horizon each taxi spent serving orders. The horizon
// is the span from the earliest request to the latest dropoff (or request,
// whichever is later).
func occupancyRate(records map[string]order.ExportRecord) *float64 {
	minTime := 0
	maxTime := 0
	first := true
	busy := make(map[types.TaxiID]int)
	for _, r := range records {
		if first || r.RequestTime < minTime {
			minTime = r.RequestTime
		}
		if first || r.RequestTime > maxTime {
			maxTime = r.RequestTime
		}
		first = false
		if r.DropoffTime != nil && *r.DropoffTime > maxTime {
			maxTime = *r.DropoffTime
		}
		if r.AssignedTaxi != nil && r.AssignedTime != nil && r.DropoffTime != nil {
			busy[*r.AssignedTaxi] += *r.DropoffTime - *r.AssignedTime
		}
	}
	span := maxTime - minTime
	if span <= 0 || len(busy) == 0 {
		return nil
	}
	sum := 0.0
	for _, b := range busy {
		sum += float64(b) / float64(span)
	}
	v := sum / float64(len(busy))
	return &v
}

func mean(sum, n int) *float64 {
	v := float64(sum) / float64(n)
	return &v
}

// Format renders the metrics as a human-readable report.
func (m Metrics) Format() string {
	var b strings.Builder
	b.WriteString("===== order key metrics =====\n")
	fmt.Fprintf(&b, "total orders:                %d\n", m.TotalOrders)
	fmt.Fprintf(&b, "response rate:               %.2f%%\n", m.ResponseRate*100)
	writeAvg(&b, "avg response wait:           ", m.AvgResponseWait)
	writeAvg(&b, "avg pickup after assignment: ", m.AvgPickupAfterAssignment)
	writeAvg(&b, "avg trip time:               ", m.AvgTripTime)
	writeAvg(&b, "avg occupancy rate:          ", m.AvgOccupancyRate)
	b.WriteString("special cases:\n")
	fmt.Fprintf(&b, "  no pickup but dropped:     %d\n", m.SpecialNoPickup)
	fmt.Fprintf(&b, "  same pickup and dropoff:   %d\n", m.SpecialSameLocation)
	fmt.Fprintf(&b, "  assigned before request:   %d\n", m.SpecialInvalidAssignment)
	fmt.Fprintf(&b, "  negative trip time:        %d\n", m.SpecialNegativeTrip)
	fmt.Fprintf(&b, "  total:                     %d\n", m.TotalSpecialCases)
	return b.String()
}

func writeAvg(b *strings.Builder, label string, v *float64) {
	if v == nil {
		fmt.Fprintf(b, "%sn/a\n", label)
		return
	}
	fmt.Fprintf(b, "%s%.2f\n", label, *v)
}

// SpecialCases returns the ids of orders in each special-case bucket, sorted
// ascending, for debugging odd runs.
func SpecialCases(records map[string]order.ExportRecord) map[string][]types.OrderID {
	out := map[string][]types.OrderID{
		"no_pickup":          nil,
		"same_location":      nil,
		"invalid_assignment": nil,
		"negative_trip":      nil,
	}
	for _, r := range records {
		if r.PickupTime == nil && r.DropoffTime != nil {
			out["no_pickup"] = append(out["no_pickup"], r.OrderID)
		}
		if r.PickupNode == r.DropoffNode {
			out["same_location"] = append(out["same_location"], r.OrderID)
		}
		if r.AssignedTime != nil && *r.AssignedTime < r.RequestTime {
			out["invalid_assignment"] = append(out["invalid_assignment"], r.OrderID)
		}
		if r.PickupTime != nil && r.DropoffTime != nil && *r.DropoffTime < *r.PickupTime {
			out["negative_trip"] = append(out["negative_trip"], r.OrderID)
		}
	}
	for _, ids := range out {
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	}
	return out
}
