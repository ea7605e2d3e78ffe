// README: Common identifier and geometry types shared across modules.
package types

import "math"

// NodeID is a dense non-negative road-network node identifier.
type NodeID int

// TaxiID identifies a vehicle in the fleet. IDs are sequential from 1.
type TaxiID int

// OrderID identifies a passenger order.
type OrderID int

// Point is a plane coordinate. The network graph is the authority on travel
// times; Euclidean distances are only used by spatial strategies.
type Point struct {
	X float64
	Y float64
}

// DistanceTo returns the Euclidean distance between two points.
func (p Point) DistanceTo(q Point) float64 {
	dx := p.X - q.X
	dy := p.Y - q.Y
	return math.Sqrt(dx*dx + dy*dy)
}
