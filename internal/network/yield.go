package network

import "github.com/fib-traffic/microsim/internal/geometry"

// Approach describes one vehicle's claim on an intersection's waiting zone,
// as seen by the yield predicate: which micro-segment it is about to enter,
// the heading it arrives with, its arrival order (ArrivalNone if it has not
// yet entered the waiting zone), and how long it has been waiting.
type Approach struct {
	Turn    TurnType
	Dir     geometry.Point
	Arrival int
	Wait    float64
}

// YieldResolver decides, for a contested intersection entry, whether "my"
// approach has priority over "their" approach. Two concrete implementations
// exist: RightOfWay (regular intersections) and Roundabout (traffic
// circles, where only an on-ramp and the circle segment it merges into
// ever conflict, and the on-ramp always yields to the circle).
type YieldResolver interface {
	HasPriority(my, their Approach) bool
	IsRoundabout() bool
}

// RightOfWay implements the give-way-to-the-right intersection rule used at
// every regular (non-roundabout) intersection.
type RightOfWay struct{}

// IsRoundabout always returns false for RightOfWay.
func (RightOfWay) IsRoundabout() bool { return false }

// HasPriority runs the five-rule cascade, each rule applying only when the
// previous one did not decide:
//  1. Queue preemption: whoever has already entered the waiting zone
//     (Arrival != ArrivalNone) beats whoever hasn't.
//  2. Deadlock break: once both sides have waited past 0.5s, pure FIFO
//     arrival order wins regardless of geometry.
//  3. Yield to the right: the approach arriving from my right wins.
//  4. Shorter path wins: Right beats Straight beats Left, by cross
//     magnitude, once the two differ by more than 0.1.
//  5. Tiebreak: arrival order.
func (RightOfWay) HasPriority(my, their Approach) bool {
	if their.Arrival == ArrivalNone && my.Arrival != ArrivalNone {
		return true
	}
	if my.Arrival == ArrivalNone && their.Arrival != ArrivalNone {
		return false
	}

	if my.Wait > 0.5 && their.Wait > 0.5 {
		return my.Arrival < their.Arrival
	}

	c := my.Dir.Cross(their.Dir)
	if c < -0.3 {
		return true
	}
	if c > 0.3 {
		return false
	}

	diff := my.Turn.Cross - their.Turn.Cross
	if diff < -0.1 || diff > 0.1 {
		return my.Turn.Cross < their.Turn.Cross
	}

	return my.Arrival < their.Arrival
}

// Roundabout marks a node as a traffic circle.
type Roundabout struct{}

// IsRoundabout always returns true for Roundabout.
func (Roundabout) IsRoundabout() bool { return true }

// HasPriority gives a circle approach priority over an on-ramp approach
// (gap acceptance consults it when both vehicles are about to enter
// conflicting segments; a vehicle already on the circle forces a zero gap
// directly). Any other pair is ordered by arrival, and an approach with an
// arrival order beats one without.
func (Roundabout) HasPriority(my, their Approach) bool {
	if my.Turn.Kind == TurnRoundaboutEntry && their.Turn.Kind == TurnRoundaboutCircle {
		return false
	}
	if my.Turn.Kind == TurnRoundaboutCircle && their.Turn.Kind == TurnRoundaboutEntry {
		return true
	}
	if my.Arrival != ArrivalNone && their.Arrival != ArrivalNone {
		return my.Arrival < their.Arrival
	}
	return my.Arrival != ArrivalNone
}
