// Package network implements the road-network topology: nodes, segments,
// intersections, the finalize() expansion pass, a breadth-first
// pathfinder, and the yield-priority predicate vehicles consult at
// intersections.
package network

import (
	"github.com/fib-traffic/microsim/internal/arena"
	"github.com/fib-traffic/microsim/internal/geometry"
)

// NodeID, SegmentID and IntersectionID are the distinct, arena-issued
// identifiers for each entity kind; a NodeID can never be used to index
// Segments, enforced at compile time by the phantom Id[T] type parameter.
type (
	NodeID         = arena.Id[Node]
	SegmentID      = arena.Id[Segment]
	IntersectionID = arena.Id[Intersection]
)

// Node is a point in the plane that may be a spawn source, a despawn sink,
// a plain waypoint, or (pre-finalize) a multi-way intersection marker.
type Node struct {
	Position  geometry.Point
	Incoming  []SegmentID
	Outgoing  []SegmentID
	IsSpawn   bool
	IsDespawn bool

	// YieldResolver is set only on nodes created via AddIntersectionNode,
	// before Finalize expands them into an Intersection bubble.
	YieldResolver YieldResolver
}

// TurnKind classifies what a micro-segment does inside an intersection
// bubble. Plain road segments (outside any intersection) are always
// TurnStraight and carry no meaningful Cross value.
type TurnKind int

const (
	TurnStraight TurnKind = iota
	TurnRight
	TurnLeft
	TurnRoundaboutEntry
	TurnRoundaboutCircle
	TurnRoundaboutExit
)

func (k TurnKind) String() string {
	switch k {
	case TurnStraight:
		return "straight"
	case TurnRight:
		return "right"
	case TurnLeft:
		return "left"
	case TurnRoundaboutEntry:
		return "roundabout-entry"
	case TurnRoundaboutCircle:
		return "roundabout-circle"
	case TurnRoundaboutExit:
		return "roundabout-exit"
	default:
		return "unknown"
	}
}

// TurnType pairs a TurnKind with the signed cross-product magnitude used by
// the yield resolver's "shorter path wins" rule: negative for Right, zero
// for Straight, positive for Left.
type TurnType struct {
	Kind  TurnKind
	Cross float64
}

// Segment is a directed edge from From to To.
type Segment struct {
	From, To   NodeID
	SpeedLimit float64
	Shape      geometry.Shape
	TurnType   TurnType
	Length     float64
}

// Intersection is the expanded bubble produced by Finalize for one
// multi-way intersection marker node.
type Intersection struct {
	Position geometry.Point

	// Incoming and Outgoing both list every micro-segment that belongs to
	// this bubble: a micro-segment is simultaneously an entry and an
	// exit of the intersection, so the two lists are always equal sets.
	Incoming []SegmentID
	Outgoing []SegmentID

	EdgeNodes []NodeID

	// Conflicts maps a micro-segment to the other micro-segments whose
	// geometry (or roundabout merge topology) overlaps it.
	Conflicts map[SegmentID][]SegmentID

	// EntryDirections gives the heading a vehicle has when entering each
	// micro-segment.
	EntryDirections map[SegmentID]geometry.Point

	YieldResolver  YieldResolver
	ArrivalCounter int

	isRoundabout bool
}

// ArrivalNone is the sentinel meaning "has not yet entered the waiting
// zone of an intersection".
const ArrivalNone = -1
