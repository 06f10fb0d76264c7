package vehicle_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fib-traffic/microsim/internal/geometry"
	"github.com/fib-traffic/microsim/internal/network"
	"github.com/fib-traffic/microsim/internal/vehicle"
)

// buildCrossing4Way returns a four-way regular intersection plus the two
// conflicting micro-segments a vehicle entering from the west and one
// entering from the south would use to cross straight through, the
// classic "two cars arrive near-simultaneously" gap-acceptance scenario.
func buildCrossing4Way(t *testing.T) (*network.Road, network.NodeID) {
	t.Helper()
	r := network.NewRoad()
	center := r.AddIntersectionNode(geometry.Point{X: 0, Y: 0}, network.RightOfWay{})
	north := r.AddEdgeNode(geometry.Point{X: 0, Y: 100})
	south := r.AddEdgeNode(geometry.Point{X: 0, Y: -100})
	east := r.AddEdgeNode(geometry.Point{X: 100, Y: 0})
	west := r.AddEdgeNode(geometry.Point{X: -100, Y: 0})
	for _, arm := range []network.NodeID{north, south, east, west} {
		r.AddBidirectional(arm, center, 15)
	}
	r.Finalize()
	return r, center
}

// conflictingApproachPair finds two conflicting micro-segments fed by two
// distinct entry arms, i.e. a genuine cross-traffic conflict, not two
// turns diverging from the same incoming lane.
func conflictingApproachPair(t *testing.T, r *network.Road) (aSeg, bSeg network.SegmentID) {
	t.Helper()
	var found bool
	r.Intersections.Iter(func(isect network.Intersection) {
		if found {
			return
		}
		for seg, others := range isect.Conflicts {
			for _, other := range others {
				if seg == other {
					continue
				}
				if precedingSegment(r, seg) == precedingSegment(r, other) {
					continue
				}
				aSeg, bSeg = seg, other
				found = true
				return
			}
		}
	})
	assert.True(t, found, "expected at least one cross-arm conflicting micro-segment pair")
	return
}

func TestGapAcceptanceYieldsToRightWhenBothArriveTogether(t *testing.T) {
	r, _ := buildCrossing4Way(t)
	aSeg, bSeg := conflictingApproachPair(t, r)

	w := vehicle.NewWorld()
	// Both vehicles are right at the edge of the intersection
	// (progress ~= 1), leaving almost no stopping distance for whichever
	// one does not have priority.
	aID := w.Spawn(vehicle.Vehicle{
		Segment: precedingSegment(r, aSeg), Progress: 0.999, Speed: 5, Length: 4.5,
		Route: []network.SegmentID{precedingSegment(r, aSeg), aSeg},
		Gap:    vehicle.GapState{ArrivalOrder: network.ArrivalNone, CriticalTime: 1.0},
	})
	bID := w.Spawn(vehicle.Vehicle{
		Segment: precedingSegment(r, bSeg), Progress: 0.999, Speed: 5, Length: 4.5,
		Route: []network.SegmentID{precedingSegment(r, bSeg), bSeg},
		Gap:    vehicle.GapState{ArrivalOrder: network.ArrivalNone, CriticalTime: 1.0},
	})

	vehicle.ApplyGapAcceptance(r, w, 0.1)

	a, _ := w.Get(aID)
	b, _ := w.Get(bID)
	// Exactly one of the two should be cleared (the other yields); both
	// cleared would mean the conflict wasn't detected at all.
	assert.NotEqual(t, a.Gap.ClearedToGo, b.Gap.ClearedToGo)
}

// precedingSegment finds a segment whose To equals seg's From, i.e. the
// micro-segment immediately before seg on some vehicle's route.
func precedingSegment(r *network.Road, seg network.SegmentID) network.SegmentID {
	from := r.Segments.Get(seg).From
	var found network.SegmentID
	for _, id := range r.Segments.Ids() {
		if r.Segments.Get(id).To == from {
			found = id
			break
		}
	}
	return found
}

func TestGapAcceptanceAssignsArrivalOrderOnce(t *testing.T) {
	r, _ := buildCrossing4Way(t)
	aSeg, _ := conflictingApproachPair(t, r)
	pre := precedingSegment(r, aSeg)

	w := vehicle.NewWorld()
	id := w.Spawn(vehicle.Vehicle{
		Segment: pre, Progress: 0.9, Speed: 5, Length: 4.5,
		Route: []network.SegmentID{pre, aSeg},
		Gap:    vehicle.GapState{ArrivalOrder: network.ArrivalNone, CriticalTime: 1.0},
	})

	vehicle.ApplyGapAcceptance(r, w, 0.1)
	v, _ := w.Get(id)
	first := v.Gap.ArrivalOrder
	assert.NotEqual(t, network.ArrivalNone, first)

	vehicle.ApplyGapAcceptance(r, w, 0.1)
	v, _ = w.Get(id)
	assert.Equal(t, first, v.Gap.ArrivalOrder)
}
