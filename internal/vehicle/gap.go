package vehicle

import (
	"math"

	"github.com/fib-traffic/microsim/internal/geometry"
	"github.com/fib-traffic/microsim/internal/network"
)

// MinSafeDistance is the distance below which an approaching vehicle on a
// conflicting segment is treated as already committed to the conflict
// point, regardless of speed.
const MinSafeDistance = 3.0

// gapSnapshot is the Phase B capture of one vehicle's approach to an
// intersection: everything Phase C needs to judge priority against every
// other approaching vehicle, frozen before any vehicle's state changes
// this tick. Gap acceptance reads and decides entirely from snapshots,
// so no vehicle ever sees a partially updated sibling mid-pass.
type gapSnapshot struct {
	Vehicle      ID
	Segment      network.SegmentID
	NextSegment  network.SegmentID
	HasNext      bool
	Progress     float64
	Speed        float64
	Length       float64
	WaitingTime  float64
	ArrivalOrder int
	Turn         network.TurnType
	Dir          geometry.Point
}

// ApplyGapAcceptance runs once per tick over every vehicle with
// progress > 0.5, in three phases: (A) assign arrival order to vehicles
// newly entering an intersection's waiting zone, (B) snapshot every
// approaching vehicle's state, (C) for each, decide whether the gap to
// every conflicting approach is large enough to proceed.
func ApplyGapAcceptance(road *network.Road, w *World, dt float64) {
	phaseA(road, w)
	snaps := phaseB(road, w)
	phaseC(road, w, snaps, dt)
}

func phaseA(road *network.Road, w *World) {
	w.Iter(func(_ ID, v *Vehicle) {
		if v.PlayerControlled || v.Progress <= 0.5 || len(v.Route) < 2 {
			return
		}
		if v.Gap.ArrivalOrder != network.ArrivalNone {
			return
		}
		isectID, ok := road.IntersectionFor(v.Route[1])
		if !ok {
			return
		}
		isect := road.Intersections.Get(isectID)
		v.Gap.ArrivalOrder = isect.ArrivalCounter
		isect.ArrivalCounter++
	})
}

func phaseB(road *network.Road, w *World) []gapSnapshot {
	var out []gapSnapshot
	w.Iter(func(id ID, v *Vehicle) {
		if v.PlayerControlled || v.Progress <= 0.5 {
			return
		}
		s := gapSnapshot{
			Vehicle:      id,
			Segment:      v.Segment,
			Progress:     v.Progress,
			Speed:        v.Speed,
			Length:       v.Length,
			WaitingTime:  v.Gap.WaitingTime,
			ArrivalOrder: v.Gap.ArrivalOrder,
		}
		if len(v.Route) >= 2 {
			s.NextSegment = v.Route[1]
			s.HasNext = true
			s.Turn = road.Segments.Get(s.NextSegment).TurnType
			if isectID, ok := road.IntersectionFor(s.NextSegment); ok {
				isect := road.Intersections.Get(isectID)
				s.Dir = isect.EntryDirections[s.NextSegment]
			}
		}
		out = append(out, s)
	})
	return out
}

func phaseC(road *network.Road, w *World, snaps []gapSnapshot, dt float64) {
	for _, s := range snaps {
		v, ok := w.Get(s.Vehicle)
		if !ok {
			continue
		}
		if !s.HasNext {
			v.Gap.ClearedToGo = true
			continue
		}
		isectID, ok := road.IntersectionFor(s.NextSegment)
		if !ok {
			// Next segment is not an intersection micro-segment; nothing
			// to yield to.
			v.Gap.ClearedToGo = true
			continue
		}
		isect := road.Intersections.Get(isectID)
		conflicts := isect.Conflicts[s.NextSegment]

		actualGap := math.Inf(1)
		for _, other := range snaps {
			if other.Vehicle == s.Vehicle {
				continue
			}
			if containsSegment(conflicts, other.Segment) {
				if forcedZero(isect, s, other) {
					actualGap = 0
				}
				continue
			}
			if !other.HasNext || !containsSegment(conflicts, other.NextSegment) {
				continue
			}

			my := network.Approach{Turn: s.Turn, Dir: s.Dir, Arrival: s.ArrivalOrder, Wait: s.WaitingTime}
			their := network.Approach{Turn: other.Turn, Dir: other.Dir, Arrival: other.ArrivalOrder, Wait: other.WaitingTime}
			if isect.YieldResolver.HasPriority(my, their) {
				continue
			}

			otherSegLen := road.Segments.Get(other.Segment).Length
			distanceToEnter := math.Max(0, (1-other.Progress)*otherSegLen-other.Length/2)
			if distanceToEnter < MinSafeDistance {
				actualGap = 0
				continue
			}
			speed := math.Max(other.Speed, 0.1)
			actualGap = math.Min(actualGap, distanceToEnter/speed)
		}

		if actualGap < v.Gap.CriticalTime {
			v.Gap.WaitingTime += dt
			v.Gap.ClearedToGo = false
		} else {
			v.Gap.ClearedToGo = true
		}
	}
}

// forcedZero implements the "already occupying a conflicting segment"
// rule: at a regular intersection any occupant of a conflicting
// micro-segment forces a zero gap outright; at a roundabout this only
// holds for an entry approach yielding to a vehicle already on the
// circle; circle-vs-circle and entry-vs-entry never share a conflict
// entry in the first place.
func forcedZero(isect *network.Intersection, mine, other gapSnapshot) bool {
	if !isect.YieldResolver.IsRoundabout() {
		return true
	}
	return mine.Turn.Kind == network.TurnRoundaboutEntry
}

func containsSegment(list []network.SegmentID, id network.SegmentID) bool {
	for _, s := range list {
		if s == id {
			return true
		}
	}
	return false
}
