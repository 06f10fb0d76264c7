package vehicle

import "github.com/fib-traffic/microsim/internal/network"

// UpdateBlinkers derives every vehicle's turn signal from the angle
// between its current heading and the heading of its next segment. Only
// meaningful once a vehicle is close enough to its next segment to have
// committed to the turn (progress >= 0.5); otherwise the blinker is off.
func UpdateBlinkers(road *network.Road, w *World) {
	w.Iter(func(_ ID, v *Vehicle) {
		v.Blinker = blinkerFor(road, v)
	})
}

func blinkerFor(road *network.Road, v *Vehicle) Blinker {
	if v.Progress < 0.5 || len(v.Route) < 2 {
		return BlinkerNone
	}
	// nextDir is sampled at the far end of the next segment rather than its
	// start: a turn arc's tangent at its own start always matches the
	// current heading by construction (it is built tangent-continuous),
	// so only the exit tangent actually reveals which way the turn bends.
	currentDir := road.DirectionAt(v.Segment, v.Progress)
	nextDir := road.DirectionAt(v.Route[1], 1)
	cross := currentDir.Cross(nextDir)
	switch {
	case cross > 0.3:
		return BlinkerLeft
	case cross < -0.3:
		return BlinkerRight
	default:
		return BlinkerNone
	}
}
