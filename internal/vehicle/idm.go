package vehicle

import (
	"math"

	"github.com/samber/lo"

	"github.com/fib-traffic/microsim/internal/network"
)

// followImpl is the Intelligent Driver Model's core acceleration formula.
// https://en.wikipedia.org/wiki/Intelligent_driver_model
//
//  1. Desired following distance: s* = minGap + v*headway + v*dv/(2*sqrt(a*b))
//  2. Acceleration: a = maxA * (1 - (v/vDesired)^4 - (s*/gap)^2)
//  3. Clamp to the comfortable braking/accelerating range.
func followImpl(v, vDesired, dv, gap float64, minGap, headway, maxAccel, comfortBraking float64) float64 {
	if gap <= 0 {
		return -2 * comfortBraking
	}
	sStar := minGap + v*headway + (v*dv)/(2*math.Sqrt(maxAccel*comfortBraking))
	accel := maxAccel * (1 - math.Pow(v/vDesired, 4) - math.Pow(sStar/gap, 2))
	return lo.Clamp(accel, -2*comfortBraking, maxAccel)
}

// ApplyIDM advances every non-player-controlled vehicle's speed by one
// IDM step. Gap acceptance (ApplyGapAcceptance) must already have set
// Gap.ClearedToGo for this tick on every vehicle past progress 0.5; only
// those vehicles treat the end of their segment as a stop line when not
// cleared.
func ApplyIDM(road *network.Road, w *World, idx *Index, dt float64) {
	w.Iter(func(id ID, v *Vehicle) {
		if v.PlayerControlled {
			return
		}
		segment := road.Segments.Get(v.Segment)
		desiredSpeed := 0.8*segment.SpeedLimit + 0.4*segment.SpeedLimit*v.Aggression

		leaderID, leaderDist, found := idx.FindNext(id, *v, road)

		var gap, dv float64
		if v.Progress > 0.5 && !v.Gap.ClearedToGo {
			distanceToEnd := math.Max(0, (1-v.Progress)*segment.Length-v.Length/2)
			if found && leaderDist < distanceToEnd {
				gap = leaderDist
				dv = v.Speed - leaderSpeed(w, leaderID)
			} else {
				gap = distanceToEnd
				dv = v.Speed
			}
		} else if found {
			gap = leaderDist
			dv = v.Speed - leaderSpeed(w, leaderID)
		} else {
			gap = math.Inf(1)
			dv = 0
		}

		var accel float64
		if math.IsInf(gap, 1) {
			accel = v.IDM.MaxAccel * (1 - math.Pow(v.Speed/desiredSpeed, 4))
			accel = lo.Clamp(accel, -2*v.IDM.ComfortBraking, v.IDM.MaxAccel)
		} else {
			accel = followImpl(v.Speed, desiredSpeed, dv, gap, v.IDM.MinSpacing, v.IDM.Headway, v.IDM.MaxAccel, v.IDM.ComfortBraking)
		}

		v.Speed = math.Max(0, v.Speed+accel*dt)
		v.Braking = accel < 0
	})
}

func leaderSpeed(w *World, id ID) float64 {
	if leader, ok := w.Get(id); ok {
		return leader.Speed
	}
	return 0
}
