package vehicle

import (
	"github.com/fib-traffic/microsim/internal/network"
	"github.com/fib-traffic/microsim/internal/randengine"
)

// MaxVehicles caps the simulation's live vehicle count; spawning pauses
// once it is reached and resumes as vehicles despawn.
const MaxVehicles = 40

// SpawnProbability is the per-tick, per-spawn-node probability of a new
// vehicle appearing, tested independently and sequentially for every
// spawn node while MaxVehicles has not been reached. This is a known,
// accepted bias: nodes earlier in iteration order get first claim on the
// vehicle budget within a tick that fills it.
const SpawnProbability = 0.1

// ApplySpawn iterates every spawn-capable node and, with SpawnProbability
// independent chance per node while the fleet is below MaxVehicles,
// creates one vehicle bound for a uniformly random reachable despawn
// node. Non-goal: it does not attempt to balance spawn probability across
// nodes or correct for iteration-order bias.
func ApplySpawn(road *network.Road, w *World, rng *randengine.Engine) {
	despawns := collectDespawnNodes(road)
	if len(despawns) == 0 {
		return
	}

	road.Nodes.IterWithIds(func(id network.NodeID, n *network.Node) {
		if !n.IsSpawn || len(n.Outgoing) == 0 {
			return
		}
		if w.Len() >= MaxVehicles {
			return
		}
		if !rng.PTrue(SpawnProbability) {
			return
		}

		reachable := reachableDespawns(road, id, despawns)
		if len(reachable) == 0 {
			return
		}
		dest := reachable[rng.Intn(len(reachable))]
		route, ok := road.FindPath(id, dest)
		if !ok || len(route) == 0 {
			return
		}
		w.Spawn(New(rng, route, dest))
	})
}

func collectDespawnNodes(road *network.Road) []network.NodeID {
	var out []network.NodeID
	road.Nodes.IterWithIds(func(id network.NodeID, n *network.Node) {
		if n.IsDespawn {
			out = append(out, id)
		}
	})
	return out
}

// reachableDespawns filters candidates to despawn nodes that are distinct
// from from's position and reachable via road.FindPath. The spec's
// destination-choice rule is "is_despawn=true and a different position",
// so a vehicle never gets a zero-length route.
func reachableDespawns(road *network.Road, from network.NodeID, candidates []network.NodeID) []network.NodeID {
	fromPos := road.Nodes.Get(from).Position
	var out []network.NodeID
	for _, c := range candidates {
		if c == from {
			continue
		}
		if road.Nodes.Get(c).Position == fromPos {
			continue
		}
		if _, ok := road.FindPath(from, c); ok {
			out = append(out, c)
		}
	}
	return out
}

// Integrate advances every non-player-controlled vehicle's progress by
// its current speed over dt. It must run before Transition, which handles
// vehicles whose progress has reached the end of their segment.
func Integrate(road *network.Road, w *World, dt float64) {
	w.Iter(func(_ ID, v *Vehicle) {
		if v.PlayerControlled {
			return
		}
		segment := road.Segments.Get(v.Segment)
		if segment.Length <= 0 {
			v.Progress = 1
			return
		}
		v.Progress += v.Speed * dt / segment.Length
	})
}

// Transition handles every vehicle whose progress has reached the end of
// its current segment: it either moves the vehicle onto the next segment
// of its route (carrying over excess progress as distance), or despawns
// it, at a dead end, on pathfinder failure, or on arrival at its
// destination. Despawns are collected and applied after the iteration so
// the World's spawn-order slice is never mutated mid-walk.
func Transition(road *network.Road, w *World) {
	var toDespawn []ID
	w.Iter(func(id ID, v *Vehicle) {
		if v.PlayerControlled || v.Progress < 1 {
			return
		}

		oldSegment := road.Segments.Get(v.Segment)
		toNode := road.Nodes.Get(oldSegment.To)
		if len(toNode.Outgoing) == 0 {
			toDespawn = append(toDespawn, id)
			return
		}

		path, ok := road.FindPath(oldSegment.To, v.Destination)
		if !ok || len(path) == 0 {
			toDespawn = append(toDespawn, id)
			return
		}

		excessDistance := (v.Progress - 1) * oldSegment.Length
		newSegment := path[0]
		newLength := road.Segments.Get(newSegment).Length
		var newProgress float64
		if newLength > 0 {
			newProgress = excessDistance / newLength
		}

		v.Segment = newSegment
		v.Route = path
		v.Progress = newProgress
		v.Gap.WaitingTime = 0
		v.Gap.ArrivalOrder = network.ArrivalNone
		v.Gap.ClearedToGo = false
	})

	for _, id := range toDespawn {
		w.Despawn(id)
	}
}
