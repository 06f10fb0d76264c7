// Package simulation wires the network and vehicle packages into the
// single-entry-point driver loop the host calls once per frame, and
// exposes the read-only query interface the renderer/UI consumes.
//
// Grounded on the teacher's task.Context: a long-lived object owning every
// manager and driven by one external tick, except here the whole pipeline
// is one in-process call instead of a clock goroutine plus gRPC sidecar.
package simulation

import (
	"github.com/sirupsen/logrus"

	"github.com/fib-traffic/microsim/internal/clock"
	"github.com/fib-traffic/microsim/internal/geometry"
	"github.com/fib-traffic/microsim/internal/network"
	"github.com/fib-traffic/microsim/internal/randengine"
	"github.com/fib-traffic/microsim/internal/vehicle"
)

var log = logrus.WithField("module", "simulation")

// VehicleSpawner is a host-supplied alternative to the built-in random
// spawn rule: it injects a new vehicle onto Segment at the given Rate
// (vehicles/second, expressed as a per-tick Bernoulli probability scaled
// by dt) with an initial Speed, alongside ApplySpawn's own dice roll.
type VehicleSpawner struct {
	Segment network.SegmentID
	Rate    float64 // vehicles per second
	Speed   float64
}

// Simulation owns the finalized road network, the live vehicle world, the
// shared random engine, and the clock, and runs the mandated per-tick
// pipeline. It is not safe for concurrent Tick calls, matching the
// teacher's single clock-loop-owns-Context discipline; reading vehicle
// state from another goroutine between ticks is fine.
type Simulation struct {
	Road  *network.Road
	World *vehicle.World
	Clock *clock.Clock
	rng   *randengine.Engine

	spawners []VehicleSpawner
}

// New builds a Simulation over an already-finalized Road. seed is the
// random engine's seed, matching the spec's "tests may require a seedable
// source" requirement.
func New(road *network.Road, dt float64, seed uint64) *Simulation {
	return &Simulation{
		Road:  road,
		World: vehicle.NewWorld(),
		Clock: clock.New(dt),
		rng:   randengine.New(seed),
	}
}

// AddSpawner registers a rate-based spawner, evaluated every tick in
// addition to (not instead of) the built-in random spawn rule. Host code
// that wants ONLY rate-based spawning on a given segment should simply not
// rely on the random rule firing there; both rules spawn independently.
func (s *Simulation) AddSpawner(sp VehicleSpawner) {
	s.spawners = append(s.spawners, sp)
}

// Tick runs the six mandatory stages in order, advancing the simulation by
// dt: spawn, update_occupancy, apply_gap_acceptance, apply_idm,
// move_and_despawn, update_blinkers. Suspension points: none.
func (s *Simulation) Tick(dt float64) {
	vehicle.ApplySpawn(s.Road, s.World, s.rng)
	s.applySpawners(dt)

	idx := vehicle.BuildIndex(s.World)
	vehicle.ApplyGapAcceptance(s.Road, s.World, dt)
	vehicle.ApplyIDM(s.Road, s.World, idx, dt)

	vehicle.Integrate(s.Road, s.World, dt)
	vehicle.Transition(s.Road, s.World)

	vehicle.UpdateBlinkers(s.Road, s.World)

	s.Clock.Advance()
}

// applySpawners runs every host-registered rate-based spawner: each tick,
// a spawner fires with probability rate*dt (clamped to [0,1]), mirroring
// a Poisson arrival process sampled at fixed Δt.
func (s *Simulation) applySpawners(dt float64) {
	for _, sp := range s.spawners {
		if s.World.Len() >= vehicle.MaxVehicles {
			return
		}
		p := sp.Rate * dt
		if p > 1 {
			p = 1
		}
		if !s.rng.PTrue(p) {
			continue
		}
		segment := s.Road.Segments.Get(sp.Segment)
		toNode := s.Road.Nodes.Get(segment.To)
		if len(toNode.Outgoing) == 0 {
			continue
		}
		despawns := reachableFrom(s.Road, segment.To)
		if len(despawns) == 0 {
			continue
		}
		dest := despawns[s.rng.Intn(len(despawns))]
		route, ok := s.Road.FindPath(segment.To, dest)
		if !ok {
			continue
		}
		full := append([]network.SegmentID{sp.Segment}, route...)
		v := vehicle.New(s.rng, full, dest)
		v.Speed = sp.Speed
		s.World.Spawn(v)
		log.WithField("segment", sp.Segment).Debug("vehicle spawner fired")
	}
}

func reachableFrom(road *network.Road, from network.NodeID) []network.NodeID {
	var out []network.NodeID
	road.Nodes.IterWithIds(func(id network.NodeID, n *network.Node) {
		if _, ok := road.FindPath(from, id); ok && n.IsDespawn && id != from {
			out = append(out, id)
		}
	})
	return out
}

// VehiclePosition returns a vehicle's current world position, computed
// from its segment geometry and progress.
func (s *Simulation) VehiclePosition(id vehicle.ID) (geometry.Point, bool) {
	v, ok := s.World.Get(id)
	if !ok {
		return geometry.Point{}, false
	}
	return s.Road.PositionAt(v.Segment, v.Progress), true
}

// VehicleHeading returns a vehicle's current heading unit vector.
func (s *Simulation) VehicleHeading(id vehicle.ID) (geometry.Point, bool) {
	v, ok := s.World.Get(id)
	if !ok {
		return geometry.Point{}, false
	}
	return s.Road.DirectionAt(v.Segment, v.Progress), true
}

// Vehicles exposes the read-only per-vehicle query interface: fn is called
// once per live vehicle in deterministic spawn order.
func (s *Simulation) Vehicles(fn func(vehicle.ID, *vehicle.Vehicle)) {
	s.World.Iter(fn)
}

// VehicleCount returns the number of live vehicles.
func (s *Simulation) VehicleCount() int {
	return s.World.Len()
}
