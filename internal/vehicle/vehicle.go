// Package vehicle implements the moving part of the simulation: the
// vehicle entity, its IDM car-following controller, gap acceptance at
// intersections, the occupancy index, and the spawn/move/despawn
// lifecycle. Unlike the road network (append-only, never mutated once
// built), vehicles are created and destroyed every tick, so they live in
// a plain map-backed World rather than an arena.
package vehicle

import (
	"github.com/fib-traffic/microsim/internal/network"
	"github.com/fib-traffic/microsim/internal/randengine"
)

const (
	defaultLength = 4.5
	defaultWidth  = 1.8
)

// Blinker is the vehicle's turn-signal state, derived from its upcoming
// turn, never set directly by the controller.
type Blinker int

const (
	BlinkerNone Blinker = iota
	BlinkerLeft
	BlinkerRight
)

func (b Blinker) String() string {
	switch b {
	case BlinkerLeft:
		return "left"
	case BlinkerRight:
		return "right"
	default:
		return "none"
	}
}

// IDMParams are the per-vehicle car-following parameters, blended at spawn
// time from the vehicle's aggression so that the fleet is heterogeneous
// without any parameter being hand-set per vehicle.
type IDMParams struct {
	MinSpacing     float64 // minimum bumper-to-bumper gap at a standstill
	Headway        float64 // desired time headway T
	MaxAccel       float64 // comfortable acceleration a_max
	ComfortBraking float64 // comfortable deceleration b_comf
}

// GapState is a vehicle's standing at the intersection it is approaching:
// its place in arrival order, how long it has been waiting for a gap, the
// decision made by the last gap-acceptance pass, and the critical gap
// below which it will not commit to entering.
type GapState struct {
	ArrivalOrder int // network.ArrivalNone until assigned
	WaitingTime  float64
	ClearedToGo  bool
	CriticalTime float64
}

// ID identifies a live vehicle inside a World. Unlike the network's
// arena-backed ids, vehicle ids are not dense or reused: despawning a
// vehicle retires its id permanently.
type ID int

// Vehicle is one car in the simulation.
type Vehicle struct {
	Segment     network.SegmentID
	Progress    float64 // in [0,1] along Segment
	Speed       float64 // m/s, >= 0
	Length      float64
	Width       float64
	Destination network.NodeID
	// Route is the ordered list of segments remaining to destination;
	// Route[0] must always equal Segment.
	Route []network.SegmentID

	Aggression float64
	IDM        IDMParams
	Gap        GapState
	Blinker    Blinker
	Braking    bool

	// PlayerControlled marks a vehicle whose speed/route a host
	// application drives directly; the IDM controller and gap acceptance
	// both skip it.
	PlayerControlled bool
}

// New creates a vehicle at the head of route (route[0] is its current
// segment), bound for destination, with aggression and IDM parameters
// sampled from rng.
func New(rng *randengine.Engine, route []network.SegmentID, destination network.NodeID) Vehicle {
	aggression := rng.Float64()
	return Vehicle{
		Segment:     route[0],
		Progress:    0,
		Speed:       0,
		Length:      defaultLength,
		Width:       defaultWidth,
		Destination: destination,
		Route:       route,
		Aggression:  aggression,
		IDM: IDMParams{
			MinSpacing:     rng.Blend(2.5, 1.0, aggression, 0.2),
			Headway:        rng.Blend(1.8, 0.8, aggression, 0.15),
			MaxAccel:       rng.Blend(1.2, 2.5, aggression, 0.2),
			ComfortBraking: rng.Blend(1.5, 3.0, aggression, 0.2),
		},
		Gap: GapState{
			ArrivalOrder: network.ArrivalNone,
			CriticalTime: rng.Blend(1.5, 1.0, aggression, 0.2),
		},
	}
}

// World owns every live vehicle. Iteration order follows spawn order
// (the order slice), which keeps every per-tick stage deterministic given the same
// inputs rather than at the mercy of Go's randomized map iteration.
type World struct {
	vehicles map[ID]*Vehicle
	order    []ID
	nextID   ID
}

// NewWorld creates an empty vehicle world.
func NewWorld() *World {
	return &World{vehicles: map[ID]*Vehicle{}}
}

// Spawn adds v to the world and returns its new id.
func (w *World) Spawn(v Vehicle) ID {
	id := w.nextID
	w.nextID++
	w.vehicles[id] = &v
	w.order = append(w.order, id)
	return id
}

// Despawn removes id from the world. A no-op if id is not live.
func (w *World) Despawn(id ID) {
	if _, ok := w.vehicles[id]; !ok {
		return
	}
	delete(w.vehicles, id)
	for i, o := range w.order {
		if o == id {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
}

// Get returns the vehicle stored under id, if live.
func (w *World) Get(id ID) (*Vehicle, bool) {
	v, ok := w.vehicles[id]
	return v, ok
}

// Len returns the number of live vehicles.
func (w *World) Len() int {
	return len(w.vehicles)
}

// Iter calls fn for every live vehicle in spawn order. fn must not call
// Spawn or Despawn on w; stage functions that need to remove a vehicle
// while iterating collect ids first and despawn after the loop.
func (w *World) Iter(fn func(ID, *Vehicle)) {
	for _, id := range w.order {
		if v, ok := w.vehicles[id]; ok {
			fn(id, v)
		}
	}
}

// IDs returns a snapshot of every live vehicle id, in spawn order.
func (w *World) IDs() []ID {
	return append([]ID(nil), w.order...)
}
