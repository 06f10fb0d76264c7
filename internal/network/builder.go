package network

import (
	"math"
	"sort"

	"github.com/fib-traffic/microsim/internal/arena"
	"github.com/fib-traffic/microsim/internal/geometry"
)

// Geometric constants governing intersection expansion, all in meters.
const (
	IntersectionRadius = 8.0
	RoundaboutRadius   = 8.0
	RampLength         = 8.0
	LaneOffset         = 1.75

	// conflictSamples is the number of points sampled along each
	// micro-segment when testing two regular-intersection turns for
	// geometric overlap.
	conflictSamples = 11
	// conflictThreshold is the distance below which two sampled points on
	// different micro-segments are considered a physical conflict.
	conflictThreshold = 2.0
)

// Road is the mutable network builder. Construct one with NewRoad, add
// nodes and segments, then call Finalize exactly once to expand every
// intersection marker into its micro-segment bubble.
type Road struct {
	Nodes         *arena.Arena[Node]
	Segments      *arena.Arena[Segment]
	Intersections *arena.Arena[Intersection]

	finalized           bool
	segmentIntersection map[SegmentID]IntersectionID
}

// NewRoad creates an empty, unfinalized network.
func NewRoad() *Road {
	return &Road{
		Nodes:               arena.New[Node](),
		Segments:            arena.New[Segment](),
		Intersections:       arena.New[Intersection](),
		segmentIntersection: map[SegmentID]IntersectionID{},
	}
}

func (r *Road) node(id NodeID) *Node          { return r.Nodes.Get(id) }
func (r *Road) segment(id SegmentID) *Segment { return r.Segments.Get(id) }

// AddNode adds a plain waypoint node.
func (r *Road) AddNode(pos geometry.Point) NodeID {
	return r.Nodes.Alloc(Node{Position: pos})
}

// AddSpawnNode adds a node vehicles may be created at.
func (r *Road) AddSpawnNode(pos geometry.Point) NodeID {
	return r.Nodes.Alloc(Node{Position: pos, IsSpawn: true})
}

// AddDespawnNode adds a node vehicles are removed at on arrival.
func (r *Road) AddDespawnNode(pos geometry.Point) NodeID {
	return r.Nodes.Alloc(Node{Position: pos, IsDespawn: true})
}

// AddEdgeNode adds a node that is both a spawn source and a despawn sink.
func (r *Road) AddEdgeNode(pos geometry.Point) NodeID {
	return r.Nodes.Alloc(Node{Position: pos, IsSpawn: true, IsDespawn: true})
}

// AddIntersectionNode marks pos as a multi-way intersection that Finalize
// will expand into a bubble of micro-segments, adjudicated by resolver.
func (r *Road) AddIntersectionNode(pos geometry.Point, resolver YieldResolver) NodeID {
	return r.Nodes.Alloc(Node{Position: pos, YieldResolver: resolver})
}

// AddSegment adds a directed road segment from -> to.
func (r *Road) AddSegment(from, to NodeID, speedLimit float64) SegmentID {
	fromPos := r.node(from).Position
	toPos := r.node(to).Position
	id := r.Segments.Alloc(Segment{
		From:       from,
		To:         to,
		SpeedLimit: speedLimit,
		Shape:      geometry.Straight{},
		Length:     geometry.Length(geometry.Straight{}, fromPos, toPos),
	})
	r.node(from).Outgoing = append(r.node(from).Outgoing, id)
	r.node(to).Incoming = append(r.node(to).Incoming, id)
	return id
}

// AddBidirectional adds two opposing segments between a and b.
func (r *Road) AddBidirectional(a, b NodeID, speedLimit float64) (SegmentID, SegmentID) {
	return r.AddSegment(a, b, speedLimit), r.AddSegment(b, a, speedLimit)
}

// snapshotArm is one spoke of an intersection, captured before any mutation
// so that Pass2's rewiring cannot perturb the angles and edge-node target
// positions Pass1 computed.
type snapshotArm struct {
	Segment    SegmentID
	Other      NodeID // the node at the far end of the original segment
	Dir        geometry.Point
	TargetPos  geometry.Point
	Angle      float64
	SpeedLimit float64
}

// Finalize expands every intersection-marker node into its micro-segment
// bubble. It must be called exactly once, after all nodes and segments have
// been added, and before the network is queried by a pathfinder or
// simulation. Calling it twice is a no-op.
func (r *Road) Finalize() {
	if r.finalized {
		return
	}
	r.finalized = true

	edgeDistanceRegular := IntersectionRadius
	edgeDistanceRoundabout := RoundaboutRadius + RampLength

	edgeNodes := map[NodeID]bool{}

	// Collect every node that is currently wired as a multi-way
	// intersection: it carries a YieldResolver and has more than one
	// incoming and more than one outgoing segment recorded at Pass1 time.
	type pending struct {
		id       NodeID
		entries  []snapshotArm
		exits    []snapshotArm
		resolver YieldResolver
	}
	var bubbles []pending

	r.Nodes.IterWithIds(func(id NodeID, n *Node) {
		if n.YieldResolver == nil {
			return
		}
		if len(n.Incoming) < 2 || len(n.Outgoing) < 2 {
			return
		}
		edgeDistance := edgeDistanceRegular
		if n.YieldResolver.IsRoundabout() {
			edgeDistance = edgeDistanceRoundabout
		}

		entries := make([]snapshotArm, 0, len(n.Incoming))
		for _, segID := range n.Incoming {
			seg := r.segment(segID)
			from := r.node(seg.From).Position
			dir := n.Position.Sub(from).Normalize()
			perp := dir.PerpRight()
			target := n.Position.Sub(dir.Scale(edgeDistance)).Add(perp.Scale(LaneOffset))
			angle := normalizeAngle(math.Atan2(-dir.Y, -dir.X))
			entries = append(entries, snapshotArm{
				Segment: segID, Other: seg.From, Dir: dir,
				TargetPos: target, Angle: angle, SpeedLimit: seg.SpeedLimit,
			})
		}

		exits := make([]snapshotArm, 0, len(n.Outgoing))
		for _, segID := range n.Outgoing {
			seg := r.segment(segID)
			to := r.node(seg.To).Position
			dir := to.Sub(n.Position).Normalize()
			perp := dir.PerpRight()
			target := n.Position.Add(dir.Scale(edgeDistance)).Add(perp.Scale(LaneOffset))
			angle := normalizeAngle(math.Atan2(dir.Y, dir.X))
			exits = append(exits, snapshotArm{
				Segment: segID, Other: seg.To, Dir: dir,
				TargetPos: target, Angle: angle, SpeedLimit: seg.SpeedLimit,
			})
		}

		bubbles = append(bubbles, pending{id: id, entries: entries, exits: exits, resolver: n.YieldResolver})
	})

	for _, b := range bubbles {
		r.expandIntersection(b.id, b.entries, b.exits, b.resolver, edgeNodes)
	}

	r.offsetPlainStraights(edgeNodes)
	r.computeConflicts()

	r.Intersections.IterWithIds(func(id IntersectionID, isect *Intersection) {
		for _, segID := range isect.Incoming {
			r.segmentIntersection[segID] = id
		}
	})
}

func normalizeAngle(a float64) float64 {
	if a <= -math.Pi {
		return math.Pi
	}
	return a
}

// expandIntersection runs Pass 2 for one intersection-marker node: it
// creates edge nodes for every arm, rewires the original segments onto
// them, builds the intersection's internal micro-segments (regular turns
// or roundabout on-ramp/circle/off-ramp), and records the resulting
// Intersection in r.Intersections.
func (r *Road) expandIntersection(nodeID NodeID, entries, exits []snapshotArm, resolver YieldResolver, edgeNodes map[NodeID]bool) {
	n := r.node(nodeID)

	entryEdge := make([]NodeID, len(entries))
	for i, e := range entries {
		id := r.Nodes.Alloc(Node{Position: e.TargetPos, IsSpawn: false, IsDespawn: n.IsDespawn})
		edgeNodes[id] = true
		entryEdge[i] = id
		seg := r.segment(e.Segment)
		seg.To = id
		seg.Length = geometry.Length(seg.Shape, r.node(seg.From).Position, e.TargetPos)
		r.node(id).Incoming = append(r.node(id).Incoming, e.Segment)
	}

	exitEdge := make([]NodeID, len(exits))
	for i, x := range exits {
		id := r.Nodes.Alloc(Node{Position: x.TargetPos, IsSpawn: n.IsSpawn, IsDespawn: false})
		edgeNodes[id] = true
		exitEdge[i] = id
		seg := r.segment(x.Segment)
		seg.From = id
		seg.Length = geometry.Length(seg.Shape, x.TargetPos, r.node(seg.To).Position)
		r.node(id).Outgoing = append(r.node(id).Outgoing, x.Segment)
	}

	isect := Intersection{
		Position:        n.Position,
		Conflicts:       map[SegmentID][]SegmentID{},
		EntryDirections: map[SegmentID]geometry.Point{},
		YieldResolver:   resolver,
		isRoundabout:    resolver.IsRoundabout(),
	}
	for _, id := range entryEdge {
		isect.EdgeNodes = append(isect.EdgeNodes, id)
	}
	for _, id := range exitEdge {
		isect.EdgeNodes = append(isect.EdgeNodes, id)
	}

	addMicro := func(segID SegmentID) {
		isect.Incoming = append(isect.Incoming, segID)
		isect.Outgoing = append(isect.Outgoing, segID)
	}

	if resolver.IsRoundabout() {
		r.buildRoundabout(n.Position, entries, exits, entryEdge, exitEdge, &isect, addMicro)
	} else {
		r.buildRegularTurns(entries, exits, entryEdge, exitEdge, &isect, addMicro)
	}

	r.Intersections.Alloc(isect)
	r.node(nodeID).Incoming = nil
	r.node(nodeID).Outgoing = nil
}

// buildRegularTurns implements Pass 2b for a non-roundabout intersection:
// every (entry, exit) pair not recognized as a U-turn becomes one
// micro-segment, straight-through, left or right depending on the angle
// between the two arms.
func (r *Road) buildRegularTurns(entries, exits []snapshotArm, entryEdge, exitEdge []NodeID, isect *Intersection, addMicro func(SegmentID)) {
	for i, e := range entries {
		for j, x := range exits {
			dot := e.Dir.Dot(x.Dir)
			if dot < -0.9 {
				continue // U-turn: no micro-segment generated
			}

			fromPos := e.TargetPos
			toPos := x.TargetPos
			speed := e.SpeedLimit
			if x.SpeedLimit < speed {
				speed = x.SpeedLimit
			}

			var shape geometry.Shape
			var turn TurnType
			if dot > 0.95 {
				shape = geometry.Straight{}
				turn = TurnType{Kind: TurnStraight, Cross: 0}
			} else {
				cross := e.Dir.Cross(x.Dir)
				center, ok := geometry.ArcCenterFromPerpendiculars(fromPos, e.Dir, toPos, x.Dir)
				if !ok {
					shape = geometry.Straight{}
				} else {
					radius := center.Sub(fromPos).Length2D()
					shape = geometry.Curved{Center: center, Radius: radius, Clockwise: cross < 0}
				}
				if cross < 0 {
					turn = TurnType{Kind: TurnRight, Cross: cross}
				} else {
					turn = TurnType{Kind: TurnLeft, Cross: cross}
				}
			}

			segID := r.Segments.Alloc(Segment{
				From: entryEdge[i], To: exitEdge[j], SpeedLimit: speed,
				Shape: shape, TurnType: turn,
				Length: geometry.Length(shape, fromPos, toPos),
			})
			r.node(entryEdge[i]).Outgoing = append(r.node(entryEdge[i]).Outgoing, segID)
			r.node(exitEdge[j]).Incoming = append(r.node(exitEdge[j]).Incoming, segID)
			addMicro(segID)
			isect.EntryDirections[segID] = e.Dir
		}
	}
}

// buildRoundabout implements Pass 2b for a roundabout intersection: a ring
// of circle nodes is created around the center, one per arm in angular
// order, joined by circle segments; every entry gets an on-ramp into its
// circle node and every exit gets an off-ramp from the preceding one.
func (r *Road) buildRoundabout(center geometry.Point, entries, exits []snapshotArm, entryEdge, exitEdge []NodeID, isect *Intersection, addMicro func(SegmentID)) {
	type arm struct {
		angle    float64
		entryIdx int // index into entries, or -1
		exitIdx  int // index into exits, or -1
	}
	var arms []arm
	for i, e := range entries {
		arms = append(arms, arm{angle: e.Angle, entryIdx: i, exitIdx: -1})
	}
	for j, x := range exits {
		arms = append(arms, arm{angle: x.Angle, entryIdx: -1, exitIdx: j})
	}
	sort.Slice(arms, func(i, j int) bool { return arms[i].angle < arms[j].angle })

	circleNode := make([]NodeID, len(arms))
	for i, a := range arms {
		theta := a.angle + math.Pi/4
		pos := geometry.Point{
			X: center.X + RoundaboutRadius*math.Cos(theta),
			Y: center.Y + RoundaboutRadius*math.Sin(theta),
		}
		circleNode[i] = r.Nodes.Alloc(Node{Position: pos})
	}

	n := len(arms)
	for i := 0; i < n; i++ {
		from := circleNode[i]
		to := circleNode[(i+1)%n]
		segID := r.Segments.Alloc(Segment{
			From: from, To: to, SpeedLimit: slowSpeed,
			Shape:    geometry.Curved{Center: center, Radius: RoundaboutRadius, Clockwise: false},
			TurnType: TurnType{Kind: TurnRoundaboutCircle},
		})
		r.segment(segID).Length = geometry.Length(r.segment(segID).Shape, r.node(from).Position, r.node(to).Position)
		r.node(from).Outgoing = append(r.node(from).Outgoing, segID)
		r.node(to).Incoming = append(r.node(to).Incoming, segID)
		addMicro(segID)
		isect.EntryDirections[segID] = geometry.DirectionAt(r.segment(segID).Shape, r.node(from).Position, r.node(to).Position, 0)
	}

	for i, a := range arms {
		if a.entryIdx < 0 {
			continue
		}
		e := entries[a.entryIdx]
		entryNode := entryEdge[a.entryIdx]
		circlePos := r.node(circleNode[i]).Position
		var shape geometry.Shape
		if cx, radius, cw, ok := geometry.ComputeArc(e.TargetPos, e.Dir, circlePos); ok && radius > 0 {
			shape = geometry.Curved{Center: cx, Radius: radius, Clockwise: cw}
		} else {
			shape = geometry.Straight{}
		}
		segID := r.Segments.Alloc(Segment{
			From: entryNode, To: circleNode[i], SpeedLimit: slowSpeed,
			Shape: shape, TurnType: TurnType{Kind: TurnRoundaboutEntry},
		})
		r.segment(segID).Length = geometry.Length(shape, e.TargetPos, circlePos)
		r.node(entryNode).Outgoing = append(r.node(entryNode).Outgoing, segID)
		r.node(circleNode[i]).Incoming = append(r.node(circleNode[i]).Incoming, segID)
		addMicro(segID)
		isect.EntryDirections[segID] = e.Dir
	}

	for i, a := range arms {
		if a.exitIdx < 0 {
			continue
		}
		x := exits[a.exitIdx]
		exitNode := exitEdge[a.exitIdx]
		prev := (i - 1 + n) % n
		circlePos := r.node(circleNode[prev]).Position
		radial := circlePos.Sub(center)
		tangent := geometry.Point{X: -radial.Y, Y: radial.X}.Normalize()
		var shape geometry.Shape
		if cx, radius, cw, ok := geometry.ComputeArc(circlePos, tangent, x.TargetPos); ok && radius > 0 {
			shape = geometry.Curved{Center: cx, Radius: radius, Clockwise: cw}
		} else {
			shape = geometry.Straight{}
		}
		segID := r.Segments.Alloc(Segment{
			From: circleNode[prev], To: exitNode, SpeedLimit: slowSpeed,
			Shape: shape, TurnType: TurnType{Kind: TurnRoundaboutExit},
		})
		r.segment(segID).Length = geometry.Length(shape, circlePos, x.TargetPos)
		r.node(circleNode[prev]).Outgoing = append(r.node(circleNode[prev]).Outgoing, segID)
		r.node(exitNode).Incoming = append(r.node(exitNode).Incoming, segID)
		addMicro(segID)
		isect.EntryDirections[segID] = tangent
	}
}

const slowSpeed = 5.5

// offsetPlainStraights implements Pass 3: every remaining Straight segment
// gets each of its non-edge endpoints replaced by a new node offset
// LaneOffset to the right of the segment's direction, so opposing traffic
// on the same logical road occupies visibly distinct lanes.
func (r *Road) offsetPlainStraights(edgeNodes map[NodeID]bool) {
	for _, segID := range r.Segments.Ids() {
		seg := r.segment(segID)
		if _, ok := seg.Shape.(geometry.Straight); !ok {
			continue
		}
		fromPos := r.node(seg.From).Position
		toPos := r.node(seg.To).Position
		dir := toPos.Sub(fromPos).Normalize()
		perp := dir.PerpRight()

		if !edgeNodes[seg.From] {
			oldFrom := r.node(seg.From)
			newID := r.Nodes.Alloc(Node{
				Position: fromPos.Add(perp.Scale(LaneOffset)),
				IsSpawn:  oldFrom.IsSpawn,
			})
			removeSegment(&r.node(seg.From).Outgoing, segID)
			r.node(newID).Outgoing = append(r.node(newID).Outgoing, segID)
			seg.From = newID
		}
		if !edgeNodes[seg.To] {
			oldTo := r.node(seg.To)
			newID := r.Nodes.Alloc(Node{
				Position: toPos.Add(perp.Scale(LaneOffset)),
				IsDespawn: oldTo.IsDespawn,
			})
			removeSegment(&r.node(seg.To).Incoming, segID)
			r.node(newID).Incoming = append(r.node(newID).Incoming, segID)
			seg.To = newID
		}
		seg.Length = geometry.Length(seg.Shape, r.node(seg.From).Position, r.node(seg.To).Position)
	}
}

func removeSegment(list *[]SegmentID, id SegmentID) {
	out := (*list)[:0]
	for _, s := range *list {
		if s != id {
			out = append(out, s)
		}
	}
	*list = out
}

// computeConflicts implements Pass 4: for every intersection, every
// unordered pair of its micro-segments is tested for a physical conflict,
// geometric overlap for regular intersections, or the roundabout
// entry-vs-circle merge rule for roundabouts.
func (r *Road) computeConflicts() {
	r.Intersections.IterWithIds(func(_ IntersectionID, isect *Intersection) {
		segs := isect.Incoming
		for a := 0; a < len(segs); a++ {
			for b := a + 1; b < len(segs); b++ {
				sa, sb := segs[a], segs[b]
				var conflict bool
				if isect.isRoundabout {
					conflict = r.roundaboutConflict(sa, sb)
				} else {
					conflict = r.geometricConflict(sa, sb)
				}
				if conflict {
					isect.Conflicts[sa] = append(isect.Conflicts[sa], sb)
					isect.Conflicts[sb] = append(isect.Conflicts[sb], sa)
				}
			}
		}
	})
}

func (r *Road) roundaboutConflict(a, b SegmentID) bool {
	sa, sb := r.segment(a), r.segment(b)
	entry, circle := sa, sb
	if sa.TurnType.Kind != TurnRoundaboutEntry {
		entry, circle = sb, sa
	}
	if entry.TurnType.Kind != TurnRoundaboutEntry || circle.TurnType.Kind != TurnRoundaboutCircle {
		return false
	}
	return entry.To == circle.To
}

func (r *Road) geometricConflict(a, b SegmentID) bool {
	sa, sb := r.segment(a), r.segment(b)
	fromA, toA := r.node(sa.From).Position, r.node(sa.To).Position
	fromB, toB := r.node(sb.From).Position, r.node(sb.To).Position
	for i := 0; i < conflictSamples; i++ {
		t := float64(i) / float64(conflictSamples-1)
		pa := geometry.PositionAt(sa.Shape, fromA, toA, t)
		for j := 0; j < conflictSamples; j++ {
			u := float64(j) / float64(conflictSamples-1)
			pb := geometry.PositionAt(sb.Shape, fromB, toB, u)
			if pa.Sub(pb).Length2D() < conflictThreshold {
				return true
			}
		}
	}
	return false
}
