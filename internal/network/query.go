package network

import "github.com/fib-traffic/microsim/internal/geometry"

// PositionAt returns a point along segment id at parametric progress t,
// exactly as the renderer/UI interface is specified to compute it:
// segment.geometry.position_at(from.pos, to.pos, t).
func (r *Road) PositionAt(id SegmentID, t float64) geometry.Point {
	seg := r.segment(id)
	from := r.node(seg.From).Position
	to := r.node(seg.To).Position
	return geometry.PositionAt(seg.Shape, from, to, t)
}

// DirectionAt returns the heading along segment id at parametric progress t.
func (r *Road) DirectionAt(id SegmentID, t float64) geometry.Point {
	seg := r.segment(id)
	from := r.node(seg.From).Position
	to := r.node(seg.To).Position
	return geometry.DirectionAt(seg.Shape, from, to, t)
}

// IntersectionFor returns the intersection that owns micro-segment id, if
// any; plain road segments outside any intersection bubble return false.
func (r *Road) IntersectionFor(id SegmentID) (IntersectionID, bool) {
	isectID, ok := r.segmentIntersection[id]
	return isectID, ok
}
