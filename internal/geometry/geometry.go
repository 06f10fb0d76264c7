// Package geometry implements the two segment-shape variants the network
// builder emits: straight lines and circular arcs. Both share the
// length/position_at/direction_at contract described by the simulation
// spec, dispatched by a type switch rather than an interface hierarchy,
// there are exactly two shapes and no others are planned.
package geometry

import "math"

// epsilon is the tolerance used throughout the package to guard against
// degenerate (zero-length, NaN-producing) inputs.
const epsilon = 1e-4

// Point is a 3-vector in the plane; Z is height and is conventionally 0 for
// road geometry.
type Point struct {
	X, Y, Z float64
}

// Add returns p+q.
func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y, p.Z + q.Z} }

// Sub returns p-q.
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y, p.Z - q.Z} }

// Scale returns p*k.
func (p Point) Scale(k float64) Point { return Point{p.X * k, p.Y * k, p.Z * k} }

// Dot returns the 2D dot product (Z ignored).
func (p Point) Dot(q Point) float64 { return p.X*q.X + p.Y*q.Y }

// Cross returns the Z component of the 2D cross product p x q.
func (p Point) Cross(q Point) float64 { return p.X*q.Y - p.Y*q.X }

// Length2D returns the Euclidean norm in the XY plane.
func (p Point) Length2D() float64 { return math.Hypot(p.X, p.Y) }

// Normalize returns a unit vector in the direction of p, or the zero vector
// if p is degenerate (length below epsilon): this is the "fall back to a
// defined sentinel instead of NaN" behavior the spec requires.
func (p Point) Normalize() Point {
	l := p.Length2D()
	if l < epsilon {
		return Point{}
	}
	return Point{p.X / l, p.Y / l, 0}
}

// Perp returns p rotated 90 degrees counter-clockwise in the XY plane
// (equivalent to Z-hat x p).
func (p Point) Perp() Point { return Point{-p.Y, p.X, 0} }

// PerpRight returns p x Z-hat, the clockwise (right-hand-traffic) normal
// used to offset lanes and edge nodes to the correct side of a heading.
func (p Point) PerpRight() Point { return Point{p.Y, -p.X, 0} }

// Lerp returns the linear interpolation between a and b at t.
func Lerp(a, b Point, t float64) Point {
	return Point{
		X: a.X + (b.X-a.X)*t,
		Y: a.Y + (b.Y-a.Y)*t,
		Z: a.Z + (b.Z-a.Z)*t,
	}
}

// Shape is the tagged union of segment geometries. Straight and Curved are
// the only two implementations; dispatch is always a type switch, never an
// interface method lookup table, to keep the shapes plain data.
type Shape interface {
	isShape()
}

// Straight is a line segment between two endpoints.
type Straight struct{}

func (Straight) isShape() {}

// Curved is a circular arc. Clockwise describes travel direction from the
// segment's From point to its To point.
type Curved struct {
	Center    Point
	Radius    float64
	Clockwise bool
}

func (Curved) isShape() {}

// Length returns the physical length of the shape between from and to.
func Length(shape Shape, from, to Point) float64 {
	switch s := shape.(type) {
	case Straight:
		return from.Sub(to).Length2D()
	case Curved:
		thetaFrom := math.Atan2(from.Y-s.Center.Y, from.X-s.Center.X)
		thetaTo := math.Atan2(to.Y-s.Center.Y, to.X-s.Center.X)
		delta := angleDelta(thetaFrom, thetaTo, s.Clockwise)
		return s.Radius * math.Abs(delta)
	default:
		panic("geometry: unknown shape")
	}
}

// angleDelta returns thetaTo-thetaFrom corrected so its sign matches the
// travel direction: clockwise travel yields a non-positive delta, counter-
// clockwise a non-negative one.
func angleDelta(thetaFrom, thetaTo float64, clockwise bool) float64 {
	delta := thetaTo - thetaFrom
	if clockwise {
		for delta > 0 {
			delta -= 2 * math.Pi
		}
	} else {
		for delta < 0 {
			delta += 2 * math.Pi
		}
	}
	return delta
}

// PositionAt returns the point at parameter t in [0,1] along shape, snapping
// exactly to from/to at the boundaries.
func PositionAt(shape Shape, from, to Point, t float64) Point {
	if t <= 0 {
		return from
	}
	if t >= 1 {
		return to
	}
	switch s := shape.(type) {
	case Straight:
		return Lerp(from, to, t)
	case Curved:
		thetaFrom := math.Atan2(from.Y-s.Center.Y, from.X-s.Center.X)
		thetaTo := math.Atan2(to.Y-s.Center.Y, to.X-s.Center.X)
		delta := angleDelta(thetaFrom, thetaTo, s.Clockwise)
		theta := thetaFrom + delta*t
		return Point{
			X: s.Center.X + s.Radius*math.Cos(theta),
			Y: s.Center.Y + s.Radius*math.Sin(theta),
			Z: from.Z,
		}
	default:
		panic("geometry: unknown shape")
	}
}

// DirectionAt returns the unit tangent direction at parameter t.
func DirectionAt(shape Shape, from, to Point, t float64) Point {
	switch s := shape.(type) {
	case Straight:
		return to.Sub(from).Normalize()
	case Curved:
		pos := PositionAt(shape, from, to, t)
		radial := Point{X: pos.X - s.Center.X, Y: pos.Y - s.Center.Y}
		if s.Clockwise {
			return Point{X: radial.Y, Y: -radial.X}.Normalize()
		}
		return Point{X: -radial.Y, Y: radial.X}.Normalize()
	default:
		panic("geometry: unknown shape")
	}
}

// ComputeArc finds the center and handedness of the arc that passes through
// p1 and p2, tangent to dir1 at p1: the "on-ramp" construction used when
// expanding roundabouts. It is the intersection of the perpendicular to
// dir1 through p1 with the perpendicular bisector of p1p2.
//
// Falls back to (center at p1, radius 0) when the construction is
// degenerate (p1==p2 or dir1 is degenerate); callers must treat a
// near-zero radius as "use a straight segment instead".
func ComputeArc(p1 Point, dir1 Point, p2 Point) (center Point, radius float64, clockwise bool, ok bool) {
	dir1 = dir1.Normalize()
	if dir1 == (Point{}) {
		return p1, 0, false, false
	}
	// Perpendicular to dir1 through p1: p1 + s*perp1.
	perp1 := dir1.Perp()
	// Perpendicular bisector of p1p2: passes through mid, direction
	// perpendicular to (p2-p1).
	mid := Lerp(p1, p2, 0.5)
	chord := p2.Sub(p1)
	if chord.Length2D() < epsilon {
		return p1, 0, false, false
	}
	bisDir := chord.Perp()

	// Solve p1 + s*perp1 == mid + u*bisDir for s (2D linear system).
	det := perp1.X*(-bisDir.Y) - perp1.Y*(-bisDir.X)
	if math.Abs(det) < epsilon {
		return p1, 0, false, false
	}
	rhsX := mid.X - p1.X
	rhsY := mid.Y - p1.Y
	s := (rhsX*(-bisDir.Y) - rhsY*(-bisDir.X)) / det
	center = Point{X: p1.X + s*perp1.X, Y: p1.Y + s*perp1.Y}
	radius = center.Sub(p1).Length2D()
	if radius < epsilon || math.IsNaN(radius) {
		return p1, 0, false, false
	}
	// Handedness: does dir1 point clockwise or counter-clockwise around
	// center when standing at p1?
	radial := p1.Sub(center)
	tangentCCW := Point{X: -radial.Y, Y: radial.X}.Normalize()
	clockwise = tangentCCW.Dot(dir1) < 0
	return center, radius, clockwise, true
}

// ArcCenterFromPerpendiculars finds the center of an arc tangent to dir1 at
// p1 and to dir2 at p2 (the "regular intersection turn" construction): the
// intersection of the two perpendiculars to dir1/dir2 through p1/p2.
// Falls back to ok=false on parallel perpendiculars (degenerate pair).
func ArcCenterFromPerpendiculars(p1, dir1, p2, dir2 Point) (center Point, ok bool) {
	dir1 = dir1.Normalize()
	dir2 = dir2.Normalize()
	if dir1 == (Point{}) || dir2 == (Point{}) {
		return Point{}, false
	}
	perp1 := dir1.Perp()
	perp2 := dir2.Perp()
	det := perp1.X*(-perp2.Y) - perp1.Y*(-perp2.X)
	if math.Abs(det) < epsilon {
		return Point{}, false
	}
	rhsX := p2.X - p1.X
	rhsY := p2.Y - p1.Y
	s := (rhsX*(-perp2.Y) - rhsY*(-perp2.X)) / det
	center = Point{X: p1.X + s*perp1.X, Y: p1.Y + s*perp1.Y}
	if math.IsNaN(center.X) || math.IsNaN(center.Y) {
		return Point{}, false
	}
	return center, true
}
