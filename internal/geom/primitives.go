/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geom

import (
	"errors"
	"math"

	"seehuhn.de/go/geom/vec"
)

// Tolerances of the primitive solvers.
const (
	// DegenerateDet is the smallest circumcenter determinant accepted.
	DegenerateDet = 1e-4
	// ParallelDen is the smallest intersection denominator accepted.
	ParallelDen = 1e-6
	// ParamEps widens the [0,1] segment parameter range so endpoint
	// touching still counts as an intersection.
	ParamEps = 1e-6
)

var (
	// ErrDegenerate reports collinear input where a circle or arc was requested.
	ErrDegenerate = errors.New("degenerate geometry: points are collinear")
	// ErrZeroLength reports a segment whose endpoints coincide.
	ErrZeroLength = errors.New("degenerate geometry: zero-length segment")
)

// Segment is a straight piece between two points.
type Segment struct{ A, B Point3D }

func (s Segment) Length() float64 { return s.A.Dist2D(s.B) }
func (s Segment) Mid() Point3D    { return s.A.Lerp(s.B, 0.5) }

// Degenerate reports zero length or non-finite endpoints.
func (s Segment) Degenerate() bool {
	return !s.A.Valid() || !s.B.Valid() || s.Length() < 1e-9
}

// Circumcenter returns the center of the circle through three workplane
// points using the determinant of the two perpendicular bisectors.
// Collinear input yields ErrDegenerate.
func Circumcenter(p1, p2, p3 vec.Vec2) (vec.Vec2, error) {
	d := 2 * (p1.X*(p2.Y-p3.Y) + p2.X*(p3.Y-p1.Y) + p3.X*(p1.Y-p2.Y))
	if math.Abs(d) < DegenerateDet {
		return vec.Vec2{}, ErrDegenerate
	}
	s1 := p1.X*p1.X + p1.Y*p1.Y
	s2 := p2.X*p2.X + p2.Y*p2.Y
	s3 := p3.X*p3.X + p3.Y*p3.Y
	return vec.Vec2{
		X: (s1*(p2.Y-p3.Y) + s2*(p3.Y-p1.Y) + s3*(p1.Y-p2.Y)) / d,
		Y: (s1*(p3.X-p2.X) + s2*(p1.X-p3.X) + s3*(p2.X-p1.X)) / d,
	}, nil
}

// LineParams intersects the infinite lines through a1→a2 and b1→b2 and
// returns the parameters t (along a) and u (along b) of the crossing.
// ok is false for parallel lines.
func LineParams(a1, a2, b1, b2 Point3D) (t, u float64, ok bool) {
	r := a2.XY().Sub(a1.XY())
	s := b2.XY().Sub(b1.XY())
	den := cross(r, s)
	if math.Abs(den) < ParallelDen {
		return 0, 0, false
	}
	q := b1.XY().Sub(a1.XY())
	t = cross(q, s) / den
	u = cross(q, r) / den
	return t, u, true
}

// SegmentIntersection returns the crossing of two finite segments. The
// returned Z is interpolated along the first segment. Parallel or
// collinear segments never intersect.
func SegmentIntersection(a1, a2, b1, b2 Point3D) (Point3D, bool) {
	t, u, ok := LineParams(a1, a2, b1, b2)
	if !ok {
		return Point3D{}, false
	}
	if t < -ParamEps || t > 1+ParamEps || u < -ParamEps || u > 1+ParamEps {
		return Point3D{}, false
	}
	return a1.Lerp(a2, t), true
}

// Projection is the orthogonal foot of a point on a segment's line.
// T outside [0,1] means the foot lies beyond the segment.
type Projection struct {
	Point Point3D
	T     float64
}

// OnSegment reports whether the foot lies within the segment.
func (p Projection) OnSegment() bool { return p.T >= 0 && p.T <= 1 }

// ProjectPointOnSegment projects p orthogonally onto the line a→b.
// A zero-length segment projects onto a with T = 0.
func ProjectPointOnSegment(p, a, b Point3D) Projection {
	d := b.XY().Sub(a.XY())
	l2 := dot(d, d)
	if l2 == 0 {
		return Projection{Point: a, T: 0}
	}
	t := dot(p.XY().Sub(a.XY()), d) / l2
	return Projection{Point: a.Lerp(b, t), T: t}
}

// DistanceToSegment is the workplane distance from p to the closest point
// of the finite segment a→b.
func DistanceToSegment(p, a, b Point3D) float64 {
	pr := ProjectPointOnSegment(p, a, b)
	t := math.Max(0, math.Min(1, pr.T))
	return p.Dist2D(a.Lerp(b, t))
}

// OffsetSegment shifts a→b sideways by dist along its left normal.
func OffsetSegment(a, b Point3D, dist float64) (Segment, error) {
	d := b.XY().Sub(a.XY())
	l := d.Length()
	if l < 1e-9 {
		return Segment{}, ErrZeroLength
	}
	n := vec.Vec2{X: -d.Y / l, Y: d.X / l}.Mul(dist)
	off := Point3D{X: n.X, Y: n.Y}
	return Segment{A: a.Add(off), B: b.Add(off)}, nil
}

// Side returns +1 when p lies left of a→b, -1 when right, 0 on the line.
func Side(p, a, b Point3D) int {
	c := cross(b.XY().Sub(a.XY()), p.XY().Sub(a.XY()))
	switch {
	case c > 0:
		return 1
	case c < 0:
		return -1
	default:
		return 0
	}
}

func cross(a, b vec.Vec2) float64 { return a.X*b.Y - a.Y*b.X }
func dot(a, b vec.Vec2) float64   { return a.X*b.X + a.Y*b.Y }
