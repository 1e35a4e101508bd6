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
	"testing"

	"seehuhn.de/go/geom/vec"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestBoundsExtendUnionInset(t *testing.T) {
	b := BoundsOf([]Point3D{P(10, 20, 0), P(110, 70, 0)})
	if !b.Contains(P(10, 20, 0)) || !b.Contains(P(110, 70, 0)) {
		t.Fatalf("expected edge points to be contained")
	}
	in := b.Inset(5)
	if in.Min.X != 15 || in.Min.Y != 25 || in.W() != 90 || in.H() != 40 {
		t.Fatalf("unexpected inset: %+v", in)
	}
	u := EmptyBounds().Union(b)
	if u != b {
		t.Fatalf("union with empty should be identity, got %+v", u)
	}
	r := b.Rect()
	if r.LLx != 10 || r.URy != 70 {
		t.Fatalf("unexpected rect conversion: %+v", r)
	}
}

func TestQuantize(t *testing.T) {
	q := Quantize(P(1.26, -0.74, 3), 0.5)
	if !near(q.X, 1.5) || !near(q.Y, -0.5) || q.Z != 3 {
		t.Fatalf("unexpected grid point: %+v", q)
	}
	if Quantize(P(1.26, 2, 0), 0) != P(1.26, 2, 0) {
		t.Fatalf("zero grid must not move the point")
	}
}

func TestCircumcenter(t *testing.T) {
	c, err := Circumcenter(vec.Vec2{X: 0, Y: 0}, vec.Vec2{X: 2, Y: 0}, vec.Vec2{X: 0, Y: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !near(c.X, 1) || !near(c.Y, 1) {
		t.Fatalf("expected center (1,1), got %+v", c)
	}
	_, err = Circumcenter(vec.Vec2{X: 0, Y: 0}, vec.Vec2{X: 5, Y: 0}, vec.Vec2{X: 10, Y: 0})
	if !errors.Is(err, ErrDegenerate) {
		t.Fatalf("expected ErrDegenerate for collinear points, got %v", err)
	}
}

func TestSegmentIntersection_Crossing(t *testing.T) {
	p, ok := SegmentIntersection(P(0, 0, 0), P(10, 10, 0), P(0, 10, 0), P(10, 0, 0))
	if !ok {
		t.Fatalf("expected an intersection")
	}
	if !near(p.X, 5) || !near(p.Y, 5) {
		t.Fatalf("expected (5,5), got %+v", p)
	}
}

func TestSegmentIntersection_CollinearDisjoint(t *testing.T) {
	if _, ok := SegmentIntersection(P(0, 0, 0), P(1, 0, 0), P(2, 0, 0), P(3, 0, 0)); ok {
		t.Fatalf("collinear non-overlapping segments must not intersect")
	}
}

func TestSegmentIntersection_OutsideSegments(t *testing.T) {
	// the lines cross at (5,5) but the second segment stops short of it
	if _, ok := SegmentIntersection(P(0, 0, 0), P(10, 10, 0), P(0, 10, 0), P(4, 6, 0)); ok {
		t.Fatalf("intersection beyond a segment end must be rejected")
	}
	// endpoint touching counts
	if _, ok := SegmentIntersection(P(0, 0, 0), P(5, 5, 0), P(5, 5, 0), P(10, 0, 0)); !ok {
		t.Fatalf("touching endpoints should intersect")
	}
}

func TestProjectPointOnSegment(t *testing.T) {
	pr := ProjectPointOnSegment(P(3, 4, 0), P(0, 0, 0), P(10, 0, 0))
	if !near(pr.T, 0.3) || !near(pr.Point.X, 3) || !near(pr.Point.Y, 0) || !pr.OnSegment() {
		t.Fatalf("unexpected projection: %+v", pr)
	}
	pr = ProjectPointOnSegment(P(-2, 1, 0), P(0, 0, 0), P(10, 0, 0))
	if pr.OnSegment() {
		t.Fatalf("foot before the start must be off-segment: %+v", pr)
	}
	if d := DistanceToSegment(P(-3, 4, 0), P(0, 0, 0), P(10, 0, 0)); !near(d, 5) {
		t.Fatalf("expected clamped distance 5, got %v", d)
	}
}

func TestOffsetSegmentAndSide(t *testing.T) {
	s, err := OffsetSegment(P(0, 0, 0), P(10, 0, 0), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !near(s.A.Y, 2) || !near(s.B.Y, 2) || !near(s.B.X, 10) {
		t.Fatalf("expected segment shifted to y=2, got %+v", s)
	}
	if Side(P(5, 1, 0), P(0, 0, 0), P(10, 0, 0)) != 1 || Side(P(5, -1, 0), P(0, 0, 0), P(10, 0, 0)) != -1 {
		t.Fatalf("unexpected side classification")
	}
	if _, err := OffsetSegment(P(1, 1, 0), P(1, 1, 0), 1); !errors.Is(err, ErrZeroLength) {
		t.Fatalf("expected ErrZeroLength, got %v", err)
	}
}

func TestArcThrough_CounterClockwise(t *testing.T) {
	a, err := ArcThrough(P(10, 0, 0), P(0, 10, 0), P(-10, 0, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !near(a.Radius, 10) || !near(a.Center.X, 0) || !near(a.Center.Y, 0) {
		t.Fatalf("unexpected arc: %+v", a)
	}
	if !near(a.Sweep(), math.Pi) || !a.Contains(math.Pi/2) || a.Contains(-math.Pi/2) {
		t.Fatalf("expected upper half arc, got %+v", a)
	}
}

func TestArcThrough_ClockwiseInputStoredCCW(t *testing.T) {
	a, err := ArcThrough(P(-10, 0, 0), P(0, 10, 0), P(10, 0, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !a.Contains(math.Pi/2) || a.Contains(3*math.Pi/2) {
		t.Fatalf("arc must still pass through the top: %+v", a)
	}
	if !near(a.Sweep(), math.Pi) {
		t.Fatalf("expected half sweep, got %v", a.Sweep())
	}
}

func TestArcThrough_Collinear(t *testing.T) {
	if _, err := ArcThrough(P(0, 0, 0), P(5, 0, 0), P(10, 0, 0)); !errors.Is(err, ErrDegenerate) {
		t.Fatalf("expected ErrDegenerate, got %v", err)
	}
}

func TestArcClassifier(t *testing.T) {
	circle := SampleArc(ArcFit{Radius: 5, Start: 0, End: 2 * math.Pi}, 16)
	if !IsArcLike(circle) {
		t.Fatalf("sampled circle should classify as arc (turning %v)", AverageTurning(circle))
	}
	straight := []Point3D{P(0, 0, 0), P(1, 0, 0), P(2, 0, 0), P(3, 0, 0)}
	if IsArcLike(straight) {
		t.Fatalf("straight chain must not classify as arc")
	}
	square := []Point3D{P(0, 0, 0), P(10, 0, 0), P(10, 10, 0), P(0, 10, 0)}
	if AverageTurning(square) < math.Pi/2-1e-9 {
		t.Fatalf("square corners should turn by π/2")
	}
	fit, err := FitArc(circle)
	if err != nil || !near(fit.Radius, 5) || !near(fit.Sweep(), 2*math.Pi) {
		t.Fatalf("expected full circle fit, got %+v err=%v", fit, err)
	}
}

func TestPolygonHelpers(t *testing.T) {
	sq := []Point3D{P(0, 0, 0), P(10, 0, 0), P(10, 10, 0), P(0, 10, 0)}
	if !near(PolygonArea(sq), 100) {
		t.Fatalf("expected area 100, got %v", PolygonArea(sq))
	}
	if !PointInPolygon(P(5, 5, 0), sq) || PointInPolygon(P(15, 5, 0), sq) {
		t.Fatalf("unexpected containment")
	}
	pieces := ClipLine(P(-5, 5, 0), P(15, 5, 0), sq)
	if len(pieces) != 1 || !near(pieces[0].A.X, 0) || !near(pieces[0].B.X, 10) {
		t.Fatalf("expected one clipped piece across the square, got %+v", pieces)
	}
	z, dev := PlaneDeviation([]Point3D{P(0, 0, 1), P(1, 0, 1.1), P(0, 1, 0.9)})
	if !near(z, 1) || !near(dev, 0.1) {
		t.Fatalf("unexpected plane deviation z=%v dev=%v", z, dev)
	}
	if n := DistinctCount([]Point3D{P(0, 0, 0), P(0.01, 0, 0), P(1, 0, 0)}, 0.1); n != 2 {
		t.Fatalf("expected 2 distinct points, got %d", n)
	}
}
