/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package snap

import (
	"math"
	"testing"

	"seehuhn.de/go/geom/vec"

	"gosketchcad/internal/entity"
	"gosketchcad/internal/geom"
)

// identity maps one world unit to one pixel.
var identity = ProjectorFunc(func(p geom.Point3D) vec.Vec2 { return p.XY() })

func resolve(e *Engine, x, y float64, ents []entity.Entity, ctx Context) geom.Point3D {
	p := geom.P(x, y, 0)
	return e.Resolve(p, p.XY(), ents, ctx)
}

func TestResolve_EndpointBeatsGrid(t *testing.T) {
	opts := DefaultOptions()
	opts.GridEnabled = true
	e := NewEngine(opts, identity)
	l := entity.NewLine(geom.P(0, 0, 0), geom.P(10, 0, 0))

	// (10.5,0) is 0.5 from the endpoint and 0.5 from grid node (11,0)
	got := resolve(e, 10.5, 0, []entity.Entity{l}, Context{Draws: true})
	if got != geom.P(10, 0, 0) || e.LastKind() != Endpoint {
		t.Fatalf("expected endpoint (10,0), got %+v kind=%v", got, e.LastKind())
	}
	if c, ok := e.Last(); !ok || c.SourceID != l.ID() {
		t.Fatalf("expected source id of the line, got %+v", c)
	}
}

func TestResolve_IntersectionWinsTieWithMidpoint(t *testing.T) {
	e := NewEngine(DefaultOptions(), identity)
	a := entity.NewLine(geom.P(0, 0, 0), geom.P(10, 10, 0))
	b := entity.NewLine(geom.P(0, 10, 0), geom.P(10, 0, 0))
	got := resolve(e, 5.3, 5.1, []entity.Entity{a, b}, Context{Draws: true})
	if math.Abs(got.X-5) > 1e-9 || math.Abs(got.Y-5) > 1e-9 {
		t.Fatalf("expected (5,5), got %+v", got)
	}
	if e.LastKind() != Intersection {
		t.Fatalf("expected intersection, got %v", e.LastKind())
	}
}

func TestResolve_SharedEndpointIsNotAnIntersection(t *testing.T) {
	e := NewEngine(DefaultOptions(), identity)
	a := entity.NewLine(geom.P(0, 0, 0), geom.P(10, 0, 0))
	b := entity.NewLine(geom.P(10, 0, 0), geom.P(10, 10, 0))
	cands := e.Candidates(geom.P(10, 0.5, 0), vec.Vec2{X: 10, Y: 0.5}, []entity.Entity{a, b}, Context{Draws: true})
	if len(cands) == 0 {
		t.Fatalf("expected candidates")
	}
	for _, c := range cands {
		if c.Kind == Intersection {
			t.Fatalf("adjacent lines must not report an intersection: %+v", c)
		}
	}
	if cands[0].Kind != Endpoint {
		t.Fatalf("expected endpoint first, got %v", cands[0].Kind)
	}
}

func TestResolve_SessionVertexFirst(t *testing.T) {
	e := NewEngine(DefaultOptions(), identity)
	l := entity.NewLine(geom.P(0, 0, 0), geom.P(10, 0, 0))
	ctx := Context{Draws: true, SessionVertices: []geom.Point3D{geom.P(10, 0, 0)}}
	resolve(e, 10.2, 0, []entity.Entity{l}, ctx)
	if e.LastKind() != PolylineVertex {
		t.Fatalf("session vertex should win the tie, got %v", e.LastKind())
	}
}

func TestResolve_StrictlyCloserWins(t *testing.T) {
	e := NewEngine(DefaultOptions(), identity)
	l := entity.NewLine(geom.P(0, 0, 0), geom.P(12, 0, 0))
	// endpoint (12,0) at 1.0, quarter (9,0) at 2.0, third (8,0) at 3.0
	got := resolve(e, 11, 0, []entity.Entity{l}, Context{Draws: true})
	if got != geom.P(12, 0, 0) {
		t.Fatalf("expected endpoint, got %+v", got)
	}
	got = resolve(e, 8.8, 0, []entity.Entity{l}, Context{Draws: true})
	if got != geom.P(9, 0, 0) || e.LastKind() != Quarter {
		t.Fatalf("expected quarter at (9,0), got %+v %v", got, e.LastKind())
	}
}

func TestResolve_ArcFeatures(t *testing.T) {
	e := NewEngine(DefaultOptions(), identity)
	c := entity.NewCircle(geom.P(20, 20, 0), 5)
	got := resolve(e, 20.5, 19.5, []entity.Entity{c}, Context{Draws: true})
	if got != geom.P(20, 20, 0) || e.LastKind() != ArcCenter {
		t.Fatalf("expected center, got %+v %v", got, e.LastKind())
	}
	got = resolve(e, 20.3, 25.2, []entity.Entity{c}, Context{Draws: true})
	if e.LastKind() != Perpendicular && e.LastKind() != ArcQuadrant {
		t.Fatalf("expected a rim candidate, got %v", e.LastKind())
	}
	if math.Abs(got.Dist2D(geom.P(20, 20, 0))-5) > 1e-9 {
		t.Fatalf("rim snap must lie on the circle: %+v", got)
	}
}

func TestResolve_DisabledAndNonDrawing(t *testing.T) {
	opts := DefaultOptions()
	opts.GridEnabled = true
	opts.GridSize = 0.5
	e := NewEngine(opts, identity)
	l := entity.NewLine(geom.P(0, 0, 0), geom.P(10, 0, 0))

	got := resolve(e, 9.8, 0.1, []entity.Entity{l}, Context{Draws: false})
	if got != geom.P(10, 0, 0) || e.LastKind() != Grid {
		t.Fatalf("non-drawing tool should grid-quantize, got %+v %v", got, e.LastKind())
	}

	opts.Enabled = false
	opts.GridEnabled = false
	e.SetOptions(opts)
	got = resolve(e, 9.8, 0.1, []entity.Entity{l}, Context{Draws: true})
	if got != geom.P(9.8, 0.1, 0) || e.LastKind() != None {
		t.Fatalf("disabled snapping must return the raw point, got %+v", got)
	}
}

func TestResolve_SkipsHiddenAndMalformed(t *testing.T) {
	e := NewEngine(DefaultOptions(), identity)
	hidden := entity.NewLine(geom.P(0, 0, 0), geom.P(10, 0, 0))
	hidden.SetVisible(false)
	bad := entity.NewLine(geom.P(math.NaN(), 0, 0), geom.P(10, 0, 0))
	zero := entity.NewLine(geom.P(10, 0, 0), geom.P(10, 0, 0))
	surf := entity.NewSurface([]geom.Point3D{geom.P(10, 0, 0), geom.P(20, 0, 0), geom.P(20, 10, 0)}, 0)

	got := resolve(e, 10.2, 0, []entity.Entity{hidden, bad, zero, surf, nil}, Context{Draws: true})
	if e.LastKind() != None || got != geom.P(10.2, 0, 0) {
		t.Fatalf("expected no snap, got %+v %v", got, e.LastKind())
	}
}

func TestResolve_PerpendicularFromReference(t *testing.T) {
	e := NewEngine(DefaultOptions(), identity)
	l := entity.NewLine(geom.P(0, 0, 0), geom.P(100, 0, 0))
	ref := geom.P(37, 30, 0)
	got := resolve(e, 37.5, 1, []entity.Entity{l}, Context{Draws: true, Reference: &ref})
	if got != geom.P(37, 0, 0) || e.LastKind() != Perpendicular {
		t.Fatalf("expected perpendicular foot (37,0), got %+v %v", got, e.LastKind())
	}
}

func TestCandidates_SortedByDistance(t *testing.T) {
	e := NewEngine(DefaultOptions(), identity)
	l := entity.NewLine(geom.P(0, 0, 0), geom.P(12, 0, 0))
	cands := e.Candidates(geom.P(6.5, 0, 0), vec.Vec2{X: 6.5}, []entity.Entity{l}, Context{Draws: true})
	for i := 1; i < len(cands); i++ {
		if cands[i].Distance < cands[i-1].Distance {
			t.Fatalf("candidates out of order at %d: %+v", i, cands)
		}
	}
	if len(cands) == 0 || cands[0].Kind != Midpoint {
		t.Fatalf("expected midpoint first, got %+v", cands)
	}
}

func halfCircle(center geom.Point3D, r float64, chords int) *entity.Polyline {
	pts := make([]geom.Point3D, 0, chords+1)
	for i := 0; i <= chords; i++ {
		a := math.Pi * float64(i) / float64(chords)
		pts = append(pts, center.Add(geom.P(r*math.Cos(a), r*math.Sin(a), 0)))
	}
	return entity.NewPolyline(pts)
}

func TestResolve_SampledArcOffersArcFeatures(t *testing.T) {
	e := NewEngine(DefaultOptions(), identity)
	center := geom.P(0, 0, 0)
	pl := halfCircle(center, 5, 8)
	ents := []entity.Entity{pl}

	got := resolve(e, 0.2, 0.1, ents, Context{Draws: true})
	if e.LastKind() != ArcCenter || got.Dist2D(center) > 1e-6 {
		t.Fatalf("expected the fitted center, got %+v kind=%v", got, e.LastKind())
	}

	mid := pl.Points[0].Lerp(pl.Points[1], 0.5)
	got = resolve(e, mid.X, mid.Y, ents, Context{Draws: true})
	if e.LastKind() != Perpendicular {
		t.Fatalf("chord midpoint should snap onto the arc, got %v", e.LastKind())
	}
	if math.Abs(got.Dist2D(center)-5) > 1e-6 {
		t.Fatalf("arc snap must lie on the fitted circle: %+v", got)
	}
	for _, c := range e.Candidates(mid, mid.XY(), ents, Context{Draws: true}) {
		if c.Kind == Midpoint || c.Kind == Third || c.Kind == Quarter {
			t.Fatalf("arc-like polyline must not offer %v candidates", c.Kind)
		}
	}
}
