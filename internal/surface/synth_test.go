/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package surface

import (
	"testing"

	"gosketchcad/internal/entity"
	"gosketchcad/internal/geom"
)

func defaultSynth() *Synthesizer { return NewSynthesizer(0, 0, 0) }

func TestSelfClosingWithinTolerance(t *testing.T) {
	pl := entity.NewPolyline([]geom.Point3D{
		geom.P(0, 0, 0), geom.P(10, 0, 0), geom.P(10, 10, 0), geom.P(0, 10, 0), geom.P(0.05, 0.05, 0),
	})
	surf, ok := defaultSynth().TrySynthesize(pl, []entity.Entity{pl})
	if !ok {
		t.Fatalf("expected a surface for a 0.05 gap")
	}
	if len(surf.Boundary) != 4 || surf.Boundary[0] != geom.P(0, 0, 0) || surf.Boundary[3] != geom.P(0, 10, 0) {
		t.Fatalf("unexpected boundary: %+v", surf.Boundary)
	}
	if surf.PlaneZ() != 0 || len(surf.SourceIDs) != 1 || surf.SourceIDs[0] != pl.ID() {
		t.Fatalf("unexpected surface metadata: %+v", surf)
	}
}

func TestGapBeyondToleranceDoesNotClose(t *testing.T) {
	pl := entity.NewPolyline([]geom.Point3D{
		geom.P(0, 0, 0), geom.P(10, 0, 0), geom.P(10, 10, 0), geom.P(0, 10, 0), geom.P(0.11, 0, 0),
	})
	if _, ok := defaultSynth().TrySynthesize(pl, []entity.Entity{pl}); ok {
		t.Fatalf("a gap of 0.11 must not synthesize a surface")
	}
}

func TestNetworkOfLines(t *testing.T) {
	s := defaultSynth()
	corners := []geom.Point3D{geom.P(0, 0, 0), geom.P(10, 0, 0), geom.P(10, 10, 0), geom.P(0, 10, 0)}
	var all []entity.Entity
	var surf *entity.Surface
	for i := range corners {
		// endpoints drift slightly but stay within the close tolerance
		b := corners[(i+1)%4].Add(geom.P(0.03, 0, 0))
		l := entity.NewLine(corners[i], b)
		all = append(all, l)
		got, ok := s.TrySynthesize(l, all)
		if i < 3 && ok {
			t.Fatalf("loop found too early after line %d", i)
		}
		if i == 3 {
			if !ok {
				t.Fatalf("expected the fourth line to close the loop")
			}
			surf = got
		}
	}
	if len(surf.Boundary) != 4 || len(surf.SourceIDs) != 4 {
		t.Fatalf("expected 4 vertices from 4 sources, got %d/%d", len(surf.Boundary), len(surf.SourceIDs))
	}
	if surf.SourceIDs[0] != all[3].ID() {
		t.Fatalf("committed line must lead the source list")
	}
}

func TestNetworkMixedDirections(t *testing.T) {
	s := defaultSynth()
	a := entity.NewPolyline([]geom.Point3D{geom.P(0, 0, 0), geom.P(10, 0, 0), geom.P(10, 10, 0)})
	b := entity.NewLine(geom.P(0, 10, 0), geom.P(10, 10, 0)) // drawn against the loop direction
	hidden := entity.NewLine(geom.P(0, 10, 0), geom.P(0, 0, 0))
	hidden.SetVisible(false)
	c := entity.NewLine(geom.P(0, 0, 0), geom.P(0, 10, 0))

	surf, ok := s.TrySynthesize(c, []entity.Entity{a, b, hidden, c})
	if !ok {
		t.Fatalf("expected a loop through polyline and lines")
	}
	if len(surf.Boundary) != 4 {
		t.Fatalf("expected 4 vertices, got %+v", surf.Boundary)
	}
	for _, id := range surf.SourceIDs {
		if id == hidden.ID() {
			t.Fatalf("hidden strokes must not take part")
		}
	}
}

func TestRejections(t *testing.T) {
	s := defaultSynth()

	tilted := entity.NewPolyline([]geom.Point3D{
		geom.P(0, 0, 0), geom.P(10, 0, 0), geom.P(10, 10, 0.5), geom.P(0, 10, 0), geom.P(0, 0, 0),
	})
	if _, ok := s.TrySynthesize(tilted, []entity.Entity{tilted}); ok {
		t.Fatalf("non-planar loop must be rejected")
	}

	flat := entity.NewPolyline([]geom.Point3D{
		geom.P(0, 0, 0), geom.P(5, 0, 0), geom.P(10, 0, 0), geom.P(0, 0, 0),
	})
	if _, ok := s.TrySynthesize(flat, []entity.Entity{flat}); ok {
		t.Fatalf("zero-area loop must be rejected")
	}

	r := entity.NewRectangle(geom.P(0, 0, 0), 4, 4)
	if _, ok := s.TrySynthesize(r, []entity.Entity{r}); ok {
		t.Fatalf("rectangles are already fills")
	}
	if _, ok := s.TrySynthesize(nil, nil); ok {
		t.Fatalf("nil input must be a no-op")
	}
}

func TestExistingSurfaceIsNotDuplicated(t *testing.T) {
	s := defaultSynth()
	pts := []geom.Point3D{geom.P(0, 0, 0), geom.P(10, 0, 0), geom.P(10, 10, 0), geom.P(0, 0, 0)}
	first := entity.NewPolyline(pts)
	surf, ok := s.TrySynthesize(first, []entity.Entity{first})
	if !ok {
		t.Fatalf("expected first triangle to fill")
	}
	second := entity.NewPolyline(pts)
	if _, ok := s.TrySynthesize(second, []entity.Entity{first, surf, second}); ok {
		t.Fatalf("identical loop must not be filled twice")
	}
}

func TestCycleBound(t *testing.T) {
	s := NewSynthesizer(0.1, 0.1, 3)
	corners := []geom.Point3D{geom.P(0, 0, 0), geom.P(10, 0, 0), geom.P(10, 10, 0), geom.P(5, 15, 0), geom.P(0, 10, 0)}
	var all []entity.Entity
	for i := range corners {
		all = append(all, entity.NewLine(corners[i], corners[(i+1)%len(corners)]))
	}
	if _, ok := s.TrySynthesize(all[len(all)-1], all); ok {
		t.Fatalf("a five-edge loop exceeds a bound of three edges")
	}
}

// unitGrid returns the unit-length lines of an n x n cell grid at the origin.
func unitGrid(n int, skip func(a, b geom.Point3D) bool) []entity.Entity {
	var out []entity.Entity
	add := func(a, b geom.Point3D) {
		if skip == nil || !skip(a, b) {
			out = append(out, entity.NewLine(a, b))
		}
	}
	for i := 0; i <= n; i++ {
		for j := 0; j < n; j++ {
			add(geom.P(float64(j), float64(i), 0), geom.P(float64(j+1), float64(i), 0))
			add(geom.P(float64(i), float64(j), 0), geom.P(float64(i), float64(j+1), 0))
		}
	}
	return out
}

func TestGridDanglingStrokeFinishesQuickly(t *testing.T) {
	all := unitGrid(10, nil)
	l := entity.NewLine(geom.P(-5, -5, 0), geom.P(0, 0, 0))
	all = append(all, l)
	if _, ok := defaultSynth().TrySynthesize(l, all); ok {
		t.Fatalf("a stroke hanging off the grid closes no loop")
	}
}

func TestGridClosingEdgeFillsOneCell(t *testing.T) {
	a, b := geom.P(3, 4, 0), geom.P(4, 4, 0)
	all := unitGrid(10, func(p, q geom.Point3D) bool { return p == a && q == b })
	l := entity.NewLine(a, b)
	all = append(all, l)
	surf, ok := defaultSynth().TrySynthesize(l, all)
	if !ok {
		t.Fatalf("expected the missing edge to close a grid cell")
	}
	if len(surf.Boundary) != 4 || len(surf.SourceIDs) != 4 || surf.SourceIDs[0] != l.ID() {
		t.Fatalf("expected the shortest cell loop, got %d vertices from %d sources", len(surf.Boundary), len(surf.SourceIDs))
	}
}

func TestDuplicatedLineIsNotALoop(t *testing.T) {
	ab := entity.NewLine(geom.P(0, 0, 0), geom.P(10, 0, 0))
	dup := entity.NewLine(geom.P(10, 10, 0), geom.P(0, 0, 0))
	bc := entity.NewLine(geom.P(10, 0, 0), geom.P(10, 10, 0))
	ca := entity.NewLine(geom.P(0, 0, 0), geom.P(10, 10, 0))
	surf, ok := defaultSynth().TrySynthesize(ca, []entity.Entity{ab, dup, bc, ca})
	if !ok {
		t.Fatalf("the two-edge loop through the duplicate must not end the search")
	}
	if len(surf.Boundary) != 3 {
		t.Fatalf("expected the triangle, got %+v", surf.Boundary)
	}
	for _, id := range surf.SourceIDs {
		if id == dup.ID() {
			t.Fatalf("duplicate line must not be a source")
		}
	}
}
