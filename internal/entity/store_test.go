/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package entity

import (
	"errors"
	"math"
	"testing"

	"gosketchcad/internal/geom"
)

func TestStore_AddOrderAndEvents(t *testing.T) {
	s := NewStore()
	var got []EventKind
	cancel := s.Subscribe(func(ev Event) { got = append(got, ev.Kind) })

	l := NewLine(geom.P(0, 0, 0), geom.P(10, 0, 0))
	c := NewCircle(geom.P(5, 5, 0), 2)
	s.Add(l)
	s.Add(c)
	s.Add(l) // duplicate id is ignored

	all := s.All()
	if len(all) != 2 || all[0].ID() != l.ID() || all[1].ID() != c.ID() {
		t.Fatalf("unexpected store order: %+v", all)
	}
	if err := s.SetVisible(l.ID(), false); err != nil {
		t.Fatalf("SetVisible: %v", err)
	}
	_ = s.SetVisible(l.ID(), false) // unchanged, no event
	if vis := s.Visible(); len(vis) != 1 || vis[0].ID() != c.ID() {
		t.Fatalf("expected only the circle visible, got %d", len(vis))
	}
	cancel()
	s.Add(NewLine(geom.P(0, 0, 0), geom.P(1, 1, 0)))

	want := []EventKind{EventCreated, EventCreated, EventVisibility}
	if len(got) != len(want) {
		t.Fatalf("expected events %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestStore_RemoveUnknown(t *testing.T) {
	s := NewStore()
	if err := s.Remove("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.SetVisible("nope", true); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestShapes_PathsAndProfiles(t *testing.T) {
	r := RectangleFromCorners(geom.P(10, 10, 0), geom.P(0, 0, 0))
	if r.Width != 10 || r.Height != 10 || r.Center != geom.P(5, 5, 0) {
		t.Fatalf("unexpected rectangle: %+v", r)
	}
	if p := r.Path(); len(p) != 5 || p[0] != p[4] {
		t.Fatalf("rectangle path must be a closed 5-point ring, got %v", p)
	}
	if n := len(r.Profile()); n != 4 {
		t.Fatalf("rectangle profile must have 4 corners, got %d", n)
	}

	c := NewCircle(geom.P(0, 0, 0), 3)
	if p := c.Path(); len(p) != circleSegments+1 || p[0].Dist(p[len(p)-1]) > 1e-9 {
		t.Fatalf("circle path must be closed with %d samples", circleSegments+1)
	}
	if b := c.Bounds(); math.Abs(b.W()-6) > 1e-9 {
		t.Fatalf("unexpected circle bounds: %+v", b)
	}

	pl := NewPolyline([]geom.Point3D{geom.P(0, 0, 0), geom.P(10, 0, 0), geom.P(10, 10, 0), geom.P(0, 0.05, 0)})
	if !pl.Closed(0.1) {
		t.Fatalf("polyline within tolerance should be closed")
	}
	if segs := Segments(pl); len(segs) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(segs))
	}
	if LineLike(NewSurface(r.Profile(), 0)) {
		t.Fatalf("surfaces are not line-like")
	}
}

func TestCodec_KeepsIdentityAndGeometry(t *testing.T) {
	a := NewArc(geom.ArcFit{Center: geom.P(1, 2, 0), Radius: 4, Start: 0, End: math.Pi})
	a.SetLayer("walls")
	a.SetVisible(false)
	s := NewSurface([]geom.Point3D{geom.P(0, 0, 0), geom.P(1, 0, 0), geom.P(0, 1, 0)}, 0, a.ID())

	b, err := MarshalEntities([]Entity{a, s})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	list, err := UnmarshalEntities(b)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 entities, got %d", len(list))
	}
	got, ok := list[0].(*Arc)
	if !ok {
		t.Fatalf("expected *Arc, got %T", list[0])
	}
	if got.ID() != a.ID() || got.Layer() != "walls" || got.Visible() || got.Radius != 4 || got.EndAngle != math.Pi {
		t.Fatalf("arc not restored: %+v", got)
	}
	if sf := list[1].(*Surface); len(sf.SourceIDs) != 1 || sf.SourceIDs[0] != a.ID() {
		t.Fatalf("surface sources not restored: %+v", sf)
	}

	if _, err := Decode(Record{ID: "x", Kind: "blob"}); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}
