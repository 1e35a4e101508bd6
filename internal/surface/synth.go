/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package surface detects closed loops among freshly committed strokes and
// the existing drawing, and builds planar fill surfaces from them.
package surface

import (
	"log/slog"
	"math"

	"gosketchcad/internal/entity"
	"gosketchcad/internal/geom"
	applog "gosketchcad/internal/log"
)

// Defaults for the loop tolerances.
const (
	DefaultCloseTolerance  = 0.1
	DefaultPlanarTolerance = 0.1
	DefaultMaxCycleEdges   = 64
)

// Synthesizer turns closed loops into Surface entities. It never adds to a
// store itself; the caller commits the returned surface.
type Synthesizer struct {
	// CloseTolerance merges endpoints and decides self-closure.
	CloseTolerance float64
	// PlanarTolerance is the largest accepted Z deviation from the mean plane.
	PlanarTolerance float64
	// MaxCycleEdges bounds the network search depth.
	MaxCycleEdges int

	log *slog.Logger
}

func NewSynthesizer(closeTol, planarTol float64, maxEdges int) *Synthesizer {
	if closeTol <= 0 {
		closeTol = DefaultCloseTolerance
	}
	if planarTol <= 0 {
		planarTol = DefaultPlanarTolerance
	}
	if maxEdges <= 0 {
		maxEdges = DefaultMaxCycleEdges
	}
	return &Synthesizer{CloseTolerance: closeTol, PlanarTolerance: planarTol, MaxCycleEdges: maxEdges, log: applog.WithComponent("surface")}
}

// TrySynthesize inspects a newly committed Line or Polyline. A stroke that
// closes on itself yields its own loop; otherwise the network of visible
// open strokes is searched for a cycle through it. Any rejection returns
// (nil, false) without side effects.
func (s *Synthesizer) TrySynthesize(committed entity.Entity, all []entity.Entity) (*entity.Surface, bool) {
	if committed == nil || !openStroke(committed) {
		return nil, false
	}
	pts := committed.Path()
	if len(pts) < 2 {
		return nil, false
	}
	var (
		loop    []geom.Point3D
		sources []entity.ID
	)
	if entity.IsClosed(pts, s.CloseTolerance) {
		loop = pts[:len(pts)-1]
		sources = []entity.ID{committed.ID()}
	} else {
		loop, sources = s.findCycle(committed, all)
		if loop == nil {
			return nil, false
		}
	}
	planeZ, ok := s.validate(loop)
	if !ok {
		return nil, false
	}
	if s.duplicate(loop, all) {
		s.log.Debug("loop already filled", slog.Int("vertices", len(loop)))
		return nil, false
	}
	surf := entity.NewSurface(loop, planeZ, sources...)
	s.log.Info("surface synthesized", applog.Entity(surf), slog.Int("vertices", len(loop)), slog.Int("sources", len(sources)))
	return surf, true
}

// validate checks vertex count, area and planarity and returns the plane Z.
func (s *Synthesizer) validate(loop []geom.Point3D) (float64, bool) {
	if geom.DistinctCount(loop, s.CloseTolerance) < 3 {
		s.log.Debug("loop rejected: too few vertices", slog.Int("vertices", len(loop)))
		return 0, false
	}
	if math.Abs(geom.PolygonArea(loop)) < 1e-9 {
		s.log.Debug("loop rejected: zero area")
		return 0, false
	}
	z, dev := geom.PlaneDeviation(loop)
	if dev > s.PlanarTolerance {
		s.log.Debug("loop rejected: not planar", slog.Float64("deviation", dev))
		return 0, false
	}
	return z, true
}

// duplicate reports whether a visible surface with the same vertex set
// already exists.
func (s *Synthesizer) duplicate(loop []geom.Point3D, all []entity.Entity) bool {
	for _, e := range all {
		sf, ok := e.(*entity.Surface)
		if !ok || !sf.Visible() || len(sf.Boundary) != len(loop) {
			continue
		}
		if sameVertices(sf.Boundary, loop, s.CloseTolerance) {
			return true
		}
	}
	return false
}

func sameVertices(a, b []geom.Point3D, eps float64) bool {
	for _, p := range a {
		found := false
		for _, q := range b {
			if p.Dist(q) < eps {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// openStroke reports whether e is a Line or Polyline.
func openStroke(e entity.Entity) bool {
	k := e.Kind()
	return k == entity.KindLine || k == entity.KindPolyline
}
