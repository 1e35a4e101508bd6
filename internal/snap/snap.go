/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package snap resolves a cursor position to the nearest point of geometric
// significance on the existing drawing (endpoints, midpoints, intersections,
// arc centers and so on) within a screen-space threshold.
//
// The engine is UI-agnostic and deterministic. It never mutates entities and
// is cheap enough to call on every pointer move. An Engine is not safe for
// concurrent use.
package snap

import (
	"log/slog"
	"math"
	"sort"

	"seehuhn.de/go/geom/vec"

	"gosketchcad/internal/entity"
	"gosketchcad/internal/geom"
	applog "gosketchcad/internal/log"
)

// Kind classifies a snap candidate.
//
// The declared order is the priority table: when two candidates lie at
// exactly the same screen distance the lower Kind wins. It follows the scan
// order (session vertices, intersections, then per-entity features).
type Kind int

const (
	None Kind = iota
	PolylineVertex
	Intersection
	Endpoint
	ArcCenter
	Midpoint
	ArcQuadrant
	Third
	Quarter
	Perpendicular
	Grid
)

func (k Kind) String() string {
	switch k {
	case PolylineVertex:
		return "vertex"
	case Intersection:
		return "intersection"
	case Endpoint:
		return "endpoint"
	case ArcCenter:
		return "center"
	case Midpoint:
		return "midpoint"
	case ArcQuadrant:
		return "quadrant"
	case Third:
		return "third"
	case Quarter:
		return "quarter"
	case Perpendicular:
		return "perpendicular"
	case Grid:
		return "grid"
	default:
		return "none"
	}
}

// Candidate is a point considered for cursor attraction. Distance is in
// screen pixels. SourceID is empty for session vertices and grid points.
type Candidate struct {
	Point    geom.Point3D
	Kind     Kind
	Distance float64
	SourceID entity.ID
}

// Options controls which candidates are considered and the threshold.
type Options struct {
	Enabled bool
	// DistancePx is the maximum screen distance at which snapping occurs.
	DistancePx float64
	// GridEnabled quantizes unsnapped points to GridSize world units.
	GridEnabled bool
	GridSize    float64
	// MaxIntersectionSegments caps the segments fed to the pairwise
	// intersection scan (0 = unlimited).
	MaxIntersectionSegments int
}

func DefaultOptions() Options {
	return Options{Enabled: true, DistancePx: 10, GridSize: 1, MaxIntersectionSegments: 2000}
}

// Projector maps a world point to screen pixels.
type Projector interface {
	WorldToScreen(p geom.Point3D) vec.Vec2
}

// ProjectorFunc adapts a function to Projector.
type ProjectorFunc func(geom.Point3D) vec.Vec2

func (f ProjectorFunc) WorldToScreen(p geom.Point3D) vec.Vec2 { return f(p) }

// Context is what the active tool contributes to a resolve call.
type Context struct {
	// SessionVertices are the points the active tool has already placed.
	SessionVertices []geom.Point3D
	// Draws is false for tools that do not place points.
	Draws bool
	// Reference, when set, enables perpendicular feet onto straight segments.
	Reference *geom.Point3D
}

// Engine resolves snaps and remembers the last winner for UI readouts.
type Engine struct {
	opts Options
	proj Projector
	last Candidate
	log  *slog.Logger
}

func NewEngine(opts Options, proj Projector) *Engine {
	if opts.DistancePx <= 0 {
		opts.DistancePx = 10
	}
	return &Engine{opts: opts, proj: proj, log: applog.WithComponent("snap")}
}

func (e *Engine) Options() Options     { return e.opts }
func (e *Engine) SetOptions(o Options) { e.opts = o }

// LastKind is the kind of the most recent Resolve result.
func (e *Engine) LastKind() Kind { return e.last.Kind }

// Last returns the most recent winning candidate, if any.
func (e *Engine) Last() (Candidate, bool) { return e.last, e.last.Kind != None }

// Resolve returns the snapped world point for the cursor. Without a
// candidate under the threshold it returns the cursor point, grid-quantized
// when the grid is on.
func (e *Engine) Resolve(cursorWorld geom.Point3D, cursorScreen vec.Vec2, ents []entity.Entity, ctx Context) geom.Point3D {
	if !e.opts.Enabled || !ctx.Draws {
		return e.fallback(cursorWorld)
	}
	s := e.scan(cursorWorld, cursorScreen, ents, ctx, false)
	if s.best.Kind == None {
		return e.fallback(cursorWorld)
	}
	e.last = s.best
	e.log.Debug("snap", applog.Snap(s.best.Kind, s.best.Point, s.best.Distance))
	return s.best.Point
}

// Candidates returns every candidate under the threshold ordered by
// distance, then priority. It does not touch LastKind.
func (e *Engine) Candidates(cursorWorld geom.Point3D, cursorScreen vec.Vec2, ents []entity.Entity, ctx Context) []Candidate {
	if !e.opts.Enabled || !ctx.Draws {
		return nil
	}
	s := e.scan(cursorWorld, cursorScreen, ents, ctx, true)
	sort.SliceStable(s.all, func(i, j int) bool {
		if s.all[i].Distance != s.all[j].Distance {
			return s.all[i].Distance < s.all[j].Distance
		}
		return s.all[i].Kind < s.all[j].Kind
	})
	return s.all
}

func (e *Engine) fallback(p geom.Point3D) geom.Point3D {
	if e.opts.GridEnabled && e.opts.GridSize > 0 {
		e.last = Candidate{Point: geom.Quantize(p, e.opts.GridSize), Kind: Grid}
		return e.last.Point
	}
	e.last = Candidate{}
	return p
}

// scanner keeps the running best while candidates are generated.
type scanner struct {
	proj      Projector
	cursor    vec.Vec2
	threshold float64
	best      Candidate
	keep      bool
	all       []Candidate
}

func (e *Engine) scan(cursorWorld geom.Point3D, cursorScreen vec.Vec2, ents []entity.Entity, ctx Context, keep bool) *scanner {
	s := &scanner{proj: e.proj, cursor: cursorScreen, threshold: e.opts.DistancePx, best: Candidate{Distance: math.Inf(1)}, keep: keep}

	for _, v := range ctx.SessionVertices {
		s.consider(v, PolylineVertex, "")
	}

	drawn := make([]entity.Entity, 0, len(ents))
	for _, en := range ents {
		if en == nil || !en.Visible() || !entity.LineLike(en) {
			continue
		}
		drawn = append(drawn, en)
	}

	e.intersections(s, drawn)

	for _, en := range drawn {
		if fit, ok := arcOf(en); ok {
			arcFeatures(s, en, fit, cursorWorld)
			continue
		}
		straightFeatures(s, en, ctx.Reference)
	}
	return s
}

// consider replaces the best only on a strictly smaller distance, or on an
// equal distance with a higher-priority kind. Points beyond the threshold
// and malformed points are dropped.
func (s *scanner) consider(p geom.Point3D, k Kind, src entity.ID) {
	if !p.Valid() {
		return
	}
	q := s.proj.WorldToScreen(p)
	d := q.Sub(s.cursor).Length()
	if math.IsNaN(d) || d > s.threshold {
		return
	}
	c := Candidate{Point: p, Kind: k, Distance: d, SourceID: src}
	if s.keep {
		s.all = append(s.all, c)
	}
	if d < s.best.Distance || (d == s.best.Distance && k < s.best.Kind) {
		s.best = c
	}
}

type ownedSegment struct {
	geom.Segment
	owner int
}

// intersections scans segment pairs of different entities. A crossing that
// coincides with an endpoint of both segments is where two pieces merely
// meet; the endpoint candidate already covers it.
func (e *Engine) intersections(s *scanner, drawn []entity.Entity) {
	var segs []ownedSegment
	limit := e.opts.MaxIntersectionSegments
collect:
	for i, en := range drawn {
		for _, sg := range entity.Segments(en) {
			if limit > 0 && len(segs) >= limit {
				break collect
			}
			segs = append(segs, ownedSegment{Segment: sg, owner: i})
		}
	}
	const eps = 1e-6
	for i := 0; i < len(segs); i++ {
		a := segs[i]
		for j := i + 1; j < len(segs); j++ {
			b := segs[j]
			if a.owner == b.owner {
				continue
			}
			p, ok := geom.SegmentIntersection(a.A, a.B, b.A, b.B)
			if !ok {
				continue
			}
			atA := p.Dist2D(a.A) < eps || p.Dist2D(a.B) < eps
			atB := p.Dist2D(b.A) < eps || p.Dist2D(b.B) < eps
			if atA && atB {
				continue
			}
			s.consider(p, Intersection, drawn[a.owner].ID())
		}
	}
}

// arcOf reports the exact or fitted arc of arc-classified entities.
func arcOf(en entity.Entity) (geom.ArcFit, bool) {
	if c, ok := en.(entity.Circular); ok {
		fit := c.ArcGeometry()
		return fit, fit.Radius > 0
	}
	if en.Kind() != entity.KindPolyline {
		return geom.ArcFit{}, false
	}
	pts := en.Path()
	if !geom.IsArcLike(pts) {
		return geom.ArcFit{}, false
	}
	fit, err := geom.FitArc(pts)
	if err != nil {
		return geom.ArcFit{}, false
	}
	return fit, true
}

func arcFeatures(s *scanner, en entity.Entity, fit geom.ArcFit, cursor geom.Point3D) {
	id := en.ID()
	full := fit.Sweep() >= 2*math.Pi-1e-9
	if !full {
		s.consider(fit.PointAt(fit.Start), Endpoint, id)
		s.consider(fit.PointAt(fit.End), Endpoint, id)
	}
	s.consider(fit.Center, ArcCenter, id)
	for q := 0; q < 4; q++ {
		theta := float64(q) * math.Pi / 2
		if fit.Contains(theta) {
			s.consider(fit.PointAt(theta), ArcQuadrant, id)
		}
	}
	// foot of the radial line from the center through the cursor
	if cursor.Dist2D(fit.Center) > 1e-9 {
		theta := math.Atan2(cursor.Y-fit.Center.Y, cursor.X-fit.Center.X)
		if fit.Contains(theta) {
			s.consider(fit.PointAt(theta), Perpendicular, id)
		}
	}
}

var fractions = []struct {
	t float64
	k Kind
}{
	{0.5, Midpoint},
	{1.0 / 3, Third}, {2.0 / 3, Third},
	{0.25, Quarter}, {0.75, Quarter},
}

func straightFeatures(s *scanner, en entity.Entity, ref *geom.Point3D) {
	id := en.ID()
	segs := entity.Segments(en)
	for _, sg := range segs {
		s.consider(sg.A, Endpoint, id)
		s.consider(sg.B, Endpoint, id)
	}
	for _, sg := range segs {
		for _, f := range fractions {
			s.consider(sg.A.Lerp(sg.B, f.t), f.k, id)
		}
	}
	if ref == nil {
		return
	}
	for _, sg := range segs {
		pr := geom.ProjectPointOnSegment(*ref, sg.A, sg.B)
		if pr.OnSegment() && pr.Point.Dist2D(*ref) > 1e-9 {
			s.consider(pr.Point, Perpendicular, id)
		}
	}
}
