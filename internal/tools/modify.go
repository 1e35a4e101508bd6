/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package tools

import (
	"math"

	"gosketchcad/internal/entity"
	"gosketchcad/internal/geom"
)

// picked is a segment hit by a pick click and the entity it belongs to.
type picked struct {
	ent entity.Entity
	seg geom.Segment
}

// pickSegment returns the visible stroke segment nearest to p within the
// pick distance. accept filters candidate entities.
func (env *Env) pickSegment(p geom.Point3D, accept func(entity.Entity) bool) (picked, bool) {
	best, bestD := picked{}, env.Settings.PickDistance
	found := false
	for _, e := range env.Store.Visible() {
		if !entity.LineLike(e) || (accept != nil && !accept(e)) {
			continue
		}
		for _, s := range entity.Segments(e) {
			if d := geom.DistanceToSegment(p, s.A, s.B); d <= bestD {
				best, bestD, found = picked{ent: e, seg: s}, d, true
			}
		}
	}
	return best, found
}

// replace hides old and commits its successor, which remembers old so an
// undo can show it again.
func (env *Env) replace(old entity.Entity, next *entity.Line) {
	next.Replaces = old.ID()
	_ = env.Store.SetVisible(old.ID(), false)
	env.commitStroke(next)
}

func straight(e entity.Entity) bool {
	_, arc := e.(entity.Circular)
	return !arc
}

// ParallelTool picks a reference segment, then commits a copy offset to the
// side of the second click.
type ParallelTool struct {
	pointTool
	ref    *geom.Segment
	offset float64
}

func NewParallel(env *Env) *ParallelTool {
	return &ParallelTool{pointTool: pointTool{env: env}, offset: env.Settings.ParallelOffset}
}

func (t *ParallelTool) Name() string    { return "parallel" }
func (t *ParallelTool) Draws() bool     { return false }
func (t *ParallelTool) Offset() float64 { return t.offset }

func (t *ParallelTool) Cancel() {
	t.pointTool.Cancel()
	t.ref = nil
}

func (t *ParallelTool) Deactivate() {
	t.pointTool.Deactivate()
	t.ref = nil
}

func (t *ParallelTool) HandleMove(p geom.Point3D) {
	if t.ref == nil {
		return
	}
	if s, err := t.offsetFor(p); err == nil {
		t.preview = entity.NewLine(s.A, s.B)
	}
}

func (t *ParallelTool) HandlePoint(p geom.Point3D) {
	switch t.state {
	case Armed:
		pk, ok := t.env.pickSegment(p, straight)
		if !ok {
			t.env.status("parallel: no segment under cursor")
			return
		}
		seg := pk.seg
		t.ref = &seg
		t.add(p)
	case Collecting:
		s, err := t.offsetFor(p)
		t.Cancel()
		if err != nil {
			t.env.status("parallel: %v", err)
			return
		}
		t.env.commitStroke(entity.NewLine(s.A, s.B))
	}
}

// Step changes the offset by n steps; it never drops below one step.
func (t *ParallelTool) Step(n int) {
	if t.state == Inactive {
		return
	}
	step := t.env.Settings.ParallelStep
	t.offset = math.Max(step, t.offset+float64(n)*step)
	t.env.status("parallel: offset %.3g", t.offset)
}

func (t *ParallelTool) offsetFor(p geom.Point3D) (geom.Segment, error) {
	side := geom.Side(p, t.ref.A, t.ref.B)
	if side == 0 {
		side = 1
	}
	return geom.OffsetSegment(t.ref.A, t.ref.B, float64(side)*t.offset)
}

// boundaryTool holds the boundary pick shared by Trim and Extend.
type boundaryTool struct {
	pointTool
	boundary *picked
}

func (t *boundaryTool) Draws() bool { return false }

func (t *boundaryTool) Cancel() {
	t.pointTool.Cancel()
	t.boundary = nil
}

func (t *boundaryTool) Deactivate() {
	t.pointTool.Deactivate()
	t.boundary = nil
}

func (t *boundaryTool) HandleMove(geom.Point3D) {}

func (t *boundaryTool) pickBoundary(p geom.Point3D, name string) bool {
	pk, ok := t.env.pickSegment(p, nil)
	if !ok {
		t.env.status("%s: no boundary under cursor", name)
		return false
	}
	t.boundary = &pk
	t.add(p)
	return true
}

// pickTarget finds the Line to modify, excluding the boundary's entity.
func (t *boundaryTool) pickTarget(p geom.Point3D) (*entity.Line, bool) {
	pk, ok := t.env.pickSegment(p, func(e entity.Entity) bool {
		if t.boundary != nil && e.ID() == t.boundary.ent.ID() {
			return false
		}
		return e.Kind() == entity.KindLine
	})
	if !ok {
		return nil, false
	}
	l, ok := pk.ent.(*entity.Line)
	return l, ok
}

// TrimTool picks a boundary segment, then removes the part of a Line on the
// clicked side of the crossing.
type TrimTool struct{ boundaryTool }

func NewTrim(env *Env) *TrimTool { return &TrimTool{boundaryTool{pointTool: pointTool{env: env}}} }

func (t *TrimTool) Name() string { return "trim" }

func (t *TrimTool) HandlePoint(p geom.Point3D) {
	switch t.state {
	case Armed:
		t.pickBoundary(p, "trim")
	case Collecting:
		l, ok := t.pickTarget(p)
		if !ok {
			t.env.status("trim: no line under cursor")
			return
		}
		b := t.boundary.seg
		t.Cancel()
		tt, u, ok := geom.LineParams(l.P1, l.P2, b.A, b.B)
		if !ok || u < -geom.ParamEps || u > 1+geom.ParamEps || tt <= geom.ParamEps || tt >= 1-geom.ParamEps {
			t.env.status("trim: line does not cross the boundary")
			return
		}
		x := l.P1.Lerp(l.P2, tt)
		var next *entity.Line
		if geom.ProjectPointOnSegment(p, l.P1, l.P2).T < tt {
			next = entity.NewLine(x, l.P2)
		} else {
			next = entity.NewLine(l.P1, x)
		}
		t.env.replace(l, next)
	}
}

// ExtendTool picks a boundary segment (or skips it to use every visible
// segment), then lengthens the clicked end of a Line to the nearest
// crossing ahead of it.
type ExtendTool struct {
	boundaryTool
	all bool
}

func NewExtend(env *Env) *ExtendTool {
	return &ExtendTool{boundaryTool: boundaryTool{pointTool: pointTool{env: env}}}
}

func (t *ExtendTool) Name() string { return "extend" }

func (t *ExtendTool) Cancel() {
	t.boundaryTool.Cancel()
	t.all = false
}

func (t *ExtendTool) Deactivate() {
	t.boundaryTool.Deactivate()
	t.all = false
}

// SkipBoundary extends to whatever visible segment comes first.
func (t *ExtendTool) SkipBoundary() {
	if t.state != Armed {
		return
	}
	t.all = true
	t.state = Collecting
	t.env.status("extend: extending to the nearest segment")
}

func (t *ExtendTool) HandlePoint(p geom.Point3D) {
	switch t.state {
	case Armed:
		t.pickBoundary(p, "extend")
	case Collecting:
		l, ok := t.pickTarget(p)
		if !ok {
			t.env.status("extend: no line under cursor")
			return
		}
		bounds := t.boundaries(l)
		t.Cancel()

		// extend the end nearer to the click
		fixed, moving := l.P1, l.P2
		atStart := p.Dist2D(l.P1) < p.Dist2D(l.P2)
		if atStart {
			fixed, moving = l.P2, l.P1
		}
		best := math.Inf(1)
		for _, b := range bounds {
			tt, u, ok := geom.LineParams(fixed, moving, b.A, b.B)
			if !ok || u < -geom.ParamEps || u > 1+geom.ParamEps {
				continue
			}
			if tt > 1+geom.ParamEps && tt < best {
				best = tt
			}
		}
		if math.IsInf(best, 1) {
			t.env.status("extend: no boundary ahead of the line")
			return
		}
		end := fixed.Lerp(moving, best)
		next := entity.NewLine(l.P1, end)
		if atStart {
			next = entity.NewLine(end, l.P2)
		}
		t.env.replace(l, next)
	}
}

func (t *ExtendTool) boundaries(target *entity.Line) []geom.Segment {
	if !t.all && t.boundary != nil {
		return []geom.Segment{t.boundary.seg}
	}
	var out []geom.Segment
	for _, e := range t.env.Store.Visible() {
		if e.ID() == target.ID() || !entity.LineLike(e) {
			continue
		}
		out = append(out, entity.Segments(e)...)
	}
	return out
}
