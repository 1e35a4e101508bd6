/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package tools

import (
	"log/slog"

	"gosketchcad/internal/entity"
	"gosketchcad/internal/geom"
)

// LineTool commits a Line from two points.
type LineTool struct{ pointTool }

func NewLine(env *Env) *LineTool { return &LineTool{pointTool{env: env}} }

func (t *LineTool) Name() string { return "line" }

func (t *LineTool) HandleMove(p geom.Point3D) {
	if t.state != Collecting {
		return
	}
	t.preview = entity.NewLine(t.pts[0], p)
}

func (t *LineTool) HandlePoint(p geom.Point3D) {
	if !t.add(p) || len(t.pts) < 2 {
		return
	}
	a, b := t.pts[0], t.pts[1]
	t.Cancel()
	if a.Dist(b) < 1e-9 {
		t.env.status("line: zero length, nothing drawn")
		return
	}
	t.env.commitStroke(entity.NewLine(a, b))
}

// RectangleTool commits an axis-aligned Rectangle from two corners.
type RectangleTool struct{ pointTool }

func NewRectangle(env *Env) *RectangleTool { return &RectangleTool{pointTool{env: env}} }

func (t *RectangleTool) Name() string { return "rectangle" }

func (t *RectangleTool) HandleMove(p geom.Point3D) {
	if t.state != Collecting {
		return
	}
	t.preview = entity.RectangleFromCorners(t.pts[0], p)
}

func (t *RectangleTool) HandlePoint(p geom.Point3D) {
	if !t.add(p) || len(t.pts) < 2 {
		return
	}
	r := entity.RectangleFromCorners(t.pts[0], t.pts[1])
	t.Cancel()
	if minSize := t.env.Settings.MinSize; r.Width < minSize || r.Height < minSize {
		t.env.status("rectangle: too small (%.3g × %.3g), nothing drawn", r.Width, r.Height)
		return
	}
	t.env.Commit(r)
}

// CircleTool commits a Circle from its center and a rim point.
type CircleTool struct{ pointTool }

func NewCircle(env *Env) *CircleTool { return &CircleTool{pointTool{env: env}} }

func (t *CircleTool) Name() string { return "circle" }

func (t *CircleTool) HandleMove(p geom.Point3D) {
	if t.state != Collecting {
		return
	}
	t.preview = entity.NewCircle(t.pts[0], t.pts[0].Dist2D(p))
}

func (t *CircleTool) HandlePoint(p geom.Point3D) {
	if !t.add(p) || len(t.pts) < 2 {
		return
	}
	c := entity.NewCircle(t.pts[0], t.pts[0].Dist2D(t.pts[1]))
	t.Cancel()
	if c.Radius < t.env.Settings.MinSize {
		t.env.status("circle: radius too small (%.3g), nothing drawn", c.Radius)
		return
	}
	t.env.Commit(c)
}

// ArcTool commits an Arc through start, a through-point and end.
type ArcTool struct{ pointTool }

func NewArc(env *Env) *ArcTool { return &ArcTool{pointTool{env: env}} }

func (t *ArcTool) Name() string { return "arc" }

func (t *ArcTool) HandleMove(p geom.Point3D) {
	switch len(t.pts) {
	case 1:
		t.preview = entity.NewLine(t.pts[0], p)
	case 2:
		if fit, err := geom.ArcThrough(t.pts[0], t.pts[1], p); err == nil {
			t.preview = entity.NewArc(fit)
		} else {
			t.preview = entity.NewPolyline([]geom.Point3D{t.pts[0], t.pts[1], p})
		}
	}
}

func (t *ArcTool) HandlePoint(p geom.Point3D) {
	if !t.add(p) || len(t.pts) < 3 {
		return
	}
	start, mid, end := t.pts[0], t.pts[1], t.pts[2]
	t.Cancel()
	fit, err := geom.ArcThrough(start, mid, end)
	if err != nil {
		t.env.Log.Warn("arc not drawn", slog.Any("err", err))
		t.env.status("arc: points are collinear, nothing drawn")
		return
	}
	t.env.Commit(entity.NewArc(fit))
}

// PolylineTool collects points until Finish or Close. Clicking back on the
// first point closes the chain.
type PolylineTool struct{ pointTool }

func NewPolyline(env *Env) *PolylineTool { return &PolylineTool{pointTool{env: env}} }

func (t *PolylineTool) Name() string { return "polyline" }

func (t *PolylineTool) HandleMove(p geom.Point3D) {
	if t.state != Collecting {
		return
	}
	t.preview = entity.NewPolyline(append(t.Points(), p))
}

func (t *PolylineTool) HandlePoint(p geom.Point3D) {
	if t.state == Inactive || !p.Valid() {
		return
	}
	n := len(t.pts)
	if n >= 3 && p.Dist(t.pts[0]) < t.env.Settings.CloseTolerance {
		t.Close()
		return
	}
	if n > 0 && p.Dist(t.pts[n-1]) < 1e-9 {
		return
	}
	t.add(p)
}

// Finish commits the open chain (two points or more).
func (t *PolylineTool) Finish() {
	if len(t.pts) < 2 {
		return
	}
	t.commit(t.Points())
}

// Close appends a copy of the first point and commits (three points or more).
func (t *PolylineTool) Close() {
	if len(t.pts) < 3 {
		return
	}
	t.commit(append(t.Points(), t.pts[0]))
}

func (t *PolylineTool) commit(pts []geom.Point3D) {
	t.Cancel()
	t.env.commitStroke(entity.NewPolyline(pts))
}
