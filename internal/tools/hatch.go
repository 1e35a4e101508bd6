/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package tools

import (
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"

	"seehuhn.de/go/geom/vec"

	"gosketchcad/internal/entity"
	"gosketchcad/internal/geom"
)

// Hatch pattern names.
const (
	PatternParallel   = "parallel"
	PatternCross      = "cross"
	PatternDiagonal   = "diagonal"
	PatternDotted     = "dotted"
	PatternBrick      = "brick"
	PatternProcedural = "procedural"
)

// Patterns lists the supported hatch patterns.
var Patterns = []string{PatternParallel, PatternCross, PatternDiagonal, PatternDotted, PatternBrick, PatternProcedural}

var (
	ErrUnknownPattern = errors.New("unknown hatch pattern")
	ErrSpacing        = errors.New("hatch spacing must be positive")
	ErrTooDense       = errors.New("hatch too dense for the region")
)

// maxHatchElements caps the strokes plus dots of one hatch.
const maxHatchElements = 20000

// HatchTool fills the profiled entity under the click with a pattern.
type HatchTool struct {
	pointTool
	Pattern string
	Spacing float64
	Angle   float64 // degrees
}

func NewHatch(env *Env) *HatchTool {
	s := env.Settings
	return &HatchTool{pointTool: pointTool{env: env}, Pattern: s.HatchPattern, Spacing: s.HatchSpacing, Angle: s.HatchAngle}
}

func (t *HatchTool) Name() string { return "hatch" }
func (t *HatchTool) Draws() bool  { return false }

func (t *HatchTool) HandleMove(p geom.Point3D) {
	if t.state == Inactive {
		return
	}
	t.preview = nil
	if target, ok := t.pickProfile(p); ok {
		if h, err := t.build(target); err == nil {
			t.preview = h
		}
	}
}

func (t *HatchTool) HandlePoint(p geom.Point3D) {
	if t.state == Inactive {
		return
	}
	t.preview = nil
	target, ok := t.pickProfile(p)
	if !ok {
		t.env.status("hatch: no closed surface under cursor")
		return
	}
	h, err := t.build(target)
	if err != nil {
		t.env.status("hatch: %v", err)
		return
	}
	t.env.Commit(h)
}

func (t *HatchTool) build(target entity.Profiled) (*entity.Hatch, error) {
	strokes, dots, err := GenerateHatch(t.Pattern, target.Profile(), t.Spacing, t.Angle)
	if err != nil {
		return nil, err
	}
	return entity.NewHatch(target.ID(), t.Pattern, t.Spacing, t.Angle, strokes, dots), nil
}

// pickProfile prefers the smallest profile containing p, then the nearest
// boundary within pick distance.
func (t *HatchTool) pickProfile(p geom.Point3D) (entity.Profiled, bool) {
	var (
		inside   entity.Profiled
		insideA  = math.Inf(1)
		near     entity.Profiled
		nearD    = t.env.Settings.PickDistance
		haveNear bool
	)
	for _, e := range t.env.Store.Visible() {
		pr, ok := e.(entity.Profiled)
		if !ok {
			continue
		}
		ring := pr.Profile()
		if len(ring) < 3 {
			continue
		}
		if geom.PointInPolygon(p, ring) {
			if a := math.Abs(geom.PolygonArea(ring)); a < insideA {
				inside, insideA = pr, a
			}
			continue
		}
		if d := geom.DistanceToRing(p, ring); d <= nearD {
			near, nearD, haveNear = pr, d, true
		}
	}
	if inside != nil {
		return inside, true
	}
	return near, haveNear
}

// GenerateHatch fills ring with the named pattern. spacing is in world
// units, angle in degrees.
func GenerateHatch(pattern string, ring []geom.Point3D, spacing, angle float64) ([]geom.Segment, []geom.Point3D, error) {
	if spacing <= 0 || math.IsNaN(spacing) {
		return nil, nil, ErrSpacing
	}
	if len(ring) < 3 {
		return nil, nil, geom.ErrDegenerate
	}
	z, _ := geom.PlaneDeviation(ring)
	rad := angle * math.Pi / 180
	g := &hatcher{ring: ring, spacing: spacing, z: z}
	switch pattern {
	case PatternParallel:
		g.lines(rad)
	case PatternCross:
		g.lines(rad)
		g.lines(rad + math.Pi/2)
	case PatternDiagonal:
		g.lines(rad + math.Pi/4)
	case PatternDotted:
		g.dots(rad, 0)
	case PatternBrick:
		g.bricks(rad)
	case PatternProcedural:
		g.dots(rad, 0.35)
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownPattern, pattern)
	}
	if g.tooDense {
		return nil, nil, ErrTooDense
	}
	return g.strokes, g.points, nil
}

type hatcher struct {
	ring     []geom.Point3D
	spacing  float64
	z        float64
	strokes  []geom.Segment
	points   []geom.Point3D
	tooDense bool
}

// frame returns the ring's extent along the direction d and its normal n.
func (h *hatcher) frame(rad float64) (d, n vec.Vec2, minD, maxD, minN, maxN float64) {
	d = vec.Vec2{X: math.Cos(rad), Y: math.Sin(rad)}
	n = vec.Vec2{X: -d.Y, Y: d.X}
	minD, minN = math.Inf(1), math.Inf(1)
	maxD, maxN = math.Inf(-1), math.Inf(-1)
	for _, p := range h.ring {
		v := p.XY()
		pd, pn := v.X*d.X+v.Y*d.Y, v.X*n.X+v.Y*n.Y
		minD, maxD = math.Min(minD, pd), math.Max(maxD, pd)
		minN, maxN = math.Min(minN, pn), math.Max(maxN, pn)
	}
	return d, n, minD, maxD, minN, maxN
}

func (h *hatcher) at(d, n vec.Vec2, u, v float64) geom.Point3D {
	return geom.At(d.Mul(u).Add(n.Mul(v)), h.z)
}

func (h *hatcher) budget(extra int) bool {
	if len(h.strokes)+len(h.points)+extra > maxHatchElements {
		h.tooDense = true
	}
	return !h.tooDense
}

// lines adds strokes along direction rad, one every spacing.
func (h *hatcher) lines(rad float64) {
	d, n, minD, maxD, minN, maxN := h.frame(rad)
	if !h.budget(int((maxN - minN) / h.spacing)) {
		return
	}
	for v := math.Ceil(minN/h.spacing) * h.spacing; v <= maxN; v += h.spacing {
		// endpoints sit beyond the ring so the clip sees every crossing
		a := h.at(d, n, minD-1, v)
		b := h.at(d, n, maxD+1, v)
		h.strokes = append(h.strokes, geom.ClipLine(a, b, h.ring)...)
	}
}

// dots places one dot per grid cell; jitter > 0 displaces each dot
// deterministically by up to jitter×spacing.
func (h *hatcher) dots(rad, jitter float64) {
	d, n, minD, maxD, minN, maxN := h.frame(rad)
	cols := int((maxD-minD)/h.spacing) + 1
	rows := int((maxN-minN)/h.spacing) + 1
	if !h.budget(cols * rows) {
		return
	}
	var rng *rand.Rand
	if jitter > 0 {
		rng = rand.New(rand.NewSource(ringSeed(h.ring)))
	}
	for v := math.Ceil(minN/h.spacing) * h.spacing; v <= maxN; v += h.spacing {
		for u := math.Ceil(minD/h.spacing) * h.spacing; u <= maxD; u += h.spacing {
			pu, pv := u, v
			if rng != nil {
				pu += (rng.Float64()*2 - 1) * jitter * h.spacing
				pv += (rng.Float64()*2 - 1) * jitter * h.spacing
			}
			p := h.at(d, n, pu, pv)
			if geom.PointInPolygon(p, h.ring) {
				h.points = append(h.points, p)
			}
		}
	}
}

// bricks draws courses every spacing with head joints every two spacings,
// shifted by one spacing on alternate courses.
func (h *hatcher) bricks(rad float64) {
	h.lines(rad)
	if h.tooDense {
		return
	}
	d, n, minD, maxD, minN, maxN := h.frame(rad)
	course := 0
	for v := math.Floor(minN/h.spacing) * h.spacing; v < maxN; v += h.spacing {
		shift := float64(course%2) * h.spacing
		course++
		for u := math.Floor(minD/(2*h.spacing))*2*h.spacing + shift; u <= maxD; u += 2 * h.spacing {
			a := h.at(d, n, u, v)
			b := h.at(d, n, u, v+h.spacing)
			if geom.PointInPolygon(a.Lerp(b, 0.5), h.ring) &&
				geom.PointInPolygon(a, h.ring) && geom.PointInPolygon(b, h.ring) {
				if !h.budget(1) {
					return
				}
				h.strokes = append(h.strokes, geom.Segment{A: a, B: b})
			}
		}
	}
}

// ringSeed derives a stable seed from the ring so the same region always
// gets the same stipple.
func ringSeed(ring []geom.Point3D) int64 {
	f := fnv.New64a()
	for _, p := range ring {
		fmt.Fprintf(f, "%.6f,%.6f;", p.X, p.Y)
	}
	return int64(f.Sum64())
}
