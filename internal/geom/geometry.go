/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package geom holds the stateless geometry used by the drawing core:
// points on the workplane, bounds, and the intersection/projection/arc math
// the snap engine and tools are built on.
package geom

import (
	"math"

	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"
)

// Point3D is a world-space coordinate on (or above) the workplane.
// It is a value type; storing it copies it.
type Point3D struct{ X, Y, Z float64 }

func P(x, y, z float64) Point3D { return Point3D{X: x, Y: y, Z: z} }

// XY drops Z; all planar math runs on the workplane projection.
func (p Point3D) XY() vec.Vec2 { return vec.Vec2{X: p.X, Y: p.Y} }

// At lifts a 2D workplane point to height z.
func At(v vec.Vec2, z float64) Point3D { return Point3D{X: v.X, Y: v.Y, Z: z} }

func (p Point3D) Add(q Point3D) Point3D    { return Point3D{p.X + q.X, p.Y + q.Y, p.Z + q.Z} }
func (p Point3D) Sub(q Point3D) Point3D    { return Point3D{p.X - q.X, p.Y - q.Y, p.Z - q.Z} }
func (p Point3D) Scale(s float64) Point3D  { return Point3D{p.X * s, p.Y * s, p.Z * s} }
func (p Point3D) Dist(q Point3D) float64   { return math.Sqrt(sq(p.X-q.X) + sq(p.Y-q.Y) + sq(p.Z-q.Z)) }
func (p Point3D) Dist2D(q Point3D) float64 { return math.Hypot(p.X-q.X, p.Y-q.Y) }
func (p Point3D) Lerp(q Point3D, t float64) Point3D {
	return Point3D{p.X + (q.X-p.X)*t, p.Y + (q.Y-p.Y)*t, p.Z + (q.Z-p.Z)*t}
}

// Valid reports whether all coordinates are finite.
func (p Point3D) Valid() bool {
	return finite(p.X) && finite(p.Y) && finite(p.Z)
}

// Equal compares two points within eps on every axis.
func (p Point3D) Equal(q Point3D, eps float64) bool {
	return math.Abs(p.X-q.X) <= eps && math.Abs(p.Y-q.Y) <= eps && math.Abs(p.Z-q.Z) <= eps
}

// Bounds is an axis-aligned box on the workplane.
type Bounds struct {
	Min, Max vec.Vec2
}

// EmptyBounds returns bounds that any Extend call will replace.
func EmptyBounds() Bounds {
	return Bounds{Min: vec.Vec2{X: math.Inf(1), Y: math.Inf(1)}, Max: vec.Vec2{X: math.Inf(-1), Y: math.Inf(-1)}}
}

// BoundsOf returns the bounds of pts, or empty bounds for no points.
func BoundsOf(pts []Point3D) Bounds {
	b := EmptyBounds()
	for _, p := range pts {
		b = b.Extend(p)
	}
	return b
}

func (b Bounds) IsEmpty() bool { return b.Min.X > b.Max.X || b.Min.Y > b.Max.Y }

func (b Bounds) W() float64 { return b.Max.X - b.Min.X }
func (b Bounds) H() float64 { return b.Max.Y - b.Min.Y }

func (b Bounds) Center() vec.Vec2 {
	return vec.Vec2{X: (b.Min.X + b.Max.X) / 2, Y: (b.Min.Y + b.Max.Y) / 2}
}

// Extend grows b to include p.
func (b Bounds) Extend(p Point3D) Bounds {
	return Bounds{
		Min: vec.Vec2{X: math.Min(b.Min.X, p.X), Y: math.Min(b.Min.Y, p.Y)},
		Max: vec.Vec2{X: math.Max(b.Max.X, p.X), Y: math.Max(b.Max.Y, p.Y)},
	}
}

// Union returns the minimal bounds containing both.
func (b Bounds) Union(o Bounds) Bounds {
	if b.IsEmpty() {
		return o
	}
	if o.IsEmpty() {
		return b
	}
	return Bounds{
		Min: vec.Vec2{X: math.Min(b.Min.X, o.Min.X), Y: math.Min(b.Min.Y, o.Min.Y)},
		Max: vec.Vec2{X: math.Max(b.Max.X, o.Max.X), Y: math.Max(b.Max.Y, o.Max.Y)},
	}
}

func (b Bounds) Contains(p Point3D) bool {
	return p.X >= b.Min.X && p.Y >= b.Min.Y && p.X <= b.Max.X && p.Y <= b.Max.Y
}

// Inset returns bounds inset by d on all sides (negative grows).
func (b Bounds) Inset(d float64) Bounds {
	return Bounds{
		Min: vec.Vec2{X: b.Min.X + d, Y: b.Min.Y + d},
		Max: vec.Vec2{X: b.Max.X - d, Y: b.Max.Y - d},
	}
}

// Rect converts to the lower-left/upper-right form used by renderers.
func (b Bounds) Rect() rect.Rect {
	return rect.Rect{LLx: b.Min.X, LLy: b.Min.Y, URx: b.Max.X, URy: b.Max.Y}
}

// FloatRound rounds v to n decimal places deterministically.
func FloatRound(v float64, places int) float64 {
	if places < 0 {
		return v
	}
	pow := math.Pow(10, float64(places))
	return math.Round(v*pow) / pow
}

// Quantize rounds p to the nearest grid node on the workplane; Z is kept.
// A non-positive grid returns p unchanged.
func Quantize(p Point3D, grid float64) Point3D {
	if grid <= 0 {
		return p
	}
	return Point3D{X: math.Round(p.X/grid) * grid, Y: math.Round(p.Y/grid) * grid, Z: p.Z}
}

func sq(v float64) float64 { return v * v }

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
