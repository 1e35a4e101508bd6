/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package entity

import (
	"math"

	"gosketchcad/internal/geom"
)

// circleSegments is the sampling used for full circles in Path/Profile.
const circleSegments = 64

// Line is a single straight segment.
type Line struct {
	Base
	P1 geom.Point3D `json:"p1"`
	P2 geom.Point3D `json:"p2"`
	// Replaces names the line this one was trimmed or extended from.
	Replaces ID `json:"replaces,omitempty"`
}

func NewLine(p1, p2 geom.Point3D) *Line { return &Line{Base: newBase(), P1: p1, P2: p2} }

func (l *Line) Kind() Kind            { return KindLine }
func (l *Line) Path() []geom.Point3D  { return []geom.Point3D{l.P1, l.P2} }
func (l *Line) Bounds() geom.Bounds   { return geom.BoundsOf(l.Path()) }
func (l *Line) Segment() geom.Segment { return geom.Segment{A: l.P1, B: l.P2} }
func (l *Line) Length() float64       { return l.P1.Dist(l.P2) }

// Polyline is an ordered chain of points. A closed polyline repeats its
// first point at the end.
type Polyline struct {
	Base
	Points []geom.Point3D `json:"points"`
}

func NewPolyline(pts []geom.Point3D) *Polyline {
	return &Polyline{Base: newBase(), Points: append([]geom.Point3D(nil), pts...)}
}

func (p *Polyline) Kind() Kind           { return KindPolyline }
func (p *Polyline) Path() []geom.Point3D { return append([]geom.Point3D(nil), p.Points...) }
func (p *Polyline) Bounds() geom.Bounds  { return geom.BoundsOf(p.Points) }

// Closed reports whether the chain returns to its start within eps.
func (p *Polyline) Closed(eps float64) bool { return IsClosed(p.Points, eps) }

// Rectangle is an axis-aligned rectangle on the workplane.
type Rectangle struct {
	Base
	Center geom.Point3D `json:"center"`
	Width  float64      `json:"width"`
	Height float64      `json:"height"`
}

func NewRectangle(center geom.Point3D, w, h float64) *Rectangle {
	return &Rectangle{Base: newBase(), Center: center, Width: w, Height: h}
}

// RectangleFromCorners builds the rectangle spanned by two opposite corners.
func RectangleFromCorners(a, b geom.Point3D) *Rectangle {
	return NewRectangle(a.Lerp(b, 0.5), math.Abs(b.X-a.X), math.Abs(b.Y-a.Y))
}

func (r *Rectangle) Kind() Kind          { return KindRectangle }
func (r *Rectangle) PlaneZ() float64     { return r.Center.Z }
func (r *Rectangle) Bounds() geom.Bounds { return geom.BoundsOf(r.Profile()) }

// Profile returns the corners counter-clockwise from the lower-left.
func (r *Rectangle) Profile() []geom.Point3D {
	hw, hh := r.Width/2, r.Height/2
	c := r.Center
	return []geom.Point3D{
		{X: c.X - hw, Y: c.Y - hh, Z: c.Z},
		{X: c.X + hw, Y: c.Y - hh, Z: c.Z},
		{X: c.X + hw, Y: c.Y + hh, Z: c.Z},
		{X: c.X - hw, Y: c.Y + hh, Z: c.Z},
	}
}

func (r *Rectangle) Path() []geom.Point3D { return closeRing(r.Profile()) }

// Circle is a full circle on the workplane.
type Circle struct {
	Base
	Center geom.Point3D `json:"center"`
	Radius float64      `json:"radius"`
}

func NewCircle(center geom.Point3D, radius float64) *Circle {
	return &Circle{Base: newBase(), Center: center, Radius: radius}
}

func (c *Circle) Kind() Kind          { return KindCircle }
func (c *Circle) PlaneZ() float64     { return c.Center.Z }
func (c *Circle) Bounds() geom.Bounds { return geom.BoundsOf(c.Profile()) }

func (c *Circle) ArcGeometry() geom.ArcFit {
	return geom.ArcFit{Center: c.Center, Radius: c.Radius, Start: 0, End: 2 * math.Pi}
}

func (c *Circle) Path() []geom.Point3D {
	return geom.SampleArc(c.ArcGeometry(), circleSegments)
}

func (c *Circle) Profile() []geom.Point3D {
	pts := c.Path()
	return pts[:len(pts)-1]
}

// Arc is a circular arc swept counter-clockwise from StartAngle to EndAngle.
type Arc struct {
	Base
	Center     geom.Point3D `json:"center"`
	Radius     float64      `json:"radius"`
	StartAngle float64      `json:"startAngle"`
	EndAngle   float64      `json:"endAngle"`
}

func NewArc(fit geom.ArcFit) *Arc {
	return &Arc{Base: newBase(), Center: fit.Center, Radius: fit.Radius, StartAngle: fit.Start, EndAngle: fit.End}
}

func (a *Arc) Kind() Kind          { return KindArc }
func (a *Arc) Bounds() geom.Bounds { return geom.BoundsOf(a.Path()) }

func (a *Arc) ArcGeometry() geom.ArcFit {
	return geom.ArcFit{Center: a.Center, Radius: a.Radius, Start: a.StartAngle, End: a.EndAngle}
}

func (a *Arc) Path() []geom.Point3D {
	fit := a.ArcGeometry()
	return geom.SampleArc(fit, geom.SegmentsForSweep(fit.Sweep()))
}

// Surface is a planar fill region bounded by a closed loop.
type Surface struct {
	Base
	Boundary  []geom.Point3D `json:"boundary"`
	Z         float64        `json:"planeZ"`
	SourceIDs []ID           `json:"sourceIds,omitempty"`
}

func NewSurface(boundary []geom.Point3D, planeZ float64, sources ...ID) *Surface {
	return &Surface{
		Base:      newBase(),
		Boundary:  append([]geom.Point3D(nil), boundary...),
		Z:         planeZ,
		SourceIDs: append([]ID(nil), sources...),
	}
}

func (s *Surface) Kind() Kind              { return KindSurface }
func (s *Surface) PlaneZ() float64         { return s.Z }
func (s *Surface) Profile() []geom.Point3D { return append([]geom.Point3D(nil), s.Boundary...) }
func (s *Surface) Path() []geom.Point3D    { return closeRing(s.Boundary) }
func (s *Surface) Bounds() geom.Bounds     { return geom.BoundsOf(s.Boundary) }

// Solid is a flat profile extruded along +Z by Depth.
type Solid struct {
	Base
	ProfilePts []geom.Point3D `json:"profile"`
	Z          float64        `json:"planeZ"`
	Depth      float64        `json:"depth"`
	SourceID   ID             `json:"sourceId,omitempty"`
}

func NewSolid(profile []geom.Point3D, planeZ, depth float64, source ID) *Solid {
	return &Solid{Base: newBase(), ProfilePts: append([]geom.Point3D(nil), profile...), Z: planeZ, Depth: depth, SourceID: source}
}

func (s *Solid) Kind() Kind           { return KindSolid }
func (s *Solid) Path() []geom.Point3D { return closeRing(s.ProfilePts) }
func (s *Solid) Bounds() geom.Bounds  { return geom.BoundsOf(s.ProfilePts) }

// Top returns the profile lifted to the top face.
func (s *Solid) Top() []geom.Point3D {
	out := make([]geom.Point3D, len(s.ProfilePts))
	for i, p := range s.ProfilePts {
		out[i] = geom.Point3D{X: p.X, Y: p.Y, Z: s.Z + s.Depth}
	}
	return out
}

// Hatch is a generated fill pattern over a profiled entity.
type Hatch struct {
	Base
	SurfaceID ID             `json:"surfaceId"`
	Pattern   string         `json:"pattern"`
	Spacing   float64        `json:"spacing"`
	Angle     float64        `json:"angle"`
	Strokes   []geom.Segment `json:"strokes,omitempty"`
	Dots      []geom.Point3D `json:"dots,omitempty"`
}

func NewHatch(surface ID, pattern string, spacing, angle float64, strokes []geom.Segment, dots []geom.Point3D) *Hatch {
	return &Hatch{Base: newBase(), SurfaceID: surface, Pattern: pattern, Spacing: spacing, Angle: angle, Strokes: strokes, Dots: dots}
}

func (h *Hatch) Kind() Kind           { return KindHatch }
func (h *Hatch) Path() []geom.Point3D { return nil }

func (h *Hatch) Bounds() geom.Bounds {
	b := geom.BoundsOf(h.Dots)
	for _, s := range h.Strokes {
		b = b.Extend(s.A).Extend(s.B)
	}
	return b
}

func closeRing(ring []geom.Point3D) []geom.Point3D {
	if len(ring) == 0 {
		return nil
	}
	out := make([]geom.Point3D, 0, len(ring)+1)
	out = append(out, ring...)
	return append(out, ring[0])
}
