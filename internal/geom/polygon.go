/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geom

import (
	"math"
	"sort"
)

// Polygon helpers operate on an implicit closed ring: the last vertex
// connects back to the first and must not repeat it.

// PolygonArea returns the signed workplane area (positive for CCW rings).
func PolygonArea(ring []Point3D) float64 {
	if len(ring) < 3 {
		return 0
	}
	var a float64
	for i := range ring {
		j := (i + 1) % len(ring)
		a += ring[i].X*ring[j].Y - ring[j].X*ring[i].Y
	}
	return a / 2
}

// PointInPolygon uses the even-odd rule.
func PointInPolygon(p Point3D, ring []Point3D) bool {
	in := false
	for i, j := 0, len(ring)-1; i < len(ring); j, i = i, i+1 {
		a, b := ring[i], ring[j]
		if (a.Y > p.Y) != (b.Y > p.Y) {
			x := (b.X-a.X)*(p.Y-a.Y)/(b.Y-a.Y) + a.X
			if p.X < x {
				in = !in
			}
		}
	}
	return in
}

// DistanceToRing is the distance from p to the nearest ring edge.
func DistanceToRing(p Point3D, ring []Point3D) float64 {
	best := math.Inf(1)
	for i := range ring {
		j := (i + 1) % len(ring)
		if d := DistanceToSegment(p, ring[i], ring[j]); d < best {
			best = d
		}
	}
	return best
}

// PlaneDeviation returns the mean Z of pts and the largest distance of any
// point from that mean along the workplane normal.
func PlaneDeviation(pts []Point3D) (planeZ, deviation float64) {
	if len(pts) == 0 {
		return 0, 0
	}
	for _, p := range pts {
		planeZ += p.Z
	}
	planeZ /= float64(len(pts))
	for _, p := range pts {
		if d := math.Abs(p.Z - planeZ); d > deviation {
			deviation = d
		}
	}
	return planeZ, deviation
}

// DistinctCount counts points that are more than eps apart from every
// previously counted point.
func DistinctCount(pts []Point3D, eps float64) int {
	var seen []Point3D
outer:
	for _, p := range pts {
		for _, s := range seen {
			if p.Dist(s) < eps {
				continue outer
			}
		}
		seen = append(seen, p)
	}
	return len(seen)
}

// ClipLine returns the pieces of the line a→b that lie inside ring
// (even-odd). Both a and b must lie outside the ring. Pieces are ordered
// along a→b.
func ClipLine(a, b Point3D, ring []Point3D) []Segment {
	if len(ring) < 3 {
		return nil
	}
	ts := []float64{}
	for i := range ring {
		j := (i + 1) % len(ring)
		t, u, ok := LineParams(a, b, ring[i], ring[j])
		if !ok {
			continue
		}
		// half-open on the edge so a shared vertex is counted once
		if u >= 0 && u < 1 && t >= 0 && t <= 1 {
			ts = append(ts, t)
		}
	}
	sort.Float64s(ts)
	var out []Segment
	for i := 0; i+1 < len(ts); i += 2 {
		if ts[i+1]-ts[i] < 1e-12 {
			continue
		}
		out = append(out, Segment{A: a.Lerp(b, ts[i]), B: a.Lerp(b, ts[i+1])})
	}
	return out
}
