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

	"seehuhn.de/go/geom/vec"
)

// ArcTurningThreshold is the average turning angle (radians) above which a
// sampled point chain is treated as an arc.
const ArcTurningThreshold = 0.1

// AverageTurning returns the mean absolute direction change between
// consecutive segments of pts. Chains shorter than three points, or with
// only zero-length steps, turn by 0.
func AverageTurning(pts []Point3D) float64 {
	if len(pts) < 3 {
		return 0
	}
	var sum float64
	n := 0
	for i := 1; i+1 < len(pts); i++ {
		d1 := pts[i].XY().Sub(pts[i-1].XY())
		d2 := pts[i+1].XY().Sub(pts[i].XY())
		if d1.Length() < 1e-12 || d2.Length() < 1e-12 {
			continue
		}
		a := math.Atan2(cross(d1, d2), dot(d1, d2))
		sum += math.Abs(a)
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// IsArcLike classifies a sampled chain as an arc when it has at least four
// points and its average turning exceeds ArcTurningThreshold.
func IsArcLike(pts []Point3D) bool {
	return len(pts) >= 4 && AverageTurning(pts) > ArcTurningThreshold
}

// ArcFit is a circular arc on the workplane. The sweep runs
// counter-clockwise from Start to End with End > Start.
type ArcFit struct {
	Center Point3D
	Radius float64
	Start  float64
	End    float64
}

// Sweep is the angular extent of the arc.
func (a ArcFit) Sweep() float64 { return a.End - a.Start }

// PointAt returns the point at angle theta on the arc's circle.
func (a ArcFit) PointAt(theta float64) Point3D {
	return Point3D{X: a.Center.X + a.Radius*math.Cos(theta), Y: a.Center.Y + a.Radius*math.Sin(theta), Z: a.Center.Z}
}

// Contains reports whether angle theta falls inside the sweep.
func (a ArcFit) Contains(theta float64) bool {
	if a.Sweep() >= 2*math.Pi-1e-9 {
		return true
	}
	return NormalizeAngle(theta-a.Start) <= a.Sweep()+1e-9
}

// ArcThrough fits the arc that starts at start, passes through mid and ends
// at end. Collinear input yields ErrDegenerate.
func ArcThrough(start, mid, end Point3D) (ArcFit, error) {
	c, err := Circumcenter(start.XY(), mid.XY(), end.XY())
	if err != nil {
		return ArcFit{}, err
	}
	center := At(c, start.Z)
	r := center.Dist2D(start)
	a0 := angleOf(c, start.XY())
	am := angleOf(c, mid.XY())
	a1 := angleOf(c, end.XY())
	ccwSweep := NormalizeAngle(a1 - a0)
	if NormalizeAngle(am-a0) <= ccwSweep {
		return ArcFit{Center: center, Radius: r, Start: a0, End: a0 + ccwSweep}, nil
	}
	// mid lies on the clockwise side: store the same arc CCW from end to start.
	return ArcFit{Center: center, Radius: r, Start: a1, End: a1 + NormalizeAngle(a0-a1)}, nil
}

// SampleArc returns segments+1 points along the arc, inclusive of both ends.
func SampleArc(a ArcFit, segments int) []Point3D {
	if segments < 1 {
		segments = 1
	}
	out := make([]Point3D, 0, segments+1)
	for i := 0; i <= segments; i++ {
		t := a.Start + a.Sweep()*float64(i)/float64(segments)
		out = append(out, a.PointAt(t))
	}
	return out
}

// SegmentsForSweep picks a sampling density of roughly one segment per
// 1/64 of a full turn, never fewer than 4.
func SegmentsForSweep(sweep float64) int {
	n := int(math.Ceil(math.Abs(sweep) / (2 * math.Pi) * 64))
	if n < 4 {
		n = 4
	}
	return n
}

// NormalizeAngle maps a into [0, 2π).
func NormalizeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a
}

// FitArc derives an arc from a sampled chain using its first, middle and
// last points. A chain that closes on itself is reported as a full circle.
func FitArc(pts []Point3D) (ArcFit, error) {
	if len(pts) < 3 {
		return ArcFit{}, ErrDegenerate
	}
	first, last := pts[0], pts[len(pts)-1]
	if first.Dist2D(last) < 1e-6 && len(pts) >= 4 {
		// closed chain: use three spread points, sweep the full turn
		c, err := Circumcenter(first.XY(), pts[len(pts)/3].XY(), pts[2*len(pts)/3].XY())
		if err != nil {
			return ArcFit{}, err
		}
		center := At(c, first.Z)
		a0 := angleOf(c, first.XY())
		return ArcFit{Center: center, Radius: center.Dist2D(first), Start: a0, End: a0 + 2*math.Pi}, nil
	}
	return ArcThrough(first, pts[len(pts)/2], last)
}

func angleOf(c, p vec.Vec2) float64 {
	return math.Atan2(p.Y-c.Y, p.X-c.X)
}
