/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package entity defines the drawable entities produced by the drawing
// tools and the append-only Store that holds the committed set.
package entity

import (
	"github.com/google/uuid"

	"gosketchcad/internal/geom"
)

// ID is an opaque, stable entity identity.
type ID string

// NewID returns a fresh random identity.
func NewID() ID { return ID(uuid.NewString()) }

// Kind names an entity variant. Values are persisted; do not renumber.
type Kind string

const (
	KindLine      Kind = "line"
	KindPolyline  Kind = "polyline"
	KindRectangle Kind = "rectangle"
	KindCircle    Kind = "circle"
	KindArc       Kind = "arc"
	KindSurface   Kind = "surface"
	KindSolid     Kind = "solid"
	KindHatch     Kind = "hatch"
)

// Entity is a committed drawable. Geometry is read-only once committed;
// only visibility and layer membership change afterwards.
type Entity interface {
	ID() ID
	Kind() Kind
	Visible() bool
	SetVisible(bool)
	Layer() string
	SetLayer(string)
	Bounds() geom.Bounds
	// Path is the drawn point chain. Closed shapes repeat the first point
	// at the end; circles and arcs are sampled.
	Path() []geom.Point3D
}

// Profiled is implemented by planar fill entities that can be hatched or
// extruded. Profile returns the boundary ring without a closing duplicate.
type Profiled interface {
	Entity
	Profile() []geom.Point3D
	PlaneZ() float64
}

// Circular is implemented by entities whose geometry is an exact arc.
type Circular interface {
	Entity
	ArcGeometry() geom.ArcFit
}

// Base carries the identity and bookkeeping shared by all variants.
type Base struct {
	id      ID
	layer   string
	visible bool
}

func newBase() Base { return Base{id: NewID(), visible: true} }

func (b *Base) ID() ID               { return b.id }
func (b *Base) Visible() bool        { return b.visible }
func (b *Base) SetVisible(v bool)    { b.visible = v }
func (b *Base) Layer() string        { return b.layer }
func (b *Base) SetLayer(name string) { b.layer = name }

// Segments splits an entity's path into its non-degenerate straight pieces.
func Segments(e Entity) []geom.Segment {
	if e == nil {
		return nil
	}
	pts := e.Path()
	if len(pts) < 2 {
		return nil
	}
	out := make([]geom.Segment, 0, len(pts)-1)
	for i := 0; i+1 < len(pts); i++ {
		s := geom.Segment{A: pts[i], B: pts[i+1]}
		if s.Degenerate() {
			continue
		}
		out = append(out, s)
	}
	return out
}

// LineLike reports whether e is a stroke the snap engine and the loop
// search treat as drawn segments. Fills, solids and hatches are not.
func LineLike(e Entity) bool {
	switch e.Kind() {
	case KindLine, KindPolyline, KindRectangle, KindCircle, KindArc:
		return true
	default:
		return false
	}
}

// IsClosed reports whether a path ends within eps of where it starts and
// has at least three further points.
func IsClosed(pts []geom.Point3D, eps float64) bool {
	return len(pts) >= 4 && pts[0].Dist(pts[len(pts)-1]) < eps
}
