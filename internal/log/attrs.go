/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */


package log

import (
	"fmt"
	"log/slog"

	"gosketchcad/internal/entity"
	"gosketchcad/internal/geom"
)

// Entity groups the identity of e: id, kind and layer. Geometry is left out.
func Entity(e entity.Entity) slog.Attr {
	if e == nil {
		return slog.Group("entity")
	}
	return slog.Group("entity",
		slog.String("kind", string(e.Kind())),
		slog.String("id", string(e.ID())),
		slog.String("layer", e.Layer()),
	)
}

// EntityID is for records that only hold an id, such as history steps.
func EntityID(id entity.ID) slog.Attr { return slog.String("entity.id", string(id)) }

// Point logs p as "(x, y, z)" with trimmed decimals.
func Point(key string, p geom.Point3D) slog.Attr { return slog.Any(key, point(p)) }

type point geom.Point3D

func (p point) LogValue() slog.Value {
	return slog.StringValue("(" + num(p.X) + ", " + num(p.Y) + ", " + num(p.Z) + ")")
}

// Tool names the active drawing tool.
func Tool(name string) slog.Attr { return slog.String("tool", name) }

// Snap groups a resolved snap: its kind, the snapped point and the screen
// distance in pixels.
func Snap(kind fmt.Stringer, at geom.Point3D, px float64) slog.Attr {
	return slog.Group("snap",
		slog.String("kind", kind.String()),
		slog.Any("at", point(at)),
		slog.Float64("px", px),
	)
}

// Drawing names the drawing a record is about.
func Drawing(name string) slog.Attr { return slog.String("drawing", name) }
