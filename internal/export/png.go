/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	"golang.org/x/image/vector"

	"gosketchcad/internal/entity"
	"gosketchcad/internal/geom"
)

// RenderImage rasterizes the drawing. Scale is in pixels per drawing unit.
func RenderImage(list []entity.Entity, opt Options) (*image.RGBA, error) {
	sc, err := buildScene(list, opt)
	if err != nil {
		return nil, err
	}
	opt = sc.opt
	w, h := int(math.Ceil(sc.w)), int(math.Ceil(sc.h))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: opt.Background}, image.Point{}, draw.Src)

	r := vector.NewRasterizer(w, h)
	for _, f := range sc.fills {
		r.Reset(w, h)
		sc.ringPath(r, f.ring)
		r.Draw(img, img.Bounds(), image.NewUniform(f.col), image.Point{})
	}

	if len(sc.hatches) > 0 || len(sc.dots) > 0 {
		r.Reset(w, h)
		for _, s := range sc.hatches {
			sc.strokePath(r, s.A, s.B, opt.StrokeWidth/2)
		}
		for _, d := range sc.dots {
			x, y := sc.xy(d)
			dotPath(r, x, y, opt.StrokeWidth)
		}
		r.Draw(img, img.Bounds(), image.NewUniform(opt.Hatch), image.Point{})
	}

	if len(sc.outlines) > 0 {
		r.Reset(w, h)
		for _, p := range sc.outlines {
			for i := 1; i < len(p); i++ {
				sc.strokePath(r, p[i-1], p[i], opt.StrokeWidth)
			}
		}
		r.Draw(img, img.Bounds(), image.NewUniform(opt.Stroke), image.Point{})
	}
	return img, nil
}

// WritePNG encodes RenderImage's output.
func WritePNG(w io.Writer, list []entity.Entity, opt Options) error {
	img, err := RenderImage(list, opt)
	if err != nil {
		return err
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

func (s *scene) ringPath(r *vector.Rasterizer, ring []geom.Point3D) {
	for i, p := range ring {
		x, y := s.xy(p)
		if i == 0 {
			r.MoveTo(float32(x), float32(y))
			continue
		}
		r.LineTo(float32(x), float32(y))
	}
	r.ClosePath()
}

// strokePath adds a segment as a quad of the given width. Quads are always
// wound the same way so overlapping segments accumulate instead of cancel.
func (s *scene) strokePath(r *vector.Rasterizer, a, b geom.Point3D, width float64) {
	x1, y1 := s.xy(a)
	x2, y2 := s.xy(b)
	dx, dy := x2-x1, y2-y1
	l := math.Hypot(dx, dy)
	if l == 0 {
		return
	}
	nx, ny := -dy/l*width/2, dx/l*width/2
	r.MoveTo(float32(x1+nx), float32(y1+ny))
	r.LineTo(float32(x2+nx), float32(y2+ny))
	r.LineTo(float32(x2-nx), float32(y2-ny))
	r.LineTo(float32(x1-nx), float32(y1-ny))
	r.ClosePath()
}

func dotPath(r *vector.Rasterizer, x, y, radius float64) {
	const n = 8
	for i := 0; i < n; i++ {
		a := 2 * math.Pi * float64(i) / n
		px, py := float32(x+radius*math.Cos(a)), float32(y+radius*math.Sin(a))
		if i == 0 {
			r.MoveTo(px, py)
			continue
		}
		r.LineTo(px, py)
	}
	r.ClosePath()
}

func toRGBA(c color.Color) color.RGBA {
	r, g, b, a := c.RGBA()
	return color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: uint8(a >> 8)}
}
