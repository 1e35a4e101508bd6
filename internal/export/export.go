/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export renders the visible entities of a drawing to SVG, PDF and
// PNG. All three share one layout: the drawing's bounds plus a margin,
// scaled to output units, with Y flipped so that +Y points up on the page.
package export

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gosketchcad/internal/entity"
	"gosketchcad/internal/geom"
	"gosketchcad/internal/log"
)

var ErrNothingToExport = errors.New("nothing to export")

// Format names an output format.
type Format string

const (
	FormatSVG Format = "svg"
	FormatPDF Format = "pdf"
	FormatPNG Format = "png"
)

// Options controls rendering. Zero values take defaults, except Margin
// where zero means none. Scale is output units (px for SVG and PNG, pt for
// PDF) per drawing unit; Margin is in drawing units.
type Options struct {
	Scale         float64
	Margin        float64
	StrokeWidth   float64
	Stroke        color.RGBA
	SurfaceFill   color.RGBA
	SolidFill     color.RGBA
	Hatch         color.RGBA
	Background    color.RGBA
	IncludeHidden bool
	Title         string
}

const (
	DefaultScale       = 20.0
	DefaultMargin      = 1.0
	DefaultStrokeWidth = 1.0
)

func (o Options) withDefaults() Options {
	if o.Scale <= 0 || math.IsNaN(o.Scale) {
		o.Scale = DefaultScale
	}
	if o.Margin < 0 || math.IsNaN(o.Margin) {
		o.Margin = DefaultMargin
	}
	if o.StrokeWidth <= 0 {
		o.StrokeWidth = DefaultStrokeWidth
	}
	if o.Stroke == (color.RGBA{}) {
		o.Stroke = color.RGBA{R: 0x20, G: 0x20, B: 0x20, A: 0xff}
	}
	if o.SurfaceFill == (color.RGBA{}) {
		o.SurfaceFill = color.RGBA{R: 0xc8, G: 0xdc, B: 0xff, A: 0xff}
	}
	if o.SolidFill == (color.RGBA{}) {
		o.SolidFill = color.RGBA{R: 0x9a, G: 0xa8, B: 0xbe, A: 0xff}
	}
	if o.Hatch == (color.RGBA{}) {
		o.Hatch = color.RGBA{R: 0x50, G: 0x50, B: 0x50, A: 0xff}
	}
	if o.Background == (color.RGBA{}) {
		o.Background = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	}
	if o.Title == "" {
		o.Title = "SketchCAD drawing"
	}
	return o
}

// DefaultOptions returns Options with every default applied.
func DefaultOptions() Options { return Options{Margin: DefaultMargin}.withDefaults() }

type fill struct {
	ring []geom.Point3D
	col  color.RGBA
}

// scene is the flattened paint list: fills first, then hatches, then
// outlines on top.
type scene struct {
	fills    []fill
	hatches  []geom.Segment
	dots     []geom.Point3D
	outlines [][]geom.Point3D
	bounds   geom.Bounds
	scale    float64
	margin   float64
	w, h     float64
	opt      Options
}

func buildScene(list []entity.Entity, opt Options) (*scene, error) {
	opt = opt.withDefaults()
	sc := &scene{bounds: geom.EmptyBounds(), scale: opt.Scale, margin: opt.Margin, opt: opt}
	for _, e := range list {
		if e == nil || (!e.Visible() && !opt.IncludeHidden) {
			continue
		}
		b := e.Bounds()
		if b.IsEmpty() {
			continue
		}
		sc.bounds = sc.bounds.Union(b)
		switch v := e.(type) {
		case *entity.Surface:
			sc.fills = append(sc.fills, fill{ring: v.Profile(), col: opt.SurfaceFill})
		case *entity.Solid:
			sc.fills = append(sc.fills, fill{ring: v.ProfilePts, col: opt.SolidFill})
			sc.outlines = append(sc.outlines, v.Path())
		case *entity.Hatch:
			sc.hatches = append(sc.hatches, v.Strokes...)
			sc.dots = append(sc.dots, v.Dots...)
		default:
			if p := e.Path(); len(p) >= 2 {
				sc.outlines = append(sc.outlines, p)
			}
		}
	}
	if sc.bounds.IsEmpty() {
		return nil, ErrNothingToExport
	}
	sc.w = math.Max((sc.bounds.W()+2*sc.margin)*sc.scale, 1)
	sc.h = math.Max((sc.bounds.H()+2*sc.margin)*sc.scale, 1)
	return sc, nil
}

// xy maps a world point to output coordinates (origin top-left).
func (s *scene) xy(p geom.Point3D) (float64, float64) {
	return (p.X - s.bounds.Min.X + s.margin) * s.scale, (s.bounds.Max.Y - p.Y + s.margin) * s.scale
}

// ParseFormat accepts a format name or a file name with a known extension.
func ParseFormat(s string) (Format, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if ext := filepath.Ext(v); ext != "" {
		v = strings.TrimPrefix(ext, ".")
	}
	switch Format(v) {
	case FormatSVG, FormatPDF, FormatPNG:
		return Format(v), nil
	}
	return "", fmt.Errorf("unsupported export format %q (want svg, pdf or png)", s)
}

// ToFile renders list in the given format to path, creating parent
// directories as needed.
func ToFile(path string, format Format, list []entity.Entity, opt Options) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("export path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", format, err)
	}
	switch format {
	case FormatSVG:
		err = WriteSVG(f, list, opt)
	case FormatPDF:
		err = WritePDF(f, list, opt)
	case FormatPNG:
		err = WritePNG(f, list, opt)
	default:
		err = fmt.Errorf("unsupported export format %q", format)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return err
	}
	log.WithComponent("export").Info("drawing exported", "format", string(format), "path", path, "entities", len(list))
	return nil
}
