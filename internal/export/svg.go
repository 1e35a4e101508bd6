/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"strconv"
	"strings"

	"gosketchcad/internal/entity"
	"gosketchcad/internal/geom"
)

// WriteSVG renders the drawing as a standalone SVG document. Width and
// height are in px; the viewBox matches them one to one.
func WriteSVG(w io.Writer, list []entity.Entity, opt Options) error {
	sc, err := buildScene(list, opt)
	if err != nil {
		return err
	}
	opt = sc.opt

	var buf bytes.Buffer
	var werr error
	wf := func(format string, args ...any) {
		if werr != nil {
			return
		}
		_, werr = fmt.Fprintf(&buf, format, args...)
	}

	wf("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	wf("<svg xmlns=\"http://www.w3.org/2000/svg\" version=\"1.1\" width=\"%spx\" height=\"%spx\" viewBox=\"0 0 %s %s\">\n", num(sc.w), num(sc.h), num(sc.w), num(sc.h))
	wf("  <title>%s</title>\n", escText(opt.Title))
	wf("  <rect x=\"0\" y=\"0\" width=\"%s\" height=\"%s\" fill=\"%s\"/>\n", num(sc.w), num(sc.h), svgColor(opt.Background))

	for _, f := range sc.fills {
		wf("  <polygon points=\"%s\" fill=\"%s\"%s stroke=\"none\"/>\n", sc.svgPoints(f.ring), svgColor(f.col), svgOpacity("fill-opacity", f.col))
	}
	if len(sc.hatches) > 0 || len(sc.dots) > 0 {
		hc := svgColor(opt.Hatch)
		wf("  <g stroke=\"%s\" stroke-width=\"%s\" fill=\"%s\">\n", hc, num(opt.StrokeWidth/2), hc)
		for _, s := range sc.hatches {
			x1, y1 := sc.xy(s.A)
			x2, y2 := sc.xy(s.B)
			wf("    <line x1=\"%s\" y1=\"%s\" x2=\"%s\" y2=\"%s\"/>\n", num(x1), num(y1), num(x2), num(y2))
		}
		for _, d := range sc.dots {
			x, y := sc.xy(d)
			wf("    <circle cx=\"%s\" cy=\"%s\" r=\"%s\" stroke=\"none\"/>\n", num(x), num(y), num(opt.StrokeWidth))
		}
		wf("  </g>\n")
	}
	if len(sc.outlines) > 0 {
		wf("  <g fill=\"none\" stroke=\"%s\" stroke-width=\"%s\" stroke-linejoin=\"round\" stroke-linecap=\"round\">\n", svgColor(opt.Stroke), num(opt.StrokeWidth))
		for _, p := range sc.outlines {
			wf("    <polyline points=\"%s\"/>\n", sc.svgPoints(p))
		}
		wf("  </g>\n")
	}
	wf("</svg>\n")

	if werr != nil {
		return fmt.Errorf("build svg: %w", werr)
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write svg: %w", err)
	}
	return nil
}

func (s *scene) svgPoints(pts []geom.Point3D) string {
	var b strings.Builder
	for i, p := range pts {
		if i > 0 {
			b.WriteByte(' ')
		}
		x, y := s.xy(p)
		b.WriteString(num(x))
		b.WriteByte(',')
		b.WriteString(num(y))
	}
	return b.String()
}

func num(v float64) string {
	return strconv.FormatFloat(geom.FloatRound(v, 3), 'f', -1, 64)
}

func svgColor(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func svgOpacity(attr string, c color.RGBA) string {
	if c.A == 0xff {
		return ""
	}
	return fmt.Sprintf(" %s=\"%s\"", attr, num(float64(c.A)/255))
}

func escText(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(s)
}
