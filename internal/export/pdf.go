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
	"image/color"
	"io"

	"github.com/jung-kurt/gofpdf"

	"gosketchcad/internal/entity"
	"gosketchcad/internal/geom"
	"gosketchcad/internal/version"
)

// WritePDF renders the drawing onto a single page sized to the drawing.
// Scale is in points per drawing unit.
func WritePDF(w io.Writer, list []entity.Entity, opt Options) error {
	sc, err := buildScene(list, opt)
	if err != nil {
		return err
	}
	opt = sc.opt

	// Use points for 1:1 mapping from scene to PDF
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr:        "pt",
		OrientationStr: "P",
		Size:           gofpdf.SizeType{Wd: sc.w, Ht: sc.h},
	})
	pdf.SetTitle(opt.Title, true)
	pdf.SetCreator(version.String(), false)
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPageFormat("P", gofpdf.SizeType{Wd: sc.w, Ht: sc.h})

	setFillColor(pdf, opt.Background)
	pdf.Rect(0, 0, sc.w, sc.h, "F")

	for _, f := range sc.fills {
		setFillColor(pdf, f.col)
		setAlpha(pdf, f.col)
		pdf.Polygon(sc.pdfPoints(f.ring), "F")
	}
	pdf.SetAlpha(1, "Normal")

	pdf.SetLineCapStyle("round")
	pdf.SetLineJoinStyle("round")
	setDrawColor(pdf, opt.Hatch)
	setFillColor(pdf, opt.Hatch)
	pdf.SetLineWidth(opt.StrokeWidth / 2)
	for _, s := range sc.hatches {
		x1, y1 := sc.xy(s.A)
		x2, y2 := sc.xy(s.B)
		pdf.Line(x1, y1, x2, y2)
	}
	for _, d := range sc.dots {
		x, y := sc.xy(d)
		pdf.Circle(x, y, opt.StrokeWidth, "F")
	}

	setDrawColor(pdf, opt.Stroke)
	pdf.SetLineWidth(opt.StrokeWidth)
	for _, p := range sc.outlines {
		for i := 1; i < len(p); i++ {
			x1, y1 := sc.xy(p[i-1])
			x2, y2 := sc.xy(p[i])
			pdf.Line(x1, y1, x2, y2)
		}
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func (s *scene) pdfPoints(ring []geom.Point3D) []gofpdf.PointType {
	out := make([]gofpdf.PointType, len(ring))
	for i, p := range ring {
		out[i].X, out[i].Y = s.xy(p)
	}
	return out
}

func setDrawColor(pdf *gofpdf.Fpdf, c color.RGBA) {
	pdf.SetDrawColor(int(c.R), int(c.G), int(c.B))
}

func setFillColor(pdf *gofpdf.Fpdf, c color.RGBA) {
	pdf.SetFillColor(int(c.R), int(c.G), int(c.B))
}

func setAlpha(pdf *gofpdf.Fpdf, c color.RGBA) {
	pdf.SetAlpha(float64(c.A)/255, "Normal")
}
