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
	"errors"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gosketchcad/internal/entity"
	"gosketchcad/internal/geom"
)

// sampleDrawing is a 4x4 square surface with its four edges and one hidden
// line far outside the square.
func sampleDrawing() []entity.Entity {
	ring := []geom.Point3D{geom.P(0, 0, 0), geom.P(4, 0, 0), geom.P(4, 4, 0), geom.P(0, 4, 0)}
	var list []entity.Entity
	for i := range ring {
		list = append(list, entity.NewLine(ring[i], ring[(i+1)%4]))
	}
	list = append(list, entity.NewSurface(ring, 0))
	hidden := entity.NewLine(geom.P(100, 100, 0), geom.P(200, 100, 0))
	hidden.SetVisible(false)
	return append(list, hidden)
}

func testOptions() Options {
	return Options{Scale: 10, Margin: 1}
}

func TestWriteSVG(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSVG(&buf, sampleDrawing(), testOptions()); err != nil {
		t.Fatalf("WriteSVG: %v", err)
	}
	s := buf.String()
	if !strings.Contains(s, `viewBox="0 0 60 60"`) {
		t.Fatalf("hidden entity must not widen the view box:\n%s", s)
	}
	if n := strings.Count(s, "<polygon"); n != 1 {
		t.Fatalf("expected 1 filled surface, got %d", n)
	}
	if n := strings.Count(s, "<polyline"); n != 4 {
		t.Fatalf("expected 4 outlines, got %d", n)
	}
	// world (0,0) sits one margin in from the bottom-left corner
	if !strings.Contains(s, `points="10,50 50,50`) {
		t.Fatalf("unexpected y flip or offset:\n%s", s)
	}
}

func TestWriteSVGIncludeHidden(t *testing.T) {
	opt := testOptions()
	opt.IncludeHidden = true
	var buf bytes.Buffer
	if err := WriteSVG(&buf, sampleDrawing(), opt); err != nil {
		t.Fatalf("WriteSVG: %v", err)
	}
	if strings.Contains(buf.String(), `viewBox="0 0 60 60"`) {
		t.Fatalf("hidden entity should be part of the bounds now")
	}
}

func TestHatchIsDrawn(t *testing.T) {
	h := entity.NewHatch("s1", "lines", 1, 0, []geom.Segment{{A: geom.P(0, 1, 0), B: geom.P(4, 1, 0)}}, []geom.Point3D{geom.P(2, 2, 0)})
	var buf bytes.Buffer
	if err := WriteSVG(&buf, append(sampleDrawing(), h), testOptions()); err != nil {
		t.Fatalf("WriteSVG: %v", err)
	}
	s := buf.String()
	if !strings.Contains(s, "<line ") || !strings.Contains(s, "<circle ") {
		t.Fatalf("hatch strokes and dots missing:\n%s", s)
	}
}

func TestNothingToExport(t *testing.T) {
	l := entity.NewLine(geom.P(0, 0, 0), geom.P(1, 0, 0))
	l.SetVisible(false)
	if err := WriteSVG(&bytes.Buffer{}, []entity.Entity{l}, Options{}); !errors.Is(err, ErrNothingToExport) {
		t.Fatalf("expected ErrNothingToExport, got %v", err)
	}
	if err := WritePDF(&bytes.Buffer{}, nil, Options{}); !errors.Is(err, ErrNothingToExport) {
		t.Fatalf("expected ErrNothingToExport from pdf, got %v", err)
	}
}

func TestRenderImage(t *testing.T) {
	opt := testOptions()
	img, err := RenderImage(sampleDrawing(), opt)
	if err != nil {
		t.Fatalf("RenderImage: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 60 || b.Dy() != 60 {
		t.Fatalf("unexpected size %v", b)
	}
	want := opt.withDefaults()
	if got := toRGBA(img.At(30, 30)); !near(got, want.SurfaceFill) {
		t.Fatalf("surface interior should be filled, got %v", got)
	}
	if got := toRGBA(img.At(2, 2)); got != want.Background {
		t.Fatalf("margin should stay background, got %v", got)
	}
	// left edge at x=10 crosses column 9 and 10 by half a pixel each
	if got := toRGBA(img.At(10, 30)); near(got, want.SurfaceFill) {
		t.Fatalf("outline should darken the edge pixel, got %v", got)
	}
}

func TestWritePNGDecodes(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePNG(&buf, sampleDrawing(), testOptions()); err != nil {
		t.Fatalf("WritePNG: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Bounds().Dx() != 60 {
		t.Fatalf("unexpected width %d", img.Bounds().Dx())
	}
}

func TestToFileAllFormats(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"plan.svg", "plan.pdf", "plan.png"} {
		format, err := ParseFormat(name)
		if err != nil {
			t.Fatalf("ParseFormat(%s): %v", name, err)
		}
		path := filepath.Join(dir, "out", name)
		if err := ToFile(path, format, sampleDrawing(), testOptions()); err != nil {
			t.Fatalf("ToFile(%s): %v", name, err)
		}
		data, err := os.ReadFile(path)
		if err != nil || len(data) == 0 {
			t.Fatalf("empty output for %s: %v", name, err)
		}
		if format == FormatPDF && !bytes.HasPrefix(data, []byte("%PDF")) {
			t.Fatalf("not a pdf: %q", data[:8])
		}
	}
	if _, err := ParseFormat("dxf"); err == nil {
		t.Fatalf("expected unsupported format error")
	}
	if f, err := ParseFormat(" SVG "); err != nil || f != FormatSVG {
		t.Fatalf("format names are case-insensitive: %v %v", f, err)
	}
}

func TestToFileRemovesPartialOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.svg")
	if err := ToFile(path, FormatSVG, nil, Options{}); !errors.Is(err, ErrNothingToExport) {
		t.Fatalf("expected ErrNothingToExport, got %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("failed export must not leave a file behind")
	}
}

func near(a, b color.RGBA) bool {
	d := func(x, y uint8) bool { return x-y <= 2 || y-x <= 2 }
	return d(a.R, b.R) && d(a.G, b.G) && d(a.B, b.B)
}
