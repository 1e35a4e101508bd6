//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"gosketchcad/internal/app"
	"gosketchcad/internal/config"
	"gosketchcad/internal/crash"
	"gosketchcad/internal/entity"
	"gosketchcad/internal/export"
	"gosketchcad/internal/extrude"
	"gosketchcad/internal/geom"
	applog "gosketchcad/internal/log"
	"gosketchcad/internal/storage"
	"gosketchcad/internal/telemetry"
	"gosketchcad/internal/tools"
)

// Run opens the desktop viewer on the drawing at path. A missing file
// starts an empty drawing that is saved to path.
func Run(path string, cfg config.AppConfig) error {
	l := applog.WithComponent("ui")
	l.Info("starting UI", slog.String("drawing", path))

	view := NewView(cfg.General.WorkplaneZ)
	nav := &Navigator{}
	status := widget.NewLabel("Ready")
	cv := NewDrawingCanvas(view, nav)
	d := app.New(cfg, app.Options{
		Projector:  view,
		Navigation: nav,
		Status:     func(msg string) { status.SetText(msg) },
	})
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = telemetry.Flush(ctx)
	}()
	defer d.Close()
	defer crash.Recover(d.Store, path)
	cv.Attach(d)
	cv.OnStatus = status.SetText

	if path != "" {
		dr, err := storage.OpenDrawing(path)
		switch {
		case err == nil:
			list, derr := dr.Decode()
			if derr != nil {
				return fmt.Errorf("decode drawing: %w", derr)
			}
			d.Load(list)
		case errors.Is(err, fs.ErrNotExist):
			l.Info("new drawing", slog.String("path", path))
		default:
			return err
		}
	} else {
		path = "untitled" + storage.DrawingExt
	}

	fa := fyneapp.NewWithID("io.sketchcad")
	w := fa.NewWindow("SketchCAD - " + storage.DrawingName(path))
	prefs := fa.Preferences()
	w.Resize(fyne.NewSize(float32(prefs.IntWithFallback("window.width", 1200)), float32(prefs.IntWithFallback("window.height", 800))))

	save := func() {
		if err := storage.SaveStore(path, storage.DrawingName(path), cfg.General.WorkplaneZ, d.Store); err != nil {
			dialog.ShowError(err, w)
			return
		}
		status.SetText("Saved " + filepath.Base(path))
	}
	exportAs := func(format export.Format) {
		out := strings.TrimSuffix(path, storage.DrawingExt) + "." + string(format)
		if err := export.ToFile(out, format, d.Store.All(), export.DefaultOptions()); err != nil {
			dialog.ShowError(err, w)
			return
		}
		status.SetText("Exported " + filepath.Base(out))
	}

	var toolButtons []fyne.CanvasObject
	for _, name := range tools.Names() {
		name := name
		toolButtons = append(toolButtons, widget.NewButton(strings.ToUpper(name[:1])+name[1:], func() {
			cv.CancelExtrude()
			if _, err := d.Session.ActivateByName(name); err != nil {
				dialog.ShowError(err, w)
				return
			}
			status.SetText("Tool: " + name)
			cv.Refresh()
		}))
	}
	toolButtons = append(toolButtons,
		widget.NewSeparator(),
		widget.NewButton("Extrude", func() { cv.ArmExtrude() }),
		widget.NewButton("Undo", func() { d.Undo(); cv.Refresh() }),
		widget.NewButton("Redo", func() { d.Redo(); cv.Refresh() }),
		widget.NewButton("Fit", func() { cv.FitAll() }),
		widget.NewSeparator(),
		widget.NewButton("Save", save),
		widget.NewButton("SVG", func() { exportAs(export.FormatSVG) }),
		widget.NewButton("PDF", func() { exportAs(export.FormatPDF) }),
		widget.NewButton("PNG", func() { exportAs(export.FormatPNG) }),
	)

	layer := widget.NewEntry()
	layer.SetText(d.Layer())
	layer.OnSubmitted = func(s string) { d.SetLayer(s); layer.SetText(d.Layer()) }
	top := container.NewBorder(nil, nil, container.NewHBox(toolButtons...), container.NewHBox(widget.NewLabel("Layer"), layer))

	w.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) { cv.HandleKey(ev.Name) })
	w.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyZ, Modifier: fyne.KeyModifierShortcutDefault}, func(fyne.Shortcut) { d.Undo(); cv.Refresh() })
	w.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyY, Modifier: fyne.KeyModifierShortcutDefault}, func(fyne.Shortcut) { d.Redo(); cv.Refresh() })
	w.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyS, Modifier: fyne.KeyModifierShortcutDefault}, func(fyne.Shortcut) { save() })

	w.SetContent(container.NewBorder(top, status, nil, nil, cv))
	w.SetOnClosed(func() {
		sz := w.Canvas().Size()
		prefs.SetInt("window.width", int(sz.Width))
		prefs.SetInt("window.height", int(sz.Height))
	})
	w.ShowAndRun()
	return nil
}

// DrawingCanvas shows the entities of a drawing and feeds pointer input
// to its tool session.
type DrawingCanvas struct {
	widget.BaseWidget

	OnStatus func(string)

	view    *View
	nav     *Navigator
	drawing *app.Drawing

	extrudeArmed bool
	extruding    *extrude.Session
	lastPointer  fyne.Position
	log          *slog.Logger
}

func NewDrawingCanvas(view *View, nav *Navigator) *DrawingCanvas {
	c := &DrawingCanvas{view: view, nav: nav, log: applog.WithComponent("ui")}
	c.ExtendBaseWidget(c)
	return c
}

// Attach binds the canvas to a drawing and repaints on every store change.
func (c *DrawingCanvas) Attach(d *app.Drawing) {
	c.drawing = d
	d.Store.Subscribe(func(entity.Event) { c.Refresh() })
}

func (c *DrawingCanvas) status(msg string) {
	if c.OnStatus != nil {
		c.OnStatus(msg)
	}
}

func (c *DrawingCanvas) world(pos fyne.Position) geom.Point3D {
	return c.view.ScreenToWorld(float64(pos.X), float64(pos.Y))
}

func (c *DrawingCanvas) Tapped(e *fyne.PointEvent) {
	if c.drawing == nil {
		return
	}
	c.lastPointer = e.Position
	switch {
	case c.extruding != nil:
		if _, err := c.drawing.Extruder.Commit(c.extruding); err != nil {
			c.status(err.Error())
		}
		c.extruding = nil
		c.nav.Resume()
	case c.extrudeArmed:
		c.startExtrude(e.Position)
	default:
		w := c.world(e.Position)
		c.drawing.Session.PointerClick(w, c.view.WorldToScreen(w))
	}
	c.Refresh()
}

func (c *DrawingCanvas) MouseIn(*desktop.MouseEvent) {}
func (c *DrawingCanvas) MouseOut()                   {}

func (c *DrawingCanvas) MouseMoved(e *desktop.MouseEvent) {
	if c.drawing == nil {
		return
	}
	c.lastPointer = e.Position
	if c.extruding != nil {
		c.drawing.Extruder.UpdateFromPointer(c.extruding, float64(e.Position.Y))
		c.status(fmt.Sprintf("Depth %.3f", c.extruding.Depth))
	} else {
		w := c.world(e.Position)
		c.drawing.Session.PointerMove(w, c.view.WorldToScreen(w))
	}
	c.Refresh()
}

// Dragged pans unless a tool holds navigation.
func (c *DrawingCanvas) Dragged(e *fyne.DragEvent) {
	if c.nav.Suspended() {
		return
	}
	c.view.Pan(float64(e.Dragged.DX), float64(e.Dragged.DY))
	c.Refresh()
}

func (c *DrawingCanvas) DragEnd() {}

func (c *DrawingCanvas) Scrolled(e *fyne.ScrollEvent) {
	factor := 1 + float64(e.Scrolled.DY)*0.01
	c.view.ZoomAt(factor, float64(e.Position.X), float64(e.Position.Y))
	c.Refresh()
}

// ArmExtrude makes the next tap pick a profile to extrude.
func (c *DrawingCanvas) ArmExtrude() {
	if c.drawing == nil {
		return
	}
	c.drawing.Session.Deactivate()
	c.extrudeArmed = true
	c.status("Extrude: pick a surface")
}

func (c *DrawingCanvas) startExtrude(pos fyne.Position) {
	c.extrudeArmed = false
	target, ok := extrude.PickSource(c.drawing.Store.Visible(), c.world(pos))
	if !ok {
		c.status("Extrude: no surface under the cursor")
		return
	}
	s, err := c.drawing.Extruder.Start(target, float64(pos.Y))
	if err != nil {
		c.status(err.Error())
		return
	}
	c.extruding = s
	c.nav.Suspend()
	c.status("Extrude: move to set depth, click to commit, Esc to cancel")
}

// CancelExtrude abandons a live or armed extrusion.
func (c *DrawingCanvas) CancelExtrude() {
	c.extrudeArmed = false
	if c.extruding != nil {
		c.drawing.Extruder.Cancel(c.extruding)
		c.extruding = nil
		c.nav.Resume()
	}
}

// HandleKey maps the editing keys onto session commands.
func (c *DrawingCanvas) HandleKey(k fyne.KeyName) {
	if c.drawing == nil {
		return
	}
	s := c.drawing.Session
	switch k {
	case fyne.KeyEscape:
		if c.extruding != nil || c.extrudeArmed {
			c.CancelExtrude()
		} else {
			s.Cancel()
		}
	case fyne.KeyReturn, fyne.KeyEnter:
		s.Finish()
	case fyne.KeyC:
		s.Close()
	case fyne.KeyTab:
		s.SkipBoundary()
	case fyne.KeyUp:
		s.Step(1)
	case fyne.KeyDown:
		s.Step(-1)
	default:
		return
	}
	c.Refresh()
}

// FitAll zooms to the visible entities.
func (c *DrawingCanvas) FitAll() {
	if c.drawing == nil {
		return
	}
	b := geom.EmptyBounds()
	for _, e := range c.drawing.Store.Visible() {
		b = b.Union(e.Bounds())
	}
	c.view.Fit(b)
	c.Refresh()
}

func (c *DrawingCanvas) CreateRenderer() fyne.WidgetRenderer {
	bg := canvas.NewRectangle(color.RGBA{R: 30, G: 30, B: 34, A: 255})
	return &drawingRenderer{c: c, bg: bg, objects: []fyne.CanvasObject{bg}}
}

var (
	axisXColor    = color.RGBA{R: 200, G: 60, B: 60, A: 160}
	axisYColor    = color.RGBA{R: 60, G: 200, B: 60, A: 160}
	strokeColor   = color.RGBA{R: 230, G: 230, B: 230, A: 255}
	surfaceColor  = color.RGBA{R: 90, G: 150, B: 255, A: 255}
	solidColor    = color.RGBA{R: 255, G: 190, B: 80, A: 255}
	hatchColor    = color.RGBA{R: 150, G: 150, B: 160, A: 255}
	previewColor  = color.RGBA{R: 0, G: 170, B: 255, A: 255}
	snapMarkColor = color.RGBA{R: 255, G: 220, B: 0, A: 255}
)

type drawingRenderer struct {
	c       *DrawingCanvas
	bg      *canvas.Rectangle
	objects []fyne.CanvasObject
}

func (r *drawingRenderer) Destroy()                     {}
func (r *drawingRenderer) Objects() []fyne.CanvasObject { return r.objects }
func (r *drawingRenderer) MinSize() fyne.Size           { return fyne.NewSize(400, 300) }
func (r *drawingRenderer) Refresh()                     { r.Layout(r.c.Size()); canvas.Refresh(r.c) }

func (r *drawingRenderer) Layout(size fyne.Size) {
	r.c.view.SetSize(float64(size.Width), float64(size.Height))
	r.bg.Resize(size)
	r.bg.Move(fyne.NewPos(0, 0))
	r.objects = append(r.objects[:0], r.bg)

	o := r.c.view.WorldToScreen(geom.P(0, 0, 0))
	r.line(fyne.NewPos(0, float32(o.Y)), fyne.NewPos(size.Width, float32(o.Y)), axisXColor, 1)
	r.line(fyne.NewPos(float32(o.X), 0), fyne.NewPos(float32(o.X), size.Height), axisYColor, 1)

	d := r.c.drawing
	if d == nil {
		return
	}
	for _, e := range d.Store.Visible() {
		r.entity(e, false)
	}
	if t := d.Session.Active(); t != nil && t.Preview() != nil {
		r.entity(t.Preview(), true)
	}
	if r.c.extruding != nil {
		r.entity(r.c.extruding.Preview(), true)
	}
	if d.Snapper != nil {
		if cand, ok := d.Snapper.Last(); ok {
			p := r.c.view.WorldToScreen(cand.Point)
			m := canvas.NewCircle(color.Transparent)
			m.StrokeColor = snapMarkColor
			m.StrokeWidth = 1.5
			m.Position1 = fyne.NewPos(float32(p.X-5), float32(p.Y-5))
			m.Position2 = fyne.NewPos(float32(p.X+5), float32(p.Y+5))
			r.objects = append(r.objects, m)
		}
	}
}

func (r *drawingRenderer) entity(e entity.Entity, preview bool) {
	col, width := strokeColor, float32(1.5)
	switch v := e.(type) {
	case *entity.Surface:
		col = surfaceColor
	case *entity.Solid:
		col, width = solidColor, 2.5
	case *entity.Hatch:
		for _, s := range v.Strokes {
			r.segment(s.A, s.B, hatchColor, 1)
		}
		for _, p := range v.Dots {
			r.segment(p, p.Add(geom.P(0.02, 0, 0)), hatchColor, 2)
		}
		return
	}
	if preview {
		col = previewColor
	}
	pts := e.Path()
	for i := 1; i < len(pts); i++ {
		r.segment(pts[i-1], pts[i], col, width)
	}
}

func (r *drawingRenderer) segment(a, b geom.Point3D, col color.Color, width float32) {
	pa, pb := r.c.view.WorldToScreen(a), r.c.view.WorldToScreen(b)
	r.line(fyne.NewPos(float32(pa.X), float32(pa.Y)), fyne.NewPos(float32(pb.X), float32(pb.Y)), col, width)
}

func (r *drawingRenderer) line(a, b fyne.Position, col color.Color, width float32) {
	l := canvas.NewLine(col)
	l.StrokeWidth = width
	l.Position1, l.Position2 = a, b
	r.objects = append(r.objects, l)
}
