/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package app assembles the drawing runtime from the user configuration:
// one entity store with its snap engine, tool session, history, extruder
// and telemetry observer.
package app

import (
	"log/slog"
	"strings"
	"sync"

	"gosketchcad/internal/config"
	"gosketchcad/internal/entity"
	"gosketchcad/internal/extrude"
	"gosketchcad/internal/history"
	applog "gosketchcad/internal/log"
	"gosketchcad/internal/snap"
	"gosketchcad/internal/surface"
	"gosketchcad/internal/telemetry"
	"gosketchcad/internal/tools"
)

// DefaultLayer is used when the configuration names none.
const DefaultLayer = "sketch"

// Options are the host-provided collaborators. Projector is required for
// snapping; without one the session runs unsnapped.
type Options struct {
	Projector  snap.Projector
	Navigation tools.Navigation
	Status     tools.StatusFunc
	// Telemetry overrides the package default client.
	Telemetry *telemetry.Client
}

// Drawing is one open drawing and everything that edits it.
type Drawing struct {
	Store    *entity.Store
	Snapper  *snap.Engine
	Env      *tools.Env
	Session  *tools.Session
	History  *history.Manager
	Extruder *extrude.Extruder
	Config   config.AppConfig

	mu        sync.RWMutex
	layer     string
	unobserve func()
	log       *slog.Logger
}

// New wires a drawing from cfg.
func New(cfg config.AppConfig, opts Options) *Drawing {
	d := &Drawing{
		Store:  entity.NewStore(),
		Config: cfg,
		layer:  strings.TrimSpace(cfg.General.Layer),
		log:    applog.WithComponent("app"),
	}
	if d.layer == "" {
		d.layer = DefaultLayer
	}
	if opts.Projector != nil {
		d.Snapper = snap.NewEngine(SnapOptions(cfg.Snap), opts.Projector)
	}
	d.History = history.NewManager(d.Store, history.Config{
		MaxBytes:    cfg.History.MaxBytes,
		MaxPerLayer: cfg.History.MaxPerLayer,
	})
	d.Env = tools.NewEnv(tools.Deps{
		Store:      d.Store,
		Snapper:    d.Snapper,
		Navigation: opts.Navigation,
		History:    d.History.Record,
		Layers:     func(e entity.Entity) { e.SetLayer(d.Layer()) },
		Status:     opts.Status,
		Synth:      surface.NewSynthesizer(cfg.Tolerance.Close, cfg.Tolerance.Planar, cfg.Surface.MaxCycleEdges),
		Settings:   ToolSettings(cfg),
	})
	d.Session = tools.NewSession(d.Env)
	d.Extruder = extrude.NewExtruder(d.Store, d.Env.Commit, cfg.Extrude.MinDepth, cfg.Extrude.PixelsPerUnit)

	if opts.Telemetry != nil {
		d.unobserve = opts.Telemetry.Observe(d.Store)
	} else {
		d.unobserve = telemetry.Observe(d.Store)
	}
	d.log.Debug("drawing ready", "layer", d.layer, "snap", d.Snapper != nil)
	return d
}

// SnapOptions maps the snap config section onto engine options.
func SnapOptions(c config.SnapConfig) snap.Options {
	return snap.Options{
		Enabled:                 c.Enabled,
		DistancePx:              c.DistancePx,
		GridEnabled:             c.GridEnabled,
		GridSize:                c.GridSize,
		MaxIntersectionSegments: c.MaxIntersectionSegments,
	}
}

// ToolSettings maps tolerances and tool defaults onto tools.Settings.
// Non-positive values fall back to the tool defaults.
func ToolSettings(cfg config.AppConfig) tools.Settings {
	return tools.Settings{
		MinSize:        cfg.Tolerance.MinSize,
		PickDistance:   cfg.Tolerance.PickDistance,
		CloseTolerance: cfg.Tolerance.Close,
		ParallelOffset: cfg.Tools.ParallelOffset,
		ParallelStep:   cfg.Tools.ParallelStep,
		HatchPattern:   cfg.Tools.HatchPattern,
		HatchSpacing:   cfg.Tools.HatchSpacing,
		HatchAngle:     cfg.Tools.HatchAngle,
	}
}

// Layer is the layer new entities are committed to.
func (d *Drawing) Layer() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.layer
}

// SetLayer switches the commit layer. Blank names are ignored.
func (d *Drawing) SetLayer(name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	d.mu.Lock()
	d.layer = name
	d.mu.Unlock()
}

// Undo reverts the last step on the current layer. Undoing an extrusion
// shows its source profile again, undoing a trim or extend shows the
// original line.
func (d *Drawing) Undo() bool {
	step, ok := d.History.Undo(d.Layer())
	if ok {
		d.sourcesVisible(step, true)
	}
	return ok
}

// Redo re-applies the last undone step on the current layer.
func (d *Drawing) Redo() bool {
	step, ok := d.History.Redo(d.Layer())
	if ok {
		d.sourcesVisible(step, false)
	}
	return ok
}

func (d *Drawing) sourcesVisible(step history.Step, visible bool) {
	list, err := entity.UnmarshalEntities(step.Blob)
	if err != nil {
		return
	}
	for _, e := range list {
		var src entity.ID
		switch v := e.(type) {
		case *entity.Solid:
			src = v.SourceID
		case *entity.Line:
			src = v.Replaces
		}
		if src != "" {
			_ = d.Store.SetVisible(src, visible)
		}
	}
}

// Load appends entities to the store without recording history.
func (d *Drawing) Load(list []entity.Entity) {
	for _, e := range list {
		d.Store.Add(e)
	}
}

// Close deactivates the tool and detaches observers.
func (d *Drawing) Close() {
	d.Session.Deactivate()
	if d.unobserve != nil {
		d.unobserve()
		d.unobserve = nil
	}
}
