/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package tools implements the drawing tool state machines and the Session
// that routes pointer input through the snap engine into the active tool.
//
// Everything here runs on the host's event loop; tools and sessions are not
// safe for concurrent use.
package tools

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"gosketchcad/internal/entity"
	"gosketchcad/internal/geom"
	applog "gosketchcad/internal/log"
	"gosketchcad/internal/snap"
	"gosketchcad/internal/surface"
)

// State is the coarse state of a tool session.
type State int

const (
	Inactive State = iota
	// Armed waits for the first point (or pick).
	Armed
	// Collecting has at least one point and waits for more.
	Collecting
)

func (s State) String() string {
	switch s {
	case Armed:
		return "armed"
	case Collecting:
		return "collecting"
	default:
		return "inactive"
	}
}

// Tool is one drawing operation. Invalid transitions are no-ops.
type Tool interface {
	Name() string
	Activate()
	Deactivate()
	// HandlePoint consumes one resolved point.
	HandlePoint(p geom.Point3D)
	// HandleMove refreshes the preview; it never touches the store.
	HandleMove(p geom.Point3D)
	// Cancel drops in-progress points and preview. Idempotent.
	Cancel()
	State() State
	// Preview is the transient entity shown under the cursor, or nil.
	Preview() entity.Entity
	// Points are the points placed so far.
	Points() []geom.Point3D
	// Draws is false for pick-only tools; those get no feature snapping.
	Draws() bool
}

// Finisher is implemented by tools with an explicit finish action.
type Finisher interface{ Finish() }

// Closer is implemented by tools that can close their chain.
type Closer interface{ Close() }

// Stepper is implemented by tools with a +/- adjustable parameter.
type Stepper interface{ Step(n int) }

// BoundarySkipper is implemented by tools whose boundary pick is optional.
type BoundarySkipper interface{ SkipBoundary() }

// Navigation is the camera control that conflicts with click-to-place.
type Navigation interface {
	Suspend()
	Resume()
}

// HistoryFunc is told about every committed entity.
type HistoryFunc func(e entity.Entity)

// LayerFunc assigns a layer to an entity before it is committed.
type LayerFunc func(e entity.Entity)

// StatusFunc receives advisory messages for the user.
type StatusFunc func(msg string)

// Settings are the tool tolerances and defaults.
type Settings struct {
	MinSize        float64
	PickDistance   float64
	CloseTolerance float64
	ParallelOffset float64
	ParallelStep   float64
	HatchPattern   string
	HatchSpacing   float64
	HatchAngle     float64 // degrees
}

func DefaultSettings() Settings {
	return Settings{
		MinSize:        0.01,
		PickDistance:   0.5,
		CloseTolerance: surface.DefaultCloseTolerance,
		ParallelOffset: 1,
		ParallelStep:   0.5,
		HatchPattern:   PatternParallel,
		HatchSpacing:   1,
		HatchAngle:     45,
	}
}

// Deps are the collaborators injected into tools. Store is required; the
// rest are optional.
type Deps struct {
	Store      *entity.Store
	Snapper    *snap.Engine
	Navigation Navigation
	History    HistoryFunc
	Layers     LayerFunc
	Status     StatusFunc
	Synth      *surface.Synthesizer
	Settings   Settings
	Log        *slog.Logger
}

// Env is the shared runtime of all tools of one drawing.
type Env struct {
	Deps
	lastStatus string
	navHeld    bool
}

func NewEnv(d Deps) *Env {
	if d.Store == nil {
		d.Store = entity.NewStore()
	}
	if d.Log == nil {
		d.Log = applog.WithComponent("tools")
	}
	def := DefaultSettings()
	if d.Settings.MinSize <= 0 {
		d.Settings.MinSize = def.MinSize
	}
	if d.Settings.PickDistance <= 0 {
		d.Settings.PickDistance = def.PickDistance
	}
	if d.Settings.CloseTolerance <= 0 {
		d.Settings.CloseTolerance = def.CloseTolerance
	}
	if d.Settings.ParallelOffset <= 0 {
		d.Settings.ParallelOffset = def.ParallelOffset
	}
	if d.Settings.ParallelStep <= 0 {
		d.Settings.ParallelStep = def.ParallelStep
	}
	if d.Settings.HatchPattern == "" {
		d.Settings.HatchPattern = def.HatchPattern
	}
	if d.Settings.HatchSpacing <= 0 {
		d.Settings.HatchSpacing = def.HatchSpacing
	}
	return &Env{Deps: d}
}

// LastStatus is the most recent advisory message.
func (env *Env) LastStatus() string { return env.lastStatus }

func (env *Env) status(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	env.lastStatus = msg
	if env.Status != nil {
		env.Status(msg)
	}
}

// Commit assigns the layer, appends e to the store and records it in
// history.
func (env *Env) Commit(e entity.Entity) {
	if env.Layers != nil {
		env.Layers(e)
	}
	env.Store.Add(e)
	if env.History != nil {
		env.History(e)
	}
	env.Log.Info("entity committed", applog.Entity(e))
}

// commitStroke commits a Line or Polyline and then forwards a synthesized
// surface, if the stroke closed a loop.
func (env *Env) commitStroke(e entity.Entity) {
	env.Commit(e)
	if env.Synth == nil {
		return
	}
	if surf, ok := env.Synth.TrySynthesize(e, env.Store.All()); ok {
		env.Commit(surf)
		env.status("closed loop filled (%d vertices)", len(surf.Boundary))
	}
}

func (env *Env) suspendNav() {
	if env.Navigation != nil && !env.navHeld {
		env.Navigation.Suspend()
	}
	env.navHeld = true
}

func (env *Env) resumeNav() {
	if env.Navigation != nil && env.navHeld {
		env.Navigation.Resume()
	}
	env.navHeld = false
}

// pointTool carries the state shared by the point-collecting tools.
type pointTool struct {
	env     *Env
	state   State
	pts     []geom.Point3D
	preview entity.Entity
}

func (t *pointTool) State() State           { return t.state }
func (t *pointTool) Preview() entity.Entity { return t.preview }
func (t *pointTool) Draws() bool            { return true }

func (t *pointTool) Points() []geom.Point3D { return append([]geom.Point3D(nil), t.pts...) }

func (t *pointTool) Activate() {
	t.pts, t.preview = nil, nil
	t.state = Armed
	t.env.suspendNav()
}

func (t *pointTool) Deactivate() {
	if t.state == Inactive {
		return
	}
	t.pts, t.preview = nil, nil
	t.state = Inactive
	t.env.resumeNav()
}

func (t *pointTool) Cancel() {
	t.pts, t.preview = nil, nil
	if t.state != Inactive {
		t.state = Armed
	}
}

// add appends p and moves to Collecting. It reports false when inactive.
func (t *pointTool) add(p geom.Point3D) bool {
	if t.state == Inactive || !p.Valid() {
		return false
	}
	t.pts = append(t.pts, p)
	t.state = Collecting
	return true
}

// ErrUnknownTool is returned by New for an unregistered name.
var ErrUnknownTool = errors.New("unknown tool")

var registry = map[string]func(*Env) Tool{
	"line":      func(env *Env) Tool { return NewLine(env) },
	"rectangle": func(env *Env) Tool { return NewRectangle(env) },
	"circle":    func(env *Env) Tool { return NewCircle(env) },
	"polyline":  func(env *Env) Tool { return NewPolyline(env) },
	"arc":       func(env *Env) Tool { return NewArc(env) },
	"parallel":  func(env *Env) Tool { return NewParallel(env) },
	"trim":      func(env *Env) Tool { return NewTrim(env) },
	"extend":    func(env *Env) Tool { return NewExtend(env) },
	"hatch":     func(env *Env) Tool { return NewHatch(env) },
}

// New builds the tool registered under name.
func New(env *Env, name string) (Tool, error) {
	mk, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}
	return mk(env), nil
}

// Names lists the registered tool names in sorted order.
func Names() []string {
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
