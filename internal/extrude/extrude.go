/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package extrude turns a planar fill into a solid of live-adjustable depth.
package extrude

import (
	"errors"
	"fmt"
	"log/slog"

	"gosketchcad/internal/entity"
	"gosketchcad/internal/geom"
	applog "gosketchcad/internal/log"
)

var (
	// ErrNotExtrudable is returned for entities without a planar profile.
	ErrNotExtrudable = errors.New("cannot extrude")
	// ErrSessionDone is returned when a committed or cancelled session is reused.
	ErrSessionDone = errors.New("extrusion session already finished")
)

const (
	DefaultMinDepth      = 0.01
	DefaultPixelsPerUnit = 20.0
)

// CommitFunc receives the finished solid. tools.Env.Commit fits.
type CommitFunc func(e entity.Entity)

// Extruder starts and finishes extrusion sessions against one store.
type Extruder struct {
	MinDepth      float64
	PixelsPerUnit float64

	store  *entity.Store
	commit CommitFunc
	log    *slog.Logger
}

// NewExtruder returns an extruder. A nil commit appends solids to the store
// directly. Non-positive minDepth and pixelsPerUnit fall back to defaults.
func NewExtruder(store *entity.Store, commit CommitFunc, minDepth, pixelsPerUnit float64) *Extruder {
	if minDepth <= 0 {
		minDepth = DefaultMinDepth
	}
	if pixelsPerUnit <= 0 {
		pixelsPerUnit = DefaultPixelsPerUnit
	}
	return &Extruder{
		MinDepth:      minDepth,
		PixelsPerUnit: pixelsPerUnit,
		store:         store,
		commit:        commit,
		log:           applog.WithComponent("extrude"),
	}
}

// Session is one live extrusion. The source stays hidden while it runs.
type Session struct {
	Source entity.Profiled
	Depth  float64

	startY     float64
	wasVisible bool
	done       bool
}

// Preview is the solid the session would commit now.
func (s *Session) Preview() *entity.Solid {
	return entity.NewSolid(s.Source.Profile(), s.Source.PlaneZ(), s.Depth, s.Source.ID())
}

// Done reports whether the session was committed or cancelled.
func (s *Session) Done() bool { return s.done }

// Start hides e and opens a session at the minimum depth. pointerY is the
// screen y where the drag began.
func (x *Extruder) Start(e entity.Entity, pointerY float64) (*Session, error) {
	p, ok := e.(entity.Profiled)
	if !ok || e == nil {
		kind := "nil"
		if e != nil {
			kind = string(e.Kind())
		}
		return nil, fmt.Errorf("%w: %s", ErrNotExtrudable, kind)
	}
	if len(p.Profile()) < 3 {
		return nil, fmt.Errorf("%w: %s %s has no area", ErrNotExtrudable, e.Kind(), e.ID())
	}
	s := &Session{Source: p, Depth: x.MinDepth, startY: pointerY, wasVisible: e.Visible()}
	x.hide(e, false)
	x.log.Debug("extrude start", applog.Entity(e))
	return s, nil
}

// Update sets the depth, clamped to MinDepth.
func (x *Extruder) Update(s *Session, depth float64) {
	if s == nil || s.done {
		return
	}
	if depth < x.MinDepth || depth != depth {
		depth = x.MinDepth
	}
	s.Depth = depth
}

// UpdateFromPointer derives the depth from the vertical drag distance.
// Screen y grows downwards, so dragging up deepens the solid.
func (x *Extruder) UpdateFromPointer(s *Session, pointerY float64) {
	if s == nil {
		return
	}
	x.Update(s, (s.startY-pointerY)/x.PixelsPerUnit)
}

// Commit emits the solid. The flat source remains hidden.
func (x *Extruder) Commit(s *Session) (*entity.Solid, error) {
	if s == nil || s.done {
		return nil, ErrSessionDone
	}
	s.done = true
	solid := s.Preview()
	solid.SetLayer(s.Source.Layer())
	if x.commit != nil {
		x.commit(solid)
	} else {
		x.store.Add(solid)
	}
	x.log.Info("extruded", slog.String("source", string(s.Source.ID())), slog.Float64("depth", s.Depth))
	return solid, nil
}

// Cancel ends the session and restores the source's visibility.
func (x *Extruder) Cancel(s *Session) {
	if s == nil || s.done {
		return
	}
	s.done = true
	x.hide(s.Source, s.wasVisible)
}

func (x *Extruder) hide(e entity.Entity, visible bool) {
	if x.store == nil {
		e.SetVisible(visible)
		return
	}
	if err := x.store.SetVisible(e.ID(), visible); err != nil {
		// not in the store: toggle the entity itself
		e.SetVisible(visible)
	}
}

// PickSource returns the topmost profile in list whose boundary contains
// at. Later entries are on top.
func PickSource(list []entity.Entity, at geom.Point3D) (entity.Profiled, bool) {
	for i := len(list) - 1; i >= 0; i-- {
		pr, ok := list[i].(entity.Profiled)
		if ok && pr.Visible() && geom.PointInPolygon(at, pr.Profile()) {
			return pr, true
		}
	}
	return nil, false
}
