/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package tools

import (
	"seehuhn.de/go/geom/vec"

	"gosketchcad/internal/entity"
	"gosketchcad/internal/geom"
	applog "gosketchcad/internal/log"
	"gosketchcad/internal/snap"
)

// Session owns the single active tool of a drawing and sequences snap
// resolution before every tool call.
type Session struct {
	env    *Env
	active Tool
}

func NewSession(env *Env) *Session { return &Session{env: env} }

func (s *Session) Env() *Env            { return s.env }
func (s *Session) Store() *entity.Store { return s.env.Store }
func (s *Session) Active() Tool         { return s.active }

// Activate deactivates the current tool, discarding its uncommitted state,
// and arms t. A nil t leaves no tool active.
func (s *Session) Activate(t Tool) {
	if s.active != nil {
		s.active.Deactivate()
	}
	s.active = t
	if t == nil {
		return
	}
	t.Activate()
	s.env.Log.Debug("tool activated", applog.Tool(t.Name()))
}

// ActivateByName is Activate for a registered tool name.
func (s *Session) ActivateByName(name string) (Tool, error) {
	t, err := New(s.env, name)
	if err != nil {
		return nil, err
	}
	s.Activate(t)
	return t, nil
}

// Resolve snaps a cursor position for the active tool without feeding it.
func (s *Session) Resolve(world geom.Point3D, screen vec.Vec2) geom.Point3D {
	if s.env.Snapper == nil || s.active == nil {
		return world
	}
	pts := s.active.Points()
	ctx := snap.Context{Draws: s.active.Draws(), SessionVertices: pts}
	if len(pts) > 0 {
		ref := pts[len(pts)-1]
		ctx.Reference = &ref
	}
	return s.env.Snapper.Resolve(world, screen, s.env.Store.Visible(), ctx)
}

// PointerMove resolves the cursor and updates the active tool's preview.
// It returns the resolved point.
func (s *Session) PointerMove(world geom.Point3D, screen vec.Vec2) geom.Point3D {
	p := s.Resolve(world, screen)
	if s.active != nil {
		s.active.HandleMove(p)
	}
	return p
}

// PointerClick resolves the cursor and hands the point to the active tool.
func (s *Session) PointerClick(world geom.Point3D, screen vec.Vec2) geom.Point3D {
	p := s.Resolve(world, screen)
	if s.active != nil {
		s.active.HandlePoint(p)
	}
	return p
}

func (s *Session) Finish() {
	if f, ok := s.active.(Finisher); ok {
		f.Finish()
	}
}

func (s *Session) Close() {
	if c, ok := s.active.(Closer); ok {
		c.Close()
	}
}

func (s *Session) Step(n int) {
	if st, ok := s.active.(Stepper); ok {
		st.Step(n)
	}
}

func (s *Session) SkipBoundary() {
	if b, ok := s.active.(BoundarySkipper); ok {
		b.SkipBoundary()
	}
}

func (s *Session) Cancel() {
	if s.active != nil {
		s.active.Cancel()
	}
}

// Deactivate leaves no tool active.
func (s *Session) Deactivate() { s.Activate(nil) }

// Status is the most recent advisory message.
func (s *Session) Status() string { return s.env.lastStatus }

// LastSnap is the kind of the last resolved snap.
func (s *Session) LastSnap() snap.Kind {
	if s.env.Snapper == nil {
		return snap.None
	}
	return s.env.Snapper.LastKind()
}
