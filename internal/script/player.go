/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"seehuhn.de/go/geom/vec"

	"gosketchcad/internal/extrude"
	"gosketchcad/internal/geom"
	applog "gosketchcad/internal/log"
	"gosketchcad/internal/snap"
	"gosketchcad/internal/tools"
)

// ErrNoProfile is returned by an extrude step that hits no visible profile.
var ErrNoProfile = errors.New("no visible profile at point")

// Player replays scripts against a session. Extruder and SetLayer are
// optional; steps that need them fail without.
type Player struct {
	Session  *tools.Session
	Extruder *extrude.Extruder
	SetLayer func(name string)
	log      *slog.Logger
}

// Result summarizes a replay.
type Result struct {
	Steps   int
	Created int
	// Messages are the distinct status lines the tools emitted, in order.
	Messages []string
}

func NewPlayer(sess *tools.Session, x *extrude.Extruder, setLayer func(string)) *Player {
	return &Player{Session: sess, Extruder: x, SetLayer: setLayer, log: applog.WithComponent("script")}
}

// Projector is the fixed view a script is replayed in: zoom px per unit
// with the origin at the screen origin.
func Projector(zoom float64) snap.Projector {
	if zoom <= 0 {
		zoom = DefaultZoom
	}
	return snap.ProjectorFunc(func(p geom.Point3D) vec.Vec2 { return p.XY().Mul(zoom) })
}

// Play runs every step in order and stops at the first failing one. The
// active tool is deactivated at the end so no preview survives.
func (p *Player) Play(ctx context.Context, s *Script) (Result, error) {
	if p.log == nil {
		p.log = applog.WithComponent("script")
	}
	var res Result
	if s == nil {
		return res, errors.New("nil script")
	}
	if s.Layer != "" && p.SetLayer != nil {
		p.SetLayer(s.Layer)
	}
	proj := Projector(s.Zoom)
	store := p.Session.Store()
	before := store.Len()
	last := p.Session.Status()
	defer p.Session.Deactivate()

	for i, st := range s.Steps {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := p.step(st, s.WorkplaneZ, proj); err != nil {
			return res, fmt.Errorf("step %d (%s): %w", i+1, st.Action(), err)
		}
		res.Steps++
		if msg := p.Session.Status(); msg != last && msg != "" {
			res.Messages = append(res.Messages, msg)
			last = msg
		}
	}
	res.Created = store.Len() - before
	p.log.Info("script replayed", slog.String("name", s.Name), slog.Int("steps", res.Steps), slog.Int("created", res.Created))
	return res, nil
}

func (p *Player) step(st Step, z float64, proj snap.Projector) error {
	switch st.Action() {
	case "tool":
		if st.Tool == "none" {
			p.Session.Deactivate()
			return nil
		}
		_, err := p.Session.ActivateByName(st.Tool)
		return err
	case "click":
		w := point(st.Click, z)
		p.Session.PointerClick(w, proj.WorldToScreen(w))
	case "move":
		w := point(st.Move, z)
		p.Session.PointerMove(w, proj.WorldToScreen(w))
	case "finish":
		p.Session.Finish()
	case "close":
		p.Session.Close()
	case "step":
		p.Session.Step(*st.Offset)
	case "skip_boundary":
		p.Session.SkipBoundary()
	case "cancel":
		p.Session.Cancel()
	case "layer":
		if p.SetLayer == nil {
			return errors.New("layers are not supported by this host")
		}
		p.SetLayer(st.Layer)
	case "extrude":
		return p.extrude(st.Extrude, z)
	default:
		return errors.New("empty step")
	}
	return nil
}

func (p *Player) extrude(x *ExtrudeStep, z float64) error {
	if p.Extruder == nil {
		return errors.New("extrusion is not supported by this host")
	}
	at := point(x.At, z)
	target, ok := extrude.PickSource(p.Session.Store().Visible(), at)
	if !ok {
		return fmt.Errorf("%w (%g, %g)", ErrNoProfile, at.X, at.Y)
	}
	sess, err := p.Extruder.Start(target, 0)
	if err != nil {
		return err
	}
	p.Extruder.Update(sess, x.Depth)
	_, err = p.Extruder.Commit(sess)
	return err
}

func point(v []float64, z float64) geom.Point3D {
	p := geom.P(v[0], v[1], z)
	if len(v) > 2 {
		p.Z = v[2]
	}
	return p
}
