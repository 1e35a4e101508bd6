/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"math"
	"sync"

	"seehuhn.de/go/geom/vec"

	"gosketchcad/internal/geom"
)

const (
	minZoom     = 2.0
	maxZoom     = 2000.0
	defaultZoom = 40.0
)

// View maps the workplane onto the canvas widget. Zoom is px per drawing
// unit; the world origin sits at the widget center shifted by the offset.
// +Y points up on screen.
type View struct {
	mu               sync.RWMutex
	zoom             float64
	offsetX, offsetY float64
	w, h             float64
	planeZ           float64
}

func NewView(planeZ float64) *View { return &View{zoom: defaultZoom, planeZ: planeZ} }

func (v *View) Zoom() float64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.zoom
}

// SetSize records the widget size in px.
func (v *View) SetSize(w, h float64) {
	v.mu.Lock()
	v.w, v.h = w, h
	v.mu.Unlock()
}

// WorldToScreen implements snap.Projector.
func (v *View) WorldToScreen(p geom.Point3D) vec.Vec2 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return vec.Vec2{X: v.w/2 + v.offsetX + p.X*v.zoom, Y: v.h/2 + v.offsetY - p.Y*v.zoom}
}

// ScreenToWorld inverts WorldToScreen onto the workplane.
func (v *View) ScreenToWorld(x, y float64) geom.Point3D {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return geom.P((x-v.w/2-v.offsetX)/v.zoom, -(y-v.h/2-v.offsetY)/v.zoom, v.planeZ)
}

// Pan shifts the view by a screen delta.
func (v *View) Pan(dx, dy float64) {
	v.mu.Lock()
	v.offsetX += dx
	v.offsetY += dy
	v.mu.Unlock()
}

// ZoomAt scales by factor while keeping the world point under (x, y)
// fixed on screen. The zoom is clamped.
func (v *View) ZoomAt(factor, x, y float64) {
	if factor <= 0 || math.IsNaN(factor) {
		return
	}
	anchor := v.ScreenToWorld(x, y)
	v.mu.Lock()
	v.zoom = math.Min(math.Max(v.zoom*factor, minZoom), maxZoom)
	v.offsetX = x - v.w/2 - anchor.X*v.zoom
	v.offsetY = y - v.h/2 + anchor.Y*v.zoom
	v.mu.Unlock()
}

// Fit centers b in the widget with a small margin.
func (v *View) Fit(b geom.Bounds) {
	if b.IsEmpty() {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.w <= 0 || v.h <= 0 {
		return
	}
	bw, bh := math.Max(b.W(), 1e-6), math.Max(b.H(), 1e-6)
	v.zoom = math.Min(math.Max(0.9*math.Min(v.w/bw, v.h/bh), minZoom), maxZoom)
	c := b.Center()
	v.offsetX = -c.X * v.zoom
	v.offsetY = c.Y * v.zoom
}

// Navigator is the pan/zoom lock handed to tools. While a tool holds it,
// drag gestures feed the tool instead of panning.
type Navigator struct {
	mu   sync.Mutex
	held bool
}

func (n *Navigator) Suspend() { n.mu.Lock(); n.held = true; n.mu.Unlock() }
func (n *Navigator) Resume()  { n.mu.Lock(); n.held = false; n.mu.Unlock() }

func (n *Navigator) Suspended() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.held
}
