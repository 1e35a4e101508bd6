/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package history keeps per-layer undo/redo stacks of committed entities.
// It is the host side of the tools' history callback: undo removes the
// entities of the last step from the store, redo adds them back.
package history

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"gosketchcad/internal/entity"
	applog "gosketchcad/internal/log"
)

// Step is one undoable unit: the entities committed together on a layer.
// Blob holds their encoded records and is what the byte cap counts.
type Step struct {
	Layer string
	IDs   []entity.ID
	Blob  []byte
	TS    time.Time
}

// Config controls memory and depth caps and coalescing behavior.
type Config struct {
	// MaxBytes is a soft cap; the oldest steps across all layers are pruned when exceeded.
	MaxBytes int
	// MaxPerLayer limits the steps kept per layer (0 means unlimited).
	MaxPerLayer int
}

// Manager is safe for concurrent use.
type Manager struct {
	cfg   Config
	store *entity.Store
	now   func() time.Time
	log   *slog.Logger

	mu         sync.Mutex
	undo       map[string][]Step
	redo       map[string][]Step
	totalBytes int
}

func NewManager(store *entity.Store, cfg Config) *Manager {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 16 * 1024 * 1024
	}
	return &Manager{
		cfg:   cfg,
		store: store,
		now:   time.Now,
		log:   applog.WithComponent("history"),
		undo:  make(map[string][]Step),
		redo:  make(map[string][]Step),
	}
}

// Record is a tools.HistoryFunc. It stamps e with the current time.
func (m *Manager) Record(e entity.Entity) { m.Push(e, m.now()) }

// Push records e at ts. A surface built from strokes of the layer's last
// step joins that step, so a stroke and the loop it closes undo together.
// Any push clears the layer's redo stack.
func (m *Manager) Push(e entity.Entity, ts time.Time) {
	rec, err := entity.Encode(e)
	if err != nil {
		m.log.Warn("history record skipped", applog.Entity(e), slog.Any("err", err))
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	layer := e.Layer()
	stack := m.undo[layer]
	if n := len(stack); n > 0 && derivedFrom(e, stack[n-1].IDs) {
		last := stack[n-1]
		blob, err := appendRecord(last.Blob, rec)
		if err == nil {
			m.totalBytes += len(blob) - len(last.Blob)
			last.Blob = blob
			last.IDs = append(last.IDs, e.ID())
			last.TS = ts
			stack[n-1] = last
			m.redo[layer] = nil
			m.enforceCapsLocked(layer)
			return
		}
	}
	blob, err := appendRecord(nil, rec)
	if err != nil {
		m.log.Warn("history record skipped", applog.Entity(e), slog.Any("err", err))
		return
	}
	m.undo[layer] = append(stack, Step{Layer: layer, IDs: []entity.ID{e.ID()}, Blob: blob, TS: ts})
	m.totalBytes += len(blob)
	m.redo[layer] = nil
	m.enforceCapsLocked(layer)
}

// Undo removes the entities of the layer's last step from the store and
// moves the step to the redo stack.
func (m *Manager) Undo(layer string) (Step, bool) {
	m.mu.Lock()
	stack := m.undo[layer]
	if len(stack) == 0 {
		m.mu.Unlock()
		return Step{}, false
	}
	s := stack[len(stack)-1]
	m.undo[layer] = stack[:len(stack)-1]
	m.totalBytes -= len(s.Blob)
	m.redo[layer] = append(m.redo[layer], s)
	m.mu.Unlock()

	// store events fire outside our lock
	for i := len(s.IDs) - 1; i >= 0; i-- {
		if err := m.store.Remove(s.IDs[i]); err != nil {
			m.log.Debug("undo: entity already gone", applog.EntityID(s.IDs[i]))
		}
	}
	return s, true
}

// Redo decodes the layer's last undone step back into the store.
func (m *Manager) Redo(layer string) (Step, bool) {
	m.mu.Lock()
	r := m.redo[layer]
	if len(r) == 0 {
		m.mu.Unlock()
		return Step{}, false
	}
	s := r[len(r)-1]
	m.redo[layer] = r[:len(r)-1]
	m.undo[layer] = append(m.undo[layer], s)
	m.totalBytes += len(s.Blob)
	m.enforceCapsLocked(layer)
	m.mu.Unlock()

	list, err := entity.UnmarshalEntities(s.Blob)
	if err != nil {
		m.log.Error("redo: corrupt step", slog.String("layer", layer), slog.Any("err", err))
		return s, false
	}
	for _, e := range list {
		m.store.Add(e)
	}
	return s, true
}

// ClearLayer drops both stacks of a layer.
func (m *Manager) ClearLayer(layer string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.undo[layer] {
		m.totalBytes -= len(s.Blob)
	}
	delete(m.undo, layer)
	delete(m.redo, layer)
	if m.totalBytes < 0 {
		m.totalBytes = 0
	}
}

// Stats returns current sizes for diagnostics.
func (m *Manager) Stats() (totalBytes int, layers int, totalSteps int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.undo {
		if len(v) > 0 {
			layers++
		}
		totalSteps += len(v)
	}
	return m.totalBytes, layers, totalSteps
}

func (m *Manager) enforceCapsLocked(layer string) {
	if m.cfg.MaxPerLayer > 0 {
		stack := m.undo[layer]
		if len(stack) > m.cfg.MaxPerLayer {
			toDrop := len(stack) - m.cfg.MaxPerLayer
			for i := 0; i < toDrop; i++ {
				m.totalBytes -= len(stack[i].Blob)
			}
			m.undo[layer] = append([]Step{}, stack[toDrop:]...)
		}
	}
	// global cap: prune the oldest step across all layers
	for m.cfg.MaxBytes > 0 && m.totalBytes > m.cfg.MaxBytes {
		oldest := ""
		found := false
		var oldestTS time.Time
		for name, stack := range m.undo {
			if len(stack) == 0 {
				continue
			}
			if !found || stack[0].TS.Before(oldestTS) {
				oldest, oldestTS, found = name, stack[0].TS, true
			}
		}
		if !found {
			break
		}
		stack := m.undo[oldest]
		m.totalBytes -= len(stack[0].Blob)
		m.undo[oldest] = stack[1:]
		if len(m.undo[oldest]) == 0 {
			delete(m.undo, oldest)
		}
	}
}

// derivedFrom reports whether e is a surface with a source among ids.
func derivedFrom(e entity.Entity, ids []entity.ID) bool {
	sf, ok := e.(*entity.Surface)
	if !ok {
		return false
	}
	for _, src := range sf.SourceIDs {
		for _, id := range ids {
			if src == id {
				return true
			}
		}
	}
	return false
}

// appendRecord adds rec to a JSON array of entity records.
func appendRecord(blob []byte, rec entity.Record) ([]byte, error) {
	var recs []entity.Record
	if len(blob) > 0 {
		if err := json.Unmarshal(blob, &recs); err != nil {
			return nil, err
		}
	}
	recs = append(recs, rec)
	return json.Marshal(recs)
}
