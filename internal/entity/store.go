/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package entity

import (
	"errors"
	"sync"
)

// ErrNotFound is returned for an unknown entity ID.
var ErrNotFound = errors.New("entity not found")

// EventKind classifies a Store change.
type EventKind int

const (
	EventCreated EventKind = iota
	EventRemoved
	EventVisibility
)

func (k EventKind) String() string {
	switch k {
	case EventCreated:
		return "created"
	case EventRemoved:
		return "removed"
	case EventVisibility:
		return "visibility"
	default:
		return "unknown"
	}
}

// Event is delivered to subscribers after the Store changed.
type Event struct {
	Kind   EventKind
	Entity Entity
}

// Store is the ordered set of committed entities. Tools only ever append
// and toggle visibility; Remove exists for history undo and loading.
// Observers are called synchronously, outside the lock, in subscription
// order.
type Store struct {
	mu       sync.RWMutex
	order    []Entity
	byID     map[ID]Entity
	subs     map[int]func(Event)
	subOrder []int
	nextSub  int
}

func NewStore() *Store {
	return &Store{byID: map[ID]Entity{}, subs: map[int]func(Event){}}
}

// Add appends e. Adding an ID that is already present is a no-op.
func (s *Store) Add(e Entity) {
	if e == nil {
		return
	}
	s.mu.Lock()
	if _, ok := s.byID[e.ID()]; ok {
		s.mu.Unlock()
		return
	}
	s.order = append(s.order, e)
	s.byID[e.ID()] = e
	s.mu.Unlock()
	s.emit(Event{Kind: EventCreated, Entity: e})
}

// Remove drops the entity with the given ID.
func (s *Store) Remove(id ID) error {
	s.mu.Lock()
	e, ok := s.byID[id]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	delete(s.byID, id)
	for i, x := range s.order {
		if x.ID() == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
	s.emit(Event{Kind: EventRemoved, Entity: e})
	return nil
}

// SetVisible toggles visibility; an unchanged value emits nothing.
func (s *Store) SetVisible(id ID, v bool) error {
	s.mu.Lock()
	e, ok := s.byID[id]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	changed := e.Visible() != v
	e.SetVisible(v)
	s.mu.Unlock()
	if changed {
		s.emit(Event{Kind: EventVisibility, Entity: e})
	}
	return nil
}

func (s *Store) Get(id ID) (Entity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.byID[id]
	return e, ok
}

// All returns the entities in insertion order.
func (s *Store) All() []Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Entity(nil), s.order...)
}

// Visible returns the visible entities in insertion order.
func (s *Store) Visible() []Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entity, 0, len(s.order))
	for _, e := range s.order {
		if e.Visible() {
			out = append(out, e)
		}
	}
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Subscribe registers fn for change events and returns a cancel func.
func (s *Store) Subscribe(fn func(Event)) (cancel func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subOrder = append(s.subOrder, id)
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
		for i, x := range s.subOrder {
			if x == id {
				s.subOrder = append(s.subOrder[:i], s.subOrder[i+1:]...)
				break
			}
		}
	}
}

func (s *Store) emit(ev Event) {
	s.mu.RLock()
	fns := make([]func(Event), 0, len(s.subOrder))
	for _, id := range s.subOrder {
		fns = append(fns, s.subs[id])
	}
	s.mu.RUnlock()
	for _, fn := range fns {
		fn(ev)
	}
}
