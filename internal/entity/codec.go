/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package entity

import (
	"encoding/json"
	"fmt"
)

// Record is the persisted envelope of one entity.
type Record struct {
	ID      ID              `json:"id"`
	Kind    Kind            `json:"kind"`
	Layer   string          `json:"layer,omitempty"`
	Visible bool            `json:"visible"`
	Data    json.RawMessage `json:"data"`
}

// Encode wraps e into its envelope.
func Encode(e Entity) (Record, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return Record{}, fmt.Errorf("encode %s %s: %w", e.Kind(), e.ID(), err)
	}
	return Record{ID: e.ID(), Kind: e.Kind(), Layer: e.Layer(), Visible: e.Visible(), Data: data}, nil
}

// Decode rebuilds an entity from its envelope, keeping the stored identity.
func Decode(r Record) (Entity, error) {
	var e Entity
	switch r.Kind {
	case KindLine:
		e = &Line{}
	case KindPolyline:
		e = &Polyline{}
	case KindRectangle:
		e = &Rectangle{}
	case KindCircle:
		e = &Circle{}
	case KindArc:
		e = &Arc{}
	case KindSurface:
		e = &Surface{}
	case KindSolid:
		e = &Solid{}
	case KindHatch:
		e = &Hatch{}
	default:
		return nil, fmt.Errorf("decode %s: unknown kind %q", r.ID, r.Kind)
	}
	if len(r.Data) > 0 {
		if err := json.Unmarshal(r.Data, e); err != nil {
			return nil, fmt.Errorf("decode %s %s: %w", r.Kind, r.ID, err)
		}
	}
	if r.ID == "" {
		return nil, fmt.Errorf("decode %s: missing id", r.Kind)
	}
	b := baseOf(e)
	b.id, b.layer, b.visible = r.ID, r.Layer, r.Visible
	return e, nil
}

// MarshalEntities encodes a list of entities as a JSON array of envelopes.
func MarshalEntities(list []Entity) ([]byte, error) {
	recs := make([]Record, 0, len(list))
	for _, e := range list {
		r, err := Encode(e)
		if err != nil {
			return nil, err
		}
		recs = append(recs, r)
	}
	return json.Marshal(recs)
}

// UnmarshalEntities is the inverse of MarshalEntities.
func UnmarshalEntities(b []byte) ([]Entity, error) {
	var recs []Record
	if err := json.Unmarshal(b, &recs); err != nil {
		return nil, fmt.Errorf("decode entity list: %w", err)
	}
	out := make([]Entity, 0, len(recs))
	for _, r := range recs {
		e, err := Decode(r)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func baseOf(e Entity) *Base {
	switch v := e.(type) {
	case *Line:
		return &v.Base
	case *Polyline:
		return &v.Base
	case *Rectangle:
		return &v.Base
	case *Circle:
		return &v.Base
	case *Arc:
		return &v.Base
	case *Surface:
		return &v.Base
	case *Solid:
		return &v.Base
	case *Hatch:
		return &v.Base
	}
	panic(fmt.Sprintf("entity: no base for %T", e))
}
