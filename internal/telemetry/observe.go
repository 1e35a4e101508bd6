/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */


package telemetry

import "gosketchcad/internal/entity"

// Observe tallies store events until the returned cancel is called. A
// disabled client does not subscribe at all.
func (c *Client) Observe(store *entity.Store) (cancel func()) {
	if !c.Enabled() || store == nil {
		return func() {}
	}
	return store.Subscribe(func(ev entity.Event) {
		if ev.Entity == nil {
			return
		}
		switch ev.Kind {
		case entity.EventCreated:
			c.EntityCreated(ev.Entity.Kind())
		case entity.EventRemoved:
			c.EntityRemoved(ev.Entity.Kind())
		case entity.EventVisibility:
			if !ev.Entity.Visible() {
				c.EntityHidden()
			}
		}
	})
}

// Observe subscribes the default client.
func Observe(store *entity.Store) (cancel func()) { return Default().Observe(store) }
