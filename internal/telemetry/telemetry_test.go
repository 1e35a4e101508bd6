/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */


package telemetry

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"gosketchcad/internal/entity"
	"gosketchcad/internal/geom"
)

// collector records request bodies per path and answers with status.
type collector struct {
	mu     sync.Mutex
	bodies map[string][][]byte
	status int
}

func newCollector(t *testing.T, status int) (*collector, *httptest.Server) {
	t.Helper()
	c := &collector{bodies: map[string][][]byte{}, status: status}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		_ = r.Body.Close()
		c.mu.Lock()
		c.bodies[r.URL.Path] = append(c.bodies[r.URL.Path], b)
		c.mu.Unlock()
		w.WriteHeader(c.status)
	}))
	t.Cleanup(srv.Close)
	return c, srv
}

func (c *collector) count(path string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.bodies[path])
}

func (c *collector) body(path string, i int) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bodies[path][i]
}

func TestFromEnvCombinesConfigOptIn(t *testing.T) {
	t.Setenv(EnvOptIn, "")
	t.Setenv(EnvEventsURL, " http://example.invalid/usage ")
	t.Setenv(EnvTimeoutMs, "250")
	cfg := FromEnv()
	if cfg.OptIn {
		t.Fatalf("telemetry must default to off")
	}
	if cfg.EventsURL != "http://example.invalid/usage" || cfg.Timeout != 250*time.Millisecond {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if !FromEnv(true).OptIn {
		t.Fatalf("config opt-in must enable telemetry")
	}
	t.Setenv(EnvOptIn, "yes")
	t.Setenv(EnvTimeoutMs, "soon")
	if cfg := FromEnv(false); !cfg.OptIn || cfg.Timeout != defaultTimeout {
		t.Fatalf("env opt-in with a bad timeout gave %+v", cfg)
	}
}

func TestObservedDrawingFlushesOneBatch(t *testing.T) {
	col, srv := newCollector(t, http.StatusOK)
	c := New(Config{OptIn: true, EventsURL: srv.URL + "/usage", Timeout: time.Second})

	store := entity.NewStore()
	cancel := c.Observe(store)
	l := entity.NewLine(geom.P(1.25, 2.5, 0), geom.P(3, 4, 0))
	store.Add(l)
	sf := entity.NewSurface([]geom.Point3D{geom.P(0, 0, 0), geom.P(4, 0, 0), geom.P(0, 4, 0)}, 0, l.ID())
	store.Add(sf)
	_ = store.SetVisible(l.ID(), false)
	_ = store.Remove(sf.ID())
	cancel()
	store.Add(entity.NewCircle(geom.P(0, 0, 0), 1))
	c.ScriptReplayed(7)

	if err := c.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if n := col.count("/usage"); n != 1 {
		t.Fatalf("expected one batch, got %d", n)
	}
	raw := col.body("/usage", 0)
	var b Batch
	if err := json.Unmarshal(raw, &b); err != nil {
		t.Fatalf("bad batch json: %v", err)
	}
	u := b.Usage
	if b.App != "sketchcad" || b.SentAt.IsZero() {
		t.Fatalf("unexpected batch header %+v", b)
	}
	if u.Created[entity.KindLine] != 1 || u.Created[entity.KindSurface] != 1 || u.Created[entity.KindCircle] != 0 {
		t.Fatalf("unexpected created counts %+v", u.Created)
	}
	if u.Removed[entity.KindSurface] != 1 || u.Hidden != 1 || u.Scripts != 1 || u.Steps != 7 {
		t.Fatalf("unexpected tally %+v", u)
	}
	if strings.Contains(string(raw), `"p1"`) || strings.Contains(string(raw), string(l.ID())) {
		t.Fatalf("geometry or ids must not be sent: %s", raw)
	}

	if err := c.Flush(context.Background()); err != nil || col.count("/usage") != 1 {
		t.Fatalf("an empty tally must not be posted")
	}
}

func TestFailedFlushKeepsTally(t *testing.T) {
	col, srv := newCollector(t, http.StatusServiceUnavailable)
	c := New(Config{OptIn: true, EventsURL: srv.URL + "/usage", Timeout: time.Second})
	c.EntityCreated(entity.KindHatch)
	if err := c.Flush(context.Background()); err == nil {
		t.Fatalf("expected an error for a 503")
	}
	c.EntityCreated(entity.KindHatch)
	if got := c.Usage().Created[entity.KindHatch]; got != 2 {
		t.Fatalf("unsent counts must be kept, got %d", got)
	}

	col.mu.Lock()
	col.status = http.StatusOK
	col.mu.Unlock()
	if err := c.Flush(context.Background()); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if len(c.Usage().Created) != 0 || col.count("/usage") != 2 {
		t.Fatalf("a delivered tally must be cleared")
	}
}

func TestDisabledClientStaysSilent(t *testing.T) {
	col, srv := newCollector(t, http.StatusOK)
	c := New(Config{OptIn: false, EventsURL: srv.URL + "/usage", CrashURL: srv.URL + "/crash"})
	store := entity.NewStore()
	c.Observe(store)()
	store.Add(entity.NewLine(geom.P(0, 0, 0), geom.P(1, 0, 0)))
	c.ScriptReplayed(3)
	if err := c.Flush(context.Background()); err != nil {
		t.Fatalf("disabled flush: %v", err)
	}
	c.UploadCrash([]byte("ignored"))
	if col.count("/usage")+col.count("/crash") != 0 || len(c.Usage().Created) != 0 {
		t.Fatalf("disabled client must not tally or send")
	}

	var nilClient *Client
	nilClient.EntityCreated(entity.KindLine)
	nilClient.UploadCrash(nil)
	if nilClient.Enabled() || nilClient.Flush(context.Background()) != nil {
		t.Fatalf("nil client must be a no-op")
	}
}

func TestUploadCrash(t *testing.T) {
	col, srv := newCollector(t, http.StatusOK)
	c := New(Config{OptIn: true, CrashURL: srv.URL + "/crash", Timeout: time.Second})
	c.UploadCrash([]byte("STACKTRACE"))
	if col.count("/crash") != 1 || string(col.body("/crash", 0)) != "STACKTRACE" {
		t.Fatalf("expected the crash report to arrive")
	}
	// unreachable endpoints only log
	New(Config{OptIn: true, CrashURL: "http://127.0.0.1:1/crash", Timeout: 50 * time.Millisecond}).UploadCrash([]byte("x"))
}

func TestDefaultClientFromEnv(t *testing.T) {
	t.Setenv(EnvOptIn, "true")
	t.Setenv(EnvEventsURL, "http://127.0.0.1:1/usage")
	NewDefault(FromEnv())
	t.Cleanup(func() { NewDefault(Config{}) })
	if !Enabled() {
		t.Fatalf("default client should be enabled from env")
	}
	ScriptReplayed(2)
	if Default().Usage().Steps != 2 {
		t.Fatalf("default client did not tally the script")
	}
}
