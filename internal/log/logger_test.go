/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */


package log

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gosketchcad/internal/entity"
	"gosketchcad/internal/geom"
)

type kindName string

func (k kindName) String() string { return string(k) }

// captureConsole points the console handler at a buffer for one test.
func captureConsole(t *testing.T, opts Options) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := console
	console = &buf
	t.Cleanup(func() {
		console = prev
		Init(Options{})
	})
	Init(opts)
	return &buf
}

func TestConsoleLineCarriesDrawingAttrs(t *testing.T) {
	buf := captureConsole(t, Options{Level: "debug"})
	l := entity.NewLine(geom.P(0, 0, 0), geom.P(2.5, 0, 0))
	l.SetLayer("walls")

	WithComponent("tools").Info("entity committed", Entity(l), Tool("line"))
	WithComponent("snap").Debug("snapped", Snap(kindName("endpoint"), geom.P(2.5, -0.00001, 0), 3.25))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected two lines, got %q", buf.String())
	}
	first := lines[0]
	for _, want := range []string{"INF [tools] entity committed", "entity.kind=line", "entity.id=" + string(l.ID()), "entity.layer=walls", "tool=line"} {
		if !strings.Contains(first, want) {
			t.Fatalf("missing %q in %q", want, first)
		}
	}
	if strings.Contains(first, "app=") || strings.Contains(first, "component=") {
		t.Fatalf("static attrs belong to JSON output only: %q", first)
	}
	second := lines[1]
	if !strings.Contains(second, "DBG [snap] snapped") || !strings.Contains(second, `snap.at="(2.5, 0, 0)"`) || !strings.Contains(second, "snap.px=3.25") {
		t.Fatalf("unexpected snap line %q", second)
	}
}

func TestLevelFiltersConsole(t *testing.T) {
	buf := captureConsole(t, Options{Level: "warn"})
	WithComponent("history").Info("quiet")
	WithComponent("history").Warn("history record skipped", EntityID("abc"))
	out := buf.String()
	if strings.Contains(out, "quiet") || !strings.Contains(out, "WRN [history] history record skipped entity.id=abc") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestJSONFileKeepsStructure(t *testing.T) {
	// system temp dir: Windows refuses to delete a still-open handle in t.TempDir
	path := filepath.Join(os.TempDir(), fmt.Sprintf("gsc_log_%d.json", time.Now().UnixNano()))
	captureConsole(t, Options{Level: "info", Format: "json", File: path})

	sf := entity.NewSurface([]geom.Point3D{geom.P(0, 0, 0), geom.P(1, 0, 0), geom.P(0, 1, 0)}, 0)
	WithComponent("surface").Info("surface synthesized", Entity(sf), Point("first", sf.Boundary[1]), slog.Int("vertices", 3))

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open log file: %v", err)
	}
	defer func() { _ = f.Close() }()
	var last string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if s := strings.TrimSpace(sc.Text()); s != "" {
			last = s
		}
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(last), &m); err != nil {
		t.Fatalf("bad json line %q: %v", last, err)
	}
	ent, _ := m["entity"].(map[string]any)
	if m["app"] != "sketchcad" || m["component"] != "surface" || ent["kind"] != "surface" || ent["id"] != string(sf.ID()) {
		t.Fatalf("unexpected record %v", m)
	}
	if m["first"] != "(1, 0, 0)" || m["vertices"] != float64(3) {
		t.Fatalf("unexpected values %v %v", m["first"], m["vertices"])
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv(EnvLevel, "warn")
	t.Setenv(EnvFormat, "json")
	t.Setenv(EnvSource, "true")
	t.Setenv(EnvFile, "")
	if o := FromEnv(); o.Level != "warn" || o.Format != "json" || !o.AddSource || o.File != "" {
		t.Fatalf("FromEnv mismatch: %+v", o)
	}
	if ParseLevel("bogus") != slog.LevelInfo || ParseLevel(" Warning ") != slog.LevelWarn {
		t.Fatalf("ParseLevel mismatch")
	}
}

func TestNum(t *testing.T) {
	cases := map[float64]string{2.50000001: "2.5", -1: "-1", 0.12345: "0.1235", -0.00001: "0", 10: "10"}
	for in, want := range cases {
		if got := num(in); got != want {
			t.Fatalf("num(%v) = %q, want %q", in, got, want)
		}
	}
}
