/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// isolate points the config path into a temp dir so the user's file is never read.
func isolate(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv(EnvConfigPath, path)
	return path
}

func TestDefaultsWithoutFile(t *testing.T) {
	isolate(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !cfg.Snap.Enabled || cfg.Snap.DistancePx != 10 || cfg.Tolerance.Close != 0.1 || cfg.Surface.MaxCycleEdges != 64 {
		t.Fatalf("unexpected defaults: %#v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestFileKeepsDefaultsForMissingKeys(t *testing.T) {
	path := isolate(t)
	data := "snap:\n  distance_px: 14\ntolerance:\n  close: 0.2\ntools:\n  hatch_pattern: Brick\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Snap.DistancePx != 14 || cfg.Tolerance.Close != 0.2 || cfg.Tools.HatchPattern != "brick" {
		t.Fatalf("file values not merged: %#v", cfg)
	}
	if !cfg.Snap.Enabled || cfg.Tolerance.Planar != 0.1 {
		t.Fatalf("absent keys must keep defaults: %#v", cfg)
	}
}

func TestSaveThenLoad(t *testing.T) {
	isolate(t)
	cfg := Defaults()
	cfg.Snap.GridEnabled = true
	cfg.Snap.GridSize = 0.25
	cfg.Storage.DSN = "drawings.sqlite"
	if err := Save(cfg); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	got, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !got.Snap.GridEnabled || got.Snap.GridSize != 0.25 || got.Storage.DSN != "drawings.sqlite" {
		t.Fatalf("saved values not loaded: %#v", got.Snap)
	}
}

func TestMalformedFileReportsAndKeepsDefaults(t *testing.T) {
	path := isolate(t)
	if err := os.WriteFile(path, []byte("snap: [not, a, map"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load()
	if err == nil {
		t.Fatalf("expected a parse error")
	}
	if cfg.Snap.DistancePx != 10 {
		t.Fatalf("defaults must still apply, got %v", cfg.Snap.DistancePx)
	}
}

func TestEnvOverridesSnapAndTelemetry(t *testing.T) {
	isolate(t)
	t.Setenv(EnvSnapEnabled, "off")
	t.Setenv(EnvSnapDistancePx, "6.5")
	t.Setenv(EnvTelemetryOptIn, "yes")
	t.Setenv(EnvStorageDSN, "postgres://localhost/sketch")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Snap.Enabled || cfg.Snap.DistancePx != 6.5 || !cfg.General.TelemetryOptIn || cfg.Storage.DSN != "postgres://localhost/sketch" {
		t.Fatalf("env overrides not applied: %#v", cfg)
	}
	if env, ok := EnvOverrideFor("snap.distance_px"); !ok || env != EnvSnapDistancePx {
		t.Fatalf("expected override report for snap.distance_px")
	}
	if _, ok := EnvOverrideFor("snap.grid_size"); ok {
		t.Fatalf("grid size is not overridden")
	}
}

func TestMergeIncludesLogging(t *testing.T) {
	dst := Defaults()
	src := Defaults()
	src.Logging.Level = "DEBUG"
	src.Logging.Format = "json"
	src.Logging.Source = true
	src.Logging.File = "/tmp/gsc.log"
	mergeInto(&dst, &src)
	if dst.Logging.Level != "debug" || dst.Logging.Format != "json" || !dst.Logging.Source || dst.Logging.File != "/tmp/gsc.log" {
		t.Fatalf("logging fields not merged correctly: %#v", dst.Logging)
	}
}

func TestValidate(t *testing.T) {
	cfg := Defaults()
	cfg.Tolerance.Close = 0
	cfg.Surface.MaxCycleEdges = 2
	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected validation errors")
	}
	msg := err.Error()
	if !strings.Contains(msg, "tolerance.close") || !strings.Contains(msg, "max_cycle_edges") {
		t.Fatalf("unexpected validation message: %s", msg)
	}
	if len(Keys()) == 0 || Keys()[0] != "general.telemetry_opt_in" {
		t.Fatalf("keys must be sorted, got %v", Keys())
	}
}
