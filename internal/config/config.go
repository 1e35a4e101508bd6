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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.

type SnapConfig struct {
	Enabled                 bool    `yaml:"enabled"`
	DistancePx              float64 `yaml:"distance_px"`
	GridEnabled             bool    `yaml:"grid_enabled"`
	GridSize                float64 `yaml:"grid_size"`
	MaxIntersectionSegments int     `yaml:"max_intersection_segments"`
}

// ToleranceConfig holds the world-unit tolerances shared by tools and the
// surface synthesizer.
type ToleranceConfig struct {
	Close        float64 `yaml:"close"`
	Planar       float64 `yaml:"planar"`
	MinSize      float64 `yaml:"min_size"`
	PickDistance float64 `yaml:"pick_distance"`
}

type ToolsConfig struct {
	ParallelOffset float64 `yaml:"parallel_offset"`
	ParallelStep   float64 `yaml:"parallel_step"`
	HatchPattern   string  `yaml:"hatch_pattern"`
	HatchSpacing   float64 `yaml:"hatch_spacing"`
	HatchAngle     float64 `yaml:"hatch_angle"`
}

type SurfaceConfig struct {
	MaxCycleEdges int `yaml:"max_cycle_edges"`
}

type ExtrudeConfig struct {
	MinDepth      float64 `yaml:"min_depth"`
	PixelsPerUnit float64 `yaml:"pixels_per_unit"`
}

type HistoryConfig struct {
	MaxBytes    int `yaml:"max_bytes"`
	MaxPerLayer int `yaml:"max_per_layer"`
}

type StorageConfig struct {
	// DSN is a sqlite file path or a postgres:// URL.
	DSN string `yaml:"dsn"`
}

type GeneralConfig struct {
	TelemetryOptIn bool    `yaml:"telemetry_opt_in"`
	WorkplaneZ     float64 `yaml:"workplane_z"`
	Layer          string  `yaml:"layer"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int             `yaml:"config_version"`
	General       GeneralConfig   `yaml:"general"`
	Snap          SnapConfig      `yaml:"snap"`
	Tolerance     ToleranceConfig `yaml:"tolerance"`
	Tools         ToolsConfig     `yaml:"tools"`
	Surface       SurfaceConfig   `yaml:"surface"`
	Extrude       ExtrudeConfig   `yaml:"extrude"`
	History       HistoryConfig   `yaml:"history"`
	Storage       StorageConfig   `yaml:"storage"`
	Logging       LoggingConfig   `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{TelemetryOptIn: false, WorkplaneZ: 0, Layer: "sketch"},
		Snap:          SnapConfig{Enabled: true, DistancePx: 10, GridEnabled: false, GridSize: 1, MaxIntersectionSegments: 2000},
		Tolerance:     ToleranceConfig{Close: 0.1, Planar: 0.1, MinSize: 0.01, PickDistance: 0.5},
		Tools:         ToolsConfig{ParallelOffset: 1, ParallelStep: 0.5, HatchPattern: "parallel", HatchSpacing: 1, HatchAngle: 45},
		Surface:       SurfaceConfig{MaxCycleEdges: 64},
		Extrude:       ExtrudeConfig{MinDepth: 0.01, PixelsPerUnit: 20},
		History:       HistoryConfig{MaxBytes: 16 * 1024 * 1024, MaxPerLayer: 200},
		Storage:       StorageConfig{DSN: ""},
		Logging:       LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
	}
}

// Env var names used as overrides.
const (
	EnvConfigPath     = "GSC_CONFIG"
	EnvTelemetryOptIn = "GSC_TELEMETRY_OPT_IN"
	EnvWorkplaneZ     = "GSC_WORKPLANE_Z"
	EnvSnapEnabled    = "GSC_SNAP_ENABLED"
	EnvSnapDistancePx = "GSC_SNAP_DISTANCE_PX"
	EnvGridEnabled    = "GSC_GRID_ENABLED"
	EnvGridSize       = "GSC_GRID_SIZE"
	EnvStorageDSN     = "GSC_STORAGE_DSN"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "GSC_LOG_LEVEL"
	EnvLogFormat = "GSC_LOG_FORMAT"
	EnvLogSource = "GSC_LOG_SOURCE"
	EnvLogFile   = "GSC_LOG_FILE"
)

// envKeys maps dotted config keys to the env vars that override them.
var envKeys = map[string]string{
	"general.telemetry_opt_in": EnvTelemetryOptIn,
	"general.workplane_z":      EnvWorkplaneZ,
	"snap.enabled":             EnvSnapEnabled,
	"snap.distance_px":         EnvSnapDistancePx,
	"snap.grid_enabled":        EnvGridEnabled,
	"snap.grid_size":           EnvGridSize,
	"storage.dsn":              EnvStorageDSN,
	"logging.level":            EnvLogLevel,
	"logging.format":           EnvLogFormat,
	"logging.source":           EnvLogSource,
	"logging.file":             EnvLogFile,
}

// ConfigPath returns the per-user config file path. GSC_CONFIG wins when set.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "SketchCAD")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "SketchCAD")
	default: // linux and others
		base = filepath.Join(os.Getenv("HOME"), ".config", "sketchcad")
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults, and merges
// environment overrides. A malformed file is reported but defaults still apply.
func Load() (AppConfig, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, err
	}
	var parseErr error
	if data, err := os.ReadFile(path); err == nil {
		// keys absent from the file keep their defaults
		fileCfg := Defaults()
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			parseErr = fmt.Errorf("parse %s: %w", path, err)
		} else {
			mergeInto(&cfg, &fileCfg)
		}
	}
	applyEnvOverrides(&cfg)
	return cfg, parseErr
}

// Save writes the user config YAML.
func Save(cfg AppConfig) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// Validate reports values no drawing session can work with.
func (c AppConfig) Validate() error {
	var errs []error
	positive := map[string]float64{
		"snap.distance_px":        c.Snap.DistancePx,
		"snap.grid_size":          c.Snap.GridSize,
		"tolerance.close":         c.Tolerance.Close,
		"tolerance.planar":        c.Tolerance.Planar,
		"tolerance.min_size":      c.Tolerance.MinSize,
		"tolerance.pick_distance": c.Tolerance.PickDistance,
		"tools.hatch_spacing":     c.Tools.HatchSpacing,
		"extrude.min_depth":       c.Extrude.MinDepth,
		"extrude.pixels_per_unit": c.Extrude.PixelsPerUnit,
	}
	for _, key := range sortedKeys(positive) {
		if !(positive[key] > 0) {
			errs = append(errs, fmt.Errorf("%s must be positive, got %v", key, positive[key]))
		}
	}
	if c.Surface.MaxCycleEdges < 3 {
		errs = append(errs, fmt.Errorf("surface.max_cycle_edges must be at least 3, got %d", c.Surface.MaxCycleEdges))
	}
	return errors.Join(errs...)
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	// booleans: copy directly from src (file) so user preferences persist
	dst.General.TelemetryOptIn = src.General.TelemetryOptIn
	dst.General.WorkplaneZ = src.General.WorkplaneZ
	if strings.TrimSpace(src.General.Layer) != "" {
		dst.General.Layer = strings.TrimSpace(src.General.Layer)
	}

	dst.Snap.Enabled = src.Snap.Enabled
	dst.Snap.GridEnabled = src.Snap.GridEnabled
	mergeFloat(&dst.Snap.DistancePx, src.Snap.DistancePx)
	mergeFloat(&dst.Snap.GridSize, src.Snap.GridSize)
	mergeInt(&dst.Snap.MaxIntersectionSegments, src.Snap.MaxIntersectionSegments)

	mergeFloat(&dst.Tolerance.Close, src.Tolerance.Close)
	mergeFloat(&dst.Tolerance.Planar, src.Tolerance.Planar)
	mergeFloat(&dst.Tolerance.MinSize, src.Tolerance.MinSize)
	mergeFloat(&dst.Tolerance.PickDistance, src.Tolerance.PickDistance)

	mergeFloat(&dst.Tools.ParallelOffset, src.Tools.ParallelOffset)
	mergeFloat(&dst.Tools.ParallelStep, src.Tools.ParallelStep)
	mergeFloat(&dst.Tools.HatchSpacing, src.Tools.HatchSpacing)
	dst.Tools.HatchAngle = src.Tools.HatchAngle
	if p := strings.ToLower(strings.TrimSpace(src.Tools.HatchPattern)); p != "" {
		dst.Tools.HatchPattern = p
	}

	mergeInt(&dst.Surface.MaxCycleEdges, src.Surface.MaxCycleEdges)
	mergeFloat(&dst.Extrude.MinDepth, src.Extrude.MinDepth)
	mergeFloat(&dst.Extrude.PixelsPerUnit, src.Extrude.PixelsPerUnit)
	mergeInt(&dst.History.MaxBytes, src.History.MaxBytes)
	mergeInt(&dst.History.MaxPerLayer, src.History.MaxPerLayer)

	if strings.TrimSpace(src.Storage.DSN) != "" {
		dst.Storage.DSN = strings.TrimSpace(src.Storage.DSN)
	}
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func mergeFloat(dst *float64, v float64) {
	if v != 0 {
		*dst = v
	}
}

func mergeInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	if v, ok := lookup(EnvTelemetryOptIn); ok {
		cfg.General.TelemetryOptIn = parseBool(v)
	}
	if v, ok := lookup(EnvWorkplaneZ); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.General.WorkplaneZ = f
		}
	}
	if v, ok := lookup(EnvSnapEnabled); ok {
		cfg.Snap.Enabled = parseBool(v)
	}
	if v, ok := lookup(EnvSnapDistancePx); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Snap.DistancePx = f
		}
	}
	if v, ok := lookup(EnvGridEnabled); ok {
		cfg.Snap.GridEnabled = parseBool(v)
	}
	if v, ok := lookup(EnvGridSize); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Snap.GridSize = f
		}
	}
	if v, ok := lookup(EnvStorageDSN); ok {
		cfg.Storage.DSN = v
	}
	// logging overrides
	if v, ok := lookup(EnvLogLevel); ok {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v, ok := lookup(EnvLogFormat); ok {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v, ok := lookup(EnvLogSource); ok {
		cfg.Logging.Source = parseBool(v)
	}
	if v, ok := lookup(EnvLogFile); ok {
		cfg.Logging.File = v
	}
}

func lookup(env string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(env))
	return v, v != ""
}

func parseBool(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	env, ok := envKeys[key]
	if !ok || os.Getenv(env) == "" {
		return "", false
	}
	return env, true
}

// Keys lists the dotted keys that can be overridden from the environment.
func Keys() []string { return sortedKeys(envKeys) }

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
