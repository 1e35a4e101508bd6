/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"gosketchcad/internal/config"
	applog "gosketchcad/internal/log"
	"gosketchcad/internal/telemetry"
	"gosketchcad/internal/version"
)

// cfg is the effective configuration, loaded before any subcommand runs.
var cfg = config.Defaults()

var rootCmd = &cobra.Command{
	Use:           "sketchcad",
	Short:         "Sketch-based CAD drawing core",
	Long:          "SketchCAD replays drawing scripts through the snapping tool session, persists drawings and exports them to SVG, PDF and PNG.",
	Version:       version.String(),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		cfg = loaded
		applog.Init(applog.Options{
			Level:     cfg.Logging.Level,
			Format:    cfg.Logging.Format,
			AddSource: cfg.Logging.Source,
			File:      cfg.Logging.File,
		})
		l := applog.WithComponent("cli")
		if err != nil {
			l.Warn("config not loaded, using defaults", slog.Any("err", err))
		}
		if verr := cfg.Validate(); verr != nil {
			return fmt.Errorf("invalid configuration: %w", verr)
		}
		telemetry.NewDefault(telemetry.FromEnv(cfg.General.TelemetryOptIn))
		l.Debug("start", slog.String("cmd", cmd.Name()), slog.Int("args", len(args)))
		return nil
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
