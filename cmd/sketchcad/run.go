/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"gosketchcad/internal/app"
	"gosketchcad/internal/crash"
	"gosketchcad/internal/export"
	applog "gosketchcad/internal/log"
	"gosketchcad/internal/script"
	"gosketchcad/internal/storage"
	"gosketchcad/internal/telemetry"
)

var runFlags struct {
	out     string
	name    string
	exports []string
	dsn     string
	useDB   bool
	scale   float64
}

var runCmd = &cobra.Command{
	Use:   "run <script.yaml>",
	Short: "Replay a drawing script",
	Long: `Replay a YAML drawing script through the tool session and optionally save
the resulting drawing to a file and/or the database and export it.`,
	Example: `  sketchcad run house.yaml -o house.sketch.json --export house.svg --export house.png`,
	Args:    cobra.ExactArgs(1),
	RunE:    runScript,
}

func init() {
	f := runCmd.Flags()
	f.StringVarP(&runFlags.out, "output", "o", "", "write the drawing to this .sketch.json file")
	f.StringVar(&runFlags.name, "name", "", "drawing name (defaults to the script name)")
	f.StringArrayVar(&runFlags.exports, "export", nil, "export to a .svg, .pdf or .png file (repeatable)")
	f.BoolVar(&runFlags.useDB, "db", false, "also store the drawing in the database (storage.dsn)")
	f.StringVar(&runFlags.dsn, "dsn", "", "database DSN; implies --db (sqlite path or postgres:// URL)")
	f.Float64Var(&runFlags.scale, "scale", export.DefaultScale, "export scale in px (pt for PDF) per drawing unit")
	rootCmd.AddCommand(runCmd)
}

func runScript(cmd *cobra.Command, args []string) error {
	l := applog.WithComponent("cli")
	s, err := script.Load(args[0])
	if err != nil {
		return err
	}
	name := firstNonEmpty(runFlags.name, s.Name, strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0])))

	d := app.New(cfg, app.Options{Projector: script.Projector(s.Zoom)})
	defer d.Close()
	defer crash.Recover(d.Store, runFlags.out)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	player := script.NewPlayer(d.Session, d.Extruder, d.SetLayer)
	res, err := player.Play(ctx, s)
	if err != nil {
		return err
	}
	for _, msg := range res.Messages {
		l.Info("tool status", slog.String("msg", msg))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Replayed %d steps of %q: %d entities created\n", res.Steps, name, res.Created)

	if runFlags.out != "" {
		if err := storage.SaveStore(runFlags.out, name, s.WorkplaneZ, d.Store); err != nil {
			return fmt.Errorf("save drawing: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved", runFlags.out)
	}

	dsn := firstNonEmpty(runFlags.dsn, cfg.Storage.DSN)
	if runFlags.dsn != "" || runFlags.useDB {
		if err := saveToDB(ctx, dsn, name, s.WorkplaneZ, d); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Stored %q in the database\n", name)
	}

	opt := export.DefaultOptions()
	opt.Scale = runFlags.scale
	opt.Title = name
	for _, out := range runFlags.exports {
		format, err := export.ParseFormat(out)
		if err != nil {
			return err
		}
		if err := export.ToFile(out, format, d.Store.All(), opt); err != nil {
			return fmt.Errorf("export %s: %w", out, err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Exported", out)
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	telemetry.ScriptReplayed(res.Steps)
	_ = telemetry.Flush(flushCtx)
	return nil
}

func saveToDB(ctx context.Context, dsn, name string, z float64, d *app.Drawing) error {
	if strings.TrimSpace(dsn) == "" {
		return fmt.Errorf("no database configured: pass --dsn or set storage.dsn")
	}
	db, err := storage.OpenDB(ctx, dsn)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	return db.SaveDrawing(ctx, name, z, d.Store.All())
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
