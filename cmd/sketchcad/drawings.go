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
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"gosketchcad/internal/export"
	"gosketchcad/internal/storage"
)

var drawingsDSN string

var drawingsCmd = &cobra.Command{
	Use:   "drawings",
	Short: "List drawings stored in the database",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDrawingsDB(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()
		infos, err := db.Drawings(cmd.Context())
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tENTITIES\tSAVED")
		for _, in := range infos {
			fmt.Fprintf(tw, "%s\t%d\t%s\n", in.Name, in.Entities, in.SavedAt.Local().Format(time.DateTime))
		}
		return tw.Flush()
	},
}

var drawingsExportCmd = &cobra.Command{
	Use:   "export <name> <out.svg|out.pdf|out.png>",
	Short: "Export a stored drawing",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := export.ParseFormat(args[1])
		if err != nil {
			return err
		}
		db, err := openDrawingsDB(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()
		d, err := db.LoadDrawing(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		list, err := d.Decode()
		if err != nil {
			return err
		}
		opt := export.DefaultOptions()
		opt.Title = d.Name
		if err := export.ToFile(args[1], format, list, opt); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Exported", args[1])
		return nil
	},
}

var drawingsDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a stored drawing",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDrawingsDB(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()
		if err := db.DeleteDrawing(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Deleted", args[0])
		return nil
	},
}

func openDrawingsDB(cmd *cobra.Command) (*storage.DB, error) {
	dsn := firstNonEmpty(drawingsDSN, cfg.Storage.DSN)
	if dsn == "" {
		return nil, fmt.Errorf("no database configured: pass --dsn or set storage.dsn")
	}
	return storage.OpenDB(cmd.Context(), dsn)
}

func init() {
	drawingsCmd.PersistentFlags().StringVar(&drawingsDSN, "dsn", "", "database DSN (sqlite path or postgres:// URL)")
	drawingsCmd.AddCommand(drawingsExportCmd, drawingsDeleteCmd)
	rootCmd.AddCommand(drawingsCmd)
}
