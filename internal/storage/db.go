/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gosketchcad/internal/entity"
	applog "gosketchcad/internal/log"
	"gosketchcad/internal/version"

	_ "github.com/jackc/pgx/v5/stdlib"
	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

// schemaVersion tracks the SQL schema. Bump it and add a migration step for
// breaking changes.
const schemaVersion = 2

// ErrDrawingNotFound is returned when a named drawing is not in the database.
var ErrDrawingNotFound = errors.New("drawing not found")

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

// DB keeps drawings in SQLite or Postgres. Queries are written with ?
// placeholders and rebound for Postgres.
type DB struct {
	db      *sql.DB
	dialect dialect
	log     *slog.Logger
}

// DrawingInfo summarizes a stored drawing.
type DrawingInfo struct {
	Name     string
	Entities int
	SavedAt  time.Time
}

// IsPostgresDSN reports whether dsn selects the Postgres backend.
func IsPostgresDSN(dsn string) bool {
	d := strings.ToLower(strings.TrimSpace(dsn))
	return strings.HasPrefix(d, "postgres://") || strings.HasPrefix(d, "postgresql://")
}

// OpenDB opens (and migrates) the database behind dsn: a postgres:// URL or
// a SQLite file path.
func OpenDB(ctx context.Context, dsn string) (*DB, error) {
	l := applog.WithComponent("storage")
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("storage dsn is required")
	}
	d := &DB{log: l}
	var err error
	if IsPostgresDSN(dsn) {
		d.dialect = dialectPostgres
		d.db, err = sql.Open("pgx", dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
	} else {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
		uri := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", filepath.ToSlash(dsn))
		d.db, err = sql.Open("sqlite", uri)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		d.db.SetMaxOpenConns(1)
		d.db.SetMaxIdleConns(1)
		if _, err := d.db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
			_ = d.db.Close()
			return nil, fmt.Errorf("enable WAL: %w", err)
		}
	}
	if err := d.db.PingContext(ctx); err != nil {
		_ = d.db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if err := d.ensureSchema(ctx); err != nil {
		_ = d.db.Close()
		l.Error("ensure schema failed", slog.Any("err", err))
		return nil, err
	}
	if err := d.runMigrations(ctx); err != nil {
		_ = d.db.Close()
		l.Error("run migrations failed", slog.Any("err", err))
		return nil, err
	}
	l.Info("drawing db ready", slog.Bool("postgres", d.dialect == dialectPostgres))
	return d, nil
}

func (d *DB) Close() error { return d.db.Close() }

// rebind turns ? placeholders into $n for Postgres.
func (d *DB) rebind(q string) string {
	if d.dialect != dialectPostgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (d *DB) ensureSchema(ctx context.Context) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS drawings (
			name         TEXT PRIMARY KEY,
			workplane_z  DOUBLE PRECISION NOT NULL DEFAULT 0,
			app          TEXT,
			saved_at     TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS entities (
			drawing  TEXT NOT NULL,
			seq      INTEGER NOT NULL,
			id       TEXT NOT NULL,
			kind     TEXT NOT NULL,
			layer    TEXT NOT NULL,
			visible  INTEGER NOT NULL,
			data     TEXT NOT NULL,
			PRIMARY KEY (drawing, id)
		);`,
	}
	for _, q := range ddl {
		if _, err := d.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	var cur int
	err := d.db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// fresh database: start at 1 and let migrations bring it up
		if _, err := d.db.ExecContext(ctx, d.rebind(`INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, ?, ?, ?, ?)`), 1, version.String(), now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		if _, err := d.db.ExecContext(ctx, d.rebind(`UPDATE version SET app=?, updated_at=? WHERE id=1`), version.String(), now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

// runMigrations applies incremental schema migrations up to schemaVersion.
func (d *DB) runMigrations(ctx context.Context) error {
	var cur int
	if err := d.db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	for cur < schemaVersion {
		next := cur + 1
		var stmts []string
		switch next {
		case 2:
			stmts = []string{
				`CREATE INDEX IF NOT EXISTS idx_entities_seq ON entities(drawing, seq);`,
				`CREATE INDEX IF NOT EXISTS idx_entities_kind ON entities(kind);`,
			}
		}
		tx, err := d.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", next, err)
		}
		for _, q := range stmts {
			if _, err := tx.ExecContext(ctx, q); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d stmt failed: %w", next, err)
			}
		}
		if _, err := tx.ExecContext(ctx, d.rebind(`UPDATE version SET schema=?, updated_at=? WHERE id=1`), next, time.Now().UTC().Format(time.RFC3339)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d update version: %w", next, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d commit: %w", next, err)
		}
		cur = next
	}
	return nil
}

// SchemaVersion returns the schema version recorded in the database.
func (d *DB) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := d.db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&v)
	return v, err
}

// SaveDrawing replaces the stored drawing name with list in one transaction.
func (d *DB) SaveDrawing(ctx context.Context, name string, workplaneZ float64, list []entity.Entity) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("drawing name is required")
	}
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	rollback := func(err error) error {
		_ = tx.Rollback()
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := tx.ExecContext(ctx, d.rebind(`INSERT INTO drawings(name, workplane_z, app, saved_at) VALUES(?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET workplane_z=excluded.workplane_z, app=excluded.app, saved_at=excluded.saved_at`),
		name, workplaneZ, version.String(), now); err != nil {
		return rollback(fmt.Errorf("upsert drawing: %w", err))
	}
	if _, err := tx.ExecContext(ctx, d.rebind(`DELETE FROM entities WHERE drawing=?`), name); err != nil {
		return rollback(fmt.Errorf("clear entities: %w", err))
	}
	stmt, err := tx.PrepareContext(ctx, d.rebind(`INSERT INTO entities(drawing, seq, id, kind, layer, visible, data) VALUES(?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return rollback(fmt.Errorf("prepare insert: %w", err))
	}
	defer func() { _ = stmt.Close() }()
	for i, e := range list {
		r, err := entity.Encode(e)
		if err != nil {
			return rollback(err)
		}
		vis := 0
		if r.Visible {
			vis = 1
		}
		if _, err := stmt.ExecContext(ctx, name, i, string(r.ID), string(r.Kind), r.Layer, vis, string(r.Data)); err != nil {
			return rollback(fmt.Errorf("insert entity %s: %w", r.ID, err))
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	d.log.Info("drawing saved", applog.Drawing(name), slog.Int("entities", len(list)))
	return nil
}

// LoadDrawing reads a stored drawing in its saved order.
func (d *DB) LoadDrawing(ctx context.Context, name string) (*Drawing, error) {
	dr := &Drawing{FormatVersion: FormatVersion, Name: name}
	var saved string
	err := d.db.QueryRowContext(ctx, d.rebind(`SELECT workplane_z, COALESCE(app, ''), saved_at FROM drawings WHERE name=?`), name).Scan(&dr.WorkplaneZ, &dr.App, &saved)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrDrawingNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("read drawing: %w", err)
	}
	if ts, err := time.Parse(time.RFC3339Nano, saved); err == nil {
		dr.SavedAt = ts
	}
	rows, err := d.db.QueryContext(ctx, d.rebind(`SELECT id, kind, layer, visible, data FROM entities WHERE drawing=? ORDER BY seq`), name)
	if err != nil {
		return nil, fmt.Errorf("select entities: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var id, kind, layer, data string
		var vis int
		if err := rows.Scan(&id, &kind, &layer, &vis, &data); err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		dr.Entities = append(dr.Entities, entity.Record{
			ID:      entity.ID(id),
			Kind:    entity.Kind(kind),
			Layer:   layer,
			Visible: vis != 0,
			Data:    []byte(data),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return dr, nil
}

// Drawings lists stored drawings by name.
func (d *DB) Drawings(ctx context.Context) ([]DrawingInfo, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT d.name, d.saved_at, COUNT(e.id) FROM drawings d
		LEFT JOIN entities e ON e.drawing = d.name
		GROUP BY d.name, d.saved_at ORDER BY d.name`)
	if err != nil {
		return nil, fmt.Errorf("list drawings: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []DrawingInfo
	for rows.Next() {
		var info DrawingInfo
		var saved string
		if err := rows.Scan(&info.Name, &saved, &info.Entities); err != nil {
			return nil, fmt.Errorf("scan drawing: %w", err)
		}
		info.SavedAt, _ = time.Parse(time.RFC3339Nano, saved)
		out = append(out, info)
	}
	return out, rows.Err()
}

// DeleteDrawing removes a drawing and its entities.
func (d *DB) DeleteDrawing(ctx context.Context, name string) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	if _, err := tx.ExecContext(ctx, d.rebind(`DELETE FROM entities WHERE drawing=?`), name); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete entities: %w", err)
	}
	res, err := tx.ExecContext(ctx, d.rebind(`DELETE FROM drawings WHERE name=?`), name)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete drawing: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		_ = tx.Rollback()
		return fmt.Errorf("%w: %s", ErrDrawingNotFound, name)
	}
	return tx.Commit()
}
