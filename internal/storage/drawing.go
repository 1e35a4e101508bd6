/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gosketchcad/internal/entity"
	"gosketchcad/internal/version"
)

const (
	DrawingExt     = ".sketch.json"
	BackupsDirName = "backups"
	// FormatVersion is bumped when the drawing file layout changes.
	FormatVersion = 1
)

// Drawing is the on-disk form of one drawing.
type Drawing struct {
	FormatVersion int             `json:"formatVersion"`
	Name          string          `json:"name"`
	App           string          `json:"app,omitempty"`
	WorkplaneZ    float64         `json:"workplaneZ"`
	SavedAt       time.Time       `json:"savedAt"`
	Entities      []entity.Record `json:"entities"`
}

// NewDrawing encodes the given entities in store order.
func NewDrawing(name string, workplaneZ float64, list []entity.Entity) (*Drawing, error) {
	d := &Drawing{FormatVersion: FormatVersion, Name: name, App: version.String(), WorkplaneZ: workplaneZ}
	for _, e := range list {
		r, err := entity.Encode(e)
		if err != nil {
			return nil, err
		}
		d.Entities = append(d.Entities, r)
	}
	return d, nil
}

// Decode rebuilds the entity list.
func (d *Drawing) Decode() ([]entity.Entity, error) {
	out := make([]entity.Entity, 0, len(d.Entities))
	for _, r := range d.Entities {
		e, err := entity.Decode(r)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// Fill appends the drawing's entities to store.
func (d *Drawing) Fill(store *entity.Store) error {
	list, err := d.Decode()
	if err != nil {
		return err
	}
	for _, e := range list {
		store.Add(e)
	}
	return nil
}

// SaveDrawing writes d to path with transactional semantics and a
// timestamped backup of the previous file (if present).
func SaveDrawing(path string, d *Drawing) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("drawing path is required")
	}
	if d == nil {
		return errors.New("nil drawing")
	}
	d.SavedAt = time.Now().UTC()
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal drawing: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create drawing dir: %w", err)
	}
	if _, statErr := os.Stat(path); statErr == nil {
		bdir := filepath.Join(dir, BackupsDirName)
		stamp := time.Now().Format("20060102-150405.000")
		bpath := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", filepath.Base(path), stamp))
		if cerr := copyFile(path, bpath); cerr != nil {
			return fmt.Errorf("backup current drawing: %w", cerr)
		}
	}

	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", filepath.Base(path), os.Getpid(), rand.Int()))
	if werr := writeFileSync(temp, data); werr != nil {
		return fmt.Errorf("write temp drawing: %w", werr)
	}
	// On Windows, replace by removing destination first if needed
	if _, err := os.Stat(path); err == nil {
		_ = os.Remove(path)
	}
	if rerr := os.Rename(temp, path); rerr != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace drawing: %w", rerr)
	}
	return nil
}

// SaveStore is SaveDrawing for the current content of store.
func SaveStore(path, name string, workplaneZ float64, store *entity.Store) error {
	d, err := NewDrawing(name, workplaneZ, store.All())
	if err != nil {
		return err
	}
	return SaveDrawing(path, d)
}

// OpenDrawing reads a drawing. If the file cannot be read or parsed, the
// latest backup is tried.
func OpenDrawing(path string) (*Drawing, error) {
	d, err := readDrawing(path)
	if err == nil {
		return d, nil
	}
	bd, berr := openLatestBackup(path)
	if berr != nil {
		return nil, fmt.Errorf("open drawing: %w; backup attempt: %v", err, berr)
	}
	return bd, nil
}

// AutosaveCrashSnapshot writes the store next to path as a separate
// .crash file without touching the drawing or its backups.
func AutosaveCrashSnapshot(path string, store *entity.Store) (string, error) {
	if store == nil {
		return "", errors.New("nil store")
	}
	if strings.TrimSpace(path) == "" {
		path = filepath.Join(os.TempDir(), "untitled"+DrawingExt)
	}
	d, err := NewDrawing(DrawingName(path), 0, store.All())
	if err != nil {
		return "", err
	}
	d.SavedAt = time.Now().UTC()
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal crash snapshot: %w", err)
	}
	out := filepath.Join(filepath.Dir(path), BackupsDirName, fmt.Sprintf("%s.%s.crash", filepath.Base(path), time.Now().Format("20060102-150405")))
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return "", fmt.Errorf("create backups dir: %w", err)
	}
	if err := writeFileSync(out, data); err != nil {
		return "", fmt.Errorf("write crash snapshot: %w", err)
	}
	return out, nil
}

// DrawingName derives a display name from a drawing path.
func DrawingName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(strings.TrimSuffix(base, DrawingExt), filepath.Ext(base))
}

func readDrawing(path string) (*Drawing, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var d Drawing
	if err := json.Unmarshal(b, &d); err != nil {
		return nil, fmt.Errorf("parse drawing: %w", err)
	}
	if d.FormatVersion > FormatVersion {
		return nil, fmt.Errorf("drawing format %d is newer than supported %d", d.FormatVersion, FormatVersion)
	}
	return &d, nil
}

func openLatestBackup(path string) (*Drawing, error) {
	bdir := filepath.Join(filepath.Dir(path), BackupsDirName)
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return nil, fmt.Errorf("read backups dir: %w", err)
	}
	prefix := filepath.Base(path) + "."
	var candidates []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ".bak") {
			candidates = append(candidates, filepath.Join(bdir, name))
		}
	}
	if len(candidates) == 0 {
		return nil, errors.New("no backups found")
	}
	sort.Strings(candidates) // timestamp in name yields lexicographic order
	return readDrawing(candidates[len(candidates)-1])
}

// writeFileSync writes data to a file, ensures it is flushed to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

// copyFile copies a file from src to dst (overwrites dst if exists).
func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}
