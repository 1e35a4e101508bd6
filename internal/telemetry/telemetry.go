/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */


// Package telemetry keeps an opt-in, anonymous tally of drawing activity
// and posts it as one batch when flushed. The tally holds entity kinds and
// counts only; coordinates, names and layers never leave the machine.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"gosketchcad/internal/entity"
	applog "gosketchcad/internal/log"
	"gosketchcad/internal/version"
)

// Environment variables read by FromEnv.
const (
	EnvOptIn     = "GSC_TELEMETRY_OPT_IN"
	EnvEventsURL = "GSC_TELEMETRY_URL"
	EnvCrashURL  = "GSC_CRASH_UPLOAD_URL"
	EnvTimeoutMs = "GSC_TELEMETRY_TIMEOUT_MS"
)

const defaultTimeout = 1500 * time.Millisecond

// Config is disabled unless OptIn is set and EventsURL names an endpoint.
type Config struct {
	OptIn     bool
	EventsURL string
	CrashURL  string
	Timeout   time.Duration
}

// FromEnv reads the telemetry settings. optIn from the user config is
// combined with GSC_TELEMETRY_OPT_IN; either one enables the tally.
func FromEnv(optIn ...bool) Config {
	enabled := parseBool(os.Getenv(EnvOptIn))
	for _, v := range optIn {
		enabled = enabled || v
	}
	cfg := Config{
		OptIn:     enabled,
		EventsURL: strings.TrimSpace(os.Getenv(EnvEventsURL)),
		CrashURL:  strings.TrimSpace(os.Getenv(EnvCrashURL)),
		Timeout:   defaultTimeout,
	}
	if ms, err := strconv.Atoi(strings.TrimSpace(os.Getenv(EnvTimeoutMs))); err == nil && ms > 0 {
		cfg.Timeout = time.Duration(ms) * time.Millisecond
	}
	return cfg
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// Usage counts drawing activity since the last successful flush.
type Usage struct {
	Created map[entity.Kind]int `json:"created,omitempty"`
	Removed map[entity.Kind]int `json:"removed,omitempty"`
	// Hidden counts entities consumed by extrusion, trim or extend.
	Hidden  int `json:"hidden,omitempty"`
	Scripts int `json:"scripts,omitempty"`
	Steps   int `json:"steps,omitempty"`
}

func (u Usage) empty() bool {
	return len(u.Created) == 0 && len(u.Removed) == 0 && u.Hidden == 0 && u.Scripts == 0
}

func (u Usage) clone() Usage {
	out := u
	out.Created = cloneCounts(u.Created)
	out.Removed = cloneCounts(u.Removed)
	return out
}

func cloneCounts(m map[entity.Kind]int) map[entity.Kind]int {
	if len(m) == 0 {
		return nil
	}
	out := make(map[entity.Kind]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Batch is the body posted to the events URL.
type Batch struct {
	App     string    `json:"app"`
	Version string    `json:"version"`
	OS      string    `json:"os"`
	Arch    string    `json:"arch"`
	SentAt  time.Time `json:"sentAt"`
	Usage   Usage     `json:"usage"`
}

// Client tallies activity in memory; only Flush and UploadCrash touch the
// network. A nil or disabled client ignores every call.
type Client struct {
	cfg  Config
	log  *slog.Logger
	http *http.Client

	mu    sync.Mutex
	usage Usage
}

func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{cfg: cfg, log: applog.WithComponent("telemetry"), http: &http.Client{Timeout: cfg.Timeout}}
}

// Enabled reports whether the tally is collected and sent.
func (c *Client) Enabled() bool { return c != nil && c.cfg.OptIn && c.cfg.EventsURL != "" }

// EntityCreated counts one committed entity of kind k.
func (c *Client) EntityCreated(k entity.Kind) {
	c.tally(func(u *Usage) { u.Created = bump(u.Created, k) })
}

// EntityRemoved counts one entity taken out of the drawing, usually by undo.
func (c *Client) EntityRemoved(k entity.Kind) {
	c.tally(func(u *Usage) { u.Removed = bump(u.Removed, k) })
}

// EntityHidden counts one entity consumed by another.
func (c *Client) EntityHidden() { c.tally(func(u *Usage) { u.Hidden++ }) }

// ScriptReplayed counts one replayed drawing script of steps steps.
func (c *Client) ScriptReplayed(steps int) {
	c.tally(func(u *Usage) {
		u.Scripts++
		u.Steps += steps
	})
}

// Usage returns a copy of the pending tally.
func (c *Client) Usage() Usage {
	if c == nil {
		return Usage{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.usage.clone()
}

func (c *Client) tally(f func(*Usage)) {
	if !c.Enabled() {
		return
	}
	c.mu.Lock()
	f(&c.usage)
	c.mu.Unlock()
}

func bump(m map[entity.Kind]int, k entity.Kind) map[entity.Kind]int {
	if m == nil {
		m = make(map[entity.Kind]int)
	}
	m[k]++
	return m
}

// Flush posts the pending tally as one batch. The tally is cleared only
// when the endpoint accepts it; a failed flush keeps it for the next try.
func (c *Client) Flush(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}
	c.mu.Lock()
	pending := c.usage.clone()
	c.usage = Usage{}
	c.mu.Unlock()
	if pending.empty() {
		return nil
	}
	batch := Batch{
		App:     "sketchcad",
		Version: version.String(),
		OS:      runtime.GOOS,
		Arch:    runtime.GOARCH,
		SentAt:  time.Now().UTC(),
		Usage:   pending,
	}
	body, err := json.Marshal(batch)
	if err == nil {
		err = c.post(ctx, c.cfg.EventsURL, "application/json", body)
	}
	if err != nil {
		c.restore(pending)
		c.log.Debug("usage flush failed", slog.Any("err", err))
		return err
	}
	c.log.Debug("usage flushed", slog.Int("created", total(pending.Created)), slog.Int("scripts", pending.Scripts))
	return nil
}

// restore merges an unsent tally back into the pending one.
func (c *Client) restore(u Usage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.usage.Created = addCounts(c.usage.Created, u.Created)
	c.usage.Removed = addCounts(c.usage.Removed, u.Removed)
	c.usage.Hidden += u.Hidden
	c.usage.Scripts += u.Scripts
	c.usage.Steps += u.Steps
}

func addCounts(dst, src map[entity.Kind]int) map[entity.Kind]int {
	for k, v := range src {
		if dst == nil {
			dst = make(map[entity.Kind]int, len(src))
		}
		dst[k] += v
	}
	return dst
}

func total(m map[entity.Kind]int) int {
	n := 0
	for _, v := range m {
		n += v
	}
	return n
}

// UploadCrash posts a crash report when the user opted in and a crash URL
// is configured. It blocks for at most the client timeout.
func (c *Client) UploadCrash(report []byte) {
	if c == nil || !c.cfg.OptIn || c.cfg.CrashURL == "" {
		return
	}
	if err := c.post(context.Background(), c.cfg.CrashURL, "text/plain; charset=utf-8", report); err != nil {
		c.log.Debug("crash upload failed", slog.Any("err", err))
	}
}

func (c *Client) post(ctx context.Context, url, contentType string, body []byte) error {
	if ctx == nil {
		ctx = context.Background()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("telemetry endpoint returned %s", resp.Status)
	}
	return nil
}

var (
	defaultMu     sync.Mutex
	defaultClient *Client
)

// NewDefault installs the package-level client used by the CLI and UI.
func NewDefault(cfg Config) {
	defaultMu.Lock()
	defaultClient = New(cfg)
	defaultMu.Unlock()
}

// Default returns the package-level client, creating it from the
// environment on first use.
func Default() *Client {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultClient == nil {
		defaultClient = New(FromEnv())
	}
	return defaultClient
}

// Enabled reports whether the default client collects usage.
func Enabled() bool { return Default().Enabled() }

// ScriptReplayed counts a replayed script on the default client.
func ScriptReplayed(steps int) { Default().ScriptReplayed(steps) }

// Flush posts the default client's tally.
func Flush(ctx context.Context) error { return Default().Flush(ctx) }

// UploadCrash posts a crash report with the default client.
func UploadCrash(report []byte) { Default().UploadCrash(report) }
