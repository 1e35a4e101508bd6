/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package script reads YAML drawing scripts and replays them through a tool
// session. A script is a list of single-key steps:
//
//	name: square
//	steps:
//	  - tool: line
//	  - click: [0, 0]
//	  - click: [4, 0]
//	  - extrude: {at: [2, 2], depth: 3}
//
// Documents are validated against an embedded JSON schema before they are
// decoded.
package script

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	gojsonschema "github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var schemaJSON []byte

// DefaultZoom is the screen scale, in px per drawing unit, used for snap
// distances when a script does not set one.
const DefaultZoom = 100.0

// Script is a decoded drawing script.
type Script struct {
	Name       string  `yaml:"name"`
	WorkplaneZ float64 `yaml:"workplane_z"`
	Zoom       float64 `yaml:"zoom"`
	Layer      string  `yaml:"layer"`
	Steps      []Step  `yaml:"steps"`
}

// Step holds exactly one action.
type Step struct {
	Tool         string       `yaml:"tool,omitempty"`
	Click        []float64    `yaml:"click,omitempty"`
	Move         []float64    `yaml:"move,omitempty"`
	Finish       bool         `yaml:"finish,omitempty"`
	Close        bool         `yaml:"close,omitempty"`
	Offset       *int         `yaml:"step,omitempty"`
	SkipBoundary bool         `yaml:"skip_boundary,omitempty"`
	Cancel       bool         `yaml:"cancel,omitempty"`
	Layer        string       `yaml:"layer,omitempty"`
	Extrude      *ExtrudeStep `yaml:"extrude,omitempty"`
}

type ExtrudeStep struct {
	At    []float64 `yaml:"at"`
	Depth float64   `yaml:"depth"`
}

// Action names the kind of a step.
func (s Step) Action() string {
	switch {
	case s.Tool != "":
		return "tool"
	case s.Click != nil:
		return "click"
	case s.Move != nil:
		return "move"
	case s.Finish:
		return "finish"
	case s.Close:
		return "close"
	case s.Offset != nil:
		return "step"
	case s.SkipBoundary:
		return "skip_boundary"
	case s.Cancel:
		return "cancel"
	case s.Layer != "":
		return "layer"
	case s.Extrude != nil:
		return "extrude"
	}
	return ""
}

// Error is one schema violation.
type Error struct {
	Field   string
	Message string
}

func (e Error) String() string { return e.Field + ": " + e.Message }

// ValidationError lists every schema violation of a document.
type ValidationError struct {
	Errors []Error
}

func (v *ValidationError) Error() string {
	parts := make([]string, len(v.Errors))
	for i, e := range v.Errors {
		parts[i] = e.String()
	}
	return "invalid script: " + strings.Join(parts, "; ")
}

// Parse validates and decodes a YAML script.
func Parse(data []byte) (*Script, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}
	if err := Validate(doc); err != nil {
		return nil, err
	}
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode script: %w", err)
	}
	if s.Zoom <= 0 {
		s.Zoom = DefaultZoom
	}
	return &s, nil
}

// Load reads and parses a script file.
func Load(path string) (*Script, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	s, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Validate checks a generic document (as produced by yaml.Unmarshal into
// an any) against the script schema.
func Validate(doc any) error {
	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(schemaJSON), gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("validate script: %w", err)
	}
	if result.Valid() {
		return nil
	}
	verr := &ValidationError{}
	for _, re := range result.Errors() {
		verr.Errors = append(verr.Errors, Error{Field: re.Field(), Message: re.Description()})
	}
	return verr
}
