// Package config reads the YAML configuration of a grid server.
package config

import (
	"fmt"
	"os"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/CrimsonAS/qgrid/grid"
)

// Config represents a server configuration file.
type Config struct {
	Listen   string     `yaml:"listen"`
	Database string     `yaml:"database,omitempty"`
	Bucket   string     `yaml:"bucket"`
	Grid     GridConfig `yaml:"grid"`
}

// GridConfig holds the settings applied to every grid the server creates.
type GridConfig struct {
	SelectionMode        string  `yaml:"selectionMode"`
	SelectionLimit       int     `yaml:"selectionLimit,omitempty"`
	UserSelectionAllowed *bool   `yaml:"userSelectionAllowed,omitempty"`
	HeightMode           string  `yaml:"heightMode"`
	HeightByRows         float64 `yaml:"heightByRows,omitempty"`
	EditorEnabled        bool    `yaml:"editorEnabled"`
	SaveCaption          string  `yaml:"saveCaption,omitempty"`
	CancelCaption        string  `yaml:"cancelCaption,omitempty"`
	// FrozenColumns names the property of the last frozen column.
	FrozenColumns string `yaml:"frozenColumns,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Listen: "localhost:8080",
		Bucket: "items",
		Grid: GridConfig{
			SelectionMode: "single",
			HeightMode:    "css",
			HeightByRows:  10,
			SaveCaption:   "Save",
			CancelCaption: "Cancel",
		},
	}
}

// Parse parses YAML over the defaults, so that omitted keys keep their
// default values.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Grid.validate(); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Load reads and parses the file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	return Parse(data)
}

// Marshal serializes a Config to YAML bytes.
func Marshal(cfg Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}

func (gc GridConfig) selectionMode() (grid.SelectionMode, error) {
	switch strings.ToLower(gc.SelectionMode) {
	case "", "single":
		return grid.SelectionSingle, nil
	case "multi":
		return grid.SelectionMulti, nil
	case "none":
		return grid.SelectionNone, nil
	}
	return 0, fmt.Errorf("unknown selection mode %q", gc.SelectionMode)
}

func (gc GridConfig) heightMode() (grid.HeightMode, error) {
	switch strings.ToLower(gc.HeightMode) {
	case "", "css":
		return grid.HeightCSS, nil
	case "row":
		return grid.HeightRow, nil
	}
	return "", fmt.Errorf("unknown height mode %q", gc.HeightMode)
}

func (gc GridConfig) validate() error {
	if _, err := gc.selectionMode(); err != nil {
		return err
	}
	if _, err := gc.heightMode(); err != nil {
		return err
	}
	if gc.SelectionLimit < 0 {
		return fmt.Errorf("selection limit cannot be negative, got %d", gc.SelectionLimit)
	}
	if gc.HeightByRows < 0 {
		return fmt.Errorf("height by rows cannot be negative, got %v", gc.HeightByRows)
	}
	return nil
}

// Apply configures g. Columns must already exist for FrozenColumns to be
// applied.
func (gc GridConfig) Apply(g *grid.Grid) error {
	mode, err := gc.selectionMode()
	if err != nil {
		return err
	}
	model, err := g.SetSelectionMode(mode)
	if err != nil {
		return err
	}
	if m, ok := model.(*grid.MultiSelection); ok && gc.SelectionLimit > 0 {
		if err := m.SetSelectionLimit(gc.SelectionLimit); err != nil {
			return err
		}
	}
	if gc.UserSelectionAllowed != nil {
		g.SetUserSelectionAllowed(*gc.UserSelectionAllowed)
	}

	hm, err := gc.heightMode()
	if err != nil {
		return err
	}
	if err := g.SetHeightMode(hm); err != nil {
		return err
	}
	if gc.HeightByRows > 0 {
		if err := g.SetHeightByRows(gc.HeightByRows); err != nil {
			return err
		}
	}

	e := g.Editor()
	if err := e.SetEnabled(gc.EditorEnabled); err != nil {
		return err
	}
	if gc.SaveCaption != "" {
		if err := e.SetSaveCaption(gc.SaveCaption); err != nil {
			return err
		}
	}
	if gc.CancelCaption != "" {
		if err := e.SetCancelCaption(gc.CancelCaption); err != nil {
			return err
		}
	}

	if gc.FrozenColumns != "" {
		if err := g.SetLastFrozenColumn(gc.FrozenColumns); err != nil {
			return fmt.Errorf("frozen columns: %w", err)
		}
	}
	return nil
}
