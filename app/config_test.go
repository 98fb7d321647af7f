package app

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kbukum/orthotile/errors"
	"github.com/kbukum/orthotile/logger"
	"github.com/kbukum/orthotile/session"
	"github.com/kbukum/orthotile/tiling"
)

func TestConfig_ApplyDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.ApplyDefaults()

	want := tiling.Params{EPSG: 32740, TileSize: 1.5, BatchSize: 1}
	if got := cfg.Params(); got != want {
		t.Errorf("Params() = %+v, want %+v", got, want)
	}
	if cfg.Input.Mode != session.ModeFolder || cfg.Model.Activation != "sigmoid" ||
		cfg.Output.Interpolation != "linear" || cfg.Output.RasterFormat != "png" {
		t.Errorf("defaults = %+v %+v %+v", cfg.Input, cfg.Model, cfg.Output)
	}
	if cfg.Classify() {
		t.Error("Classify() without a model path")
	}
}

func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg := &Config{}
	cfg.ApplyDefaults()
	cfg.Input.PathFolder = t.TempDir()
	return cfg
}

func TestConfig_Validate(t *testing.T) {
	dir := t.TempDir()
	model := filepath.Join(dir, "model.tflite")
	if err := os.WriteFile(model, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{name: "valid"},
		{name: "negative shift", modify: func(c *Config) { c.Tiling.HShift = -0.1 }, field: "tiling.h_shift"},
		{name: "full overlap", modify: func(c *Config) { c.Tiling.VShift = 1 }, field: "tiling.v_shift"},
		{name: "threshold over 100", modify: func(c *Config) { c.Tiling.BlackThreshold = 101 }, field: "tiling.black_threshold"},
		{name: "zero batch", modify: func(c *Config) { c.Tiling.BatchSize = 0 }, field: "tiling.batch_size"},
		{name: "zero tile size", modify: func(c *Config) { c.Tiling.TileSize = 0 }, field: "tiling.tile_size"},
		{name: "unknown mode", modify: func(c *Config) { c.Input.Mode = "glob" }, field: "input.mode"},
		{name: "missing folder", modify: func(c *Config) { c.Input.PathFolder = filepath.Join(dir, "none") }, field: "input.path_folder"},
		{name: "session mode without path", modify: func(c *Config) { c.Input.Mode = session.ModeSession }, field: "input.path_session"},
		{name: "csv mode on a directory", modify: func(c *Config) {
			c.Input.Mode, c.Input.PathCSV = session.ModeCSV, dir
		}, field: "input.path_csv"},
		{name: "model without labels", modify: func(c *Config) { c.Model.Path = model }, field: "model.labels"},
		{name: "unknown interpolation", modify: func(c *Config) { c.Output.Interpolation = "cubic" }, field: "output.interpolation"},
		{name: "unknown activation", modify: func(c *Config) { c.Model.Activation = "softmax" }, field: "model.activation"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			if tt.modify != nil {
				tt.modify(cfg)
			}
			err := cfg.Validate()
			if tt.field == "" {
				if err != nil {
					t.Fatalf("Validate() = %v", err)
				}
				return
			}
			if !errors.HasCode(err, errors.ErrCodeInvalidInput) {
				t.Fatalf("Validate() = %v, want INVALID_INPUT", err)
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("Validate() = %v, want mention of %s", err, tt.field)
			}
		})
	}
}

func TestConfig_Selection(t *testing.T) {
	cfg := &Config{Input: InputConfig{Mode: session.ModeCSV, PathCSV: "m.csv", IndexStart: 2, IndexPosition: 3}}
	want := session.Selection{Mode: session.ModeCSV, CSVPath: "m.csv", IndexStart: 2, IndexPosition: 3}
	if got := cfg.Selection(); got != want {
		t.Errorf("Selection() = %+v, want %+v", got, want)
	}
}

func TestProgress(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf, true)
	p.Start("s")
	p.Add(3)
	p.Finish()
	if buf.Len() != 0 {
		t.Errorf("progress wrote %q to a non-terminal", buf.String())
	}
	if p.Tiles() != 3 {
		t.Errorf("Tiles() = %d", p.Tiles())
	}

	p = &Progress{w: &buf, enabled: true}
	p.Start("s")
	p.Add(2)
	p.Finish()
	if got := buf.String(); !strings.HasSuffix(got, "\rs: 2 tiles\n") {
		t.Errorf("progress output = %q", got)
	}
}

func TestStateString(t *testing.T) {
	if Running.String() != "running" || State(42).String() != "unknown" {
		t.Errorf("State strings: %s %s", Running, State(42))
	}
}

func TestNewStageFactory_Invalid(t *testing.T) {
	cfg := testConfig()
	cfg.Model.Activation = "softmax"
	if _, err := NewStageFactory(cfg, Deps{}); err == nil {
		t.Error("expected an activation error")
	}
	cfg = testConfig()
	cfg.Output.Interpolation = "cubic"
	if _, err := NewStageFactory(cfg, Deps{}); err == nil {
		t.Error("expected an interpolation error")
	}
}

func TestSummary_InterruptIsNotFailure(t *testing.T) {
	sum := &Summary{Sessions: []SessionResult{
		{Name: "a", State: Success},
		{Name: "b", State: Failed},
		{Name: "c", State: Done},
	}, Interrupted: true}
	if sum.Total() != 3 || sum.Succeeded() != 1 || sum.Failed() != 1 {
		t.Errorf("total=%d ok=%d failed=%d, want 3 1 1", sum.Total(), sum.Succeeded(), sum.Failed())
	}
	if got := sum.FailedSessions(); len(got) != 1 || got[0] != "b" {
		t.Errorf("FailedSessions() = %v, want [b]", got)
	}
	sum.Log(logger.Nop())
}
