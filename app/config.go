package app

import (
	"github.com/kbukum/orthotile/config"
	"github.com/kbukum/orthotile/heatmap"
	"github.com/kbukum/orthotile/inference"
	"github.com/kbukum/orthotile/observability"
	"github.com/kbukum/orthotile/session"
	"github.com/kbukum/orthotile/tiling"
	"github.com/kbukum/orthotile/validation"
)

// Config is the run configuration. It is validated once when the run starts.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Input         InputConfig          `yaml:"input" mapstructure:"input"`
	Tiling        TilingConfig         `yaml:"tiling" mapstructure:"tiling"`
	Model         ModelConfig          `yaml:"model" mapstructure:"model"`
	Output        OutputConfig         `yaml:"output" mapstructure:"output"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
}

// InputConfig selects the sessions of a run.
type InputConfig struct {
	Mode          string `yaml:"mode" mapstructure:"mode" validate:"oneof=folder session csv"`
	PathFolder    string `yaml:"path_folder" mapstructure:"path_folder"`
	PathSession   string `yaml:"path_session" mapstructure:"path_session"`
	PathCSV       string `yaml:"path_csv" mapstructure:"path_csv"`
	IndexStart    int    `yaml:"index_start" mapstructure:"index_start"`
	IndexPosition int    `yaml:"index_position" mapstructure:"index_position"`
}

// TilingConfig controls the window grid and tile rejection.
type TilingConfig struct {
	CRS            int     `yaml:"crs" mapstructure:"crs" validate:"gt=0"`
	TileSize       float64 `yaml:"tile_size" mapstructure:"tile_size" validate:"gt=0"`
	HShift         float64 `yaml:"h_shift" mapstructure:"h_shift" validate:"gte=0,lt=1"`
	VShift         float64 `yaml:"v_shift" mapstructure:"v_shift" validate:"gte=0,lt=1"`
	BlackThreshold float64 `yaml:"black_threshold" mapstructure:"black_threshold" validate:"gte=0,lte=100"`
	WhiteThreshold float64 `yaml:"white_threshold" mapstructure:"white_threshold" validate:"gte=0,lte=100"`
	BatchSize      int     `yaml:"batch_size" mapstructure:"batch_size" validate:"gte=1"`
}

// ModelConfig selects the classifier. An empty Path runs without
// classification.
type ModelConfig struct {
	Backend    string `yaml:"backend" mapstructure:"backend" validate:"oneof=tflite"`
	Path       string `yaml:"path" mapstructure:"path"`
	Labels     string `yaml:"labels" mapstructure:"labels"`
	Threads    int    `yaml:"threads" mapstructure:"threads" validate:"gte=1"`
	Activation string `yaml:"activation" mapstructure:"activation" validate:"oneof=sigmoid identity"`
}

// OutputConfig controls sinks and post-processing.
type OutputConfig struct {
	NoSave        bool   `yaml:"no_save" mapstructure:"no_save"`
	NoRaster      bool   `yaml:"no_raster" mapstructure:"no_raster"`
	NoProgress    bool   `yaml:"no_progress" mapstructure:"no_progress"`
	Clean         bool   `yaml:"clean" mapstructure:"clean"`
	SQLite        bool   `yaml:"sqlite" mapstructure:"sqlite"`
	RasterFormat  string `yaml:"raster_format" mapstructure:"raster_format" validate:"oneof=png tif"`
	Interpolation string `yaml:"interpolation" mapstructure:"interpolation" validate:"oneof=linear nearest none"`
}

// Defaults are the values a run starts from before file, environment and
// flags apply.
var Defaults = map[string]any{
	"input.mode":             session.ModeFolder,
	"input.index_start":      0,
	"input.index_position":   -1,
	"tiling.crs":             32740,
	"tiling.tile_size":       1.5,
	"tiling.h_shift":         0.0,
	"tiling.v_shift":         0.0,
	"tiling.black_threshold": 5.0,
	"tiling.white_threshold": 5.0,
	"tiling.batch_size":      1,
	"model.backend":          "tflite",
	"model.threads":          1,
	"model.activation":       "sigmoid",
	"output.raster_format":   "png",
	"output.interpolation":   string(heatmap.Linear),
}

// ApplyDefaults fills unset fields. Thresholds and shifts keep zero, which
// is a valid setting.
func (c *Config) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	c.Observability.ApplyDefaults()
	if c.Input.Mode == "" {
		c.Input.Mode = session.ModeFolder
	}
	if c.Tiling.CRS == 0 {
		c.Tiling.CRS = 32740
	}
	if c.Tiling.TileSize == 0 {
		c.Tiling.TileSize = 1.5
	}
	if c.Tiling.BatchSize == 0 {
		c.Tiling.BatchSize = 1
	}
	if c.Model.Backend == "" {
		c.Model.Backend = "tflite"
	}
	if c.Model.Threads == 0 {
		c.Model.Threads = 1
	}
	if c.Model.Activation == "" {
		c.Model.Activation = "sigmoid"
	}
	if c.Output.RasterFormat == "" {
		c.Output.RasterFormat = "png"
	}
	if c.Output.Interpolation == "" {
		c.Output.Interpolation = string(heatmap.Linear)
	}
}

// Validate checks tags, the base service fields and the input paths. Every
// failure is reported in one INVALID_INPUT error.
func (c *Config) Validate() error {
	v := validation.New()
	v.Merge("config", validation.Validate(c))
	v.Merge("service", c.ServiceConfig.Validate())
	v.Merge("observability", c.Observability.Validate())

	switch c.Input.Mode {
	case session.ModeFolder:
		v.Required("input.path_folder", c.Input.PathFolder).DirExists("input.path_folder", c.Input.PathFolder)
	case session.ModeSession:
		v.Required("input.path_session", c.Input.PathSession).DirExists("input.path_session", c.Input.PathSession)
	case session.ModeCSV:
		v.Required("input.path_csv", c.Input.PathCSV).FileExists("input.path_csv", c.Input.PathCSV)
	}
	if c.Model.Path != "" {
		v.FileExists("model.path", c.Model.Path).
			Required("model.labels", c.Model.Labels).
			FileExists("model.labels", c.Model.Labels)
	}
	return v.Validate()
}

// Classify reports whether the run loads a classifier.
func (c *Config) Classify() bool { return c.Model.Path != "" }

// Selection returns the session selection of the run.
func (c *Config) Selection() session.Selection {
	return session.Selection{
		Mode:          c.Input.Mode,
		FolderPath:    c.Input.PathFolder,
		SessionPath:   c.Input.PathSession,
		CSVPath:       c.Input.PathCSV,
		IndexStart:    c.Input.IndexStart,
		IndexPosition: c.Input.IndexPosition,
	}
}

// Params returns the tiling parameters of the run.
func (c *Config) Params() tiling.Params {
	return tiling.Params{
		EPSG:           c.Tiling.CRS,
		TileSize:       c.Tiling.TileSize,
		HShift:         c.Tiling.HShift,
		VShift:         c.Tiling.VShift,
		BlackThreshold: c.Tiling.BlackThreshold,
		WhiteThreshold: c.Tiling.WhiteThreshold,
		BatchSize:      c.Tiling.BatchSize,
	}
}

// ModelSettings returns the backend configuration of the classifier.
func (c *Config) ModelSettings() inference.ModelConfig {
	return inference.ModelConfig{
		Backend:    c.Model.Backend,
		Path:       c.Model.Path,
		LabelsPath: c.Model.Labels,
		Threads:    c.Model.Threads,
	}
}
