// Package validation checks orthotile configuration values.
//
// Struct tag validation covers per-field rules; the programmatic Validator
// collects cross-field and filesystem checks that tags cannot express.
//
//	type TilingConfig struct {
//	    TileSize  float64 `mapstructure:"tile_size" validate:"gt=0"`
//	    BatchSize int     `mapstructure:"batch_size" validate:"gte=1"`
//	}
//	err := validation.Validate(cfg)
//
//	v := validation.New()
//	v.Required("input.path_folder", cfg.Input.PathFolder).DirExists("input.path_folder", cfg.Input.PathFolder)
//	err := v.Validate()
//
// Both forms return an *errors.AppError with code INVALID_INPUT whose
// details list every failing field.
package validation
