package bootstrap

import (
	"github.com/kbukum/orthotile/config"
)

// Config is the constraint on run configurations. Any struct embedding
// config.ServiceConfig and implementing ApplyDefaults and Validate
// satisfies it.
//
//	type RunConfig struct {
//	    config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
//	    Tiling TilingConfig  `yaml:"tiling" mapstructure:"tiling"`
//	}
type Config interface {
	GetServiceConfig() *config.ServiceConfig
	ApplyDefaults()
	Validate() error
}
