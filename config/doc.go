// Package config loads orthotile run configuration.
//
// LoadConfig layers, from lowest to highest precedence: registered defaults,
// a YAML file (explicit or found on the standard search paths), environment
// variables (also read from a .env file), and bound command-line flags.
//
//	var cfg app.Config
//	err := config.LoadConfig("orthotile", &cfg,
//	    config.WithConfigFile(path),
//	    config.WithFlag("tiling.batch_size", cmd.Flags().Lookup("batch-size")))
//
// Environment variables map onto nested keys by their underscores, so
// TILING_BATCH_SIZE sets tiling.batch_size.
package config
