// Package logger provides structured logging for orthotile using zerolog.
//
// Every package logs through a component-scoped logger obtained with Get,
// and attaches structured fields built by Fields:
//
//	log := logger.Get("tiling")
//	log.Info("session opened", logger.Fields(logger.FieldSession, name, "side", side))
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "console"
package logger
