// Package component defines run-lifetime resources.
//
// A Component is created once per run, started before the first session and
// stopped after the last one. The classification model and the telemetry
// providers are components; per-session resources (mosaics, sinks) are
// pipeline stages instead.
package component
