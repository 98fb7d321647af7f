// Package tiling turns a georeferenced mosaic into an ordered stream of
// batched, geocoded tiles.
//
// The window grid is derived once per session from the mosaic size, its
// ground sample distance and the configured physical tile size. Windows are
// scanned row-major from the top-left corner; the last partial row and
// column are dropped. A window whose pixels are mostly pure black or pure
// white is rejected before it is geocoded. Accepted tiles are grouped into
// batches of a fixed size, the last batch holding the remainder.
//
// For a fixed mosaic and parameters the emitted sequence is identical on
// every run.
package tiling
