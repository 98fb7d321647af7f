// Package raster defines the read-only view of a georeferenced mosaic that
// the tiling engine consumes. Concrete drivers live in subpackages.
package raster

import "github.com/kbukum/orthotile/geo"

// Bands is the number of colour channels read from a mosaic.
const Bands = 3

// Mosaic is an open, read-only georeferenced raster. A Mosaic is owned by
// one session and is not safe for concurrent use.
type Mosaic interface {
	// Width and Height are the raster dimensions in pixels.
	Width() int
	Height() int
	// GeoTransform maps pixel offsets to native coordinates.
	GeoTransform() geo.Affine
	// MatchesEPSG reports whether the mosaic reference system is the EPSG
	// code given.
	MatchesEPSG(code int) (bool, error)
	// ReadRGB reads the first three bands of the square window at
	// (col, row) into dst, channel-last. len(dst) must be side*side*Bands.
	ReadRGB(col, row, side int, dst []uint8) error
	Close() error
}

// Opener opens mosaics by path.
type Opener interface {
	Open(path string) (Mosaic, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(path string) (Mosaic, error)

// Open calls f.
func (f OpenerFunc) Open(path string) (Mosaic, error) { return f(path) }
