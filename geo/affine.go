package geo

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Point is a position in the native reference system of a mosaic.
type Point = r2.Vec

// Bounds is an axis-aligned box in native coordinates. Min holds the
// smallest X and Y, Max the largest.
type Bounds = r2.Box

// Affine is a geotransform in GDAL order:
//
//	X = a[0] + col*a[1] + row*a[2]
//	Y = a[3] + col*a[4] + row*a[5]
type Affine [6]float64

// NorthUp returns the geotransform of a north-up raster whose top-left
// corner is at (originX, originY) with square pixels of size res.
func NorthUp(originX, originY, res float64) Affine {
	return Affine{originX, res, 0, originY, 0, -res}
}

// Apply maps a pixel offset to native coordinates.
func (a Affine) Apply(col, row float64) Point {
	return Point{
		X: a[0] + col*a[1] + row*a[2],
		Y: a[3] + col*a[4] + row*a[5],
	}
}

// Window returns the geotransform of the sub-raster whose top-left pixel is
// (col, row).
func (a Affine) Window(col, row int) Affine {
	o := a.Apply(float64(col), float64(row))
	return Affine{o.X, a[1], a[2], o.Y, a[4], a[5]}
}

// Invert returns the transform mapping native coordinates back to pixel
// offsets.
func (a Affine) Invert() (Affine, error) {
	det := a[1]*a[5] - a[2]*a[4]
	if det == 0 || math.IsNaN(det) {
		return Affine{}, fmt.Errorf("geotransform %v is not invertible", a)
	}
	inv := 1 / det
	return Affine{
		(a[2]*a[3] - a[0]*a[5]) * inv,
		a[5] * inv,
		-a[2] * inv,
		(a[0]*a[4] - a[1]*a[3]) * inv,
		-a[4] * inv,
		a[1] * inv,
	}, nil
}

// WindowBounds returns the box enclosing the four corners of the window
// (col, row, width, height).
func (a Affine) WindowBounds(col, row, width, height int) Bounds {
	c0, r0 := float64(col), float64(row)
	c1, r1 := float64(col+width), float64(row+height)
	corners := [4]Point{a.Apply(c0, r0), a.Apply(c1, r0), a.Apply(c0, r1), a.Apply(c1, r1)}

	b := Bounds{Min: corners[0], Max: corners[0]}
	for _, p := range corners[1:] {
		b.Min.X = math.Min(b.Min.X, p.X)
		b.Min.Y = math.Min(b.Min.Y, p.Y)
		b.Max.X = math.Max(b.Max.X, p.X)
		b.Max.Y = math.Max(b.Max.Y, p.Y)
	}
	return b
}

// Centroid returns the centre of b.
func Centroid(b Bounds) Point {
	return r2.Scale(0.5, r2.Add(b.Min, b.Max))
}
