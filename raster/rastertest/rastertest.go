// Package rastertest provides in-memory mosaics and transformers for tests
// that must not depend on GDAL.
package rastertest

import (
	"fmt"
	"sync"

	"github.com/kbukum/orthotile/geo"
	"github.com/kbukum/orthotile/raster"
)

// RGB is one pixel.
type RGB [3]uint8

// Common colours.
var (
	Black = RGB{0, 0, 0}
	White = RGB{255, 255, 255}
	Grey  = RGB{120, 120, 120}
)

// Mosaic is an in-memory raster.Mosaic. It records reads and closes.
type Mosaic struct {
	W, H      int
	Pix       []uint8
	Transform geo.Affine
	EPSG      int
	// ReadErr, when set, is returned by every ReadRGB call.
	ReadErr error

	mu     sync.Mutex
	reads  int
	closes int
}

// NewMosaic returns a w x h mosaic filled with c, georeferenced north-up at
// the origin with 1 unit pixels.
func NewMosaic(w, h int, epsg int, c RGB) *Mosaic {
	m := &Mosaic{
		W: w, H: h,
		Pix:       make([]uint8, w*h*raster.Bands),
		Transform: geo.NorthUp(0, float64(h), 1),
		EPSG:      epsg,
	}
	m.Fill(0, 0, w, h, c)
	return m
}

// Fill paints the rectangle (col, row, w, h) with c.
func (m *Mosaic) Fill(col, row, w, h int, c RGB) {
	for y := row; y < row+h && y < m.H; y++ {
		for x := col; x < col+w && x < m.W; x++ {
			m.Set(x, y, c)
		}
	}
}

// Set paints one pixel.
func (m *Mosaic) Set(col, row int, c RGB) {
	i := (row*m.W + col) * raster.Bands
	copy(m.Pix[i:i+raster.Bands], c[:])
}

func (m *Mosaic) Width() int               { return m.W }
func (m *Mosaic) Height() int              { return m.H }
func (m *Mosaic) GeoTransform() geo.Affine { return m.Transform }

func (m *Mosaic) MatchesEPSG(code int) (bool, error) { return m.EPSG == code, nil }

func (m *Mosaic) ReadRGB(col, row, side int, dst []uint8) error {
	m.mu.Lock()
	m.reads++
	m.mu.Unlock()
	if m.ReadErr != nil {
		return m.ReadErr
	}
	if col < 0 || row < 0 || col+side > m.W || row+side > m.H {
		return fmt.Errorf("window (%d,%d,%d) outside %dx%d raster", col, row, side, m.W, m.H)
	}
	if len(dst) != side*side*raster.Bands {
		return fmt.Errorf("buffer holds %d bytes, need %d", len(dst), side*side*raster.Bands)
	}
	for y := 0; y < side; y++ {
		src := ((row+y)*m.W + col) * raster.Bands
		copy(dst[y*side*raster.Bands:(y+1)*side*raster.Bands], m.Pix[src:src+side*raster.Bands])
	}
	return nil
}

func (m *Mosaic) Close() error {
	m.mu.Lock()
	m.closes++
	m.mu.Unlock()
	return nil
}

// Reads returns the number of ReadRGB calls.
func (m *Mosaic) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

// Closes returns the number of Close calls.
func (m *Mosaic) Closes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closes
}

// Opener serves mosaics by path. Unknown paths fail.
type Opener struct {
	Mosaics map[string]*Mosaic
}

// NewOpener returns an Opener with no mosaics.
func NewOpener() *Opener {
	return &Opener{Mosaics: make(map[string]*Mosaic)}
}

// Add registers m under path.
func (o *Opener) Add(path string, m *Mosaic) *Opener {
	o.Mosaics[path] = m
	return o
}

func (o *Opener) Open(path string) (raster.Mosaic, error) {
	m, ok := o.Mosaics[path]
	if !ok {
		return nil, fmt.Errorf("no mosaic registered at %s", path)
	}
	return m, nil
}

// Transformer maps native coordinates to LonLat by scaling, so results are
// predictable. It counts constructions and closes through its Factory.
type Transformer struct {
	Scale   float64
	factory *Factory
}

func (t *Transformer) ToWGS84(p geo.Point) (geo.LonLat, error) {
	s := t.Scale
	if s == 0 {
		s = 1
	}
	return geo.LonLat{Lon: p.X * s, Lat: p.Y * s}, nil
}

func (t *Transformer) Close() error {
	if t.factory != nil {
		t.factory.mu.Lock()
		t.factory.closed++
		t.factory.mu.Unlock()
	}
	return nil
}

// Factory builds Transformers and records how many were built and closed.
type Factory struct {
	Scale float64
	Err   error

	mu     sync.Mutex
	built  int
	closed int
}

func (f *Factory) NewTransformer(epsg int) (geo.Transformer, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	f.mu.Lock()
	f.built++
	f.mu.Unlock()
	return &Transformer{Scale: f.Scale, factory: f}, nil
}

// Built returns the number of transformers built.
func (f *Factory) Built() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.built
}

// Closed returns the number of transformers closed.
func (f *Factory) Closed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
