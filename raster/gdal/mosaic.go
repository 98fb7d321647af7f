package gdal

import (
	"fmt"
	"sync"

	"github.com/airbusgeo/godal"

	"github.com/kbukum/orthotile/geo"
	"github.com/kbukum/orthotile/raster"
)

var registerOnce sync.Once

// Register loads every GDAL driver. It is safe to call more than once.
func Register() {
	registerOnce.Do(godal.RegisterAll)
}

// Opener opens mosaics read-only with GDAL.
type Opener struct{}

// NewOpener registers the GDAL drivers and returns an Opener.
func NewOpener() *Opener {
	Register()
	return &Opener{}
}

// Open opens path and reads its geotransform. The mosaic must carry at least
// three bands.
func (o *Opener) Open(path string) (raster.Mosaic, error) {
	ds, err := godal.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	st := ds.Structure()
	if st.NBands < raster.Bands {
		_ = ds.Close()
		return nil, fmt.Errorf("%s has %d bands, need %d", path, st.NBands, raster.Bands)
	}
	gt, err := ds.GeoTransform()
	if err != nil {
		_ = ds.Close()
		return nil, fmt.Errorf("geotransform of %s: %w", path, err)
	}
	return &mosaic{ds: ds, width: st.SizeX, height: st.SizeY, transform: geo.Affine(gt)}, nil
}

type mosaic struct {
	ds            *godal.Dataset
	width, height int
	transform     geo.Affine
}

func (m *mosaic) Width() int               { return m.width }
func (m *mosaic) Height() int              { return m.height }
func (m *mosaic) GeoTransform() geo.Affine { return m.transform }

func (m *mosaic) MatchesEPSG(code int) (bool, error) {
	if m.ds.Projection() == "" {
		return false, nil
	}
	sr := m.ds.SpatialRef()
	want, err := godal.NewSpatialRefFromEPSG(code)
	if err != nil {
		return false, fmt.Errorf("EPSG:%d: %w", code, err)
	}
	defer want.Close()
	return sr.IsSame(want), nil
}

func (m *mosaic) ReadRGB(col, row, side int, dst []uint8) error {
	if len(dst) != side*side*raster.Bands {
		return fmt.Errorf("buffer holds %d bytes, need %d", len(dst), side*side*raster.Bands)
	}
	// Dataset reads are pixel interleaved, which is the channel-last layout.
	return m.ds.Read(col, row, dst, side, side, godal.Bands(0, 1, 2))
}

func (m *mosaic) Close() error {
	if m.ds == nil {
		return nil
	}
	err := m.ds.Close()
	m.ds = nil
	return err
}
