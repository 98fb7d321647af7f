package gdal

import (
	"fmt"
	"math"

	"github.com/airbusgeo/godal"

	"github.com/kbukum/orthotile/heatmap"
)

// GridWriter writes reconstructed class grids as single-band Float32
// GeoTIFFs in the native reference system of the session.
type GridWriter struct{}

// NewGridWriter registers the GDAL drivers and returns a GridWriter.
func NewGridWriter() *GridWriter {
	Register()
	return &GridWriter{}
}

func (w *GridWriter) Ext() string { return "tif" }

func (w *GridWriter) Write(path string, g *heatmap.Grid) (err error) {
	rows, cols := g.Values.Dims()
	ds, err := godal.Create(godal.GTiff, path, 1, godal.Float32, cols, rows,
		godal.CreationOption("COMPRESS=DEFLATE"))
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := ds.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()

	if err := ds.SetGeoTransform(g.Transform); err != nil {
		return fmt.Errorf("set geotransform: %w", err)
	}
	if g.EPSG != 0 {
		sr, err := godal.NewSpatialRefFromEPSG(g.EPSG)
		if err != nil {
			return fmt.Errorf("EPSG:%d: %w", g.EPSG, err)
		}
		defer sr.Close()
		if err := ds.SetSpatialRef(sr); err != nil {
			return fmt.Errorf("set spatial ref: %w", err)
		}
	}

	buf := make([]float32, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			buf[r*cols+c] = float32(g.Values.At(r, c))
		}
	}
	band := ds.Bands()[0]
	if err := band.SetNoData(math.NaN()); err != nil {
		return fmt.Errorf("set nodata: %w", err)
	}
	if err := band.Write(0, 0, buf, cols, rows); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
