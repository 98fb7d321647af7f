package gdal

import (
	"fmt"

	"github.com/airbusgeo/godal"

	"github.com/kbukum/orthotile/geo"
)

// Factory builds OGR coordinate transformations to WGS84.
type Factory struct{}

// NewFactory registers the GDAL drivers and returns a Factory.
func NewFactory() *Factory {
	Register()
	return &Factory{}
}

// NewTransformer returns a transformer from EPSG:epsg to WGS84. Spatial
// references built by godal use the traditional GIS axis order, so output
// is longitude first.
func (f *Factory) NewTransformer(epsg int) (geo.Transformer, error) {
	src, err := godal.NewSpatialRefFromEPSG(epsg)
	if err != nil {
		return nil, fmt.Errorf("EPSG:%d: %w", epsg, err)
	}
	dst, err := godal.NewSpatialRefFromEPSG(geo.EPSGWGS84)
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("EPSG:%d: %w", geo.EPSGWGS84, err)
	}
	trn, err := godal.NewTransform(src, dst)
	if err != nil {
		src.Close()
		dst.Close()
		return nil, fmt.Errorf("transform EPSG:%d to EPSG:%d: %w", epsg, geo.EPSGWGS84, err)
	}
	return &transformer{src: src, dst: dst, trn: trn, x: make([]float64, 1), y: make([]float64, 1), ok: make([]bool, 1)}, nil
}

type transformer struct {
	src, dst *godal.SpatialRef
	trn      *godal.Transform
	x, y     []float64
	ok       []bool
}

func (t *transformer) ToWGS84(p geo.Point) (geo.LonLat, error) {
	t.x[0], t.y[0] = p.X, p.Y
	if err := t.trn.TransformEx(t.x, t.y, nil, t.ok); err != nil {
		return geo.LonLat{}, fmt.Errorf("reproject (%f, %f): %w", p.X, p.Y, err)
	}
	if !t.ok[0] {
		return geo.LonLat{}, fmt.Errorf("reproject (%f, %f): point outside transform domain", p.X, p.Y)
	}
	return geo.LonLat{Lon: t.x[0], Lat: t.y[0]}, nil
}

func (t *transformer) Close() error {
	if t.trn == nil {
		return nil
	}
	t.trn.Close()
	t.src.Close()
	t.dst.Close()
	t.trn = nil
	return nil
}
