// Package gdal implements the raster and geo contracts on top of GDAL
// through github.com/airbusgeo/godal: GeoTIFF mosaics, EPSG reprojection to
// WGS84 and single-band GeoTIFF output for reconstructed prediction grids.
//
// All types here wrap cgo handles and must be used from one goroutine.
package gdal
