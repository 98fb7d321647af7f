// Package geo holds the planar geometry used to place tiles on the ground:
// GDAL-ordered affine geotransforms, axis-aligned window bounds and the
// reprojection contract that turns native coordinates into WGS84.
//
// Points and boxes are gonum r2 values, so vector arithmetic comes from
// gonum.org/v1/gonum/spatial/r2.
package geo
