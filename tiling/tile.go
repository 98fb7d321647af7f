package tiling

import (
	"fmt"

	"github.com/kbukum/orthotile/geo"
)

// Tile is one accepted window with its pixels and location.
type Tile struct {
	Window   Window
	Frame    Frame
	ID       string
	Centroid geo.Point
	Position geo.LonLat
}

// TileID names a tile after its session and the integer part of its native
// centroid. The .png suffix keeps identifiers usable as file names.
func TileID(session string, centroid geo.Point) string {
	return fmt.Sprintf("%s_%d_%d.png", session, int64(centroid.X), int64(centroid.Y))
}
