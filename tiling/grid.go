package tiling

import (
	"fmt"
	"math"

	"github.com/kbukum/orthotile/errors"
)

// Params are the tiling parameters of a run. They are validated once by the
// run configuration and never change between sessions.
type Params struct {
	// EPSG is the reference system every mosaic must be in.
	EPSG int
	// TileSize is the tile side on the ground, in metres.
	TileSize float64
	// HShift and VShift are the overlap fractions in [0, 1).
	HShift float64
	VShift float64
	// BlackThreshold and WhiteThreshold are rejection percentages in [0, 100].
	BlackThreshold float64
	WhiteThreshold float64
	// BatchSize is the number of tiles per batch.
	BatchSize int
}

// Window is a square pixel region of the mosaic.
type Window struct {
	Row  int
	Col  int
	Side int
}

// Grid is the window lattice of one mosaic.
type Grid struct {
	Width   int
	Height  int
	Side    int
	XStride int
	YStride int
}

// NewGrid derives the window lattice for a width x height mosaic whose
// ground sample distance is gsd centimetres per pixel.
func NewGrid(width, height int, gsd float64, p Params) (Grid, error) {
	if gsd <= 0 || math.IsNaN(gsd) || math.IsInf(gsd, 0) {
		return Grid{}, errors.Configuration(fmt.Sprintf("invalid GSD %v", gsd))
	}
	side := int(math.Floor(p.TileSize / (gsd / 100)))
	if side < 1 {
		return Grid{}, errors.Configuration(
			fmt.Sprintf("tile size %vm is smaller than one pixel at GSD %vcm", p.TileSize, gsd))
	}
	g := Grid{
		Width:   width,
		Height:  height,
		Side:    side,
		XStride: int(math.Floor(float64(side) * (1 - p.HShift))),
		YStride: int(math.Floor(float64(side) * (1 - p.VShift))),
	}
	if g.XStride < 1 || g.YStride < 1 {
		return Grid{}, errors.Configuration(
			fmt.Sprintf("shift leaves a zero stride (side %d, h_shift %v, v_shift %v)", side, p.HShift, p.VShift))
	}
	return g, nil
}

// Rows is the number of window rows. It is zero when the mosaic is shorter
// than one tile.
func (g Grid) Rows() int { return steps(g.Height, g.Side, g.YStride) }

// Cols is the number of window columns.
func (g Grid) Cols() int { return steps(g.Width, g.Side, g.XStride) }

// Len is the number of windows scanned.
func (g Grid) Len() int { return g.Rows() * g.Cols() }

// Windows returns a cursor over the grid in row-major order.
func (g Grid) Windows() *Cursor {
	return &Cursor{grid: g}
}

func steps(dim, side, stride int) int {
	bound := dim - side + 1
	if bound <= 0 {
		return 0
	}
	return (bound + stride - 1) / stride
}

// Cursor walks a Grid. It holds the next row and column so a scan resumes
// without recomputing what came before.
type Cursor struct {
	grid Grid
	row  int
	col  int
	done bool
}

// Next returns the next window, or false when the scan is complete.
func (c *Cursor) Next() (Window, bool) {
	g := c.grid
	if c.done || g.Rows() == 0 || g.Cols() == 0 {
		c.done = true
		return Window{}, false
	}
	w := Window{Row: c.row, Col: c.col, Side: g.Side}

	c.col += g.XStride
	if c.col > g.Width-g.Side {
		c.col = 0
		c.row += g.YStride
		if c.row > g.Height-g.Side {
			c.done = true
		}
	}
	return w, true
}
