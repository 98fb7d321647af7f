package heatmap

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/kbukum/orthotile/geo"
)

// Grid is the reconstructed raster of one class. Row 0 is the northern edge.
type Grid struct {
	Class     string
	Values    *mat.Dense
	Transform geo.Affine
	EPSG      int
}

// Writer persists a grid to path. Ext is the file extension without a dot.
type Writer interface {
	Ext() string
	Write(path string, g *Grid) error
}

// Known counts the cells holding a value.
func (g *Grid) Known() int {
	rows, cols := g.Values.Dims()
	n := 0
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if !math.IsNaN(g.Values.At(r, c)) {
				n++
			}
		}
	}
	return n
}

// Range returns the smallest and largest known value. ok is false when no
// cell is known.
func (g *Grid) Range() (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	rows, cols := g.Values.Dims()
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			v := g.Values.At(r, c)
			if math.IsNaN(v) {
				continue
			}
			lo, hi, ok = math.Min(lo, v), math.Max(hi, v), true
		}
	}
	return lo, hi, ok
}

// ParseTileID recovers the native centroid from an identifier of the form
// <session>_<x>_<y>.png.
func ParseTileID(id string) (geo.Point, error) {
	base := strings.TrimSuffix(id, ".png")
	i := strings.LastIndexByte(base, '_')
	if i <= 0 {
		return geo.Point{}, fmt.Errorf("tile id %q: missing coordinates", id)
	}
	j := strings.LastIndexByte(base[:i], '_')
	if j < 0 {
		return geo.Point{}, fmt.Errorf("tile id %q: missing coordinates", id)
	}
	x, err := strconv.ParseInt(base[j+1:i], 10, 64)
	if err != nil {
		return geo.Point{}, fmt.Errorf("tile id %q: %w", id, err)
	}
	y, err := strconv.ParseInt(base[i+1:], 10, 64)
	if err != nil {
		return geo.Point{}, fmt.Errorf("tile id %q: %w", id, err)
	}
	return geo.Point{X: float64(x), Y: float64(y)}, nil
}

// layout maps native centroids to cells.
type layout struct {
	minX, maxY   float64
	cellX, cellY float64
	rows, cols   int
}

func newLayout(points []geo.Point, cellX, cellY float64) layout {
	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i], ys[i] = p.X, p.Y
	}
	if cellX <= 0 {
		cellX = minStep(xs)
	}
	if cellY <= 0 {
		cellY = minStep(ys)
	}
	l := layout{
		minX:  slices.Min(xs),
		maxY:  slices.Max(ys),
		cellX: cellX,
		cellY: cellY,
	}
	l.cols = int(math.Round((slices.Max(xs)-l.minX)/cellX)) + 1
	l.rows = int(math.Round((l.maxY-slices.Min(ys))/cellY)) + 1
	return l
}

func (l layout) cell(p geo.Point) (row, col int) {
	col = int(math.Round((p.X - l.minX) / l.cellX))
	row = int(math.Round((l.maxY - p.Y) / l.cellY))
	return row, col
}

// transform places cell centres on the recovered centroids.
func (l layout) transform() geo.Affine {
	return geo.Affine{l.minX - l.cellX/2, l.cellX, 0, l.maxY + l.cellY/2, 0, -l.cellY}
}

// minStep is the smallest positive gap between distinct values, or 1 when
// all values are equal.
func minStep(vs []float64) float64 {
	sorted := slices.Clone(vs)
	slices.Sort(sorted)
	step := math.Inf(1)
	for i := 1; i < len(sorted); i++ {
		if d := sorted[i] - sorted[i-1]; d > 0 && d < step {
			step = d
		}
	}
	if math.IsInf(step, 1) {
		return 1
	}
	return step
}

func nanDense(rows, cols int) *mat.Dense {
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = math.NaN()
	}
	return mat.NewDense(rows, cols, data)
}
