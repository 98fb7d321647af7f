package heatmap

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Method names a gap-filling strategy.
type Method string

const (
	// Linear averages the nearest known cells along the row and the column.
	Linear Method = "linear"
	// Nearest copies the closest known cell.
	Nearest Method = "nearest"
	// None leaves gaps as NaN.
	None Method = "none"
)

// ParseMethod accepts the method names; empty means Linear.
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case "", Linear:
		return Linear, nil
	case Nearest, None:
		return Method(s), nil
	}
	return "", fmt.Errorf("unknown interpolation method %q", s)
}

// Fill returns a copy of src with NaN cells filled by m. Fills only read
// cells known in src.
func Fill(src *mat.Dense, m Method) *mat.Dense {
	dst := mat.DenseCopyOf(src)
	switch m {
	case Linear:
		fillLinear(src, dst)
	case Nearest:
		fillNearest(src, dst)
	}
	return dst
}

func fillLinear(src, dst *mat.Dense) {
	rows, cols := src.Dims()
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if !math.IsNaN(src.At(r, c)) {
				continue
			}
			var sum float64
			var n int
			for _, d := range [4][2]int{{0, -1}, {0, 1}, {-1, 0}, {1, 0}} {
				if v, ok := walk(src, r, c, d[0], d[1]); ok {
					sum += v
					n++
				}
			}
			if n > 0 {
				dst.Set(r, c, sum/float64(n))
			}
		}
	}
}

// walk returns the first known value from (r, c) in direction (dr, dc).
func walk(src *mat.Dense, r, c, dr, dc int) (float64, bool) {
	rows, cols := src.Dims()
	for r, c = r+dr, c+dc; r >= 0 && r < rows && c >= 0 && c < cols; r, c = r+dr, c+dc {
		if v := src.At(r, c); !math.IsNaN(v) {
			return v, true
		}
	}
	return 0, false
}

func fillNearest(src, dst *mat.Dense) {
	rows, cols := src.Dims()
	type cell struct{ r, c int }
	var known []cell
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if !math.IsNaN(src.At(r, c)) {
				known = append(known, cell{r, c})
			}
		}
	}
	if len(known) == 0 {
		return
	}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if !math.IsNaN(src.At(r, c)) {
				continue
			}
			best, bestD := known[0], math.MaxInt
			for _, k := range known {
				dr, dc := k.r-r, k.c-c
				if d := dr*dr + dc*dc; d < bestD {
					best, bestD = k, d
				}
			}
			dst.Set(r, c, src.At(best.r, best.c))
		}
	}
}
