package tiling

import "github.com/kbukum/orthotile/raster"

// Frame is the channel-last RGB pixel array of one tile.
type Frame struct {
	Side int
	Pix  []uint8
}

// NewFrame allocates a side x side frame.
func NewFrame(side int) Frame {
	return Frame{Side: side, Pix: make([]uint8, side*side*raster.Bands)}
}

// At returns the pixel at (x, y).
func (f Frame) At(x, y int) (r, g, b uint8) {
	i := (y*f.Side + x) * raster.Bands
	return f.Pix[i], f.Pix[i+1], f.Pix[i+2]
}

// Rejection outcomes.
const (
	Accepted    = ""
	RejectBlack = "black"
	RejectWhite = "white"
)

// Coverage returns the percentage of pixels whose channel mean is 0 and the
// percentage whose channel mean is 255.
func (f Frame) Coverage() (black, white float64) {
	n := f.Side * f.Side
	if n == 0 {
		return 0, 0
	}
	var nb, nw int
	for i := 0; i+2 < len(f.Pix); i += raster.Bands {
		switch sum := int(f.Pix[i]) + int(f.Pix[i+1]) + int(f.Pix[i+2]); sum {
		case 0:
			nb++
		case 3 * 255:
			nw++
		}
	}
	return float64(nb) * 100 / float64(n), float64(nw) * 100 / float64(n)
}

// Inspect classifies f against the thresholds. Black is checked first. A
// percentage equal to its threshold passes.
func Inspect(f Frame, blackThreshold, whiteThreshold float64) string {
	black, white := f.Coverage()
	if black > blackThreshold {
		return RejectBlack
	}
	if white > whiteThreshold {
		return RejectWhite
	}
	return Accepted
}
