package tiling

import "testing"

// frameWith returns a 10x10 grey frame whose first nb pixels are black and
// next nw pixels are white.
func frameWith(nb, nw int) Frame {
	f := NewFrame(10)
	for i := 0; i < 100; i++ {
		v := uint8(120)
		switch {
		case i < nb:
			v = 0
		case i < nb+nw:
			v = 255
		}
		f.Pix[i*3], f.Pix[i*3+1], f.Pix[i*3+2] = v, v, v
	}
	return f
}

func TestInspect(t *testing.T) {
	tests := []struct {
		name   string
		frame  Frame
		black  float64
		white  float64
		expect string
	}{
		{"clean", frameWith(0, 0), 5, 5, Accepted},
		{"black at threshold passes", frameWith(5, 0), 5, 5, Accepted},
		{"black above threshold", frameWith(6, 0), 5, 5, RejectBlack},
		{"white at threshold passes", frameWith(0, 5), 5, 5, Accepted},
		{"white above threshold", frameWith(0, 6), 5, 5, RejectWhite},
		{"black checked first", frameWith(10, 10), 5, 5, RejectBlack},
		{"zero threshold rejects one pixel", frameWith(1, 0), 0, 5, RejectBlack},
		{"full threshold keeps all black", frameWith(100, 0), 100, 5, Accepted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Inspect(tt.frame, tt.black, tt.white); got != tt.expect {
				t.Errorf("Inspect() = %q, want %q", got, tt.expect)
			}
		})
	}
}

func TestCoverage_MeanNotChannel(t *testing.T) {
	f := NewFrame(2)
	// One pixel with a single zero channel is not black; one at 255 on two
	// channels is not white.
	copy(f.Pix, []uint8{0, 10, 10, 255, 255, 0, 0, 0, 0, 255, 255, 255})
	black, white := f.Coverage()
	if black != 25 || white != 25 {
		t.Errorf("Coverage() = %v, %v; want 25, 25", black, white)
	}
	if r, g, b := f.At(1, 1); r != 255 || g != 255 || b != 255 {
		t.Errorf("At(1,1) = %d,%d,%d", r, g, b)
	}
}
