package heatmap

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// PNGWriter renders grids as heatmap images.
type PNGWriter struct {
	Width, Height vg.Length
	Colors        int
}

// NewPNGWriter returns a writer producing 8x8 inch images.
func NewPNGWriter() *PNGWriter {
	return &PNGWriter{Width: 8 * vg.Inch, Height: 8 * vg.Inch, Colors: 255}
}

func (w *PNGWriter) Ext() string { return "png" }

func (w *PNGWriter) Write(path string, g *Grid) error {
	lo, hi, ok := g.Range()
	if !ok {
		return fmt.Errorf("grid %s has no values", g.Class)
	}
	if hi == lo {
		hi = lo + 1
	}

	cm := moreland.SmoothBlueRed()
	cm.SetMin(lo)
	cm.SetMax(hi)

	hm := plotter.NewHeatMap(gridXYZ{g}, cm.Palette(w.Colors))
	hm.Min, hm.Max = lo, hi

	p := plot.New()
	p.Title.Text = g.Class
	p.X.Label.Text = "Easting"
	p.Y.Label.Text = "Northing"
	p.Add(hm)

	if err := p.Save(w.Width, w.Height, path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

// gridXYZ exposes a Grid to plotter with cell centres in native
// coordinates. Plotter rows grow northwards.
type gridXYZ struct{ g *Grid }

func (x gridXYZ) Dims() (c, r int) {
	rows, cols := x.g.Values.Dims()
	return cols, rows
}

func (x gridXYZ) Z(c, r int) float64 {
	rows, _ := x.g.Values.Dims()
	return x.g.Values.At(rows-1-r, c)
}

func (x gridXYZ) X(c int) float64 {
	return x.g.Transform.Apply(float64(c)+0.5, 0).X
}

func (x gridXYZ) Y(r int) float64 {
	rows, _ := x.g.Values.Dims()
	return x.g.Transform.Apply(0, float64(rows-1-r)+0.5).Y
}
