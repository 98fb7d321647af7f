package gdal

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/airbusgeo/godal"
	"gonum.org/v1/gonum/mat"

	"github.com/kbukum/orthotile/geo"
	"github.com/kbukum/orthotile/heatmap"
)

const utm40S = 32740

// writeRGB creates a w x h three-band GeoTIFF whose pixel (c, r) holds
// (c, r, 7).
func writeRGB(t *testing.T, path string, w, h int, epsg int) {
	t.Helper()
	Register()
	ds, err := godal.Create(godal.GTiff, path, 3, godal.Byte, w, h)
	if err != nil {
		t.Fatal(err)
	}
	if err := ds.SetGeoTransform([6]float64{500000, 0.02, 0, 7650000, 0, -0.02}); err != nil {
		t.Fatal(err)
	}
	sr, err := godal.NewSpatialRefFromEPSG(epsg)
	if err != nil {
		t.Fatal(err)
	}
	defer sr.Close()
	if err := ds.SetSpatialRef(sr); err != nil {
		t.Fatal(err)
	}
	buf := make([]uint8, w*h*3)
	for r := 0; r < h; r++ {
		for c := 0; c < w; c++ {
			i := (r*w + c) * 3
			buf[i], buf[i+1], buf[i+2] = uint8(c), uint8(r), 7
		}
	}
	if err := ds.Write(0, 0, buf, w, h); err != nil {
		t.Fatal(err)
	}
	if err := ds.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestOpener_Open(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ortho.tif")
	writeRGB(t, path, 20, 10, utm40S)

	m, err := NewOpener().Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()

	if m.Width() != 20 || m.Height() != 10 {
		t.Errorf("size = %dx%d, want 20x10", m.Width(), m.Height())
	}
	if gt := m.GeoTransform(); gt[0] != 500000 || gt[1] != 0.02 {
		t.Errorf("GeoTransform() = %v", gt)
	}

	tests := []struct {
		epsg int
		want bool
	}{
		{utm40S, true},
		{32739, false},
		{4326, false},
	}
	for _, tt := range tests {
		got, err := m.MatchesEPSG(tt.epsg)
		if err != nil {
			t.Fatal(err)
		}
		if got != tt.want {
			t.Errorf("MatchesEPSG(%d) = %v, want %v", tt.epsg, got, tt.want)
		}
	}

	dst := make([]uint8, 2*2*3)
	if err := m.ReadRGB(3, 4, 2, dst); err != nil {
		t.Fatal(err)
	}
	want := []uint8{3, 4, 7, 4, 4, 7, 3, 5, 7, 4, 5, 7}
	for i := range want {
		if dst[i] != want[i] {
			t.Fatalf("ReadRGB() = %v, want %v", dst, want)
		}
	}
}

func TestOpener_MissingFile(t *testing.T) {
	if _, err := NewOpener().Open(filepath.Join(t.TempDir(), "missing.tif")); err == nil {
		t.Error("expected error opening a missing file")
	}
}

func TestTransformer_CentralMeridian(t *testing.T) {
	tr, err := NewFactory().NewTransformer(utm40S)
	if err != nil {
		t.Fatal(err)
	}
	defer tr.Close()

	// The central meridian of UTM zone 40 is 57E; northing 10000000 in the
	// south zone is the equator.
	ll, err := tr.ToWGS84(geo.Point{X: 500000, Y: 10000000})
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(ll.Lon-57) > 1e-6 || math.Abs(ll.Lat) > 1e-6 {
		t.Errorf("ToWGS84() = %+v, want lon 57 lat 0", ll)
	}
}

func TestGridWriter_Write(t *testing.T) {
	path := filepath.Join(t.TempDir(), "class.tif")
	g := &heatmap.Grid{
		Class:     "sand",
		Values:    mat.NewDense(2, 3, []float64{0.1, 0.2, math.NaN(), 0.4, 0.5, 0.6}),
		Transform: geo.NorthUp(500000, 7650000, 1.5),
		EPSG:      utm40S,
	}
	w := NewGridWriter()
	if w.Ext() != "tif" {
		t.Errorf("Ext() = %q", w.Ext())
	}
	if err := w.Write(path, g); err != nil {
		t.Fatal(err)
	}

	ds, err := godal.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer ds.Close()
	st := ds.Structure()
	if st.SizeX != 3 || st.SizeY != 2 || st.NBands != 1 {
		t.Fatalf("structure = %+v", st)
	}
	buf := make([]float32, 6)
	if err := ds.Bands()[0].Read(0, 0, buf, 3, 2); err != nil {
		t.Fatal(err)
	}
	if math.Abs(float64(buf[4])-0.5) > 1e-6 || !math.IsNaN(float64(buf[2])) {
		t.Errorf("pixels = %v", buf)
	}
}
