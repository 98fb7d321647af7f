package heatmap

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kbukum/orthotile/errors"
	"github.com/kbukum/orthotile/geo"
	"github.com/kbukum/orthotile/logger"
)

// Request describes one reconstruction.
type Request struct {
	CSVPath   string
	Session   string
	OutputDir string
	// Classes restricts the output; empty means every class column.
	Classes []string
	Method  Method
	// CellX and CellY are the native distance between neighbouring tile
	// centroids. Zero estimates them from the identifiers.
	CellX, CellY float64
	EPSG         int
}

// Path is the raster of one class.
func Path(outputDir, session, class, ext string) string {
	return filepath.Join(outputDir, fmt.Sprintf("%s_%s_raster.%s", session, sanitize(class), ext))
}

func sanitize(s string) string {
	return strings.NewReplacer("/", "_", "\\", "_", " ", "_").Replace(s)
}

type table struct {
	header []string
	points []geo.Point
	rows   [][]string

	// collisions counts rows whose identifier already appeared in the same
	// run, that is distinct overlapping tiles sharing one truncated centroid.
	collisions int
}

// Reconstruct reads the prediction table of req and writes one raster per
// class with w. It returns the written paths in class order. A table
// without rows writes nothing.
func Reconstruct(ctx context.Context, req Request, w Writer) ([]string, error) {
	log := logger.Get("heatmap").WithSession(req.Session)

	t, err := readTable(req.CSVPath)
	if err != nil {
		return nil, errors.PostProcess("raster", err).WithDetail("path", req.CSVPath)
	}
	if len(t.rows) == 0 {
		log.Warn("no predictions to rasterize", logger.Fields(logger.FieldPath, req.CSVPath))
		return nil, nil
	}
	if t.collisions > 0 {
		log.Warn("tiles share identifiers, the last one wins its cell", logger.Fields(
			logger.FieldPath, req.CSVPath, "collisions", t.collisions))
	}

	classes := req.Classes
	if len(classes) == 0 {
		classes = t.header[1 : len(t.header)-2]
	}
	columns := make(map[string]int, len(t.header))
	for i, h := range t.header {
		columns[h] = i
	}

	l := newLayout(t.points, req.CellX, req.CellY)
	var paths []string
	for _, class := range classes {
		if err := ctx.Err(); err != nil {
			return paths, errors.Canceled(err)
		}
		col, ok := columns[class]
		if !ok {
			return paths, errors.PostProcess("raster", fmt.Errorf("class %q not in %s", class, req.CSVPath))
		}
		g, err := buildGrid(t, l, col)
		if err != nil {
			return paths, errors.PostProcess("raster", err).WithDetail("class", class)
		}
		g.Class = class
		g.EPSG = req.EPSG
		g.Values = Fill(g.Values, req.Method)

		path := Path(req.OutputDir, req.Session, class, w.Ext())
		if err := w.Write(path, g); err != nil {
			return paths, errors.PostProcess("raster", err).WithDetail("path", path)
		}
		paths = append(paths, path)
	}
	log.Info("rasters written", logger.Fields("classes", len(paths), "rows", l.rows, "cols", l.cols))
	return paths, nil
}

func buildGrid(t *table, l layout, col int) (*Grid, error) {
	values := nanDense(l.rows, l.cols)
	for i, rec := range t.rows {
		v, err := strconv.ParseFloat(rec[col], 64)
		if err != nil {
			return nil, fmt.Errorf("row %s: %w", rec[0], err)
		}
		r, c := l.cell(t.points[i])
		values.Set(r, c, v)
	}
	return &Grid{Values: values, Transform: l.transform()}, nil
}

// readTable loads a prediction table. Repeated header rows from appended
// runs are skipped, and a repeated identifier keeps its last row. Repeats
// within one run are counted as collisions.
func readTable(path string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) < 3 {
		return nil, fmt.Errorf("header %v has no class columns", header)
	}
	r.FieldsPerRecord = len(header)

	t := &table{header: header}
	seen := make(map[string]int)
	run := make(map[string]struct{})
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if rec[0] == header[0] {
			run = make(map[string]struct{})
			continue
		}
		p, err := ParseTileID(rec[0])
		if err != nil {
			return nil, err
		}
		if _, again := run[rec[0]]; again {
			t.collisions++
		}
		run[rec[0]] = struct{}{}
		if i, dup := seen[rec[0]]; dup {
			t.rows[i] = rec
			continue
		}
		seen[rec[0]] = len(t.rows)
		t.rows = append(t.rows, rec)
		t.points = append(t.points, p)
	}
	return t, nil
}
