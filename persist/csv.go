// Package persist writes classified tiles to tabular sinks. Each sink is a
// pipeline stage that passes every batch through unchanged.
package persist

import (
	"context"
	"encoding/csv"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/kbukum/orthotile/errors"
	"github.com/kbukum/orthotile/logger"
	"github.com/kbukum/orthotile/observability"
	"github.com/kbukum/orthotile/pipeline"
	"github.com/kbukum/orthotile/session"
	"github.com/kbukum/orthotile/tiling"
)

// Column names around the class columns.
const (
	ColumnFileName  = "FileName"
	ColumnLatitude  = "GPSLatitude"
	ColumnLongitude = "GPSLongitude"
)

// PathFunc resolves the sink location of a session.
type PathFunc func(sess session.Session) string

// CSVPath is the prediction table of a session for a classifier.
func CSVPath(sess session.Session, classifier string) string {
	return filepath.Join(sess.OutputDir(), fmt.Sprintf("%s_%s_prediction_scores.csv", sess.Name, classifier))
}

// CSVPathFunc binds a classifier name to CSVPath.
func CSVPathFunc(classifier string) PathFunc {
	return func(sess session.Session) string { return CSVPath(sess, classifier) }
}

// Header returns the header row for classes.
func Header(classes []string) []string {
	h := make([]string, 0, len(classes)+3)
	h = append(h, ColumnFileName)
	h = append(h, classes...)
	return append(h, ColumnLatitude, ColumnLongitude)
}

// CSVOption configures a CSV stage.
type CSVOption func(*CSV)

// WithCSVMetrics counts written rows on m.
func WithCSVMetrics(m *observability.Metrics) CSVOption {
	return func(c *CSV) { c.metrics = m }
}

// CSV writes one row per tile of every classified batch.
type CSV struct {
	classes []string
	path    PathFunc
	metrics *observability.Metrics
	log     *logger.Logger

	file *os.File
	w    *csv.Writer
	name string
	rows int
}

// NewCSV returns a CSV stage writing the columns of classes.
func NewCSV(classes []string, path PathFunc, opts ...CSVOption) *CSV {
	c := &CSV{classes: classes, path: path, log: logger.Get("persist")}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *CSV) Name() string { return "csv" }

// Path returns the file of the current or last session.
func (c *CSV) Path() string { return c.name }

// Rows returns the rows written in the current or last session.
func (c *CSV) Rows() int { return c.rows }

// Setup opens the session file for appending and writes the header.
func (c *CSV) Setup(_ context.Context, sess session.Session) error {
	c.name = c.path(sess)
	c.rows = 0
	f, err := os.OpenFile(c.name, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return errors.Storage("open", err).WithDetail("path", c.name)
	}
	c.file = f
	c.w = csv.NewWriter(f)
	if err := c.w.Write(Header(c.classes)); err != nil {
		return errors.Storage("write header", err).WithDetail("path", c.name)
	}
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		return errors.Storage("write header", err).WithDetail("path", c.name)
	}
	return nil
}

func (c *CSV) Produce(ctx context.Context, upstream pipeline.Iterator[*tiling.Batch]) pipeline.Iterator[*tiling.Batch] {
	return pipeline.Tap(pipeline.From(upstream), c.write).Iter(ctx)
}

// write appends the rows of b in index order and flushes. Batches without
// scores pass through without rows.
func (c *CSV) write(ctx context.Context, b *tiling.Batch) error {
	if !b.Enriched() {
		return nil
	}
	if err := b.Check(); err != nil {
		return errors.Storage("write", err).WithDetail("path", c.name)
	}
	record := make([]string, 0, len(c.classes)+3)
	for i, id := range b.FrameIDs {
		record = record[:0]
		record = append(record, id)
		for _, s := range b.Scores[i] {
			record = append(record, strconv.FormatFloat(float64(s), 'g', -1, 32))
		}
		pos := b.Positions[i]
		record = append(record,
			strconv.FormatFloat(pos.Lat, 'g', -1, 64),
			strconv.FormatFloat(pos.Lon, 'g', -1, 64),
		)
		if err := c.w.Write(record); err != nil {
			return errors.Storage("write", err).WithDetail("path", c.name)
		}
	}
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		return errors.Storage("flush", err).WithDetail("path", c.name)
	}
	c.rows += b.Len()
	c.metrics.RowsWritten(ctx, c.Name(), b.Len())
	return nil
}

// Cleanup flushes and closes the file.
func (c *CSV) Cleanup() error {
	if c.file == nil {
		return nil
	}
	var errs []error
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		errs = append(errs, err)
	}
	if err := c.file.Close(); err != nil {
		errs = append(errs, err)
	}
	c.file, c.w = nil, nil
	c.log.Info("predictions written", logger.Fields(logger.FieldPath, c.name, "rows", c.rows))
	if err := stderrors.Join(errs...); err != nil {
		return errors.Storage("close", err).WithDetail("path", c.name)
	}
	return nil
}
