// Package sqlite stores classified tiles in a SQLite table keyed by session
// and emission sequence. Tile identifiers are truncated centroids and may
// repeat when windows overlap, so they are indexed but not unique.
// Re-running a session replaces its rows instead of duplicating them.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/kbukum/orthotile/errors"
	"github.com/kbukum/orthotile/logger"
	"github.com/kbukum/orthotile/observability"
	"github.com/kbukum/orthotile/persist"
	"github.com/kbukum/orthotile/pipeline"
	"github.com/kbukum/orthotile/session"
	"github.com/kbukum/orthotile/tiling"
)

// StageName identifies the stage in logs and metrics.
const StageName = "sqlite"

const (
	clearSession = `DELETE FROM tiles WHERE session = ?`
	insertTile   = `INSERT INTO tiles (session, seq, frame_id, latitude, longitude) VALUES (?, ?, ?, ?, ?)`
	insertScore  = `INSERT INTO scores (session, seq, class, score) VALUES (?, ?, ?, ?)`
)

// Path is the database of a session for a classifier.
func Path(sess session.Session, classifier string) string {
	return filepath.Join(sess.OutputDir(), fmt.Sprintf("%s_%s.sqlite", sess.Name, classifier))
}

// PathFunc binds a classifier name to Path.
func PathFunc(classifier string) persist.PathFunc {
	return func(sess session.Session) string { return Path(sess, classifier) }
}

// Option configures a Stage.
type Option func(*Stage)

// WithMetrics counts written rows on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Stage) { s.metrics = m }
}

// Stage inserts every classified batch in one transaction.
type Stage struct {
	classes []string
	path    persist.PathFunc
	metrics *observability.Metrics
	log     *logger.Logger

	db         *sql.DB
	session    string
	name       string
	seq        int64
	seen       map[string]struct{}
	collisions int
}

// New returns a Stage writing scores for classes.
func New(classes []string, path persist.PathFunc, opts ...Option) *Stage {
	s := &Stage{classes: classes, path: path, log: logger.Get("persist")}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Stage) Name() string { return StageName }

// Path returns the database of the current or last session.
func (s *Stage) Path() string { return s.name }

// Setup opens the session database, migrates it and drops the rows of a
// previous run of the session.
func (s *Stage) Setup(ctx context.Context, sess session.Session) error {
	s.name = s.path(sess)
	s.session = sess.Name
	s.seq = 0
	s.seen = make(map[string]struct{})
	s.collisions = 0

	db, err := sql.Open("sqlite", s.name+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return errors.Storage("open", err).WithDetail("path", s.name)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return errors.Storage("open", err).WithDetail("path", s.name)
	}
	if err := MigrateUp(db); err != nil {
		_ = db.Close()
		return errors.Storage("migrate", err).WithDetail("path", s.name)
	}
	if _, err := db.ExecContext(ctx, clearSession, s.session); err != nil {
		_ = db.Close()
		return errors.Storage("clear", err).WithDetail("path", s.name)
	}
	s.db = db
	return nil
}

func (s *Stage) Produce(ctx context.Context, upstream pipeline.Iterator[*tiling.Batch]) pipeline.Iterator[*tiling.Batch] {
	return pipeline.Tap(pipeline.From(upstream), s.write).Iter(ctx)
}

func (s *Stage) write(ctx context.Context, b *tiling.Batch) error {
	if !b.Enriched() {
		return nil
	}
	if err := b.Check(); err != nil {
		return errors.Storage("write", err).WithDetail("path", s.name)
	}
	if err := s.insert(ctx, b); err != nil {
		return errors.Storage("write", err).WithDetail("path", s.name)
	}
	s.metrics.RowsWritten(ctx, StageName, b.Len())
	return nil
}

func (s *Stage) insert(ctx context.Context, b *tiling.Batch) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	tiles, err := tx.PrepareContext(ctx, insertTile)
	if err != nil {
		return err
	}
	defer tiles.Close()
	scores, err := tx.PrepareContext(ctx, insertScore)
	if err != nil {
		return err
	}
	defer scores.Close()

	seq := s.seq
	for i, id := range b.FrameIDs {
		pos := b.Positions[i]
		if _, err = tiles.ExecContext(ctx, s.session, seq, id, pos.Lat, pos.Lon); err != nil {
			return err
		}
		for c, score := range b.Scores[i] {
			if _, err = scores.ExecContext(ctx, s.session, seq, s.class(c), float64(score)); err != nil {
				return err
			}
		}
		seq++
	}
	if err = tx.Commit(); err != nil {
		return err
	}
	s.seq = seq
	for _, id := range b.FrameIDs {
		if _, dup := s.seen[id]; dup {
			s.collisions++
			continue
		}
		s.seen[id] = struct{}{}
	}
	return nil
}

func (s *Stage) class(i int) string {
	if i < len(s.classes) {
		return s.classes[i]
	}
	return fmt.Sprintf("class_%d", i)
}

// Cleanup closes the database.
func (s *Stage) Cleanup() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	s.log.Info("predictions stored", logger.Fields(logger.FieldPath, s.name, logger.FieldTiles, s.seq))
	if s.collisions > 0 {
		s.log.Warn("tile identifiers repeat, rows are told apart by seq", logger.Fields(
			logger.FieldPath, s.name, "collisions", s.collisions))
	}
	if err != nil {
		return errors.Storage("close", err).WithDetail("path", s.name)
	}
	return nil
}
