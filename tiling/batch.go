package tiling

import (
	"fmt"

	"github.com/kbukum/orthotile/geo"
)

// Batch holds parallel per-tile sequences. Index i of every sequence refers
// to the same tile. Scores is nil until the batch is classified.
type Batch struct {
	Frames    []Frame
	FrameIDs  []string
	Positions []geo.LonLat
	Scores    [][]float32
}

// NewBatch returns an empty batch with room for n tiles.
func NewBatch(n int) *Batch {
	return &Batch{
		Frames:    make([]Frame, 0, n),
		FrameIDs:  make([]string, 0, n),
		Positions: make([]geo.LonLat, 0, n),
	}
}

// Append adds t to the batch.
func (b *Batch) Append(t Tile) {
	b.Frames = append(b.Frames, t.Frame)
	b.FrameIDs = append(b.FrameIDs, t.ID)
	b.Positions = append(b.Positions, t.Position)
}

// Len is the number of tiles in the batch.
func (b *Batch) Len() int { return len(b.FrameIDs) }

// Enriched reports whether the batch carries scores.
func (b *Batch) Enriched() bool { return b.Scores != nil }

// Check verifies index alignment across the sequences present.
func (b *Batch) Check() error {
	n := len(b.FrameIDs)
	if len(b.Frames) != n || len(b.Positions) != n {
		return fmt.Errorf("misaligned batch: %d frames, %d ids, %d positions", len(b.Frames), n, len(b.Positions))
	}
	if b.Scores != nil && len(b.Scores) != n {
		return fmt.Errorf("misaligned batch: %d score vectors for %d tiles", len(b.Scores), n)
	}
	return nil
}
