package app

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
)

// Progress prints a live tile counter when writing to a terminal. On any
// other writer it stays silent and the driver logs totals instead.
type Progress struct {
	w       io.Writer
	enabled bool
	every   time.Duration

	session string
	tiles   int
	last    time.Time
}

// NewProgress returns a counter writing to w. A disabled counter prints
// nothing.
func NewProgress(w io.Writer, enabled bool) *Progress {
	return &Progress{w: w, enabled: enabled && isTerminal(w), every: 100 * time.Millisecond}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Start resets the counter for a session.
func (p *Progress) Start(session string) {
	p.session, p.tiles, p.last = session, 0, time.Time{}
	p.print()
}

// Add counts n tiles.
func (p *Progress) Add(n int) {
	p.tiles += n
	if time.Since(p.last) >= p.every {
		p.print()
	}
}

// Tiles returns the count of the current session.
func (p *Progress) Tiles() int { return p.tiles }

// Finish prints the final count and ends the line.
func (p *Progress) Finish() {
	if !p.enabled {
		return
	}
	p.print()
	fmt.Fprintln(p.w)
}

func (p *Progress) print() {
	if !p.enabled {
		return
	}
	p.last = time.Now()
	fmt.Fprintf(p.w, "\r%s: %d tiles", p.session, p.tiles)
}
