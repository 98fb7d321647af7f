// Package session models a survey session on disk and resolves which
// sessions a run processes.
package session

import "path/filepath"

// Session is one survey: a named directory holding a reconstructed mosaic
// and its statistics. Sessions are independent of each other.
type Session struct {
	Name string
	Path string
}

// New returns the session rooted at path, named after its last element.
func New(path string) Session {
	clean := filepath.Clean(path)
	return Session{Name: filepath.Base(clean), Path: clean}
}

// OrthophotoPath is the location of the reconstructed mosaic.
func (s Session) OrthophotoPath() string {
	return filepath.Join(s.Path, "PROCESSED_DATA", "PHOTOGRAMMETRY", "odm_orthophoto", "odm_orthophoto.tif")
}

// StatsPath is the location of the reconstruction statistics.
func (s Session) StatsPath() string {
	return filepath.Join(s.Path, "PROCESSED_DATA", "PHOTOGRAMMETRY", "odm_report", "stats.json")
}

// OutputDir is where every artefact of a run over this session is written.
func (s Session) OutputDir() string {
	return filepath.Join(s.Path, "PROCESSED_DATA", "IA")
}

func (s Session) String() string { return s.Name }
