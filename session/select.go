package session

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kbukum/orthotile/errors"
	"github.com/kbukum/orthotile/logger"
)

// Selection modes.
const (
	ModeFolder  = "folder"
	ModeSession = "session"
	ModeCSV     = "csv"
)

// Manifest columns in csv mode.
const (
	ColumnRootFolder  = "root_folder"
	ColumnSessionName = "session_name"
)

// Selection describes which sessions a run processes.
type Selection struct {
	Mode string
	// FolderPath holds one session per subdirectory (folder mode).
	FolderPath string
	// SessionPath is a single session directory (session mode).
	SessionPath string
	// CSVPath is a manifest with root_folder and session_name columns (csv mode).
	CSVPath string
	// IndexStart skips the first sessions. Out-of-range values mean 0.
	IndexStart int
	// IndexPosition, when in [1, len], selects only that session (1-based).
	IndexPosition int
}

// Select resolves the ordered list of sessions. An empty result is an
// INVALID_INPUT error.
func Select(sel Selection) ([]Session, error) {
	var (
		all []Session
		err error
	)
	switch sel.Mode {
	case ModeFolder:
		all, err = fromFolder(sel.FolderPath)
	case ModeSession:
		all, err = fromSession(sel.SessionPath)
	case ModeCSV:
		all, err = fromCSV(sel.CSVPath)
	default:
		return nil, errors.InvalidInput("mode", fmt.Sprintf("unknown selection mode %q", sel.Mode))
	}
	if err != nil {
		return nil, err
	}

	out := applyIndex(all, sel.IndexStart, sel.IndexPosition)
	if len(out) == 0 {
		return nil, errors.InvalidInput("sessions", "no sessions resolved")
	}
	logger.Get("session").Info("sessions selected", logger.Fields(
		"mode", sel.Mode,
		"available", len(all),
		"selected", len(out),
	))
	return out, nil
}

func applyIndex(all []Session, start, position int) []Session {
	if position > 0 && position <= len(all) {
		return all[position-1 : position]
	}
	if start < 0 || start >= len(all) {
		start = 0
	}
	return all[start:]
}

func fromFolder(dir string) ([]Session, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.InvalidInput("path_folder", err.Error()).WithCause(err)
	}
	var out []Session
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, New(filepath.Join(dir, e.Name())))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func fromSession(path string) ([]Session, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.InvalidInput("path_session", err.Error()).WithCause(err)
	}
	if !info.IsDir() {
		return nil, errors.InvalidInput("path_session", path+" is not a directory")
	}
	return []Session{New(path)}, nil
}

func fromCSV(path string) ([]Session, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.InvalidInput("path_csv", err.Error()).WithCause(err)
	}
	defer f.Close()
	return readManifest(f)
}

func readManifest(r io.Reader) ([]Session, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return nil, errors.InvalidInput("path_csv", "manifest has no header").WithCause(err)
	}
	rootIdx, nameIdx := -1, -1
	for i, h := range header {
		switch strings.TrimSpace(h) {
		case ColumnRootFolder:
			rootIdx = i
		case ColumnSessionName:
			nameIdx = i
		}
	}
	if rootIdx < 0 || nameIdx < 0 {
		return nil, errors.InvalidInput("path_csv",
			fmt.Sprintf("manifest needs %s and %s columns", ColumnRootFolder, ColumnSessionName))
	}

	log := logger.Get("session")
	var out []Session
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.InvalidInput("path_csv", err.Error()).WithCause(err)
		}
		root, name := strings.TrimSpace(rec[rootIdx]), strings.TrimSpace(rec[nameIdx])
		if name == "" {
			continue
		}
		path := filepath.Join(root, name)
		if info, err := os.Stat(path); err != nil || !info.IsDir() {
			log.Warn("manifest session not found, skipping", logger.Fields(logger.FieldPath, path, "line", line))
			continue
		}
		out = append(out, New(path))
	}
	return out, nil
}
