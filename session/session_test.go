package session

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kbukum/orthotile/errors"
)

func TestSession_Paths(t *testing.T) {
	s := New("/data/20240524_REU-LE-PORT_01/")
	if s.Name != "20240524_REU-LE-PORT_01" {
		t.Errorf("Name = %q", s.Name)
	}
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"orthophoto", s.OrthophotoPath(), "/data/20240524_REU-LE-PORT_01/PROCESSED_DATA/PHOTOGRAMMETRY/odm_orthophoto/odm_orthophoto.tif"},
		{"stats", s.StatsPath(), "/data/20240524_REU-LE-PORT_01/PROCESSED_DATA/PHOTOGRAMMETRY/odm_report/stats.json"},
		{"output", s.OutputDir(), "/data/20240524_REU-LE-PORT_01/PROCESSED_DATA/IA"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != filepath.FromSlash(tt.want) {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func mkSessions(t *testing.T, root string, names ...string) {
	t.Helper()
	for _, n := range names {
		if err := os.MkdirAll(filepath.Join(root, n), 0o755); err != nil {
			t.Fatal(err)
		}
	}
}

func names(ss []Session) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = s.Name
	}
	return out
}

func TestSelect_Folder(t *testing.T) {
	root := t.TempDir()
	mkSessions(t, root, "c", "a", "b")
	if err := os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		start    int
		position int
		want     []string
	}{
		{"all sorted", 0, -1, []string{"a", "b", "c"}},
		{"start index", 1, -1, []string{"b", "c"}},
		{"start out of range", 7, -1, []string{"a", "b", "c"}},
		{"position", 0, 2, []string{"b"}},
		{"position wins over start", 2, 1, []string{"a"}},
		{"position out of range", 0, 4, []string{"a", "b", "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Select(Selection{Mode: ModeFolder, FolderPath: root, IndexStart: tt.start, IndexPosition: tt.position})
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, names(got)); diff != "" {
				t.Errorf("sessions (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSelect_Session(t *testing.T) {
	root := t.TempDir()
	mkSessions(t, root, "one")
	got, err := Select(Selection{Mode: ModeSession, SessionPath: filepath.Join(root, "one"), IndexPosition: -1})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"one"}, names(got)); diff != "" {
		t.Errorf("sessions (-want +got):\n%s", diff)
	}
}

func TestSelect_CSV(t *testing.T) {
	root := t.TempDir()
	mkSessions(t, root, "s1", "s2")
	manifest := "root_folder,session_name\n" +
		root + ",s2\n" +
		root + ",missing\n" +
		root + ",s1\n"
	path := filepath.Join(root, "sessions.csv")
	if err := os.WriteFile(path, []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := Select(Selection{Mode: ModeCSV, CSVPath: path, IndexPosition: -1})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"s2", "s1"}, names(got)); diff != "" {
		t.Errorf("manifest order must be kept (-want +got):\n%s", diff)
	}
}

func TestReadManifest_MissingColumns(t *testing.T) {
	_, err := readManifest(strings.NewReader("folder,name\n/a,b\n"))
	if !errors.HasCode(err, errors.ErrCodeInvalidInput) {
		t.Errorf("readManifest() = %v, want INVALID_INPUT", err)
	}
}

func TestSelect_Errors(t *testing.T) {
	empty := t.TempDir()
	tests := []struct {
		name string
		sel  Selection
	}{
		{"unknown mode", Selection{Mode: "glob"}},
		{"no sessions", Selection{Mode: ModeFolder, FolderPath: empty}},
		{"missing folder", Selection{Mode: ModeFolder, FolderPath: filepath.Join(empty, "nope")}},
		{"missing session", Selection{Mode: ModeSession, SessionPath: filepath.Join(empty, "nope")}},
		{"missing manifest", Selection{Mode: ModeCSV, CSVPath: filepath.Join(empty, "nope.csv")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Select(tt.sel)
			if !errors.HasCode(err, errors.ErrCodeInvalidInput) {
				t.Errorf("Select() = %v, want INVALID_INPUT", err)
			}
		})
	}
}
