package tiling

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kbukum/orthotile/errors"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestReadGSD(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    float64
		code    errors.ErrorCode
	}{
		{"exact", `{"odm_processing_statistics": {"average_gsd": 2.0}}`, 2.0, ""},
		{"rounded down", `{"odm_processing_statistics": {"average_gsd": 1.6849}}`, 1.68, ""},
		{"rounded up", `{"odm_processing_statistics": {"average_gsd": 1.996}}`, 2.0, ""},
		{"missing key", `{"odm_processing_statistics": {}}`, 0, errors.ErrCodeConfiguration},
		{"not a number", `{"odm_processing_statistics": {"average_gsd": "2"}}`, 0, errors.ErrCodeConfiguration},
		{"malformed", `{"odm_processing_statistics":`, 0, errors.ErrCodeConfiguration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "stats.json")
			writeFile(t, path, tt.content)
			got, err := ReadGSD(path)
			if tt.code != "" {
				if !errors.HasCode(err, tt.code) {
					t.Fatalf("ReadGSD() = %v, want %s", err, tt.code)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("ReadGSD() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReadGSD_Missing(t *testing.T) {
	_, err := ReadGSD(filepath.Join(t.TempDir(), "stats.json"))
	if !errors.HasCode(err, errors.ErrCodeConfiguration) {
		t.Errorf("ReadGSD() = %v, want CONFIGURATION_ERROR", err)
	}
}
