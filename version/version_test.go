package version

import (
	"runtime/debug"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFromBuildInfo(t *testing.T) {
	defer func(v, c, b string) { Version, Commit, BuildTime = v, c, b }(Version, Commit, BuildTime)
	Version, Commit, BuildTime = "1.4.0", "", ""

	bi := &debug.BuildInfo{
		GoVersion: "go1.26.0",
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef"},
			{Key: "vcs.time", Value: "2026-10-01T12:00:00Z"},
			{Key: "vcs.modified", Value: "true"},
		},
		Deps: []*debug.Module{
			{Path: "github.com/airbusgeo/godal", Version: "v0.0.13"},
			{Path: "github.com/spf13/cobra", Version: "v1.10.2"},
			{Path: "modernc.org/sqlite", Version: "v1.46.0", Replace: &debug.Module{Path: "modernc.org/sqlite", Version: "v1.46.1"}},
		},
	}
	want := Info{
		Version:   "1.4.0",
		Commit:    "0123456",
		BuildTime: "2026-10-01T12:00:00Z",
		GoVersion: "go1.26.0",
		Modified:  true,
		Modules: map[string]string{
			"github.com/airbusgeo/godal": "v0.0.13",
			"modernc.org/sqlite":         "v1.46.1",
		},
	}
	if diff := cmp.Diff(want, fromBuildInfo(bi)); diff != "" {
		t.Errorf("fromBuildInfo (-want +got):\n%s", diff)
	}
}

func TestFromBuildInfo_LinkerValuesWin(t *testing.T) {
	defer func(v, c, b string) { Version, Commit, BuildTime = v, c, b }(Version, Commit, BuildTime)
	Version, Commit, BuildTime = "2.0.0", "feedbee", "2026-01-01T00:00:00Z"

	bi := &debug.BuildInfo{Settings: []debug.BuildSetting{
		{Key: "vcs.revision", Value: "0000000000"},
		{Key: "vcs.time", Value: "1999-01-01T00:00:00Z"},
	}}
	got := fromBuildInfo(bi)
	if got.Commit != "feedbee" || got.BuildTime != "2026-01-01T00:00:00Z" {
		t.Errorf("got %+v", got)
	}
}

func TestFromBuildInfo_Nil(t *testing.T) {
	if got := fromBuildInfo(nil); got.Version != Version || got.Modules != nil {
		t.Errorf("got %+v", got)
	}
}

func TestInfo_Short(t *testing.T) {
	tests := []struct {
		info Info
		want string
	}{
		{Info{Version: "dev"}, "dev"},
		{Info{Version: "1.0.0", Commit: "abc1234"}, "1.0.0-abc1234"},
		{Info{Version: "1.0.0", Commit: "abc1234", Modified: true}, "1.0.0-abc1234-dirty"},
	}
	for _, tt := range tests {
		if got := tt.info.Short(); got != tt.want {
			t.Errorf("Short() = %q, want %q", got, tt.want)
		}
	}
}

func TestInfo_String(t *testing.T) {
	s := Info{
		Version:   "1.0.0",
		GoVersion: "go1.26.0",
		Modules:   map[string]string{"modernc.org/sqlite": "v1.46.1", "github.com/airbusgeo/godal": "v0.0.13"},
	}.String()
	if !strings.HasPrefix(s, "orthotile 1.0.0\n") {
		t.Errorf("String() = %q", s)
	}
	if strings.Index(s, "godal") > strings.Index(s, "sqlite") {
		t.Errorf("modules not sorted: %q", s)
	}
}

func TestGet(t *testing.T) {
	if Get().Version == "" {
		t.Error("empty version")
	}
}
