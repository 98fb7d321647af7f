package version

import (
	"fmt"
	"runtime/debug"
	"sort"
	"strings"
)

// Set with -ldflags -X.
var (
	Version   = "dev"
	Commit    = ""
	BuildTime = ""
)

// RuntimeModules are the native-backed libraries whose versions matter
// when reproducing a run.
var RuntimeModules = []string{
	"github.com/airbusgeo/godal",
	"github.com/tphakala/go-tflite",
	"modernc.org/sqlite",
}

// Info is the build of the running binary.
type Info struct {
	Version   string            `json:"version"`
	Commit    string            `json:"commit,omitempty"`
	BuildTime string            `json:"build_time,omitempty"`
	GoVersion string            `json:"go_version"`
	Modified  bool              `json:"modified"`
	Modules   map[string]string `json:"modules,omitempty"`
}

// Get returns the build information of the running binary.
func Get() Info {
	bi, _ := debug.ReadBuildInfo()
	return fromBuildInfo(bi)
}

func fromBuildInfo(bi *debug.BuildInfo) Info {
	info := Info{Version: Version, Commit: Commit, BuildTime: BuildTime}
	if bi == nil {
		return info
	}
	info.GoVersion = bi.GoVersion
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "" {
				info.Commit = s.Value
			}
		case "vcs.time":
			if info.BuildTime == "" {
				info.BuildTime = s.Value
			}
		case "vcs.modified":
			info.Modified = s.Value == "true"
		}
	}
	if len(info.Commit) > 7 {
		info.Commit = info.Commit[:7]
	}
	for _, dep := range bi.Deps {
		for _, want := range RuntimeModules {
			if dep.Path != want {
				continue
			}
			if info.Modules == nil {
				info.Modules = make(map[string]string)
			}
			if dep.Replace != nil {
				dep = dep.Replace
			}
			info.Modules[want] = dep.Version
		}
	}
	return info
}

// Short is the version with the commit, if known.
func (i Info) Short() string {
	if i.Commit == "" {
		return i.Version
	}
	s := i.Version + "-" + i.Commit
	if i.Modified {
		s += "-dirty"
	}
	return s
}

// String renders the multi-line report of `orthotile version`.
func (i Info) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "orthotile %s\n", i.Short())
	if i.BuildTime != "" {
		fmt.Fprintf(&b, "  built:   %s\n", i.BuildTime)
	}
	if i.GoVersion != "" {
		fmt.Fprintf(&b, "  go:      %s\n", i.GoVersion)
	}
	paths := make([]string, 0, len(i.Modules))
	for p := range i.Modules {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		fmt.Fprintf(&b, "  %s %s\n", p, i.Modules[p])
	}
	return b.String()
}
