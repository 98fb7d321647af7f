package app

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/kbukum/orthotile/errors"
	"github.com/kbukum/orthotile/heatmap"
	"github.com/kbukum/orthotile/inference"
	"github.com/kbukum/orthotile/logger"
	"github.com/kbukum/orthotile/persist"
	sqlitesink "github.com/kbukum/orthotile/persist/sqlite"
	"github.com/kbukum/orthotile/raster/rastertest"
	"github.com/kbukum/orthotile/session"
	"github.com/kbukum/orthotile/tiling"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const testEPSG = 32740

type fixture struct {
	t       *testing.T
	root    string
	opener  *rastertest.Opener
	factory *rastertest.Factory
	mosaics map[string]*rastertest.Mosaic
}

func newFixture(t *testing.T) *fixture {
	return &fixture{
		t:       t,
		root:    t.TempDir(),
		opener:  rastertest.NewOpener(),
		factory: &rastertest.Factory{},
		mosaics: make(map[string]*rastertest.Mosaic),
	}
}

// session lays out a session with GSD 2.0 statistics. A nil mosaic leaves
// the orthophoto missing.
func (f *fixture) session(name string, m *rastertest.Mosaic) session.Session {
	f.t.Helper()
	s := session.New(filepath.Join(f.root, name))
	f.write(s.StatsPath(), `{"odm_processing_statistics": {"average_gsd": 2.0}}`)
	if m != nil {
		f.write(s.OrthophotoPath(), "")
		f.opener.Add(s.OrthophotoPath(), m)
		f.mosaics[name] = m
	}
	return s
}

func (f *fixture) write(path, content string) {
	f.t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		f.t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		f.t.Fatal(err)
	}
}

func testConfig() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	cfg.Tiling.BlackThreshold = 5
	cfg.Tiling.WhiteThreshold = 5
	cfg.Tiling.BatchSize = 4
	return cfg
}

func constantModel(classes ...string) *inference.FuncModel {
	return &inference.FuncModel{
		ModelName: "stub",
		Classes:   classes,
		Fn: func(_ context.Context, frames []tiling.Frame) ([][]float32, error) {
			out := make([][]float32, len(frames))
			for i := range out {
				out[i] = make([]float32, len(classes))
			}
			return out, nil
		},
	}
}

func (f *fixture) driver(cfg *Config, deps Deps, opts ...DriverOption) *Driver {
	f.t.Helper()
	deps.Opener, deps.Transformers = f.opener, f.factory
	factory, err := NewStageFactory(cfg, deps)
	if err != nil {
		f.t.Fatal(err)
	}
	opts = append([]DriverOption{WithDriverLogger(logger.Nop()), WithRunID("run-1")}, opts...)
	return NewDriver(factory, opts...)
}

func grey() *rastertest.Mosaic {
	return rastertest.NewMosaic(300, 300, testEPSG, rastertest.Grey)
}

func countLines(t *testing.T, path string) int {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return len(strings.Split(strings.TrimRight(string(data), "\n"), "\n"))
}

func TestDriver_FailedSessionDoesNotStopRun(t *testing.T) {
	f := newFixture(t)
	missing := f.session("a_missing", nil)
	ok := f.session("b_ok", grey())

	d := f.driver(testConfig(), Deps{Model: constantModel("Sand", "Coral")})
	sum := d.Run(context.Background(), []session.Session{missing, ok})

	if sum.Total() != 2 || sum.Succeeded() != 1 || sum.Failed() != 1 {
		t.Fatalf("summary total=%d ok=%d failed=%d", sum.Total(), sum.Succeeded(), sum.Failed())
	}
	if diff := cmp.Diff([]string{"a_missing"}, sum.FailedSessions()); diff != "" {
		t.Errorf("FailedSessions (-want +got):\n%s", diff)
	}
	if !errors.HasCode(sum.Sessions[0].Err, errors.ErrCodeConfiguration) {
		t.Errorf("session error = %v, want CONFIGURATION_ERROR", sum.Sessions[0].Err)
	}

	res := sum.Sessions[1]
	if res.State != Success || res.Tiles != 16 || res.Batches != 4 {
		t.Errorf("result = %+v", res)
	}
	if n := countLines(t, persist.CSVPath(ok, "stub")); n != 17 {
		t.Errorf("csv has %d lines, want header plus 16 rows", n)
	}
	if sum.RunID != "run-1" || d.State() != Done {
		t.Errorf("RunID=%q state=%v", sum.RunID, d.State())
	}
}

func TestDriver_Transitions(t *testing.T) {
	f := newFixture(t)
	s := f.session("s", grey())
	bad := f.session("bad", nil)

	type step struct {
		Session  string
		From, To State
	}
	var got []step
	d := f.driver(testConfig(), Deps{}, WithObserver(func(tr Transition) {
		got = append(got, step{tr.Session, tr.From, tr.To})
	}))
	d.Run(context.Background(), []session.Session{s, bad})

	want := []step{
		{"s", Idle, SessionSetup},
		{"s", SessionSetup, Running},
		{"s", Running, SessionTeardown},
		{"s", SessionTeardown, Success},
		{"bad", Success, SessionSetup},
		{"bad", SessionSetup, Failed},
		{"", Failed, Done},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("transitions (-want +got):\n%s", diff)
	}
}

func TestDriver_CleanupAfterCapabilityFailure(t *testing.T) {
	f := newFixture(t)
	s := f.session("s", grey())

	calls := 0
	model := constantModel("Sand")
	inner := model.Fn
	model.Fn = func(ctx context.Context, frames []tiling.Frame) ([][]float32, error) {
		calls++
		if calls == 2 {
			return nil, stderrors.New("device lost")
		}
		return inner(ctx, frames)
	}

	sum := f.driver(testConfig(), Deps{Model: model}).Run(context.Background(), []session.Session{s})
	res := sum.Sessions[0]
	if res.State != Failed || !errors.HasCode(res.Err, errors.ErrCodeCapability) {
		t.Fatalf("result = %v %v, want Failed CAPABILITY_ERROR", res.State, res.Err)
	}
	if n := f.mosaics["s"].Closes(); n != 1 {
		t.Errorf("mosaic closed %d times, want 1", n)
	}
	if f.factory.Built() != f.factory.Closed() {
		t.Errorf("transformers built=%d closed=%d", f.factory.Built(), f.factory.Closed())
	}
	if n := countLines(t, persist.CSVPath(s, "stub")); n != 5 {
		t.Errorf("csv has %d lines, want the first batch flushed", n)
	}
	if calls != 2 {
		t.Errorf("model called %d times, want no retry", calls)
	}
}

func TestDriver_InterruptSkipsRemainingSessions(t *testing.T) {
	f := newFixture(t)
	first := f.session("a", grey())
	second := f.session("b", grey())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	model := constantModel("Sand")
	inner := model.Fn
	model.Fn = func(ctx context.Context, frames []tiling.Frame) ([][]float32, error) {
		cancel()
		return inner(ctx, frames)
	}

	d := f.driver(testConfig(), Deps{Model: model})
	sum := d.Run(ctx, []session.Session{first, second})

	if !sum.Interrupted || sum.Total() != 1 {
		t.Fatalf("interrupted=%v total=%d, want one interrupted session", sum.Interrupted, sum.Total())
	}
	res := sum.Sessions[0]
	if res.State != Done || !errors.HasCode(res.Err, errors.ErrCodeCanceled) {
		t.Errorf("result = %v %v, want Done CANCELED", res.State, res.Err)
	}
	if sum.Failed() != 0 || len(sum.FailedSessions()) != 0 {
		t.Errorf("failed = %d %v, want an interrupt not counted as failure", sum.Failed(), sum.FailedSessions())
	}
	if n := f.mosaics["a"].Closes(); n != 1 {
		t.Errorf("mosaic closed %d times, want 1", n)
	}
	if n := f.mosaics["b"].Reads(); n != 0 {
		t.Errorf("second session read %d windows", n)
	}
	if d.State() != Done {
		t.Errorf("State() = %v", d.State())
	}
}

func TestDriver_SessionIsolation(t *testing.T) {
	f := newFixture(t)
	small := rastertest.NewMosaic(150, 150, testEPSG, rastertest.Grey)
	big := grey()
	big.Fill(0, 0, 150, 300, rastertest.Black)

	sessions := []session.Session{f.session("big", big), f.session("small", small)}
	sum := f.driver(testConfig(), Deps{Model: constantModel("Sand")}).Run(context.Background(), sessions)

	got := []int{sum.Sessions[0].Tiles, sum.Sessions[0].Rejected, sum.Sessions[1].Tiles, sum.Sessions[1].Rejected}
	if diff := cmp.Diff([]int{8, 8, 4, 0}, got); diff != "" {
		t.Errorf("tiles/rejected per session (-want +got):\n%s", diff)
	}
}

func TestDriver_Clean(t *testing.T) {
	f := newFixture(t)
	s := f.session("s", grey())
	stale := filepath.Join(s.OutputDir(), "stale.csv")
	f.write(stale, "old")

	f.driver(testConfig(), Deps{}, WithClean(true)).Run(context.Background(), []session.Session{s})
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Errorf("stale output survived clean: %v", err)
	}
	if _, err := os.Stat(s.OutputDir()); err != nil {
		t.Errorf("output dir not recreated: %v", err)
	}
}

func TestDriver_NoSave(t *testing.T) {
	f := newFixture(t)
	s := f.session("s", grey())
	cfg := testConfig()
	cfg.Output.NoSave = true

	sum := f.driver(cfg, Deps{Model: constantModel("Sand")}).Run(context.Background(), []session.Session{s})
	if sum.Succeeded() != 1 {
		t.Fatalf("session failed: %v", sum.Sessions[0].Err)
	}
	if _, err := os.Stat(persist.CSVPath(s, "stub")); !os.IsNotExist(err) {
		t.Errorf("csv written in no-save mode: %v", err)
	}
}

func TestDriver_SQLite(t *testing.T) {
	f := newFixture(t)
	s := f.session("s", grey())
	cfg := testConfig()
	cfg.Output.SQLite = true

	sum := f.driver(cfg, Deps{Model: constantModel("Sand")}).Run(context.Background(), []session.Session{s})
	if sum.Succeeded() != 1 {
		t.Fatalf("session failed: %v", sum.Sessions[0].Err)
	}
	if _, err := os.Stat(sqlitesink.Path(s, "stub")); err != nil {
		t.Errorf("sqlite database missing: %v", err)
	}
}

type recordingWriter struct {
	classes []string
	err     error
}

func (w *recordingWriter) Ext() string { return "bin" }

func (w *recordingWriter) Write(_ string, g *heatmap.Grid) error {
	w.classes = append(w.classes, g.Class)
	return w.err
}

func TestDriver_PostProcess(t *testing.T) {
	f := newFixture(t)
	s := f.session("s", grey())
	w := &recordingWriter{}

	sum := f.driver(testConfig(), Deps{Model: constantModel("Sand", "Coral"), Rasters: w}).
		Run(context.Background(), []session.Session{s})
	res := sum.Sessions[0]
	if res.State != Success {
		t.Fatalf("session failed: %v", res.Err)
	}
	if diff := cmp.Diff([]string{"Sand", "Coral"}, w.classes); diff != "" {
		t.Errorf("rasters (-want +got):\n%s", diff)
	}
	if len(res.Rasters) != 2 {
		t.Errorf("Rasters = %v", res.Rasters)
	}
}

func TestDriver_PostProcessFailure(t *testing.T) {
	f := newFixture(t)
	s := f.session("s", grey())
	w := &recordingWriter{err: stderrors.New("disk full")}

	sum := f.driver(testConfig(), Deps{Model: constantModel("Sand"), Rasters: w}).
		Run(context.Background(), []session.Session{s})
	res := sum.Sessions[0]
	if res.State != Failed || !errors.HasCode(res.Err, errors.ErrCodePostProcess) {
		t.Errorf("result = %v %v, want Failed POSTPROCESS_ERROR", res.State, res.Err)
	}
	if n := f.mosaics["s"].Closes(); n != 1 {
		t.Errorf("mosaic closed %d times before post-processing", n)
	}
}

func TestDriver_NoRaster(t *testing.T) {
	f := newFixture(t)
	s := f.session("s", grey())
	cfg := testConfig()
	cfg.Output.NoRaster = true
	w := &recordingWriter{}

	f.driver(cfg, Deps{Model: constantModel("Sand"), Rasters: w}).Run(context.Background(), []session.Session{s})
	if len(w.classes) != 0 {
		t.Errorf("rasters written with reconstruction disabled: %v", w.classes)
	}
}

func TestDriver_FactoryError(t *testing.T) {
	f := newFixture(t)
	s := f.session("s", grey())
	factory := StageFactoryFunc(func(session.Session) (Stages, error) {
		return Stages{}, errors.Configuration("no stages")
	})
	sum := NewDriver(factory, WithDriverLogger(logger.Nop())).Run(context.Background(), []session.Session{s})
	if sum.Sessions[0].State != Failed {
		t.Errorf("State = %v, want Failed", sum.Sessions[0].State)
	}
	if sum.RunID == "" {
		t.Error("default run id is empty")
	}
}

func TestDriver_CanceledBeforeStart(t *testing.T) {
	f := newFixture(t)
	s := f.session("s", grey())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sum := f.driver(testConfig(), Deps{}).Run(ctx, []session.Session{s})
	if !sum.Interrupted || sum.Total() != 0 {
		t.Errorf("interrupted=%v total=%d", sum.Interrupted, sum.Total())
	}
}
