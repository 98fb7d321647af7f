package bootstrap

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/orthotile/component"
	"github.com/kbukum/orthotile/logger"
)

// Component loggers registered once the global logger is configured.
var componentLoggers = []string{
	"bootstrap", "component", "config", "driver", "heatmap",
	"inference", "observability", "persist", "session", "tiling",
}

// App holds the run-lifetime state of a task. C is the typed run config.
type App[C Config] struct {
	Name       string
	Version    string
	RunID      string
	Cfg        C
	Components *component.Registry
	Logger     *logger.Logger

	gracefulTimeout time.Duration
	signals         bool
	onStart         []Hook
	onStop          []Hook
}

// NewApp applies defaults to cfg, validates it and initialises the logger.
// A validation failure is returned unchanged.
func NewApp[C Config](cfg C, opts ...Option) (*App[C], error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	base := cfg.GetServiceConfig()
	o := resolveOptions(opts)

	a := &App[C]{
		Name:            base.Name,
		Version:         base.Version,
		RunID:           o.runID,
		Cfg:             cfg,
		Components:      component.NewRegistry(),
		gracefulTimeout: 15 * time.Second,
		signals:         o.signals,
	}
	if a.RunID == "" {
		a.RunID = uuid.NewString()
	}
	if o.gracefulTimeout != nil {
		a.gracefulTimeout = *o.gracefulTimeout
	}
	if o.logger != nil {
		a.Logger = o.logger
	} else {
		logger.Init(base.Logging)
		logger.RegisterDefaults(componentLoggers...)
		a.Logger = logger.Get("bootstrap")
	}
	a.Logger = a.Logger.WithFields(map[string]interface{}{logger.FieldRunID: a.RunID})
	return a, nil
}

// RegisterComponent adds c to the run. Components start in registration
// order and stop in reverse.
func (a *App[C]) RegisterComponent(c component.Component) error {
	return a.Components.Register(c)
}

// RunTask starts the components, runs task and stops the components. The
// task context is cancelled on SIGINT or SIGTERM, and components are
// stopped whatever the task returned. The task error wins over a stop
// error.
func (a *App[C]) RunTask(ctx context.Context, task func(ctx context.Context) error) error {
	start := time.Now()
	a.Logger.Info("starting run", logger.Fields("name", a.Name, "version", a.Version))

	if err := a.Components.StartAll(ctx); err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}
	if err := runHooks(ctx, a.onStart); err != nil {
		return stderrors.Join(fmt.Errorf("onStart hook failed: %w", err), a.stop())
	}
	if err := a.ReadyCheck(ctx); err != nil {
		a.Logger.Warn("ready check reported issues", logger.Fields(logger.FieldError, err.Error()))
	}

	taskCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if a.signals {
		a.cancelOnSignal(taskCtx, cancel)
	}

	a.Logger.Info("components started", logger.DurationFields("startup", time.Since(start)))
	taskErr := task(taskCtx)

	if stopErr := a.stop(); stopErr != nil && taskErr == nil {
		return stopErr
	}
	return taskErr
}

func (a *App[C]) cancelOnSignal(ctx context.Context, cancel context.CancelFunc) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigCh)
		select {
		case sig := <-sigCh:
			a.Logger.Warn("received signal, interrupting run", logger.Fields("signal", sig.String()))
			cancel()
		case <-ctx.Done():
		}
	}()
}

// ReadyCheck reports components that are not healthy.
func (a *App[C]) ReadyCheck(ctx context.Context) error {
	var unhealthy []string
	for _, h := range a.Components.HealthAll(ctx) {
		if h.Status == component.StatusHealthy {
			continue
		}
		detail := h.Name + "=" + string(h.Status)
		if h.Message != "" {
			detail += "(" + h.Message + ")"
		}
		unhealthy = append(unhealthy, detail)
	}
	if len(unhealthy) > 0 {
		return fmt.Errorf("unhealthy components: %v", unhealthy)
	}
	return nil
}

// stop runs the stop hooks and stops every started component within the
// graceful timeout. It does not depend on the task context, which may
// already be cancelled.
func (a *App[C]) stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.gracefulTimeout)
	defer cancel()

	var errs []error
	if err := runHooks(ctx, a.onStop); err != nil {
		a.Logger.Error("onStop hook error", logger.Fields(logger.FieldError, err.Error()))
		errs = append(errs, err)
	}
	if err := a.Components.StopAll(ctx); err != nil {
		a.Logger.Error("shutdown completed with errors", logger.Fields(logger.FieldError, err.Error()))
		errs = append(errs, err)
	}
	a.Logger.Info("run shutdown complete")
	return stderrors.Join(errs...)
}
