package engine

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/c360/spoolkit/errors"
	"github.com/c360/spoolkit/signal"
	"github.com/c360/spoolkit/spool"
)

// Boot runs the whole boot sequence: it arms every spool runtime and the
// three global barriers, emits app:start, and blocks until app:ready, a
// fatal phase failure, the configured boot timeout, or ctx cancellation.
//
// A second Boot call fails; an App is never rebooted after Stop.
func (a *App) Boot(ctx context.Context) error {
	if a.stopped.Load() {
		return errors.WrapInvalid(errors.ErrStopped, "App", "Boot", "lifecycle check")
	}
	if !a.booted.CompareAndSwap(false, true) {
		return errors.WrapInvalid(errors.ErrAlreadyBooted, "App", "Boot", "lifecycle check")
	}

	// By app:ready every phase and barrier goroutine has completed, so
	// cancelling on the way out is safe on every path.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	fail := func(err error) {
		a.failOnce.Do(func() {
			a.failed <- err
		})
	}

	for _, rt := range a.runtimes {
		rt.Arm(ctx, fail)
	}
	a.armBarriers(ctx)

	ready := a.bus.OnceAny(signal.AppReady)

	var timeout <-chan time.Time
	if a.bootTimeout > 0 {
		timer := time.NewTimer(a.bootTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	start := time.Now()
	a.logger.Info("Boot sequence starting",
		"id", a.id,
		"env", a.env,
		"spools", a.names)
	a.bus.Emit(signal.AppStart)

	select {
	case <-ready:
		a.ready.Store(true)
		elapsed := time.Since(start)
		if a.bootMetrics != nil {
			a.bootMetrics.ObserveBootDuration(elapsed)
		}
		a.logger.Info("Boot sequence complete", "duration", elapsed)
		return nil
	case err := <-a.failed:
		a.logger.Error("Boot sequence failed", "error", err)
		return err
	case <-timeout:
		err := errors.WrapFatal(
			fmt.Errorf("%w after %s; stalled spools: %s",
				errors.ErrBootTimeout, a.bootTimeout, strings.Join(a.stalled(), ", ")),
			"App", "Boot", "boot deadline")
		a.logger.Error("Boot sequence timed out", "error", err)
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// armBarriers derives the three global barrier signals from every spool's
// per-phase completion signal, and performs the configure-boundary work
// (path creation, config freeze) before all:configured is released.
func (a *App) armBarriers(ctx context.Context) {
	validated := make([]signal.Requirement, len(a.names))
	configured := make([]signal.Requirement, len(a.names))
	initialized := make([]signal.Requirement, len(a.names))
	for i, name := range a.names {
		validated[i] = signal.Req(signal.SpoolValidated(name))
		configured[i] = signal.Req(signal.SpoolConfigured(name))
		initialized[i] = signal.Req(signal.SpoolInitialized(name))
	}

	a.barrier(ctx, a.bus.After(validated...), func() {
		a.logger.Info("All spools validated")
		a.bus.Emit(signal.AllValidated)
	})

	a.barrier(ctx, a.bus.After(configured...), func() {
		a.logger.Info("All spools configured")
		a.atConfigureBoundary()
		a.bus.Emit(signal.AllConfigured)
	})

	a.barrier(ctx, a.bus.After(initialized...), func() {
		a.logger.Info("All spools initialized")
		a.bus.Emit(signal.AllInitialized)
		a.bus.Emit(signal.AppReady)
	})
}

func (a *App) barrier(ctx context.Context, ready <-chan [][]any, then func()) {
	go func() {
		select {
		case <-ready:
			then()
		case <-ctx.Done():
		}
	}()
}

// atConfigureBoundary creates the configured filesystem paths and freezes
// the configuration store. Path creation is best-effort: a path may
// already exist or be created by another entity, so failures are logged,
// not fatal. Freezing is skipped only when main.freezeConfig is
// explicitly false, a test and debug affordance.
func (a *App) atConfigureBoundary() {
	if boolValue(a.store.Get("main.createPaths"), true) {
		a.createPaths()
	}

	if !boolValue(a.store.Get("main.freezeConfig"), true) {
		a.logger.Warn("Configuration left mutable (main.freezeConfig=false); intended for test and debug use only")
		return
	}
	a.store.Freeze()
	a.logger.Debug("Configuration frozen")
}

func (a *App) createPaths() {
	paths, ok := a.store.Get("main.paths").(map[string]any)
	if !ok {
		return
	}
	for name, raw := range paths {
		path, ok := raw.(string)
		if !ok || path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0o750); err != nil {
			a.logger.Warn("Failed to create configured path",
				"path_name", name,
				"path", path,
				"error", err)
		}
	}
}

// Stop tears the application down: it emits app:stop and unfreezes the
// configuration store. Stop is only meaningful after a successful boot,
// and an instance cannot be restarted afterwards.
func (a *App) Stop() error {
	if !a.ready.Load() {
		return errors.WrapInvalid(errors.ErrNotBooted, "App", "Stop", "lifecycle check")
	}
	if !a.stopped.CompareAndSwap(false, true) {
		return errors.WrapInvalid(errors.ErrStopped, "App", "Stop", "lifecycle check")
	}

	a.bus.Emit(signal.AppStop)
	a.store.Unfreeze()
	a.logger.Info("Application stopped", "id", a.id)
	return nil
}

// stalled names the spools that have not reached the initialized stage.
func (a *App) stalled() []string {
	var names []string
	for _, rt := range a.runtimes {
		if rt.Stage() != spool.StageInitialized {
			names = append(names, fmt.Sprintf("%s (%s)", rt.Spool().Name(), rt.Stage()))
		}
	}
	return names
}

func boolValue(value any, fallback bool) bool {
	if b, ok := value.(bool); ok {
		return b
	}
	return fallback
}
