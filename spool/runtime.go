package spool

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/c360/spoolkit/config"
	"github.com/c360/spoolkit/errors"
	"github.com/c360/spoolkit/signal"
)

// Phase names used in diagnostics and observer callbacks.
const (
	PhaseValidate   = "validate"
	PhaseConfigure  = "configure"
	PhaseInitialize = "initialize"
)

// Observer receives lifecycle notifications for monitoring and metrics.
// All methods may be called from phase goroutines.
type Observer interface {
	PhaseStarted(spool, phase string)
	PhaseCompleted(spool, phase string, elapsed time.Duration)
	PhaseFailed(spool, phase string)
	StageChanged(spool string, stage Stage)
}

// Deps carries the application-owned collaborators a runtime needs. Bus
// and Store are required; Logger and Observer are optional.
type Deps struct {
	Bus      *signal.Bus
	Store    *config.Store
	Logger   *slog.Logger
	Observer Observer
}

// Runtime drives one spool through its lifecycle stage machine. All stage
// transitions are driven by waiter completions, never by direct calls: each
// phase is armed as a waiter over the relevant global barrier signal plus
// the spool's own declared prerequisites, and emits the spool's completion
// signal when its hook returns.
type Runtime struct {
	spool  Spool
	bus    *signal.Bus
	store  *config.Store
	logger *slog.Logger
	obs    Observer

	mu    sync.Mutex
	stage Stage
}

// NewRuntime binds a spool to its backing application collaborators. A
// spool cannot exist without them; missing ones fail immediately, before
// any phase begins.
func NewRuntime(s Spool, deps Deps) (*Runtime, error) {
	if s == nil {
		return nil, errors.WrapInvalid(
			fmt.Errorf("spool cannot be nil"),
			"Runtime", "NewRuntime", "spool validation")
	}
	if s.Name() == "" {
		return nil, errors.WrapInvalid(
			fmt.Errorf("spool name cannot be empty"),
			"Runtime", "NewRuntime", "spool validation")
	}
	if deps.Bus == nil || deps.Store == nil {
		return nil, errors.WrapFatal(
			errors.ErrMissingApplication,
			"Runtime", "NewRuntime", "application binding")
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Runtime{
		spool:  s,
		bus:    deps.Bus,
		store:  deps.Store,
		logger: logger.With("spool", s.Name()),
		obs:    deps.Observer,
		stage:  StageRegistered,
	}, nil
}

// Spool returns the driven spool.
func (r *Runtime) Spool() Spool {
	return r.spool
}

// Stage returns the current lifecycle stage.
func (r *Runtime) Stage() Stage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stage
}

func (r *Runtime) setStage(stage Stage) {
	r.mu.Lock()
	r.stage = stage
	r.mu.Unlock()
	if r.obs != nil {
		r.obs.StageChanged(r.spool.Name(), stage)
	}
}

// Arm wires the three phase waiters. fail is invoked at most once per
// failing phase with a fatal error identifying the spool and phase; a
// failed phase never emits its completion signal, so the boot stalls
// instead of proceeding on a broken spool.
func (r *Runtime) Arm(ctx context.Context, fail func(error)) {
	lc := r.spool.Lifecycle()
	name := r.spool.Name()

	r.armPhase(ctx, fail, phaseSpec{
		name:       PhaseValidate,
		reqs:       append(signal.Reqs(signal.AppStart), lc.Validate...),
		entering:   StageValidating,
		done:       StageValidated,
		doneSignal: signal.SpoolValidated(name),
		hook:       r.spool.Validate,
	})

	r.armPhase(ctx, fail, phaseSpec{
		name:       PhaseConfigure,
		reqs:       append(signal.Reqs(signal.AllValidated), lc.Configure...),
		entering:   StageConfiguring,
		done:       StageConfigured,
		doneSignal: signal.SpoolConfigured(name),
		hook:       r.spool.Configure,
		before:     r.mergeDefaults,
	})

	r.armPhase(ctx, fail, phaseSpec{
		name:       PhaseInitialize,
		reqs:       append(signal.Reqs(signal.AllConfigured), lc.Initialize...),
		entering:   StageInitializing,
		done:       StageInitialized,
		doneSignal: signal.SpoolInitialized(name),
		hook:       r.spool.Initialize,
	})
}

type phaseSpec struct {
	name       string
	reqs       []signal.Requirement
	entering   Stage
	done       Stage
	doneSignal string
	hook       func(context.Context) error
	before     func() error
}

func (r *Runtime) armPhase(ctx context.Context, fail func(error), spec phaseSpec) {
	ready := r.bus.After(spec.reqs...)

	go func() {
		select {
		case <-ready:
		case <-ctx.Done():
			return
		}

		r.setStage(spec.entering)
		if r.obs != nil {
			r.obs.PhaseStarted(r.spool.Name(), spec.name)
		}
		start := time.Now()

		if spec.before != nil {
			if err := spec.before(); err != nil {
				r.fail(fail, spec.name, err)
				return
			}
		}

		if err := spec.hook(ctx); err != nil {
			r.fail(fail, spec.name, err)
			return
		}

		elapsed := time.Since(start)
		r.setStage(spec.done)
		if r.obs != nil {
			r.obs.PhaseCompleted(r.spool.Name(), spec.name, elapsed)
		}
		r.logger.Debug("phase complete",
			"phase", spec.name,
			"duration", elapsed,
			"signal", spec.doneSignal)

		r.bus.Emit(spec.doneSignal, r.spool.Name())
	}()
}

// fail logs and re-raises a phase-hook failure. The error is never
// swallowed: one missing completion signal can strand arbitrarily many
// other spools, so a failed phase is fatal to the whole boot.
func (r *Runtime) fail(fail func(error), phase string, err error) {
	r.logger.Error("phase failed",
		"phase", phase,
		"error", err)
	if r.obs != nil {
		r.obs.PhaseFailed(r.spool.Name(), phase)
	}
	if fail != nil {
		fail(errors.WrapFatal(
			fmt.Errorf("%w: spool %q phase %s: %w", errors.ErrBootFailed, r.spool.Name(), phase, err),
			"Runtime", phase, "spool hook"))
	}
}

// mergeDefaults folds the spool's default configuration sub-tree into the
// shared store under the spool's own namespace, without clobbering user
// overrides.
func (r *Runtime) mergeDefaults() error {
	defaults := r.spool.Defaults()
	if len(defaults) == 0 {
		return nil
	}
	_, err := r.store.Merge(config.Tree{r.spool.Name(): map[string]any(defaults)}, config.PolicyMerge)
	return err
}
