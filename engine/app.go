// Package engine assembles one application instance from a configuration
// tree and an ordered set of spools, and sequences the global boot
// barriers: app:start through all:validated, all:configured,
// all:initialized to app:ready.
package engine

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/c360/spoolkit/config"
	"github.com/c360/spoolkit/errors"
	"github.com/c360/spoolkit/metric"
	"github.com/c360/spoolkit/signal"
	"github.com/c360/spoolkit/spool"
)

// Options configures application construction.
type Options struct {
	// User is the user-supplied configuration tree.
	User config.Tree

	// EnvOverlay is the environment-specific overlay. When nil it is
	// extracted from User's "environments" section for Env.
	EnvOverlay config.Tree

	// Env names the current environment. Defaults to "development".
	Env string

	// Root is the base directory the default paths derive from.
	// Defaults to ".".
	Root string

	// Registry supplies factories for the spool definitions in
	// main.spools. Optional when Spools are passed directly.
	Registry *spool.Registry

	// Spools are directly-supplied instances, appended in order after
	// the ones created from main.spools.
	Spools []spool.Spool

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Metrics enables boot instrumentation when non-nil.
	Metrics *metric.Registry

	// BootTimeout bounds the whole boot sequence. Zero means no deadline:
	// an unsatisfiable prerequisite then hangs the boot until ctx is
	// cancelled.
	BootTimeout time.Duration
}

// App is one application instance: it owns exactly one configuration
// store, one signal bus, and the ordered spool runtimes. Instances share
// no mutable state; an App cannot be restarted after Stop.
type App struct {
	id     string
	env    string
	store  *config.Store
	bus    *signal.Bus
	logger *slog.Logger

	runtimes []*spool.Runtime
	names    []string

	resources  map[string]map[string]any
	extensions map[string]any

	bootMetrics *metric.BootMetrics
	bootTimeout time.Duration

	booted   atomic.Bool
	ready    atomic.Bool
	stopped  atomic.Bool
	failOnce sync.Once
	failed   chan error
}

// New constructs an application from a merged, validated configuration
// tree and the declared spools. Construction-time validation errors are
// synchronous; nothing is booted yet.
func New(opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	env := opts.Env
	if env == "" {
		env = "development"
	}
	root := opts.Root
	if root == "" {
		root = "."
	}

	overlay := opts.EnvOverlay
	if overlay == nil {
		overlay = config.ExtractEnv(opts.User, env)
	}

	tree, err := config.Build(opts.User, overlay, env, root)
	if err != nil {
		return nil, err
	}

	resourceNames, err := config.Resources(tree)
	if err != nil {
		return nil, err
	}

	store := config.NewStore(tree)
	bus := signal.NewBus(logger)
	if max, ok := intValue(store.Get("main.maxListeners")); ok {
		bus.SetMaxListeners(max)
	}

	app := &App{
		id:          uuid.NewString(),
		env:         env,
		store:       store,
		bus:         bus,
		logger:      logger.With("app", "spoolkit"),
		resources:   make(map[string]map[string]any, len(resourceNames)),
		extensions:  make(map[string]any),
		bootTimeout: opts.BootTimeout,
		failed:      make(chan error, 1),
	}
	for _, bucket := range resourceNames {
		app.resources[bucket] = make(map[string]any)
	}

	if opts.Metrics != nil {
		bootMetrics, err := metric.NewBootMetrics(opts.Metrics)
		if err != nil {
			logger.Error("Failed to initialize boot metrics", "error", err)
		} else {
			app.bootMetrics = bootMetrics
		}
	}

	spools, err := collectSpools(tree, opts)
	if err != nil {
		return nil, err
	}

	deps := spool.Deps{Bus: bus, Store: store, Logger: logger}
	if app.bootMetrics != nil {
		deps.Observer = app.bootMetrics
	}

	seen := make(map[string]bool, len(spools))
	for _, s := range spools {
		if seen[s.Name()] {
			return nil, errors.WrapInvalid(
				fmt.Errorf("%w: %s", errors.ErrDuplicateSpool, s.Name()),
				"App", "New", "spool name collision check")
		}
		seen[s.Name()] = true

		rt, err := spool.NewRuntime(s, deps)
		if err != nil {
			return nil, err
		}
		app.runtimes = append(app.runtimes, rt)
		app.names = append(app.names, s.Name())

		if provider, ok := s.(spool.MetaProvider); ok {
			meta := provider.Meta()
			app.logger.Debug("Spool registered",
				"spool", s.Name(),
				"version", meta.Version,
				"description", meta.Description)
		}

		if err := app.bindContributions(s); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// collectSpools instantiates the main.spools definitions through the
// registry, then appends directly-supplied instances in order.
func collectSpools(tree config.Tree, opts Options) ([]spool.Spool, error) {
	defs, err := spool.Definitions(tree)
	if err != nil {
		return nil, err
	}

	spools := make([]spool.Spool, 0, len(defs)+len(opts.Spools))
	if len(defs) > 0 {
		if opts.Registry == nil {
			return nil, errors.WrapInvalid(
				fmt.Errorf("%w: main.spools declared but no registry supplied", errors.ErrSpoolNotFound),
				"App", "New", "registry check")
		}
		for _, def := range defs {
			s, err := opts.Registry.Create(def)
			if err != nil {
				return nil, err
			}
			spools = append(spools, s)
		}
	}

	return append(spools, opts.Spools...), nil
}

// bindContributions merges a spool's API entries into the resource buckets
// and its extensions onto the application.
func (a *App) bindContributions(s spool.Spool) error {
	if contributor, ok := s.(spool.APIContributor); ok {
		for bucket, entries := range contributor.API() {
			target, ok := a.resources[bucket]
			if !ok {
				return errors.WrapInvalid(
					fmt.Errorf("%w: %q contributed by spool %s", errors.ErrUnknownResource, bucket, s.Name()),
					"App", "New", "resource bucket check")
			}
			for name, entry := range entries {
				if _, exists := target[name]; exists {
					return errors.WrapInvalid(
						fmt.Errorf("resource %s.%s already contributed", bucket, name),
						"App", "New", "resource collision check")
				}
				target[name] = entry
			}
		}
	}

	if extender, ok := s.(spool.Extender); ok {
		for name, value := range extender.Extensions() {
			if _, exists := a.extensions[name]; exists {
				return errors.WrapInvalid(
					fmt.Errorf("extension %q already registered", name),
					"App", "New", "extension collision check")
			}
			a.extensions[name] = value
		}
	}

	return nil
}

// ID returns the unique identifier of this application instance.
func (a *App) ID() string { return a.id }

// Env returns the environment name the application was built for.
func (a *App) Env() string { return a.env }

// Config returns the application's configuration store.
func (a *App) Config() *config.Store { return a.store }

// Bus returns the application's signal bus.
func (a *App) Bus() *signal.Bus { return a.bus }

// SpoolNames returns the spool names in registration order.
func (a *App) SpoolNames() []string {
	names := make([]string, len(a.names))
	copy(names, a.names)
	return names
}

// Stage returns the lifecycle stage of a named spool.
func (a *App) Stage(name string) (spool.Stage, bool) {
	for _, rt := range a.runtimes {
		if rt.Spool().Name() == name {
			return rt.Stage(), true
		}
	}
	return 0, false
}

// Resources returns one resource bucket's contributions.
func (a *App) Resources(bucket string) (map[string]any, bool) {
	entries, ok := a.resources[bucket]
	return entries, ok
}

// Extension returns a named extension contributed by a spool.
func (a *App) Extension(name string) (any, bool) {
	value, ok := a.extensions[name]
	return value, ok
}

// Ready reports whether the boot sequence completed successfully.
func (a *App) Ready() bool { return a.ready.Load() }

// intValue coerces config numbers, which arrive as int from native trees
// or float64 from JSON, into an int.
func intValue(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
