// Package spoolkit provides a signal-driven application bootstrapper that
// assembles an application from plugin modules ("spools") and drives them
// through a phased boot sequence to readiness.
//
// # Philosophy: Declarative Boot Order
//
// Spoolkit never computes a dependency graph. Each spool declares, per
// lifecycle phase, which signals must have fired before its hook may run;
// ordering emerges from signals alone:
//
//   - Every spool advances through validate, configure, initialize
//   - A phase starts when its global barrier AND the spool's declared
//     prerequisites have all fired
//   - Completing a phase emits spool:<name>:<phase>
//   - When every spool completes a phase, the global barrier for the next
//     phase fires: app:start → all:validated → all:configured →
//     all:initialized → app:ready
//
// A spool that needs the database configured before it configures itself
// simply lists spool:database:configured as a configure prerequisite. No
// central ordering, no topological sort, no registration-order coupling.
//
// # Architecture
//
//	┌─────────────────────────────────────┐
//	│            engine.App               │  Barriers, boot, stop
//	│ (one store, one bus, ordered spools)│  Resource buckets
//	└─────────────────────────────────────┘
//	           ↓ arms
//	┌─────────────────────────────────────┐
//	│         spool.Runtime               │  Per-spool state machine
//	│ (registered → … → initialized)      │  Phase goroutines
//	└─────────────────────────────────────┘
//	           ↓ gated by
//	┌─────────────────────────────────────┐
//	│     signal.Bus + After combinator   │  Named signals, FIFO
//	│  (AND of requirements, OR in each)  │  delivery, replay-aware
//	└─────────────────────────────────────┘
//
// Alongside the bus, every application owns exactly one config.Store: a
// layered configuration tree with a derived flat dotted-path index. The
// store is deep-merged from defaults, user config, and an environment
// overlay at build time, extended by each spool's Defaults() during
// configure, and frozen when all:configured fires.
//
// # Framework Packages
//
// Boot sequencing:
//   - engine: application assembly, global barriers, boot and stop
//   - spool: the Spool contract, stage machine, registry, phase runtimes
//   - signal: signal bus and the After prerequisite combinator
//
// Configuration:
//   - config: tree building, deep-merge policies, flattening, freeze
//
// Infrastructure:
//   - errors: structured error classification
//   - metric: Prometheus boot instrumentation
//
// # Usage Patterns
//
// Embedding spoolkit in an application:
//
//	registry := spool.NewRegistry()
//	registry.Register("database", database.New)
//	registry.Register("webserver", webserver.New)
//
//	app, _ := engine.New(engine.Options{
//	    User:     userConfig, // declares main.spools: ["database", "webserver"]
//	    Env:      "production",
//	    Registry: registry,
//	    Logger:   logger,
//	})
//
//	if err := app.Boot(ctx); err != nil {
//	    return err
//	}
//	defer app.Stop()
//
// Writing a spool:
//
//	type Database struct {
//	    spool.Base
//	    pool *Pool
//	}
//
//	func (d *Database) Name() string { return "database" }
//
//	func (d *Database) Defaults() config.Tree {
//	    return config.Tree{"maxConns": 10}
//	}
//
//	func (d *Database) Lifecycle() spool.Lifecycle {
//	    return spool.Lifecycle{
//	        // wait for the config spool before configuring
//	        Configure: []signal.Requirement{
//	            signal.Req(signal.SpoolConfigured("secrets")),
//	        },
//	    }
//	}
//
// # Design Principles
//
// One instance, one world:
//   - Each App owns its store, bus, and runtimes
//   - Instances share no mutable state and can coexist in one process
//
// Signals over graphs:
//   - Prerequisites are declared, never inferred
//   - A prerequisite satisfied before the listener arms still counts;
//     the bus replays completion signals to late waiters
//
// Fail loudly, fail whole:
//   - Any hook error aborts the entire boot
//   - The failing spool's completion signal is suppressed so no
//     downstream work starts on a broken foundation
//
// # Binary
//
// The spoolkit binary boots an application from a configuration file:
//
//	# Validate a configuration without booting
//	./bin/spoolkit --config configs/app.yaml --validate
//
//	# Boot with a production overlay and Prometheus metrics
//	./bin/spoolkit --config configs/app.yaml --env production --metrics-port 9090
//
// Business spools are registered by the embedding process; the standalone
// binary wires an empty registry and is primarily useful for configuration
// validation and boot-sequence testing.
package spoolkit
