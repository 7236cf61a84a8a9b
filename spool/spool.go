// Package spool defines the plugin contract of the bootstrapper and the
// per-spool lifecycle runtime. A spool is an independently-authored module
// contributing configuration defaults, lifecycle hooks, and API surface;
// the runtime drives each one through validate, configure and initialize,
// gated on named signals rather than a static dependency graph.
package spool

import (
	"context"

	"github.com/c360/spoolkit/config"
	"github.com/c360/spoolkit/signal"
)

// Stage represents the current lifecycle stage of a spool
type Stage int

const (
	// StageRegistered indicates the spool is bound to an application but
	// no phase has begun
	StageRegistered Stage = iota
	// StageValidating indicates the validate hook is running
	StageValidating
	// StageValidated indicates the validate hook completed
	StageValidated
	// StageConfiguring indicates the configure hook is running
	StageConfiguring
	// StageConfigured indicates the configure hook completed
	StageConfigured
	// StageInitializing indicates the initialize hook is running
	StageInitializing
	// StageInitialized indicates the spool finished its whole lifecycle
	StageInitialized
)

// String returns a string representation of the stage
func (s Stage) String() string {
	switch s {
	case StageRegistered:
		return "registered"
	case StageValidating:
		return "validating"
	case StageValidated:
		return "validated"
	case StageConfiguring:
		return "configuring"
	case StageConfigured:
		return "configured"
	case StageInitializing:
		return "initializing"
	case StageInitialized:
		return "initialized"
	default:
		return "unknown"
	}
}

// Lifecycle lists the extra prerequisite signals a spool declares per
// phase, beyond the global barrier each phase is always gated on. Each
// requirement is a single signal name or an alternative-group.
type Lifecycle struct {
	Validate   []signal.Requirement
	Configure  []signal.Requirement
	Initialize []signal.Requirement
}

// Meta holds descriptive package metadata for a spool.
type Meta struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
}

// Spool is the static capability interface every plugin implementation
// must satisfy. Hooks return only when their phase work is done; any error
// is fatal to the whole boot.
type Spool interface {
	// Name is the unique identity of the spool; completion signals are
	// derived from it.
	Name() string

	// Lifecycle declares extra per-phase prerequisite signals.
	Lifecycle() Lifecycle

	// Defaults returns the spool's default configuration sub-tree, folded
	// into the store under the spool's own namespace without overwriting
	// user values.
	Defaults() config.Tree

	Validate(ctx context.Context) error
	Configure(ctx context.Context) error
	Initialize(ctx context.Context) error
}

// MetaProvider is an optional capability for spools that carry package
// metadata.
type MetaProvider interface {
	Meta() Meta
}

// Extender is an optional capability for spools contributing named
// extensions merged onto the application.
type Extender interface {
	Extensions() map[string]any
}

// APIContributor is an optional capability for spools contributing API
// entries to the application's resource buckets (controllers, services,
// models, ...). The outer key is the bucket name.
type APIContributor interface {
	API() map[string]map[string]any
}

// Base is an embeddable no-op implementation of the optional parts of the
// Spool contract. Authors embed it and override what they need; Name must
// always be supplied by the embedding type.
type Base struct{}

// Lifecycle declares no extra prerequisites.
func (Base) Lifecycle() Lifecycle { return Lifecycle{} }

// Defaults contributes no default configuration.
func (Base) Defaults() config.Tree { return nil }

// Validate is a no-op.
func (Base) Validate(context.Context) error { return nil }

// Configure is a no-op.
func (Base) Configure(context.Context) error { return nil }

// Initialize is a no-op.
func (Base) Initialize(context.Context) error { return nil }
