package spool

import (
	"fmt"
	"sort"
	"sync"

	"github.com/c360/spoolkit/config"
	"github.com/c360/spoolkit/errors"
)

// Factory creates a spool instance from its configuration sub-tree. The
// factory performs no I/O; external work belongs in the lifecycle hooks.
type Factory func(cfg config.Tree) (Spool, error)

// Definition is one entry of the main.spools list: which factory to use,
// the instance name, and the instance configuration.
type Definition struct {
	Name   string
	Use    string // factory name; defaults to Name
	Config config.Tree
}

// Registry is a thread-safe factory registry. It is constructed once per
// application instance and passed by reference, never held in package
// globals, so independent applications share no mutable state.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty spool registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under the given name. Registering a duplicate
// name is a namespace collision and fails.
func (r *Registry) Register(name string, factory Factory) error {
	if name == "" {
		return errors.WrapInvalid(
			fmt.Errorf("factory name cannot be empty"),
			"Registry", "Register", "name validation")
	}
	if factory == nil {
		return errors.WrapInvalid(
			fmt.Errorf("factory cannot be nil"),
			"Registry", "Register", "factory validation")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return errors.WrapInvalid(
			fmt.Errorf("%w: %s", errors.ErrDuplicateSpool, name),
			"Registry", "Register", "duplicate factory check")
	}

	r.factories[name] = factory
	return nil
}

// Create instantiates a spool from a definition.
func (r *Registry) Create(def Definition) (Spool, error) {
	factoryName := def.Use
	if factoryName == "" {
		factoryName = def.Name
	}

	r.mu.RLock()
	factory, exists := r.factories[factoryName]
	r.mu.RUnlock()

	if !exists {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: %s", errors.ErrSpoolNotFound, factoryName),
			"Registry", "Create", "factory lookup")
	}

	s, err := factory(def.Config)
	if err != nil {
		return nil, errors.Wrap(err, "Registry", "Create", "factory execution")
	}
	return s, nil
}

// Names returns the registered factory names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definitions parses the ordered main.spools list of a configuration tree.
// Each element is either a bare factory name or a map with name, use and
// config keys.
func Definitions(tree config.Tree) ([]Definition, error) {
	main, ok := tree["main"].(map[string]any)
	if !ok {
		return nil, errors.WrapInvalid(errors.ErrMissingSection, "Registry", "Definitions", "main section check")
	}

	raw, ok := main["spools"].([]any)
	if !ok {
		if main["spools"] == nil {
			return nil, nil
		}
		return nil, errors.WrapInvalid(
			fmt.Errorf("main.spools must be an ordered list, got %T", main["spools"]),
			"Registry", "Definitions", "spool list check")
	}

	defs := make([]Definition, 0, len(raw))
	for i, entry := range raw {
		switch v := entry.(type) {
		case string:
			defs = append(defs, Definition{Name: v, Use: v})
		case map[string]any:
			def := Definition{}
			def.Name, _ = v["name"].(string)
			def.Use, _ = v["use"].(string)
			def.Config, _ = v["config"].(map[string]any)
			if def.Name == "" && def.Use == "" {
				return nil, errors.WrapInvalid(
					fmt.Errorf("spool definition %d has neither name nor use", i),
					"Registry", "Definitions", "definition check")
			}
			if def.Name == "" {
				def.Name = def.Use
			}
			defs = append(defs, def)
		default:
			return nil, errors.WrapInvalid(
				fmt.Errorf("spool definition %d has unsupported shape %T", i, entry),
				"Registry", "Definitions", "definition check")
		}
	}
	return defs, nil
}
