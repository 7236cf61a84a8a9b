// Package config provides the layered configuration store the boot
// sequence synchronizes against: a tree-structured key/value store with
// dotted-path flattening, three-policy deep merge, and a freeze/unfreeze
// immutability gate.
package config

import (
	"encoding/json"
	"sort"
	"strings"
	"sync"

	"github.com/c360/spoolkit/errors"
)

// Tree is a nested configuration tree. Values are scalars, lists, or
// nested map[string]any subtrees.
type Tree = map[string]any

// Policy selects the conflict behavior when merging a tree into the store.
type Policy string

const (
	// PolicyHold overwrites existing values with new ones.
	PolicyHold Policy = "hold"
	// PolicyMerge deep-merges new values under existing ones; existing
	// leaves win on conflict. This is the defaults-style merge spools use
	// so their defaults never clobber user overrides.
	PolicyMerge Policy = "merge"
	// PolicyReplaceable leaves existing keys entirely untouched.
	PolicyReplaceable Policy = "replaceable"
)

// Flatten walks a nested tree and produces, for every reachable path, a
// dotted-path key mapped to the sub-value at that path. Both composite
// subtrees and their descendant leaves appear as separate entries, so
// lookups of "main.paths" and "main.paths.root" both resolve. Lists are
// leaves; they are not descended into.
func Flatten(tree Tree) map[string]any {
	flat := make(map[string]any)
	flattenInto(flat, "", tree)
	return flat
}

func flattenInto(flat map[string]any, prefix string, tree Tree) {
	for key, value := range tree {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		flat[path] = value
		if sub, ok := value.(map[string]any); ok {
			flattenInto(flat, path, sub)
		}
	}
}

// Store owns all configuration entries for one application instance. The
// nested tree is the source of truth; the flat index is rebuilt on every
// mutation so ancestors and descendants stay in sync.
//
// Once frozen, every mutation fails with an access error and every read
// returns a defensive deep copy, so mutating a retrieved sub-tree never
// affects the store. Reads are always permitted.
type Store struct {
	mu        sync.RWMutex
	tree      Tree
	flat      map[string]any
	immutable bool
}

// NewStore creates a store owning a deep copy of tree.
func NewStore(tree Tree) *Store {
	owned := cloneTree(tree)
	return &Store{
		tree: owned,
		flat: Flatten(owned),
	}
}

// Get returns the value at a dotted path, or nil when absent. While the
// store is mutable the returned value is a live view; once frozen it is a
// deep copy at every level.
func (s *Store) Get(key string) any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.flat[key]
	if !ok {
		return nil
	}
	if s.immutable {
		return copyValue(value)
	}
	return value
}

// Has reports whether a dotted path is present.
func (s *Store) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.flat[key]
	return ok
}

// Set inserts or overwrites the value at a dotted path. It fails with an
// access error once the store is frozen.
func (s *Store) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.immutable {
		return errors.WrapAccess(errors.ErrImmutableConfig, "Store", "Set", "write "+key)
	}

	setPath(s.tree, strings.Split(key, "."), value)
	s.flat = Flatten(s.tree)
	return nil
}

// Merge flattens tree and folds every resulting key into the store under
// the given policy. It reports, for each processed key, whether the key
// already existed. Merging into a frozen store fails with an access error.
//
// Keys are applied shallowest-first so a composite subtree is written
// before its own leaves re-apply; the result is identical either way but
// the order keeps the walk deterministic.
func (s *Store) Merge(tree Tree, policy Policy) (map[string]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.immutable {
		return nil, errors.WrapAccess(errors.ErrImmutableConfig, "Store", "Merge", "merge under policy "+string(policy))
	}

	incoming := Flatten(tree)
	keys := make([]string, 0, len(incoming))
	for key := range incoming {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	// Existence is judged against the pre-merge index: applying a composite
	// parent first would otherwise make its own leaves look pre-existing.
	before := make(map[string]bool, len(s.flat))
	for key := range s.flat {
		before[key] = true
	}

	existed := make(map[string]bool, len(keys))
	for _, key := range keys {
		value := incoming[key]
		existed[key] = before[key]

		switch {
		case !before[key] || policy == PolicyHold:
			setPath(s.tree, strings.Split(key, "."), value)
			s.flat = Flatten(s.tree)
		case policy == PolicyMerge:
			setPath(s.tree, strings.Split(key, "."), mergeUnder(value, s.flat[key]))
			s.flat = Flatten(s.tree)
		case policy == PolicyReplaceable:
			// Existing key stays untouched.
		}
	}

	return existed, nil
}

// Freeze makes the store immutable. Reading remains permitted.
func (s *Store) Freeze() {
	s.mu.Lock()
	s.immutable = true
	s.mu.Unlock()
}

// Unfreeze makes the store mutable again. The engine calls this exactly
// once, at app:stop.
func (s *Store) Unfreeze() {
	s.mu.Lock()
	s.immutable = false
	s.mu.Unlock()
}

// Immutable reports whether the store is frozen.
func (s *Store) Immutable() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.immutable
}

// String returns an indented JSON rendering of the tree.
func (s *Store) String() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, _ := json.MarshalIndent(s.tree, "", "  ")
	return string(data)
}
