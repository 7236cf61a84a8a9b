package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Loader loads and merges configuration file layers. Later layers override
// earlier ones at leaf level.
type Loader struct {
	layers []string
}

// NewLoader creates a new configuration loader with no layers.
func NewLoader() *Loader {
	return &Loader{}
}

// AddLayer appends a configuration file layer.
func (l *Loader) AddLayer(path string) {
	l.layers = append(l.layers, path)
}

// Load reads every layer and deep-merges them in order.
func (l *Loader) Load() (Tree, error) {
	tree := make(Tree)
	for _, path := range l.layers {
		layer, err := LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
		tree = DeepMerge(tree, layer)
	}
	return tree, nil
}

// LoadFile reads a single JSON or YAML configuration file, selected by
// extension (.yaml/.yml parse as YAML, everything else as JSON).
func LoadFile(path string) (Tree, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from operator flags
	if err != nil {
		return nil, err
	}

	var tree Tree
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &tree); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &tree); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
	}

	return normalizeTree(tree), nil
}

// normalizeTree rewrites yaml-style map[any]any nodes into map[string]any
// so loaded trees flatten and merge like natively-built ones.
func normalizeTree(tree Tree) Tree {
	out := make(Tree, len(tree))
	for key, value := range tree {
		out[key] = normalizeValue(value)
	}
	return out
}

func normalizeValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return normalizeTree(v)
	case map[any]any:
		out := make(Tree, len(v))
		for key, val := range v {
			out[fmt.Sprint(key)] = normalizeValue(val)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, val := range v {
			out[i] = normalizeValue(val)
		}
		return out
	default:
		return value
	}
}
