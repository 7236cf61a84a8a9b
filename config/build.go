package config

import (
	"fmt"
	"path/filepath"

	"github.com/c360/spoolkit/errors"
)

// DefaultResources is the resource bucket list applied when main.resources
// is unset.
var DefaultResources = []string{"controllers", "policies", "services", "models", "resolvers"}

// Defaults returns the defaults template every application starts from.
// Derived paths hang off the supplied root directory.
func Defaults(root string) Tree {
	resources := make([]any, len(DefaultResources))
	for i, name := range DefaultResources {
		resources[i] = name
	}

	return Tree{
		"main": Tree{
			"paths": Tree{
				"root":    root,
				"temp":    filepath.Join(root, "temp"),
				"sockets": filepath.Join(root, "temp", "sockets"),
				"logs":    filepath.Join(root, "temp", "log"),
			},
			"resources":    resources,
			"maxListeners": 128,
			"spools":       []any{},
			"freezeConfig": true,
			"createPaths":  true,
		},
	}
}

// Build deep-merges the defaults template, the user-supplied tree, the
// environment-specific overlay, and {env: env}, in that precedence (later
// overrides earlier at leaf level; lists are replaced wholesale). The
// merged tree is validated before it is returned.
func Build(user, envOverlay Tree, env, root string) (Tree, error) {
	tree := DeepMerge(Defaults(root), user)
	tree = DeepMerge(tree, envOverlay)
	tree = DeepMerge(tree, Tree{"env": env})

	if _, ok := tree["main"].(map[string]any); !ok {
		return nil, errors.WrapInvalid(errors.ErrMissingSection, "Config", "Build", "main section check")
	}
	if _, err := Resources(tree); err != nil {
		return nil, err
	}

	return tree, nil
}

// ExtractEnv returns the overlay for env from the user tree's
// "environments" section, or nil when no overlay is declared.
func ExtractEnv(user Tree, env string) Tree {
	environments, ok := user["environments"].(map[string]any)
	if !ok {
		return nil
	}
	overlay, _ := environments[env].(map[string]any)
	return overlay
}

// Resources returns the resource bucket names declared by main.resources.
// Any non-list shape fails with a value error.
func Resources(tree Tree) ([]string, error) {
	main, ok := tree["main"].(map[string]any)
	if !ok {
		return nil, errors.WrapInvalid(errors.ErrMissingSection, "Config", "Resources", "main section check")
	}

	switch raw := main["resources"].(type) {
	case []any:
		names := make([]string, 0, len(raw))
		for _, item := range raw {
			name, ok := item.(string)
			if !ok {
				return nil, errors.WrapInvalid(
					fmt.Errorf("%w: element %v is not a string", errors.ErrInvalidResources, item),
					"Config", "Resources", "resource name check")
			}
			names = append(names, name)
		}
		return names, nil
	case []string:
		return raw, nil
	default:
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: got %T", errors.ErrInvalidResources, raw),
			"Config", "Resources", "resource list check")
	}
}
