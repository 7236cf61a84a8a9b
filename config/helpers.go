package config

// DeepMerge recursively merges override into base, returning a new tree.
// Maps merge key by key; any other value in override replaces the base
// value wholesale, so lists are replaced, not concatenated. Nil override
// values are skipped.
func DeepMerge(base, override Tree) Tree {
	result := make(Tree, len(base))
	for key, value := range base {
		result[key] = value
	}

	for key, value := range override {
		if value == nil {
			continue
		}
		if baseMap, ok := result[key].(map[string]any); ok {
			if overrideMap, ok := value.(map[string]any); ok {
				result[key] = DeepMerge(baseMap, overrideMap)
				continue
			}
		}
		result[key] = value
	}

	return result
}

// mergeUnder merges incoming beneath existing: where both sides are maps
// they merge recursively, and everywhere else the existing value wins.
// This is the PolicyMerge conflict rule.
func mergeUnder(incoming, existing any) any {
	incomingMap, inOK := incoming.(map[string]any)
	existingMap, exOK := existing.(map[string]any)
	if inOK && exOK {
		return DeepMerge(incomingMap, existingMap)
	}
	return existing
}

// setPath writes value at the given path, creating intermediate maps as
// needed. A non-map intermediate is replaced by a map.
func setPath(tree Tree, path []string, value any) {
	node := tree
	for _, segment := range path[:len(path)-1] {
		next, ok := node[segment].(map[string]any)
		if !ok {
			next = make(map[string]any)
			node[segment] = next
		}
		node = next
	}
	node[path[len(path)-1]] = value
}

// cloneTree returns a deep copy of a tree.
func cloneTree(tree Tree) Tree {
	if tree == nil {
		return make(Tree)
	}
	return copyValue(tree).(Tree)
}

// copyValue deep-copies maps and lists; scalars are returned as is.
func copyValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, val := range v {
			out[key] = copyValue(val)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, val := range v {
			out[i] = copyValue(val)
		}
		return out
	default:
		return value
	}
}
