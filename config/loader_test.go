package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFileJSON(t *testing.T) {
	path := writeFile(t, "app.json", `{"main": {"maxListeners": 32}}`)

	tree, err := LoadFile(path)
	require.NoError(t, err)

	main := tree["main"].(map[string]any)
	assert.Equal(t, float64(32), main["maxListeners"])
}

func TestLoadFileYAML(t *testing.T) {
	path := writeFile(t, "app.yaml", "main:\n  resources:\n    - controllers\n    - events\n")

	tree, err := LoadFile(path)
	require.NoError(t, err)

	main := tree["main"].(map[string]any)
	assert.Equal(t, []any{"controllers", "events"}, main["resources"])
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestLoadFileMalformed(t *testing.T) {
	path := writeFile(t, "bad.json", `{"main":`)
	_, err := LoadFile(path)
	assert.Error(t, err)
}

func TestLoaderMergesLayersInOrder(t *testing.T) {
	base := writeFile(t, "base.json", `{"main": {"maxListeners": 16}, "svc": {"a": 1}}`)
	over := writeFile(t, "override.yaml", "svc:\n  a: 2\n  b: 3\n")

	loader := NewLoader()
	loader.AddLayer(base)
	loader.AddLayer(over)

	tree, err := loader.Load()
	require.NoError(t, err)

	svc := tree["svc"].(map[string]any)
	assert.Equal(t, 2, svc["a"])
	assert.Equal(t, 3, svc["b"])
	assert.Equal(t, float64(16), tree["main"].(map[string]any)["maxListeners"])
}

func TestLoaderPropagatesLayerErrors(t *testing.T) {
	loader := NewLoader()
	loader.AddLayer(filepath.Join(t.TempDir(), "absent.yaml"))

	_, err := loader.Load()
	assert.Error(t, err)
}
