package spool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/spoolkit/config"
	"github.com/c360/spoolkit/errors"
)

func TestStageString(t *testing.T) {
	tests := []struct {
		stage Stage
		want  string
	}{
		{StageRegistered, "registered"},
		{StageValidating, "validating"},
		{StageValidated, "validated"},
		{StageConfiguring, "configuring"},
		{StageConfigured, "configured"},
		{StageInitializing, "initializing"},
		{StageInitialized, "initialized"},
		{Stage(42), "unknown"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.stage.String())
	}
}

type baseOnly struct {
	Base
}

func (baseOnly) Name() string { return "base-only" }

func TestBaseProvidesNoOpHooks(t *testing.T) {
	var s Spool = baseOnly{}

	assert.Equal(t, Lifecycle{}, s.Lifecycle())
	assert.Nil(t, s.Defaults())
	assert.NoError(t, s.Validate(context.Background()))
	assert.NoError(t, s.Configure(context.Background()))
	assert.NoError(t, s.Initialize(context.Background()))
}

func TestRegistryRegisterAndCreate(t *testing.T) {
	registry := NewRegistry()

	require.NoError(t, registry.Register("base-only", func(config.Tree) (Spool, error) {
		return baseOnly{}, nil
	}))

	s, err := registry.Create(Definition{Name: "base-only"})
	require.NoError(t, err)
	assert.Equal(t, "base-only", s.Name())
}

func TestRegistryCreateWithUse(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register("generic", func(config.Tree) (Spool, error) {
		return baseOnly{}, nil
	}))

	_, err := registry.Create(Definition{Name: "instance-a", Use: "generic"})
	assert.NoError(t, err)
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	registry := NewRegistry()
	factory := func(config.Tree) (Spool, error) { return baseOnly{}, nil }

	require.NoError(t, registry.Register("dup", factory))
	err := registry.Register("dup", factory)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrDuplicateSpool)
}

func TestRegistryRejectsInvalidRegistrations(t *testing.T) {
	registry := NewRegistry()

	assert.Error(t, registry.Register("", func(config.Tree) (Spool, error) { return nil, nil }))
	assert.Error(t, registry.Register("nil-factory", nil))
}

func TestRegistryCreateUnknownFactory(t *testing.T) {
	registry := NewRegistry()

	_, err := registry.Create(Definition{Name: "ghost"})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrSpoolNotFound)
}

func TestRegistryNamesSorted(t *testing.T) {
	registry := NewRegistry()
	factory := func(config.Tree) (Spool, error) { return baseOnly{}, nil }
	require.NoError(t, registry.Register("zeta", factory))
	require.NoError(t, registry.Register("alpha", factory))

	assert.Equal(t, []string{"alpha", "zeta"}, registry.Names())
}

func TestDefinitionsParsing(t *testing.T) {
	tree := config.Tree{
		"main": config.Tree{
			"spools": []any{
				"plain",
				map[string]any{"name": "db", "use": "database", "config": map[string]any{"dsn": "x"}},
				map[string]any{"use": "cache"},
			},
		},
	}

	defs, err := Definitions(tree)
	require.NoError(t, err)
	require.Len(t, defs, 3)

	assert.Equal(t, Definition{Name: "plain", Use: "plain"}, defs[0])
	assert.Equal(t, "db", defs[1].Name)
	assert.Equal(t, "database", defs[1].Use)
	assert.Equal(t, "x", defs[1].Config["dsn"])
	assert.Equal(t, "cache", defs[2].Name)
}

func TestDefinitionsEmptyAndMissing(t *testing.T) {
	defs, err := Definitions(config.Tree{"main": config.Tree{}})
	require.NoError(t, err)
	assert.Empty(t, defs)

	_, err = Definitions(config.Tree{})
	assert.ErrorIs(t, err, errors.ErrMissingSection)
}

func TestDefinitionsRejectsMalformedEntries(t *testing.T) {
	_, err := Definitions(config.Tree{"main": config.Tree{"spools": []any{42}}})
	assert.Error(t, err)

	_, err = Definitions(config.Tree{"main": config.Tree{"spools": []any{map[string]any{"config": map[string]any{}}}}})
	assert.Error(t, err)

	_, err = Definitions(config.Tree{"main": config.Tree{"spools": "nope"}})
	assert.Error(t, err)
}
