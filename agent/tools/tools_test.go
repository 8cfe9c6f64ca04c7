package tools

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// fixtureSpec mirrors the shape a deployment's tool catalog is described in
// on disk: just enough to check that DefaultSpecs' schema-facing fields
// (name, description, required parameters) haven't drifted from the
// checked-in catalog without anyone noticing.
type fixtureSpec struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Required    []string `yaml:"required"`
}

func loadFixtureSpecs(t *testing.T) []fixtureSpec {
	t.Helper()
	data, err := os.ReadFile("testdata/tool_specs.yaml")
	require.NoError(t, err)

	var fixtures []fixtureSpec
	require.NoError(t, yaml.Unmarshal(data, &fixtures))
	return fixtures
}

func requiredOf(spec Spec) []string {
	req, ok := spec.Parameters["required"]
	if !ok {
		return nil
	}
	items, ok := req.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.(string))
	}
	return out
}

// TestDefaultSpecsMatchCheckedInFixture loads the catalog from
// testdata/tool_specs.yaml and checks it describes exactly the tools
// DefaultSpecs returns, field for field.
func TestDefaultSpecsMatchCheckedInFixture(t *testing.T) {
	t.Parallel()

	fixtures := loadFixtureSpecs(t)
	specs := DefaultSpecs(nil)
	require.Len(t, fixtures, len(specs))

	byName := make(map[Ident]Spec, len(specs))
	for _, s := range specs {
		byName[s.Name] = s
	}

	for _, f := range fixtures {
		spec, ok := byName[Ident(f.Name)]
		require.True(t, ok, "fixture names tool %q that DefaultSpecs does not return", f.Name)
		assert.Equal(t, f.Description, spec.Description, "description drift for %q", f.Name)
		assert.ElementsMatch(t, f.Required, requiredOf(spec), "required-parameter drift for %q", f.Name)
	}
}

// TestRegistryRegistersEveryFixtureTool exercises the Registry against the
// same fixture: every tool the catalog names must register and round-trip
// through Lookup/Names without collision.
func TestRegistryRegistersEveryFixtureTool(t *testing.T) {
	t.Parallel()

	fixtures := loadFixtureSpecs(t)
	registry := NewRegistry()
	for _, spec := range DefaultSpecs(nil) {
		require.NoError(t, registry.Register(spec))
	}

	names := registry.Names()
	assert.Len(t, names, len(fixtures))

	for _, f := range fixtures {
		spec, ok := registry.Lookup(Ident(f.Name))
		require.True(t, ok, "fixture tool %q not registered", f.Name)
		assert.Equal(t, Ident(f.Name), spec.Name)
	}
}

func TestRegisterRejectsDuplicateName(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	specs := DefaultSpecs(nil)
	require.NoError(t, registry.Register(specs[0]))

	err := registry.Register(specs[0])
	require.Error(t, err)
	var dup *DuplicateToolError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, specs[0].Name, dup.Name)
}
