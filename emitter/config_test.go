package emitter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	liberrors "github.com/telemetry-go/eventlog/errors"
)

func TestParseAllowedSchemasConfig_Nil(t *testing.T) {
	got, err := ParseAllowedSchemasConfig(nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestParseAllowedSchemasConfig_LegacyList(t *testing.T) {
	got, err := ParseAllowedSchemasConfig([]any{"a.schema", "b.schema"})
	require.NoError(t, err)
	assert.Equal(t, map[string]SchemaPolicy{
		"a.schema": {},
		"b.schema": {},
	}, got)
}

func TestParseAllowedSchemasConfig_LegacyList_RejectsNonString(t *testing.T) {
	_, err := ParseAllowedSchemasConfig([]any{42})
	require.Error(t, err)
	var pe *liberrors.PolicyError
	require.ErrorAs(t, err, &pe)
}

func TestParseAllowedSchemasConfig_ExplicitPolicy(t *testing.T) {
	got, err := ParseAllowedSchemasConfig(map[string]any{
		"a.schema": map[string]any{
			"allowed_categories": []any{"pii", "user-id"},
			"allowed_properties": []any{"c"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, SchemaPolicy{
		AllowedCategories: []string{"pii", "user-id"},
		AllowedProperties: []string{"c"},
	}, got["a.schema"])
}

func TestParseAllowedSchemasConfig_RejectsUnknownKey(t *testing.T) {
	_, err := ParseAllowedSchemasConfig(map[string]any{
		"a.schema": map[string]any{
			"allowed_categries": []any{"pii"}, // typo
		},
	})
	require.Error(t, err)
	var pe *liberrors.PolicyError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "allowed_categries", pe.Key)
}

func TestParseAllowedSchemasConfig_RejectsWrongValueType(t *testing.T) {
	_, err := ParseAllowedSchemasConfig(map[string]any{
		"a.schema": map[string]any{
			"allowed_categories": "pii",
		},
	})
	require.Error(t, err)
}

func TestNewConfig_SurfacesPolicyError(t *testing.T) {
	_, err := NewConfig(WithAllowedSchemasConfig(map[string]any{
		"a.schema": map[string]any{"bogus": true},
	}))
	require.Error(t, err)
	var pe *liberrors.PolicyError
	require.ErrorAs(t, err, &pe)
}

func TestNewConfig_Defaults(t *testing.T) {
	cfg, err := NewConfig()
	require.NoError(t, err)
	assert.NotNil(t, cfg.Registry)
	assert.NotNil(t, cfg.Validator)
	assert.NotNil(t, cfg.Logger)
	assert.Empty(t, cfg.Sinks)
	assert.Empty(t, cfg.AllowedSchemas)
}
