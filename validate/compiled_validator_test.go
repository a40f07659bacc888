package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telemetry-go/eventlog/schema"
)

func TestCompiledValidator_ValidEvent(t *testing.T) {
	v := NewCompiledValidator()
	s := testSchema(t)
	err := v.Validate(map[string]any{"name": "ada", "age": float64(30)}, s)
	assert.NoError(t, err)
}

func TestCompiledValidator_MissingRequired(t *testing.T) {
	v := NewCompiledValidator()
	s := testSchema(t)
	err := v.Validate(map[string]any{"age": float64(30)}, s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name")
}

func TestCompiledValidator_WrongType(t *testing.T) {
	v := NewCompiledValidator()
	s := testSchema(t)
	err := v.Validate(map[string]any{"name": 5}, s)
	require.Error(t, err)
}

func TestCompiledValidator_NestedArrayItems(t *testing.T) {
	v := NewCompiledValidator()
	doc := map[string]any{
		"$id":     "nested.test",
		"version": 1,
		"type":    "object",
		"properties": map[string]any{
			"users": map[string]any{
				"type":       "array",
				"categories": []any{"user-id"},
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"email": map[string]any{"type": "string", "categories": []any{"pii"}},
					},
				},
			},
		},
	}
	s, err := schema.FromDocument(doc)
	require.NoError(t, err)

	event := map[string]any{
		"users": []any{
			map[string]any{"email": "a@example.com"},
			map[string]any{"email": 5},
		},
	}
	err = v.Validate(event, s)
	require.Error(t, err)
}

func TestCompiledValidator_CachesCompiledSchema(t *testing.T) {
	v := NewCompiledValidator()
	s := testSchema(t)
	first, err := v.compile(s)
	require.NoError(t, err)
	second, err := v.compile(s)
	require.NoError(t, err)
	assert.NotNil(t, first)
	assert.NotNil(t, second)
	assert.Len(t, v.compiled, 1)
	assert.Contains(t, v.compiled, schema.Key{ID: s.ID, Version: s.Version})
}
