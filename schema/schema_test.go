package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	liberrors "github.com/telemetry-go/eventlog/errors"
)

func validDoc() map[string]any {
	return map[string]any{
		"$id":     "test.schema",
		"version": 1,
		"properties": map[string]any{
			"a": map[string]any{"categories": []any{"unrestricted"}},
			"b": map[string]any{"categories": []any{"user-id"}},
		},
	}
}

func TestFromDocument_Valid(t *testing.T) {
	s, err := FromDocument(validDoc())
	require.NoError(t, err)
	assert.Equal(t, "test.schema", s.ID)
	assert.Equal(t, 1, s.Version)
}

func TestFromDocument_MissingID(t *testing.T) {
	doc := validDoc()
	delete(doc, "$id")
	_, err := FromDocument(doc)
	require.Error(t, err)
	var se *liberrors.SchemaError
	require.ErrorAs(t, err, &se)
}

func TestFromDocument_MissingVersion(t *testing.T) {
	doc := validDoc()
	delete(doc, "version")
	_, err := FromDocument(doc)
	require.Error(t, err)
}

func TestFromDocument_MissingProperties(t *testing.T) {
	doc := validDoc()
	delete(doc, "properties")
	_, err := FromDocument(doc)
	require.Error(t, err)
}

func TestFromDocument_ReservedPropertyName(t *testing.T) {
	doc := validDoc()
	doc["properties"].(map[string]any)["__reserved"] = map[string]any{"categories": []any{"unrestricted"}}
	_, err := FromDocument(doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "__reserved")
}

func TestFromDocument_MissingCategories(t *testing.T) {
	doc := validDoc()
	doc["properties"].(map[string]any)["c"] = map[string]any{}
	_, err := FromDocument(doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "categories")
}

func TestFromDocument_CategoriesMustBeList(t *testing.T) {
	doc := validDoc()
	doc["properties"].(map[string]any)["c"] = map[string]any{"categories": "x"}
	_, err := FromDocument(doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be a list")
}

func TestFromDocument_EmptyCategories(t *testing.T) {
	doc := validDoc()
	doc["properties"].(map[string]any)["c"] = map[string]any{"categories": []any{}}
	_, err := FromDocument(doc)
	require.Error(t, err)
}

func TestFromDocument_UnrestrictedMustStandAlone(t *testing.T) {
	doc := validDoc()
	doc["properties"].(map[string]any)["c"] = map[string]any{"categories": []any{"unrestricted", "pii"}}
	_, err := FromDocument(doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unrestricted")
}

func TestKey_String(t *testing.T) {
	k := Key{ID: "test.schema", Version: 2}
	assert.Equal(t, "test.schema@2", k.String())
}
