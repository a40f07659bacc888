package redact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telemetry-go/eventlog/categories"
	"github.com/telemetry-go/eventlog/schema"
)

func extract(t *testing.T, doc, event map[string]any) map[string]categories.Annotation {
	t.Helper()
	s, err := schema.FromDocument(doc)
	require.NoError(t, err)
	return categories.Extract(event, s)
}

func basicDoc() map[string]any {
	return map[string]any{
		"$id":     "basic",
		"version": 1,
		"properties": map[string]any{
			"a": map[string]any{"categories": []any{"unrestricted"}},
			"b": map[string]any{"categories": []any{"user-id"}},
			"c": map[string]any{"categories": []any{"pii"}},
		},
	}
}

func TestApply_UnrestrictedOnly(t *testing.T) {
	event := map[string]any{"a": "x", "b": "y", "c": "z"}
	anns := extract(t, basicDoc(), event)

	out := Apply(event, anns, map[string]bool{"unrestricted": true}, nil)
	assert.Equal(t, map[string]any{"a": "x", "b": nil, "c": nil}, out)
}

func TestApply_CategoryAllow(t *testing.T) {
	event := map[string]any{"a": "x", "b": "y", "c": "z"}
	anns := extract(t, basicDoc(), event)

	out := Apply(event, anns, map[string]bool{"unrestricted": true, "user-id": true}, nil)
	assert.Equal(t, map[string]any{"a": "x", "b": "y", "c": nil}, out)
}

func TestApply_PropertyWhitelist(t *testing.T) {
	event := map[string]any{"a": "x", "b": "y", "c": "z"}
	anns := extract(t, basicDoc(), event)

	out := Apply(event, anns, map[string]bool{"unrestricted": true}, map[string]bool{"c": true})
	assert.Equal(t, map[string]any{"a": "x", "b": nil, "c": "z"}, out)
}

func TestApply_NestedObject(t *testing.T) {
	doc := map[string]any{
		"$id":     "nested",
		"version": 1,
		"properties": map[string]any{
			"user": map[string]any{
				"categories": []any{"user-id"},
				"properties": map[string]any{
					"id":    map[string]any{},
					"email": map[string]any{"categories": []any{"pii"}},
				},
			},
		},
	}
	event := map[string]any{"user": map[string]any{"id": "u", "email": "e"}}
	anns := extract(t, doc, event)

	out := Apply(event, anns, map[string]bool{"unrestricted": true, "user-id": true}, nil)
	assert.Equal(t, map[string]any{"user": map[string]any{"id": "u", "email": nil}}, out)
}

func TestApply_NestedArrayItems(t *testing.T) {
	doc := map[string]any{
		"$id":     "arr",
		"version": 1,
		"properties": map[string]any{
			"users": map[string]any{
				"categories": []any{"user-id"},
				"items": map[string]any{
					"properties": map[string]any{
						"email": map[string]any{"categories": []any{"pii"}},
					},
				},
			},
		},
	}
	event := map[string]any{
		"users": []any{
			map[string]any{"email": "a@x.com"},
			map[string]any{"email": "b@x.com"},
		},
	}
	anns := extract(t, doc, event)

	allowAll := map[string]bool{"unrestricted": true, "user-id": true, "pii": true}
	out := Apply(event, anns, allowAll, nil)
	assert.Equal(t, event["users"], out["users"])

	dropPII := map[string]bool{"unrestricted": true, "user-id": true}
	out = Apply(event, anns, dropPII, nil)
	users := out["users"].([]any)
	assert.Equal(t, map[string]any{"email": nil}, users[0])
	assert.Equal(t, map[string]any{"email": nil}, users[1])
}

func TestApply_DoesNotMutateOriginal(t *testing.T) {
	event := map[string]any{"a": "x", "b": "y", "c": "z"}
	original := map[string]any{"a": "x", "b": "y", "c": "z"}
	anns := extract(t, basicDoc(), event)

	Apply(event, anns, map[string]bool{"unrestricted": true}, nil)
	assert.Equal(t, original, event)
}

func TestApply_ParentNulledBeforeChildIsSkippedSafely(t *testing.T) {
	doc := map[string]any{
		"$id":     "parentchild",
		"version": 1,
		"properties": map[string]any{
			"user": map[string]any{
				"categories": []any{"pii"},
				"properties": map[string]any{
					"email": map[string]any{"categories": []any{"pii"}},
				},
			},
		},
	}
	event := map[string]any{"user": map[string]any{"email": "e"}}
	anns := extract(t, doc, event)

	// Neither "pii" is allowed, so both /user and /user/email are
	// disallowed; nulling /user first must not panic when /user/email is
	// then visited against an already-nil parent.
	out := Apply(event, anns, map[string]bool{"unrestricted": true}, nil)
	assert.Equal(t, map[string]any{"user": nil}, out)
}

func TestApply_UndeclaredTopLevelPropertyIsNulled(t *testing.T) {
	event := map[string]any{"a": "x", "undeclared": "y"}
	anns := extract(t, basicDoc(), event)

	out := Apply(event, anns, map[string]bool{"unrestricted": true}, nil)
	assert.Equal(t, map[string]any{"a": "x", "undeclared": nil}, out)
}

func TestApply_SameKeyShapeAsInput(t *testing.T) {
	event := map[string]any{"a": "x", "b": "y", "c": "z"}
	anns := extract(t, basicDoc(), event)

	out := Apply(event, anns, map[string]bool{}, nil)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, keys(out))
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
