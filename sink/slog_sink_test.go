package sink

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlogSink_LogsCapsule(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := slog.New(slog.NewJSONHandler(buf, nil))
	s := NewSlogSink(logger)

	require.NoError(t, s.Accept(map[string]any{"a": "x"}))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "event", decoded["msg"])
}

func TestSlogSink_AllowedCategoriesHint(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))
	s := NewSlogSink(logger)
	assert.Nil(t, s.AllowedCategories())

	s.WithAllowedCategories("pii", "user-id")
	var hinted CategoryHintSink = s
	assert.Equal(t, []string{"pii", "user-id"}, hinted.AllowedCategories())
}
