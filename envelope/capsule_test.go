package envelope

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNew_ReservedKeys(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 678901000, time.UTC)
	capsule := New(map[string]any{"a": "x"}, "my.schema", 3, ts)

	assert.Equal(t, "2024-01-02T03:04:05.678901Z", capsule["__timestamp__"])
	assert.Equal(t, "my.schema", capsule["__schema__"])
	assert.Equal(t, 3, capsule["__schema_version__"])
	assert.Equal(t, MetadataVersion, capsule["__metadata_version__"])
	assert.Equal(t, "x", capsule["a"])
}

func TestNew_TimestampConvertedToUTC(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	ts := time.Date(2024, 1, 2, 3, 0, 0, 0, loc)
	capsule := New(map[string]any{}, "s", 1, ts)
	assert.Equal(t, "2024-01-02T08:00:00.000000Z", capsule["__timestamp__"])
}

func TestNew_UserKeysCannotOverrideReserved(t *testing.T) {
	filtered := map[string]any{"__schema__": "attacker-supplied"}
	capsule := New(filtered, "real.schema", 1, time.Now())
	assert.Equal(t, "real.schema", capsule["__schema__"])
}

func TestNew_DoesNotMutateInput(t *testing.T) {
	filtered := map[string]any{"a": "x"}
	_ = New(filtered, "s", 1, time.Now())
	assert.Equal(t, map[string]any{"a": "x"}, filtered)
}
