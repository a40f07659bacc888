// Package envelope builds the capsule handed to sinks: the filtered event
// plus the library's reserved, double-underscore-prefixed metadata keys.
package envelope

import "time"

// MetadataVersion is the library's envelope-format version constant.
const MetadataVersion = 1

// TimestampLayout renders a time.Time the way spec.md's envelope format
// requires: ISO-8601 UTC with microsecond precision and a literal trailing
// "Z", e.g. "2024-01-02T03:04:05.678901Z".
const TimestampLayout = "2006-01-02T15:04:05.000000Z"

// New builds a capsule from a filtered event copy. Reserved keys are
// written after the user data is copied in, so they can never be
// overridden by a user property of the same name (I3) — registration
// already rejects any property starting with "__" (I2), so this ordering
// is a belt-and-suspenders guarantee, not a load-bearing one.
func New(filtered map[string]any, schemaID string, version int, timestamp time.Time) map[string]any {
	capsule := make(map[string]any, len(filtered)+4)
	for k, v := range filtered {
		capsule[k] = v
	}

	capsule["__timestamp__"] = timestamp.UTC().Format(TimestampLayout)
	capsule["__schema__"] = schemaID
	capsule["__schema_version__"] = version
	capsule["__metadata_version__"] = MetadataVersion

	return capsule
}
