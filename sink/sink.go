// Package sink defines the Sink Contract: the abstract "record a completed
// event" interface the emitter fans out to, and the optional per-sink
// category-allowlist hint a sink may expose.
package sink

// Sink accepts one completed, JSON-serializable capsule per call. The
// emitter calls Accept once per event, synchronously, in the caller's
// thread; a sink that wants to buffer or forward asynchronously is free to
// do so internally. A failing Accept propagates to the caller of
// RecordEvent.
type Sink interface {
	Accept(capsule map[string]any) error
}

// CategoryHintSink is the optional hook a Sink may additionally implement
// to override the allowed-categories set for records routed to it, rather
// than using the emitter's default policy for the schema being recorded.
// The emitter detects this with a type assertion — there is no separate
// registration step.
type CategoryHintSink interface {
	Sink
	AllowedCategories() []string
}
