package sink

import (
	"context"
	"log/slog"
)

// SlogSink forwards each capsule to a *slog.Logger as one Info record with
// message "event" and the capsule as its single attribute, "capsule".
// Grounded on the teacher's
// slog.NewJSONHandler(os.Stdout, nil) default logger construction and on
// the original implementation's per-EventLog, non-propagating
// logging.Logger — callers get the same isolation by constructing a
// dedicated *slog.Logger (e.g. slog.New(slog.NewJSONHandler(w, nil)))
// rather than passing slog.Default().
type SlogSink struct {
	logger *slog.Logger
	// categories, when non-nil, overrides the emitter's default
	// allowed-categories policy for records routed to this sink.
	categories []string
}

// NewSlogSink returns a SlogSink that logs each capsule through logger.
func NewSlogSink(logger *slog.Logger) *SlogSink {
	return &SlogSink{logger: logger}
}

// WithAllowedCategories sets the optional per-sink category-allowlist hint
// (sink.CategoryHintSink).
func (s *SlogSink) WithAllowedCategories(categories ...string) *SlogSink {
	s.categories = categories
	return s
}

// Accept logs capsule as a single structured record.
func (s *SlogSink) Accept(capsule map[string]any) error {
	s.logger.LogAttrs(context.Background(), slog.LevelInfo, "event",
		slog.Any("capsule", capsule),
	)
	return nil
}

// AllowedCategories implements sink.CategoryHintSink. A nil slice (the
// zero value, when WithAllowedCategories was never called) means "no
// override" — the emitter falls back to the schema's configured policy —
// not "allow nothing".
func (s *SlogSink) AllowedCategories() []string {
	return s.categories
}
