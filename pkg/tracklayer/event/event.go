// Package event defines the tracked-event record and the synchronous
// publish/subscribe bus that delivers committed events to pattern-matched
// handlers.
//
// An Event is a value: once constructed its identity fields never change,
// and the context attached to it is a snapshot, not a live reference.
// Transformation before commit happens in the pipeline package; a stage
// may mutate the event it was handed or pass on a Clone.
package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SpecVersion is the format-version tag stamped on every event.
// It changes only when the wire shape changes.
const SpecVersion = "1.0.0"

// Source identifies the integration that produced an event.
type Source struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

// Event is a single structured record of an observed occurrence.
//
// The JSON shape is the stable wire/storage contract: persistence
// collaborators serialize exactly these fields. Note that the name
// serializes under the key "event".
type Event struct {
	// Name is the dot-namespaced identifier ("<namespace>.<action>").
	Name string `json:"event"`

	// ID is globally unique and assigned once at creation.
	ID string `json:"id"`

	// Timestamp is the ISO-8601 creation time, assigned once at creation.
	Timestamp string `json:"timestamp"`

	// SpecVersion tags the event shape version.
	SpecVersion string `json:"specVersion"`

	// Context is a deep snapshot of ambient context at creation time.
	Context map[string]any `json:"context,omitempty"`

	// Data is the event-specific payload.
	Data map[string]any `json:"data,omitempty"`

	// CustomDimensions is a flat tagging payload. Values are primitives
	// by convention; nested values are tolerated but discouraged.
	CustomDimensions map[string]any `json:"customDimensions,omitempty"`

	// Source identifies the producing integration, if any.
	Source *Source `json:"source,omitempty"`
}

// Option configures event creation.
type Option func(*Event)

// WithID overrides the auto-generated event ID.
func WithID(id string) Option {
	return func(e *Event) {
		e.ID = id
	}
}

// WithTimestamp overrides the creation timestamp.
func WithTimestamp(t time.Time) Option {
	return func(e *Event) {
		e.Timestamp = FormatTime(t)
	}
}

// WithContext attaches an ambient-context snapshot.
// The caller is responsible for passing a copy; the event takes ownership.
func WithContext(ctx map[string]any) Option {
	return func(e *Event) {
		e.Context = ctx
	}
}

// WithData attaches the event payload.
func WithData(data map[string]any) Option {
	return func(e *Event) {
		e.Data = data
	}
}

// WithCustomDimensions attaches flat tagging dimensions.
func WithCustomDimensions(dims map[string]any) Option {
	return func(e *Event) {
		e.CustomDimensions = dims
	}
}

// WithSource attaches the producing integration.
func WithSource(src *Source) Option {
	return func(e *Event) {
		e.Source = src
	}
}

// New creates an event with a unique ID, the current UTC timestamp,
// and the current spec version.
func New(name string, opts ...Option) *Event {
	e := &Event{
		Name:        name,
		ID:          uuid.New().String(),
		Timestamp:   FormatTime(time.Now()),
		SpecVersion: SpecVersion,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// FormatTime renders a timestamp in the event wire format (RFC 3339
// with nanoseconds, UTC).
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// Time parses the event timestamp back into a time.Time.
func (e *Event) Time() (time.Time, error) {
	return time.Parse(time.RFC3339Nano, e.Timestamp)
}

// Namespace returns the portion of the name before the first dot,
// or the whole name if it has no namespace.
func (e *Event) Namespace() string {
	for i := 0; i < len(e.Name); i++ {
		if e.Name[i] == '.' {
			return e.Name[:i]
		}
	}
	return e.Name
}

// Clone returns a deep copy. Mutating the clone's maps never affects
// the original.
func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}

	clone := *e
	clone.Context = copyMap(e.Context)
	clone.Data = copyMap(e.Data)
	clone.CustomDimensions = copyMap(e.CustomDimensions)
	if e.Source != nil {
		src := *e.Source
		clone.Source = &src
	}
	return &clone
}

// Validate checks that the required wire fields are present.
// Persistence collaborators use this to skip malformed stored records.
func (e *Event) Validate() error {
	if e.Name == "" {
		return fmt.Errorf("event missing name")
	}
	if e.ID == "" {
		return fmt.Errorf("event %q missing id", e.Name)
	}
	if e.Timestamp == "" {
		return fmt.Errorf("event %q missing timestamp", e.Name)
	}
	if e.SpecVersion == "" {
		return fmt.Errorf("event %q missing specVersion", e.Name)
	}
	return nil
}

// Unmarshal parses the wire shape and validates required fields.
func Unmarshal(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("parse event: %w", err)
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return &e, nil
}

// copyMap deep-copies a JSON-representable map.
func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return copyMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = copyValue(item)
		}
		return out
	default:
		return val
	}
}
