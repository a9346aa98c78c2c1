package ctxstate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeScalars(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want any
	}{
		{"nil", nil, nil},
		{"bool", true, true},
		{"string", "x", "x"},
		{"int", 42, 42},
		{"float", 1.5, 1.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := normalize(tt.in)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeDropsUnrepresentable(t *testing.T) {
	_, ok := normalize(func() {})
	assert.False(t, ok, "functions have no representation")

	_, ok = normalize(make(chan int))
	assert.False(t, ok, "channels have no representation")
}

// Unrepresentable values nested inside mappings are dropped without
// losing their siblings.
func TestNormalizeDropsNestedUnrepresentable(t *testing.T) {
	got, ok := normalize(map[string]any{
		"keep": "yes",
		"drop": func() {},
		"nested": map[string]any{
			"keep": 1,
			"drop": make(chan int),
		},
	})
	require.True(t, ok)

	m := got.(map[string]any)
	assert.Equal(t, "yes", m["keep"])
	assert.NotContains(t, m, "drop")

	nested := m["nested"].(map[string]any)
	assert.Equal(t, 1, nested["keep"])
	assert.NotContains(t, nested, "drop")
}

func TestNormalizeTime(t *testing.T) {
	ts := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	got, ok := normalize(ts)
	require.True(t, ok)
	assert.Equal(t, "2026-05-01T12:00:00Z", got)
}

// Structs go through the JSON round-trip and come back as mappings.
func TestNormalizeStruct(t *testing.T) {
	type user struct {
		Name string `json:"name"`
		Age  int    `json:"age"`
	}

	got, ok := normalize(user{Name: "alice", Age: 30})
	require.True(t, ok)

	m := got.(map[string]any)
	assert.Equal(t, "alice", m["name"])
	assert.Equal(t, float64(30), m["age"])
}

func TestNormalizeSlices(t *testing.T) {
	got, ok := normalize([]any{"a", 1, func() {}, map[string]any{"k": "v"}})
	require.True(t, ok)

	s := got.([]any)
	require.Len(t, s, 3, "unrepresentable element dropped")
	assert.Equal(t, "a", s[0])
	assert.Equal(t, 1, s[1])
	assert.Equal(t, map[string]any{"k": "v"}, s[2])
}

func TestNormalizeTypedSlice(t *testing.T) {
	got, ok := normalize([]string{"a", "b"})
	require.True(t, ok)
	assert.Equal(t, []any{"a", "b"}, got)
}
