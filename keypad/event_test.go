package keypad

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		in   string
		want Kind
	}{
		{"press", Press},
		{"pointerdown", Press},
		{" UP ", Release},
		{"pointerup", Release},
		{"cancel", Cancel},
		{"pointercancel", Cancel},
		{"pointerleave", Leave},
	}
	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseKind("click")
	assert.Error(t, err)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "leave", Leave.String())
	assert.Equal(t, "kind(9)", Kind(9).String())
	assert.Equal(t, "web-1 press 5", Event{Source: "web-1", Key: "5", Kind: Press}.String())
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Press("a", "1")
	r.Press("a", "2")
	r.Press("b", "1")

	assert.True(t, r.Held("a", "1"))
	assert.Equal(t, []string{"1", "2"}, r.HeldKeys())

	assert.True(t, r.Release("a", "1"))
	assert.False(t, r.Release("a", "1"))
	assert.True(t, r.Held("b", "1"))

	assert.Equal(t, []string{"2"}, r.ReleaseSource("a"))
	assert.Empty(t, r.ReleaseSource("a"))
	assert.Equal(t, []string{"1"}, r.HeldKeys())
}

func TestPresence(t *testing.T) {
	p := NewPresence()
	assert.Equal(t, 1, p.Set("a", true))
	assert.Equal(t, 0, p.Set("b", true))
	assert.Equal(t, 0, p.Set("a", false))
	assert.Equal(t, 0, p.Set("a", false))
	assert.Equal(t, -1, p.Set("b", false))
	assert.Equal(t, 0, p.Set("b", false))
	assert.Equal(t, 0, p.Visible())
}
