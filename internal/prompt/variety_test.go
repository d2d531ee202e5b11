package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVariety_Stable(t *testing.T) {
	b := NewBuilder()

	first := b.Variety("042")
	second := b.Variety("042")

	assert.Equal(t, first, second)
}

func TestVariety_KnownSelections(t *testing.T) {
	b := NewBuilder()

	cases := []struct {
		id   string
		want Variety
	}{
		{"042", Variety{"wide panoramic shot", "neon-lit cyberpunk ambiance", "cool blue and silver palette"}},
		{"066", Variety{"wide panoramic shot", "warm amber firelight", "cool blue and silver palette"}},
		{"C01", Variety{"cinematic close-up", "neon-lit cyberpunk ambiance", "deep purple and violet hues"}},
		{"201", Variety{"bird's eye view", "harsh dramatic shadows", "icy white and pale blue"}},
	}
	for _, tc := range cases {
		t.Run(tc.id, func(t *testing.T) {
			assert.Equal(t, tc.want, b.Variety(tc.id))
		})
	}
}

func TestVariety_String(t *testing.T) {
	v := Variety{"wide panoramic shot", "cool blue twilight", "muted earth tones"}

	assert.Equal(t, "wide panoramic shot, cool blue twilight, muted earth tones", v.String())
}

func TestVariety_CustomLists(t *testing.T) {
	b := NewBuilder(WithVarietyLists(
		[]string{"only perspective"},
		[]string{"only lighting"},
		[]string{"only palette"},
	))

	got := b.Variety("anything")

	assert.Equal(t, Variety{"only perspective", "only lighting", "only palette"}, got)
}

func TestVariety_DiffersAcrossIDs(t *testing.T) {
	b := NewBuilder()

	assert.NotEqual(t, b.Variety("042"), b.Variety("201"))
}
