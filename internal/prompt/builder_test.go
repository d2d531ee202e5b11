package prompt

import (
	"regexp"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/atelier/internal/catalog"
)

func soilFactory() catalog.Entry {
	return catalog.Entry{
		ID:          "042",
		Name:        "Soil Factory",
		Type:        "automated",
		Tags:        []string{"building"},
		Description: "Gain 2 steel. Sprawling robotic assembly lines hum under red skies.",
	}
}

func TestBuild_Deterministic(t *testing.T) {
	b := NewBuilder()

	first := b.Build(soilFactory())
	second := b.Build(soilFactory())

	assert.Equal(t, first, second, "identical entries must produce byte-identical prompts")
}

func TestBuild_SoilFactoryClauses(t *testing.T) {
	b := NewBuilder()

	p := b.Build(soilFactory())

	assert.True(t, strings.HasPrefix(p, "Soil Factory, detailed scene of Soil Factory"), "name is the leading subject")
	assert.NotContains(t, p, "Gain 2 steel", "mechanic sentence must be filtered out")
	assert.Contains(t, p, "Sprawling robotic assembly lines hum under red skies")
	assert.Contains(t, p, "futuristic industrial structures", "building tag hint")
	assert.Contains(t, p, "industrial scene", "automated mood")
	assert.True(t, strings.HasSuffix(p, defaultBaseStyle), "base style closes every prompt")
}

func TestBuild_Golden(t *testing.T) {
	b := NewBuilder()

	cases := []struct {
		name  string
		entry catalog.Entry
	}{
		{"soil_factory", soilFactory()},
		{"name_override", catalog.Entry{
			ID:   "066",
			Name: "Land Claim",
			Type: "event",
		}},
		{"corporation", catalog.Entry{
			ID:          "C01",
			Name:        "Helion",
			Type:        "corporation",
			Tags:        []string{"space"},
			Description: "You start with 42 M€. Effect: You may use heat as M€.",
		}},
		{"no_description", catalog.Entry{
			ID:   "201",
			Name: "Ice Asteroid",
			Type: "event",
			Tags: []string{"space"},
		}},
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g.Assert(t, tc.name, []byte(b.Build(tc.entry)))
		})
	}
}

func TestBuild_OverridePrecedesType(t *testing.T) {
	b := NewBuilder()

	// 066 carries an override; even as a corporation the override wins.
	e := catalog.Entry{ID: "066", Name: "Land Claim", Type: "corporation"}
	p := b.Build(e)

	assert.True(t, strings.HasPrefix(p, "territorial marker planted on vast alien landscape"))
	assert.NotContains(t, p, "scene inspired by the concept of")
	assert.NotContains(t, p, "Land Claim", "overridden names must not leak into the prompt")
}

func TestBuild_CorporationSubject(t *testing.T) {
	b := NewBuilder()

	p := b.Build(catalog.Entry{ID: "C01", Name: "Helion", Type: "corporation"})

	assert.True(t, strings.HasPrefix(p, "scene inspired by the concept of Helion, unnamed corporation headquarters"))
}

func TestBuild_UnknownTagsSkipped(t *testing.T) {
	b := NewBuilder()

	withTag := b.Build(catalog.Entry{ID: "301", Name: "Penguins", Type: "active", Tags: []string{"wildlife"}})
	withoutTag := b.Build(catalog.Entry{ID: "301", Name: "Penguins", Type: "active"})

	assert.Equal(t, withoutTag, withTag, "tags without a registered hint contribute nothing")
}

func TestBuild_EmptyTypeRendersAsAutomated(t *testing.T) {
	b := NewBuilder()

	p := b.Build(catalog.Entry{ID: "302", Name: "Mine"})

	assert.Contains(t, p, "industrial scene")
}

func TestVisualConcepts_MechanicFiltering(t *testing.T) {
	b := NewBuilder()

	got := b.visualConcepts("Gain 3 M€. A dense jungle canopy spreads below.")

	assert.Equal(t, "A dense jungle canopy spreads below", got)
}

func TestVisualConcepts_AllMechanics(t *testing.T) {
	b := NewBuilder()

	got := b.visualConcepts("Increase your heat production 2 steps. Requires 3 ocean tiles.")

	assert.Equal(t, "", got)
}

func TestVisualConcepts_Truncation(t *testing.T) {
	b := NewBuilder()

	// Three 40-char scenery sentences join to 124 chars.
	sentence := strings.Repeat("x", 40)
	got := b.visualConcepts(sentence + ". " + sentence + ". " + sentence + ".")

	require.Len(t, []rune(got), maxConceptLen)
	assert.Equal(t, sentence+". "+sentence+". "+sentence[:16], got)
}

func TestVisualConcepts_TruncationIsRuneSafe(t *testing.T) {
	b := NewBuilder()

	// 99 ASCII chars followed by a multi-byte rune; a byte-indexed cut
	// would split the rune.
	got := b.visualConcepts(strings.Repeat("a", 99) + "é and more text to pass the boundary.")

	require.Len(t, []rune(got), maxConceptLen)
	assert.Equal(t, "é", string([]rune(got)[99:]))
}

func TestVisualConcepts_TooShortDropped(t *testing.T) {
	b := NewBuilder()

	assert.Equal(t, "", b.visualConcepts("Hi!"))
	assert.Equal(t, "", b.visualConcepts(""))
}

func TestVisualConcepts_BoldStripped(t *testing.T) {
	b := NewBuilder()

	got := b.visualConcepts("**Gain 2 steel.** A rover crossing dunes.")

	assert.Equal(t, "A rover crossing dunes", got)
}

func TestBuild_NFCNormalization(t *testing.T) {
	b := NewBuilder()

	// "cafe" spelled precomposed (U+00E9) and decomposed (e + U+0301).
	nfc := catalog.Entry{ID: "303", Name: "Outpost", Type: "event", Description: "A caf\u00e9 on Mars under glass."}
	nfd := catalog.Entry{ID: "303", Name: "Outpost", Type: "event", Description: "A cafe\u0301 on Mars under glass."}

	assert.Equal(t, b.Build(nfc), b.Build(nfd), "equal-looking descriptions must yield identical prompt bytes")
}

func TestBuild_CustomTables(t *testing.T) {
	b := NewBuilder(
		WithTagHints(map[string]string{"space": "void between stars"}),
		WithMoods(map[string]string{"event": "sudden upheaval"}),
		WithMechanicPattern(regexp.MustCompile(`(?i)quux`)),
	)

	p := b.Build(catalog.Entry{
		ID:          "201",
		Name:        "Ice Asteroid",
		Type:        "event",
		Tags:        []string{"space"},
		Description: "Gain 2 heat. A quux appears.",
	})

	assert.Contains(t, p, "void between stars")
	assert.Contains(t, p, "sudden upheaval")
	assert.Contains(t, p, "Gain 2 heat", "default mechanic keywords no longer apply")
	assert.NotContains(t, p, "quux")
}

func TestNewBuilder_CopiesTables(t *testing.T) {
	hints := map[string]string{"space": "void between stars"}
	b := NewBuilder(WithTagHints(hints))

	before := b.Build(catalog.Entry{ID: "201", Name: "Ice Asteroid", Type: "event", Tags: []string{"space"}})
	hints["space"] = "mutated"
	after := b.Build(catalog.Entry{ID: "201", Name: "Ice Asteroid", Type: "event", Tags: []string{"space"}})

	assert.Equal(t, before, after, "mutating the caller's map must not affect the builder")
}
