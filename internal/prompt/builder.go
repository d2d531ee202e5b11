package prompt

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/atelier/internal/catalog"
)

// Visual concept bounds. The joined concept clause is dropped entirely
// below the minimum and truncated at the maximum (rune positions, so
// multi-byte text is never cut mid-character).
const (
	minConceptLen = 5
	maxConceptLen = 100
)

// Builder assembles generation prompts from catalog entries.
// All tables are fixed at construction; Build is a pure function.
type Builder struct {
	baseStyle    string
	perspectives []string
	lightings    []string
	palettes     []string
	tagHints     map[string]string
	moods        map[string]string
	overrides    map[string]string
	mechanics    *regexp.Regexp
}

// Option configures a Builder.
type Option func(*Builder)

// WithBaseStyle replaces the fixed closing style clause.
func WithBaseStyle(style string) Option {
	return func(b *Builder) {
		b.baseStyle = style
	}
}

// WithVarietyLists replaces the perspective, lighting, and palette
// rotations. Each list must be non-empty.
func WithVarietyLists(perspectives, lightings, palettes []string) Option {
	return func(b *Builder) {
		b.perspectives = perspectives
		b.lightings = lightings
		b.palettes = palettes
	}
}

// WithTagHints replaces the tag hint table. Tags without a hint are
// silently skipped during assembly.
func WithTagHints(hints map[string]string) Option {
	return func(b *Builder) {
		b.tagHints = hints
	}
}

// WithMoods replaces the card type mood table.
func WithMoods(moods map[string]string) Option {
	return func(b *Builder) {
		b.moods = moods
	}
}

// WithOverrides replaces the name override table (card id to subject
// clause).
func WithOverrides(overrides map[string]string) Option {
	return func(b *Builder) {
		b.overrides = overrides
	}
}

// WithMechanicPattern replaces the pattern that marks description
// sentences as game mechanics.
func WithMechanicPattern(re *regexp.Regexp) Option {
	return func(b *Builder) {
		b.mechanics = re
	}
}

// NewBuilder creates a Builder with the default tables, then applies
// options. All tables are copied so the Builder is immutable after
// construction regardless of what callers do with their maps.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		baseStyle:    defaultBaseStyle,
		perspectives: defaultPerspectives,
		lightings:    defaultLightings,
		palettes:     defaultPalettes,
		tagHints:     defaultTagHints,
		moods:        defaultMoods,
		overrides:    defaultOverrides,
		mechanics:    defaultMechanicPattern,
	}

	for _, opt := range opts {
		opt(b)
	}

	b.perspectives = cloneStrings(b.perspectives)
	b.lightings = cloneStrings(b.lightings)
	b.palettes = cloneStrings(b.palettes)
	b.tagHints = cloneTable(b.tagHints)
	b.moods = cloneTable(b.moods)
	b.overrides = cloneTable(b.overrides)

	return b
}

// Build assembles the generation prompt for an entry.
//
// The card name is the dominant subject. Ids with a registered
// override use the override text instead, so the backend does not
// render the name as visible signage; corporations get an indirect
// subject for the same reason. Tags and type add light atmosphere
// without overwhelming the scene. Identical entries produce
// byte-identical prompts.
func (b *Builder) Build(e catalog.Entry) string {
	parts := make([]string, 0, 6)

	cardType := e.Type
	if cardType == "" {
		cardType = "automated"
	}

	if override, ok := b.overrides[e.ID]; ok {
		parts = append(parts, override)
	} else if cardType == "corporation" {
		parts = append(parts, fmt.Sprintf("scene inspired by the concept of %s, unnamed corporation headquarters", e.Name))
	} else {
		parts = append(parts, fmt.Sprintf("%s, detailed scene of %s", e.Name, e.Name))
	}

	if concepts := b.visualConcepts(e.Description); concepts != "" {
		parts = append(parts, concepts)
	}

	var hints []string
	for _, tag := range e.Tags {
		if hint, ok := b.tagHints[tag]; ok {
			hints = append(hints, hint)
		}
	}
	if len(hints) > 0 {
		parts = append(parts, strings.Join(hints, ", "))
	}

	if mood, ok := b.moods[cardType]; ok {
		parts = append(parts, mood)
	}

	parts = append(parts, b.Variety(e.ID).String())
	parts = append(parts, b.baseStyle)

	return norm.NFC.String(strings.Join(parts, ", "))
}

// visualConcepts keeps the description's scenery sentences and drops
// rules text. Markdown bold markers are stripped first, sentences
// matching the mechanic pattern are removed, and the survivors are
// rejoined with ". ".
func (b *Builder) visualConcepts(description string) string {
	if description == "" {
		return ""
	}

	text := boldPattern.ReplaceAllString(description, "$1")

	sentences := sentencePattern.Split(text, -1)
	var visual []string
	for _, s := range sentences {
		s = strings.TrimSpace(s)
		if s == "" || b.mechanics.MatchString(s) {
			continue
		}
		visual = append(visual, s)
	}

	result := strings.Join(visual, ". ")
	runes := []rune(result)
	if len(runes) < minConceptLen {
		return ""
	}
	if len(runes) > maxConceptLen {
		runes = runes[:maxConceptLen]
	}
	return string(runes)
}

func cloneStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneTable(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
