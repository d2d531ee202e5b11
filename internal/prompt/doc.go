// Package prompt synthesizes diffusion prompts from catalog entries.
//
// A prompt is an ordered, comma-joined sequence of clauses:
//  1. Subject (name override, corporation form, or literal name form)
//  2. Visual concepts filtered from the description
//  3. Tag hints for registered tags
//  4. Card type mood
//  5. Variety triple (perspective, lighting, palette)
//  6. Fixed base style
//
// DETERMINISM:
// Build is a pure function of the entry and the builder's tables.
// The variety triple is derived from the MD5 hash of the card id, so
// a full catalog renders with diverse styling while every rerun of the
// same card produces byte-identical prompts. Output is NFC-normalized;
// equal-looking descriptions cannot yield different prompt bytes.
//
// The lookup tables (overrides, tag hints, moods) and the mechanic
// keyword pattern ship as package defaults and are replaceable through
// Options. Tables are content, not code: changing what counts as a
// mechanic sentence must never require touching Build.
package prompt
