package prompt

import "regexp"

// defaultBaseStyle closes every prompt. The anti-text and astronomy
// constraints counter the two failure modes the backend is prone to:
// rendering card names as signage, and painting multiple suns.
const defaultBaseStyle = "photorealistic sci-fi digital art, high detail, professional concept art, " +
	"no text, no words, no lettering, no watermarks, " +
	"astronomically accurate, only one sun in the sky, " +
	"no duplicate planets or moons, " +
	"planets and moons appear small and distant high in the sky"

// Rotating variety elements keyed by card id hash. Deterministic per
// card, visually diverse across the full set.
var defaultPerspectives = []string{
	"wide panoramic shot",
	"cinematic close-up",
	"dramatic low angle",
	"bird's eye view",
	"first-person perspective",
	"over-the-shoulder view",
	"extreme wide establishing shot",
	"intimate macro detail",
}

var defaultLightings = []string{
	"golden hour warm lighting",
	"cool blue twilight",
	"harsh dramatic shadows",
	"soft diffused glow",
	"neon-lit cyberpunk ambiance",
	"stark high-contrast chiaroscuro",
	"ethereal backlit silhouette",
	"warm amber firelight",
}

var defaultPalettes = []string{
	"warm orange and rust tones",
	"cool blue and silver palette",
	"vibrant greens and teals",
	"deep purple and violet hues",
	"fiery red and gold spectrum",
	"muted earth tones",
	"icy white and pale blue",
	"rich amber and bronze",
}

// Short atmospheric hints per tag. Kept brief so they don't overpower
// the card name.
var defaultTagHints = map[string]string{
	"building": "futuristic industrial structures",
	"power":    "energy infrastructure",
	"science":  "scientific equipment",
	"microbe":  "bioluminescent microorganisms",
	"animal":   "alien fauna",
	"plant":    "lush vegetation",
	"space":    "deep space backdrop",
	"earth":    "tiny Earth far away high in the sky",
	"jovian":   "small distant Jupiter high in the sky",
	"venus":    "small distant Venus high in the sky",
	"city":     "domed city",
	"mars":     "red Martian terrain",
	"moon":     "lunar surface",
	"clone":    "genetic engineering",
	"wild":     "alien wilderness",
	"event":    "celestial phenomenon",
}

var defaultMoods = map[string]string{
	"automated":   "industrial scene",
	"active":      "dynamic scene",
	"event":       "dramatic moment",
	"corporation": "corporate power",
	"prelude":     "early colonization",
}

// Card names the backend tends to render as visible text.
// Maps card id to the visual description used instead of the name.
var defaultOverrides = map[string]string{
	"066": "territorial marker planted on vast alien landscape, flag on rocky hilltop",
	"068": "corporate funding ceremony on Mars, executives shaking hands",
	"098": "luxurious tropical paradise colony under a glass dome, palm trees and pools",
	"123": "massive industrial manufacturing complex, smokestacks and conveyor belts",
	"145": "geothermal tectonic energy harvesting plant, glowing fissures in the ground",
	"B02": "eco-friendly green corporation campus surrounded by forests",
	"B05": "futuristic invention laboratory, holographic blueprints floating in air",
	"B09": "lightning-powered energy corporation, massive tesla coils crackling with electricity",
	"P05": "biodome ecosystem with thriving plants and wildlife under a protective shell",
	"T02": "exiled political figure walking away from a grand government building",
	"T09": "public relations command center, wall of holographic screens showing broadcasts",
	"T10": "festive crowd gathering at a Martian colony, fireworks in the dusty sky",
	"XC5": "sleek corporate skyscraper overlooking a volcanic Martian mountain at twilight",
}

// Keywords that mark a sentence as game mechanics, not visuals.
var defaultMechanicPattern = regexp.MustCompile(`(?i)(?:production|M€|VP|step|tile|draw|discard|opponent|player|` +
	`terraform rating|global parameter|standard project|requires?\s+\d|` +
	`tag requirement|tag cards|into your hand|from the deck|reveal cards|` +
	`resources?(?:\s+on)?|pay\s+\d|spend\s+\d|place\s+a\s+|` +
	`gain\s+\d|lose\s+\d|reduce|raise|increase|decrease|` +
	`Action:|Effect:)`)

var (
	boldPattern     = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	sentencePattern = regexp.MustCompile(`[.!]\s*`)
)
