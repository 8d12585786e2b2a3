// Package describe expands user prompts into image descriptions and refines
// them from user feedback.
//
// Both entry points try a remote language model first and degrade to
// deterministic local text transforms, so they never fail outward.
package describe

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"github.com/rs/zerolog/log"
)

// TextCompleter is the contract for an optional remote text model.
type TextCompleter interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

const systemDescribe = "You are an expert at creating detailed, vivid image descriptions " +
	"for AI image generation. Take the user's prompt and expand it into a rich, detailed " +
	"description that would help create the perfect image. Focus on visual details, lighting, " +
	"composition, style, and atmosphere. Keep it under 200 words but make it comprehensive."

// Phrase pools for the deterministic template. The selector index is injected
// so tests can pin the choice.
var (
	lightingOptions = []string{
		"warm golden hour light breaking through scattered clouds",
		"soft diffused overcast light with gentle shadows",
		"dramatic low-angle light casting long shadows",
		"cool blue twilight with a faint glow on the horizon",
		"bright midday sun with crisp highlights",
		"flickering candlelight with warm amber tones",
	}
	styleOptions = []string{
		"a richly textured oil painting style",
		"a crisp photorealistic style",
		"a soft watercolor style with delicate washes",
		"a bold cinematic concept-art style",
		"a fine ink illustration style",
	}
	compositionOptions = []string{
		"a rule-of-thirds layout with the subject slightly off-center",
		"a centered symmetrical composition",
		"a sweeping wide-angle perspective",
		"an intimate close-up framing",
		"a layered depth-of-field arrangement",
	}
)

// Keyword classes that trigger prompt-conditional clauses.
var (
	animalWords = []string{
		"animal", "cat", "kitten", "feline", "dog", "puppy", "fox", "wolf",
		"bird", "owl", "horse", "rabbit", "lion", "tiger", "bear", "deer",
	}
	landscapeWords = []string{
		"landscape", "mountain", "forest", "woods", "valley", "ocean", "sea",
		"river", "lake", "desert", "meadow", "field", "snow", "sunset", "sky",
	}
	portraitWords = []string{
		"portrait", "face", "person", "woman", "man", "girl", "boy", "child",
	}
)

// Anchor clauses. The refiner's rule table targets these exact strings, so
// they must stay in sync with rules.go.
const (
	animalClause    = "The animal is captured with incredible detail, showing individual fur textures and expressive eyes. "
	landscapeClause = "The natural environment stretches toward the horizon with layered terrain and atmospheric depth. "
	portraitClause  = "The face is rendered with lifelike precision, showing subtle skin texture and expressive eyes. "
	closingClauses  = "Rich color palette with harmonious tones that blend naturally. " +
		"Ultra high quality with sharp, carefully rendered details. " +
		"The overall mood is captivating and immersive, drawing the viewer into the scene."
)

// Generator maps a user prompt to a descriptive text artifact.
type Generator struct {
	llm  TextCompleter // nil disables the remote path
	pick func(n int) int
}

// NewGenerator creates a Generator. llm may be nil, in which case only the
// deterministic template is used.
func NewGenerator(llm TextCompleter) *Generator {
	return &Generator{llm: llm, pick: rand.Intn}
}

// Generate expands userPrompt into a full description. It is total: remote
// errors are logged and absorbed by the local template.
func (g *Generator) Generate(ctx context.Context, userPrompt string) string {
	if g.llm != nil {
		out, err := g.llm.Complete(ctx, systemDescribe,
			"Create a detailed image description for: "+userPrompt)
		if err == nil {
			if trimmed := strings.TrimSpace(out); trimmed != "" {
				return trimmed
			}
		} else {
			log.Debug().Err(err).Msg("remote description failed, using local template")
		}
	}
	return templateDescription(userPrompt, g.pick)
}

// templateDescription builds the deterministic fallback description. Given
// the same prompt and the same selector, the output is reproducible.
func templateDescription(userPrompt string, pick func(int) int) string {
	lower := strings.ToLower(strings.TrimSpace(userPrompt))

	var b strings.Builder
	fmt.Fprintf(&b, "A highly detailed digital artwork of %s, rendered in %s. ",
		userPrompt, styleOptions[pick(len(styleOptions))])

	if containsAny(lower, animalWords) {
		b.WriteString(animalClause)
	}
	if containsAny(lower, landscapeWords) {
		b.WriteString(landscapeClause)
	}
	if containsAny(lower, portraitWords) {
		b.WriteString(portraitClause)
	}

	fmt.Fprintf(&b, "The scene is illuminated by %s, creating depth and atmosphere. ",
		lightingOptions[pick(len(lightingOptions))])
	fmt.Fprintf(&b, "The composition follows %s. ",
		compositionOptions[pick(len(compositionOptions))])
	b.WriteString(closingClauses)

	return b.String()
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}
