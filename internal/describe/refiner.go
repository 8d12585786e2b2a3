package describe

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
)

const systemRefine = "You are helping refine an image description based on user feedback. " +
	"Take the original description and the user's feedback to create an improved version " +
	"that incorporates their suggestions while maintaining the quality and detail of the description."

// DefaultMinRefineLength is the shortest remote rewrite worth keeping.
// Anything shorter is treated as a degenerate answer and the rule table runs.
const DefaultMinRefineLength = 80

// Refiner maps (current description, user feedback) to a revised description.
type Refiner struct {
	llm       TextCompleter // nil disables the remote path
	minLength int
}

// NewRefiner creates a Refiner. llm may be nil; minLength <= 0 selects
// DefaultMinRefineLength.
func NewRefiner(llm TextCompleter, minLength int) *Refiner {
	if minLength <= 0 {
		minLength = DefaultMinRefineLength
	}
	return &Refiner{llm: llm, minLength: minLength}
}

// Refine revises original according to feedback. It is total: the remote
// rewrite is attempted first, the deterministic rule table second, and any
// internal panic degrades to literal concatenation.
func (r *Refiner) Refine(ctx context.Context, original, feedback string) (out string) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Any("panic", rec).Msg("refinement panicked, falling back to concatenation")
			out = original + "\n\nRefined based on feedback: " + feedback
		}
	}()

	if r.llm != nil {
		raw, err := r.llm.Complete(ctx, systemRefine,
			"Original description: "+original+"\n\nUser feedback: "+feedback+
				"\n\nPlease provide a refined description that incorporates the feedback:")
		if err == nil {
			if cleaned := cleanRewrite(raw); len(cleaned) >= r.minLength {
				return cleaned
			}
			log.Debug().Msg("remote rewrite too short, using rule table")
		} else {
			log.Debug().Err(err).Msg("remote rewrite failed, using rule table")
		}
	}

	return applyRules(original, feedback)
}

// cleanRewrite strips wrapping quote characters and trailing end markers
// models sometimes emit around rewritten text.
func cleanRewrite(s string) string {
	s = strings.TrimSpace(s)
	for _, marker := range []string{"[END]", "(END)", "<END>", "END"} {
		s = strings.TrimSuffix(strings.TrimSpace(s), marker)
	}
	s = strings.Trim(strings.TrimSpace(s), "\"'“”‘’")
	return strings.TrimSpace(s)
}
