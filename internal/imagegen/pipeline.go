package imagegen

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultRetryCooldown is how long the pipeline waits before retrying a
// provider whose model is still loading.
const DefaultRetryCooldown = 20 * time.Second

// Pipeline iterates an ordered provider chain and always produces an
// artifact: the first provider success wins, and the deterministic local
// placeholder covers total failure.
type Pipeline struct {
	providers []Provider
	cooldown  time.Duration
	wait      func(ctx context.Context, d time.Duration) bool
}

// NewPipeline creates a pipeline over the given providers. A non-positive
// cooldown selects DefaultRetryCooldown.
func NewPipeline(providers []Provider, cooldown time.Duration) *Pipeline {
	if cooldown <= 0 {
		cooldown = DefaultRetryCooldown
	}
	return &Pipeline{
		providers: providers,
		cooldown:  cooldown,
		wait:      waitFor,
	}
}

// waitFor blocks for d or until ctx is cancelled, reporting whether the full
// duration elapsed.
func waitFor(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Generate produces an image artifact for the description. It never returns
// an error: provider failures are logged and absorbed.
func (p *Pipeline) Generate(ctx context.Context, description string) *Artifact {
	for _, prov := range p.providers {
		art, err := prov.Generate(ctx, description, QualityFull)
		if err == nil {
			log.Info().Str("provider", prov.Name()).Msg("image generated")
			return art
		}

		if errors.Is(err, ErrModelLoading) {
			log.Info().
				Str("provider", prov.Name()).
				Dur("cooldown", p.cooldown).
				Msg("model loading, retrying once at reduced quality")
			if !p.wait(ctx, p.cooldown) {
				log.Warn().Str("provider", prov.Name()).Msg("cancelled during cooldown, rendering placeholder")
				break
			}

			art, err = prov.Generate(ctx, description, QualityReduced)
			if err == nil {
				log.Info().Str("provider", prov.Name()).Msg("image generated on retry")
				return art
			}
			log.Warn().Err(err).Str("provider", prov.Name()).Msg("retry failed, trying next provider")
			continue
		}

		log.Warn().Err(err).Str("provider", prov.Name()).Msg("image provider failed")
	}

	log.Warn().Int("providers", len(p.providers)).Msg("all image providers exhausted, rendering placeholder")
	return renderPlaceholder(description)
}
