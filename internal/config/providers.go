package config

import (
	"os"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// ProviderSpec is one entry of the image provider chain.
type ProviderSpec struct {
	Name    string `yaml:"name"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"baseUrl,omitempty"`
	Enabled bool   `yaml:"enabled"`
}

type providersFile struct {
	Providers []ProviderSpec `yaml:"providers"`
}

// DefaultProviders returns the built-in image provider chain, ordered by
// preference.
func DefaultProviders() []ProviderSpec {
	return []ProviderSpec{
		{Name: "sd35-large", Model: "stabilityai/stable-diffusion-3.5-large", Enabled: true},
		{Name: "sdxl-base", Model: "stabilityai/stable-diffusion-xl-base-1.0", Enabled: true},
		{Name: "flux-schnell", Model: "black-forest-labs/FLUX.1-schnell", Enabled: true},
	}
}

// LoadProviders reads the provider chain from providers.yaml. Missing or
// malformed files yield the default chain; disabled entries are filtered out.
func LoadProviders() []ProviderSpec {
	data, err := os.ReadFile(ProvidersPath())
	if err != nil {
		return enabledOnly(DefaultProviders())
	}

	var f providersFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		log.Warn().Err(err).Str("path", ProvidersPath()).Msg("invalid providers file, using default chain")
		return enabledOnly(DefaultProviders())
	}
	if len(f.Providers) == 0 {
		return enabledOnly(DefaultProviders())
	}
	return enabledOnly(f.Providers)
}

func enabledOnly(specs []ProviderSpec) []ProviderSpec {
	out := make([]ProviderSpec, 0, len(specs))
	for _, s := range specs {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out
}
