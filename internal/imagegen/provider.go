// Package imagegen turns final descriptions into image artifacts.
//
// A pipeline walks an ordered provider chain; the first success wins. A
// provider reporting that its model is still loading gets one cooled-down
// retry at reduced quality. When the whole chain fails, a deterministic
// locally rendered placeholder is returned, so the pipeline never errors.
package imagegen

import (
	"context"
	"errors"
)

var (
	// ErrGenerationFailed wraps terminal provider errors.
	ErrGenerationFailed = errors.New("image generation failed")
	// ErrModelLoading marks the retryable "model is loading" provider state.
	ErrModelLoading = errors.New("model is loading")
	// ErrAPIKeyRequired is returned when a provider is built without credentials.
	ErrAPIKeyRequired = errors.New("API key is required")
)

// Quality selects generation effort. Reduced quality is used for the single
// retry after a loading cooldown.
type Quality int

const (
	QualityFull Quality = iota
	QualityReduced
)

// Artifact is the product of image generation: a URL or an embedded data URI.
type Artifact struct {
	URL      string `json:"url"`
	Provider string `json:"provider,omitempty"`
}

// Provider is one remote image-generation backend.
type Provider interface {
	Name() string
	Generate(ctx context.Context, description string, quality Quality) (*Artifact, error)
}
