package imagegen

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

const (
	defaultHFBaseURL = "https://api-inference.huggingface.co/models"
	defaultHFTimeout = 120 * time.Second

	fullInferenceSteps    = 50
	reducedInferenceSteps = 30

	negativePrompt = "blurry, bad quality, distorted, deformed, ugly, text, watermark, " +
		"logo, words, letters, writing, watermarks, signatures, labels, badges, stamps, " +
		"overlay text, corner text, harsh lighting, horror, scary, violent"
)

type hfParameters struct {
	NegativePrompt    string  `json:"negative_prompt,omitempty"`
	NumInferenceSteps int     `json:"num_inference_steps,omitempty"`
	GuidanceScale     float64 `json:"guidance_scale,omitempty"`
}

type hfRequest struct {
	Inputs     string       `json:"inputs"`
	Parameters hfParameters `json:"parameters"`
}

// HFConfig configures a Hugging Face inference provider.
type HFConfig struct {
	APIKey     string
	Model      string
	BaseURL    string
	TimeoutSec int
}

// HFProvider generates images through the Hugging Face inference API.
type HFProvider struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewHFProvider builds a provider for one hosted model.
func NewHFProvider(cfg HFConfig) (*HFProvider, error) {
	if cfg.APIKey == "" {
		return nil, ErrAPIKeyRequired
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultHFBaseURL
	}
	timeout := defaultHFTimeout
	if cfg.TimeoutSec > 0 {
		timeout = time.Duration(cfg.TimeoutSec) * time.Second
	}

	return &HFProvider{
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

func (p *HFProvider) Name() string {
	return "huggingface/" + p.model
}

func (p *HFProvider) Generate(ctx context.Context, description string, quality Quality) (*Artifact, error) {
	apiReq := hfRequest{
		Inputs: description,
		Parameters: hfParameters{
			NegativePrompt:    negativePrompt,
			NumInferenceSteps: fullInferenceSteps,
			GuidanceScale:     7.5,
		},
	}
	if quality == QualityReduced {
		apiReq.Parameters.NumInferenceSteps = reducedInferenceSteps
		apiReq.Parameters.GuidanceScale = 0
	}

	jsonData, err := json.Marshal(apiReq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := p.baseURL + "/" + p.model
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusOK && len(body) > 0 {
		return &Artifact{
			URL:      "data:image/png;base64," + base64.StdEncoding.EncodeToString(body),
			Provider: p.Name(),
		}, nil
	}

	if strings.Contains(string(body), "loading") {
		return nil, fmt.Errorf("%w: %s", ErrModelLoading, p.model)
	}
	return nil, fmt.Errorf("%w: status %d from %s", ErrGenerationFailed, resp.StatusCode, p.model)
}
