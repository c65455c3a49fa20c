// Package imagegen turns a (city, issue) selection into an awareness image.
//
// It contains the prompt builder, the text-to-image providers (Stability AI over plain HTTP,
// Gemini through the genai SDK) and the orchestrator that maps every provider outcome onto a
// uniform, always-renderable result.
package imagegen

import (
	"context"
	"net/http"
)

// Generation policy constants. These are fixed and not user-configurable.
const (
	ImageWidth   = 1024
	ImageHeight  = 1024
	ImageSteps   = 30
	ImageSamples = 1
	CfgScale     = 7
	PromptWeight = 1
)

// DefaultImageMIMEType is assumed when a provider does not report one.
const DefaultImageMIMEType = "image/png"

// Image is an encoded image payload returned by a provider.
type Image struct {
	Base64   string
	MIMEType string
}

// DataURI wraps the payload as a data URI suitable for an <img> src.
func (i Image) DataURI() string {
	mime := i.MIMEType
	if mime == "" {
		mime = DefaultImageMIMEType
	}
	return "data:" + mime + ";base64," + i.Base64
}

// Provider is an external text-to-image service.
type Provider interface {
	// Name is the display name attached to successful results.
	Name() string
	// CheckCredentials returns a *ConfigurationError when the provider cannot be called.
	CheckCredentials() error
	// TextToImage performs one synchronous generation for the prompt.
	TextToImage(ctx context.Context, prompt string) (Image, error)
}

// Opts holds configuration for the providers.
type Opts struct {
	StabilityAPIKey  string
	StabilityBaseURL string
	GeminiAPIKey     string
	GeminiModel      string
	HTTPClient       *http.Client
}

// Option configures Opts.
type Option func(*Opts)

// WithStabilityAPIKey sets the Stability AI bearer token.
func WithStabilityAPIKey(key string) Option {
	return func(o *Opts) {
		o.StabilityAPIKey = key
	}
}

// WithStabilityBaseURL overrides the Stability AI API host (used by tests).
func WithStabilityBaseURL(baseURL string) Option {
	return func(o *Opts) {
		o.StabilityBaseURL = baseURL
	}
}

// WithGeminiAPIKey sets the Gemini API key.
func WithGeminiAPIKey(key string) Option {
	return func(o *Opts) {
		o.GeminiAPIKey = key
	}
}

// WithGeminiModel overrides the Gemini image model.
func WithGeminiModel(model string) Option {
	return func(o *Opts) {
		o.GeminiModel = model
	}
}

// WithHTTPClient sets the HTTP client used for outbound provider calls.
func WithHTTPClient(client *http.Client) Option {
	return func(o *Opts) {
		o.HTTPClient = client
	}
}

func applyOptions(opts []Option) Opts {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
