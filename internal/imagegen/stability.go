package imagegen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
)

const (
	// StabilityProviderName is the display name of the Stability AI provider.
	StabilityProviderName = "Stability AI"
	// StabilityAPIKeyEnv is the environment variable holding the Stability AI credential.
	StabilityAPIKeyEnv = "STABILITY_API_KEY"
	// DefaultStabilityBaseURL is the public Stability AI API host.
	DefaultStabilityBaseURL = "https://api.stability.ai"
	// StabilityTextToImagePath is the SDXL 1.0 synchronous text-to-image endpoint.
	StabilityTextToImagePath = "/v1/generation/stable-diffusion-xl-1024-v1-0/text-to-image"
)

var (
	errUnparsableBody = errors.New("failed to parse response body")
	errMissingImage   = errors.New("response contains no image artifact")
)

type textPrompt struct {
	Text   string  `json:"text"`
	Weight float64 `json:"weight"`
}

type textToImageRequest struct {
	TextPrompts []textPrompt `json:"text_prompts"`
	CfgScale    float64      `json:"cfg_scale"`
	Height      int          `json:"height"`
	Width       int          `json:"width"`
	Steps       int          `json:"steps"`
	Samples     int          `json:"samples"`
}

// artifact decodes only the payload; seed and finishReason stay raw so their types never matter.
type artifact struct {
	Base64       string          `json:"base64"`
	Seed         json.RawMessage `json:"seed,omitempty"`
	FinishReason json.RawMessage `json:"finishReason,omitempty"`
}

// artifactsPayload is the success shape of a text-to-image response.
type artifactsPayload struct {
	Artifacts []artifact `json:"artifacts"`
}

// messagePayload is the error shape of a Stability AI response.
// Only message is decoded; id and name vary in type across API versions.
type messagePayload struct {
	Message string `json:"message"`
}

// StabilityProvider calls the Stability AI REST API.
type StabilityProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewStabilityProvider creates a Stability AI provider from options.
// A missing API key is not an error here; CheckCredentials reports it per request.
func NewStabilityProvider(opts ...Option) *StabilityProvider {
	cfg := applyOptions(opts)
	baseURL := strings.TrimRight(cfg.StabilityBaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultStabilityBaseURL
	}
	client := cfg.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	slog.Debug("NewStabilityProvider: provider configured", "base_url", baseURL, "api_key_set", cfg.StabilityAPIKey != "")
	return &StabilityProvider{
		apiKey:     cfg.StabilityAPIKey,
		baseURL:    baseURL,
		httpClient: client,
	}
}

// Name implements Provider.
func (p *StabilityProvider) Name() string {
	return StabilityProviderName
}

// CheckCredentials implements Provider.
func (p *StabilityProvider) CheckCredentials() error {
	if p.apiKey == "" {
		return &ConfigurationError{Setting: StabilityAPIKeyEnv}
	}
	return nil
}

// TextToImage implements Provider.
func (p *StabilityProvider) TextToImage(ctx context.Context, prompt string) (Image, error) {
	if err := p.CheckCredentials(); err != nil {
		return Image{}, err
	}

	payload, err := json.Marshal(textToImageRequest{
		TextPrompts: []textPrompt{{Text: prompt, Weight: PromptWeight}},
		CfgScale:    CfgScale,
		Height:      ImageHeight,
		Width:       ImageWidth,
		Steps:       ImageSteps,
		Samples:     ImageSamples,
	})
	if err != nil {
		return Image{}, fmt.Errorf("failed to encode text-to-image request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+StabilityTextToImagePath, bytes.NewReader(payload))
	if err != nil {
		return Image{}, p.requestError(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	slog.Debug("StabilityProvider.TextToImage: calling provider", "prompt_len", len(prompt))
	resp, err := p.httpClient.Do(req)
	if err != nil {
		slog.Error("StabilityProvider.TextToImage: request failed", "error", err)
		return Image{}, p.requestError(err)
	}
	defer resp.Body.Close()

	// The body is read in full before the status is looked at so that error bodies can be decoded.
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.Error("StabilityProvider.TextToImage: failed to read response body", "error", err, "status", resp.StatusCode)
		return Image{}, p.requestError(err)
	}
	slog.Debug("StabilityProvider.TextToImage: response received", "status", resp.StatusCode, "body_len", len(body))

	return parseTextToImageResponse(resp.StatusCode, statusPhrase(resp), body)
}

func (p *StabilityProvider) requestError(err error) error {
	return &ProviderError{
		Kind:     ProviderErrorRequest,
		Provider: StabilityProviderName,
		Message:  err.Error(),
		Err:      err,
	}
}

// parseTextToImageResponse decodes a response as the success shape, then the error shape,
// then falls back to the status phrase.
func parseTextToImageResponse(statusCode int, phrase string, body []byte) (Image, error) {
	if statusCode < 200 || statusCode > 299 {
		message := phrase
		if m, ok := decodeProviderMessage(body); ok {
			message = m
		}
		slog.Warn("parseTextToImageResponse: provider returned error status", "status", statusCode, "message", message)
		return Image{}, &ProviderError{
			Kind:       ProviderErrorStatus,
			Provider:   StabilityProviderName,
			StatusCode: statusCode,
			Message:    message,
		}
	}

	encoded, err := decodeArtifacts(body)
	if err != nil {
		slog.Warn("parseTextToImageResponse: malformed success response", "status", statusCode, "error", err)
		return Image{}, &ProviderError{
			Kind:       ProviderErrorMalformed,
			Provider:   StabilityProviderName,
			StatusCode: statusCode,
			Message:    err.Error(),
			Err:        err,
		}
	}
	return Image{Base64: encoded, MIMEType: DefaultImageMIMEType}, nil
}

// decodeArtifacts returns the base64 payload of the first artifact.
func decodeArtifacts(body []byte) (string, error) {
	var payload artifactsPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("%w: %v", errUnparsableBody, err)
	}
	if len(payload.Artifacts) == 0 || payload.Artifacts[0].Base64 == "" {
		return "", errMissingImage
	}
	return payload.Artifacts[0].Base64, nil
}

// decodeProviderMessage extracts the message field of an error body.
func decodeProviderMessage(body []byte) (string, bool) {
	var payload messagePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", false
	}
	if payload.Message == "" {
		return "", false
	}
	return payload.Message, true
}

// statusPhrase returns the reason phrase of a response, e.g. "Not Found".
func statusPhrase(resp *http.Response) string {
	phrase := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if phrase == "" {
		phrase = http.StatusText(resp.StatusCode)
	}
	if phrase == "" {
		phrase = "HTTP " + strconv.Itoa(resp.StatusCode)
	}
	return phrase
}
