package imagegen

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"

	"google.golang.org/genai"
)

const (
	// GeminiProviderName is the display name of the Gemini provider.
	GeminiProviderName = "Gemini"
	// GeminiAPIKeyEnv is the environment variable holding the Gemini credential.
	GeminiAPIKeyEnv = "GEMINI_API_KEY"
	// DefaultGeminiModel is the image-capable Gemini model.
	DefaultGeminiModel = "gemini-2.5-flash-image"
)

var errNoInlineImage = errors.New("response contains no inline image data")

// contentGenerator is the subset of genai.Models used by GeminiProvider.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiProvider generates images with a Gemini image model.
type GeminiProvider struct {
	models contentGenerator
	model  string
}

// NewGeminiProvider creates a Gemini provider. Without an API key the provider is
// created unconfigured and CheckCredentials reports it.
func NewGeminiProvider(ctx context.Context, opts ...Option) (*GeminiProvider, error) {
	cfg := applyOptions(opts)
	model := cfg.GeminiModel
	if model == "" {
		model = DefaultGeminiModel
	}
	p := &GeminiProvider{model: model}
	if cfg.GeminiAPIKey == "" {
		slog.Warn("NewGeminiProvider: GEMINI_API_KEY not set, image generation will degrade")
		return p, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     cfg.GeminiAPIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	p.models = client.Models
	slog.Debug("NewGeminiProvider: provider configured", "model", model)
	return p, nil
}

// Name implements Provider.
func (p *GeminiProvider) Name() string {
	return GeminiProviderName
}

// CheckCredentials implements Provider.
func (p *GeminiProvider) CheckCredentials() error {
	if p.models == nil {
		return &ConfigurationError{Setting: GeminiAPIKeyEnv}
	}
	return nil
}

// TextToImage implements Provider.
func (p *GeminiProvider) TextToImage(ctx context.Context, prompt string) (Image, error) {
	if err := p.CheckCredentials(); err != nil {
		return Image{}, err
	}

	slog.Debug("GeminiProvider.TextToImage: calling provider", "model", p.model, "prompt_len", len(prompt))
	resp, err := p.models.GenerateContent(ctx, p.model, genai.Text(prompt), &genai.GenerateContentConfig{
		SafetySettings: safetySettings(),
	})
	if err != nil {
		slog.Error("GeminiProvider.TextToImage: request failed", "error", err)
		return Image{}, &ProviderError{
			Kind:     ProviderErrorRequest,
			Provider: GeminiProviderName,
			Message:  err.Error(),
			Err:      err,
		}
	}

	img, err := extractInlineImage(resp)
	if err != nil {
		slog.Warn("GeminiProvider.TextToImage: malformed response", "error", err)
		return Image{}, &ProviderError{
			Kind:     ProviderErrorMalformed,
			Provider: GeminiProviderName,
			Message:  err.Error(),
			Err:      err,
		}
	}
	return img, nil
}

// safetySettings blocks medium-and-above harm in every category.
func safetySettings() []*genai.SafetySetting {
	categories := []genai.HarmCategory{
		genai.HarmCategoryHarassment,
		genai.HarmCategoryHateSpeech,
		genai.HarmCategorySexuallyExplicit,
		genai.HarmCategoryDangerousContent,
	}
	settings := make([]*genai.SafetySetting, 0, len(categories))
	for _, category := range categories {
		settings = append(settings, &genai.SafetySetting{
			Category:  category,
			Threshold: genai.HarmBlockThresholdBlockMediumAndAbove,
		})
	}
	return settings
}

// extractInlineImage returns the first inline image of the first candidate.
func extractInlineImage(resp *genai.GenerateContentResponse) (Image, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return Image{}, errNoInlineImage
	}
	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return Image{}, fmt.Errorf("generation blocked by safety filters")
	}
	if candidate.Content == nil {
		return Image{}, errNoInlineImage
	}
	for _, part := range candidate.Content.Parts {
		if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
			continue
		}
		return Image{
			Base64:   base64.StdEncoding.EncodeToString(part.InlineData.Data),
			MIMEType: part.InlineData.MIMEType,
		}, nil
	}
	return Image{}, errNoInlineImage
}
