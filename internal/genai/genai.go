// Package genai provides text generation using the OpenAI API.
//
// ClimateCanvas uses it to write short awareness slogans for a city and climate issue.
package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Default generation settings
const (
	DefaultModel               = string(openai.ChatModelGPT4oMini)
	DefaultTemperature         = 0.9
	DefaultMaxCompletionTokens = 300
	// MaxSlogans caps the number of slogans returned to the client.
	MaxSlogans = 5
)

var (
	// ErrMissingAPIKey is returned when no OpenAI API key was provided.
	ErrMissingAPIKey = errors.New("OPENAI_API_KEY not set")
	// ErrNoChoicesReturned is returned when the completion carries no choices.
	ErrNoChoicesReturned = errors.New("no choices returned")
	// ErrNoSlogans is returned when the completion contains no usable lines.
	ErrNoSlogans = errors.New("no slogans in completion")
)

const sloganSystemPrompt = "You write short, memorable climate change awareness slogans. " +
	"Each slogan is a single line of at most twelve words. Reply with the slogans only, one per line."

// listMarker matches leading bullets and numbering such as "- ", "* ", "1. " or "2) ".
var listMarker = regexp.MustCompile(`^\s*(?:[-*•]+|\d+[.)])\s*`)

// chatService defines the minimal interface for chat completions.
type chatService interface {
	Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error)
}

// openAIChatService adapts the SDK completion service to chatService.
type openAIChatService struct {
	client openai.Client
}

func (s *openAIChatService) Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error) {
	resp, err := s.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return openai.ChatCompletion{}, err
	}
	return *resp, nil
}

// Opts holds configuration for the GenAI client.
type Opts struct {
	APIKey      string
	Model       string
	Temperature float64
}

// Option configures Opts.
type Option func(*Opts)

// WithAPIKey sets the OpenAI API key.
func WithAPIKey(key string) Option {
	return func(o *Opts) {
		o.APIKey = key
	}
}

// WithModel overrides the chat model.
func WithModel(model string) Option {
	return func(o *Opts) {
		o.Model = model
	}
}

// WithTemperature overrides the sampling temperature.
func WithTemperature(temperature float64) Option {
	return func(o *Opts) {
		o.Temperature = temperature
	}
}

// Client wraps the OpenAI chat completion service.
type Client struct {
	chat                chatService
	model               string
	temperature         float64
	maxCompletionTokens int64
}

// NewClient initializes a new GenAI client. An API key is required.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	slog.Debug("genai.NewClient: client configured", "model", cfg.Model, "temperature", cfg.Temperature)
	cli := openai.NewClient(option.WithAPIKey(cfg.APIKey))
	return &Client{
		chat:                &openAIChatService{client: cli},
		model:               cfg.Model,
		temperature:         cfg.Temperature,
		maxCompletionTokens: DefaultMaxCompletionTokens,
	}, nil
}

// GeneratePrompt generates a response based on the provided system and user prompts.
func (c *Client) GeneratePrompt(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
		Temperature:         openai.Float(c.temperature),
		MaxCompletionTokens: openai.Int(c.maxCompletionTokens),
	}
	resp, err := c.chat.Create(ctx, params)
	if err != nil {
		slog.Error("Client.GeneratePrompt: completion failed", "error", err, "model", c.model)
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoicesReturned
	}
	return resp.Choices[0].Message.Content, nil
}

// GenerateSlogans asks the model for awareness slogans about an issue in a city.
func (c *Client) GenerateSlogans(ctx context.Context, city, issue string) ([]string, error) {
	userPrompt := fmt.Sprintf("Write %d slogans raising awareness of %s in %s.", MaxSlogans, issue, city)
	content, err := c.GeneratePrompt(ctx, sloganSystemPrompt, userPrompt)
	if err != nil {
		return nil, err
	}
	slogans := ParseSlogans(content)
	if len(slogans) == 0 {
		slog.Warn("Client.GenerateSlogans: completion had no usable lines", "city", city, "issue", issue)
		return nil, ErrNoSlogans
	}
	slog.Debug("Client.GenerateSlogans: slogans generated", "city", city, "issue", issue, "count", len(slogans))
	return slogans, nil
}

// ParseSlogans splits a completion into slogans, one per line.
// List markers and surrounding quotes are stripped, blank lines dropped and the result capped at MaxSlogans.
func ParseSlogans(content string) []string {
	var slogans []string
	for _, line := range strings.Split(content, "\n") {
		line = listMarker.ReplaceAllString(line, "")
		line = strings.Trim(strings.TrimSpace(line), `"“”`)
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		slogans = append(slogans, line)
		if len(slogans) == MaxSlogans {
			break
		}
	}
	return slogans
}
