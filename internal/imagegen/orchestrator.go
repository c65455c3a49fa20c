package imagegen

import (
	"context"
	"log/slog"
	"time"

	"github.com/BTreeMap/ClimateCanvas/internal/models"
)

// OutcomeKind is the terminal state of one generation.
type OutcomeKind int

const (
	// OutcomeRejected means the request was invalid; no provider call was made.
	OutcomeRejected OutcomeKind = iota
	// OutcomeSuccess means the provider produced an image.
	OutcomeSuccess
	// OutcomeDegraded means the provider call failed and a placeholder stands in.
	OutcomeDegraded
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeRejected:
		return "rejected"
	case OutcomeSuccess:
		return "success"
	case OutcomeDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// Outcome is the result of Orchestrator.Generate.
//
// Rejected carries a *ValidationError in Err and no images. Success and Degraded always
// carry exactly one image; Degraded additionally keeps the absorbed failure in Err.
type Outcome struct {
	Kind     OutcomeKind
	Request  models.GenerationRequest
	Images   []models.GeneratedImage
	Provider string
	Err      error
	Duration time.Duration
}

// Orchestrator runs the validate, prompt, call, normalize sequence against one provider.
type Orchestrator struct {
	provider Provider
}

// NewOrchestrator creates an Orchestrator. A nil provider degrades every request.
func NewOrchestrator(provider Provider) *Orchestrator {
	return &Orchestrator{provider: provider}
}

// ProviderName returns the display name of the configured provider.
func (o *Orchestrator) ProviderName() string {
	if o.provider == nil {
		return ""
	}
	return o.provider.Name()
}

// Generate produces an image for the issue in the city.
// Past validation it never fails: any provider failure is returned as a Degraded outcome.
func (o *Orchestrator) Generate(ctx context.Context, city, issue string) Outcome {
	start := time.Now()
	req := models.GenerationRequest{City: city, Issue: issue}.Normalize()
	out := Outcome{Request: req, Provider: o.ProviderName()}

	if err := req.Validate(); err != nil {
		slog.Warn("Orchestrator.Generate: rejected request", "error", err)
		out.Kind = OutcomeRejected
		out.Err = &ValidationError{Err: err}
		out.Duration = time.Since(start)
		return out
	}

	img, err := o.callProvider(ctx, req)
	out.Duration = time.Since(start)
	if err != nil {
		slog.Warn("Orchestrator.Generate: provider call failed, returning placeholder",
			"city", req.City, "issue", req.Issue, "provider", out.Provider, "error", err)
		out.Kind = OutcomeDegraded
		out.Err = err
		out.Images = []models.GeneratedImage{models.DegradedImage(err.Error())}
		return out
	}

	slog.Info("Orchestrator.Generate: image generated",
		"city", req.City, "issue", req.Issue, "provider", out.Provider, "duration", out.Duration)
	out.Kind = OutcomeSuccess
	out.Images = []models.GeneratedImage{img}
	return out
}

// callProvider is the boundary inside which every failure is absorbed by Generate.
func (o *Orchestrator) callProvider(ctx context.Context, req models.GenerationRequest) (models.GeneratedImage, error) {
	if o.provider == nil {
		return models.GeneratedImage{}, &ConfigurationError{Setting: "image provider"}
	}
	if err := o.provider.CheckCredentials(); err != nil {
		return models.GeneratedImage{}, err
	}

	prompt := BuildPrompt(req.City, req.Issue)
	slog.Debug("Orchestrator.callProvider: prompt built", "prompt", prompt)

	image, err := o.provider.TextToImage(ctx, prompt)
	if err != nil {
		return models.GeneratedImage{}, err
	}
	return models.GeneratedImage{
		URL:      image.DataURI(),
		Provider: o.provider.Name(),
	}, nil
}
