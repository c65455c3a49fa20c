// Package models defines the core data structures for ClimateCanvas.
//
// It includes the generation request/result shapes exchanged with the web client,
// the climate dataset entries, and the generation history records shared across modules.
package models

import (
	"errors"
	"strings"
	"time"
)

const (
	// ErrorProvider is the provider marker carried by a degraded image entry.
	ErrorProvider = "Error"
	// PlaceholderImageURL is the generic placeholder shown in place of a generated image.
	PlaceholderImageURL = "/placeholder.svg?height=1024&width=1024"
)

// Validation errors for inbound requests
var (
	ErrMissingCity  = errors.New("city is required")
	ErrMissingIssue = errors.New("issue is required")
)

// GenerationRequest is the inbound body of POST /api/generate and POST /api/slogans.
type GenerationRequest struct {
	City  string `json:"city"`
	Issue string `json:"issue"`
}

// Normalize trims surrounding whitespace from both fields.
func (r GenerationRequest) Normalize() GenerationRequest {
	return GenerationRequest{City: strings.TrimSpace(r.City), Issue: strings.TrimSpace(r.Issue)}
}

// Validate reports the first missing field.
func (r GenerationRequest) Validate() error {
	n := r.Normalize()
	if n.City == "" {
		return ErrMissingCity
	}
	if n.Issue == "" {
		return ErrMissingIssue
	}
	return nil
}

// GeneratedImage is one entry of a generation result.
// Error is only set when Provider is ErrorProvider.
type GeneratedImage struct {
	URL      string `json:"url"`
	Provider string `json:"provider"`
	Error    string `json:"error,omitempty"`
}

// IsPlaceholder reports whether the entry stands in for a failed generation.
func (g GeneratedImage) IsPlaceholder() bool {
	return g.Provider == ErrorProvider
}

// DegradedImage builds the single placeholder entry returned when the provider call fails.
func DegradedImage(message string) GeneratedImage {
	if message == "" {
		message = "Failed to generate image"
	}
	return GeneratedImage{
		URL:      PlaceholderImageURL,
		Provider: ErrorProvider,
		Error:    message,
	}
}

// GenerateResponse is the body of POST /api/generate.
// Images is always present; it is empty only on internal failures.
type GenerateResponse struct {
	Images []GeneratedImage `json:"images"`
	Error  string           `json:"error,omitempty"`
}

// ErrorResponse is the body of a rejected request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// SlogansResponse is the body of POST /api/slogans.
type SlogansResponse struct {
	Slogans []string `json:"slogans"`
}

// DownloadRequest is the body of POST /api/download.
type DownloadRequest struct {
	URL string `json:"url"`
}

// ClimateIssueData holds the educational content for one issue in one city.
type ClimateIssueData struct {
	Causes    []string `json:"causes" yaml:"causes"`
	Effects   []string `json:"effects" yaml:"effects"`
	Solutions []string `json:"solutions" yaml:"solutions"`
}

// CityIssues lists the issues known for a city.
type CityIssues struct {
	City   string   `json:"city"`
	Issues []string `json:"issues"`
}

// GenerationOutcome is the persisted terminal state of a generation.
type GenerationOutcome string

const (
	// GenerationOutcomeSuccess means a real image was produced.
	GenerationOutcomeSuccess GenerationOutcome = "success"
	// GenerationOutcomeDegraded means a placeholder and an explanation were returned.
	GenerationOutcomeDegraded GenerationOutcome = "degraded"
)

// GenerationRecord is one entry of the generation history.
// The image payload itself is never stored.
type GenerationRecord struct {
	ID        string            `json:"id"`
	City      string            `json:"city"`
	Issue     string            `json:"issue"`
	Provider  string            `json:"provider"`
	Outcome   GenerationOutcome `json:"outcome"`
	Error     string            `json:"error,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// APIStatus represents the status field of the generic API envelope.
type APIStatus string

const (
	// APIStatusOK indicates a successful API response.
	APIStatusOK APIStatus = "ok"
	// APIStatusError indicates an error API response.
	APIStatusError APIStatus = "error"
)

// API Response types for consistent JSON responses

// APIResponse represents a standard API response with a status and optional data.
type APIResponse struct {
	Status  string      `json:"status"`            // status of the API response
	Message string      `json:"message,omitempty"` // optional message for error responses or additional info
	Result  interface{} `json:"result,omitempty"`  // optional result data for successful responses
}

// APIResponseBuilder provides a fluent interface for building API responses.
type APIResponseBuilder struct {
	response APIResponse
}

// NewAPIResponseBuilder creates a new APIResponseBuilder instance.
func NewAPIResponseBuilder() *APIResponseBuilder {
	return &APIResponseBuilder{
		response: APIResponse{},
	}
}

// WithStatus sets the status of the API response.
func (b *APIResponseBuilder) WithStatus(status APIStatus) *APIResponseBuilder {
	b.response.Status = string(status)
	return b
}

// WithMessage sets the message of the API response.
func (b *APIResponseBuilder) WithMessage(message string) *APIResponseBuilder {
	b.response.Message = message
	return b
}

// WithResult sets the result data of the API response.
func (b *APIResponseBuilder) WithResult(result interface{}) *APIResponseBuilder {
	b.response.Result = result
	return b
}

// Build constructs and returns the final APIResponse.
func (b *APIResponseBuilder) Build() APIResponse {
	return b.response
}

// Success creates a successful API response with optional result data.
func Success(result interface{}) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusOK).
		WithResult(result).
		Build()
}

// Error creates an error API response with a message.
func Error(message string) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusError).
		WithMessage(message).
		Build()
}
