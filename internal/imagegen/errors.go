package imagegen

import (
	"fmt"
	"strconv"
)

// ValidationError reports a malformed inbound generation request.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid generation request: %v", e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ConfigurationError reports a missing provider credential.
type ConfigurationError struct {
	Setting string
}

func (e *ConfigurationError) Error() string {
	return e.Setting + " is not configured"
}

// ProviderErrorKind distinguishes the ways a provider call can fail.
type ProviderErrorKind string

const (
	// ProviderErrorRequest means the request never produced an HTTP response.
	ProviderErrorRequest ProviderErrorKind = "request"
	// ProviderErrorStatus means the provider answered with a non-2xx status.
	ProviderErrorStatus ProviderErrorKind = "status"
	// ProviderErrorMalformed means a 2xx answer did not carry an image payload.
	ProviderErrorMalformed ProviderErrorKind = "malformed"
)

// ProviderError is a failed call to an image provider.
// Message is the provider's own explanation (or the HTTP status phrase).
type ProviderError struct {
	Kind       ProviderErrorKind
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	switch e.Kind {
	case ProviderErrorStatus:
		return fmt.Sprintf("%s API error: %s - %s", e.Provider, strconv.Itoa(e.StatusCode), e.Message)
	case ProviderErrorMalformed:
		return fmt.Sprintf("invalid response from %s: %s", e.Provider, e.Message)
	default:
		return fmt.Sprintf("%s request failed: %s", e.Provider, e.Message)
	}
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
