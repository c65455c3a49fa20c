package imagegen

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// newStabilityStub starts a provider stand-in that answers every request with status and body.
func newStabilityStub(t *testing.T, status int, body string, inspect func(*http.Request, []byte)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		if inspect != nil {
			inspect(r, raw)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestStabilityProvider_RequestShape(t *testing.T) {
	var got textToImageRequest
	var auth, path, method string
	srv := newStabilityStub(t, http.StatusOK, `{"artifacts":[{"base64":"iVBORw0KGgo=","seed":1,"finishReason":"SUCCESS"}]}`,
		func(r *http.Request, raw []byte) {
			auth = r.Header.Get("Authorization")
			path = r.URL.Path
			method = r.Method
			if err := json.Unmarshal(raw, &got); err != nil {
				t.Errorf("provider received invalid JSON: %v", err)
			}
		})

	p := NewStabilityProvider(WithStabilityAPIKey("sk-test"), WithStabilityBaseURL(srv.URL))
	img, err := p.TextToImage(context.Background(), "a prompt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if img.Base64 != "iVBORw0KGgo=" {
		t.Errorf("unexpected payload %q", img.Base64)
	}

	if method != http.MethodPost || path != StabilityTextToImagePath {
		t.Errorf("unexpected request %s %s", method, path)
	}
	if auth != "Bearer sk-test" {
		t.Errorf("unexpected Authorization header %q", auth)
	}
	want := textToImageRequest{
		TextPrompts: []textPrompt{{Text: "a prompt", Weight: 1}},
		CfgScale:    7,
		Height:      1024,
		Width:       1024,
		Steps:       30,
		Samples:     1,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("request body mismatch (-want +got):\n%s", diff)
	}
}

func TestStabilityProvider_MissingKeyMakesNoCall(t *testing.T) {
	called := false
	srv := newStabilityStub(t, http.StatusOK, `{}`, func(*http.Request, []byte) { called = true })

	p := NewStabilityProvider(WithStabilityBaseURL(srv.URL))
	_, err := p.TextToImage(context.Background(), "prompt")
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
	if called {
		t.Error("provider must not be called without a credential")
	}
}

func TestStabilityProvider_ErrorStatus(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
	}{
		{"structured message", http.StatusUnauthorized, `{"id":"x","name":"unauthorized","message":"Missing API key"}`, "Missing API key"},
		{"unparsable body", http.StatusInternalServerError, `<html>oops</html>`, "Internal Server Error"},
		{"empty message", http.StatusBadRequest, `{"name":"bad_request"}`, "Bad Request"},
		{"empty body", http.StatusServiceUnavailable, ``, "Service Unavailable"},
		{"numeric id", http.StatusTooManyRequests, `{"id":12345,"name":"rate_limited","message":"Too many requests, slow down"}`, "Too many requests, slow down"},
		{"non-string message", http.StatusBadRequest, `{"message":{"detail":"x"}}`, "Bad Request"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newStabilityStub(t, tt.status, tt.body, nil)
			p := NewStabilityProvider(WithStabilityAPIKey("sk-test"), WithStabilityBaseURL(srv.URL))

			_, err := p.TextToImage(context.Background(), "prompt")
			var perr *ProviderError
			if !errors.As(err, &perr) {
				t.Fatalf("expected ProviderError, got %v", err)
			}
			if perr.Kind != ProviderErrorStatus {
				t.Errorf("expected status kind, got %s", perr.Kind)
			}
			if perr.StatusCode != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, perr.StatusCode)
			}
			if perr.Message != tt.wantMessage {
				t.Errorf("expected message %q, got %q", tt.wantMessage, perr.Message)
			}
			if !strings.Contains(err.Error(), tt.wantMessage) {
				t.Errorf("error text %q should contain %q", err.Error(), tt.wantMessage)
			}
		})
	}
}

func TestStabilityProvider_MalformedSuccess(t *testing.T) {
	bodies := map[string]string{
		"not json":         `not json`,
		"no artifacts":     `{"result":"ok"}`,
		"empty artifacts":  `{"artifacts":[]}`,
		"artifact no data": `{"artifacts":[{"seed":42}]}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			srv := newStabilityStub(t, http.StatusOK, body, nil)
			p := NewStabilityProvider(WithStabilityAPIKey("sk-test"), WithStabilityBaseURL(srv.URL))

			_, err := p.TextToImage(context.Background(), "prompt")
			var perr *ProviderError
			if !errors.As(err, &perr) {
				t.Fatalf("expected ProviderError, got %v", err)
			}
			if perr.Kind != ProviderErrorMalformed {
				t.Errorf("expected malformed kind, got %s", perr.Kind)
			}
		})
	}
}

func TestParseTextToImageResponse_IgnoresArtifactMetadataTypes(t *testing.T) {
	bodies := map[string]string{
		"string seed":          `{"artifacts":[{"base64":"AAAA","seed":"7","finishReason":"SUCCESS"}]}`,
		"numeric finishReason": `{"artifacts":[{"base64":"AAAA","seed":7,"finishReason":0}]}`,
		"float seed":           `{"artifacts":[{"base64":"AAAA","seed":1.5e10}]}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			img, err := parseTextToImageResponse(http.StatusOK, "OK", []byte(body))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if img.Base64 != "AAAA" {
				t.Errorf("unexpected payload %q", img.Base64)
			}
		})
	}
}

func TestStabilityProvider_TransportFailure(t *testing.T) {
	srv := newStabilityStub(t, http.StatusOK, `{}`, nil)
	url := srv.URL
	srv.Close()

	p := NewStabilityProvider(WithStabilityAPIKey("sk-test"), WithStabilityBaseURL(url))
	_, err := p.TextToImage(context.Background(), "prompt")
	var perr *ProviderError
	if !errors.As(err, &perr) || perr.Kind != ProviderErrorRequest {
		t.Fatalf("expected request ProviderError, got %v", err)
	}
}

func TestStatusPhraseFallback(t *testing.T) {
	resp := &http.Response{StatusCode: 599, Status: "599"}
	if got := statusPhrase(resp); got != "HTTP 599" {
		t.Errorf("unexpected phrase %q", got)
	}
	resp = &http.Response{StatusCode: 404, Status: "404 Not Found"}
	if got := statusPhrase(resp); got != "Not Found" {
		t.Errorf("unexpected phrase %q", got)
	}
}

func TestImageDataURI(t *testing.T) {
	if got := (Image{Base64: "AAAA"}).DataURI(); got != "data:image/png;base64,AAAA" {
		t.Errorf("unexpected data URI %q", got)
	}
	if got := (Image{Base64: "AAAA", MIMEType: "image/jpeg"}).DataURI(); got != "data:image/jpeg;base64,AAAA" {
		t.Errorf("unexpected data URI %q", got)
	}
}
