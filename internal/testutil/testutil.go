// Package testutil provides common test utilities and helpers for ClimateCanvas tests.
package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/BTreeMap/ClimateCanvas/internal/imagegen"
	"github.com/BTreeMap/ClimateCanvas/internal/models"
	"github.com/BTreeMap/ClimateCanvas/internal/store"
)

// TB is the subset of testing.TB used by the helpers, so they can be checked themselves.
type TB interface {
	Helper()
	Errorf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})
}

// StubProvider is an in-process imagegen.Provider with canned results.
type StubProvider struct {
	ProviderName string
	CredErr      error
	Image        imagegen.Image
	Err          error
	// Panic makes TextToImage panic with this value when non-nil.
	Panic interface{}

	mu      sync.Mutex
	prompts []string
}

// Name implements imagegen.Provider.
func (p *StubProvider) Name() string {
	if p.ProviderName == "" {
		return "Stub"
	}
	return p.ProviderName
}

// CheckCredentials implements imagegen.Provider.
func (p *StubProvider) CheckCredentials() error {
	return p.CredErr
}

// TextToImage implements imagegen.Provider.
func (p *StubProvider) TextToImage(_ context.Context, prompt string) (imagegen.Image, error) {
	p.mu.Lock()
	p.prompts = append(p.prompts, prompt)
	p.mu.Unlock()
	if p.Panic != nil {
		panic(p.Panic)
	}
	return p.Image, p.Err
}

// Prompts returns every prompt the provider received.
func (p *StubProvider) Prompts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.prompts...)
}

// AssertHTTPStatus checks the HTTP status code and fails the test if it doesn't match.
func AssertHTTPStatus(t TB, expected, actual int, context string) {
	t.Helper()
	if actual != expected {
		t.Errorf("%s: expected status %d, got %d", context, expected, actual)
	}
}

// AssertJSONResponse decodes an envelope response and validates the status field.
func AssertJSONResponse(t TB, rr *httptest.ResponseRecorder, expectedStatus string) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode JSON response: %v", err)
		return nil
	}

	if status, ok := response["status"].(string); ok {
		if status != expectedStatus {
			t.Errorf("expected status '%s', got '%s'", expectedStatus, status)
		}
	} else {
		t.Errorf("response missing or invalid 'status' field")
	}

	return response
}

// CreateHTTPRequest creates an HTTP request with optional JSON body for testing.
func CreateHTTPRequest(t TB, method, url string, body interface{}) *http.Request {
	t.Helper()
	var reqBody *bytes.Buffer
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
			return nil
		}
		reqBody = bytes.NewBuffer(jsonData)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		t.Fatalf("failed to create HTTP request: %v", err)
		return nil
	}
	req.Header.Set("Content-Type", "application/json")
	return req
}

// CreateJSONRequest creates an HTTP request with a raw JSON string body.
func CreateJSONRequest(t TB, method, url, jsonBody string) *http.Request {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(jsonBody))
	if err != nil {
		t.Fatalf("failed to create HTTP request: %v", err)
		return nil
	}
	req.Header.Set("Content-Type", "application/json")
	return req
}

// AssertGenerationCount validates the number of generation records in the store.
func AssertGenerationCount(t TB, st store.Store, expected int, context string) {
	t.Helper()
	records, err := st.ListGenerations(store.MaxListLimit)
	if err != nil {
		t.Fatalf("%s: failed to list generations: %v", context, err)
		return
	}
	if len(records) != expected {
		t.Errorf("%s: expected %d generations, got %d", context, expected, len(records))
	}
}

// SeedGenerations adds n generation records, one minute apart, starting at base.
func SeedGenerations(t TB, st store.Store, base time.Time, n int) []models.GenerationRecord {
	t.Helper()
	records := make([]models.GenerationRecord, 0, n)
	for i := 0; i < n; i++ {
		r := models.GenerationRecord{
			ID:        fmt.Sprintf("seed-%d", i),
			City:      "London",
			Issue:     "Flooding",
			Provider:  imagegen.StabilityProviderName,
			Outcome:   models.GenerationOutcomeSuccess,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := st.AddGeneration(r); err != nil {
			t.Fatalf("failed to seed generation: %v", err)
			return nil
		}
		records = append(records, r)
	}
	return records
}

// MustMarshalJSON marshals v to JSON and fails the test on error.
func MustMarshalJSON(t TB, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal JSON: %v", err)
	}
	return data
}

// MustUnmarshalJSON unmarshals data into target and fails the test on error.
func MustUnmarshalJSON(t TB, data []byte, target interface{}) {
	t.Helper()
	if err := json.Unmarshal(data, target); err != nil {
		t.Fatalf("failed to unmarshal JSON: %v", err)
	}
}
