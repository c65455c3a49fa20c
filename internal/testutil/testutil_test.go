package testutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BTreeMap/ClimateCanvas/internal/models"
	"github.com/BTreeMap/ClimateCanvas/internal/store"
)

func TestAssertHTTPStatus(t *testing.T) {
	tests := []struct {
		name       string
		expected   int
		actual     int
		context    string
		shouldFail bool
	}{
		{
			name:       "matching status codes",
			expected:   200,
			actual:     200,
			context:    "test context",
			shouldFail: false,
		},
		{
			name:       "different status codes",
			expected:   200,
			actual:     404,
			context:    "test context",
			shouldFail: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockT := &mockTestingT{}

			AssertHTTPStatus(mockT, tt.expected, tt.actual, tt.context)

			if tt.shouldFail && !mockT.failed {
				t.Error("Expected test to fail but it passed")
			}
			if !tt.shouldFail && mockT.failed {
				t.Error("Expected test to pass but it failed")
			}
		})
	}
}

func TestAssertJSONResponse(t *testing.T) {
	tests := []struct {
		name           string
		jsonBody       string
		expectedStatus string
		shouldFail     bool
	}{
		{
			name:           "valid JSON with matching status",
			jsonBody:       `{"status":"ok","result":"test"}`,
			expectedStatus: "ok",
			shouldFail:     false,
		},
		{
			name:           "valid JSON with different status",
			jsonBody:       `{"status":"error","message":"test"}`,
			expectedStatus: "ok",
			shouldFail:     true,
		},
		{
			name:           "invalid JSON",
			jsonBody:       `{"status":}`,
			expectedStatus: "ok",
			shouldFail:     true,
		},
		{
			name:           "missing status field",
			jsonBody:       `{"result":"test"}`,
			expectedStatus: "ok",
			shouldFail:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockT := &mockTestingT{}
			rr := httptest.NewRecorder()
			rr.Body.WriteString(tt.jsonBody)

			var response map[string]interface{}

			// Fatalf on the mock panics
			defer func() {
				if r := recover(); r != nil {
					if !tt.shouldFail {
						t.Errorf("Unexpected panic: %v", r)
					}
				}
			}()

			response = AssertJSONResponse(mockT, rr, tt.expectedStatus)

			if tt.shouldFail && !mockT.failed {
				t.Error("Expected test to fail but it passed")
			}
			if !tt.shouldFail && mockT.failed {
				t.Errorf("Expected test to pass but it failed: %s", mockT.errorMsg)
			}
			if !tt.shouldFail && response == nil {
				t.Error("Expected response map to be returned")
			}
		})
	}
}

func TestCreateHTTPRequest(t *testing.T) {
	tests := []struct {
		name   string
		method string
		url    string
		body   interface{}
	}{
		{"GET request with no body", "GET", "/api/cities", nil},
		{"POST request with map body", "POST", "/api/generate", map[string]string{"city": "Tokyo"}},
		{"POST request with struct body", "POST", "/api/generate", models.GenerationRequest{City: "Tokyo", Issue: "Typhoons"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := CreateHTTPRequest(t, tt.method, tt.url, tt.body)
			if req.Method != tt.method {
				t.Errorf("Expected method %s, got %s", tt.method, req.Method)
			}
			if req.URL.Path != tt.url {
				t.Errorf("Expected URL %s, got %s", tt.url, req.URL.Path)
			}
		})
	}
}

func TestCreateJSONRequest(t *testing.T) {
	req := CreateJSONRequest(t, "POST", "/api/slogans", `{"city":"Mumbai","issue":"Coastal Erosion"}`)
	raw, err := io.ReadAll(req.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	var body models.GenerationRequest
	MustUnmarshalJSON(t, raw, &body)
	if body.City != "Mumbai" || body.Issue != "Coastal Erosion" {
		t.Errorf("unexpected body %+v", body)
	}
}

func TestAssertGenerationCount(t *testing.T) {
	st := store.NewInMemoryStore()

	mockT := &mockTestingT{}
	AssertGenerationCount(mockT, st, 0, "empty store")
	if mockT.failed {
		t.Errorf("Expected test to pass for empty store, but got: %s", mockT.errorMsg)
	}

	SeedGenerations(t, st, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 3)

	mockT = &mockTestingT{}
	AssertGenerationCount(mockT, st, 3, "seeded store")
	if mockT.failed {
		t.Errorf("Expected test to pass for seeded store, but got: %s", mockT.errorMsg)
	}

	mockT = &mockTestingT{}
	AssertGenerationCount(mockT, st, 5, "wrong count")
	if !mockT.failed {
		t.Error("Expected test to fail for wrong count")
	}
}

func TestSeedGenerationsAreDistinct(t *testing.T) {
	st := store.NewInMemoryStore()
	records := SeedGenerations(t, st, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 4)
	seen := map[string]bool{}
	for _, r := range records {
		if seen[r.ID] {
			t.Errorf("duplicate seeded ID %s", r.ID)
		}
		seen[r.ID] = true
	}
}

func TestStubProvider(t *testing.T) {
	p := &StubProvider{Err: errors.New("boom")}
	if p.Name() != "Stub" {
		t.Errorf("unexpected default name %q", p.Name())
	}
	if _, err := p.TextToImage(context.Background(), "first"); err == nil {
		t.Error("expected canned error")
	}
	if got := p.Prompts(); len(got) != 1 || got[0] != "first" {
		t.Errorf("unexpected prompts %v", got)
	}
}

func TestMustMarshalJSON(t *testing.T) {
	result := MustMarshalJSON(t, map[string]interface{}{"key1": "value1", "key2": 123})
	if len(result) == 0 {
		t.Error("Expected non-empty JSON data")
	}
}

func TestMustUnmarshalJSON(t *testing.T) {
	jsonData := []byte(`{"key":"value","number":123}`)
	var target map[string]interface{}

	MustUnmarshalJSON(t, jsonData, &target)

	if target["key"] != "value" {
		t.Errorf("Expected key to be 'value', got %v", target["key"])
	}
	if target["number"].(float64) != 123 {
		t.Errorf("Expected number to be 123, got %v", target["number"])
	}
}

// mockTestingT implements TB for testing our test helpers
type mockTestingT struct {
	failed   bool
	errorMsg string
	helper   bool
}

func (m *mockTestingT) Helper() {
	m.helper = true
}

func (m *mockTestingT) Errorf(format string, args ...interface{}) {
	m.failed = true
	m.errorMsg = fmt.Sprintf(format, args...)
}

func (m *mockTestingT) Fatalf(format string, args ...interface{}) {
	m.failed = true
	m.errorMsg = fmt.Sprintf(format, args...)
	panic("test failed") // Simulate fatal error
}
