// Package api provides HTTP handlers for ClimateCanvas endpoints.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/BTreeMap/ClimateCanvas/internal/imagegen"
	"github.com/BTreeMap/ClimateCanvas/internal/metrics"
	"github.com/BTreeMap/ClimateCanvas/internal/models"
)

// Client-visible error messages
const (
	msgMissingFields      = "City and issue are required"
	msgInvalidJSON        = "Invalid JSON format"
	msgInternalError      = "Internal server error"
	msgSlogansUnavailable = "Slogan generation is not configured"
	msgSlogansFailed      = "Failed to generate slogans"
	msgMissingQueryParams = "Missing required query parameters: city and issue"
	msgInvalidLimit       = "limit must be a positive integer"
	msgHistoryUnavailable = "Failed to fetch generation history"
	unknownProviderLabel  = "none"
)

// generateHandler handles POST /api/generate.
func (s *Server) generateHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	requestID := RequestIDFromContext(r.Context())
	slog.Debug("Server.generateHandler: processing generate request", "method", r.Method, "request_id", requestID)
	if r.Method != http.MethodPost {
		slog.Warn("Server.generateHandler: method not allowed", "method", r.Method)
		writeMethodNotAllowed(w, http.MethodPost)
		return
	}

	var req models.GenerationRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxRequestBodyBytes)).Decode(&req); err != nil {
		slog.Error("Server.generateHandler: failed to decode JSON", "error", err, "request_id", requestID)
		writeJSONResponse(w, http.StatusInternalServerError, models.GenerateResponse{
			Error:  fmt.Sprintf("%s: %v", msgInvalidJSON, err),
			Images: []models.GeneratedImage{},
		})
		return
	}

	out := s.generator.Generate(r.Context(), req.City, req.Issue)
	switch out.Kind {
	case imagegen.OutcomeRejected:
		slog.Warn("Server.generateHandler: request rejected", "error", out.Err, "request_id", requestID)
		writeJSONResponse(w, http.StatusBadRequest, models.ErrorResponse{Error: msgMissingFields})
	case imagegen.OutcomeSuccess, imagegen.OutcomeDegraded:
		s.recordGeneration(out, requestID)
		slog.Info("Server.generateHandler: generation finished", "outcome", out.Kind, "city", out.Request.City,
			"issue", out.Request.Issue, "provider", out.Provider, "request_id", requestID)
		writeJSONResponse(w, http.StatusOK, models.GenerateResponse{Images: out.Images})
	default:
		slog.Error("Server.generateHandler: unexpected outcome", "kind", out.Kind, "request_id", requestID)
		writeJSONResponse(w, http.StatusInternalServerError, models.GenerateResponse{
			Error:  msgInternalError,
			Images: []models.GeneratedImage{},
		})
	}
}

// recordGeneration stores the outcome in the history and updates the metrics.
// Failures are logged only; they never change the response.
func (s *Server) recordGeneration(out imagegen.Outcome, requestID string) {
	provider := out.Provider
	if provider == "" {
		provider = unknownProviderLabel
	}
	if s.metricsEnabled {
		metrics.RecordGeneration(provider, out.Kind.String(), out.Duration)
	}

	record := models.GenerationRecord{
		ID:        uuid.NewString(),
		City:      out.Request.City,
		Issue:     out.Request.Issue,
		Provider:  provider,
		Outcome:   models.GenerationOutcomeSuccess,
		CreatedAt: s.now().UTC(),
	}
	if out.Kind == imagegen.OutcomeDegraded {
		record.Outcome = models.GenerationOutcomeDegraded
		if len(out.Images) > 0 {
			record.Error = out.Images[0].Error
		}
	}
	if err := s.st.AddGeneration(record); err != nil {
		slog.Error("Server.recordGeneration: failed to store generation record", "error", err, "id", record.ID, "request_id", requestID)
		if s.metricsEnabled {
			metrics.RecordHistoryWriteFailure()
		}
		return
	}
	slog.Debug("Server.recordGeneration: generation recorded", "id", record.ID, "outcome", record.Outcome)
}

// slogansHandler handles POST /api/slogans.
func (s *Server) slogansHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.slogansHandler: processing slogans request", "method", r.Method)
	if r.Method != http.MethodPost {
		slog.Warn("Server.slogansHandler: method not allowed", "method", r.Method)
		writeMethodNotAllowed(w, http.MethodPost)
		return
	}

	var req models.GenerationRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxRequestBodyBytes)).Decode(&req); err != nil {
		slog.Warn("Server.slogansHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.ErrorResponse{Error: msgInvalidJSON})
		return
	}
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		slog.Warn("Server.slogansHandler: validation failed", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.ErrorResponse{Error: msgMissingFields})
		return
	}
	if s.slogans == nil {
		slog.Warn("Server.slogansHandler: slogan generator not configured")
		s.recordSloganRequest("unavailable")
		writeJSONResponse(w, http.StatusServiceUnavailable, models.ErrorResponse{Error: msgSlogansUnavailable})
		return
	}

	slogans, err := s.slogans.GenerateSlogans(r.Context(), req.City, req.Issue)
	if err != nil {
		slog.Error("Server.slogansHandler: slogan generation failed", "error", err, "city", req.City, "issue", req.Issue)
		s.recordSloganRequest("error")
		writeJSONResponse(w, http.StatusBadGateway, models.ErrorResponse{Error: msgSlogansFailed})
		return
	}
	s.recordSloganRequest("success")
	slog.Info("Server.slogansHandler: slogans generated", "city", req.City, "issue", req.Issue, "count", len(slogans))
	writeJSONResponse(w, http.StatusOK, models.SlogansResponse{Slogans: slogans})
}

func (s *Server) recordSloganRequest(status string) {
	if s.metricsEnabled {
		metrics.RecordSloganRequest(status)
	}
}

// citiesHandler returns every city with its issues (GET /api/cities).
func (s *Server) citiesHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.citiesHandler invoked", "method", r.Method)
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, http.MethodGet)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(s.data.Cities()))
}

// climateDataHandler returns causes, effects and solutions for one issue (GET /api/climate-data).
func (s *Server) climateDataHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.climateDataHandler invoked", "method", r.Method, "query", r.URL.RawQuery)
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, http.MethodGet)
		return
	}
	city := strings.TrimSpace(r.URL.Query().Get("city"))
	issue := strings.TrimSpace(r.URL.Query().Get("issue"))
	if city == "" || issue == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(msgMissingQueryParams))
		return
	}
	content, ok := s.data.Lookup(city, issue)
	if !ok {
		slog.Debug("Server.climateDataHandler: unknown pair", "city", city, "issue", issue)
		writeJSONResponse(w, http.StatusNotFound, models.Error(fmt.Sprintf("No climate data for %s in %s", issue, city)))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(content))
}

// generationsHandler returns the newest generation records (GET /api/generations?limit=N).
func (s *Server) generationsHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.generationsHandler invoked", "method", r.Method, "query", r.URL.RawQuery)
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, http.MethodGet)
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeJSONResponse(w, http.StatusBadRequest, models.Error(msgInvalidLimit))
			return
		}
		limit = n
	}
	records, err := s.st.ListGenerations(limit)
	if err != nil {
		slog.Error("Server.generationsHandler: failed to list generations", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error(msgHistoryUnavailable))
		return
	}
	if records == nil {
		records = []models.GenerationRecord{}
	}
	slog.Debug("Server.generationsHandler: generations fetched", "count", len(records))
	writeJSONResponse(w, http.StatusOK, models.Success(records))
}

// healthHandler provides a health check endpoint for monitoring and load balancing.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, http.MethodGet)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(nil))
}
