// Package api provides the HTTP server for ClimateCanvas.
//
// It exposes the image generation endpoint together with the climate dataset, slogan
// generation, generation history, image download, health and metrics endpoints.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BTreeMap/ClimateCanvas/internal/dataset"
	"github.com/BTreeMap/ClimateCanvas/internal/genai"
	"github.com/BTreeMap/ClimateCanvas/internal/imagegen"
	"github.com/BTreeMap/ClimateCanvas/internal/metrics"
	"github.com/BTreeMap/ClimateCanvas/internal/store"
)

// Server configuration constants
const (
	// DefaultServerAddress is the address the API listens on when none is configured.
	DefaultServerAddress = ":8080"
	// DefaultShutdownTimeout bounds graceful shutdown of in-flight requests.
	DefaultShutdownTimeout = 30 * time.Second
	// DefaultReadHeaderTimeout protects against slow clients.
	DefaultReadHeaderTimeout = 10 * time.Second
	// MaxRequestBodyBytes caps inbound JSON bodies. Download requests carry a data URI.
	MaxRequestBodyBytes = 16 << 20
)

// Provider names accepted by WithImageProvider.
const (
	ImageProviderStability = "stability"
	ImageProviderGemini    = "gemini"
)

// Generator produces generation outcomes. *imagegen.Orchestrator implements it.
type Generator interface {
	Generate(ctx context.Context, city, issue string) imagegen.Outcome
	ProviderName() string
}

// SloganGenerator produces awareness slogans. *genai.Client implements it.
type SloganGenerator interface {
	GenerateSlogans(ctx context.Context, city, issue string) ([]string, error)
}

// Opts holds configuration options for the API server.
type Opts struct {
	Addr           string
	ImageProvider  string
	DatasetFile    string
	MetricsEnabled bool
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the HTTP server address.
func WithAddr(addr string) Option {
	return func(o *Opts) {
		o.Addr = addr
	}
}

// WithImageProvider selects the image provider ("stability" or "gemini").
func WithImageProvider(name string) Option {
	return func(o *Opts) {
		o.ImageProvider = name
	}
}

// WithDatasetFile loads the climate dataset from a YAML file instead of the embedded copy.
func WithDatasetFile(path string) Option {
	return func(o *Opts) {
		o.DatasetFile = path
	}
}

// WithMetrics enables or disables the /metrics endpoint.
func WithMetrics(enabled bool) Option {
	return func(o *Opts) {
		o.MetricsEnabled = enabled
	}
}

// Server holds all dependencies for the API server.
type Server struct {
	generator      Generator
	slogans        SloganGenerator
	data           *dataset.Dataset
	st             store.Store
	metricsEnabled bool
	now            func() time.Time
}

// NewServer creates a new API server instance. A nil slogan generator disables
// POST /api/slogans; a nil dataset falls back to the embedded one.
func NewServer(generator Generator, slogans SloganGenerator, data *dataset.Dataset, st store.Store, metricsEnabled bool) *Server {
	if data == nil {
		data = dataset.Default()
	}
	if st == nil {
		st = store.NewInMemoryStore()
	}
	return &Server{
		generator:      generator,
		slogans:        slogans,
		data:           data,
		st:             st,
		metricsEnabled: metricsEnabled,
		now:            time.Now,
	}
}

// Handler returns the fully wrapped HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/generate", s.generateHandler)
	mux.HandleFunc("/api/slogans", s.slogansHandler)
	mux.HandleFunc("/api/cities", s.citiesHandler)
	mux.HandleFunc("/api/climate-data", s.climateDataHandler)
	mux.HandleFunc("/api/generations", s.generationsHandler)
	mux.HandleFunc("/api/download", s.downloadHandler)
	mux.HandleFunc("/health", s.healthHandler)
	if s.metricsEnabled {
		mux.Handle("/metrics", metrics.Handler())
	}

	var h http.Handler = mux
	h = recoverMiddleware(h)
	if s.metricsEnabled {
		h = metricsMiddleware(h)
	}
	h = requestIDMiddleware(h)
	return h
}

// Run builds every module from the given options and serves the API until SIGINT or SIGTERM.
func Run(imageOpts []imagegen.Option, storeOpts []store.Option, genaiOpts []genai.Option, apiOpts []Option) error {
	slog.Debug("API.Run: starting with module options", "image_opts", len(imageOpts), "store_opts", len(storeOpts), "genai_opts", len(genaiOpts), "api_opts", len(apiOpts))

	cfg := Opts{Addr: DefaultServerAddress, ImageProvider: ImageProviderStability, MetricsEnabled: true}
	for _, opt := range apiOpts {
		opt(&cfg)
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultServerAddress
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, err := newImageProvider(ctx, cfg.ImageProvider, imageOpts)
	if err != nil {
		return err
	}
	if err := provider.CheckCredentials(); err != nil {
		slog.Warn("API.Run: image provider credential missing, every generation will be degraded", "provider", provider.Name(), "error", err)
	}

	data, err := dataset.Load(cfg.DatasetFile)
	if err != nil {
		return fmt.Errorf("failed to load climate dataset: %w", err)
	}

	st, err := store.New(storeOpts...)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			slog.Error("API.Run: failed to close store", "error", cerr)
		}
	}()

	var slogans SloganGenerator
	gaClient, err := genai.NewClient(genaiOpts...)
	switch {
	case err == nil:
		slogans = gaClient
	case errors.Is(err, genai.ErrMissingAPIKey):
		slog.Info("API.Run: OpenAI API key not set, slogan generation disabled")
	default:
		return fmt.Errorf("failed to initialize GenAI client: %w", err)
	}

	server := NewServer(imagegen.NewOrchestrator(provider), slogans, data, st, cfg.MetricsEnabled)
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("ClimateCanvas API listening", "addr", cfg.Addr, "provider", provider.Name(), "metrics", cfg.MetricsEnabled)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("API server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		slog.Info("API.Run: shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	slog.Info("API.Run: server stopped")
	return nil
}

// newImageProvider constructs the provider selected by name.
func newImageProvider(ctx context.Context, name string, opts []imagegen.Option) (imagegen.Provider, error) {
	switch name {
	case "", ImageProviderStability:
		return imagegen.NewStabilityProvider(opts...), nil
	case ImageProviderGemini:
		p, err := imagegen.NewGeminiProvider(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Gemini provider: %w", err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown image provider %q (expected %q or %q)", name, ImageProviderStability, ImageProviderGemini)
	}
}
