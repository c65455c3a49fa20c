package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/BTreeMap/ClimateCanvas/internal/api"
	"github.com/BTreeMap/ClimateCanvas/internal/genai"
	"github.com/BTreeMap/ClimateCanvas/internal/imagegen"
	"github.com/BTreeMap/ClimateCanvas/internal/lockfile"
	"github.com/BTreeMap/ClimateCanvas/internal/store"
	"github.com/BTreeMap/ClimateCanvas/internal/util"
	"github.com/joho/godotenv"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for ClimateCanvas state data
	DefaultStateDir = "/var/lib/climatecanvas"
	// DefaultLogLevel is used when LOG_LEVEL is not set
	DefaultLogLevel = "debug"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		slog.Error("ClimateCanvas failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("ClimateCanvas exited successfully")
}

func run(args []string) error {
	// Load environment configuration
	config := loadEnvironmentConfig()

	// Parse command line flags
	flags, err := parseCommandLineFlags(flag.CommandLine, args, config)
	if err != nil {
		return err
	}

	// Initialize structured logger
	initializeLogger(parseLogLevel(*flags.logLevel))

	// Guard the state directory when the history lives in a local SQLite file
	if usesSQLite(*flags.dbDSN) {
		lock, err := lockfile.AcquireLock(*flags.stateDir)
		if err != nil {
			return err
		}
		defer func() {
			if err := lock.Release(); err != nil {
				slog.Warn("Failed to release state directory lock", "error", err)
			}
		}()
	}

	// Build module options
	imageOpts := buildImageOptions(flags)
	storeOpts := buildStoreOptions(flags)
	genaiOpts := buildGenAIOptions(flags)
	apiOpts := buildAPIOptions(flags)

	// Start the service
	slog.Info("Bootstrapping ClimateCanvas with configured modules")
	slog.Debug("Module options counts", "imagegen", len(imageOpts), "store", len(storeOpts), "genai", len(genaiOpts), "api", len(apiOpts))
	slog.Debug("Final configuration", "state_dir", *flags.stateDir, "dsn_set", *flags.dbDSN != "", "api_addr", *flags.apiAddr, "image_provider", *flags.imageProvider)
	return api.Run(imageOpts, storeOpts, genaiOpts, apiOpts)
}

// Config holds environment configuration
type Config struct {
	StabilityAPIKey string
	ImageProvider   string
	GeminiAPIKey    string
	OpenAIKey       string
	APIAddr         string
	StateDir        string
	DatabaseDSN     string
	DatasetFile     string
	LogLevel        string
	MetricsEnabled  bool
}

// Flags holds command line flag values
type Flags struct {
	stabilityKey   *string
	imageProvider  *string
	geminiKey      *string
	openaiKey      *string
	apiAddr        *string
	stateDir       *string
	dbDSN          *string
	datasetFile    *string
	logLevel       *string
	metricsEnabled bool
}

// initializeLogger sets up structured logging at the given level
func initializeLogger(level slog.Level) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// parseLogLevel maps a level name to a slog level, defaulting to debug.
func parseLogLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelDebug
	}
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		StabilityAPIKey: os.Getenv(imagegen.StabilityAPIKeyEnv),
		ImageProvider:   os.Getenv("IMAGE_PROVIDER"),
		GeminiAPIKey:    os.Getenv(imagegen.GeminiAPIKeyEnv),
		OpenAIKey:       os.Getenv("OPENAI_API_KEY"),
		APIAddr:         os.Getenv("API_ADDR"),
		StateDir:        os.Getenv("CLIMATECANVAS_STATE_DIR"),
		DatabaseDSN:     os.Getenv("DATABASE_DSN"),
		DatasetFile:     os.Getenv("DATASET_FILE"),
		LogLevel:        os.Getenv("LOG_LEVEL"),
		MetricsEnabled:  util.ParseBoolEnv("METRICS_ENABLED", true),
	}

	// Set default state directory if not specified
	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No CLIMATECANVAS_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}

	// DATABASE_URL is accepted when DATABASE_DSN is not set
	if config.DatabaseDSN == "" {
		config.DatabaseDSN = os.Getenv("DATABASE_URL")
		if config.DatabaseDSN != "" {
			slog.Debug("Using DATABASE_URL as DATABASE_DSN", "dsn_set", true)
		}
	}

	if config.ImageProvider == "" {
		config.ImageProvider = api.ImageProviderStability
	}
	if config.LogLevel == "" {
		config.LogLevel = DefaultLogLevel
	}

	slog.Debug("environment variables loaded",
		"STABILITY_API_KEY_SET", config.StabilityAPIKey != "",
		"IMAGE_PROVIDER", config.ImageProvider,
		"GEMINI_API_KEY_SET", config.GeminiAPIKey != "",
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"API_ADDR", config.APIAddr,
		"CLIMATECANVAS_STATE_DIR", config.StateDir,
		"DATABASE_DSN_SET", config.DatabaseDSN != "",
		"DATASET_FILE", config.DatasetFile,
		"LOG_LEVEL", config.LogLevel,
		"METRICS_ENABLED", config.MetricsEnabled)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(fs *flag.FlagSet, args []string, config Config) (Flags, error) {
	flags := Flags{
		stabilityKey:   fs.String("stability-api-key", config.StabilityAPIKey, "Stability AI API key (overrides $STABILITY_API_KEY)"),
		imageProvider:  fs.String("image-provider", config.ImageProvider, "image provider: stability or gemini (overrides $IMAGE_PROVIDER)"),
		geminiKey:      fs.String("gemini-api-key", config.GeminiAPIKey, "Gemini API key (overrides $GEMINI_API_KEY)"),
		openaiKey:      fs.String("openai-api-key", config.OpenAIKey, "OpenAI API key for slogans (overrides $OPENAI_API_KEY)"),
		apiAddr:        fs.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		stateDir:       fs.String("state-dir", config.StateDir, "state directory for ClimateCanvas data (overrides $CLIMATECANVAS_STATE_DIR)"),
		dbDSN:          fs.String("db-dsn", config.DatabaseDSN, "generation history DSN, SQLite path or Postgres URL (overrides $DATABASE_DSN or $DATABASE_URL)"),
		datasetFile:    fs.String("dataset", config.DatasetFile, "climate dataset YAML file (overrides $DATASET_FILE)"),
		logLevel:       fs.String("log-level", config.LogLevel, "log level: debug, info, warn or error (overrides $LOG_LEVEL)"),
		metricsEnabled: config.MetricsEnabled,
	}

	if err := fs.Parse(args); err != nil {
		return Flags{}, fmt.Errorf("failed to parse flags: %w", err)
	}

	slog.Debug("flags parsed",
		"stabilityKeySet", *flags.stabilityKey != "",
		"imageProvider", *flags.imageProvider,
		"geminiKeySet", *flags.geminiKey != "",
		"openaiKeySet", *flags.openaiKey != "",
		"apiAddr", *flags.apiAddr,
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"dataset", *flags.datasetFile,
		"logLevel", *flags.logLevel)

	return flags, nil
}

// usesSQLite reports whether the history DSN points at a local SQLite file.
func usesSQLite(dsn string) bool {
	return dsn != "" && store.DetectDSNType(dsn) == "sqlite3"
}

// buildImageOptions constructs image provider configuration options
func buildImageOptions(flags Flags) []imagegen.Option {
	var imageOpts []imagegen.Option
	if *flags.stabilityKey != "" {
		imageOpts = append(imageOpts, imagegen.WithStabilityAPIKey(*flags.stabilityKey))
	}
	if *flags.geminiKey != "" {
		imageOpts = append(imageOpts, imagegen.WithGeminiAPIKey(*flags.geminiKey))
	}
	return imageOpts
}

// buildStoreOptions constructs store configuration options
func buildStoreOptions(flags Flags) []store.Option {
	var storeOpts []store.Option
	if *flags.dbDSN != "" {
		if store.DetectDSNType(*flags.dbDSN) == "postgres" {
			slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store", "dsn_type", "postgresql", "dsn_set", true)
			storeOpts = append(storeOpts, store.WithPostgresDSN(*flags.dbDSN))
		} else {
			slog.Debug("Detected SQLite DSN, configuring SQLite store", "dsn_type", "sqlite", "db_path", *flags.dbDSN)
			storeOpts = append(storeOpts, store.WithSQLiteDSN(*flags.dbDSN))
		}
	} else {
		slog.Debug("No database DSN provided, will use in-memory store")
	}
	return storeOpts
}

// buildGenAIOptions constructs GenAI configuration options
func buildGenAIOptions(flags Flags) []genai.Option {
	var genaiOpts []genai.Option
	if *flags.openaiKey != "" {
		genaiOpts = append(genaiOpts, genai.WithAPIKey(*flags.openaiKey))
	}
	return genaiOpts
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(flags Flags) []api.Option {
	apiOpts := []api.Option{api.WithMetrics(flags.metricsEnabled)}
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	if *flags.imageProvider != "" {
		apiOpts = append(apiOpts, api.WithImageProvider(*flags.imageProvider))
	}
	if *flags.datasetFile != "" {
		apiOpts = append(apiOpts, api.WithDatasetFile(*flags.datasetFile))
	}
	return apiOpts
}
