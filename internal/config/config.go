// Package config provides configuration management for the MunzGen agent.
// Configuration is loaded from environment variables with sensible defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	// Default values
	DefaultPort     = 8797
	DefaultLogLevel = "info"
	DefaultDataDir  = ".munzgen"

	DefaultGenAIBaseURL    = "https://generativelanguage.googleapis.com"
	DefaultPollInterval    = 5 * time.Second
	DefaultPollTimeout     = 10 * time.Minute
	DefaultPollMaxAttempts = 120
	DefaultBridgeURL       = "http://127.0.0.1:8188"
	DefaultFFmpegPath      = "ffmpeg"
	DefaultMaxUploadBytes  = 256 * 1024 * 1024
	DefaultMediaLimitBytes = 2 * 1024 * 1024 * 1024
	DefaultEditorURL       = "http://localhost:5173"

	// Environment variable names
	EnvPort            = "MUNZGEN_PORT"
	EnvLogLevel        = "MUNZGEN_LOG_LEVEL"
	EnvDataDir         = "MUNZGEN_DATA_DIR"
	EnvDBPath          = "MUNZGEN_DB_PATH"
	EnvHeadless        = "MUNZGEN_HEADLESS"
	EnvGenAIBaseURL    = "MUNZGEN_GENAI_BASE_URL"
	EnvGenAIAPIKey     = "MUNZGEN_GENAI_API_KEY"
	EnvHostAPIKey      = "API_KEY"
	EnvPollInterval    = "MUNZGEN_POLL_INTERVAL"
	EnvPollTimeout     = "MUNZGEN_POLL_TIMEOUT"
	EnvPollMaxAttempts = "MUNZGEN_POLL_MAX_ATTEMPTS"
	EnvBridgeURL       = "MUNZGEN_BRIDGE_URL"
	EnvFFmpegPath      = "MUNZGEN_FFMPEG_PATH"
	EnvMaxUploadBytes  = "MUNZGEN_MAX_UPLOAD_BYTES"
	EnvMediaLimitBytes = "MUNZGEN_MEDIA_LIMIT_BYTES"
	EnvEditorURL       = "MUNZGEN_EDITOR_URL"

	// MemoryDB keeps the sqlite store in process memory for the session only.
	MemoryDB = ":memory:"
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	Headless() bool
	GenAIBaseURL() string
	GenAIAPIKey() string
	PollInterval() time.Duration
	PollTimeout() time.Duration
	PollMaxAttempts() int
	BridgeURL() string
	FFmpegPath() string
	MaxUploadBytes() int64
	MediaLimitBytes() int64
	EditorURL() string
}

// EnvConfig reads configuration from environment variables
type EnvConfig struct {
	port           int
	logLevel       string
	dataDir        string
	dbPath         string
	headless       bool
	genaiBaseURL   string
	genaiAPIKey    string
	pollInterval   time.Duration
	pollTimeout    time.Duration
	pollMax        int
	bridgeURL      string
	ffmpegPath     string
	maxUploadBytes int64
	mediaLimit     int64
	editorURL      string
}

// New creates a new EnvConfig with defaults and environment variable overrides
func New() (*EnvConfig, error) {
	cfg := &EnvConfig{
		port:           DefaultPort,
		logLevel:       DefaultLogLevel,
		dataDir:        defaultDataDir(),
		genaiBaseURL:   DefaultGenAIBaseURL,
		pollInterval:   DefaultPollInterval,
		pollTimeout:    DefaultPollTimeout,
		pollMax:        DefaultPollMaxAttempts,
		bridgeURL:      DefaultBridgeURL,
		ffmpegPath:     DefaultFFmpegPath,
		maxUploadBytes: DefaultMaxUploadBytes,
		mediaLimit:     DefaultMediaLimitBytes,
		editorURL:      DefaultEditorURL,
	}

	// Override port from environment
	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
		}
		cfg.port = port
	}

	if ll := os.Getenv(EnvLogLevel); ll != "" {
		cfg.logLevel = ll
	}

	if dd := os.Getenv(EnvDataDir); dd != "" {
		cfg.dataDir = dd
	}

	cfg.dbPath = os.Getenv(EnvDBPath)

	if h := os.Getenv(EnvHeadless); h != "" {
		headless, err := strconv.ParseBool(h)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvHeadless, err)
		}
		cfg.headless = headless
	}

	if u := os.Getenv(EnvGenAIBaseURL); u != "" {
		cfg.genaiBaseURL = u
	}

	// The agent-specific key wins over the host-provided one.
	cfg.genaiAPIKey = os.Getenv(EnvGenAIAPIKey)
	if cfg.genaiAPIKey == "" {
		cfg.genaiAPIKey = os.Getenv(EnvHostAPIKey)
	}

	var err error
	if cfg.pollInterval, err = durationEnv(EnvPollInterval, cfg.pollInterval); err != nil {
		return nil, err
	}
	if cfg.pollTimeout, err = durationEnv(EnvPollTimeout, cfg.pollTimeout); err != nil {
		return nil, err
	}

	if m := os.Getenv(EnvPollMaxAttempts); m != "" {
		n, err := strconv.Atoi(m)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPollMaxAttempts, err)
		}
		if n < 1 {
			return nil, fmt.Errorf("invalid %s: must be at least 1", EnvPollMaxAttempts)
		}
		cfg.pollMax = n
	}

	if b := os.Getenv(EnvBridgeURL); b != "" {
		cfg.bridgeURL = b
	}

	if f := os.Getenv(EnvFFmpegPath); f != "" {
		cfg.ffmpegPath = f
	}

	if m := os.Getenv(EnvMaxUploadBytes); m != "" {
		n, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvMaxUploadBytes, err)
		}
		if n <= 0 {
			return nil, fmt.Errorf("invalid %s: must be positive", EnvMaxUploadBytes)
		}
		cfg.maxUploadBytes = n
	}

	// Zero lifts the cap on in-memory media.
	if m := os.Getenv(EnvMediaLimitBytes); m != "" {
		n, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvMediaLimitBytes, err)
		}
		if n < 0 {
			return nil, fmt.Errorf("invalid %s: must not be negative", EnvMediaLimitBytes)
		}
		cfg.mediaLimit = n
	}

	if e := os.Getenv(EnvEditorURL); e != "" {
		cfg.editorURL = e
	}

	return cfg, nil
}

func durationEnv(name string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(name)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", name)
	}
	return d, nil
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the sqlite location. An unset path keeps the store in memory.
func (c *EnvConfig) DBPath() string {
	if c.dbPath == "" {
		return MemoryDB
	}
	return c.dbPath
}

func (c *EnvConfig) Headless() bool {
	return c.headless
}

func (c *EnvConfig) GenAIBaseURL() string {
	return c.genaiBaseURL
}

// GenAIAPIKey returns the API key found in the environment, if any.
func (c *EnvConfig) GenAIAPIKey() string {
	return c.genaiAPIKey
}

func (c *EnvConfig) PollInterval() time.Duration {
	return c.pollInterval
}

func (c *EnvConfig) PollTimeout() time.Duration {
	return c.pollTimeout
}

func (c *EnvConfig) PollMaxAttempts() int {
	return c.pollMax
}

func (c *EnvConfig) BridgeURL() string {
	return c.bridgeURL
}

func (c *EnvConfig) FFmpegPath() string {
	return c.ffmpegPath
}

func (c *EnvConfig) MaxUploadBytes() int64 {
	return c.maxUploadBytes
}

// MediaLimitBytes caps the in-memory media store. Zero means no cap.
func (c *EnvConfig) MediaLimitBytes() int64 {
	return c.mediaLimit
}

// EditorURL is the front end the tray opens.
func (c *EnvConfig) EditorURL() string {
	return c.editorURL
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
