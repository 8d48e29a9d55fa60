package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the server settings read from the environment.
type Config struct {
	LogLevel  string
	LogFormat string

	// HTTPAddr enables the HTTP transport when non-empty.
	HTTPAddr     string
	FetchTimeout time.Duration
	VerifyDigest bool

	AngularBins int
	RadialBins  int
	MaxRadius   float64

	AzureAccount string
	AzureKey     string
}

// AzureEnabled reports whether azblob:// sources can be opened.
func (c *Config) AzureEnabled() bool {
	return c.AzureAccount != "" && c.AzureKey != ""
}

// LoadFromEnv reads the configuration, applying defaults for unset variables.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		LogLevel:     getEnvOrDefault("CBF_MCP_LOG_LEVEL", "info"),
		LogFormat:    getEnvOrDefault("CBF_MCP_LOG_FORMAT", "text"),
		HTTPAddr:     strings.TrimSpace(os.Getenv("CBF_MCP_HTTP_ADDR")),
		AzureAccount: strings.TrimSpace(os.Getenv("AZURE_STORAGE_ACCOUNT")),
		AzureKey:     strings.TrimSpace(os.Getenv("AZURE_STORAGE_KEY")),
	}

	var err error
	if cfg.FetchTimeout, err = parseDuration("CBF_MCP_FETCH_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.VerifyDigest, err = parseBool("CBF_MCP_VERIFY_DIGEST", false); err != nil {
		return nil, err
	}
	if cfg.AngularBins, err = parseInt("CBF_MCP_ANGULAR_BINS", 720); err != nil {
		return nil, err
	}
	if cfg.RadialBins, err = parseInt("CBF_MCP_RADIAL_BINS", 500); err != nil {
		return nil, err
	}
	if cfg.MaxRadius, err = parseFloat("CBF_MCP_MAX_RADIUS", math.Sqrt2); err != nil {
		return nil, err
	}

	if cfg.FetchTimeout <= 0 {
		return nil, fmt.Errorf("CBF_MCP_FETCH_TIMEOUT must be > 0 (got %s)", cfg.FetchTimeout)
	}
	if cfg.AngularBins <= 0 || cfg.RadialBins <= 0 {
		return nil, fmt.Errorf("bin counts must be > 0 (got angular=%d, radial=%d)", cfg.AngularBins, cfg.RadialBins)
	}
	if cfg.MaxRadius < 0 || cfg.MaxRadius > math.Sqrt2 {
		return nil, fmt.Errorf("CBF_MCP_MAX_RADIUS must be within [0, √2] (got %v)", cfg.MaxRadius)
	}
	if (cfg.AzureAccount == "") != (cfg.AzureKey == "") {
		return nil, fmt.Errorf("AZURE_STORAGE_ACCOUNT and AZURE_STORAGE_KEY must be set together")
	}
	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, value)
	}
	return d, nil
}

func parseBool(key string, defaultValue bool) (bool, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %q", key, value)
	}
	return b, nil
}

func parseInt(key string, defaultValue int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, value)
	}
	return n, nil
}

func parseFloat(key string, defaultValue float64) (float64, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(f) {
		return 0, fmt.Errorf("invalid %s: %q", key, value)
	}
	return f, nil
}
