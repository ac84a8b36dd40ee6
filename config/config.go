package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

// Config holds the run parameters for the scraper and exporter.
type Config struct {
	BaseURL       string
	MaxPages      int
	Delay         time.Duration
	Timeout       time.Duration
	UserAgent     string
	DBPath        string
	ExportFile    string
	ExportLimit   int
	DedupeMaxSize int
	MetricsAddr   string
	Verbose       bool
}

// DefaultConfig returns conservative defaults for the demo target.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:       "https://books.toscrape.com/",
		MaxPages:      3,
		Delay:         time.Second,
		Timeout:       10 * time.Second,
		UserAgent:     "Mozilla/5.0 (compatible; DanielScraper/1.0; +https://books.toscrape.com/)",
		DBPath:        "libros.db",
		ExportFile:    "primeros_10_libros.csv",
		ExportLimit:   10,
		DedupeMaxSize: 10000,
		MetricsAddr:   "",
		Verbose:       false,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}

	if c.MaxPages <= 0 {
		return fmt.Errorf("max pages must be positive")
	}
	if c.Delay < 0 {
		return fmt.Errorf("delay cannot be negative")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("database path cannot be empty")
	}
	if c.ExportFile == "" {
		return fmt.Errorf("export file cannot be empty")
	}
	if c.ExportLimit <= 0 {
		return fmt.Errorf("export limit must be positive")
	}
	if c.DedupeMaxSize <= 0 {
		return fmt.Errorf("dedupe max size must be positive")
	}

	return nil
}

// EnvInt reads an integer environment variable. The second return value
// reports whether the variable was set.
func EnvInt(name string) (int, bool, error) {
	raw, ok := os.LookupEnv(name)
	if !ok || raw == "" {
		return 0, false, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("%s=%q is not an integer: %w", name, raw, err)
	}
	return value, true, nil
}

// EnvString reads a string environment variable.
func EnvString(name string) (string, bool) {
	raw, ok := os.LookupEnv(name)
	if !ok || raw == "" {
		return "", false
	}
	return raw, true
}
