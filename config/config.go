package config

import (
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Config holds scraper configuration.
type Config struct {
	BaseURL       string
	Keyword       string
	MaxPages      int
	Delay         time.Duration
	MaxItems      int // 0 means unlimited
	Timeout       time.Duration
	UserAgent     string
	OutputFile    string
	OutputFormat  string // csv, json, xlsx, or dual
	MetricsAddr   string
	DedupeMaxSize int
	TopAuthors    int
	Verbose       bool
}

// DefaultConfig returns conservative defaults for the demo target.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:       "https://www.amazon.com",
		Keyword:       "data science books",
		MaxPages:      2,
		Delay:         time.Second,
		MaxItems:      0,
		Timeout:       15 * time.Second,
		UserAgent:     "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/107.0.0.0 Safari/537.36",
		OutputFile:    "output/products.csv",
		OutputFormat:  "csv",
		MetricsAddr:   "",
		DedupeMaxSize: 10000,
		TopAuthors:    10,
		Verbose:       false,
	}
}

// DefaultHeaders returns the fixed browser-impersonating header profile
// sent with every page request. A fresh copy is returned on each call so
// callers cannot mutate a shared value.
func DefaultHeaders() http.Header {
	h := make(http.Header)
	h.Set("Referer", "https://www.amazon.com/")
	h.Set("Sec-Ch-Ua", "Not_A Brand")
	h.Set("Sec-Ch-Ua-Mobile", "?0")
	h.Set("Sec-Ch-Ua-Platform", "macOS")
	return h
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

	if c.Keyword == "" {
		return fmt.Errorf("keyword cannot be empty")
	}
	if c.MaxPages <= 0 {
		return fmt.Errorf("max pages must be positive")
	}
	if c.Delay < 0 {
		return fmt.Errorf("delay cannot be negative")
	}
	if c.MaxItems < 0 {
		return fmt.Errorf("max items cannot be negative")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.OutputFile == "" {
		return fmt.Errorf("output file cannot be empty")
	}
	switch c.OutputFormat {
	case "csv", "json", "xlsx", "dual":
	default:
		return fmt.Errorf("output format must be csv, json, xlsx, or dual")
	}
	if c.DedupeMaxSize <= 0 {
		return fmt.Errorf("dedupe max size must be positive")
	}
	if c.TopAuthors <= 0 {
		return fmt.Errorf("top authors must be positive")
	}

	return nil
}
