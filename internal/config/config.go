package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/kitvault/scraper/internal/fetch"
)

type Config struct {
	Server   ServerConfig
	Crawler  CrawlerConfig
	Download DownloadConfig
	Browser  BrowserConfig
	Records  RecordsConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type CrawlerConfig struct {
	RequestTimeout time.Duration
	RequestDelay   time.Duration // pause between consecutive page fetches
	UserAgent      string
}

type DownloadConfig struct {
	ImageDelay time.Duration // pause between consecutive image downloads
	MinKB      int           // images below this size are discarded
	RefererAll bool
	OutputDir  string
}

type BrowserConfig struct {
	Headless       bool
	Timeout        time.Duration
	ViewportWidth  int
	ViewportHeight int
}

type RecordsConfig struct {
	Dir string
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvOrDefault("SERVER_PORT", "8080"),
			Host:            getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Crawler: CrawlerConfig{
			RequestTimeout: getDurationOrDefault("CRAWLER_REQUEST_TIMEOUT", 30*time.Second),
			RequestDelay:   getDurationOrDefault("CRAWLER_REQUEST_DELAY", 1*time.Second),
			UserAgent:      getEnvOrDefault("CRAWLER_USER_AGENT", fetch.DefaultUserAgent),
		},
		Download: DownloadConfig{
			ImageDelay: getDurationOrDefault("DOWNLOAD_IMAGE_DELAY", 500*time.Millisecond),
			MinKB:      getIntOrDefault("DOWNLOAD_MIN_KB", 50),
			RefererAll: getBoolOrDefault("DOWNLOAD_REFERER_ALL", false),
			OutputDir:  getEnvOrDefault("DOWNLOAD_OUTPUT_DIR", "imagens"),
		},
		Browser: BrowserConfig{
			Headless:       getBoolOrDefault("BROWSER_HEADLESS", true),
			Timeout:        getDurationOrDefault("BROWSER_TIMEOUT", 30*time.Second),
			ViewportWidth:  getIntOrDefault("BROWSER_VIEWPORT_WIDTH", 1280),
			ViewportHeight: getIntOrDefault("BROWSER_VIEWPORT_HEIGHT", 1200),
		},
		Records: RecordsConfig{
			Dir: getEnvOrDefault("RECORDS_DIR", "records"),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Crawler.RequestTimeout <= 0 {
		return fmt.Errorf("CRAWLER_REQUEST_TIMEOUT must be positive")
	}

	if c.Download.MinKB < 0 {
		return fmt.Errorf("DOWNLOAD_MIN_KB cannot be negative")
	}

	if c.Download.OutputDir == "" {
		return fmt.Errorf("DOWNLOAD_OUTPUT_DIR cannot be empty")
	}

	if c.Records.Dir == "" {
		return fmt.Errorf("RECORDS_DIR cannot be empty")
	}

	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
