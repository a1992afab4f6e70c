// Package config resolves sitechat configuration from defaults, the YAML
// config file, .env files and environment variables, and stores runtime
// settings in SQLite.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pevans/sitechat/extract"
	"github.com/pevans/sitechat/llm"
	"github.com/sirupsen/logrus"
)

// CrawlConfig controls crawling, chunking and retrieval.
type CrawlConfig struct {
	MaxPages      int
	Delay         time.Duration
	Timeout       time.Duration
	FeedDiscovery bool
	ChunkSize     int
	TopK          int
}

// Config is the fully resolved configuration.
type Config struct {
	DatabasePath string
	Addr         string
	LLM          llm.Config
	Crawl        CrawlConfig
	Selectors    extract.Selectors
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		DatabasePath: "sitechat.db",
		Addr:         ":3000",
		LLM: llm.Config{
			Provider:    llm.ProviderAnthropic,
			MaxTokens:   llm.DefaultMaxTokens,
			Temperature: llm.DefaultTemperature,
		},
		Crawl: CrawlConfig{
			MaxPages:  10,
			Delay:     time.Second,
			Timeout:   15 * time.Second,
			ChunkSize: 1000,
			TopK:      5,
		},
	}
}

// DefaultSettings returns the runtime settings seeded from cfg.
func (c Config) DefaultSettings() Settings {
	return Settings{
		DefaultMaxPages: c.Crawl.MaxPages,
		TopK:            c.Crawl.TopK,
	}
}

// EnvFiles are the dotenv files read by Load, in order.
var EnvFiles = []string{".env", ".env.local"}

// Load resolves configuration. Later sources win: defaults, then
// ~/.sitechat/config.yaml, then .env files, then the process environment.
func Load(logger *logrus.Logger) (Config, error) {
	cfg := Defaults()

	file, err := LoadConfigFile()
	if err != nil {
		return cfg, err
	}
	if file != nil {
		if err := cfg.applyFile(file); err != nil {
			return cfg, err
		}
	}

	LoadEnv(logger)
	cfg.applyEnv()

	return cfg, nil
}

// LoadEnv loads variables from EnvFiles in the working directory. Variables
// already set in the process environment are not overwritten.
func LoadEnv(logger *logrus.Logger) {
	loaded := make([]string, 0, len(EnvFiles))
	for _, file := range EnvFiles {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			if logger != nil {
				logger.WithError(err).Warnf("Failed to load %s", file)
			}
			continue
		}
		loaded = append(loaded, file)
	}
	if logger == nil {
		return
	}
	if len(loaded) == 0 {
		logger.Debug("No local env files loaded; relying on process environment")
	} else {
		logger.Debugf("Loaded env files: %s", strings.Join(loaded, ", "))
	}
}

func (c *Config) applyFile(f *FileConfig) error {
	if f.Database != "" {
		c.DatabasePath = f.Database
	}
	if f.Addr != "" {
		c.Addr = f.Addr
	}

	if f.LLM.Provider != "" {
		c.LLM.Provider = f.LLM.Provider
	}
	if f.LLM.Model != "" {
		c.LLM.Model = f.LLM.Model
	}
	if f.LLM.APIKey != "" {
		c.LLM.APIKey = f.LLM.APIKey
	}
	if f.LLM.APIURL != "" {
		c.LLM.APIURL = f.LLM.APIURL
	}
	if f.LLM.MaxTokens > 0 {
		c.LLM.MaxTokens = f.LLM.MaxTokens
	}
	if f.LLM.Temperature > 0 {
		c.LLM.Temperature = f.LLM.Temperature
	}

	if f.Crawl.MaxPages > 0 {
		c.Crawl.MaxPages = f.Crawl.MaxPages
	}
	if f.Crawl.Delay != "" {
		d, err := time.ParseDuration(f.Crawl.Delay)
		if err != nil {
			return fmt.Errorf("invalid crawl.delay %q: %w", f.Crawl.Delay, err)
		}
		c.Crawl.Delay = d
	}
	if f.Crawl.Timeout != "" {
		d, err := time.ParseDuration(f.Crawl.Timeout)
		if err != nil {
			return fmt.Errorf("invalid crawl.timeout %q: %w", f.Crawl.Timeout, err)
		}
		c.Crawl.Timeout = d
	}
	if f.Crawl.FeedDiscovery != nil {
		c.Crawl.FeedDiscovery = *f.Crawl.FeedDiscovery
	}
	if f.Crawl.ChunkSize > 0 {
		c.Crawl.ChunkSize = f.Crawl.ChunkSize
	}
	if f.Crawl.TopK > 0 {
		c.Crawl.TopK = f.Crawl.TopK
	}

	c.Selectors = f.Selectors
	return nil
}

func (c *Config) applyEnv() {
	c.DatabasePath = getEnv("SITECHAT_DB", c.DatabasePath)
	c.Addr = getEnv("SITECHAT_ADDR", c.Addr)
	if port := os.Getenv("PORT"); port != "" && os.Getenv("SITECHAT_ADDR") == "" {
		c.Addr = ":" + port
	}

	c.LLM.Provider = getEnv("SITECHAT_LLM_PROVIDER", c.LLM.Provider)
	c.LLM.Model = getEnv("SITECHAT_LLM_MODEL", c.LLM.Model)
	c.LLM.APIURL = getEnv("SITECHAT_LLM_API_URL", c.LLM.APIURL)
	c.LLM.MaxTokens = getEnvInt("SITECHAT_LLM_MAX_TOKENS", c.LLM.MaxTokens)

	// Provider-specific keys are accepted so an existing .env keeps working
	switch strings.ToLower(c.LLM.Provider) {
	case llm.ProviderOpenAI:
		c.LLM.APIKey = getEnv("OPENAI_API_KEY", c.LLM.APIKey)
	default:
		c.LLM.APIKey = getEnv("ANTHROPIC_API_KEY", c.LLM.APIKey)
	}
	c.LLM.APIKey = getEnv("SITECHAT_LLM_API_KEY", c.LLM.APIKey)

	c.Crawl.MaxPages = getEnvInt("SITECHAT_MAX_PAGES", c.Crawl.MaxPages)
	c.Crawl.Delay = getEnvDuration("SITECHAT_CRAWL_DELAY", c.Crawl.Delay)
	c.Crawl.Timeout = getEnvDuration("SITECHAT_FETCH_TIMEOUT", c.Crawl.Timeout)
	c.Crawl.FeedDiscovery = getEnvBool("SITECHAT_FEED_DISCOVERY", c.Crawl.FeedDiscovery)
	c.Crawl.ChunkSize = getEnvInt("SITECHAT_CHUNK_SIZE", c.Crawl.ChunkSize)
	c.Crawl.TopK = getEnvInt("SITECHAT_TOP_K", c.Crawl.TopK)
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvDuration parses a duration from environment variable or returns default.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvInt parses an int from environment variable or returns default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
