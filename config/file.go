package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pevans/sitechat/extract"
	"gopkg.in/yaml.v3"
)

// CrawlFileConfig represents crawl settings from the config file. Durations
// are strings such as "1s" or "500ms".
type CrawlFileConfig struct {
	MaxPages      int    `yaml:"max_pages"`
	Delay         string `yaml:"delay"`
	Timeout       string `yaml:"timeout"`
	FeedDiscovery *bool  `yaml:"feed_discovery"`
	ChunkSize     int    `yaml:"chunk_size"`
	TopK          int    `yaml:"top_k"`
}

// LLMFileConfig represents generator settings from the config file.
type LLMFileConfig struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	APIKey      string  `yaml:"api_key"`
	APIURL      string  `yaml:"api_url"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

// FileConfig represents the structure of ~/.sitechat/config.yaml.
type FileConfig struct {
	Database  string            `yaml:"database"`
	Addr      string            `yaml:"addr"`
	LLM       LLMFileConfig     `yaml:"llm"`
	Crawl     CrawlFileConfig   `yaml:"crawl"`
	Selectors extract.Selectors `yaml:"selectors"`
}

// ConfigFilePath returns the location of the config file.
func ConfigFilePath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".sitechat", "config.yaml"), nil
}

// LoadConfigFile loads configuration from ~/.sitechat/config.yaml. Returns
// nil if the file doesn't exist (not an error). Returns error if the file
// exists but cannot be parsed.
func LoadConfigFile() (*FileConfig, error) {
	configPath, err := ConfigFilePath()
	if err != nil {
		return nil, err
	}

	// Check if file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, nil // File doesn't exist -- not an error
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &cfg, nil
}
