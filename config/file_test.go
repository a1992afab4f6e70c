package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helper: point HOME at a temp dir holding the given config file
func writeHomeConfig(t *testing.T, content string) string {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	if content == "" {
		return tmpDir
	}

	dir := filepath.Join(tmpDir, ".sitechat")
	require.NoError(t, os.MkdirAll(dir, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o600))
	return tmpDir
}

func TestLoadConfigFile_NoFile(t *testing.T) {
	writeHomeConfig(t, "")

	cfg, err := LoadConfigFile()
	require.NoError(t, err)
	assert.Nil(t, cfg, "Should return nil when config file doesn't exist")
}

func TestLoadConfigFile_ValidConfig(t *testing.T) {
	writeHomeConfig(t, `database: "/data/sitechat.db"
addr: ":8080"
llm:
  provider: "openai"
  model: "gpt-4o"
crawl:
  max_pages: 25
  delay: "500ms"
  feed_discovery: true
selectors:
  content:
    - "#page-body"
`)

	cfg, err := LoadConfigFile()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "/data/sitechat.db", cfg.Database)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	assert.Equal(t, 25, cfg.Crawl.MaxPages)
	assert.Equal(t, "500ms", cfg.Crawl.Delay)
	require.NotNil(t, cfg.Crawl.FeedDiscovery)
	assert.True(t, *cfg.Crawl.FeedDiscovery)
	assert.Equal(t, []string{"#page-body"}, cfg.Selectors.Content)
}

func TestLoadConfigFile_InvalidYAML(t *testing.T) {
	writeHomeConfig(t, `crawl:
  - this is invalid yaml because crawl should be an object not a list
`)

	cfg, err := LoadConfigFile()
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestLoadConfigFile_PartialConfig(t *testing.T) {
	writeHomeConfig(t, `llm:
  provider: "anthropic"
`)

	cfg, err := LoadConfigFile()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, "", cfg.Database, "Unspecified database should be empty string")
	assert.Nil(t, cfg.Crawl.FeedDiscovery, "Unspecified feed_discovery should be nil")
}
