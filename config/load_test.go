package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pevans/sitechat/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configEnvKeys = []string{
	"SITECHAT_DB", "SITECHAT_ADDR", "PORT",
	"SITECHAT_LLM_PROVIDER", "SITECHAT_LLM_MODEL", "SITECHAT_LLM_API_URL",
	"SITECHAT_LLM_API_KEY", "SITECHAT_LLM_MAX_TOKENS",
	"ANTHROPIC_API_KEY", "OPENAI_API_KEY",
	"SITECHAT_MAX_PAGES", "SITECHAT_CRAWL_DELAY", "SITECHAT_FETCH_TIMEOUT",
	"SITECHAT_FEED_DISCOVERY", "SITECHAT_CHUNK_SIZE", "SITECHAT_TOP_K",
}

// Test helper: isolate Load from the developer's environment. Keys are
// unset rather than emptied so .env files can still supply them.
func isolateEnv(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { os.Chdir(wd) })
	for _, key := range configEnvKeys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
	t.Cleanup(func() {
		for _, key := range configEnvKeys {
			os.Unsetenv(key)
		}
	})
}

// TestLoad_Defaults verifies built-in values when nothing is configured
func TestLoad_Defaults(t *testing.T) {
	writeHomeConfig(t, "")
	isolateEnv(t)

	cfg, err := Load(logging.Discard())

	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
	assert.Equal(t, 10, cfg.Crawl.MaxPages)
	assert.Equal(t, time.Second, cfg.Crawl.Delay)
	assert.Equal(t, 15*time.Second, cfg.Crawl.Timeout)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
}

// TestLoad_Precedence verifies file < .env < environment
func TestLoad_Precedence(t *testing.T) {
	writeHomeConfig(t, `database: "file.db"
addr: ":4000"
crawl:
  max_pages: 20
  delay: "2s"
  top_k: 7
`)
	isolateEnv(t)

	require.NoError(t, os.WriteFile(".env", []byte("ANTHROPIC_API_KEY=from-dotenv\nSITECHAT_MAX_PAGES=30\nSITECHAT_DB=dotenv.db\n"), 0o600))
	t.Setenv("SITECHAT_DB", "env.db")

	cfg, err := Load(logging.Discard())

	require.NoError(t, err)
	assert.Equal(t, "env.db", cfg.DatabasePath, "environment beats .env")
	assert.Equal(t, 30, cfg.Crawl.MaxPages, ".env beats file")
	assert.Equal(t, ":4000", cfg.Addr, "file beats defaults")
	assert.Equal(t, 2*time.Second, cfg.Crawl.Delay)
	assert.Equal(t, 7, cfg.Crawl.TopK)
	assert.Equal(t, "from-dotenv", cfg.LLM.APIKey)
}

// TestLoad_ProviderKeys verifies provider-specific key variables
func TestLoad_ProviderKeys(t *testing.T) {
	writeHomeConfig(t, "")
	isolateEnv(t)

	t.Setenv("SITECHAT_LLM_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-openai")
	t.Setenv("ANTHROPIC_API_KEY", "sk-anthropic")

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "sk-openai", cfg.LLM.APIKey)

	t.Setenv("SITECHAT_LLM_API_KEY", "sk-explicit")
	cfg, err = Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "sk-explicit", cfg.LLM.APIKey)
}

// TestLoad_Port verifies PORT is honoured when no address is set
func TestLoad_Port(t *testing.T) {
	writeHomeConfig(t, "")
	isolateEnv(t)
	t.Setenv("PORT", "8081")

	cfg, err := Load(nil)

	require.NoError(t, err)
	assert.Equal(t, ":8081", cfg.Addr)
}

// TestLoad_InvalidDuration verifies bad file durations are reported
func TestLoad_InvalidDuration(t *testing.T) {
	writeHomeConfig(t, `crawl:
  delay: "soon"
`)
	isolateEnv(t)

	_, err := Load(nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "crawl.delay")
}

// TestLoad_SelectorsFromFile verifies custom selectors are carried through
func TestLoad_SelectorsFromFile(t *testing.T) {
	home := writeHomeConfig(t, `selectors:
  noise: "script, style"
`)
	isolateEnv(t)

	cfg, err := Load(nil)

	require.NoError(t, err)
	assert.Equal(t, "script, style", cfg.Selectors.Noise)
	assert.FileExists(t, filepath.Join(home, ".sitechat", "config.yaml"))
}
