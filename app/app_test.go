package app

import (
	"path/filepath"
	"testing"

	"github.com/pevans/sitechat/chatbot"
	"github.com/pevans/sitechat/config"
	"github.com/pevans/sitechat/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) config.Config {
	cfg := config.Defaults()
	cfg.DatabasePath = filepath.Join(t.TempDir(), "sitechat.db")
	return cfg
}

// TestNew verifies both stores share one database and settings are seeded
// from the crawl config
func TestNew(t *testing.T) {
	cfg := testConfig(t)
	cfg.Crawl.MaxPages = 25
	cfg.Crawl.TopK = 3

	a, err := New(cfg, logging.Discard())
	require.NoError(t, err)

	settings, err := a.Settings.GetSettings()
	require.NoError(t, err)
	assert.Equal(t, config.Settings{DefaultMaxPages: 25, TopK: 3}, *settings)

	list, err := a.Sessions.ListSessions()
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = a.Service.LoadLatest()
	assert.ErrorIs(t, err, chatbot.ErrNoData)

	assert.NoError(t, a.Close())
}

// TestNew_InvalidSelectors verifies a bad selector in the config fails early
func TestNew_InvalidSelectors(t *testing.T) {
	cfg := testConfig(t)
	cfg.Selectors.Noise = "div[["

	_, err := New(cfg, logging.Discard())

	assert.ErrorContains(t, err, "invalid selectors")
}
