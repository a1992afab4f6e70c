// Package app assembles a chatbot service from resolved configuration. Both
// the CLI and the API server start from here.
package app

import (
	"fmt"

	"github.com/pevans/sitechat/chatbot"
	"github.com/pevans/sitechat/config"
	"github.com/pevans/sitechat/crawler"
	"github.com/pevans/sitechat/extract"
	"github.com/pevans/sitechat/llm"
	"github.com/pevans/sitechat/sessions"
	"github.com/sirupsen/logrus"
)

// App holds the wired components and the stores they share.
type App struct {
	Config   config.Config
	Logger   *logrus.Logger
	Service  *chatbot.Service
	Sessions *sessions.Store
	Settings *config.SettingsStore
}

// New opens the stores named by cfg and builds the chatbot service. A missing
// API key is not an error: the service still scrapes and reports summaries,
// and questions fail with chatbot.ErrNoGenerator.
func New(cfg config.Config, logger *logrus.Logger) (*App, error) {
	extractor, err := extract.New(cfg.Selectors)
	if err != nil {
		return nil, fmt.Errorf("invalid selectors: %w", err)
	}

	store, err := sessions.NewStore(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}

	settings, err := config.NewSettingsStore(cfg.DatabasePath, cfg.DefaultSettings())
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to open settings store: %w", err)
	}

	c := crawler.New(
		crawler.WithFetcher(crawler.NewHTTPFetcher(cfg.Crawl.Timeout)),
		crawler.WithExtractor(extractor),
		crawler.WithDelay(cfg.Crawl.Delay),
		crawler.WithFeedDiscovery(cfg.Crawl.FeedDiscovery),
		crawler.WithLogger(logger),
	)

	opts := []chatbot.Option{
		chatbot.WithStore(store),
		chatbot.WithSettings(settings),
		chatbot.WithLogger(logger),
		chatbot.WithChunkSize(cfg.Crawl.ChunkSize),
		chatbot.WithTopK(cfg.Crawl.TopK),
		chatbot.WithMaxPages(cfg.Crawl.MaxPages),
	}

	gen, err := llm.NewGenerator(cfg.LLM)
	if err != nil {
		logger.WithError(err).Warn("LLM generator unavailable; questions will be rejected")
	} else {
		opts = append(opts, chatbot.WithGenerator(gen))
	}

	return &App{
		Config:   cfg,
		Logger:   logger,
		Service:  chatbot.NewService(c, opts...),
		Sessions: store,
		Settings: settings,
	}, nil
}

// Close releases both stores.
func (a *App) Close() error {
	serr := a.Settings.Close()
	if err := a.Sessions.Close(); err != nil {
		return err
	}
	return serr
}
