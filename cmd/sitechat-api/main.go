package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pevans/sitechat/api"
	"github.com/pevans/sitechat/app"
	"github.com/pevans/sitechat/chatbot"
	"github.com/pevans/sitechat/config"
	"github.com/pevans/sitechat/logging"
)

func main() {
	logger := logging.NewLogger()

	cfg, err := config.Load(logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	addr := flag.String("addr", cfg.Addr, "Listen address (SITECHAT_ADDR, PORT)")
	dbPath := flag.String("db", cfg.DatabasePath, "Path to the SQLite database (SITECHAT_DB)")
	flag.Parse()
	cfg.Addr = *addr
	cfg.DatabasePath = *dbPath

	logger.WithField("database", cfg.DatabasePath).Info("Opening stores")
	a, err := app.New(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize")
	}
	defer a.Close()

	// Answer from the last scrape straight away when one is stored
	if summary, err := a.Service.LoadLatest(); err == nil {
		logger.WithField("website_url", summary.WebsiteURL).Info("Restored latest session")
	} else if !errors.Is(err, chatbot.ErrNoData) {
		logger.WithError(err).Warn("Failed to restore latest session")
	}

	gin.SetMode(gin.ReleaseMode)
	server := api.NewAPIServer(a.Service,
		api.WithSessions(a.Sessions),
		api.WithSettings(config.NewSettingsAPI(a.Settings)),
		api.WithLogger(logger),
	)

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	errChan := make(chan error, 1)
	go func() {
		logger.WithField("addr", cfg.Addr).Info("Starting sitechat API server")
		errChan <- httpServer.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		logger.WithField("signal", sig.String()).Info("Shutting down gracefully...")

		// Scrapes can take a while; give in-flight requests time to finish
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			logger.WithError(err).Warn("Shutdown timeout exceeded, forcing exit")
			return
		}
		logger.Info("Server stopped")
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server error")
		}
	}
}
