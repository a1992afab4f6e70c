// Package api exposes the chatbot over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pevans/sitechat/chatbot"
	"github.com/pevans/sitechat/config"
	"github.com/pevans/sitechat/logging"
	"github.com/pevans/sitechat/sessions"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const maxPagesLimit = 100

// SessionLister lists stored sessions.
type SessionLister interface {
	ListSessions() ([]sessions.Session, error)
}

// APIServer represents the HTTP API server for the chatbot.
type APIServer struct {
	service  *chatbot.Service
	sessions SessionLister
	settings *config.SettingsAPI
	logger   *logrus.Logger
}

type Option func(*APIServer)

// WithSessions enables the session listing and loading endpoints.
func WithSessions(lister SessionLister) Option {
	return func(s *APIServer) { s.sessions = lister }
}

// WithSettings enables the runtime settings endpoints.
func WithSettings(settings *config.SettingsAPI) Option {
	return func(s *APIServer) { s.settings = settings }
}

func WithLogger(logger *logrus.Logger) Option {
	return func(s *APIServer) { s.logger = logger }
}

// NewAPIServer creates a new API server.
func NewAPIServer(service *chatbot.Service, opts ...Option) *APIServer {
	s := &APIServer{service: service}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.Discard()
	}
	return s
}

// SetupRouter configures the Gin router with all chatbot API routes.
func (s *APIServer) SetupRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), loggingMiddleware(s.logger), corsMiddleware())

	router.GET("/", s.HandleIndex)
	router.GET("/health", s.HandleHealth)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	api.POST("/scrape", s.HandleScrape)
	api.POST("/chat", s.HandleChat)
	api.GET("/summary", s.HandleSummary)
	api.GET("/suggestions", s.HandleSuggestions)

	if s.sessions != nil {
		api.GET("/sessions", s.HandleListSessions)
		api.POST("/sessions/:id/load", s.HandleLoadSession)
	}
	if s.settings != nil {
		s.settings.RegisterRoutes(api)
	}

	return router
}

// ScrapeRequest represents the request for POST /api/v1/scrape.
type ScrapeRequest struct {
	WebsiteURL string `json:"website_url" binding:"required"`
	MaxPages   int    `json:"max_pages"`
}

// ChatRequest represents the request for POST /api/v1/chat.
type ChatRequest struct {
	Question string `json:"question" binding:"required"`
}

// ListSessionsResponse represents the response for GET /api/v1/sessions.
type ListSessionsResponse struct {
	Sessions []sessions.Session `json:"sessions"`
	Total    int                `json:"total"`
}

// errorResponse creates a standardized error response.
func errorResponse(code, message string) gin.H {
	return gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
}

// handleError maps domain errors to HTTP responses.
func (s *APIServer) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, chatbot.ErrNoData):
		c.JSON(http.StatusBadRequest, errorResponse("no_data", "No website data loaded. Please scrape a website first"))
	case errors.Is(err, chatbot.ErrEmptyQuestion):
		c.JSON(http.StatusBadRequest, errorResponse("validation_error", err.Error()))
	case errors.Is(err, sessions.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, errorResponse("not_found", err.Error()))
	case errors.Is(err, chatbot.ErrCrawlInProgress):
		c.JSON(http.StatusConflict, errorResponse("conflict", err.Error()))
	case errors.Is(err, chatbot.ErrNoGenerator):
		c.JSON(http.StatusServiceUnavailable, errorResponse("llm_not_configured", "LLM API key not configured"))
	case errors.Is(err, chatbot.ErrGeneration):
		c.JSON(http.StatusBadGateway, errorResponse("generation_error", err.Error()))
	default:
		s.logger.WithError(err).WithField("path", c.Request.URL.Path).Error("Request failed")
		c.JSON(http.StatusInternalServerError, errorResponse("internal_error", "Failed to process request"))
	}
}

// HandleIndex handles GET / with a listing of the available endpoints.
func (s *APIServer) HandleIndex(c *gin.Context) {
	endpoints := gin.H{
		"POST /api/v1/scrape":     "Scrape a website (body: {website_url, max_pages})",
		"POST /api/v1/chat":       "Ask a question (body: {question})",
		"GET /api/v1/summary":     "Get website summary",
		"GET /api/v1/suggestions": "Get suggested questions",
		"GET /health":             "Health check",
		"GET /metrics":            "Prometheus metrics",
	}
	if s.sessions != nil {
		endpoints["GET /api/v1/sessions"] = "List stored sessions"
		endpoints["POST /api/v1/sessions/:id/load"] = "Load a stored session"
	}
	if s.settings != nil {
		endpoints["GET /api/v1/config"] = "Get runtime settings"
		endpoints["PUT /api/v1/config"] = "Update runtime settings"
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Business Website Chatbot API",
		"endpoints": endpoints,
	})
}

// HandleHealth handles GET /health.
func (s *APIServer) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "OK",
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
		"chatbot_loaded": s.service.Loaded(),
	})
}

// HandleScrape handles POST /api/v1/scrape.
func (s *APIServer) HandleScrape(c *gin.Context) {
	var req ScrapeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("bad_request", err.Error()))
		return
	}

	if err := validateWebsiteURL(req.WebsiteURL); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("validation_error", err.Error()))
		return
	}
	if req.MaxPages < 0 || req.MaxPages > maxPagesLimit {
		c.JSON(http.StatusBadRequest, errorResponse("validation_error", "max_pages must be between 1 and 100"))
		return
	}

	// A client hanging up must not abort the crawl and leave nothing published
	ctx := context.WithoutCancel(c.Request.Context())
	result, err := s.service.Scrape(ctx, strings.TrimSpace(req.WebsiteURL), req.MaxPages)
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// HandleChat handles POST /api/v1/chat.
func (s *APIServer) HandleChat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("bad_request", err.Error()))
		return
	}

	reply, err := s.service.Ask(c.Request.Context(), req.Question)
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, reply)
}

// HandleSummary handles GET /api/v1/summary.
func (s *APIServer) HandleSummary(c *gin.Context) {
	summary, err := s.service.Summary()
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// HandleSuggestions handles GET /api/v1/suggestions.
func (s *APIServer) HandleSuggestions(c *gin.Context) {
	suggestions, err := s.service.Suggestions()
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"suggestions": suggestions})
}

// HandleListSessions handles GET /api/v1/sessions.
func (s *APIServer) HandleListSessions(c *gin.Context) {
	list, err := s.sessions.ListSessions()
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, ListSessionsResponse{
		Sessions: list,
		Total:    len(list),
	})
}

// HandleLoadSession handles POST /api/v1/sessions/{id}/load.
func (s *APIServer) HandleLoadSession(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid_id", "Invalid session ID format"))
		return
	}

	summary, err := s.service.LoadSession(id)
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// validateWebsiteURL checks that raw is an absolute http(s) URL.
func validateWebsiteURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Hostname() == "" {
		return errors.New("website_url must be an absolute http or https URL")
	}
	return nil
}
