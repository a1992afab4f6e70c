// Package chatbot runs the scrape, index and answer workflow for one website
// at a time.
package chatbot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pevans/sitechat/answer"
	"github.com/pevans/sitechat/chunker"
	"github.com/pevans/sitechat/config"
	"github.com/pevans/sitechat/crawler"
	"github.com/pevans/sitechat/index"
	"github.com/pevans/sitechat/logging"
	"github.com/pevans/sitechat/pages"
	"github.com/pevans/sitechat/sessions"
	"github.com/sirupsen/logrus"
)

// Custom errors for chatbot operations
var (
	ErrNoData          = errors.New("no website data loaded")
	ErrCrawlInProgress = errors.New("a crawl is already in progress")
	ErrEmptyQuestion   = errors.New("question is required")
	ErrNoGenerator     = errors.New("no LLM provider configured")
	ErrGeneration      = errors.New("answer generation failed")
)

const (
	SourceMemory   = "memory"
	SourceDatabase = "database"
)

// Crawler runs one crawl.
type Crawler interface {
	Crawl(ctx context.Context, baseURL string, maxPages int) (*crawler.State, error)
}

// SessionStore persists and reloads crawl sessions.
type SessionStore interface {
	SaveSession(websiteURL string, summary pages.Summary, records []pages.Record, chunks []string) (*sessions.Session, error)
	LatestSession() (*sessions.Session, error)
	GetSession(id uuid.UUID) (*sessions.Session, error)
	Chunks(id uuid.UUID) ([]string, error)
}

// SettingsSource supplies runtime settings.
type SettingsSource interface {
	GetSettings() (*config.Settings, error)
}

// WebsiteSummary describes the currently loaded website.
type WebsiteSummary struct {
	WebsiteURL   string        `json:"website_url"`
	Summary      pages.Summary `json:"summary"`
	TotalPages   int           `json:"total_pages"`
	ScrapedAt    time.Time     `json:"scraped_at"`
	ChunksLoaded int           `json:"chunks_loaded"`
	DataSource   string        `json:"data_source"`
	SessionID    *uuid.UUID    `json:"session_id,omitempty"`
}

// ScrapeResult reports the outcome of one scrape.
type ScrapeResult struct {
	WebsiteURL  string            `json:"website_url"`
	Summary     pages.Summary     `json:"summary"`
	ChunkCount  int               `json:"chunk_count"`
	FailedPages map[string]string `json:"failed_pages,omitempty"`
	SessionID   *uuid.UUID        `json:"session_id,omitempty"`
}

// Source is one chunk used to answer a question.
type Source struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
	Text  string  `json:"text"`
}

// Answer is the reply to one question.
type Answer struct {
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Sources  []Source `json:"sources"`
}

// Service owns the current index and website summary. Scrapes are
// serialized; questions run concurrently against whichever index is current.
type Service struct {
	crawler   Crawler
	store     SessionStore
	generator answer.Generator
	settings  SettingsSource
	logger    *logrus.Logger
	chunkSize int
	topK      int
	maxPages  int

	crawlMu sync.Mutex
	index   index.Handle

	mu      sync.RWMutex
	current *WebsiteSummary
}

type Option func(*Service)

// WithStore persists every scrape and enables LoadLatest.
func WithStore(store SessionStore) Option {
	return func(s *Service) { s.store = store }
}

// WithGenerator sets the answer generator.
func WithGenerator(g answer.Generator) Option {
	return func(s *Service) { s.generator = g }
}

// WithSettings reads top-k and the default page budget from a runtime
// settings source on every call.
func WithSettings(src SettingsSource) Option {
	return func(s *Service) { s.settings = src }
}

func WithLogger(logger *logrus.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithChunkSize sets the maximum chunk length in characters.
func WithChunkSize(n int) Option {
	return func(s *Service) { s.chunkSize = n }
}

// WithTopK sets how many chunks are used as context when no settings source
// is configured.
func WithTopK(k int) Option {
	return func(s *Service) { s.topK = k }
}

// WithMaxPages sets the page budget used when a scrape does not give one.
func WithMaxPages(n int) Option {
	return func(s *Service) { s.maxPages = n }
}

// NewService creates a Service around c.
func NewService(c Crawler, opts ...Option) *Service {
	s := &Service{
		crawler:   c,
		chunkSize: chunker.DefaultMaxLength,
		topK:      answer.DefaultTopK,
		maxPages:  crawler.DefaultMaxPages,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.Discard()
	}
	return s
}

// runtimeSettings returns the settings source's values, falling back to the
// static options.
func (s *Service) runtimeSettings() (maxPages, topK int) {
	maxPages, topK = s.maxPages, s.topK
	if s.settings == nil {
		return maxPages, topK
	}
	settings, err := s.settings.GetSettings()
	if err != nil {
		s.logger.WithError(err).Warn("Failed to read settings; using defaults")
		return maxPages, topK
	}
	if settings.DefaultMaxPages > 0 {
		maxPages = settings.DefaultMaxPages
	}
	if settings.TopK > 0 {
		topK = settings.TopK
	}
	return maxPages, topK
}

// Scrape crawls websiteURL, rebuilds the index from the result and persists
// the session when a store is configured. Only one scrape runs at a time;
// a concurrent call returns ErrCrawlInProgress. A crawl cut short by ctx
// returns ctx's error and leaves the current index and store untouched.
func (s *Service) Scrape(ctx context.Context, websiteURL string, maxPages int) (*ScrapeResult, error) {
	if !s.crawlMu.TryLock() {
		return nil, ErrCrawlInProgress
	}
	defer s.crawlMu.Unlock()

	if maxPages <= 0 {
		maxPages, _ = s.runtimeSettings()
	}

	log := s.logger.WithField("website_url", websiteURL)

	state, err := s.crawler.Crawl(ctx, websiteURL, maxPages)
	if err != nil {
		scrapesTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("failed to crawl website: %w", err)
	}
	if err := ctx.Err(); err != nil {
		scrapesTotal.WithLabelValues("cancelled").Inc()
		log.WithField("pages", len(state.Pages)).Info("Crawl cancelled; keeping previous data")
		return nil, fmt.Errorf("crawl cancelled: %w", err)
	}

	chunks := chunker.Chunk(state.Pages, s.chunkSize)
	summary := pages.Summarize(state.Pages)

	info := &WebsiteSummary{
		WebsiteURL:   state.BaseURL,
		Summary:      summary,
		TotalPages:   summary.TotalPages,
		ScrapedAt:    time.Now().UTC(),
		ChunksLoaded: len(chunks),
		DataSource:   SourceMemory,
	}

	if s.store != nil {
		session, err := s.store.SaveSession(state.BaseURL, summary, state.Pages, chunks)
		if err != nil {
			log.WithError(err).Error("Failed to save session; keeping data in memory only")
		} else {
			info.SessionID = &session.ID
			info.ScrapedAt = session.ScrapedAt
			info.DataSource = SourceDatabase
			log = log.WithField("session_id", session.ID)
		}
	}

	s.publish(index.Build(chunks), info)
	scrapesTotal.WithLabelValues("completed").Inc()

	log.WithFields(logrus.Fields{
		"pages":  summary.TotalPages,
		"chunks": len(chunks),
		"failed": len(state.Failed),
	}).Info("Website data loaded")

	return &ScrapeResult{
		WebsiteURL:  state.BaseURL,
		Summary:     summary,
		ChunkCount:  len(chunks),
		FailedPages: state.Failed,
		SessionID:   info.SessionID,
	}, nil
}

// publish swaps in a new index and its summary.
func (s *Service) publish(idx *index.Index, info *WebsiteSummary) {
	s.mu.Lock()
	s.index.Swap(idx)
	s.current = info
	s.mu.Unlock()
	indexChunks.Set(float64(idx.Len()))
}

// LoadLatest loads the most recent stored session without crawling.
func (s *Service) LoadLatest() (*WebsiteSummary, error) {
	if s.store == nil {
		return nil, ErrNoData
	}
	session, err := s.store.LatestSession()
	if errors.Is(err, sessions.ErrSessionNotFound) {
		return nil, ErrNoData
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load latest session: %w", err)
	}
	return s.loadSession(session)
}

// LoadSession loads a stored session by ID without crawling.
func (s *Service) LoadSession(id uuid.UUID) (*WebsiteSummary, error) {
	if s.store == nil {
		return nil, ErrNoData
	}
	session, err := s.store.GetSession(id)
	if err != nil {
		return nil, err
	}
	return s.loadSession(session)
}

func (s *Service) loadSession(session *sessions.Session) (*WebsiteSummary, error) {
	chunks, err := s.store.Chunks(session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load chunks: %w", err)
	}

	id := session.ID
	info := &WebsiteSummary{
		WebsiteURL:   session.WebsiteURL,
		Summary:      session.Summary,
		TotalPages:   session.Summary.TotalPages,
		ScrapedAt:    session.ScrapedAt,
		ChunksLoaded: len(chunks),
		DataSource:   SourceDatabase,
		SessionID:    &id,
	}
	s.publish(index.Build(chunks), info)

	s.logger.WithFields(logrus.Fields{
		"session_id": session.ID,
		"chunks":     len(chunks),
	}).Info("Loaded session from database")

	return info, nil
}

// Ask answers question from the top ranked chunks of the current index. A
// question with no relevant chunks is still sent to the generator with an
// empty context so it can decline gracefully.
func (s *Service) Ask(ctx context.Context, question string) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	idx := s.index.Load()
	if idx == nil || idx.Len() == 0 {
		questionsTotal.WithLabelValues("no_data").Inc()
		return nil, ErrNoData
	}
	if s.generator == nil {
		questionsTotal.WithLabelValues("failed").Inc()
		return nil, ErrNoGenerator
	}

	_, topK := s.runtimeSettings()
	results := idx.TopK(question, topK)

	sources := make([]Source, len(results))
	for i, r := range results {
		sources[i] = Source{Index: r.Index, Score: r.Score, Text: idx.Chunk(r.Index)}
	}
	contextBlock := answer.Assemble(idx.Chunks(), results)

	start := time.Now()
	reply, err := s.generator.Generate(ctx, answer.Persona, contextBlock, question)
	generationDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		questionsTotal.WithLabelValues("failed").Inc()
		s.logger.WithError(err).Warn("Failed to generate answer")
		return nil, fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	questionsTotal.WithLabelValues("answered").Inc()

	return &Answer{
		Question: question,
		Answer:   reply,
		Sources:  sources,
	}, nil
}

// Summary describes the loaded website.
func (s *Service) Summary() (*WebsiteSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil, ErrNoData
	}
	info := *s.current
	return &info, nil
}

// Suggestions returns questions suited to the loaded website.
func (s *Service) Suggestions() ([]string, error) {
	info, err := s.Summary()
	if err != nil {
		return nil, err
	}
	return answer.Suggestions(info.Summary), nil
}

// Loaded returns true once a website has been scraped or loaded.
func (s *Service) Loaded() bool {
	return s.index.Load() != nil
}
