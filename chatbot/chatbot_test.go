package chatbot

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/pevans/sitechat/answer"
	"github.com/pevans/sitechat/config"
	"github.com/pevans/sitechat/crawler"
	"github.com/pevans/sitechat/pages"
	"github.com/pevans/sitechat/sessions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helper: a crawler returning fixed records
type fakeCrawler struct {
	records  []pages.Record
	err      error
	gotPages int
	block    chan struct{}
	started  chan struct{}
}

func (f *fakeCrawler) Crawl(ctx context.Context, baseURL string, maxPages int) (*crawler.State, error) {
	f.gotPages = maxPages
	if f.started != nil {
		close(f.started)
	}
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return nil, f.err
	}
	return &crawler.State{
		BaseURL:  baseURL,
		Domain:   "example.com",
		MaxPages: maxPages,
		Pages:    f.records,
		Visited:  map[string]bool{},
		Failed:   map[string]string{"http://example.com/broken": "HTTP error: 404 Not Found"},
	}, nil
}

// Test helper: a generator recording its inputs
type fakeGenerator struct {
	mu           sync.Mutex
	instructions string
	contextBlock string
	question     string
	reply        string
	err          error
}

func (g *fakeGenerator) Generate(ctx context.Context, instructions, contextBlock, question string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.instructions = instructions
	g.contextBlock = contextBlock
	g.question = question
	return g.reply, g.err
}

type fakeSettings struct{ settings config.Settings }

func (f fakeSettings) GetSettings() (*config.Settings, error) {
	s := f.settings
	return &s, nil
}

func sampleRecords() []pages.Record {
	return []pages.Record{
		{
			URL:   "http://example.com/",
			Title: "Acme Bakery",
			Text:  "Fresh bread every morning. Our opening hours are 7am to 3pm.",
			FAQs:  []pages.FAQ{{Question: "Do you deliver?", Answer: "Yes, within 5 miles."}},
		},
		{
			URL:      "http://example.com/shop",
			Title:    "Shop",
			Products: []pages.Product{{Name: "Sourdough", Price: "$6"}},
			Contact:  pages.Contact{Email: "hello@acme.com"},
		},
	}
}

func createTestStore(t *testing.T) *sessions.Store {
	store, err := sessions.NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// TestAsk_NoData verifies questions before any scrape are rejected
func TestAsk_NoData(t *testing.T) {
	svc := NewService(&fakeCrawler{}, WithGenerator(&fakeGenerator{}))

	_, err := svc.Ask(context.Background(), "What are your hours?")

	assert.ErrorIs(t, err, ErrNoData)
	assert.False(t, svc.Loaded())
}

// TestAsk_EmptyQuestion verifies blank questions are rejected
func TestAsk_EmptyQuestion(t *testing.T) {
	svc := NewService(&fakeCrawler{})

	_, err := svc.Ask(context.Background(), "   ")

	assert.ErrorIs(t, err, ErrEmptyQuestion)
}

// TestScrapeThenAsk verifies the whole pipeline from crawl to prompt
func TestScrapeThenAsk(t *testing.T) {
	gen := &fakeGenerator{reply: "We are open 7am to 3pm."}
	svc := NewService(&fakeCrawler{records: sampleRecords()}, WithGenerator(gen))

	result, err := svc.Scrape(context.Background(), "http://example.com/", 5)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Summary.TotalPages)
	assert.Equal(t, 1, result.Summary.TotalFAQs)
	assert.Equal(t, 1, result.Summary.TotalProducts)
	assert.True(t, result.Summary.HasContactInfo)
	assert.Equal(t, 6, result.ChunkCount)
	assert.Len(t, result.FailedPages, 1)
	assert.Nil(t, result.SessionID)

	reply, err := svc.Ask(context.Background(), "What are your opening hours?")
	require.NoError(t, err)

	assert.Equal(t, "We are open 7am to 3pm.", reply.Answer)
	assert.Equal(t, answer.Persona, gen.instructions)
	assert.Equal(t, "What are your opening hours?", gen.question)
	assert.Equal(t, "Fresh bread every morning. Our opening hours are 7am to 3pm.", gen.contextBlock)
	require.Len(t, reply.Sources, 1)
	assert.Equal(t, 1, reply.Sources[0].Index)
}

// TestAsk_NoRelevantChunks verifies the generator still runs with an empty
// context
func TestAsk_NoRelevantChunks(t *testing.T) {
	gen := &fakeGenerator{reply: "I don't have that information available right now."}
	svc := NewService(&fakeCrawler{records: sampleRecords()}, WithGenerator(gen))
	_, err := svc.Scrape(context.Background(), "http://example.com/", 5)
	require.NoError(t, err)

	reply, err := svc.Ask(context.Background(), "zebra")

	require.NoError(t, err)
	assert.Empty(t, reply.Sources)
	assert.Equal(t, "", gen.contextBlock)
}

// TestAsk_GenerationError verifies generator failures are wrapped
func TestAsk_GenerationError(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("rate limited")}
	svc := NewService(&fakeCrawler{records: sampleRecords()}, WithGenerator(gen))
	_, err := svc.Scrape(context.Background(), "http://example.com/", 5)
	require.NoError(t, err)

	_, err = svc.Ask(context.Background(), "hours")

	assert.ErrorIs(t, err, ErrGeneration)
	assert.Contains(t, err.Error(), "rate limited")
}

// TestAsk_NoGenerator verifies a missing generator is reported
func TestAsk_NoGenerator(t *testing.T) {
	svc := NewService(&fakeCrawler{records: sampleRecords()})
	_, err := svc.Scrape(context.Background(), "http://example.com/", 5)
	require.NoError(t, err)

	_, err = svc.Ask(context.Background(), "hours")

	assert.ErrorIs(t, err, ErrNoGenerator)
}

// TestAsk_TopKFromSettings verifies runtime settings cap the context
func TestAsk_TopKFromSettings(t *testing.T) {
	gen := &fakeGenerator{}
	svc := NewService(&fakeCrawler{records: sampleRecords()},
		WithGenerator(gen),
		WithSettings(fakeSettings{config.Settings{DefaultMaxPages: 3, TopK: 1}}))
	_, err := svc.Scrape(context.Background(), "http://example.com/", 0)
	require.NoError(t, err)

	reply, err := svc.Ask(context.Background(), "acme bakery shop sourdough hours")

	require.NoError(t, err)
	assert.Len(t, reply.Sources, 1)
}

// TestScrape_DefaultMaxPages verifies the settings budget is used when none
// is given
func TestScrape_DefaultMaxPages(t *testing.T) {
	fc := &fakeCrawler{}
	svc := NewService(fc, WithSettings(fakeSettings{config.Settings{DefaultMaxPages: 7, TopK: 5}}))

	_, err := svc.Scrape(context.Background(), "http://example.com/", 0)
	require.NoError(t, err)
	assert.Equal(t, 7, fc.gotPages)

	_, err = svc.Scrape(context.Background(), "http://example.com/", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, fc.gotPages)
}

// TestScrape_CrawlError verifies an unusable URL leaves the old data in
// place
func TestScrape_CrawlError(t *testing.T) {
	fc := &fakeCrawler{records: sampleRecords()}
	svc := NewService(fc)
	_, err := svc.Scrape(context.Background(), "http://example.com/", 5)
	require.NoError(t, err)

	fc.err = errors.New("invalid base URL")
	_, err = svc.Scrape(context.Background(), "ftp://nope", 5)
	require.Error(t, err)

	summary, err := svc.Summary()
	require.NoError(t, err)
	assert.Equal(t, "http://example.com/", summary.WebsiteURL)
}

// TestScrape_CancelledKeepsPreviousData verifies a crawl cut short by its
// context neither replaces the index nor stores a session
func TestScrape_CancelledKeepsPreviousData(t *testing.T) {
	store := createTestStore(t)
	fc := &fakeCrawler{records: sampleRecords()}
	svc := NewService(fc, WithStore(store), WithGenerator(&fakeGenerator{reply: "7am."}))

	first, err := svc.Scrape(context.Background(), "http://example.com/", 5)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	fc.records = sampleRecords()[:1]
	result, err := svc.Scrape(ctx, "http://example.com/", 5)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, result)

	summary, err := svc.Summary()
	require.NoError(t, err)
	assert.Equal(t, *first.SessionID, *summary.SessionID)
	assert.Equal(t, 2, summary.TotalPages)
	assert.Equal(t, 6, summary.ChunksLoaded)

	stored, err := store.ListSessions()
	require.NoError(t, err)
	assert.Len(t, stored, 1)

	_, err = svc.Ask(context.Background(), "What are your opening hours?")
	assert.NoError(t, err)
}

// TestScrape_InProgress verifies concurrent scrapes are refused
func TestScrape_InProgress(t *testing.T) {
	fc := &fakeCrawler{block: make(chan struct{}), started: make(chan struct{})}
	svc := NewService(fc)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Scrape(context.Background(), "http://example.com/", 5)
		done <- err
	}()

	select {
	case <-fc.started:
	case <-time.After(5 * time.Second):
		t.Fatal("first scrape did not start")
	}

	_, err := svc.Scrape(context.Background(), "http://example.com/", 5)
	assert.ErrorIs(t, err, ErrCrawlInProgress)

	close(fc.block)
	require.NoError(t, <-done)
}

// TestSummaryAndSuggestions verifies summary data and tailored suggestions
func TestSummaryAndSuggestions(t *testing.T) {
	svc := NewService(&fakeCrawler{records: sampleRecords()})

	_, err := svc.Summary()
	assert.ErrorIs(t, err, ErrNoData)
	_, err = svc.Suggestions()
	assert.ErrorIs(t, err, ErrNoData)

	_, err = svc.Scrape(context.Background(), "http://example.com/", 5)
	require.NoError(t, err)

	summary, err := svc.Summary()
	require.NoError(t, err)
	assert.Equal(t, SourceMemory, summary.DataSource)
	assert.Equal(t, 6, summary.ChunksLoaded)
	assert.Equal(t, 2, summary.TotalPages)

	suggestions, err := svc.Suggestions()
	require.NoError(t, err)
	assert.Contains(t, suggestions, "Can you answer some frequently asked questions?")
	assert.Contains(t, suggestions, "Can you tell me more about your products?")
}

// TestScrape_PersistsAndReloads verifies a stored session can be reloaded
// into a fresh service without crawling
func TestScrape_PersistsAndReloads(t *testing.T) {
	store := createTestStore(t)
	svc := NewService(&fakeCrawler{records: sampleRecords()}, WithStore(store))

	result, err := svc.Scrape(context.Background(), "http://example.com/", 5)
	require.NoError(t, err)
	require.NotNil(t, result.SessionID)

	summary, err := svc.Summary()
	require.NoError(t, err)
	assert.Equal(t, SourceDatabase, summary.DataSource)

	gen := &fakeGenerator{reply: "Yes."}
	fresh := NewService(&fakeCrawler{err: errors.New("must not crawl")}, WithStore(store), WithGenerator(gen))

	loaded, err := fresh.LoadLatest()
	require.NoError(t, err)
	assert.Equal(t, *result.SessionID, *loaded.SessionID)
	assert.Equal(t, 6, loaded.ChunksLoaded)
	assert.Equal(t, result.Summary, loaded.Summary)

	_, err = fresh.Ask(context.Background(), "Do you deliver?")
	require.NoError(t, err)
	assert.Equal(t, "FAQ Question: Do you deliver? Answer: Yes, within 5 miles.", gen.contextBlock)

	byID, err := fresh.LoadSession(*result.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "http://example.com/", byID.WebsiteURL)
}

// TestLoadLatest_Empty verifies an empty or missing store reports no data
func TestLoadLatest_Empty(t *testing.T) {
	_, err := NewService(&fakeCrawler{}).LoadLatest()
	assert.ErrorIs(t, err, ErrNoData)

	_, err = NewService(&fakeCrawler{}, WithStore(createTestStore(t))).LoadLatest()
	assert.ErrorIs(t, err, ErrNoData)
}
