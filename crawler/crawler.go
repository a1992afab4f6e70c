// Package crawler walks a website breadth-first from a base URL, extracting
// a page record from every same-domain page it reaches.
package crawler

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"github.com/pevans/sitechat/extract"
	"github.com/pevans/sitechat/logging"
	"github.com/pevans/sitechat/pages"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultMaxPages is the page budget used when none is given.
	DefaultMaxPages = 10

	// DefaultDelay is the pause between consecutive fetches.
	DefaultDelay = time.Second
)

// State is the frontier and output of one crawl.
type State struct {
	BaseURL  string
	Domain   string
	MaxPages int

	// Visited holds the final URL, after redirects, of every successfully
	// fetched page.
	Visited map[string]bool

	// Queue holds discovered URLs not yet fetched, oldest first.
	Queue []string

	// Pages holds one record per visited URL in fetch order.
	Pages []pages.Record

	// Failed maps URLs whose fetch failed to the error text.
	Failed map[string]string

	queued     map[string]bool
	redirected map[string]bool
}

func newState(base *url.URL, maxPages int) *State {
	baseURL := base.String()
	return &State{
		BaseURL:  baseURL,
		Domain:   base.Hostname(),
		MaxPages: maxPages,
		Visited:  make(map[string]bool),
		Queue:    []string{baseURL},
		Pages:    []pages.Record{},
		Failed:   make(map[string]string),
		queued:   map[string]bool{baseURL: true},

		redirected: make(map[string]bool),
	}
}

// enqueue adds u unless it is off-domain, already visited, already queued,
// previously failed or previously redirected. It returns true if u was added.
func (s *State) enqueue(u string) bool {
	parsed, err := url.Parse(u)
	if err != nil || !strings.EqualFold(parsed.Hostname(), s.Domain) {
		return false
	}
	if s.Visited[u] || s.queued[u] || s.redirected[u] {
		return false
	}
	if _, failed := s.Failed[u]; failed {
		return false
	}
	s.Queue = append(s.Queue, u)
	s.queued[u] = true
	return true
}

func (s *State) pop() string {
	u := s.Queue[0]
	s.Queue = s.Queue[1:]
	delete(s.queued, u)
	return u
}

func (s *State) more() bool {
	return len(s.Queue) > 0 && len(s.Visited) < s.MaxPages
}

// Crawler runs breadth-first crawls. One Crawler runs one crawl at a time.
type Crawler struct {
	fetcher       Fetcher
	extractor     *extract.Extractor
	logger        *logrus.Logger
	delay         time.Duration
	feedDiscovery bool
	feeds         *gofeed.Parser
}

type Option func(*Crawler)

// WithFetcher replaces the HTTP fetcher.
func WithFetcher(f Fetcher) Option {
	return func(c *Crawler) { c.fetcher = f }
}

// WithExtractor replaces the default content extractor.
func WithExtractor(e *extract.Extractor) Option {
	return func(c *Crawler) { c.extractor = e }
}

// WithDelay sets the pause between fetches.
func WithDelay(d time.Duration) Option {
	return func(c *Crawler) { c.delay = d }
}

func WithLogger(logger *logrus.Logger) Option {
	return func(c *Crawler) { c.logger = logger }
}

// WithFeedDiscovery enables seeding the frontier from RSS or Atom feeds
// advertised by the base page.
func WithFeedDiscovery(enabled bool) Option {
	return func(c *Crawler) { c.feedDiscovery = enabled }
}

// New creates a Crawler with browser-like HTTP fetching, the default
// extractor and a one second delay.
func New(opts ...Option) *Crawler {
	c := &Crawler{
		delay: DefaultDelay,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.fetcher == nil {
		c.fetcher = NewHTTPFetcher(DefaultTimeout)
	}
	if c.extractor == nil {
		c.extractor, _ = extract.New(extract.Selectors{})
	}
	if c.logger == nil {
		c.logger = logging.Discard()
	}

	c.feeds = gofeed.NewParser()
	if hf, ok := c.fetcher.(*HTTPFetcher); ok {
		c.feeds.Client = hf.Client()
	} else {
		c.feeds.Client = newHTTPClient(DefaultTimeout)
	}
	c.feeds.UserAgent = browserUserAgent

	return c
}

// Crawl visits at most maxPages pages reachable from baseURL on its domain,
// in breadth-first order. A maxPages of zero or less uses DefaultMaxPages.
//
// Fetch failures are logged and recorded in State.Failed but never end the
// crawl. Cancelling ctx stops the crawl early and returns the pages collected
// so far. The only error is an unusable base URL.
func (c *Crawler) Crawl(ctx context.Context, baseURL string, maxPages int) (*State, error) {
	base, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if (base.Scheme != "http" && base.Scheme != "https") || base.Hostname() == "" {
		return nil, fmt.Errorf("invalid base URL %q: must be an absolute http or https URL", baseURL)
	}
	base.Fragment = ""
	base.RawFragment = ""
	if base.Path == "" {
		base.Path = "/"
	}

	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}

	state := newState(base, maxPages)
	log := c.logger.WithField("base_url", state.BaseURL)
	log.WithField("max_pages", maxPages).Info("Starting crawl")

	for state.more() {
		if ctx.Err() != nil {
			log.Info("Crawl cancelled")
			break
		}

		pageURL := state.pop()
		if state.Visited[pageURL] {
			continue
		}

		c.visit(ctx, state, pageURL, log)

		if !state.more() {
			break
		}
		if !c.wait(ctx) {
			log.Info("Crawl cancelled")
			break
		}
	}

	log.WithFields(logrus.Fields{
		"pages":  len(state.Pages),
		"failed": len(state.Failed),
	}).Info("Crawl finished")

	return state, nil
}

// visit fetches and extracts one page and enqueues its links.
func (c *Crawler) visit(ctx context.Context, state *State, pageURL string, log *logrus.Entry) {
	log = log.WithField("url", pageURL)
	log.Debug("Fetching page")

	start := time.Now()
	doc, err := c.fetcher.Fetch(ctx, pageURL)
	fetchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		crawlPagesTotal.WithLabelValues("failed").Inc()
		log.WithError(err).Warn("Failed to fetch page")
		state.Failed[pageURL] = err.Error()
		return
	}
	// Redirects are followed by the fetcher; the page lives at its final URL
	finalURL := pageURL
	if doc.Url != nil {
		finalURL = doc.Url.String()
	}
	if finalURL != pageURL {
		state.redirected[pageURL] = true
		u, err := url.Parse(finalURL)
		if err == nil && pageURL == state.BaseURL {
			// The site lives wherever its front page lands
			state.Domain = u.Hostname()
		}
		if err != nil || !strings.EqualFold(u.Hostname(), state.Domain) {
			crawlPagesTotal.WithLabelValues("failed").Inc()
			log.WithField("final_url", finalURL).Warn("Page redirected off-site")
			state.Failed[pageURL] = "redirected off-site to " + finalURL
			return
		}
		if state.Visited[finalURL] {
			log.WithField("final_url", finalURL).Debug("Page redirected to an already visited URL")
			return
		}
	}
	crawlPagesTotal.WithLabelValues("fetched").Inc()

	record := c.extractor.Page(doc, finalURL)
	state.Pages = append(state.Pages, record)
	state.Visited[finalURL] = true

	added := 0
	for _, link := range extract.Links(doc, finalURL) {
		if state.enqueue(link) {
			added++
		}
	}

	if c.feedDiscovery && pageURL == state.BaseURL {
		for _, link := range c.feedLinks(ctx, doc, finalURL, log) {
			if state.enqueue(link) {
				added++
			}
		}
	}

	log.WithFields(logrus.Fields{
		"title":  record.Title,
		"queued": added,
	}).Debug("Extracted page")
}

// feedLinks returns the item links of every RSS or Atom feed the page
// advertises. Feeds that fail to load are logged and skipped.
func (c *Crawler) feedLinks(ctx context.Context, doc *goquery.Document, pageURL string, log *logrus.Entry) []string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}

	var links []string
	for _, feedURL := range feedURLs(doc, base) {
		feed, err := c.feeds.ParseURLWithContext(feedURL, ctx)
		if err != nil {
			log.WithError(err).WithField("feed", feedURL).Warn("Failed to parse feed")
			continue
		}
		for _, item := range feed.Items {
			if item == nil || item.Link == "" {
				continue
			}
			ref, err := url.Parse(strings.TrimSpace(item.Link))
			if err != nil {
				continue
			}
			target := base.ResolveReference(ref)
			target.Fragment = ""
			target.RawFragment = ""
			links = append(links, target.String())
		}
	}
	return links
}

var feedTypes = map[string]bool{
	"application/rss+xml":  true,
	"application/atom+xml": true,
}

// feedURLs returns the absolute URLs of alternate RSS/Atom links in doc.
func feedURLs(doc *goquery.Document, base *url.URL) []string {
	var urls []string
	doc.Find(`link[rel="alternate"][href]`).Each(func(_ int, s *goquery.Selection) {
		typ, _ := s.Attr("type")
		if !feedTypes[strings.ToLower(strings.TrimSpace(typ))] {
			return
		}
		href, _ := s.Attr("href")
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		urls = append(urls, base.ResolveReference(ref).String())
	})
	return urls
}

// wait pauses for the politeness delay. It returns false if ctx was
// cancelled first.
func (c *Crawler) wait(ctx context.Context) bool {
	if c.delay <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(c.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
