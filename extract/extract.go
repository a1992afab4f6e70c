// Package extract pulls structured business knowledge and same-domain links
// out of parsed HTML pages. Every extraction is best-effort: a selector that
// matches nothing simply leaves its field empty.
package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/pevans/sitechat/pages"
)

// Extractor runs compiled selector passes over a document.
type Extractor struct {
	noise    goquery.Matcher
	content  []goquery.Matcher
	faq      []goquery.Matcher
	products []goquery.Matcher
	contact  []goquery.Matcher
}

var defaultExtractor = mustNew(DefaultSelectors())

// New compiles the given selectors into an Extractor. Empty fields fall back
// to DefaultSelectors.
func New(sel Selectors) (*Extractor, error) {
	sel = sel.Merge()

	noise, err := compile(sel.Noise)
	if err != nil {
		return nil, err
	}

	e := &Extractor{noise: noise}
	if e.content, err = compileAll(sel.Content); err != nil {
		return nil, err
	}
	if e.faq, err = compileAll(sel.FAQ); err != nil {
		return nil, err
	}
	if e.products, err = compileAll(sel.Products); err != nil {
		return nil, err
	}
	if e.contact, err = compileAll(sel.Contact); err != nil {
		return nil, err
	}

	return e, nil
}

func mustNew(sel Selectors) *Extractor {
	e, err := New(sel)
	if err != nil {
		panic(err)
	}
	return e
}

func compile(selector string) (goquery.Matcher, error) {
	m, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid selector %q: %w", selector, err)
	}
	return m, nil
}

func compileAll(selectors []string) ([]goquery.Matcher, error) {
	matchers := make([]goquery.Matcher, 0, len(selectors))
	for _, selector := range selectors {
		m, err := compile(selector)
		if err != nil {
			return nil, err
		}
		matchers = append(matchers, m)
	}
	return matchers, nil
}

// Page extracts a record from doc with the default selectors.
func Page(doc *goquery.Document, pageURL string) pages.Record {
	return defaultExtractor.Page(doc, pageURL)
}

// Page extracts a record from doc. The document itself is not modified, so
// link discovery can run on it afterwards.
func (e *Extractor) Page(doc *goquery.Document, pageURL string) pages.Record {
	return pages.Record{
		URL:      pageURL,
		Title:    Title(doc),
		Text:     e.Text(doc),
		FAQs:     e.FAQs(doc),
		Products: e.Products(doc),
		Contact:  e.Contact(doc),
	}
}

// Title returns the text of the first <title> element, or "" if there is
// none.
func Title(doc *goquery.Document) string {
	return normalize(doc.Find("title").First().Text())
}

// Text returns the page's narrative text. Noise elements are stripped from a
// copy of the body, then the first content selector that matches wins. The
// whole body is used when no content selector matches.
func (e *Extractor) Text(doc *goquery.Document) string {
	body := doc.Find("body").First().Clone()
	body.FindMatcher(e.noise).Remove()

	var mainContent string
	for _, m := range e.content {
		matches := body.FindMatcher(m)
		if matches.Length() == 0 {
			continue
		}

		parts := make([]string, 0, matches.Length())
		matches.Each(func(_ int, s *goquery.Selection) {
			parts = append(parts, strings.TrimSpace(s.Text()))
		})
		mainContent = strings.Join(parts, " ")
		break
	}

	if strings.TrimSpace(mainContent) == "" {
		mainContent = body.Text()
	}

	return normalize(mainContent)
}

// FAQs returns question/answer pairs. Passes may overlap, and duplicate pairs
// are kept.
func (e *Extractor) FAQs(doc *goquery.Document) []pages.FAQ {
	faqs := []pages.FAQ{}

	for _, m := range e.faq {
		doc.FindMatcher(m).Each(func(_ int, block *goquery.Selection) {
			question := block.Find(faqQuestionSelector).First()
			if question.Length() == 0 {
				return
			}

			answer := question.NextFiltered(faqAnswerSelector)
			if answer.Length() == 0 {
				answer = block.NextFiltered(faqAnswerSelector)
			}

			q := normalize(question.Text())
			a := normalize(answer.Text())
			if q == "" || a == "" {
				return
			}

			faqs = append(faqs, pages.FAQ{Question: q, Answer: a})
		})
	}

	return faqs
}

// Products returns product or service cards that carry at least one of name,
// description or price.
func (e *Extractor) Products(doc *goquery.Document) []pages.Product {
	products := []pages.Product{}

	for _, m := range e.products {
		doc.FindMatcher(m).Each(func(_ int, block *goquery.Selection) {
			product := pages.Product{
				Name:        normalize(block.Find(productNameSelector).First().Text()),
				Description: normalize(block.Find(productDescSelector).First().Text()),
				Price:       normalize(block.Find(productPriceSelector).First().Text()),
			}
			if product == (pages.Product{}) {
				return
			}
			products = append(products, product)
		})
	}

	return products
}

// normalize collapses runs of whitespace to single spaces and trims.
func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
