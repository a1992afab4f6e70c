package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Links returns every anchor href in doc resolved against baseURL, keeping
// only http(s) URLs on the same hostname as baseURL. Fragments are dropped, a
// bare host gets the root path, and the result is deduplicated in document
// order. Hrefs that do not parse are
// skipped.
func Links(doc *goquery.Document, baseURL string) []string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}
	domain := base.Hostname()

	seen := make(map[string]struct{})
	links := []string{}

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" {
			return
		}

		ref, err := url.Parse(href)
		if err != nil {
			return
		}

		target := base.ResolveReference(ref)
		if target.Scheme != "http" && target.Scheme != "https" {
			return
		}
		if !strings.EqualFold(target.Hostname(), domain) {
			return
		}
		target.Fragment = ""
		target.RawFragment = ""
		if target.Path == "" {
			target.Path = "/"
		}

		key := target.String()
		if _, exists := seen[key]; exists {
			return
		}
		seen[key] = struct{}{}
		links = append(links, key)
	})

	return links
}
