// Package chunker turns crawled page records into the ordered list of text
// chunks that forms the retrieval corpus.
package chunker

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/pevans/sitechat/pages"
)

// DefaultMaxLength is the default chunk bound in characters.
const DefaultMaxLength = 1000

const missing = "N/A"

// Chunk converts records, in crawl order, into retrievable chunks. The output
// is deterministic, and a chunk's position in the result is its index in the
// corpus. A maxLen of zero or less uses DefaultMaxLength.
func Chunk(records []pages.Record, maxLen int) []string {
	if maxLen <= 0 {
		maxLen = DefaultMaxLength
	}

	chunks := []string{}
	for _, record := range records {
		if record.Title != "" {
			chunks = append(chunks, "Page Title: "+record.Title)
		}

		if record.Text != "" {
			chunks = append(chunks, SplitText(record.Text, maxLen)...)
		}

		for _, faq := range record.FAQs {
			chunks = append(chunks, fmt.Sprintf("FAQ Question: %s Answer: %s", faq.Question, faq.Answer))
		}

		for _, product := range record.Products {
			chunks = append(chunks, fmt.Sprintf("Product: %s Description: %s Price: %s",
				orMissing(product.Name), orMissing(product.Description), orMissing(product.Price)))
		}

		if !record.Contact.IsEmpty() {
			c := record.Contact
			chunks = append(chunks, fmt.Sprintf("Contact Information: Email: %s Phone: %s Address: %s",
				orMissing(c.Email), orMissing(c.Phone), orMissing(c.Address)))
		}
	}

	return chunks
}

// SplitText greedily packs the words of text into chunks of at most maxLen
// characters, counting the single spaces between words. A word longer than
// maxLen is emitted as a chunk of its own.
func SplitText(text string, maxLen int) []string {
	var chunks []string
	var current strings.Builder
	currentLen := 0

	for _, word := range strings.Fields(text) {
		wordLen := utf8.RuneCountInString(word)

		if currentLen == 0 {
			current.WriteString(word)
			currentLen = wordLen
			continue
		}

		if currentLen+1+wordLen > maxLen {
			chunks = append(chunks, current.String())
			current.Reset()
			current.WriteString(word)
			currentLen = wordLen
			continue
		}

		current.WriteByte(' ')
		current.WriteString(word)
		currentLen += 1 + wordLen
	}

	if currentLen > 0 {
		chunks = append(chunks, current.String())
	}

	return chunks
}

func orMissing(s string) string {
	if s == "" {
		return missing
	}
	return s
}
