package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/pevans/sitechat/pages"
)

var (
	emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	phonePattern = regexp.MustCompile(`(\+\d{1,3}[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}`)
)

// minAddressLength is the length a block's leftover text must exceed before
// it is taken as an address.
const minAddressLength = 20

// Contact scans contact-like containers for an email, phone and address. The
// first match wins for each field.
func (e *Extractor) Contact(doc *goquery.Document) pages.Contact {
	var contact pages.Contact

	for _, m := range e.contact {
		doc.FindMatcher(m).Each(func(_ int, block *goquery.Selection) {
			ParseContact(&contact, block.Text())
		})
	}

	return contact
}

// ParseContact fills the empty fields of contact from a block of text. Email
// and phone matches are removed from the text before it is considered as an
// address.
func ParseContact(contact *pages.Contact, text string) {
	text = normalize(text)
	if text == "" {
		return
	}

	email := emailPattern.FindString(text)
	if email != "" && contact.Email == "" {
		contact.Email = email
	}

	phone := phonePattern.FindString(text)
	if phone != "" && contact.Phone == "" {
		contact.Phone = phone
	}

	if contact.Address != "" {
		return
	}

	rest := text
	if email != "" {
		rest = strings.ReplaceAll(rest, email, " ")
	}
	if phone != "" {
		rest = strings.ReplaceAll(rest, phone, " ")
	}
	rest = normalize(rest)

	if utf8.RuneCountInString(rest) > minAddressLength {
		contact.Address = rest
	}
}
