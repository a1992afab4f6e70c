package index

import (
	"strings"
	"unicode"
)

// Common English stop words
var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "for": true, "from": true, "has": true, "he": true,
	"in": true, "is": true, "it": true, "its": true, "of": true, "on": true,
	"that": true, "the": true, "to": true, "was": true, "were": true, "will": true,
	"with": true, "this": true, "but": true, "they": true, "have": true,
	"had": true, "what": true, "when": true, "where": true, "who": true, "which": true,
	"why": true, "how": true, "all": true, "any": true, "both": true, "each": true,
	"few": true, "more": true, "most": true, "other": true, "some": true, "such": true,
	"no": true, "nor": true, "not": true, "only": true, "own": true, "same": true,
	"so": true, "than": true, "too": true, "very": true, "can": true, "did": true,
	"do": true, "does": true, "doing": true, "done": true, "i": true, "you": true,
	"your": true, "we": true, "our": true, "us": true, "me": true, "my": true,
	"or": true, "if": true, "then": true, "there": true, "their": true, "them": true,
}

// Tokenize lowercases text and splits it on anything that is not a letter or
// digit. Stop words and single-character tokens are dropped.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := make([]string, 0, len(fields))
	for _, field := range fields {
		if len([]rune(field)) < 2 || stopWords[field] {
			continue
		}
		tokens = append(tokens, field)
	}
	return tokens
}
