package answer

import "github.com/pevans/sitechat/pages"

var baseSuggestions = []string{
	"What are your business hours?",
	"How can I contact you?",
	"What products/services do you offer?",
	"Do you have any FAQs?",
	"What are your prices?",
	"Where are you located?",
	"Do you offer customer support?",
}

// Suggestions returns questions a visitor might ask, with extras when the
// crawl found FAQs or products.
func Suggestions(summary pages.Summary) []string {
	suggestions := make([]string, len(baseSuggestions), len(baseSuggestions)+2)
	copy(suggestions, baseSuggestions)

	if summary.TotalFAQs > 0 {
		suggestions = append(suggestions, "Can you answer some frequently asked questions?")
	}
	if summary.TotalProducts > 0 {
		suggestions = append(suggestions, "Can you tell me more about your products?")
	}

	return suggestions
}
