// Package answer turns ranked chunks into the context block and prompt handed
// to a text generator.
package answer

import (
	"context"
	"strings"

	"github.com/pevans/sitechat/index"
)

// DefaultTopK is the number of chunks used as context for one question.
const DefaultTopK = 5

// Persona is the fixed instruction set that makes the generator answer as a
// representative of the business.
const Persona = `You are a customer service representative for this business. Respond as if you work directly for the company and have access to company information.

Answer customer questions naturally using the knowledge base below, speaking as "we" and "our company." Never mention that you got this information from a website or external source. Present it as your direct knowledge of the business.

Guidelines:
1. Speak as a company employee ("We offer...", "Our hours are...", "Our products include...")
2. Be helpful, professional, and friendly
3. Provide accurate information from your knowledge base
4. If you don't have specific information, say "I don't have that information available right now" and offer to help them contact the appropriate department
5. Keep responses concise but informative
6. When sharing contact info, present it as "You can reach us at..." or "Our contact information is..."
7. When discussing pricing, present it as "Our prices are..." or "We charge..."

Act as a knowledgeable, helpful employee who genuinely represents this business.`

// Generator produces answer text from instructions, a context block and the
// user's question.
type Generator interface {
	Generate(ctx context.Context, instructions, contextBlock, question string) (string, error)
}

// Assemble joins the chunk text of each result, in result order, separated by
// a blank line. Results that point outside chunks are skipped. No results
// yields an empty context block.
func Assemble(chunks []string, results []index.Result) string {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		if r.Index < 0 || r.Index >= len(chunks) {
			continue
		}
		parts = append(parts, chunks[r.Index])
	}
	return strings.Join(parts, "\n\n")
}

// BuildPrompt concatenates persona, context block and question into the single
// prompt sent to the generator.
func BuildPrompt(persona, contextBlock, question string) string {
	return persona + "\n\n" + contextBlock + "\n\n" + "User question: " + question
}
