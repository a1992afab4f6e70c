package extract

// Selectors defines the CSS selector passes used to pull structured content
// out of a page. Each entry in a pass list is a full selector group and runs
// as its own pass.
type Selectors struct {
	Noise    string   `json:"noise" yaml:"noise"`
	Content  []string `json:"content" yaml:"content"`
	FAQ      []string `json:"faq" yaml:"faq"`
	Products []string `json:"products" yaml:"products"`
	Contact  []string `json:"contact" yaml:"contact"`
}

// Fixed sub-selectors used inside a matched FAQ or product block.
const (
	faqQuestionSelector  = "h3, h4, h5, strong"
	faqAnswerSelector    = "p, div"
	productNameSelector  = "h3, h4, h5, .product-name, .title"
	productDescSelector  = "p, .description, .desc"
	productPriceSelector = ".price, .cost, .amount"
)

// DefaultSelectors returns the selector passes tuned for typical business
// websites.
func DefaultSelectors() Selectors {
	return Selectors{
		Noise: "script, style, nav, footer, header",
		Content: []string{
			"main", "article", ".content", ".main-content",
			"#content", "#main", ".post-content", ".entry-content",
		},
		FAQ: []string{
			`h2:contains("FAQ"), h3:contains("FAQ"), .faq, .faqs`,
			`h2:contains("Frequently Asked"), h3:contains("Frequently Asked")`,
			".accordion, .faq-item, .faq-question",
		},
		Products: []string{
			".product", ".item", ".card", ".product-card",
			".product-item", ".product-box", ".service",
		},
		Contact: []string{
			".contact", ".contact-info", ".contact-details",
			"#contact", ".address", ".phone", ".email",
		},
	}
}

// Merge returns s with every empty field filled from the defaults.
func (s Selectors) Merge() Selectors {
	def := DefaultSelectors()
	if s.Noise == "" {
		s.Noise = def.Noise
	}
	if len(s.Content) == 0 {
		s.Content = def.Content
	}
	if len(s.FAQ) == 0 {
		s.FAQ = def.FAQ
	}
	if len(s.Products) == 0 {
		s.Products = def.Products
	}
	if len(s.Contact) == 0 {
		s.Contact = def.Contact
	}
	return s
}
