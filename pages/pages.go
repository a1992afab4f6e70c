package pages

// FAQ is a question/answer pair lifted from a page.
type FAQ struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Product is a product or service card lifted from a page. Any field may be
// empty, but a Product is only recorded when at least one field was found.
type Product struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Price       string `json:"price,omitempty"`
}

// Contact holds the first email, phone and address found on a page.
type Contact struct {
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

// IsEmpty returns true if no contact field was found.
func (c Contact) IsEmpty() bool {
	return c.Email == "" && c.Phone == "" && c.Address == ""
}

// Record is everything extracted from one successfully fetched page. A Record
// is created once per page and not modified afterwards.
type Record struct {
	URL      string    `json:"url"`
	Title    string    `json:"title"`
	Text     string    `json:"text"`
	FAQs     []FAQ     `json:"faqs"`
	Products []Product `json:"products"`
	Contact  Contact   `json:"contact"`
}

// Summary holds aggregate counts over the records of one crawl.
type Summary struct {
	TotalPages     int  `json:"total_pages"`
	TotalFAQs      int  `json:"total_faqs"`
	TotalProducts  int  `json:"total_products"`
	HasContactInfo bool `json:"contact_info_found"`
}

// Summarize derives a Summary from records. It is always recomputed from the
// records and never stored on its own.
func Summarize(records []Record) Summary {
	summary := Summary{TotalPages: len(records)}
	for _, record := range records {
		summary.TotalFAQs += len(record.FAQs)
		summary.TotalProducts += len(record.Products)
		if !record.Contact.IsEmpty() {
			summary.HasContactInfo = true
		}
	}
	return summary
}
