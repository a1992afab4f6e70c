package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/pevans/sitechat/chatbot"
	"github.com/pevans/sitechat/pages"
	"github.com/pevans/sitechat/sessions"
)

// fatalf prints an error and exits with status 1.
func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

// truncate shortens s to n bytes, marking the cut with "...".
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fatalf("failed to marshal JSON: %v", err)
	}
	fmt.Println(string(data))
}

func printScrapeResult(result *chatbot.ScrapeResult) {
	fmt.Printf("✓ Scraped %s\n", result.WebsiteURL)
	fmt.Printf("  Pages:     %d\n", result.Summary.TotalPages)
	fmt.Printf("  FAQs:      %d\n", result.Summary.TotalFAQs)
	fmt.Printf("  Products:  %d\n", result.Summary.TotalProducts)
	fmt.Printf("  Contact:   %s\n", yesNo(result.Summary.HasContactInfo))
	fmt.Printf("  Chunks:    %d\n", result.ChunkCount)
	if result.SessionID != nil {
		fmt.Printf("  Session:   %s\n", result.SessionID)
	}

	if len(result.FailedPages) == 0 {
		return
	}

	failed := make([]string, 0, len(result.FailedPages))
	for u := range result.FailedPages {
		failed = append(failed, u)
	}
	sort.Strings(failed)

	fmt.Println()
	fmt.Printf("Failed pages (%d):\n", len(failed))
	for _, u := range failed {
		fmt.Printf("  %s: %s\n", u, result.FailedPages[u])
	}
}

func printAnswer(reply *chatbot.Answer, showSources bool) {
	fmt.Println(reply.Answer)
	if !showSources || len(reply.Sources) == 0 {
		return
	}

	fmt.Println()
	fmt.Println("Sources:")
	for _, src := range reply.Sources {
		fmt.Printf("  [%d] %.3f  %s\n", src.Index, src.Score, truncate(src.Text, 100))
	}
}

func printSummary(summary *chatbot.WebsiteSummary) {
	fmt.Printf("Website:      %s\n", summary.WebsiteURL)
	fmt.Printf("Scraped at:   %s\n", summary.ScrapedAt.Local().Format("2006-01-02 15:04"))
	fmt.Printf("Pages:        %d\n", summary.Summary.TotalPages)
	fmt.Printf("FAQs:         %d\n", summary.Summary.TotalFAQs)
	fmt.Printf("Products:     %d\n", summary.Summary.TotalProducts)
	fmt.Printf("Contact info: %s\n", yesNo(summary.Summary.HasContactInfo))
	fmt.Printf("Chunks:       %d\n", summary.ChunksLoaded)
	fmt.Printf("Data source:  %s\n", summary.DataSource)
	if summary.SessionID != nil {
		fmt.Printf("Session:      %s\n", summary.SessionID)
	}
}

func printSessionsTable(list []sessions.Session) {
	if len(list) == 0 {
		fmt.Println("No sessions stored.")
		return
	}

	fmt.Printf("%-36s %-16s %-6s %-7s %s\n", "ID", "SCRAPED", "PAGES", "CHUNKS", "WEBSITE")
	fmt.Println("----------------------------------------------------------------------------------------------------")

	for _, s := range list {
		fmt.Printf("%-36s %-16s %-6d %-7d %s\n",
			s.ID.String(),
			s.ScrapedAt.Local().Format("2006-01-02 15:04"),
			s.Summary.TotalPages,
			s.ChunkCount,
			truncate(s.WebsiteURL, 50),
		)
	}
}

func printSessionDetail(session *sessions.Session, records []pages.Record) {
	fmt.Printf("Session:    %s\n", session.ID)
	fmt.Printf("Website:    %s\n", session.WebsiteURL)
	fmt.Printf("Scraped at: %s\n", session.ScrapedAt.Local().Format("2006-01-02 15:04"))
	fmt.Printf("Chunks:     %d\n", session.ChunkCount)
	fmt.Println()

	fmt.Printf("Pages (%d):\n", len(records))
	for _, r := range records {
		title := r.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Printf("  %s\n", truncate(title, 70))
		fmt.Printf("     %s | %d FAQs | %d products\n", r.URL, len(r.FAQs), len(r.Products))
		if !r.Contact.IsEmpty() {
			fmt.Printf("     contact: %s %s\n", r.Contact.Email, r.Contact.Phone)
		}
	}
}
