package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/pevans/sitechat/app"
	"github.com/pevans/sitechat/chatbot"
)

func handleScrape(a *app.App, args []string) {
	fs := flag.NewFlagSet("scrape", flag.ExitOnError)
	maxPages := fs.Int("max-pages", 0, "Maximum pages to crawl (default: runtime setting)")
	format := fs.String("format", "table", "Output format: table or json")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Error: website URL is required\n")
		fmt.Fprintf(os.Stderr, "Usage: sitechat scrape [--max-pages N] <url>\n")
		os.Exit(1)
	}
	if *maxPages < 0 || *maxPages > 100 {
		fatalf("--max-pages must be between 1 and 100")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := a.Service.Scrape(ctx, fs.Arg(0), *maxPages)
	if err != nil {
		fatalf("%v", err)
	}

	switch *format {
	case "json":
		printJSON(result)
	default:
		printScrapeResult(result)
	}
}

func handleAsk(a *app.App, args []string) {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	sessionID := fs.String("session", "", "Session ID to answer from (default: latest)")
	showSources := fs.Bool("sources", false, "Print the chunks used as context")
	format := fs.String("format", "text", "Output format: text or json")
	fs.Parse(args)

	loadForAsk(a, *sessionID)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if fs.NArg() > 0 {
		reply, err := a.Service.Ask(ctx, strings.Join(fs.Args(), " "))
		if err != nil {
			fatalf("%v", err)
		}
		if *format == "json" {
			printJSON(reply)
			return
		}
		printAnswer(reply, *showSources)
		return
	}

	// No question on the command line: read one per line until EOF
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("> ")
	for scanner.Scan() {
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			fmt.Print("> ")
			continue
		}
		if question == "exit" || question == "quit" {
			return
		}

		reply, err := a.Service.Ask(ctx, question)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		} else {
			printAnswer(reply, *showSources)
		}
		fmt.Print("> ")
	}
}

// loadForAsk loads the requested session, or the latest one.
func loadForAsk(a *app.App, sessionID string) {
	var err error
	if sessionID != "" {
		id, perr := uuid.Parse(sessionID)
		if perr != nil {
			fatalf("invalid session ID: %v", perr)
		}
		_, err = a.Service.LoadSession(id)
	} else {
		_, err = a.Service.LoadLatest()
	}

	if errors.Is(err, chatbot.ErrNoData) {
		fatalf("no website data stored. Run 'sitechat scrape <url>' first")
	}
	if err != nil {
		fatalf("%v", err)
	}
}

func handleSummary(a *app.App, args []string) {
	fs := flag.NewFlagSet("summary", flag.ExitOnError)
	sessionID := fs.String("session", "", "Session ID (default: latest)")
	format := fs.String("format", "table", "Output format: table or json")
	fs.Parse(args)

	loadForAsk(a, *sessionID)

	summary, err := a.Service.Summary()
	if err != nil {
		fatalf("%v", err)
	}

	if *format == "json" {
		printJSON(summary)
		return
	}
	printSummary(summary)
}

func handleSuggestions(a *app.App, args []string) {
	fs := flag.NewFlagSet("suggestions", flag.ExitOnError)
	sessionID := fs.String("session", "", "Session ID (default: latest)")
	fs.Parse(args)

	loadForAsk(a, *sessionID)

	suggestions, err := a.Service.Suggestions()
	if err != nil {
		fatalf("%v", err)
	}

	for _, s := range suggestions {
		fmt.Printf("  - %s\n", s)
	}
}

func handleSessionsCommand(a *app.App, action string, args []string) {
	switch action {
	case "list":
		handleSessionsList(a, args)
	case "show":
		handleSessionsShow(a, args)
	case "delete":
		handleSessionsDelete(a, args)
	case "help", "--help", "-h":
		printSessionsUsage()
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown sessions command: %s\n\n", action)
		printSessionsUsage()
		os.Exit(1)
	}
}

func handleSessionsList(a *app.App, args []string) {
	fs := flag.NewFlagSet("sessions list", flag.ExitOnError)
	format := fs.String("format", "table", "Output format: table or json")
	fs.Parse(args)

	list, err := a.Sessions.ListSessions()
	if err != nil {
		fatalf("failed to list sessions: %v", err)
	}

	if *format == "json" {
		printJSON(map[string]any{"sessions": list, "total": len(list)})
		return
	}
	printSessionsTable(list)
}

func handleSessionsShow(a *app.App, args []string) {
	id := requireSessionID(args, "show")

	session, err := a.Sessions.GetSession(id)
	if err != nil {
		fatalf("%v", err)
	}
	records, err := a.Sessions.Pages(id)
	if err != nil {
		fatalf("failed to load pages: %v", err)
	}

	printSessionDetail(session, records)
}

func handleSessionsDelete(a *app.App, args []string) {
	id := requireSessionID(args, "delete")

	if err := a.Sessions.DeleteSession(id); err != nil {
		fatalf("failed to delete session: %v", err)
	}

	fmt.Printf("✓ Deleted session: %s\n", id)
}

func requireSessionID(args []string, action string) uuid.UUID {
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "Error: session ID is required\n")
		fmt.Fprintf(os.Stderr, "Usage: sitechat sessions %s <session-id>\n", action)
		os.Exit(1)
	}

	id, err := uuid.Parse(args[0])
	if err != nil {
		fatalf("invalid session ID: %v", err)
	}
	return id
}
