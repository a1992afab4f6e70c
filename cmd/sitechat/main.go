package main

import (
	"fmt"
	"os"

	"github.com/pevans/sitechat/app"
	"github.com/pevans/sitechat/config"
	"github.com/pevans/sitechat/logging"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	subcommand := os.Args[1]
	args := os.Args[2:]

	switch subcommand {
	case "scrape":
		withApp(func(a *app.App) { handleScrape(a, args) })
	case "ask":
		withApp(func(a *app.App) { handleAsk(a, args) })
	case "summary":
		withApp(func(a *app.App) { handleSummary(a, args) })
	case "suggestions":
		withApp(func(a *app.App) { handleSuggestions(a, args) })
	case "sessions":
		if len(args) < 1 {
			printSessionsUsage()
			os.Exit(1)
		}
		withApp(func(a *app.App) { handleSessionsCommand(a, args[0], args[1:]) })
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command: %s\n\n", subcommand)
		printUsage()
		os.Exit(1)
	}
}

// withApp loads configuration, opens the stores and runs fn. Stores are
// closed before returning; fn exits the process itself on failure.
func withApp(fn func(a *app.App)) {
	logger := logging.NewLogger()

	cfg, err := config.Load(logger)
	if err != nil {
		fatalf("failed to load configuration: %v", err)
	}

	a, err := app.New(cfg, logger)
	if err != nil {
		fatalf("%v", err)
	}
	defer a.Close()

	fn(a)
}

func printUsage() {
	fmt.Println("sitechat - Chat with any business website")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  sitechat <command> [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  scrape       Crawl a website and build its index")
	fmt.Println("  ask          Ask a question about the scraped website")
	fmt.Println("  summary      Show what was scraped")
	fmt.Println("  suggestions  Show suggested questions")
	fmt.Println("  sessions     Manage stored scrape sessions")
	fmt.Println("  help         Show this help message")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  SITECHAT_DB            Path to the SQLite database (default: sitechat.db)")
	fmt.Println("  SITECHAT_LLM_PROVIDER  anthropic or openai (default: anthropic)")
	fmt.Println("  ANTHROPIC_API_KEY      API key for the anthropic provider")
	fmt.Println("  OPENAI_API_KEY         API key for the openai provider")
	fmt.Println("  SITECHAT_LOG_LEVEL     debug, info, warn or error (default: info)")
	fmt.Println()
	fmt.Printf("Configuration file: %s\n", configPathForUsage())
}

func printSessionsUsage() {
	fmt.Println("sitechat sessions - Manage stored scrape sessions")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  sitechat sessions <action> [arguments]")
	fmt.Println()
	fmt.Println("Actions:")
	fmt.Println("  list       List stored sessions, newest first")
	fmt.Println("  show       Show one session and its pages")
	fmt.Println("  delete     Delete a session")
	fmt.Println("  help       Show this help message")
}

func configPathForUsage() string {
	path, err := config.ConfigFilePath()
	if err != nil {
		return "~/.sitechat/config.yaml"
	}
	return path
}
