// Command directory lists people from the public demo directory, optionally
// filtered by a search term.
//
//	directory -q engineer
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"

	"github.com/duynhne/user-management/config"
	"github.com/duynhne/user-management/internal/directory"
	"github.com/duynhne/user-management/middleware"
)

func main() {
	baseURL := flag.String("url", directory.DefaultBaseURL, "directory base URL")
	query := flag.String("q", "", "filter by name, company, role or country")
	timeout := flag.Duration("timeout", 10*time.Second, "request timeout")
	flag.Parse()

	logger, err := middleware.NewLogger(config.LoggingConfig{Level: "warn", Format: "console"})
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	people, err := directory.NewClient(*baseURL, *timeout).ListUsers(ctx)
	if err != nil {
		logger.Error("Failed to load directory", zap.String("url", *baseURL), zap.Error(err))
		os.Exit(1)
	}

	matched := directory.Filter(people, *query)
	if err := printTable(os.Stdout, matched, len(people)); err != nil {
		logger.Error("Failed to write table", zap.Error(err))
		os.Exit(1)
	}
}

// printTable writes one aligned row per person and a match count.
func printTable(out io.Writer, people []directory.Person, total int) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tCOMPANY\tROLE\tCOUNTRY")
	for _, p := range people {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.FullName(), p.Company.Name, p.Company.Title, p.Address.Country)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(out, "\n%d of %d people\n", len(people), total)
	return err
}
