// Package main provides the entry point for the job_scraper CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "job_scraper",
	Short: "Scrape job listings into CSV, Word and Google Sheets",
	Long: "job_scraper pages through job boards in throttled batches, keeps whatever it collected when a source gives up, " +
		"and writes the listings to CSV with optional résumé matching, a Word report and a Google Sheets upload.",
	SilenceUsage: true,
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
