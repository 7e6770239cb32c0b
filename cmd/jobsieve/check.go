package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "List new postings without analyzing them",
	Long:  "Dry run: discovers postings on the target page and prints which ones have not been seen. Nothing is fetched, analyzed or recorded.",
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return err
	}

	logger.Info("check mode: no postings will be marked as seen")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	seenStore, _, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		return err
	}
	defer seenStore.Close()

	if err := seenStore.Initialize(ctx); err != nil {
		logger.Error("failed to initialize store", "error", err)
		return err
	}

	discoverer, err := setupDiscoverer(cfg, &http.Client{Timeout: cfg.Extract.Timeout}, logger)
	if err != nil {
		logger.Error("invalid link rule", "error", err)
		return err
	}

	links, err := discoverer.Discover(ctx, cfg.Target.URL)
	if err != nil {
		logger.Error("discovery failed", "error", err)
		return err
	}

	fresh := 0
	for _, link := range links {
		seen, err := seenStore.Contains(ctx, link)
		if err != nil {
			logger.Error("checking seen status", "url", link, "error", err)
			continue
		}
		status := "seen"
		if !seen {
			status = "new"
			fresh++
		}
		fmt.Printf("%-5s %s\n", status, link)
	}

	fmt.Printf("\nTotal: %d postings (%d new, %d seen)\n", len(links), fresh, len(links)-fresh)
	return nil
}
