package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobsieve/internal/review"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Browse archived analyses (TUI)",
	Long:  "Opens a full-screen list of archived analyses. Requires the sqlite store with notification.archive enabled.",
	RunE:  runReview,
}

func init() {
	rootCmd.AddCommand(reviewCmd)
}

func runReview(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return err
	}

	if !stdoutIsTerminal() {
		err := errors.New("review needs an interactive terminal")
		logger.Error("cannot start review", "error", err)
		return err
	}

	ctx := context.Background()
	seenStore, archive, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		return err
	}
	defer seenStore.Close()

	if archive == nil {
		err := fmt.Errorf("store type %q does not keep analyses", cfg.Store.Type)
		logger.Error("cannot start review", "error", err)
		return err
	}

	if err := seenStore.Initialize(ctx); err != nil {
		logger.Error("failed to initialize store", "error", err)
		return err
	}

	reports, err := archive.ListAnalyses(ctx, 0)
	if err != nil {
		logger.Error("failed to load analyses", "error", err)
		return err
	}

	// Nothing may be logged once the alt screen is up.
	return review.Run(reports)
}

// stdoutIsTerminal reports whether stdout is attached to a character device.
func stdoutIsTerminal() bool {
	fi, err := os.Stdout.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}
