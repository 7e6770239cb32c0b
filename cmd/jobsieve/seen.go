package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var seenCmd = &cobra.Command{
	Use:   "seen",
	Short: "List postings already processed",
	Long:  "Prints every URL in the seen-store, newest first.",
	RunE:  runSeen,
}

func init() {
	rootCmd.AddCommand(seenCmd)
}

func runSeen(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return err
	}

	ctx := context.Background()
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

	records, err := seenStore.List(ctx)
	if err != nil {
		logger.Error("failed to list seen postings", "error", err)
		return err
	}

	fmt.Printf("%-20s %s\n", "Processed", "URL")
	fmt.Println(strings.Repeat("─", 60))
	for _, r := range records {
		fmt.Printf("%-20s %s\n", r.ProcessedAt.Local().Format("2006-01-02 15:04"), r.URL)
	}
	fmt.Printf("\nTotal: %d postings\n", len(records))
	return nil
}
