package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobsieve/internal/extract"
	"github.com/amishk599/jobsieve/internal/model"
	"github.com/amishk599/jobsieve/internal/pipeline"
	"github.com/amishk599/jobsieve/internal/ratelimit"
	"github.com/amishk599/jobsieve/internal/resume"
	"github.com/amishk599/jobsieve/internal/store"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process new postings once and exit",
	Long:  "Discovers postings on the target page, analyzes the ones not seen before against your resume, records and reports them.",
	RunE:  runPipeline,
}

var dryRun bool

func init() {
	for _, c := range []*cobra.Command{rootCmd, runCmd} {
		c.Flags().BoolVar(&dryRun, "dry-run", false, "analyze and print every discovered posting without reading or writing the seen-store")
	}
	rootCmd.AddCommand(runCmd)
}

func runPipeline(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return err
	}

	logger.Info("config loaded",
		"target", cfg.Target.URL,
		"render", cfg.Target.Render,
		"store", cfg.Store.Type,
		"concurrency", cfg.Pipeline.Concurrency,
	)

	limiter := ratelimit.NewHostLimiter(cfg.RateLimit.MinDelay, cfg.RateLimit.HostOverrides)
	comparator, err := setupComparator(cfg, limiter, logger)
	if err != nil {
		logger.Error("llm not configured", "error", err)
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		seenStore model.SeenStore
		archive   model.AnalysisArchive
	)
	if dryRun {
		logger.Info("dry-run mode enabled, no postings will be marked as seen")
		seenStore = store.NewNopStore()
	} else {
		seenStore, archive, err = openStore(ctx, cfg)
		if err != nil {
			logger.Error("failed to open store", "error", err)
			return err
		}
	}
	defer seenStore.Close()

	httpClient := &http.Client{Timeout: cfg.Extract.Timeout}
	discoverer, err := setupDiscoverer(cfg, httpClient, logger)
	if err != nil {
		logger.Error("invalid link rule", "error", err)
		return err
	}

	p := pipeline.New(cfg.Target.URL, pipeline.Deps{
		Discoverer: discoverer,
		Store:      seenStore,
		Extractor:  extract.NewExtractor(httpClient, limiter, cfg.Extract.UserAgent, logger),
		Comparator: comparator,
		Notifier:   setupNotifier(cfg, archive, httpClient, logger),
		LoadResume: func() (string, error) { return resume.Load(cfg.ResumePath) },
	}, cfg.Pipeline.Concurrency, logger)
	p.SetDryRun(dryRun)

	if _, err := p.Run(ctx); err != nil {
		logger.Error("run failed", "error", err)
		return err
	}

	logger.Info("goodbye")
	return nil
}

