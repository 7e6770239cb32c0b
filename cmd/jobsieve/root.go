package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/amishk599/jobsieve/internal/ai"
	"github.com/amishk599/jobsieve/internal/config"
	"github.com/amishk599/jobsieve/internal/discover"
	"github.com/amishk599/jobsieve/internal/filter"
	"github.com/amishk599/jobsieve/internal/model"
	"github.com/amishk599/jobsieve/internal/notifier"
	"github.com/amishk599/jobsieve/internal/ratelimit"
	"github.com/amishk599/jobsieve/internal/retry"
	"github.com/amishk599/jobsieve/internal/store"
)

var (
	cfgPath   string
	debug     bool
	targetURL string
)

var rootCmd = &cobra.Command{
	Use:   "jobsieve",
	Short: "Match new job postings against your resume",
	Long:  "jobsieve scans a careers page for postings it has not seen yet, scores each one against your resume with an LLM and reports the result.",
	// Running the binary with no subcommand performs one pass.
	RunE:          runPipeline,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: JOBSIEVE_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&targetURL, "target", "", "listing page URL, overrides target.url")
}

// loadConfig loads .env, resolves the config path and parses it.
// Priority: explicit path arg > JOBSIEVE_CONFIG env var > "./config.yaml"
func loadConfig(path string) (*config.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	if path == "" {
		if env := os.Getenv("JOBSIEVE_CONFIG"); env != "" {
			path = env
		} else {
			path = "config.yaml"
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if targetURL != "" {
		u, err := url.Parse(targetURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, fmt.Errorf("--target must be an absolute http(s) URL, got %q", targetURL)
		}
		cfg.Target.URL = targetURL
	}
	return cfg, nil
}

func setupLogger(dbg bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

// openStore returns the configured seen-store. archive is nil unless the
// backend can also keep analyses.
func openStore(ctx context.Context, cfg *config.Config) (model.SeenStore, model.AnalysisArchive, error) {
	switch cfg.Store.Type {
	case "postgres":
		s, err := store.NewPostgresStore(ctx, cfg.Store.DSN)
		if err != nil {
			return nil, nil, err
		}
		return s, nil, nil
	case "redis":
		s, err := store.NewRedisStore(cfg.Store.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return s, nil, nil
	default:
		s, err := store.NewSQLiteStore(cfg.Store.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	}
}

func setupNotifier(cfg *config.Config, archive model.AnalysisArchive, httpClient *http.Client, logger *slog.Logger) model.Notifier {
	n := notifier.Multi{notifier.NewStdoutNotifier(os.Stdout, logger)}

	if cfg.Notification.Type == "slack" {
		logger.Info("using slack notifier")
		n = append(n, notifier.NewSlackNotifier(cfg.Notification.WebhookURL, httpClient, logger))
	}
	if cfg.Notification.Archive && archive != nil {
		n = append(n, notifier.NewArchiveNotifier(archive))
	}
	return n
}

func setupDiscoverer(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) (*discover.Discoverer, error) {
	rule, err := filter.NewLinkRule(cfg.Target.LinkPatterns, cfg.Target.LinkRegex, cfg.Target.ExcludePatterns)
	if err != nil {
		return nil, err
	}

	var renderer discover.Renderer
	switch cfg.Target.Render {
	case "http":
		renderer = discover.NewHTTPRenderer(httpClient, cfg.Extract.UserAgent)
	default:
		renderer = discover.NewBrowserRenderer(cfg.Target.WaitSelector, cfg.Extract.UserAgent, cfg.Target.Timeout)
	}
	logger.Debug("discoverer configured", "render", cfg.Target.Render, "selector", cfg.Target.Selector)
	return discover.NewDiscoverer(renderer, cfg.Target.Selector, rule, logger), nil
}

// setupComparator builds the LLM chain: rate limit per API host, then retry
// transient transport failures.
func setupComparator(cfg *config.Config, limiter *ratelimit.HostLimiter, logger *slog.Logger) (*ai.LLMComparator, error) {
	if err := cfg.RequireCredential(); err != nil {
		return nil, err
	}

	host := ""
	if u, err := url.Parse(cfg.LLM.BaseURL); err == nil {
		host = u.Hostname()
	}

	llmClient := &http.Client{Timeout: cfg.LLM.Timeout}
	var provider ai.LLMProvider = ai.NewOpenAIProvider(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.Temperature, llmClient)
	provider = ratelimit.NewProvider(provider, limiter, host)
	provider = retry.NewProvider(provider, cfg.LLM.MaxRetries, cfg.LLM.RetryDelay, logger)

	logger.Info("llm configured", "base_url", cfg.LLM.BaseURL, "model", cfg.LLM.Model, "max_retries", cfg.LLM.MaxRetries)
	return ai.NewLLMComparator(provider, ai.ResumeMatchTemplate, logger), nil
}
