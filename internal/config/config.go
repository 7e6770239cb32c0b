package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/amishk599/jobsieve/internal/model"
)

// Config is the root configuration for a jobsieve run.
type Config struct {
	ResumePath   string
	Target       TargetConfig
	Store        StoreConfig
	LLM          LLMConfig
	Extract      ExtractConfig
	Pipeline     PipelineConfig
	Notification NotificationConfig
	RateLimit    RateLimitConfig
}

// TargetConfig describes the listing page and which anchors count as postings.
type TargetConfig struct {
	URL             string
	Render          string // "browser" or "http"
	Selector        string // CSS selector for candidate anchors
	LinkPatterns    []string
	LinkRegex       string
	ExcludePatterns []string
	WaitSelector    string        // browser mode: element to wait for before capturing
	Timeout         time.Duration // page render timeout
}

// StoreConfig selects the seen-store backend.
type StoreConfig struct {
	Type     string `yaml:"type"` // "sqlite", "postgres" or "redis"
	Path     string `yaml:"path"`
	DSN      string `yaml:"dsn"`
	RedisURL string `yaml:"redis_url"`
}

// LLMConfig controls the OpenAI-compatible comparison service.
type LLMConfig struct {
	BaseURL     string
	Model       string
	APIKey      string // expanded from env var by Load
	Temperature float64
	Timeout     time.Duration // per-request timeout
	MaxRetries  int
	RetryDelay  time.Duration
}

// ExtractConfig controls posting fetches.
type ExtractConfig struct {
	UserAgent string
	Timeout   time.Duration
}

// PipelineConfig controls item processing.
type PipelineConfig struct {
	Concurrency int // 1 = strictly sequential
}

// NotificationConfig controls which notifier is used and its settings.
type NotificationConfig struct {
	Type       string `yaml:"type"`        // "log" or "slack"
	WebhookURL string `yaml:"webhook_url"` // required if type is "slack"
	Archive    bool   `yaml:"archive"`     // also keep reports in the sqlite archive
}

// RateLimitConfig controls per-host request pacing.
type RateLimitConfig struct {
	MinDelay      time.Duration            // minimum gap between requests to the same host
	HostOverrides map[string]time.Duration // per-host overrides, keyed by hostname
}

const (
	defaultLLMBaseURL = "https://api.deepseek.com"
	defaultLLMModel   = "deepseek-chat"
	defaultUserAgent  = "Mozilla/5.0 (compatible; jobsieve/1.0)"
)

// rawConfig is used for YAML unmarshaling (snake_case fields and duration as string).
type rawConfig struct {
	ResumePath   string             `yaml:"resume_path"`
	Target       rawTargetConfig    `yaml:"target"`
	Store        StoreConfig        `yaml:"store"`
	LLM          rawLLMConfig       `yaml:"llm"`
	Extract      rawExtractConfig   `yaml:"extract"`
	Pipeline     PipelineConfig     `yaml:"pipeline"`
	Notification NotificationConfig `yaml:"notification"`
	RateLimit    rawRateLimitConfig `yaml:"rate_limit"`
}

type rawTargetConfig struct {
	URL             string   `yaml:"url"`
	Render          string   `yaml:"render"`
	Selector        string   `yaml:"selector"`
	LinkPatterns    []string `yaml:"link_patterns"`
	LinkRegex       string   `yaml:"link_regex"`
	ExcludePatterns []string `yaml:"exclude_patterns"`
	WaitSelector    string   `yaml:"wait_selector"`
	Timeout         string   `yaml:"timeout"`
}

type rawLLMConfig struct {
	BaseURL     string   `yaml:"base_url"`
	Model       string   `yaml:"model"`
	APIKey      string   `yaml:"api_key"`
	Temperature *float64 `yaml:"temperature"`
	Timeout     string   `yaml:"timeout"`
	MaxRetries  *int     `yaml:"max_retries"`
	RetryDelay  string   `yaml:"retry_delay"`
}

type rawExtractConfig struct {
	UserAgent string `yaml:"user_agent"`
	Timeout   string `yaml:"timeout"`
}

type rawRateLimitConfig struct {
	MinDelay      string            `yaml:"min_delay"`
	HostOverrides map[string]string `yaml:"host_overrides"`
}

// Load reads and parses the YAML config file at path, validates it, and returns Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	targetTimeout, err := parseDuration("target.timeout", raw.Target.Timeout, 60*time.Second)
	if err != nil {
		return nil, err
	}
	llmTimeout, err := parseDuration("llm.timeout", raw.LLM.Timeout, 60*time.Second)
	if err != nil {
		return nil, err
	}
	retryDelay, err := parseDuration("llm.retry_delay", raw.LLM.RetryDelay, 5*time.Second)
	if err != nil {
		return nil, err
	}
	extractTimeout, err := parseDuration("extract.timeout", raw.Extract.Timeout, 30*time.Second)
	if err != nil {
		return nil, err
	}
	minDelay, err := parseDuration("rate_limit.min_delay", raw.RateLimit.MinDelay, 0)
	if err != nil {
		return nil, err
	}

	hostOverrides := make(map[string]time.Duration)
	for host, rawDelay := range raw.RateLimit.HostOverrides {
		d, err := time.ParseDuration(rawDelay)
		if err != nil {
			return nil, fmt.Errorf("parse rate_limit.host_overrides[%q]: %w", host, err)
		}
		hostOverrides[host] = d
	}

	linkPatterns := raw.Target.LinkPatterns
	if linkPatterns == nil && raw.Target.LinkRegex == "" {
		linkPatterns = []string{"/jobs/", "/careers/"}
	}

	temperature := 0.2
	if raw.LLM.Temperature != nil {
		temperature = *raw.LLM.Temperature
	}
	maxRetries := 2
	if raw.LLM.MaxRetries != nil {
		maxRetries = *raw.LLM.MaxRetries
	}

	cfg := &Config{
		ResumePath: withDefault(raw.ResumePath, "resume.txt"),
		Target: TargetConfig{
			URL:             raw.Target.URL,
			Render:          withDefault(raw.Target.Render, "browser"),
			Selector:        withDefault(raw.Target.Selector, "a[href]"),
			LinkPatterns:    linkPatterns,
			LinkRegex:       raw.Target.LinkRegex,
			ExcludePatterns: raw.Target.ExcludePatterns,
			WaitSelector:    withDefault(raw.Target.WaitSelector, "body"),
			Timeout:         targetTimeout,
		},
		Store: StoreConfig{
			Type:     withDefault(raw.Store.Type, "sqlite"),
			Path:     withDefault(raw.Store.Path, "jobs.db"),
			DSN:      raw.Store.DSN,
			RedisURL: raw.Store.RedisURL,
		},
		LLM: LLMConfig{
			BaseURL:     strings.TrimRight(withDefault(raw.LLM.BaseURL, defaultLLMBaseURL), "/"),
			Model:       withDefault(raw.LLM.Model, defaultLLMModel),
			APIKey:      raw.LLM.APIKey,
			Temperature: temperature,
			Timeout:     llmTimeout,
			MaxRetries:  maxRetries,
			RetryDelay:  retryDelay,
		},
		Extract: ExtractConfig{
			UserAgent: withDefault(raw.Extract.UserAgent, defaultUserAgent),
			Timeout:   extractTimeout,
		},
		Pipeline:     raw.Pipeline,
		Notification: raw.Notification,
		RateLimit: RateLimitConfig{
			MinDelay:      minDelay,
			HostOverrides: hostOverrides,
		},
	}
	if cfg.Pipeline.Concurrency == 0 {
		cfg.Pipeline.Concurrency = 1
	}
	if cfg.Notification.Type == "" {
		cfg.Notification.Type = "log"
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// RequireCredential fails fast when the LLM API key is not configured.
func (c *Config) RequireCredential() error {
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		return fmt.Errorf("llm.api_key is empty (set DEEPSEEK_API_KEY or llm.api_key): %w", model.ErrMissingCredential)
	}
	return nil
}

func validate(cfg *Config) error {
	if cfg.Target.URL == "" {
		return fmt.Errorf("target.url is required")
	}
	if !strings.HasPrefix(cfg.Target.URL, "http://") && !strings.HasPrefix(cfg.Target.URL, "https://") {
		return fmt.Errorf("target.url must be an absolute http(s) URL, got %q", cfg.Target.URL)
	}

	switch cfg.Target.Render {
	case "browser", "http":
	default:
		return fmt.Errorf("target.render must be \"browser\" or \"http\", got %q", cfg.Target.Render)
	}

	if cfg.Target.LinkRegex != "" {
		if _, err := regexp.Compile(cfg.Target.LinkRegex); err != nil {
			return fmt.Errorf("parse target.link_regex %q: %w", cfg.Target.LinkRegex, err)
		}
	}

	switch cfg.Store.Type {
	case "sqlite":
	case "postgres":
		if cfg.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required when store.type is \"postgres\"")
		}
	case "redis":
		if cfg.Store.RedisURL == "" {
			return fmt.Errorf("store.redis_url is required when store.type is \"redis\"")
		}
	default:
		return fmt.Errorf("store.type must be one of sqlite, postgres, redis, got %q", cfg.Store.Type)
	}

	if cfg.Notification.Archive && cfg.Store.Type != "sqlite" {
		return fmt.Errorf("notification.archive requires store.type \"sqlite\"")
	}

	if cfg.LLM.Temperature < 0 || cfg.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be between 0 and 2, got %v", cfg.LLM.Temperature)
	}
	if cfg.LLM.MaxRetries < 0 {
		return fmt.Errorf("llm.max_retries must not be negative, got %d", cfg.LLM.MaxRetries)
	}

	if cfg.Pipeline.Concurrency < 1 {
		return fmt.Errorf("pipeline.concurrency must be at least 1, got %d", cfg.Pipeline.Concurrency)
	}

	switch cfg.Notification.Type {
	case "log":
	case "slack":
		if cfg.Notification.WebhookURL == "" {
			return fmt.Errorf("notification.webhook_url is required when type is \"slack\"")
		}
		if !strings.HasPrefix(cfg.Notification.WebhookURL, "https://hooks.slack.com/") {
			return fmt.Errorf("notification.webhook_url must start with https://hooks.slack.com/")
		}
	default:
		return fmt.Errorf("notification.type must be \"log\" or \"slack\", got %q", cfg.Notification.Type)
	}

	return nil
}

func parseDuration(field, raw string, def time.Duration) (time.Duration, error) {
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", field, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative, got %v", field, d)
	}
	return d, nil
}

func withDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
