package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Categories      []string         `yaml:"categories"`
	Keywords        []string         `yaml:"keywords"`
	Schedule        string           `yaml:"schedule"`
	ArxivURL        string           `yaml:"arxiv_base_url"`
	MaxResults      int              `yaml:"max_results"`
	PageSize        int              `yaml:"page_size"`
	WindowDays      int              `yaml:"window_days"`
	MaxPapersPerDay int              `yaml:"max_papers_per_day"`
	DataDir         string           `yaml:"data_dir"`
	OutputDir       string           `yaml:"output_dir"`
	LLM             LLMConfig        `yaml:"llm"`
	Preference      PreferenceConfig `yaml:"preference"`
	Site            SiteConfig       `yaml:"site"`
}

type LLMConfig struct {
	BaseURL             string   `yaml:"base_url"`
	Model               string   `yaml:"model"`
	APIKey              string   `yaml:"api_key"`
	MaxTokens           int      `yaml:"max_tokens"`
	Temperature         *float64 `yaml:"temperature"`
	TimeoutSeconds      int      `yaml:"timeout_seconds"`
	RetryBackoffSeconds int      `yaml:"retry_backoff_seconds"`
}

// PreferenceConfig describes the reader's interests for relevance ranking.
type PreferenceConfig struct {
	Profile string `yaml:"profile"`
}

type SiteConfig struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	BaseURL     string `yaml:"base_url"`
}

// Timeout returns the per-request LLM timeout as a duration.
func (c LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// RetryBackoff returns the fixed delay before retrying a throttled LLM call.
func (c LLMConfig) RetryBackoff() time.Duration {
	return time.Duration(c.RetryBackoffSeconds) * time.Second
}

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with environment variable values.
func expandEnvVars(s string) string {
	return envVarRegex.ReplaceAllStringFunc(s, func(match string) string {
		varName := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

func setDefaults(cfg *Config) {
	if cfg.Schedule == "" {
		cfg.Schedule = "0 8 * * *"
	}
	if cfg.MaxResults == 0 {
		cfg.MaxResults = 300
	}
	if cfg.PageSize == 0 {
		cfg.PageSize = 100
	}
	if cfg.WindowDays == 0 {
		cfg.WindowDays = 30
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "data/papers"
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "public"
	}
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = "https://api.deepseek.com/chat/completions"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "deepseek-chat"
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = 500
	}
	if cfg.LLM.Temperature == nil {
		t := 0.3
		cfg.LLM.Temperature = &t
	}
	if cfg.LLM.TimeoutSeconds == 0 {
		cfg.LLM.TimeoutSeconds = 60
	}
	if cfg.LLM.RetryBackoffSeconds == 0 {
		cfg.LLM.RetryBackoffSeconds = 5
	}
	if cfg.PageSize > cfg.MaxResults {
		cfg.PageSize = cfg.MaxResults
	}
	if cfg.Site.Title == "" {
		cfg.Site.Title = "ArXiv Daily Digest"
	}
	if cfg.Site.Description == "" {
		cfg.Site.Description = "AI-generated Chinese summaries of new arXiv papers"
	}
}

func validate(cfg *Config) error {
	if len(cfg.Categories) == 0 {
		return fmt.Errorf("config: categories is required (e.g. [cs.CV, cs.LG])")
	}
	if cfg.LLM.APIKey == "" {
		return fmt.Errorf("config: llm.api_key is required (set DEEPSEEK_API_KEY env var)")
	}
	if cfg.MaxResults < 0 {
		return fmt.Errorf("config: max_results must not be negative")
	}
	if cfg.MaxPapersPerDay < 0 {
		return fmt.Errorf("config: max_papers_per_day must not be negative")
	}
	if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
		return fmt.Errorf("config: invalid schedule %q: %w", cfg.Schedule, err)
	}
	return nil
}

// Load reads the config file, expands environment variables, applies defaults,
// and validates the configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
