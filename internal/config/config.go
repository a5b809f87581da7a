// Package config loads pipeline settings from a YAML file with
// environment variable overrides for secrets and deployment knobs.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Gmail      GmailConfig      `yaml:"gmail"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Dedup      DedupConfig      `yaml:"dedup"`
	Report     ReportConfig     `yaml:"report"`
	Schedule   ScheduleConfig   `yaml:"schedule"`

	StateFilePath string `yaml:"state_file_path"`
	PostgresDSN   string `yaml:"postgres_dsn"`
	ArchiveTTL    int    `yaml:"archive_ttl_hours"`
	MonitorPort   int    `yaml:"monitor_port"`
	Debug         bool   `yaml:"debug"`
}

type GmailConfig struct {
	CredentialsPath string   `yaml:"credentials_path"`
	TokenPath       string   `yaml:"token_path"`
	Label           string   `yaml:"label"`
	MaxMessages     int64    `yaml:"max_messages"`
	Scopes          []string `yaml:"scopes"`
	MarkAsRead      bool     `yaml:"mark_as_read"`
}

type ExtractionConfig struct {
	GeminiAPIKey  string        `yaml:"-"`
	GeminiModel   string        `yaml:"gemini_model"`
	OpenAIAPIKey  string        `yaml:"-"`
	OpenAIModel   string        `yaml:"openai_model"`
	MinBodyLength int  `yaml:"min_body_length"`
	BatchMode     bool `yaml:"batch_mode"`
	MaxAttempts   int  `yaml:"max_attempts"`

	// yaml.v3 has no native duration support, so these stay integral.
	RetryDelaySeconds int `yaml:"retry_delay_seconds"`
	CacheTTLHours     int `yaml:"cache_ttl_hours"`

	// Per-run request budgets, zero means unlimited.
	GeminiBudget int `yaml:"gemini_budget"`
	OpenAIBudget int `yaml:"openai_budget"`
	TotalBudget  int `yaml:"total_budget"`
}

type DedupConfig struct {
	MinRatio  float64 `yaml:"min_ratio"`
	MinCommon int     `yaml:"min_common"`
}

type ReportConfig struct {
	TitlePrefix        string `yaml:"title_prefix"`
	IncludeExecSummary bool   `yaml:"include_exec_summary"`
}

type ScheduleConfig struct {
	// Times are "HH:MM" wall-clock slots; the fetch window spans from
	// the previous slot to the latest one not after now.
	Times    []string `yaml:"times"`
	Timezone string   `yaml:"timezone"`
}

// Load reads the YAML file at path (optional, empty path skips it),
// applies defaults and then environment overrides, and validates.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Gmail: GmailConfig{
			CredentialsPath: "credentials.json",
			TokenPath:       "token.json",
			Label:           "Newsletters",
			MaxMessages:     50,
			Scopes: []string{
				"https://www.googleapis.com/auth/gmail.modify",
				"https://www.googleapis.com/auth/documents",
			},
			MarkAsRead: true,
		},
		Extraction: ExtractionConfig{
			GeminiModel:   "gemini-1.5-flash",
			OpenAIModel:   "gpt-3.5-turbo",
			MinBodyLength:     20,
			BatchMode:         true,
			MaxAttempts:       3,
			RetryDelaySeconds: 5,
			CacheTTLHours:     6,
			GeminiBudget:      30,
			OpenAIBudget:      15,
			TotalBudget:       40,
		},
		Dedup: DedupConfig{
			MinRatio:  0.50,
			MinCommon: 2,
		},
		Report: ReportConfig{
			TitlePrefix:        "Noticias IA",
			IncludeExecSummary: true,
		},
		Schedule: ScheduleConfig{
			Times:    []string{"08:00", "14:00", "20:00"},
			Timezone: "Europe/Madrid",
		},
		StateFilePath: "state.json",
		ArchiveTTL:    24 * 30,
		MonitorPort:   0,
	}
}

func applyEnv(cfg *Config) {
	cfg.Extraction.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	cfg.Extraction.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")

	if v := os.Getenv("GMAIL_CREDENTIALS_PATH"); v != "" {
		cfg.Gmail.CredentialsPath = v
	}
	if v := os.Getenv("GMAIL_TOKEN_PATH"); v != "" {
		cfg.Gmail.TokenPath = v
	}
	if v := os.Getenv("GMAIL_LABEL"); v != "" {
		cfg.Gmail.Label = v
	}
	if v := os.Getenv("MAX_MESSAGES"); v != "" {
		if val, err := strconv.ParseInt(v, 10, 64); err == nil && val > 0 {
			cfg.Gmail.MaxMessages = val
		}
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		cfg.PostgresDSN = v
	}
	if v := os.Getenv("STATE_FILE_PATH"); v != "" {
		cfg.StateFilePath = v
	}
	if v := os.Getenv("MONITOR_PORT"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 {
			cfg.MonitorPort = val
		}
	}
	if os.Getenv("DEBUG") == "true" {
		cfg.Debug = true
	}
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Gmail.Label == "" {
		return fmt.Errorf("gmail label is required")
	}
	if c.Gmail.MaxMessages <= 0 {
		return fmt.Errorf("max_messages must be positive")
	}
	if c.Extraction.MinBodyLength <= 0 {
		return fmt.Errorf("min_body_length must be positive")
	}
	if c.Dedup.MinRatio <= 0 || c.Dedup.MinRatio > 1 {
		return fmt.Errorf("dedup min_ratio must be in (0, 1]")
	}
	if c.Dedup.MinCommon < 1 {
		return fmt.Errorf("dedup min_common must be at least 1")
	}
	if len(c.Schedule.Times) == 0 {
		return fmt.Errorf("at least one schedule time is required")
	}
	for _, slot := range c.Schedule.Times {
		if _, err := time.Parse("15:04", slot); err != nil {
			return fmt.Errorf("invalid schedule time %q: %w", slot, err)
		}
	}
	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Schedule.Timezone, err)
	}
	return nil
}
