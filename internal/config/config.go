package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone = "UTC"

	configPathEnv     = "ARXIV_DIGEST_CONFIG"
	databaseDSNEnv    = "DATABASE_DSN"
	deepseekAPIKeyEnv = "DEEPSEEK_API_KEY"
	deepseekModelEnv  = "DEEPSEEK_MODEL"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Storage       StorageConfig      `yaml:"storage"`
	Selection     SelectionConfig    `yaml:"selection"`
	Rater         RaterConfig        `yaml:"rater"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Archive       ArchiveConfig      `yaml:"archive"`
	Notifications NotificationConfig `yaml:"notifications"`
	Sites         []SiteConfig       `yaml:"sites"`
}

// LoggingConfig controls console log verbosity.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// StorageConfig locates the data directory holding the score cache, the
// seen-set, the per-day digest files, and the run lock.
type StorageConfig struct {
	DataDir string `yaml:"dataDir"`
}

// SelectionConfig bounds the daily selection.
type SelectionConfig struct {
	WindowDays int `yaml:"windowDays"`
	MaxPerDay  int `yaml:"maxPerDay"`
	MaxResults int `yaml:"maxResults"`
}

// RaterConfig defines how to contact the relevance-scoring service.
type RaterConfig struct {
	Endpoint       string `yaml:"endpoint"`
	Model          string `yaml:"model"`
	APIKey         string `yaml:"apiKey"`
	Profile        string `yaml:"profile"`
	TimeoutSeconds int    `yaml:"timeoutSeconds"`
	MaxConcurrent  int    `yaml:"maxConcurrent"`
}

// Timeout converts the configured per-call budget to a duration.
func (r RaterConfig) Timeout() time.Duration {
	if r.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(r.TimeoutSeconds) * time.Second
}

// SchedulerConfig defines when the pipeline should run.
type SchedulerConfig struct {
	CronExpression string         `yaml:"cronExpression"`
	Timezone       string         `yaml:"timezone"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// ArchiveConfig describes the optional Postgres audit archive.
type ArchiveConfig struct {
	DSN string `yaml:"dsn"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// SiteConfig describes a single feed site with its scanner strategy.
type SiteConfig struct {
	Name       string            `yaml:"name"`
	Scanner    string            `yaml:"scanner"`
	Categories []CategoryConfig  `yaml:"categories"`
	Options    map[string]string `yaml:"options"`
}

// CategoryConfig holds the concrete categories or endpoints to fetch.
type CategoryConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	if len(cfg.Sites) == 0 {
		cfg.Sites = defaultConfig().Sites
	}

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Archive.DSN = v
	}

	if v := os.Getenv(deepseekAPIKeyEnv); v != "" {
		c.Rater.APIKey = v
	}

	if v := os.Getenv(deepseekModelEnv); v != "" {
		c.Rater.Model = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	if override.Storage.DataDir != "" {
		base.Storage.DataDir = override.Storage.DataDir
	}

	if override.Selection.WindowDays > 0 {
		base.Selection.WindowDays = override.Selection.WindowDays
	}
	if override.Selection.MaxPerDay > 0 {
		base.Selection.MaxPerDay = override.Selection.MaxPerDay
	}
	if override.Selection.MaxResults > 0 {
		base.Selection.MaxResults = override.Selection.MaxResults
	}

	if override.Rater.Endpoint != "" {
		base.Rater.Endpoint = override.Rater.Endpoint
	}
	if override.Rater.Model != "" {
		base.Rater.Model = override.Rater.Model
	}
	if override.Rater.APIKey != "" {
		base.Rater.APIKey = override.Rater.APIKey
	}
	if override.Rater.Profile != "" {
		base.Rater.Profile = override.Rater.Profile
	}
	if override.Rater.TimeoutSeconds > 0 {
		base.Rater.TimeoutSeconds = override.Rater.TimeoutSeconds
	}
	if override.Rater.MaxConcurrent > 0 {
		base.Rater.MaxConcurrent = override.Rater.MaxConcurrent
	}

	if override.Scheduler.CronExpression != "" {
		base.Scheduler.CronExpression = override.Scheduler.CronExpression
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	if override.Archive.DSN != "" {
		base.Archive.DSN = override.Archive.DSN
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	if len(override.Sites) > 0 {
		base.Sites = override.Sites
	}

	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging: LoggingConfig{Level: "info"},
		Storage: StorageConfig{DataDir: "data"},
		Selection: SelectionConfig{
			WindowDays: 30,
			MaxPerDay:  5,
			MaxResults: 300,
		},
		Rater: RaterConfig{
			Endpoint:       "https://api.deepseek.com/chat/completions",
			Model:          "deepseek-chat",
			APIKey:         "",
			Profile:        "Graphic and visual design, layout generation, text-to-image methods usable for building tools.",
			TimeoutSeconds: 30,
			MaxConcurrent:  4,
		},
		Scheduler: SchedulerConfig{CronExpression: "0 6 * * *", Timezone: defaultTimezone, location: tz},
		Archive:   ArchiveConfig{DSN: ""},
		Notifications: NotificationConfig{
			Telegram: TelegramConfig{BotToken: "", ChatID: ""},
		},
		Sites: []SiteConfig{
			{
				Name:    "arxiv-api",
				Scanner: "arxiv-atom",
				Categories: []CategoryConfig{
					{Name: "cs.CV", URL: "https://export.arxiv.org/api/query"},
					{Name: "cs.GR", URL: "https://export.arxiv.org/api/query"},
				},
			},
		},
	}
}
