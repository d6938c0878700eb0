package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/viper"
)

// EmailsConfig describes the address being migrated away from and the
// domains that identify the user's own mailboxes.
type EmailsConfig struct {
	// OldAddress is the address services are being migrated away from.
	OldAddress string `mapstructure:"old_address" yaml:"old_address"`

	// NewDomains are the destination domains. A service that mails any
	// address on one of these is considered migrated.
	NewDomains []string `mapstructure:"new_domains" yaml:"new_domains"`

	// PersonalDomains are the user's own domains. Senders on these
	// domains are never tracked as services.
	PersonalDomains []string `mapstructure:"personal_domains" yaml:"personal_domains"`
}

// IMAPConfig holds the mailbox connection settings. The password is
// never stored here; see the credential package.
type IMAPConfig struct {
	Host       string `mapstructure:"host" yaml:"host"`
	Port       string `mapstructure:"port" yaml:"port"`
	Username   string `mapstructure:"username" yaml:"username"`
	TLS        bool   `mapstructure:"tls" yaml:"tls"`
	Mailbox    string `mapstructure:"mailbox" yaml:"mailbox"`
	ScanLimit  int    `mapstructure:"scan_limit" yaml:"scan_limit"`
	TimeoutSec int    `mapstructure:"timeout_sec" yaml:"timeout_sec"`

	// BodyBytes caps how much of each message body is fetched.
	BodyBytes int64 `mapstructure:"body_bytes" yaml:"body_bytes"`
}

// DatabaseConfig points at the SQLite file.
type DatabaseConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// SchedulerConfig controls periodic scans in serve mode.
type SchedulerConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Cron    string `mapstructure:"cron" yaml:"cron"`
}

// CategoryConfig defines one classification bucket. Categories are
// evaluated in the order they appear in the configuration.
type CategoryConfig struct {
	Name     string   `mapstructure:"name" yaml:"name"`
	Keywords []string `mapstructure:"keywords" yaml:"keywords"`

	// Priority is optional. Only "high" affects classification.
	Priority string `mapstructure:"priority" yaml:"priority,omitempty"`
}

// PriorityConfig holds the global high-priority domain substrings.
type PriorityConfig struct {
	HighDomains []string `mapstructure:"high_domains" yaml:"high_domains"`
}

// LogConfig holds logging preferences.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Emails     EmailsConfig     `mapstructure:"emails" yaml:"emails"`
	IMAP       IMAPConfig       `mapstructure:"imap" yaml:"imap"`
	Database   DatabaseConfig   `mapstructure:"database" yaml:"database"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler" yaml:"scheduler"`
	Categories []CategoryConfig `mapstructure:"categories" yaml:"categories"`
	Priority   PriorityConfig   `mapstructure:"priority" yaml:"priority"`
	Log        LogConfig        `mapstructure:"log" yaml:"log"`
}

const (
	// DefaultCron runs a scan every day at 06:00.
	DefaultCron = "0 6 * * *"

	envPrefix = "MAILMIGRATE"
)

// DefaultConfigPath returns the configuration file to use when none is
// given: config.local.yml in the working directory if it exists,
// otherwise config.yaml.
func DefaultConfigPath() string {
	if _, err := os.Stat("config.local.yml"); err == nil {
		return "config.local.yml"
	}
	return "config.yaml"
}

// DefaultCategories returns the built-in category definitions.
func DefaultCategories() []CategoryConfig {
	return []CategoryConfig{
		{Name: "social", Keywords: []string{"linkedin", "facebook", "twitter", "instagram"}},
		{Name: "financial", Keywords: []string{"paypal", "bank", "credit", "finance"}, Priority: PriorityHigh},
		{Name: "shopping", Keywords: []string{"amazon", "ebay", "aliexpress"}},
		{Name: "work", Keywords: []string{"linkedin", "github", "jira", "notion"}},
		{Name: "government", Keywords: []string{"gov", "tax", "irs"}, Priority: PriorityHigh},
		{Name: "health", Keywords: []string{"health", "medical", "doctor"}},
		{Name: "travel", Keywords: []string{"airbnb", "uber", "booking"}},
		{Name: "entertainment", Keywords: []string{"netflix", "spotify", "youtube"}},
		{Name: "education", Keywords: []string{"coursera", "udemy", "edx"}},
		{Name: "food", Keywords: []string{"ubereats", "deliveroo", "doordash"}},
		{Name: "technology", Keywords: []string{"github", "stackoverflow", "vercel"}},
		{Name: "utilities", Keywords: []string{"electric", "gas", "water", "internet"}},
		{Name: "newsletters", Keywords: []string{"newsletter", "substack", "mailing"}, Priority: PriorityLow},
	}
}

// DefaultAppConfig returns a sensible default configuration.
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		Emails: EmailsConfig{
			OldAddress:      "yourname@gmail.com",
			NewDomains:      []string{"yourdomain.com"},
			PersonalDomains: []string{"gmail.com", "protonmail.com", "yourdomain.com"},
		},
		IMAP: IMAPConfig{
			Host:       "127.0.0.1",
			Port:       "1143",
			Mailbox:    "INBOX",
			ScanLimit:  500,
			TimeoutSec: 60,
			BodyBytes:  16 * 1024,
		},
		Database: DatabaseConfig{
			Path: filepath.Join("data", "migration.db"),
		},
		Scheduler: SchedulerConfig{
			Cron: DefaultCron,
		},
		Categories: DefaultCategories(),
		Priority: PriorityConfig{
			HighDomains: []string{"paypal", "bank", "gov", "tax", "irs"},
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// LoadConfig reads configuration from the given YAML file path using
// Viper. Environment variables prefixed with MAILMIGRATE_ override file
// values. If the file does not exist, the defaults are returned.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := DefaultAppConfig()
	v.SetDefault("emails.old_address", def.Emails.OldAddress)
	v.SetDefault("emails.new_domains", def.Emails.NewDomains)
	v.SetDefault("emails.personal_domains", def.Emails.PersonalDomains)
	v.SetDefault("imap.host", def.IMAP.Host)
	v.SetDefault("imap.port", def.IMAP.Port)
	v.SetDefault("imap.username", "")
	v.SetDefault("imap.tls", def.IMAP.TLS)
	v.SetDefault("imap.mailbox", def.IMAP.Mailbox)
	v.SetDefault("imap.scan_limit", def.IMAP.ScanLimit)
	v.SetDefault("imap.timeout_sec", def.IMAP.TimeoutSec)
	v.SetDefault("imap.body_bytes", def.IMAP.BodyBytes)
	v.SetDefault("database.path", def.Database.Path)
	v.SetDefault("scheduler.enabled", def.Scheduler.Enabled)
	v.SetDefault("scheduler.cron", def.Scheduler.Cron)
	v.SetDefault("priority.high_domains", def.Priority.HighDomains)
	v.SetDefault("log.level", def.Log.Level)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); !ok {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		}
	}

	cfg := DefaultAppConfig()
	// Decoding into the default categories would merge each entry into
	// the default at the same index, leaking its priority.
	cfg.Categories = nil
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	// An explicit empty list is respected; an absent key keeps defaults.
	if !v.IsSet("categories") {
		cfg.Categories = DefaultCategories()
	}

	cfg.Normalize()
	return cfg, nil
}

// Normalize lowercases and de-duplicates every matching list so the
// classifier and aggregator can compare without further case folding.
func (c *AppConfig) Normalize() {
	c.Emails.OldAddress = strings.TrimSpace(c.Emails.OldAddress)
	c.Emails.NewDomains = normalizeList(c.Emails.NewDomains)
	c.Emails.PersonalDomains = normalizeList(c.Emails.PersonalDomains)
	c.Priority.HighDomains = normalizeList(c.Priority.HighDomains)

	for i := range c.Categories {
		c.Categories[i].Name = strings.TrimSpace(c.Categories[i].Name)
		c.Categories[i].Keywords = normalizeList(c.Categories[i].Keywords)
		c.Categories[i].Priority = strings.ToLower(strings.TrimSpace(c.Categories[i].Priority))
	}
	c.Categories = lo.Filter(c.Categories, func(cat CategoryConfig, _ int) bool {
		return cat.Name != ""
	})

	if c.IMAP.Mailbox == "" {
		c.IMAP.Mailbox = "INBOX"
	}
	if c.Scheduler.Cron == "" {
		c.Scheduler.Cron = DefaultCron
	}
}

// normalizeList trims, lowercases, strips a leading "@", and drops
// empty and duplicate entries while keeping the first occurrence order.
func normalizeList(in []string) []string {
	out := lo.Map(in, func(s string, _ int) string {
		return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "@")
	})
	return lo.Uniq(lo.Compact(out))
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("emails", cfg.Emails)
	v.Set("imap", cfg.IMAP)
	v.Set("database", cfg.Database)
	v.Set("scheduler", cfg.Scheduler)
	v.Set("categories", cfg.Categories)
	v.Set("priority", cfg.Priority)
	v.Set("log", cfg.Log)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
