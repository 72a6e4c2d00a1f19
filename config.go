package main

import (
	"errors"
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
)

type configOption struct {
	Key     string
	Default any
	Env     []string // legacy variable names, checked after PORTFOLIO_*
	Comment string
}

// configOptions lists every setting with its default. Older deployments set
// PORT, SMTP_* and ADMIN_* directly, so those names are still honoured.
func configOptions() []configOption {
	return []configOption{
		{Key: "port", Default: "8080", Env: []string{"PORT"}, Comment: "HTTP listen port"},
		{Key: "gin_mode", Default: gin.DebugMode, Env: []string{"GIN_MODE"}, Comment: "debug, release or test"},
		{Key: "content_file", Default: "", Comment: "YAML site file; empty uses the built-in content"},
		{Key: "db_path", Default: "portfolio.db", Comment: "SQLite database for visitor analytics"},
		{Key: "analytics.enabled", Default: true, Comment: "Record privacy-conscious visitor metrics"},
		{Key: "analytics.retention_days", Default: 365, Comment: "Visitor rows older than this are purged"},
		{Key: "admin.username", Default: "", Env: []string{"ADMIN_USERNAME"}, Comment: "Admin dashboard user"},
		{Key: "admin.password", Default: "", Env: []string{"ADMIN_PASSWORD"}, Comment: "Admin dashboard password"},
		{Key: "smtp.host", Default: "smtp.gmail.com", Env: []string{"SMTP_HOST"}, Comment: "SMTP server for the contact form"},
		{Key: "smtp.port", Default: "587", Env: []string{"SMTP_PORT"}, Comment: "SMTP port"},
		{Key: "smtp.user", Default: "", Env: []string{"SMTP_USER"}, Comment: "SMTP user (also the From address)"},
		{Key: "smtp.pass", Default: "", Env: []string{"SMTP_PASS"}, Comment: "SMTP app password"},
		{Key: "smtp.to", Default: "", Env: []string{"TO_EMAIL"}, Comment: "Recipient of contact messages; defaults to the site owner"},
		{Key: "github.enabled", Default: true, Comment: "Fetch the live star count from the GitHub API"},
		{Key: "github.repo", Default: "", Comment: "owner/repo override for the star button"},
		{Key: "github.api_url", Default: "https://api.github.com", Comment: "GitHub REST API base URL"},
		{Key: "github.fallback_stars", Default: 0, Comment: "Star count shown when the API is unavailable"},
		{Key: "github.cache_ttl", Default: "15m", Comment: "How long a fetched star count is reused"},
		{Key: "emoji.extra", Default: []string{}, Comment: "Glyphs decorated in addition to the built-in allow-list"},
	}
}

type AnalyticsConfig struct {
	Enabled       bool
	RetentionDays int
}

type AdminConfig struct {
	Username string
	Password string
}

type SMTPConfig struct {
	Host string
	Port string
	User string
	Pass string
	To   string
}

type GitHubConfig struct {
	Enabled       bool
	Repo          string
	APIURL        string
	FallbackStars int
	CacheTTL      time.Duration
}

// Config is the resolved runtime configuration.
type Config struct {
	Port        string
	GinMode     string
	ContentFile string
	DBPath      string
	Analytics   AnalyticsConfig
	Admin       AdminConfig
	SMTP        SMTPConfig
	GitHub      GitHubConfig
	ExtraEmoji  []string
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + c.Port
}

// loadConfig resolves configuration with precedence defaults < file < env.
// A missing config file is not an error unless path was given explicitly.
func loadConfig(v *viper.Viper, path string) error {
	for _, o := range configOptions() {
		v.SetDefault(o.Key, o.Default)
		env := append([]string{"PORTFOLIO_" + strings.ToUpper(strings.NewReplacer(".", "_").Replace(o.Key))}, o.Env...)
		if err := v.BindEnv(append([]string{o.Key}, env...)...); err != nil {
			return fmt.Errorf("bind env %s: %w", o.Key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
		return nil
	}

	v.SetConfigName("portfolio")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

// checkConfig validates v and returns every problem joined.
func checkConfig(v *viper.Viper) error {
	var errs []error

	if p, err := strconv.Atoi(v.GetString("port")); err != nil || p <= 0 || p > 65535 {
		errs = append(errs, fmt.Errorf("port must be between 1 and 65535, got %q", v.GetString("port")))
	}
	switch v.GetString("gin_mode") {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
	default:
		errs = append(errs, fmt.Errorf("gin_mode must be debug, release or test, got %q", v.GetString("gin_mode")))
	}
	if v.GetBool("analytics.enabled") {
		if strings.TrimSpace(v.GetString("db_path")) == "" {
			errs = append(errs, errors.New("db_path is required when analytics is enabled"))
		}
		if v.GetInt("analytics.retention_days") <= 0 {
			errs = append(errs, errors.New("analytics.retention_days must be greater than 0"))
		}
	}
	if to := v.GetString("smtp.to"); to != "" {
		if _, err := mail.ParseAddress(to); err != nil {
			errs = append(errs, fmt.Errorf("smtp.to is not a valid address: %q", to))
		}
	}
	if repo := v.GetString("github.repo"); repo != "" && strings.Count(repo, "/") != 1 {
		errs = append(errs, fmt.Errorf("github.repo must look like owner/repo, got %q", repo))
	}
	if v.GetInt("github.fallback_stars") < 0 {
		errs = append(errs, errors.New("github.fallback_stars must not be negative"))
	}
	if _, err := time.ParseDuration(v.GetString("github.cache_ttl")); err != nil {
		errs = append(errs, fmt.Errorf("github.cache_ttl: %w", err))
	}
	return errors.Join(errs...)
}

// configFromViper snapshots v into a Config. Call checkConfig first.
func configFromViper(v *viper.Viper) Config {
	ttl, _ := time.ParseDuration(v.GetString("github.cache_ttl"))
	return Config{
		Port:        v.GetString("port"),
		GinMode:     v.GetString("gin_mode"),
		ContentFile: v.GetString("content_file"),
		DBPath:      v.GetString("db_path"),
		Analytics: AnalyticsConfig{
			Enabled:       v.GetBool("analytics.enabled"),
			RetentionDays: v.GetInt("analytics.retention_days"),
		},
		Admin: AdminConfig{
			Username: v.GetString("admin.username"),
			Password: v.GetString("admin.password"),
		},
		SMTP: SMTPConfig{
			Host: v.GetString("smtp.host"),
			Port: v.GetString("smtp.port"),
			User: v.GetString("smtp.user"),
			Pass: v.GetString("smtp.pass"),
			To:   v.GetString("smtp.to"),
		},
		GitHub: GitHubConfig{
			Enabled:       v.GetBool("github.enabled"),
			Repo:          v.GetString("github.repo"),
			APIURL:        strings.TrimRight(v.GetString("github.api_url"), "/"),
			FallbackStars: v.GetInt("github.fallback_stars"),
			CacheTTL:      ttl,
		},
		ExtraEmoji: splitList(v.GetStringSlice("emoji.extra")),
	}
}

// splitList flattens comma-separated entries, which is how a list arrives
// from an environment variable.
func splitList(in []string) []string {
	var out []string
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
