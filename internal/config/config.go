package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone = "UTC"
	configPathEnv   = "PUBLISH_NOTIFIER_CONFIG"

	logLevelEnv       = "LOG_LEVEL"
	databaseDriverEnv = "DATABASE_DRIVER"
	databaseDSNEnv    = "DATABASE_DSN"
	brevoAPIKeyEnv    = "BREVO_API_KEY"
	brevoListIDEnv    = "BREVO_LIST_ID"
	enableArticleEnv  = "ENABLE_ARTICLE_NOTIFICATIONS"
	enableVideoEnv    = "ENABLE_VIDEO_NOTIFICATIONS"
	frontendURLEnv    = "FRONTEND_URL"
	backendURLEnv     = "BACKEND_URL"
	contactAdminEnv   = "CONTACT_ADMIN_EMAIL"
	contactRateEnv    = "CONTACT_RATE_LIMIT"
	adminTokenEnv     = "ADMIN_TOKEN"
	webhookSecretEnv  = "WEBHOOK_SECRET"
	trustForwardedEnv = "TRUST_FORWARDED_FOR"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Database      DatabaseConfig     `yaml:"database"`
	HTTP          HTTPConfig         `yaml:"http"`
	Brevo         BrevoConfig        `yaml:"brevo"`
	Notifications NotificationConfig `yaml:"notifications"`
	Contact       ContactConfig      `yaml:"contact"`
	Audit         AuditConfig        `yaml:"audit"`
}

// LoggingConfig selects the slog level and output format (text or json).
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DatabaseConfig describes the ledger database.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// HTTPConfig configures the public and admin API listener.
type HTTPConfig struct {
	Addr          string        `yaml:"addr"`
	AdminToken    string        `yaml:"adminToken"`
	WebhookSecret string        `yaml:"webhookSecret"`
	ReadTimeout   time.Duration `yaml:"readTimeout"`
	WriteTimeout  time.Duration `yaml:"writeTimeout"`
	// TrustForwardedFor keys rate limits on X-Forwarded-For. Enable it only
	// behind a proxy that overwrites the header.
	TrustForwardedFor bool `yaml:"trustForwardedFor"`
}

// BrevoConfig defines how to contact the email provider.
type BrevoConfig struct {
	BaseURL     string        `yaml:"baseUrl"`
	APIKey      string        `yaml:"apiKey"`
	ListID      int64         `yaml:"listId"`
	SenderName  string        `yaml:"senderName"`
	SenderEmail string        `yaml:"senderEmail"`
	Timeout     time.Duration `yaml:"timeout"`
}

// NotificationConfig holds the per-kind switches and link bases used in emails.
type NotificationConfig struct {
	EnableArticle  bool   `yaml:"enableArticle"`
	EnableVideo    bool   `yaml:"enableVideo"`
	SiteName       string `yaml:"siteName"`
	FrontendURL    string `yaml:"frontendUrl"`
	BackendURL     string `yaml:"backendUrl"`
	UnsubscribeURL string `yaml:"unsubscribeUrl"`
}

// ContactConfig describes where contact notifications go and how fast
// submissions are accepted.
type ContactConfig struct {
	AdminEmail string `yaml:"adminEmail"`
	AdminName  string `yaml:"adminName"`
	RateLimit  string `yaml:"rateLimit"`
}

// AuditConfig schedules the read-only stale pending report.
type AuditConfig struct {
	CronExpression    string         `yaml:"cronExpression"`
	Timezone          string         `yaml:"timezone"`
	PendingStaleAfter time.Duration  `yaml:"pendingStaleAfter"`
	location          *time.Location `yaml:"-"`
}

// Location resolves the audit timezone string to a time.Location.
func (a AuditConfig) Location() *time.Location {
	if a.location != nil {
		return a.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else if fileCfg, err := Parse(raw); err != nil {
			log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
		} else {
			cfg = fileCfg
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()
	return cfg
}

// Parse decodes YAML over the defaults; keys absent from the document keep
// their default value, so an explicit false is honoured.
func Parse(raw []byte) (Config, error) {
	cfg := defaultConfig()
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, err
	}
	cfg.bindTimezone()
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(databaseDriverEnv); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv(brevoAPIKeyEnv); v != "" {
		c.Brevo.APIKey = v
	}
	if v := os.Getenv(brevoListIDEnv); v != "" {
		if id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			c.Brevo.ListID = id
		} else {
			log.Printf("config: invalid %s=%q: %v", brevoListIDEnv, v, err)
		}
	}
	if v, ok := envBool(enableArticleEnv); ok {
		c.Notifications.EnableArticle = v
	}
	if v, ok := envBool(enableVideoEnv); ok {
		c.Notifications.EnableVideo = v
	}
	if v := os.Getenv(frontendURLEnv); v != "" {
		c.Notifications.FrontendURL = v
	}
	if v := os.Getenv(backendURLEnv); v != "" {
		c.Notifications.BackendURL = v
	}
	if v := os.Getenv(contactAdminEnv); v != "" {
		c.Contact.AdminEmail = v
	}
	if v := os.Getenv(contactRateEnv); v != "" {
		c.Contact.RateLimit = v
	}
	if v := os.Getenv(adminTokenEnv); v != "" {
		c.HTTP.AdminToken = v
	}
	if v := os.Getenv(webhookSecretEnv); v != "" {
		c.HTTP.WebhookSecret = v
	}
	if v, ok := envBool(trustForwardedEnv); ok {
		c.HTTP.TrustForwardedFor = v
	}
}

func envBool(key string) (bool, bool) {
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return false, false
	}
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		log.Printf("config: invalid %s=%q: %v", key, raw, err)
		return false, false
	}
	return v, true
}

func (c *Config) bindTimezone() {
	tz := c.Audit.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Audit.location = loc
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging:  LoggingConfig{Level: "info", Format: "text"},
		Database: DatabaseConfig{Driver: "sqlite", DSN: "data/notifier.db"},
		HTTP: HTTPConfig{
			Addr:         ":8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Brevo: BrevoConfig{
			BaseURL:     "https://api.brevo.com/v3",
			SenderName:  "Newsroom",
			SenderEmail: "newsroom@example.org",
			Timeout:     10 * time.Second,
		},
		Notifications: NotificationConfig{
			EnableArticle: true,
			EnableVideo:   true,
			SiteName:      "Newsroom",
			FrontendURL:   "http://localhost:3000",
			BackendURL:    "http://localhost:8000",
		},
		Contact: ContactConfig{
			AdminEmail: "newsroom@example.org",
			AdminName:  "Newsroom",
			RateLimit:  "5/hour",
		},
		Audit: AuditConfig{
			CronExpression:    "*/15 * * * *",
			Timezone:          defaultTimezone,
			PendingStaleAfter: 30 * time.Minute,
			location:          tz,
		},
	}
}
