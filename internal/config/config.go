package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Wikid82/gatekeeper/internal/security"
)

// DefaultGeofencingAPIURL is the free ip-api.com endpoint (45 requests/minute).
const DefaultGeofencingAPIURL = "http://ip-api.com/json"

var (
	ErrInvalidRoutePattern = errors.New("invalid public route pattern")
	ErrInvalidGeoAPIURL    = errors.New("invalid geofencing API URL")
	ErrInvalidUpstreamURL  = errors.New("invalid upstream URL")
)

// Config captures runtime configuration sourced from an optional YAML file and
// environment variables. It is loaded once and passed by value afterwards.
type Config struct {
	Environment    string          `yaml:"environment"`
	HTTPPort       string          `yaml:"http_port"`
	MetricsPort    string          `yaml:"metrics_port"`
	DatabasePath   string          `yaml:"database_path"`
	LogDir         string          `yaml:"log_dir"`
	Debug          bool            `yaml:"debug"`
	NotifyURL      string          `yaml:"notify_url"`
	// UpstreamURL is the application admitted requests are proxied to.
	// Empty means the gatekeeper only serves its own routes.
	UpstreamURL    string          `yaml:"upstream_url"`
	TracingEnabled bool            `yaml:"tracing_enabled"`
	Security       SecurityConfig  `yaml:"security"`
	Session        SessionConfig   `yaml:"session"`
	AccessLog      AccessLogConfig `yaml:"access_log"`
}

// SecurityConfig is the admission policy snapshot.
type SecurityConfig struct {
	EnableIPWhitelist    bool     `yaml:"enable_ip_whitelist"`
	IPWhitelist          []string `yaml:"ip_whitelist"`
	EnableGeofencing     bool     `yaml:"enable_geofencing"`
	CountryWhitelist     []string `yaml:"country_whitelist"`
	GeofencingAPIURL     string   `yaml:"geofencing_api_url"`
	EnableRequestLogging bool     `yaml:"enable_request_logging"`
	// LogDeniedRequests also writes access log lines for 403 denials.
	LogDeniedRequests bool `yaml:"log_denied_requests"`
	// PublicRoutes overrides the built-in public route patterns when non-empty.
	PublicRoutes []string `yaml:"public_routes"`
}

type SessionConfig struct {
	Secret     string        `yaml:"secret"`
	TTL        time.Duration `yaml:"ttl"`
	CookieName string        `yaml:"cookie_name"`
}

type AccessLogConfig struct {
	// File is an optional path; lines always go to stdout as well.
	File string `yaml:"file"`
	// RotateSchedule is a cron spec for forced rotation of File.
	RotateSchedule string `yaml:"rotate_schedule"`
}

func defaults() Config {
	return Config{
		Environment:  "development",
		HTTPPort:     "8080",
		MetricsPort:  "9090",
		DatabasePath: filepath.Join("data", "gatekeeper.db"),
		LogDir:       filepath.Join("data", "logs"),
		Security: SecurityConfig{
			GeofencingAPIURL:     DefaultGeofencingAPIURL,
			EnableRequestLogging: true,
		},
		Session: SessionConfig{
			TTL:        24 * time.Hour,
			CookieName: "auth_token",
		},
		AccessLog: AccessLogConfig{
			RotateSchedule: "@daily",
		},
	}
}

// Load reads GATE_CONFIG_FILE (if set), then env vars, and falls back to
// defaults so the server can boot with zero configuration.
func Load() (Config, error) {
	cfg := defaults()

	if path := os.Getenv("GATE_CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	cfg.normalize()

	if err := cfg.check(); err != nil {
		return Config{}, err
	}

	if cfg.Session.Secret == "" {
		secret, err := randomSecret()
		if err != nil {
			return Config{}, fmt.Errorf("generate session secret: %w", err)
		}
		cfg.Session.Secret = secret
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0o755); err != nil {
		return Config{}, fmt.Errorf("ensure data directory: %w", err)
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Environment = getEnv("GATE_ENV", cfg.Environment)
	cfg.HTTPPort = getEnv("GATE_HTTP_PORT", cfg.HTTPPort)
	cfg.MetricsPort = getEnv("GATE_METRICS_PORT", cfg.MetricsPort)
	cfg.DatabasePath = getEnv("GATE_DB_PATH", cfg.DatabasePath)
	cfg.LogDir = getEnv("GATE_LOG_DIR", cfg.LogDir)
	cfg.NotifyURL = getEnv("GATE_NOTIFY_URL", cfg.NotifyURL)
	cfg.UpstreamURL = getEnv("GATE_UPSTREAM_URL", cfg.UpstreamURL)
	cfg.Debug = getBool("GATE_DEBUG", cfg.Debug)
	cfg.TracingEnabled = getBool("GATE_TRACING_ENABLED", cfg.TracingEnabled)

	sec := &cfg.Security
	sec.EnableIPWhitelist = getBool("ENABLE_IP_WHITELIST", sec.EnableIPWhitelist)
	sec.EnableGeofencing = getBool("ENABLE_GEOFENCING", sec.EnableGeofencing)
	if v, ok := os.LookupEnv("ENABLE_REQUEST_LOGGING"); ok {
		sec.EnableRequestLogging = v != "false"
	}
	sec.LogDeniedRequests = getBool("GATE_LOG_DENIED_REQUESTS", sec.LogDeniedRequests)
	sec.GeofencingAPIURL = getEnv("GEOFENCING_API_URL", sec.GeofencingAPIURL)
	if v, ok := os.LookupEnv("IP_WHITELIST"); ok {
		sec.IPWhitelist = strings.Split(v, ",")
	}
	if v, ok := os.LookupEnv("COUNTRY_WHITELIST"); ok {
		sec.CountryWhitelist = strings.Split(v, ",")
	}
	if v, ok := os.LookupEnv("GATE_PUBLIC_ROUTES"); ok {
		sec.PublicRoutes = strings.Split(v, ",")
	}

	cfg.Session.Secret = getEnv("GATE_SESSION_SECRET", cfg.Session.Secret)
	if v := os.Getenv("GATE_SESSION_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Session.TTL = d
		}
	}

	cfg.AccessLog.File = getEnv("GATE_ACCESS_LOG_FILE", cfg.AccessLog.File)
	cfg.AccessLog.RotateSchedule = getEnv("GATE_ACCESS_LOG_ROTATE", cfg.AccessLog.RotateSchedule)
}

func (c *Config) normalize() {
	c.Security.IPWhitelist = splitList(c.Security.IPWhitelist, false)
	c.Security.CountryWhitelist = splitList(c.Security.CountryWhitelist, true)
	c.Security.PublicRoutes = splitList(c.Security.PublicRoutes, false)
	if c.Security.GeofencingAPIURL == "" {
		c.Security.GeofencingAPIURL = DefaultGeofencingAPIURL
	}
	c.Security.GeofencingAPIURL = strings.TrimRight(c.Security.GeofencingAPIURL, "/")
	if c.Session.CookieName == "" {
		c.Session.CookieName = "auth_token"
	}
	if c.Session.TTL <= 0 {
		c.Session.TTL = 24 * time.Hour
	}
}

// check rejects settings that would make the pipeline misbehave silently.
func (c Config) check() error {
	for _, p := range c.Security.PublicRoutes {
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("%w %q: %v", ErrInvalidRoutePattern, p, err)
		}
	}
	u, err := url.Parse(c.Security.GeofencingAPIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidGeoAPIURL, c.Security.GeofencingAPIURL)
	}
	if c.UpstreamURL != "" {
		u, err := url.Parse(c.UpstreamURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%w: %q", ErrInvalidUpstreamURL, c.UpstreamURL)
		}
	}
	return nil
}

// Validate lists allow-list entries that will never match and country codes
// that are not recognised.
// These are reported, not fatal: a malformed entry simply matches nothing.
func (c Config) Validate() []error {
	var problems []error
	for _, entry := range c.Security.IPWhitelist {
		if err := security.ValidateAllowListEntry(entry); err != nil {
			problems = append(problems, err)
		}
	}
	for _, code := range c.Security.CountryWhitelist {
		if err := security.ValidateCountryCode(code); err != nil {
			problems = append(problems, err)
		}
	}
	if c.Security.EnableIPWhitelist && len(c.Security.IPWhitelist) == 0 {
		problems = append(problems, errors.New("IP whitelisting is enabled with an empty whitelist: all addresses are allowed"))
	}
	if c.Security.EnableGeofencing && len(c.Security.CountryWhitelist) == 0 {
		problems = append(problems, errors.New("geofencing is enabled with an empty country whitelist: all countries are allowed"))
	}
	return problems
}

// IsProduction reports whether cookies should be marked Secure.
func (c Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

func splitList(items []string, upper bool) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		for _, part := range strings.Split(item, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if upper {
				part = strings.ToUpper(part)
			}
			out = append(out, part)
		}
	}
	return out
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}

	return fallback
}

func getBool(key string, fallback bool) bool {
	val, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	return val == "true"
}
