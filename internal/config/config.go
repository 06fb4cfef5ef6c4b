// Package config reads settings from the environment, an optional .env file
// and an optional YAML file named by CONFIG_FILE.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	BackendEmbedded   = "embedded"
	BackendRelational = "relational"
)

type Config struct {
	App    AppConfig    `mapstructure:"app"`
	Server ServerConfig `mapstructure:"server"`
	Store  StoreConfig  `mapstructure:"store"`
	DB     DBConfig     `mapstructure:"db"`
	Log    LogConfig    `mapstructure:"log"`
	Auth   AuthConfig   `mapstructure:"auth"`
}

type AppConfig struct {
	Env    string `mapstructure:"env"`
	Locale string `mapstructure:"locale"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	RateLimitRPS    float64       `mapstructure:"rate_limit_rps"`
	RateLimitBurst  int           `mapstructure:"rate_limit_burst"`
	// TrustedProxies lists the addresses or CIDRs allowed to set
	// X-Forwarded-For. Empty means the header is ignored.
	TrustedProxies []string `mapstructure:"trusted_proxies"`
}

// ProxyNets parses TrustedProxies. A bare address becomes a single-host
// network.
func (s ServerConfig) ProxyNets() ([]*net.IPNet, error) {
	nets := make([]*net.IPNet, 0, len(s.TrustedProxies))
	for _, entry := range s.TrustedProxies {
		if strings.Contains(entry, "/") {
			_, n, err := net.ParseCIDR(entry)
			if err != nil {
				return nil, fmt.Errorf("invalid TRUSTED_PROXIES entry %q: %w", entry, err)
			}
			nets = append(nets, n)
			continue
		}
		ip := net.ParseIP(entry)
		if ip == nil {
			return nil, fmt.Errorf("invalid TRUSTED_PROXIES entry %q", entry)
		}
		bits := 8 * net.IPv6len
		if v4 := ip.To4(); v4 != nil {
			ip, bits = v4, 8*net.IPv4len
		}
		nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
	}
	return nets, nil
}

type StoreConfig struct {
	Backend      string `mapstructure:"backend"`
	EmbeddedPath string `mapstructure:"embedded_path"`
}

type DBConfig struct {
	Driver   string `mapstructure:"driver"`
	DSN      string `mapstructure:"dsn"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // console or json
	File   string `mapstructure:"file"`
}

type AuthConfig struct {
	SessionKey         string   `mapstructure:"session_key"`
	GoogleClientID     string   `mapstructure:"google_client_id"`
	GoogleClientSecret string   `mapstructure:"google_client_secret"`
	BaseURL            string   `mapstructure:"base_url"`
	AllowedEmails      []string `mapstructure:"allowed_emails"`
}

// OAuthEnabled reports whether the API should require an admin session.
func (a AuthConfig) OAuthEnabled() bool {
	return a.GoogleClientID != "" && a.GoogleClientSecret != ""
}

func (c *Config) IsProduction() bool {
	e := strings.ToLower(c.App.Env)
	return e == "production" || e == "prod"
}

var envKeys = map[string]string{
	"app.env":                   "APP_ENV",
	"app.locale":                "APP_LOCALE",
	"server.port":               "PORT",
	"server.read_timeout":       "SERVER_READ_TIMEOUT",
	"server.write_timeout":      "SERVER_WRITE_TIMEOUT",
	"server.shutdown_timeout":   "SERVER_SHUTDOWN_TIMEOUT",
	"server.rate_limit_rps":     "RATE_LIMIT_RPS",
	"server.rate_limit_burst":   "RATE_LIMIT_BURST",
	"server.trusted_proxies":    "TRUSTED_PROXIES",
	"store.backend":             "STORE_BACKEND",
	"store.embedded_path":       "EMBEDDED_PATH",
	"db.driver":                 "DB_DRIVER",
	"db.dsn":                    "DB_DSN",
	"db.host":                   "DB_HOST",
	"db.port":                   "DB_PORT",
	"db.user":                   "DB_USER",
	"db.password":               "DB_PASSWORD",
	"db.name":                   "DB_NAME",
	"db.sslmode":                "DB_SSLMODE",
	"log.level":                 "LOG_LEVEL",
	"log.format":                "LOG_FORMAT",
	"log.file":                  "LOG_FILE",
	"auth.session_key":          "SESSION_KEY",
	"auth.google_client_id":     "GOOGLE_CLIENT_ID",
	"auth.google_client_secret": "GOOGLE_CLIENT_SECRET",
	"auth.base_url":             "BASE_URL",
	"auth.allowed_emails":       "ADMIN_ALLOWED_EMAILS",
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	for key, env := range envKeys {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}
	if err := v.BindEnv("config_file", "CONFIG_FILE"); err != nil {
		return nil, err
	}
	if path := v.GetString("config_file"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.locale", "pt-BR")

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "5s")
	v.SetDefault("server.rate_limit_rps", 20)
	v.SetDefault("server.rate_limit_burst", 40)
	v.SetDefault("server.trusted_proxies", []string{})

	v.SetDefault("store.backend", BackendEmbedded)
	v.SetDefault("store.embedded_path", "data/comprarapida.db")

	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", "")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "postgres")
	v.SetDefault("db.name", "comprarapida")
	v.SetDefault("db.sslmode", "disable")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "")
	v.SetDefault("log.file", "")

	v.SetDefault("auth.session_key", "")
	v.SetDefault("auth.google_client_id", "")
	v.SetDefault("auth.google_client_secret", "")
	v.SetDefault("auth.base_url", "http://localhost:8080")
	v.SetDefault("auth.allowed_emails", []string{})
}

func (c *Config) normalize() {
	c.Store.Backend = strings.ToLower(strings.TrimSpace(c.Store.Backend))
	c.DB.Driver = strings.ToLower(strings.TrimSpace(c.DB.Driver))
	if c.Log.Format == "" {
		c.Log.Format = "console"
		if c.IsProduction() {
			c.Log.Format = "json"
		}
	}
	c.Auth.BaseURL = strings.TrimRight(c.Auth.BaseURL, "/")

	c.Auth.AllowedEmails = splitList(c.Auth.AllowedEmails, strings.ToLower)
	c.Server.TrustedProxies = splitList(c.Server.TrustedProxies, nil)
}

// splitList flattens comma separated env values and drops blanks.
func splitList(raw []string, norm func(string) string) []string {
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		for _, e := range strings.Split(item, ",") {
			e = strings.TrimSpace(e)
			if norm != nil {
				e = norm(e)
			}
			if e != "" {
				out = append(out, e)
			}
		}
	}
	return out
}

func (c *Config) validate() error {
	switch c.Store.Backend {
	case BackendEmbedded, BackendRelational:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q (want %s or %s)", c.Store.Backend, BackendEmbedded, BackendRelational)
	}
	if c.Server.RateLimitRPS < 0 || c.Server.RateLimitBurst < 0 {
		return errors.New("rate limit settings must not be negative")
	}
	if _, err := c.Server.ProxyNets(); err != nil {
		return err
	}
	if c.Auth.OAuthEnabled() {
		if c.Auth.SessionKey == "" {
			return errors.New("SESSION_KEY is required when Google login is configured")
		}
		if len(c.Auth.AllowedEmails) == 0 {
			return errors.New("ADMIN_ALLOWED_EMAILS is required when Google login is configured")
		}
	}
	return nil
}

// DatabaseDSN returns DB_DSN when set, otherwise a DSN assembled from the
// individual DB_* settings for the configured driver.
func (c *Config) DatabaseDSN() string {
	d := c.DB
	if strings.TrimSpace(d.DSN) != "" {
		return d.DSN
	}
	switch d.Driver {
	case "mysql":
		port := d.Port
		if port == "" {
			port = "3306"
		}
		return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true&charset=utf8mb4",
			d.User, d.Password, net.JoinHostPort(d.Host, port), d.Name)
	case "sqlite", "sqlite3":
		return "file:" + d.Name + ".db"
	default:
		port := d.Port
		if port == "" {
			port = "5432"
		}
		return "host=" + d.Host + " user=" + d.User + " password=" + d.Password +
			" dbname=" + d.Name + " port=" + port + " sslmode=" + d.SSLMode
	}
}

// RedactedDSN returns the DSN with its password masked, for logs.
func (c *Config) RedactedDSN() string {
	dsn := c.DatabaseDSN()
	if u, err := url.Parse(dsn); err == nil && u.User != nil {
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), "xxxxx")
			return u.String()
		}
	}
	if c.DB.Password != "" {
		dsn = strings.ReplaceAll(dsn, c.DB.Password, "xxxxx")
	}
	return dsn
}
