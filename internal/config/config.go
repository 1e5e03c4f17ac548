package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Port        string   `yaml:"port"`
		Mode        string   `yaml:"mode"` // debug, release, test
		CORSOrigins []string `yaml:"cors_origins"`
	} `yaml:"server"`

	Database struct {
		Driver   string `yaml:"driver"` // postgres, sqlite
		Host     string `yaml:"host"`
		Port     string `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslmode"`
		Path     string `yaml:"path"` // sqlite file
		LogLevel string `yaml:"log_level"`
	} `yaml:"database"`

	JWT struct {
		Secret string `yaml:"secret"`
	} `yaml:"jwt"`

	Log struct {
		Level    string `yaml:"level"`
		Format   string `yaml:"format"`
		Output   string `yaml:"output"`
		FilePath string `yaml:"file_path"`
	} `yaml:"log"`

	Webhook struct {
		URL     string        `yaml:"url"`
		Secret  string        `yaml:"secret"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"webhook"`

	RateLimit struct {
		Public string `yaml:"public"` // limiter format, e.g. "60-M"
	} `yaml:"rate_limit"`

	Cache struct {
		Cleanup time.Duration `yaml:"cleanup"`
	} `yaml:"cache"`
}

// DSN builds the postgres connection string.
func (c *Config) DSN() string {
	d := c.Database
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.Name + "?sslmode=" + d.SSLMode
}

func defaults() *Config {
	c := &Config{}
	c.Server.Port = "8080"
	c.Server.Mode = "debug"
	c.Server.CORSOrigins = []string{"http://localhost:5173"}
	c.Database.Driver = "postgres"
	c.Database.Host = "localhost"
	c.Database.Port = "5432"
	c.Database.User = "postgres"
	c.Database.Password = "postgres"
	c.Database.Name = "carwash"
	c.Database.SSLMode = "disable"
	c.Database.Path = "carwash.db"
	c.Database.LogLevel = "warn"
	c.Log.Level = "info"
	c.Log.Format = "text"
	c.Log.Output = "console"
	c.Log.FilePath = "logs/app.log"
	c.Webhook.Timeout = 5 * time.Second
	c.RateLimit.Public = "120-M"
	c.Cache.Cleanup = 10 * time.Minute
	return c
}

// Load reads the YAML file at path (optional when empty or missing), then
// lets .env files and the environment override it.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path == "" {
		for _, p := range []string{"config.yaml", filepath.Join("configs", "config.yaml")} {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	// .env is optional; real environment wins over it
	_ = godotenv.Load("configs/.env", ".env")
	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func applyEnv(c *Config) {
	setString(&c.Server.Port, "PORT")
	setString(&c.Server.Mode, "GIN_MODE")
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		c.Server.CORSOrigins = strings.Split(v, ",")
	}
	setString(&c.Database.Driver, "DB_DRIVER")
	setString(&c.Database.Host, "DB_HOST")
	setString(&c.Database.Port, "DB_PORT")
	setString(&c.Database.User, "DB_USER")
	setString(&c.Database.Password, "DB_PASSWORD")
	setString(&c.Database.Name, "DB_NAME")
	setString(&c.Database.SSLMode, "DB_SSLMODE")
	setString(&c.Database.Path, "DB_PATH")
	setString(&c.Database.LogLevel, "DB_LOG_LEVEL")
	setString(&c.JWT.Secret, "JWT_SECRET")
	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Log.Format, "LOG_FORMAT")
	setString(&c.Log.Output, "LOG_OUTPUT")
	setString(&c.Log.FilePath, "LOG_FILE")
	setString(&c.Webhook.URL, "WEBHOOK_URL")
	setString(&c.Webhook.Secret, "WEBHOOK_SECRET")
	if v := os.Getenv("WEBHOOK_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Webhook.Timeout = d
		}
	}
	setString(&c.RateLimit.Public, "RATE_LIMIT_PUBLIC")
}

func (c *Config) Validate() error {
	if _, err := strconv.Atoi(c.Server.Port); err != nil {
		return fmt.Errorf("invalid server port %q", c.Server.Port)
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Webhook.URL != "" && !govalidator.IsURL(c.Webhook.URL) {
		return fmt.Errorf("invalid webhook url %q", c.Webhook.URL)
	}
	if c.Webhook.URL != "" && c.Webhook.Secret == "" {
		return errors.New("webhook secret is required when a webhook url is set")
	}
	for _, o := range c.Server.CORSOrigins {
		if o != "*" && !govalidator.IsURL(o) {
			return fmt.Errorf("invalid cors origin %q", o)
		}
	}
	if c.JWT.Secret == "" {
		if c.Server.Mode == "release" {
			return errors.New("JWT_SECRET is required in release mode")
		}
		c.JWT.Secret = "dev_only_secret"
	}
	return nil
}
