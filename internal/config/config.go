// Package config loads service configuration from the environment, with an
// optional YAML overlay for translation provider settings.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joeshaw/envdecode"
	"gopkg.in/yaml.v3"
)

// Config holds everything the bookreader process needs to run. Variable names
// match the deployment's compose file so the binary drops in unchanged.
type Config struct {
	Port  int  `env:"PORT,default=8000"`
	Debug bool `env:"-"`

	SecretKey string `env:"-"`

	DB struct {
		Host     string `env:"DB_HOST,default=localhost"`
		Port     int    `env:"DB_PORT,default=5432"`
		Name     string `env:"DB_NAME,default=bookreader"`
		User     string `env:"DB_USER,default=bookreader"`
		Password string `env:"DB_PASSWORD"`
		SSLMode  string `env:"DB_SSLMODE,default=disable"`
	}

	Redis struct {
		Host string `env:"REDIS_HOST,default=localhost"`
		Port int    `env:"REDIS_PORT,default=6379"`
		DB   int    `env:"REDIS_DB,default=0"`
	}

	Providers Providers

	AllowedOrigins []string `env:"ALLOWED_ORIGINS,default=*"`

	// Translation throttle: requests per minute per user.
	TranslateRatePerMinute int `env:"TRANSLATE_RATE_PER_MINUTE,default=30"`
	TranslateBurst         int `env:"TRANSLATE_BURST,default=5"`
}

// Providers configures the external services the reader talks to.
type Providers struct {
	DeepLAPIKey  string `env:"DEEPL_API_KEY" yaml:"deepl_api_key"`
	DeepLBaseURL string `env:"DEEPL_BASE_URL,default=https://api-free.deepl.com/v2/translate" yaml:"deepl_base_url"`

	OpenAIAPIKey  string `env:"OPENAI_API_KEY" yaml:"openai_api_key"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL,default=https://api.openai.com/v1/chat/completions" yaml:"openai_base_url"`

	GoogleOAuthClientID string `env:"GOOGLE_OAUTH2_CLIENT_ID" yaml:"google_oauth_client_id"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode environment: %w", err)
	}

	cfg.SecretKey = firstEnv("SECRET_KEY", "DJANGO_SECRET_KEY")
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("SECRET_KEY (or DJANGO_SECRET_KEY) is required")
	}

	debug := firstEnv("DEBUG", "DJANGO_DEBUG")
	if debug != "" {
		parsed, err := strconv.ParseBool(strings.ToLower(debug))
		if err != nil {
			return nil, fmt.Errorf("invalid DEBUG value %q", debug)
		}
		cfg.Debug = parsed
	}

	return &cfg, nil
}

// LoadProvidersFromPath overlays provider settings from a YAML file. Fields
// left empty in the file keep their environment values.
func (c *Config) LoadProvidersFromPath(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read providers config: %w", err)
	}

	var overlay Providers
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("parse providers config: %w", err)
	}

	if overlay.DeepLAPIKey != "" {
		c.Providers.DeepLAPIKey = overlay.DeepLAPIKey
	}
	if overlay.DeepLBaseURL != "" {
		c.Providers.DeepLBaseURL = overlay.DeepLBaseURL
	}
	if overlay.OpenAIAPIKey != "" {
		c.Providers.OpenAIAPIKey = overlay.OpenAIAPIKey
	}
	if overlay.OpenAIBaseURL != "" {
		c.Providers.OpenAIBaseURL = overlay.OpenAIBaseURL
	}
	if overlay.GoogleOAuthClientID != "" {
		c.Providers.GoogleOAuthClientID = overlay.GoogleOAuthClientID
	}
	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DB.Host, c.DB.Port, c.DB.Name, c.DB.User, c.DB.Password, c.DB.SSLMode)
}

// RedisAddr returns the host:port the Redis client should dial.
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// ListenAddr returns the HTTP bind address.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("0.0.0.0:%d", c.Port)
}

func firstEnv(names ...string) string {
	for _, name := range names {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v
		}
	}
	return ""
}
