package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	Env     string `env:"ENV" envDefault:"local" validate:"required,oneof=local staging production"`
	Port    string `env:"PORT" envDefault:"8080" validate:"required"`
	AppName string `env:"APP_NAME" envDefault:"Racan Auth"`
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:8080"`

	// Backend selects the auth implementation once at startup: the
	// self-hosted credential store or the hosted provider adapter.
	Backend string `env:"AUTH_BACKEND" envDefault:"selfhosted" validate:"required,oneof=selfhosted hosted"`

	MongoURI      string        `env:"MONGO_URI" envDefault:"mongodb://localhost:27017"`
	MongoDatabase string        `env:"MONGO_DATABASE" envDefault:"racan_auth"`
	MongoTimeout  time.Duration `env:"MONGO_TIMEOUT" envDefault:"5s"`
	MongoPoolSize uint64        `env:"MONGO_MAX_POOL_SIZE" envDefault:"20" validate:"min=1,max=500"`

	JWTSecret  string        `env:"JWT_SECRET,required" validate:"required,min=32"`
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"24h"`

	// Hosted provider settings. Only validated when AUTH_BACKEND=hosted.
	HostedBaseURL string `env:"HOSTED_AUTH_URL" validate:"required_if=Backend hosted"`
	HostedAPIKey  string `env:"HOSTED_AUTH_API_KEY" validate:"required_if=Backend hosted"`

	// OAuth (hosted path only).
	OAuthIssuerURL    string `env:"OAUTH_ISSUER_URL"`
	OAuthClientID     string `env:"OAUTH_CLIENT_ID"`
	OAuthClientSecret string `env:"OAUTH_CLIENT_SECRET"`
	OAuthRedirectURL  string `env:"OAUTH_REDIRECT_URL"`

	ResendAPIKey string `env:"RESEND_API_KEY" validate:"required_if=Env production,required_if=Env staging"`
	ResendFrom   string `env:"RESEND_FROM" validate:"required_if=Env production,required_if=Env staging"`

	AllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*"`
}

func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Origins splits the configured CORS origin list.
func (c *Config) Origins() []string {
	parts := strings.Split(c.AllowedOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}
