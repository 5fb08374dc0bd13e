package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/Netflix/go-env"

	"github.com/openbotauth/openbotauth-go/internal/botauth"
)

// Environment variables with defaults
type ServerEnvironment struct {

	// http server settings
	Environment           string        `env:"ENVIRONMENT,default=dev"`
	Host                  string        `env:"HOST,default=0.0.0.0"`
	Port                  int           `env:"PORT,default=8080"`
	LogLevel              string        `env:"LOG_LEVEL,default=debug"`
	ServerShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT,default=10s"`
	ReadTimeout           time.Duration `env:"READ_TIMEOUT,default=15s"`
	WriteTimeout          time.Duration `env:"WRITE_TIMEOUT,default=15s"`
	IdleTimeout           time.Duration `env:"IDLE_TIMEOUT,default=60s"`
	RateLimitRPS          int32         `env:"RATE_LIMIT_RPS,default=100"`
	RateLimitBurst        int32         `env:"RATE_LIMIT_BURST,default=200"`
	MaxRequestSize        int64         `env:"MAX_REQUEST_SIZE,default=1048576"`

	// verification settings - fixed for the lifetime of the process
	VerifierURL     string        `env:"VERIFIER_URL,default=https://verifier.openbotauth.org/verify"`
	EnforcementMode string        `env:"ENFORCEMENT_MODE,default=observe"`
	VerifierTimeout time.Duration `env:"VERIFIER_TIMEOUT,default=5s"`
}

var validEnvs = map[string]bool{
	"dev":     true,
	"test":    true,
	"prod":    true,
	"staging": true,
}

// NewServerConfig loads environment variables and returns a ServerEnvironment struct that contains the values
func NewServerConfig() (*ServerEnvironment, error) {
	var cfg ServerEnvironment

	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal environment variables: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validateConfig checks the supplied env variables.
//
// Invalid configuration is the only fatal condition in the service: it is
// detected here, at startup, and never on the per-request path.
func validateConfig(cfg *ServerEnvironment) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}
	if !validEnvs[cfg.Environment] {
		return fmt.Errorf("invalid ENVIRONMENT: %s", cfg.Environment)
	}

	parsed, err := url.Parse(cfg.VerifierURL)
	if err != nil {
		return fmt.Errorf("invalid VERIFIER_URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("VERIFIER_URL must be an absolute URL, got %q", cfg.VerifierURL)
	}

	if _, err := botauth.ParseMode(cfg.EnforcementMode); err != nil {
		return fmt.Errorf("invalid ENFORCEMENT_MODE: %w", err)
	}

	if cfg.VerifierTimeout <= 0 {
		return fmt.Errorf("VERIFIER_TIMEOUT must be greater than 0")
	}

	if cfg.MaxRequestSize < 1 {
		return fmt.Errorf("MAX_REQUEST_SIZE must be at least 1")
	}

	return nil
}

// Mode returns the validated enforcement mode.
func (cfg *ServerEnvironment) Mode() botauth.Mode {
	mode, err := botauth.ParseMode(cfg.EnforcementMode)
	if err != nil {
		// NewServerConfig rejects unknown modes, so this only happens for a
		// hand-built config; fail open to observe
		return botauth.ModeObserve
	}
	return mode
}
