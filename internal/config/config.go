package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// DefaultSubmissionURL is the spreadsheet script endpoint records are posted to.
const DefaultSubmissionURL = "https://script.google.com/macros/s/AKfycbxzF2ONV2l5hQhKVkVUWoFl3igX8GngGFiKr14p8AwoKlWO2UMN8_iFdUaB6ubZxIkBhQ/exec"

// Config holds application configuration loaded from environment variables.
type Config struct {
	Port        int    `envconfig:"PORT" default:"8080"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	DBMaxConns  int32  `envconfig:"DB_MAX_CONNS" default:"0"`
	Version     string `envconfig:"VERSION" default:"dev"`
	BcryptCost  int    `envconfig:"BCRYPT_COST" default:"12"`

	JWTSecret            string `envconfig:"JWT_SECRET" required:"true"`
	TokenTTLMinutes      int    `envconfig:"TOKEN_TTL_MINUTES" default:"720"`
	SessionIdleMinutes   int    `envconfig:"SESSION_IDLE_MINUTES" default:"60"`
	SessionSweepSeconds  int    `envconfig:"SESSION_SWEEP_SECONDS" default:"30"`
	SessionResolveMillis int    `envconfig:"SESSION_RESOLVE_TIMEOUT_MS" default:"5000"`
	MinPasswordLength    int    `envconfig:"MIN_PASSWORD_LENGTH" default:"6"`

	SubmissionURL            string `envconfig:"SUBMISSION_URL" default:""`
	SubmissionMode           string `envconfig:"SUBMISSION_MODE" default:"verified"`
	SubmissionTimeoutSeconds int    `envconfig:"SUBMISSION_TIMEOUT_SECONDS" default:"0"`
	SubmissionSSRFGuard      bool   `envconfig:"SUBMISSION_SSRF_GUARD" default:"true"`
	SubmissionRatePerMinute  int    `envconfig:"SUBMISSION_RATE_PER_MINUTE" default:"30"`

	RoleUpdatesEnabled  bool `envconfig:"ROLE_UPDATES_ENABLED" default:"true"`
	AllowSelfRoleChange bool `envconfig:"ALLOW_SELF_ROLE_CHANGE" default:"false"`

	BootstrapAdminEmail    string `envconfig:"BOOTSTRAP_ADMIN_EMAIL" default:""`
	BootstrapAdminPassword string `envconfig:"BOOTSTRAP_ADMIN_PASSWORD" default:""`
	BootstrapAdminName     string `envconfig:"BOOTSTRAP_ADMIN_NAME" default:"Administrator"`
}

// Load reads configuration from environment variables into a Config struct.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.SubmissionURL == "" {
		cfg.SubmissionURL = DefaultSubmissionURL
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.SubmissionMode != "verified" && c.SubmissionMode != "opaque" {
		return fmt.Errorf("SUBMISSION_MODE must be \"verified\" or \"opaque\", got %q", c.SubmissionMode)
	}
	if c.TokenTTLMinutes <= 0 {
		return fmt.Errorf("TOKEN_TTL_MINUTES must be positive")
	}
	if c.SessionSweepSeconds <= 0 {
		return fmt.Errorf("SESSION_SWEEP_SECONDS must be positive")
	}
	if (c.BootstrapAdminEmail == "") != (c.BootstrapAdminPassword == "") {
		return fmt.Errorf("BOOTSTRAP_ADMIN_EMAIL and BOOTSTRAP_ADMIN_PASSWORD must be set together")
	}
	return nil
}

// TokenTTL is the bearer token lifetime.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLMinutes) * time.Minute
}

// SessionIdle is how long an unused client session is kept.
func (c *Config) SessionIdle() time.Duration {
	return time.Duration(c.SessionIdleMinutes) * time.Minute
}

// SessionSweepInterval is the period of the idle-session sweeper.
func (c *Config) SessionSweepInterval() time.Duration {
	return time.Duration(c.SessionSweepSeconds) * time.Second
}

// SessionResolveTimeout bounds how long a request waits for a resolving session.
func (c *Config) SessionResolveTimeout() time.Duration {
	return time.Duration(c.SessionResolveMillis) * time.Millisecond
}

// SubmissionTimeout is the outbound request timeout; zero means none.
func (c *Config) SubmissionTimeout() time.Duration {
	return time.Duration(c.SubmissionTimeoutSeconds) * time.Second
}
