package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/cine-social/cine-cli/internal/api"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	DefaultTimeout           = 10 * time.Second
	DefaultRequestsPerSecond = 5.0
	DefaultLogLevel          = "warn"
)

// Config holds the settings shared by every command.
type Config struct {
	APIURL            string
	LogLevel          string
	Timeout           time.Duration
	RequestsPerSecond float64
}

// Flags returns the global flags of the root command. Each can also be set
// from the environment or a .env file.
func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "api-url",
			Usage:   "Base URL of the cine API",
			Value:   api.DefaultBaseURL,
			Sources: cli.EnvVars("CINE_API_URL"),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "Log level (debug, info, warn, error)",
			Value:   DefaultLogLevel,
			Sources: cli.EnvVars("CINE_LOG_LEVEL"),
		},
		&cli.DurationFlag{
			Name:    "timeout",
			Usage:   "Per-request timeout",
			Value:   DefaultTimeout,
			Sources: cli.EnvVars("CINE_TIMEOUT"),
		},
		&cli.FloatFlag{
			Name:    "rate",
			Usage:   "Maximum API requests per second (0 disables throttling)",
			Value:   DefaultRequestsPerSecond,
			Sources: cli.EnvVars("CINE_RATE_LIMIT"),
		},
	}
}

// LoadEnvFiles loads variables from the given files, ".env" when none are
// named, without overriding variables already set. Missing files are skipped.
func LoadEnvFiles(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// FromCommand reads the global flags visible from cmd and validates them.
func FromCommand(cmd *cli.Command) (Config, error) {
	cfg := Config{
		APIURL:            strings.TrimSpace(cmd.String("api-url")),
		LogLevel:          cmd.String("log-level"),
		Timeout:           cmd.Duration("timeout"),
		RequestsPerSecond: cmd.Float("rate"),
	}
	return cfg, cfg.Validate()
}

// Validate checks every field.
func (c Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid api url %q: want an absolute http(s) url", c.APIURL)
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("invalid timeout %s: must be positive", c.Timeout)
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("invalid rate %g: must not be negative", c.RequestsPerSecond)
	}
	return nil
}

// Client returns an API client for the configured endpoint.
func (c Config) Client(log *zap.Logger) *api.Client {
	burst := int(c.RequestsPerSecond)
	if burst < 1 {
		burst = 1
	}
	return api.NewClient(c.APIURL,
		api.WithTimeout(c.Timeout),
		api.WithRateLimit(c.RequestsPerSecond, burst),
		api.WithLogger(log),
	)
}
