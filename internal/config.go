package internal

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds everything the client needs to reach the API and the identity provider
type Config struct {
	APIURL         string        `env:"FSSVA_API_URL" envDefault:"http://localhost:8000" yaml:"api_url"`
	ClientID       string        `env:"FSSVA_CLIENT_ID" yaml:"client_id"`
	TenantID       string        `env:"FSSVA_TENANT_ID" envDefault:"common" yaml:"tenant_id"`
	Authority      string        `env:"FSSVA_AUTHORITY" yaml:"authority"` // overrides the tenant-derived endpoint
	Scopes         []string      `env:"FSSVA_SCOPES" envSeparator:"," envDefault:"openid,profile,email,offline_access" yaml:"scopes"`
	RedirectPort   int           `env:"FSSVA_REDIRECT_PORT" envDefault:"51121" yaml:"redirect_port"`
	StaticToken    string        `env:"FSSVA_STATIC_TOKEN" yaml:"static_token"` // development bypass of the login flow
	FlushInterval  time.Duration `env:"FSSVA_FLUSH_INTERVAL" envDefault:"50ms" yaml:"flush_interval"`
	RequestTimeout time.Duration `env:"FSSVA_REQUEST_TIMEOUT" envDefault:"30s" yaml:"request_timeout"`
	DataDir        string        `env:"FSSVA_DATA_DIR" yaml:"data_dir"`
	LogFile        string        `env:"FSSVA_LOG_FILE" yaml:"log_file"`
}

// LoadConfig reads .env (if present), then an optional YAML file, then the
// environment. Later sources win.
func LoadConfig(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		LogWarn("Failed to load .env: %v", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
		// Environment keeps precedence over the file for anything it sets explicitly
		if err := env.ParseWithOptions(cfg, env.Options{
			Environment:         explicitEnv(),
			DefaultValueTagName: "noDefault",
		}); err != nil {
			return nil, fmt.Errorf("parse environment: %w", err)
		}
	}

	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		cfg.DataDir = filepath.Join(home, ".fssva")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// explicitEnv returns the non-empty FSSVA_ variables, so envDefault values do
// not clobber values read from the config file.
func explicitEnv() map[string]string {
	vars := make(map[string]string)
	for _, kv := range os.Environ() {
		key, value, ok := strings.Cut(kv, "=")
		if ok && value != "" && strings.HasPrefix(key, "FSSVA_") {
			vars[key] = value
		}
	}
	return vars
}

// Validate checks the config for values the client cannot work with
func (c *Config) Validate() error {
	if strings.TrimSpace(c.APIURL) == "" {
		return errors.New("api url is required")
	}
	if !strings.HasPrefix(c.APIURL, "http://") && !strings.HasPrefix(c.APIURL, "https://") {
		return fmt.Errorf("api url must start with http:// or https://: %s", c.APIURL)
	}
	if c.FlushInterval <= 0 {
		return fmt.Errorf("flush interval must be positive, got %s", c.FlushInterval)
	}
	if c.RedirectPort <= 0 || c.RedirectPort > 65535 {
		return fmt.Errorf("redirect port out of range: %d", c.RedirectPort)
	}
	return nil
}

// TokenPath is where the identity provider token is persisted
func (c *Config) TokenPath() string {
	return filepath.Join(c.DataDir, "token.json")
}

// CachePath is the local transcript cache database
func (c *Config) CachePath() string {
	return filepath.Join(c.DataDir, "transcripts.db")
}

// StatePath stores small UI state such as the last visited route
func (c *Config) StatePath() string {
	return filepath.Join(c.DataDir, "state.yaml")
}
