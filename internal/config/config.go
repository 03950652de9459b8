package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DatabaseURL    string          `yaml:"-"`
	Port           string          `yaml:"-"`
	AllowedOrigins []string        `yaml:"-"`
	DBLogLevel     string          `yaml:"-"`
	Matching       MatchingConfig  `yaml:"matching"`
	Unmatched      UnmatchedConfig `yaml:"unmatched"`
}

type MatchingConfig struct {
	TolerancePercent string `yaml:"tolerance_percent"`
	MaxSuggestions   int    `yaml:"max_suggestions"`
}

type UnmatchedConfig struct {
	DefaultLimit int `yaml:"default_limit"`
	MaxLimit     int `yaml:"max_limit"`
}

func defaults() Config {
	return Config{
		Port:           "8080",
		AllowedOrigins: []string{"http://localhost:3000"},
		DBLogLevel:     "warn",
		Matching: MatchingConfig{
			TolerancePercent: "0.01",
			MaxSuggestions:   5,
		},
		Unmatched: UnmatchedConfig{
			DefaultLimit: 50,
			MaxLimit:     500,
		},
	}
}

// Load reads configuration from the environment, overlaid by the YAML file
// named in RECON_CONFIG_FILE when set.
func Load() (Config, error) {
	cfg := defaults()

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = dsnFromParts()
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("DB_LOG_LEVEL"); v != "" {
		cfg.DBLogLevel = strings.ToLower(v)
	}
	if v := os.Getenv("MATCH_TOLERANCE_PERCENT"); v != "" {
		cfg.Matching.TolerancePercent = v
	}
	if v := os.Getenv("MATCH_MAX_SUGGESTIONS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("MATCH_MAX_SUGGESTIONS: %w", err)
		}
		cfg.Matching.MaxSuggestions = n
	}

	if path := os.Getenv("RECON_CONFIG_FILE"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL or DB_HOST/DB_NAME must be set")
	}
	pct, err := c.Tolerance()
	if err != nil {
		return err
	}
	if pct.IsNegative() || pct.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("matching tolerance_percent must be in [0, 1), got %s", pct)
	}
	if c.Matching.MaxSuggestions <= 0 {
		return fmt.Errorf("matching max_suggestions must be positive")
	}
	if c.Unmatched.DefaultLimit <= 0 || c.Unmatched.MaxLimit < c.Unmatched.DefaultLimit {
		return fmt.Errorf("unmatched limits invalid: default=%d max=%d", c.Unmatched.DefaultLimit, c.Unmatched.MaxLimit)
	}
	return nil
}

// Tolerance parses the matching tolerance as a fraction (0.01 = 1%).
func (c Config) Tolerance() (decimal.Decimal, error) {
	pct, err := decimal.NewFromString(c.Matching.TolerancePercent)
	if err != nil {
		return decimal.Zero, fmt.Errorf("matching tolerance_percent %q: %w", c.Matching.TolerancePercent, err)
	}
	return pct, nil
}

func dsnFromParts() string {
	host := os.Getenv("DB_HOST")
	name := os.Getenv("DB_NAME")
	if host == "" || name == "" {
		return ""
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host,
		getenv("DB_PORT", "5432"),
		getenv("DB_USER", "postgres"),
		os.Getenv("DB_PASSWORD"),
		name,
		getenv("DB_SSLMODE", "disable"),
	)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
