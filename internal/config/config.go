package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/teambition/rrule-go"
	"gopkg.in/yaml.v3"
)

// Keyworker sources
const (
	KeyworkerSourceDatabase  = "database"
	KeyworkerSourcePrisonAPI = "prisonApi"
)

// Environment variables that override secrets in the config file
const (
	EnvDatabaseURL           = "KEYWORKER_DATABASE_URL"
	EnvPrisonAPIClientSecret = "KEYWORKER_PRISON_API_CLIENT_SECRET"
)

const (
	defaultBatchConcurrency = 4
	defaultPrisonAPITimeout = 30 * time.Second
	defaultMetricsNamespace = "keyworker"
)

// CapacityTiersConfig holds a prison's keyworker capacity tiers
type CapacityTiersConfig struct {
	Tier1 int  `yaml:"tier1" validate:"required,min=1"`
	Tier2 *int `yaml:"tier2,omitempty" validate:"omitempty,min=1"`
}

// PrisonConfig holds per-prison auto-allocation settings
type PrisonConfig struct {
	PrisonID       string              `yaml:"prisonID" validate:"required"`
	AutoAllocation bool                `yaml:"autoAllocation"`
	CapacityTiers  CapacityTiersConfig `yaml:"capacityTiers"`
}

// PrisonAPIConfig holds the connection details for the upstream prison staff API
type PrisonAPIConfig struct {
	BaseURL      string        `yaml:"baseURL" validate:"required,url"`
	TokenURL     string        `yaml:"tokenURL" validate:"required,url"`
	ClientID     string        `yaml:"clientID" validate:"required"`
	ClientSecret string        `yaml:"clientSecret" validate:"required"`
	Timeout      time.Duration `yaml:"timeout,omitempty"`
}

// MetricsConfig controls the Prometheus metrics listener
type MetricsConfig struct {
	Namespace  string `yaml:"namespace,omitempty"`
	ListenAddr string `yaml:"listenAddr,omitempty"`
}

// Config represents the application configuration
type Config struct {
	DatabaseURL      string           `yaml:"databaseURL" validate:"required"`
	KeyworkerSource  string           `yaml:"keyworkerSource" validate:"required,oneof=database prisonApi"`
	PrisonAPI        *PrisonAPIConfig `yaml:"prisonApi,omitempty"`
	Prisons          []PrisonConfig   `yaml:"prisons" validate:"required,min=1,dive"`
	BatchSchedule    string           `yaml:"batchSchedule,omitempty"`
	BatchConcurrency int              `yaml:"batchConcurrency,omitempty" validate:"omitempty,min=1"`
	Metrics          MetricsConfig    `yaml:"metrics,omitempty"`
}

// AutoAllocationPrisons returns the ids of prisons with auto-allocation enabled, in config order
func (c *Config) AutoAllocationPrisons() []string {
	var prisonIDs []string
	for _, prison := range c.Prisons {
		if prison.AutoAllocation {
			prisonIDs = append(prisonIDs, prison.PrisonID)
		}
	}
	return prisonIDs
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// LoadWithEnv loads and validates the configuration for an environment.
// For example, env="test" looks for keyworker_config.test.yaml, falling back to keyworker_config.yaml.
func LoadWithEnv(env string) (*Config, error) {
	configPath, err := findConfigFile(env)
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	return LoadFromPath(configPath)
}

// LoadFromPath loads and validates the configuration from a specific path
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate validates the configuration struct and the checks struct tags cannot express
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	if cfg.KeyworkerSource == KeyworkerSourcePrisonAPI && cfg.PrisonAPI == nil {
		return fmt.Errorf("config validation failed: prisonApi is required when keyworkerSource is %s", KeyworkerSourcePrisonAPI)
	}

	seen := make(map[string]bool, len(cfg.Prisons))
	for i, prison := range cfg.Prisons {
		if seen[prison.PrisonID] {
			return fmt.Errorf("duplicate prisonID %q in prisons[%d]", prison.PrisonID, i)
		}
		seen[prison.PrisonID] = true

		tiers := prison.CapacityTiers
		if tiers.Tier2 != nil && *tiers.Tier2 < tiers.Tier1 {
			return fmt.Errorf("invalid capacityTiers in prisons[%d]: tier2 (%d) is below tier1 (%d)", i, *tiers.Tier2, tiers.Tier1)
		}
	}

	if cfg.BatchSchedule != "" {
		if _, err := rrule.StrToROption(cfg.BatchSchedule); err != nil {
			return fmt.Errorf("invalid rrule in batchSchedule: %w", err)
		}
	}

	return nil
}

func applyEnvOverrides(cfg *Config) {
	if url := os.Getenv(EnvDatabaseURL); url != "" {
		cfg.DatabaseURL = url
	}
	if secret := os.Getenv(EnvPrisonAPIClientSecret); secret != "" && cfg.PrisonAPI != nil {
		cfg.PrisonAPI.ClientSecret = secret
	}
}

func applyDefaults(cfg *Config) {
	if cfg.BatchConcurrency == 0 {
		cfg.BatchConcurrency = defaultBatchConcurrency
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = defaultMetricsNamespace
	}
	if cfg.PrisonAPI != nil && cfg.PrisonAPI.Timeout == 0 {
		cfg.PrisonAPI.Timeout = defaultPrisonAPITimeout
	}
}

// findConfigFile searches for the config file in the current directory and home directory.
// The env-specific file is preferred over keyworker_config.yaml in each location.
func findConfigFile(env string) (string, error) {
	fileNames := []string{"keyworker_config.yaml"}
	if env != "" {
		fileNames = []string{"keyworker_config." + env + ".yaml", "keyworker_config.yaml"}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	for _, dir := range []string{"", homeDir} {
		for _, name := range fileNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}
	}

	return "", fmt.Errorf("config file not found in current directory or home directory")
}
