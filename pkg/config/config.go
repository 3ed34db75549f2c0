package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Input    InputConfig    `yaml:"input"`
	Output   OutputConfig   `yaml:"output"`
	Fetch    FetchConfig    `yaml:"fetch"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	// Dimensions lists the annotation dimensions in output column
	// order. Each needs a warehouse query returning (document_id,
	// value) rows with the id batch bound as $1.
	Dimensions []DimensionConfig `yaml:"dimensions"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type InputConfig struct {
	Path     string `yaml:"path"`
	IDColumn string `yaml:"id_column"`
}

type OutputConfig struct {
	Path      string `yaml:"path"`
	Separator string `yaml:"separator"`
}

type FetchConfig struct {
	BatchSize      int     `yaml:"batch_size"`
	MaxRetries     int     `yaml:"max_retries"`
	RetryBackoffMS int     `yaml:"retry_backoff_ms"`
	RateLimit      float64 `yaml:"rate_limit"`
	Parallelism    int     `yaml:"parallelism"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type DimensionConfig struct {
	Name  string `yaml:"name"`
	Query string `yaml:"query"`
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"annotate.yaml",
			"annotate.yml",
			filepath.Join(os.Getenv("HOME"), ".config/annotate/config.yaml"),
			"/etc/annotate/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %v", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %v", err)
	}

	// Merge with environment variables
	mergeWithEnv(&config)

	// Apply defaults for unset values
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	applyDefaults(config)
	mergeWithEnv(config)
	return config, nil
}

// DimensionNames returns the dimension names in configured order.
func (c *Config) DimensionNames() []string {
	names := make([]string, 0, len(c.Dimensions))
	for _, d := range c.Dimensions {
		names = append(names, d.Name)
	}
	return names
}

// Queries maps each dimension name to its warehouse SQL.
func (c *Config) Queries() map[string]string {
	queries := make(map[string]string, len(c.Dimensions))
	for _, d := range c.Dimensions {
		queries[d.Name] = d.Query
	}
	return queries
}

func applyDefaults(config *Config) {
	if config.Input.IDColumn == "" {
		config.Input.IDColumn = "document_id"
	}
	if config.Output.Separator == "" {
		config.Output.Separator = "; "
	}

	if config.Fetch.BatchSize == 0 {
		config.Fetch.BatchSize = 1000
	}
	if config.Fetch.MaxRetries == 0 {
		config.Fetch.MaxRetries = 2
	}
	if config.Fetch.RetryBackoffMS == 0 {
		config.Fetch.RetryBackoffMS = 500
	}
	if config.Fetch.Parallelism == 0 {
		config.Fetch.Parallelism = 1
	}
}

func mergeWithEnv(config *Config) {
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
	}
}
