package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	// Create temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configData := `
database:
  url: "postgres://localhost:5432/warehouse"

input:
  path: "inventory.csv"
  id_column: "NOTE_ID"

output:
  path: "annotated.csv"
  separator: " | "

fetch:
  batch_size: 500
  max_retries: 3
  retry_backoff_ms: 250
  rate_limit: 4.0
  parallelism: 2

dimensions:
  - name: content_type
    query: "SELECT document_id, content_type FROM document_reference_content WHERE document_id = ANY($1)"
  - name: category
    query: "SELECT document_id, category FROM document_reference_category WHERE document_id = ANY($1)"
`
	err := os.WriteFile(configPath, []byte(configData), 0644)
	require.NoError(t, err)

	// Test loading config
	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	// Verify loaded values
	assert.Equal(t, "postgres://localhost:5432/warehouse", config.Database.URL)
	assert.Equal(t, "NOTE_ID", config.Input.IDColumn)
	assert.Equal(t, " | ", config.Output.Separator)
	assert.Equal(t, 500, config.Fetch.BatchSize)
	assert.Equal(t, 3, config.Fetch.MaxRetries)
	assert.Equal(t, 250, config.Fetch.RetryBackoffMS)
	assert.Equal(t, 4.0, config.Fetch.RateLimit)
	assert.Equal(t, 2, config.Fetch.Parallelism)
	assert.Equal(t, []string{"content_type", "category"}, config.DimensionNames())
	assert.Contains(t, config.Queries()["category"], "document_reference_category")
}

func TestLoadConfig_Defaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configData := `
database:
  url: "postgres://localhost:5432/warehouse"

dimensions:
  - name: content_type
    query: "SELECT document_id, content_type FROM document_reference_content WHERE document_id = ANY($1)"
`
	err := os.WriteFile(configPath, []byte(configData), 0644)
	require.NoError(t, err)

	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, 1000, config.Fetch.BatchSize)
	assert.Equal(t, 2, config.Fetch.MaxRetries)
	assert.Equal(t, 500, config.Fetch.RetryBackoffMS)
	assert.Equal(t, 1, config.Fetch.Parallelism)
	assert.Equal(t, "document_id", config.Input.IDColumn)
	assert.Equal(t, "; ", config.Output.Separator)
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name          string
		config        Config
		expectedErrs  int
		errorMessages []string
	}{
		{
			name: "valid config",
			config: Config{
				Database: DatabaseConfig{URL: "postgres://localhost:5432/warehouse"},
				Fetch: FetchConfig{
					BatchSize:   1000,
					Parallelism: 1,
				},
				Dimensions: []DimensionConfig{
					{Name: "content_type", Query: "SELECT document_id, content_type FROM t WHERE document_id = ANY($1)"},
				},
			},
			expectedErrs: 0,
		},
		{
			name: "invalid config",
			config: Config{
				Fetch: FetchConfig{
					BatchSize:   0,  // Invalid
					RateLimit:   -1, // Invalid
					Parallelism: 0,  // Invalid
				},
			},
			expectedErrs: 5,
			errorMessages: []string{
				"database.url: warehouse connection string is required",
				"fetch.batch_size: batch_size must be positive",
				"fetch.rate_limit: rate_limit must be non-negative",
				"fetch.parallelism: parallelism must be positive",
				"dimensions: at least one dimension is required",
			},
		},
		{
			name: "duplicate and incomplete dimensions",
			config: Config{
				Database: DatabaseConfig{URL: "postgres://localhost:5432/warehouse"},
				Fetch: FetchConfig{
					BatchSize:   1000,
					Parallelism: 1,
				},
				Dimensions: []DimensionConfig{
					{Name: "content_type", Query: "SELECT 1"},
					{Name: "content_type", Query: "SELECT 2"},
					{Name: "category"},
				},
			},
			expectedErrs: 2,
			errorMessages: []string{
				"dimensions[1].name: duplicate dimension name: content_type",
				"dimensions[2].query: dimension query is required",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errors := tt.config.Validate()
			assert.Len(t, errors, tt.expectedErrs)

			if tt.errorMessages != nil {
				for i, msg := range tt.errorMessages {
					assert.Contains(t, errors[i].Error(), msg)
				}
			}
		})
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	os.Setenv("DATABASE_URL", "postgres://env-db:5432/warehouse")
	defer os.Unsetenv("DATABASE_URL")

	config := &Config{}
	mergeWithEnv(config)

	assert.Equal(t, "postgres://env-db:5432/warehouse", config.Database.URL)
}
