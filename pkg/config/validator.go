package config

import (
	"fmt"
	"net/url"
	"strings"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	// Validate Database config
	if c.Database.URL == "" {
		errors = append(errors, ValidationError{
			Field:   "database.url",
			Message: "warehouse connection string is required",
		})
	} else if _, err := url.Parse(c.Database.URL); err != nil {
		errors = append(errors, ValidationError{
			Field:   "database.url",
			Message: "invalid connection string",
		})
	}

	// Validate Fetch config
	if c.Fetch.BatchSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "fetch.batch_size",
			Message: "batch_size must be positive",
		})
	}

	if c.Fetch.MaxRetries < 0 {
		errors = append(errors, ValidationError{
			Field:   "fetch.max_retries",
			Message: "max_retries must be non-negative",
		})
	}

	if c.Fetch.RateLimit < 0 {
		errors = append(errors, ValidationError{
			Field:   "fetch.rate_limit",
			Message: "rate_limit must be non-negative",
		})
	}

	if c.Fetch.Parallelism < 1 {
		errors = append(errors, ValidationError{
			Field:   "fetch.parallelism",
			Message: "parallelism must be positive",
		})
	}

	// Validate Dimensions
	if len(c.Dimensions) == 0 {
		errors = append(errors, ValidationError{
			Field:   "dimensions",
			Message: "at least one dimension is required",
		})
	}

	seen := make(map[string]bool)
	for i, d := range c.Dimensions {
		if d.Name == "" {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("dimensions[%d].name", i),
				Message: "dimension name is required",
			})
			continue
		}
		if seen[d.Name] {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("dimensions[%d].name", i),
				Message: fmt.Sprintf("duplicate dimension name: %s", d.Name),
			})
		}
		seen[d.Name] = true

		if strings.TrimSpace(d.Query) == "" {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("dimensions[%d].query", i),
				Message: "dimension query is required",
			})
		}
	}

	return errors
}
