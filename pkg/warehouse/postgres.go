package warehouse

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/notefold/annotate/internal/models"
)

type WarehouseConfig struct {
	ConnString string
	// Queries maps a dimension name to the SQL that returns
	// (document_id, value) rows for a batch of ids. The batch is bound
	// as $1, e.g.
	//
	//   SELECT document_id, content_type
	//   FROM document_reference_content
	//   WHERE document_id = ANY($1)
	Queries map[string]string
}

// Warehouse fetches annotation pairs from a SQL document warehouse. It
// implements the fetcher's Source interface; one Fetch call issues one
// bounded query for one dimension.
type Warehouse struct {
	config WarehouseConfig
	pool   *pgxpool.Pool
}

// ConfigError reports a dimension with no configured query. It is not
// retryable: the same request will fail the same way every time.
type ConfigError struct {
	Dimension string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("no query configured for dimension %q", e.Dimension)
}

func (e *ConfigError) Retryable() bool { return false }

func NewWithConfig(config WarehouseConfig) (*Warehouse, error) {
	pool, err := pgxpool.New(context.Background(), config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to warehouse: %w", err)
	}
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping warehouse: %w", err)
	}

	return &Warehouse{
		config: config,
		pool:   pool,
	}, nil
}

// Fetch runs the dimension's query against one id batch. Rows with a
// NULL value are dropped rather than surfaced as empty annotations.
func (w *Warehouse) Fetch(ctx context.Context, dimension string, ids []string) ([]models.Pair, error) {
	query, ok := w.config.Queries[dimension]
	if !ok {
		return nil, &ConfigError{Dimension: dimension}
	}

	rows, err := w.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query dimension %s: %w", dimension, err)
	}
	defer rows.Close()

	var pairs []models.Pair
	for rows.Next() {
		var id string
		var value *string
		if err := rows.Scan(&id, &value); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if value == nil {
			continue
		}
		pairs = append(pairs, models.Pair{ID: id, Value: *value})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	return pairs, nil
}

// Exec runs an arbitrary statement against the warehouse. Used for
// schema bootstrap in tests.
func (w *Warehouse) Exec(ctx context.Context, sql string, args ...any) error {
	_, err := w.pool.Exec(ctx, sql, args...)
	return err
}

func (w *Warehouse) Close() {
	if w.pool != nil {
		w.pool.Close()
	}
}
