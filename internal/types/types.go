package types

import (
	"context"

	"github.com/notefold/annotate/internal/models"
)

// Source fetches annotation pairs for one bounded id batch in one
// dimension. Zero, one, or many pairs per id is normal fan-out and must
// not be treated as an error.
type Source interface {
	Fetch(ctx context.Context, dimension string, ids []string) ([]models.Pair, error)
}

// RetryableError lets a Source mark a failure as safe or unsafe to retry.
// Errors that do not implement it are treated as retryable.
type RetryableError interface {
	error
	Retryable() bool
}
