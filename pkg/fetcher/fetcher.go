package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/notefold/annotate/internal/types"
)

// ErrDimensionUnavailable is returned when every batch for a dimension
// failed after exhausting retries. The caller decides whether to keep
// going with partial annotations.
var ErrDimensionUnavailable = errors.New("dimension unavailable: all batches failed")

type FetcherConfig struct {
	BatchSize    int           // ids per source query, default 1000
	MaxRetries   int           // retries after the first attempt, default 2
	RetryBackoff time.Duration // delay between attempts, default 500ms
	RateLimit    float64       // source queries per second, 0 disables pacing
	Parallelism  int           // concurrent batches per dimension, default 1
	OnBatch      func(batch, total int)
}

// Fetcher partitions a document id list into bounded batches and streams
// each batch's (id, value) pairs out of the backing source. A failed
// batch is retried and then skipped; its ids are reported unannotated
// rather than aborting the run.
type Fetcher struct {
	config  FetcherConfig
	source  types.Source
	limiter *rate.Limiter
}

// Report summarizes one dimension's fetch.
type Report struct {
	Dimension     string
	Batches       int
	FailedBatches int
	Pairs         int
	Unannotated   []string // ids whose batch exhausted retries
}

func NewWithConfig(source types.Source, config FetcherConfig) *Fetcher {
	if config.BatchSize <= 0 {
		config.BatchSize = 1000
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.RetryBackoff == 0 {
		config.RetryBackoff = 500 * time.Millisecond
	}
	if config.Parallelism <= 0 {
		config.Parallelism = 1
	}

	var limiter *rate.Limiter
	if config.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RateLimit), 1)
	}

	return &Fetcher{
		config:  config,
		source:  source,
		limiter: limiter,
	}
}

// FetchDimension queries every batch of ids for one dimension and hands
// each resulting pair to merge. The batch count is always computed from
// len(ids), so every id is covered regardless of how N relates to the
// batch size.
func (f *Fetcher) FetchDimension(ctx context.Context, dimension string, ids []string, merge func(id, value string)) (Report, error) {
	report := Report{Dimension: dimension}

	total := (len(ids) + f.config.BatchSize - 1) / f.config.BatchSize
	report.Batches = total
	if total == 0 {
		return report, nil
	}

	results := make([]batchResult, total)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.config.Parallelism)

	for b := 0; b < total; b++ {
		b := b
		lo := b * f.config.BatchSize
		hi := lo + f.config.BatchSize
		if hi > len(ids) {
			hi = len(ids)
		}
		batch := ids[lo:hi]

		g.Go(func() error {
			res := f.fetchBatch(gctx, dimension, batch, merge)
			results[b] = res
			if f.config.OnBatch != nil {
				f.config.OnBatch(b+1, total)
			}
			return res.ctxErr
		})
	}

	if err := g.Wait(); err != nil {
		return report, err
	}

	for _, res := range results {
		report.Pairs += res.pairs
		if res.failed {
			report.FailedBatches++
			report.Unannotated = append(report.Unannotated, res.unannotated...)
		}
	}

	if report.FailedBatches == total {
		return report, fmt.Errorf("dimension %s: %w", dimension, ErrDimensionUnavailable)
	}
	return report, nil
}

type batchResult struct {
	pairs       int
	failed      bool
	unannotated []string
	ctxErr      error
}

func (f *Fetcher) fetchBatch(ctx context.Context, dimension string, batch []string, merge func(id, value string)) batchResult {
	for attempt := 0; attempt <= f.config.MaxRetries; attempt++ {
		if err := f.wait(ctx); err != nil {
			return batchResult{ctxErr: err}
		}

		pairs, err := f.source.Fetch(ctx, dimension, batch)
		if err == nil {
			for _, p := range pairs {
				merge(p.ID, p.Value)
			}
			return batchResult{pairs: len(pairs)}
		}

		if ctx.Err() != nil {
			return batchResult{ctxErr: ctx.Err()}
		}

		log.Printf("fetch %s batch of %d failed (attempt %d/%d): %v",
			dimension, len(batch), attempt+1, f.config.MaxRetries+1, err)

		if !retryable(err) {
			break
		}
		if attempt < f.config.MaxRetries {
			select {
			case <-time.After(f.config.RetryBackoff):
			case <-ctx.Done():
				return batchResult{ctxErr: ctx.Err()}
			}
		}
	}

	// Retries exhausted: mark the batch's ids unannotated and move on.
	unannotated := make([]string, len(batch))
	copy(unannotated, batch)
	return batchResult{failed: true, unannotated: unannotated}
}

func (f *Fetcher) wait(ctx context.Context) error {
	if f.limiter == nil {
		return nil
	}
	return f.limiter.Wait(ctx)
}

func retryable(err error) bool {
	var re types.RetryableError
	if errors.As(err, &re) {
		return re.Retryable()
	}
	return true
}
