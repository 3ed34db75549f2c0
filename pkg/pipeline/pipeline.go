package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/notefold/annotate/internal/models"
	"github.com/notefold/annotate/internal/types"
	"github.com/notefold/annotate/pkg/accumulator"
	"github.com/notefold/annotate/pkg/fetcher"
	"github.com/notefold/annotate/pkg/materializer"
	"github.com/notefold/annotate/pkg/metrics"
)

type PipelineConfig struct {
	Dimensions []string // ordered annotation dimensions to query
	Separator  string
	Fetch      fetcher.FetcherConfig
	// OnDimension is called after each dimension completes, failed or
	// not. Used by the CLI for progress reporting.
	OnDimension func(report fetcher.Report, err error)
}

// Pipeline runs the three-stage annotation flow: batched fetch per
// dimension, lossless multi-value accumulation, then CSV
// materialization against the original inventory. Dimensions are
// processed sequentially; a wholly unavailable dimension is recorded in
// the summary and the remaining dimensions still run.
type Pipeline struct {
	config PipelineConfig
	fetch  *fetcher.Fetcher
	acc    *accumulator.Accumulator
	m      *metrics.Metrics
}

// Summary reports one run across all dimensions.
type Summary struct {
	Reports []fetcher.Report
	// Unavailable lists dimensions whose every batch failed.
	Unavailable []string
}

func NewWithConfig(source types.Source, m *metrics.Metrics, config PipelineConfig) (*Pipeline, error) {
	if len(config.Dimensions) == 0 {
		return nil, fmt.Errorf("at least one dimension is required")
	}
	if config.Separator == "" {
		config.Separator = accumulator.DefaultSeparator
	}
	if m == nil {
		m = metrics.New()
	}

	return &Pipeline{
		config: config,
		fetch:  fetcher.NewWithConfig(source, config.Fetch),
		acc:    accumulator.New(),
		m:      m,
	}, nil
}

// Run fetches and accumulates every dimension for the inventory's ids.
// On cancellation the already-merged state stays valid, so a caller may
// still materialize a complete-so-far partial result.
func (p *Pipeline) Run(ctx context.Context, inv *models.Inventory) (*Summary, error) {
	summary := &Summary{}
	ids := inv.IDs()

	for _, dim := range p.config.Dimensions {
		dim := dim
		report, err := p.fetch.FetchDimension(ctx, dim, ids, func(id, value string) {
			p.acc.Add(id, dim, value)
		})

		p.m.BatchesTotal.WithLabelValues(dim).Add(float64(report.Batches))
		p.m.BatchFailuresTotal.WithLabelValues(dim).Add(float64(report.FailedBatches))
		p.m.PairsMergedTotal.WithLabelValues(dim).Add(float64(report.Pairs))
		p.m.UnannotatedTotal.WithLabelValues(dim).Add(float64(len(report.Unannotated)))

		summary.Reports = append(summary.Reports, report)
		if p.config.OnDimension != nil {
			p.config.OnDimension(report, err)
		}

		if err != nil {
			if errors.Is(err, fetcher.ErrDimensionUnavailable) {
				summary.Unavailable = append(summary.Unavailable, dim)
				continue
			}
			// Cancellation or another fatal error: stop here, partial
			// state remains materializable.
			return summary, err
		}
	}

	return summary, nil
}

// Materialize writes the annotated inventory to path and returns the
// number of rows written.
func (p *Pipeline) Materialize(path string, inv *models.Inventory) (int, error) {
	m := materializer.NewWithConfig(materializer.MaterializerConfig{
		Dimensions: p.config.Dimensions,
		Separator:  p.config.Separator,
	})

	rows, err := m.WriteFile(path, inv, p.acc)
	p.m.RowsWrittenTotal.Add(float64(rows))
	return rows, err
}

// Accumulator exposes the read-only merged state after Run.
func (p *Pipeline) Accumulator() *accumulator.Accumulator {
	return p.acc
}
