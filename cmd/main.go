package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	cfgPkg "github.com/notefold/annotate/pkg/config"
	"github.com/notefold/annotate/pkg/fetcher"
	"github.com/notefold/annotate/pkg/inventory"
	"github.com/notefold/annotate/pkg/metrics"
	"github.com/notefold/annotate/pkg/pipeline"
	"github.com/notefold/annotate/pkg/warehouse"
)

func main() {
	config, err := parseFlags()
	if err != nil {
		log.Fatal(err)
	}

	if err := run(config); err != nil {
		log.Fatal(err)
	}
}

func parseFlags() (*cfgPkg.Config, error) {
	var configPath string
	var flagCfg cfgPkg.Config

	flag.StringVar(&configPath, "config", "", "Path to config file")
	flag.StringVar(&flagCfg.Database.URL, "db-url", os.Getenv("DATABASE_URL"), "Warehouse connection string")
	flag.StringVar(&flagCfg.Input.Path, "input", "", "Document inventory CSV")
	flag.StringVar(&flagCfg.Input.IDColumn, "id-column", "", "Inventory id column name")
	flag.StringVar(&flagCfg.Output.Path, "output", "", "Annotated output CSV")
	flag.StringVar(&flagCfg.Output.Separator, "separator", "", "Multi-value separator")
	flag.IntVar(&flagCfg.Fetch.BatchSize, "batch-size", 0, "Ids per warehouse query")
	flag.IntVar(&flagCfg.Fetch.MaxRetries, "retries", 0, "Retries per failed batch")
	flag.Float64Var(&flagCfg.Fetch.RateLimit, "rate-limit", 0, "Warehouse queries per second (0 = unlimited)")
	flag.IntVar(&flagCfg.Fetch.Parallelism, "parallelism", 0, "Concurrent batches per dimension")
	flag.StringVar(&flagCfg.Metrics.Addr, "metrics-addr", "", "Address for the Prometheus endpoint (empty = disabled)")
	flag.Parse()

	config, err := cfgPkg.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	// Flags set on the command line win over the config file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "db-url":
			config.Database.URL = flagCfg.Database.URL
		case "input":
			config.Input.Path = flagCfg.Input.Path
		case "id-column":
			config.Input.IDColumn = flagCfg.Input.IDColumn
		case "output":
			config.Output.Path = flagCfg.Output.Path
		case "separator":
			config.Output.Separator = flagCfg.Output.Separator
		case "batch-size":
			config.Fetch.BatchSize = flagCfg.Fetch.BatchSize
		case "retries":
			config.Fetch.MaxRetries = flagCfg.Fetch.MaxRetries
		case "rate-limit":
			config.Fetch.RateLimit = flagCfg.Fetch.RateLimit
		case "parallelism":
			config.Fetch.Parallelism = flagCfg.Fetch.Parallelism
		case "metrics-addr":
			config.Metrics.Addr = flagCfg.Metrics.Addr
		}
	})

	return config, nil
}

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("batches"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func run(config *cfgPkg.Config) error {
	if errs := config.Validate(); len(errs) > 0 {
		for _, e := range errs {
			color.Red("config: %v", e)
		}
		return fmt.Errorf("invalid configuration (%d errors)", len(errs))
	}
	if config.Input.Path == "" {
		return fmt.Errorf("an inventory CSV is required (-input)")
	}
	if config.Output.Path == "" {
		return fmt.Errorf("an output path is required (-output)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	inv, err := inventory.ReadFile(config.Input.Path, inventory.ReaderConfig{
		IDColumn: config.Input.IDColumn,
	})
	if err != nil {
		return fmt.Errorf("failed to read inventory: %v", err)
	}
	color.Blue("Loaded %d documents (%d pass-through columns) from %s",
		len(inv.Docs), len(inv.Columns), config.Input.Path)

	wh, err := warehouse.NewWithConfig(warehouse.WarehouseConfig{
		ConnString: config.Database.URL,
		Queries:    config.Queries(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize warehouse: %v", err)
	}
	defer wh.Close()

	m := metrics.New()
	if config.Metrics.Addr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", m.Handler())
			if err := http.ListenAndServe(config.Metrics.Addr, mux); err != nil {
				log.Printf("metrics server: %v", err)
			}
		}()
		color.Blue("Serving metrics on %s/metrics", config.Metrics.Addr)
	}

	dims := config.DimensionNames()
	batchesPerDim := (len(inv.Docs) + config.Fetch.BatchSize - 1) / config.Fetch.BatchSize
	bar := getProgressBar(batchesPerDim*len(dims), "Annotating documents...")

	p, err := pipeline.NewWithConfig(wh, m, pipeline.PipelineConfig{
		Dimensions: dims,
		Separator:  config.Output.Separator,
		Fetch: fetcher.FetcherConfig{
			BatchSize:    config.Fetch.BatchSize,
			MaxRetries:   config.Fetch.MaxRetries,
			RetryBackoff: time.Duration(config.Fetch.RetryBackoffMS) * time.Millisecond,
			RateLimit:    config.Fetch.RateLimit,
			Parallelism:  config.Fetch.Parallelism,
			OnBatch: func(batch, total int) {
				bar.Add(1)
			},
		},
		OnDimension: func(report fetcher.Report, err error) {
			if err != nil {
				color.Red("\n✗ %s: all %d batches failed", report.Dimension, report.Batches)
				return
			}
			if report.FailedBatches > 0 {
				color.Yellow("\n⚠ %s: %d pairs merged, %d/%d batches failed (%d ids unannotated)",
					report.Dimension, report.Pairs, report.FailedBatches, report.Batches, len(report.Unannotated))
				return
			}
			color.Green("\n✓ %s: %d pairs merged across %d batches",
				report.Dimension, report.Pairs, report.Batches)
		},
	})
	if err != nil {
		return err
	}

	startTime := time.Now()
	summary, err := p.Run(ctx, inv)
	bar.Finish()
	if err != nil {
		return fmt.Errorf("annotation run failed: %v", err)
	}

	rows, err := p.Materialize(config.Output.Path, inv)
	if err != nil {
		return fmt.Errorf("failed to write output: %v", err)
	}

	color.Green("\n✓ Wrote %d rows to %s in %v", rows, config.Output.Path, time.Since(startTime).Round(time.Millisecond))
	for _, dim := range summary.Unavailable {
		color.Red("✗ dimension %s was wholly unavailable; its column is empty", dim)
	}

	return nil
}
