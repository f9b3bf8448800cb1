package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/timmy/personashop/internal/logger"
	"golang.org/x/sync/errgroup"
)

// BackfillConfig holds configuration for the key-feature backfill.
type BackfillConfig struct {
	Workers   int
	BatchSize int
}

// BackfillStats holds statistics for a backfill run.
type BackfillStats struct {
	Processed int64
	Computed  int64
	Skipped   int64
	Failed    int64
	StartTime time.Time
	EndTime   time.Time
}

// BackfillOptions narrows a run.
type BackfillOptions struct {
	Category string // empty means every category
	Limit    int    // 0 means no limit
}

// FeatureBackfill precomputes key features for active products so the
// catalog endpoints never wait on a completion call.
type FeatureBackfill struct {
	products  ProductStore
	features  *ProductService
	logger    *logger.Logger
	workers   int
	batchSize int
}

// NewFeatureBackfill creates a backfill runner.
func NewFeatureBackfill(products ProductStore, features *ProductService, log *logger.Logger, cfg BackfillConfig) *FeatureBackfill {
	if log == nil {
		log = logger.GetDefault()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	return &FeatureBackfill{
		products:  products,
		features:  features,
		logger:    log,
		workers:   cfg.Workers,
		batchSize: cfg.BatchSize,
	}
}

// Run walks active products page by page. Products that already carry two
// features are skipped; a failed product is counted and does not stop the
// run. Only listing errors and cancellation abort it.
func (b *FeatureBackfill) Run(ctx context.Context, opts BackfillOptions) (*BackfillStats, error) {
	stats := &BackfillStats{StartTime: time.Now()}
	defer func() { stats.EndTime = time.Now() }()

	b.logger.WithFields(logger.Fields{
		"category": opts.Category,
		"limit":    opts.Limit,
		"workers":  b.workers,
	}).Info("Starting key feature backfill")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)

	seen := 0
	for offset := 0; ; offset += b.batchSize {
		if err := gctx.Err(); err != nil {
			break
		}
		page, err := b.products.ListActive(gctx, opts.Category, b.batchSize, offset)
		if err != nil {
			_ = g.Wait()
			return stats, fmt.Errorf("failed to list products at offset %d: %w", offset, err)
		}

		for i := range page {
			if opts.Limit > 0 && seen >= opts.Limit {
				break
			}
			seen++
			product := page[i]
			g.Go(func() error {
				_, computed, err := b.features.EnsureKeyFeatures(gctx, &product)
				atomic.AddInt64(&stats.Processed, 1)
				switch {
				case err != nil:
					atomic.AddInt64(&stats.Failed, 1)
					b.logger.WithField("product_id", product.ID).WithError(err).Warn("Failed to backfill key features")
				case computed:
					atomic.AddInt64(&stats.Computed, 1)
				default:
					atomic.AddInt64(&stats.Skipped, 1)
				}
				return nil
			})
		}

		if len(page) < b.batchSize || (opts.Limit > 0 && seen >= opts.Limit) {
			break
		}
	}

	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return stats, err
	}

	b.logger.WithFields(logger.Fields{
		"processed": stats.Processed,
		"computed":  stats.Computed,
		"skipped":   stats.Skipped,
		"failed":    stats.Failed,
		"duration":  time.Since(stats.StartTime).String(),
	}).Info("Key feature backfill finished")
	return stats, nil
}
