// Package pipeline coordinates the crawl-extract-normalize-persist run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/aluiziolira/go-books-etl/config"
	"github.com/aluiziolira/go-books-etl/models"
	"github.com/aluiziolira/go-books-etl/parser"
	"github.com/aluiziolira/go-books-etl/scraper"
	"github.com/aluiziolira/go-books-etl/storage"
)

// Skip reasons reported in the run summary and metrics.
const (
	SkipInvalidStub  = "invalid_stub"
	SkipDuplicateURL = "duplicate_url"
	SkipEnrichFailed = "enrich_fetch_failed"
	SkipMissingUPC   = "missing_upc"
	SkipInvalidPrice = "invalid_price"
)

// Runner drives the full pipeline sequentially: walk listing pages,
// enrich each stub from its detail page, normalize the raw fields, and
// upsert by UPC. Records and pages are processed strictly in traversal
// order; the stored end state is convergent regardless of order because
// the upsert is keyed by UPC.
type Runner struct {
	walker   *scraper.Walker
	enricher *scraper.Enricher
	fetcher  *scraper.Fetcher
	store    *storage.Store
	metrics  *scraper.Metrics
	seen     *lru.Cache[string, struct{}]
}

// NewRunner wires the pipeline components together.
func NewRunner(cfg *config.Config, walker *scraper.Walker, enricher *scraper.Enricher, fetcher *scraper.Fetcher, store *storage.Store, metrics *scraper.Metrics) (*Runner, error) {
	seen, err := lru.New[string, struct{}](cfg.DedupeMaxSize)
	if err != nil {
		return nil, fmt.Errorf("create dedupe cache: %w", err)
	}
	return &Runner{
		walker:   walker,
		enricher: enricher,
		fetcher:  fetcher,
		store:    store,
		metrics:  metrics,
		seen:     seen,
	}, nil
}

// Run executes one full pass over the catalog. Per-record failures
// (fetch, missing UPC, unparseable price) are logged and skipped and
// never abort the run; a store write failure is fatal and leaves
// already-committed upserts intact.
func (r *Runner) Run(ctx context.Context) (*models.RunResult, error) {
	result := &models.RunResult{
		StartTime:     time.Now(),
		SkipsByReason: make(map[string]int),
		ErrorsByType:  make(map[string]int),
	}
	defer func() {
		result.EndTime = time.Now()
		result.Pages = r.walker.PagesVisited()
		result.RequestCount = r.fetcher.Requests()
	}()

	for book := range r.walker.Books(ctx) {
		result.Attempted++

		if err := parser.ValidateStub(book); err != nil {
			r.skip(result, SkipInvalidStub, book.DetailURL, err)
			continue
		}

		if found, _ := r.seen.ContainsOrAdd(book.DetailURL, struct{}{}); found {
			r.skip(result, SkipDuplicateURL, book.DetailURL, nil)
			continue
		}

		if err := r.enricher.Enrich(ctx, book); err != nil {
			reason := SkipEnrichFailed
			var enrichErr *scraper.EnrichError
			if errors.As(err, &enrichErr) {
				result.ErrorsByType[string(enrichErr.Kind)]++
				if enrichErr.Kind == scraper.EnrichMissingUPC {
					reason = SkipMissingUPC
				}
			}
			result.FailedURLs = append(result.FailedURLs, book.DetailURL)
			r.skip(result, reason, book.DetailURL, err)
			continue
		}

		price, err := parser.NormalizePrice(book.PriceText)
		if err != nil {
			r.skip(result, SkipInvalidPrice, book.DetailURL, err)
			continue
		}
		book.Price = price
		// Unparseable availability and rating persist as placeholders
		// ("unknown" / 0) rather than skipping the record.
		book.Availability = parser.NormalizeAvailability(book.Availability)
		book.Rating = parser.RatingToNumeric(book.RatingText)

		if _, err := r.store.UpsertBook(ctx, book); err != nil {
			return result, fmt.Errorf("store upsert: %w", err)
		}
		result.Persisted++
		slog.Info("persisted",
			slog.String("upc", book.UPC),
			slog.String("title", book.Title),
		)
	}

	return result, nil
}

func (r *Runner) skip(result *models.RunResult, reason, url string, err error) {
	result.Skipped++
	result.SkipsByReason[reason]++
	r.metrics.IncSkip(reason)
	slog.Warn("record skipped",
		slog.String("reason", reason),
		slog.String("url", url),
		slog.Any("error", err),
	)
}
