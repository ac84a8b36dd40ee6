package scraper

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"net/url"

	"github.com/aluiziolira/go-books-etl/config"
	"github.com/aluiziolira/go-books-etl/models"
	"github.com/aluiziolira/go-books-etl/parser"
)

// Walker traverses a bounded number of catalog listing pages in page
// order, yielding one partial record per book entry in document order.
type Walker struct {
	cfg     *config.Config
	fetcher *Fetcher
	metrics *Metrics
	base    *url.URL

	pagesVisited int
}

// NewWalker builds a walker over the catalog rooted at cfg.BaseURL.
func NewWalker(cfg *config.Config, fetcher *Fetcher, metrics *Metrics) (*Walker, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	return &Walker{cfg: cfg, fetcher: fetcher, metrics: metrics, base: base}, nil
}

// PageURL returns the listing URL for a 1-based page index. Page 1 is
// the catalog root; later pages live under catalogue/page-N.html.
func (w *Walker) PageURL(page int) string {
	if page <= 1 {
		return w.base.String()
	}
	return parser.ResolveURL(w.base, fmt.Sprintf("catalogue/page-%d.html", page))
}

// Books returns a lazy sequence over the partial records found on pages
// 1..MaxPages. A fresh call restarts from page 1. A page-level fetch or
// parse failure is logged and skips that page only; later pages are
// independent.
func (w *Walker) Books(ctx context.Context) iter.Seq[*models.Book] {
	return func(yield func(*models.Book) bool) {
		w.pagesVisited = 0
		for page := 1; page <= w.cfg.MaxPages; page++ {
			if ctx.Err() != nil {
				return
			}

			pageURL := w.PageURL(page)
			body, err := w.fetcher.Fetch(ctx, pageURL, "listing")
			if err != nil {
				slog.Warn("listing page skipped",
					slog.Int("page", page),
					slog.String("url", pageURL),
					slog.Any("error", err),
				)
				continue
			}
			w.pagesVisited++

			pageRef, _ := url.Parse(pageURL)
			books, err := parser.ParseListing(body, pageRef)
			if err != nil {
				slog.Warn("listing page unparseable",
					slog.Int("page", page),
					slog.String("url", pageURL),
					slog.Any("error", err),
				)
				continue
			}

			slog.Info("listing page parsed",
				slog.Int("page", page),
				slog.Int("books", len(books)),
			)
			for _, book := range books {
				w.metrics.IncItems()
				if !yield(book) {
					return
				}
			}
		}
	}
}

// PagesVisited reports how many listing pages were fetched successfully
// during the last traversal.
func (w *Walker) PagesVisited() int {
	return w.pagesVisited
}
