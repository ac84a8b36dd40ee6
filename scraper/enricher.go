package scraper

import (
	"context"
	"fmt"
	"net/url"

	"github.com/aluiziolira/go-books-etl/config"
	"github.com/aluiziolira/go-books-etl/models"
	"github.com/aluiziolira/go-books-etl/parser"
)

// EnrichErrorKind classifies why a record could not be enriched.
type EnrichErrorKind string

const (
	EnrichFetchFailed EnrichErrorKind = "fetch_failed"
	EnrichMissingUPC  EnrichErrorKind = "missing_upc"
)

// EnrichError reports a per-record enrichment failure. The caller's
// policy is a skip: the record is neither persisted nor retried.
type EnrichError struct {
	Kind EnrichErrorKind
	URL  string
	Err  error
}

func (e *EnrichError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("enrich %s: %s: %v", e.URL, e.Kind, e.Err)
	}
	return fmt.Sprintf("enrich %s: %s", e.URL, e.Kind)
}

func (e *EnrichError) Unwrap() error {
	return e.Err
}

// Enricher fetches detail pages and merges their fields into partial
// records.
type Enricher struct {
	fetcher *Fetcher
	base    *url.URL
}

// NewEnricher builds an enricher resolving detail links against
// cfg.BaseURL.
func NewEnricher(cfg *config.Config, fetcher *Fetcher) (*Enricher, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	return &Enricher{fetcher: fetcher, base: base}, nil
}

// Enrich fetches the record's detail page and fills description, UPC
// and category. A record without a UPC can never be safely
// deduplicated, so a missing UPC is an error even when the page parsed
// cleanly.
func (e *Enricher) Enrich(ctx context.Context, book *models.Book) error {
	detailURL := book.DetailURL
	if ref, err := url.Parse(detailURL); err == nil && !ref.IsAbs() {
		detailURL = e.base.ResolveReference(ref).String()
	}

	body, err := e.fetcher.Fetch(ctx, detailURL, "detail")
	if err != nil {
		return &EnrichError{Kind: EnrichFetchFailed, URL: detailURL, Err: err}
	}

	detail, err := parser.ParseDetail(body)
	if err != nil {
		return &EnrichError{Kind: EnrichFetchFailed, URL: detailURL, Err: err}
	}
	if detail.UPC == "" {
		return &EnrichError{Kind: EnrichMissingUPC, URL: detailURL}
	}

	book.Description = detail.Description
	book.UPC = detail.UPC
	book.Category = detail.Category
	return nil
}
