package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/jarcoal/httpmock"

	"github.com/aluiziolira/go-books-etl/models"
)

func buildDetailPage(upc string, withDescription bool) string {
	var builder strings.Builder
	builder.WriteString("<html><body>")
	builder.WriteString(`<ul class="breadcrumb">` +
		`<li><a href="/">Home</a></li>` +
		`<li><a href="/books">Books</a></li>` +
		`<li><a href="/travel">Travel</a></li>` +
		`<li class="active">Some Book</li></ul>`)
	if withDescription {
		builder.WriteString(`<div id="product_description" class="sub-header"><h2>Product Description</h2></div>`)
		builder.WriteString("<p>An enriching read.</p>")
	}
	builder.WriteString(`<table class="table table-striped">`)
	if upc != "" {
		fmt.Fprintf(&builder, "<tr><th>UPC</th><td>%s</td></tr>", upc)
	}
	builder.WriteString("<tr><th>Product Type</th><td>Books</td></tr>")
	builder.WriteString("</table></body></html>")
	return builder.String()
}

func newTestEnricher(t *testing.T) (*Enricher, *httpmock.MockTransport) {
	t.Helper()
	cfg := testConfig()
	fetcher, transport := newTestFetcher(t, cfg)
	enricher, err := NewEnricher(cfg, fetcher)
	if err != nil {
		t.Fatalf("new enricher: %v", err)
	}
	return enricher, transport
}

func TestEnricherMergesDetailFields(t *testing.T) {
	enricher, transport := newTestEnricher(t)
	transport.RegisterResponder("GET", "http://example.test/catalogue/book-1/index.html",
		htmlResponder(buildDetailPage("upc-0001", true)))

	book := &models.Book{
		Title:     "Book 1",
		PriceText: "£10.00",
		DetailURL: "http://example.test/catalogue/book-1/index.html",
	}
	if err := enricher.Enrich(context.Background(), book); err != nil {
		t.Fatalf("enrich: %v", err)
	}
	if book.UPC != "upc-0001" {
		t.Errorf("upc = %q", book.UPC)
	}
	if book.Category != "Travel" {
		t.Errorf("category = %q, want Travel", book.Category)
	}
	if book.Description != "An enriching read." {
		t.Errorf("description = %q", book.Description)
	}
	if !book.Complete() {
		t.Errorf("record should be complete after enrichment")
	}
}

func TestEnricherResolvesRelativeURL(t *testing.T) {
	enricher, transport := newTestEnricher(t)
	transport.RegisterResponder("GET", "http://example.test/catalogue/book-2/index.html",
		htmlResponder(buildDetailPage("upc-0002", false)))

	book := &models.Book{Title: "Book 2", DetailURL: "catalogue/book-2/index.html"}
	if err := enricher.Enrich(context.Background(), book); err != nil {
		t.Fatalf("enrich: %v", err)
	}
	if book.UPC != "upc-0002" {
		t.Errorf("upc = %q", book.UPC)
	}
	if book.Description != "" {
		t.Errorf("description should be absent, got %q", book.Description)
	}
}

func TestEnricherMissingUPC(t *testing.T) {
	enricher, transport := newTestEnricher(t)
	transport.RegisterResponder("GET", "http://example.test/catalogue/book-3/index.html",
		htmlResponder(buildDetailPage("", true)))

	book := &models.Book{Title: "Book 3", DetailURL: "http://example.test/catalogue/book-3/index.html"}
	err := enricher.Enrich(context.Background(), book)
	var enrichErr *EnrichError
	if !errors.As(err, &enrichErr) {
		t.Fatalf("expected EnrichError, got %T: %v", err, err)
	}
	if enrichErr.Kind != EnrichMissingUPC {
		t.Fatalf("kind = %q, want %q", enrichErr.Kind, EnrichMissingUPC)
	}
	if book.UPC != "" || book.Description != "" {
		t.Fatalf("failed enrichment must not mutate the record")
	}
}

func TestEnricherFetchFailed(t *testing.T) {
	enricher, transport := newTestEnricher(t)
	transport.RegisterResponder("GET", "http://example.test/catalogue/book-4/index.html",
		httpmock.NewStringResponder(http.StatusNotFound, "gone"))

	book := &models.Book{Title: "Book 4", DetailURL: "http://example.test/catalogue/book-4/index.html"}
	err := enricher.Enrich(context.Background(), book)
	var enrichErr *EnrichError
	if !errors.As(err, &enrichErr) {
		t.Fatalf("expected EnrichError, got %T: %v", err, err)
	}
	if enrichErr.Kind != EnrichFetchFailed {
		t.Fatalf("kind = %q, want %q", enrichErr.Kind, EnrichFetchFailed)
	}
	var statusErr ErrHTTPStatus
	if !errors.As(err, &statusErr) || statusErr.Code != http.StatusNotFound {
		t.Fatalf("expected wrapped ErrHTTPStatus 404, got %v", err)
	}
}
