// Package parser extracts book records from catalog HTML.
package parser

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/aluiziolira/go-books-etl/models"
)

// ParseListing extracts one partial record per product entry on a
// catalog listing page. Relative links are resolved against pageURL.
// Entries missing a title or detail link are unusable and dropped;
// other missing selectors yield empty fields.
func ParseListing(html []byte, pageURL *url.URL) ([]*models.Book, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse listing: %w", err)
	}

	var books []*models.Book
	doc.Find("article.product_pod").Each(func(_ int, entry *goquery.Selection) {
		link := entry.Find("h3 a")
		title := strings.TrimSpace(link.AttrOr("title", ""))
		href := link.AttrOr("href", "")
		if title == "" || href == "" {
			return
		}

		availability := strings.TrimSpace(entry.Find("p.instock.availability").Text())
		if availability == "" {
			availability = strings.TrimSpace(entry.Find("p.availability").Text())
		}

		books = append(books, &models.Book{
			Title:        title,
			PriceText:    strings.TrimSpace(entry.Find("p.price_color").Text()),
			Availability: availability,
			RatingText:   ratingToken(entry.Find("p.star-rating").AttrOr("class", "")),
			ImageURL:     ResolveURL(pageURL, entry.Find("div.image_container img").AttrOr("src", "")),
			DetailURL:    ResolveURL(pageURL, href),
		})
	})

	return books, nil
}

// ratingToken returns the class carrying the star count, e.g. "Three"
// from "star-rating Three".
func ratingToken(class string) string {
	for _, part := range strings.Fields(class) {
		if part != "star-rating" {
			return part
		}
	}
	return ""
}

// ResolveURL resolves href against base, returning href unchanged when
// it cannot be parsed.
func ResolveURL(base *url.URL, href string) string {
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	if base == nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}
