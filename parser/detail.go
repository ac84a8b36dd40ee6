package parser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Detail holds the fields extracted from a book's detail page.
type Detail struct {
	Description string
	UPC         string
	Category    string
}

// ParseDetail extracts description, UPC and category from a detail
// page. Any of the three may be absent; absence is reported as an empty
// string, never an error. Callers decide whether a missing field is
// fatal for the record (only the UPC is).
func ParseDetail(html []byte) (Detail, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return Detail{}, fmt.Errorf("parse detail: %w", err)
	}

	var d Detail

	// The description is the first paragraph after the
	// #product_description header. Some catalog entries have none.
	d.Description = strings.TrimSpace(doc.Find("#product_description").NextAllFiltered("p").First().Text())

	doc.Find("table.table.table-striped tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		if strings.TrimSpace(row.Find("th").Text()) == "UPC" {
			d.UPC = strings.TrimSpace(row.Find("td").Text())
			return false
		}
		return true
	})

	// Breadcrumb trail is Home / Books / <category> / <title>; the last
	// linked entry is the category.
	links := doc.Find("ul.breadcrumb li a")
	if links.Length() >= 3 {
		d.Category = strings.TrimSpace(links.Last().Text())
	}

	return d, nil
}
