package parser

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/aluiziolira/go-books-etl/models"
)

// Canonical availability labels stored in the database.
const (
	AvailabilityInStock    = "in stock"
	AvailabilityOutOfStock = "out of stock"
	AvailabilityUnknown    = "unknown"
)

// ValidateStub ensures the listing stage captured the fields the rest
// of the pipeline depends on.
func ValidateStub(b *models.Book) error {
	if b == nil {
		return fmt.Errorf("book is nil")
	}
	if strings.TrimSpace(b.Title) == "" {
		return fmt.Errorf("book missing title")
	}
	if strings.TrimSpace(b.PriceText) == "" {
		return fmt.Errorf("book missing price for %s", b.Title)
	}
	if strings.TrimSpace(b.DetailURL) == "" {
		return fmt.Errorf("book missing detail URL for %s", b.Title)
	}
	return nil
}

// NormalizePrice strips currency symbols and formatting from a price
// string such as "£51.77" and returns the value rounded to two decimal
// places. A non-numeric remainder is a validation error, never a zero.
func NormalizePrice(price string) (float64, error) {
	var sb strings.Builder
	for _, r := range price {
		if (r >= '0' && r <= '9') || r == '.' {
			sb.WriteRune(r)
		}
	}
	cleaned := sb.String()
	if cleaned == "" {
		return 0, fmt.Errorf("price %q has no numeric value", price)
	}
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("price %q is not numeric: %w", price, err)
	}
	if value < 0 {
		return 0, fmt.Errorf("price %q is negative", price)
	}
	return math.Round(value*100) / 100, nil
}

// NormalizeAvailability maps free availability text onto the canonical
// vocabulary. Unmatched text maps to "unknown" rather than failing.
func NormalizeAvailability(text string) string {
	lowered := strings.ToLower(strings.TrimSpace(text))
	switch {
	case strings.Contains(lowered, AvailabilityOutOfStock):
		return AvailabilityOutOfStock
	case strings.Contains(lowered, AvailabilityInStock):
		return AvailabilityInStock
	default:
		return AvailabilityUnknown
	}
}

// RatingToNumeric converts the star-rating class token to an integer.
// Unrecognized tokens map to 0.
func RatingToNumeric(rating string) int {
	switch strings.TrimSpace(rating) {
	case "Zero":
		return 0
	case "One":
		return 1
	case "Two":
		return 2
	case "Three":
		return 3
	case "Four":
		return 4
	case "Five":
		return 5
	default:
		return 0
	}
}
