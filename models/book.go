// Package models defines data structures for the scraper.
package models

import "time"

// Book is a catalog record as it moves through the pipeline. The
// listing stage fills the first group of fields; the detail stage fills
// Description, UPC and Category. PriceText and RatingText carry the raw
// extracted text until normalization replaces them with typed values.
type Book struct {
	Title        string  `db:"titulo" json:"titulo"`
	Price        float64 `db:"precio" json:"precio"`
	Availability string  `db:"disponibilidad" json:"disponibilidad"`
	Rating       int     `db:"rating" json:"rating"`
	ImageURL     string  `db:"url_imagen" json:"url_imagen"`
	Description  string  `db:"descripcion" json:"descripcion,omitempty"`
	UPC          string  `db:"upc" json:"upc"`
	Category     string  `db:"categoria" json:"categoria,omitempty"`

	// Transient fields, never persisted.
	PriceText  string `db:"-" json:"-"`
	RatingText string `db:"-" json:"-"`
	DetailURL  string `db:"-" json:"-"`
}

// Complete reports whether the detail stage has populated the record.
// Only complete records are safe to upsert: the UPC is the sole
// deduplication key.
func (b *Book) Complete() bool {
	return b != nil && b.Title != "" && b.UPC != ""
}

// StoredBook is a row read back from the libros table.
type StoredBook struct {
	ID              int64   `db:"id"`
	Titulo          string  `db:"titulo"`
	Precio          float64 `db:"precio"`
	Disponibilidad  string  `db:"disponibilidad"`
	Rating          int     `db:"rating"`
	URLImagen       string  `db:"url_imagen"`
	Descripcion     string  `db:"descripcion"`
	UPC             string  `db:"upc"`
	Categoria       string  `db:"categoria"`
	FechaExtraccion string  `db:"fecha_extraccion"`
}

// RunResult holds the overall result of a pipeline run.
type RunResult struct {
	StartTime     time.Time
	EndTime       time.Time
	Pages         int
	Attempted     int
	Persisted     int
	Skipped       int
	SkipsByReason map[string]int
	ErrorsByType  map[string]int
	FailedURLs    []string
	RequestCount  int
}
