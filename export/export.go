// Package export serializes stored rows to a delimited file.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/aluiziolira/go-books-etl/models"
	"github.com/aluiziolira/go-books-etl/storage"
)

// Header is the fixed column order of the export file, matching the
// libros schema.
var Header = []string{"id", "titulo", "precio", "disponibilidad", "rating", "categoria", "upc"}

// Exporter reads the first rows of the store and writes them as CSV.
type Exporter struct {
	store *storage.Store
}

// NewExporter builds an exporter over store.
func NewExporter(store *storage.Store) *Exporter {
	return &Exporter{store: store}
}

// Export writes a header plus the first n stored rows (oldest insert
// first) to path, overwriting any existing file. It returns the number
// of data rows written.
func (e *Exporter) Export(ctx context.Context, n int, path string) (int, error) {
	rows, err := e.store.FirstN(ctx, n)
	if err != nil {
		return 0, err
	}

	if err := ensureDir(path); err != nil {
		return 0, err
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create export file: %w", err)
	}

	writer := csv.NewWriter(f)
	if err := writer.Write(Header); err != nil {
		f.Close()
		return 0, fmt.Errorf("write export header: %w", err)
	}
	for _, row := range rows {
		if err := writer.Write(Record(row)); err != nil {
			f.Close()
			return 0, fmt.Errorf("write export record: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		f.Close()
		return 0, fmt.Errorf("flush export file: %w", err)
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("close export file: %w", err)
	}

	return len(rows), nil
}

// Record renders one stored row in the Header column order.
func Record(row models.StoredBook) []string {
	return []string{
		strconv.FormatInt(row.ID, 10),
		row.Titulo,
		strconv.FormatFloat(row.Precio, 'f', 2, 64),
		row.Disponibilidad,
		strconv.Itoa(row.Rating),
		row.Categoria,
		row.UPC,
	}
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
