// Package storage persists book records to a SQLite database keyed by
// UPC.
package storage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/aluiziolira/go-books-etl/models"
)

func init() {
	// The modernc driver registers as "sqlite", which sqlx does not
	// know a bindvar style for.
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

const schema = `
CREATE TABLE IF NOT EXISTS libros (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    titulo TEXT NOT NULL,
    precio DECIMAL(10,2),
    disponibilidad TEXT,
    rating INTEGER,
    url_imagen TEXT,
    descripcion TEXT,
    upc TEXT NOT NULL UNIQUE,
    categoria TEXT,
    fecha_extraccion TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

const upsertQuery = `
INSERT INTO libros (titulo, precio, disponibilidad, rating, url_imagen, descripcion, upc, categoria)
VALUES (:titulo, :precio, :disponibilidad, :rating, :url_imagen, NULLIF(:descripcion, ''), :upc, NULLIF(:categoria, ''))
ON CONFLICT(upc) DO UPDATE SET
    titulo = excluded.titulo,
    precio = excluded.precio,
    disponibilidad = excluded.disponibilidad,
    rating = excluded.rating,
    url_imagen = excluded.url_imagen,
    descripcion = excluded.descripcion,
    categoria = excluded.categoria,
    fecha_extraccion = CURRENT_TIMESTAMP;
`

const firstNQuery = `
SELECT id, titulo, precio, COALESCE(disponibilidad, '') AS disponibilidad, rating,
       COALESCE(url_imagen, '') AS url_imagen, COALESCE(descripcion, '') AS descripcion,
       upc, COALESCE(categoria, '') AS categoria,
       CAST(fecha_extraccion AS TEXT) AS fecha_extraccion
FROM libros
ORDER BY id
LIMIT ?;
`

// Store owns the libros schema on a single SQLite connection held for
// the duration of a run.
type Store struct {
	db *sqlx.DB
}

// Open opens (or creates) the database at path and ensures the schema
// exists. Schema creation is idempotent. The caller must Close the
// store on every exit path.
func Open(path string) (*Store, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// UpsertBook inserts the record, or overwrites the mutable fields of
// the existing row sharing its UPC. fecha_extraccion is refreshed
// either way. Each upsert is its own atomic unit; re-running the
// pipeline is idempotent with respect to content.
func (s *Store) UpsertBook(ctx context.Context, book *models.Book) (int64, error) {
	if !book.Complete() {
		return 0, fmt.Errorf("record without UPC cannot be upserted")
	}
	if _, err := s.db.NamedExecContext(ctx, upsertQuery, book); err != nil {
		return 0, fmt.Errorf("upsert %s: %w", book.UPC, err)
	}

	var id int64
	if err := s.db.GetContext(ctx, &id, "SELECT id FROM libros WHERE upc = ?;", book.UPC); err != nil {
		return 0, fmt.Errorf("read back row id for %s: %w", book.UPC, err)
	}
	return id, nil
}

// FirstN returns the first n stored rows, oldest insert first.
func (s *Store) FirstN(ctx context.Context, n int) ([]models.StoredBook, error) {
	rows := []models.StoredBook{}
	if err := s.db.SelectContext(ctx, &rows, firstNQuery, n); err != nil {
		return nil, fmt.Errorf("select first %d rows: %w", n, err)
	}
	return rows, nil
}

// Count returns the number of stored rows.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM libros;"); err != nil {
		return 0, fmt.Errorf("count rows: %w", err)
	}
	return count, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
