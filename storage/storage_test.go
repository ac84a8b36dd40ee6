package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aluiziolira/go-books-etl/models"
)

func testBook(upc, title string, price float64) *models.Book {
	return &models.Book{
		Title:        title,
		Price:        price,
		Availability: "in stock",
		Rating:       3,
		ImageURL:     "http://example.test/media/" + upc + ".jpg",
		Description:  "desc for " + title,
		UPC:          upc,
		Category:     "Poetry",
	}
}

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "libros.db")
	store, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, path
}

func TestUpsertInsertThenUpdate(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	id1, err := store.UpsertBook(ctx, testBook("upc-1", "First", 9.99))
	require.NoError(t, err)
	require.Positive(t, id1)

	id2, err := store.UpsertBook(ctx, testBook("upc-1", "First Revised", 12.50))
	require.NoError(t, err)
	require.Equal(t, id1, id2, "same UPC must resolve to the same row")

	count, err := store.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	rows, err := store.FirstN(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "First Revised", rows[0].Titulo)
	require.InDelta(t, 12.50, rows[0].Precio, 0.001)
	require.Equal(t, "upc-1", rows[0].UPC)
	require.NotEmpty(t, rows[0].FechaExtraccion)
}

func TestUpsertRejectsIncompleteRecord(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	book := testBook("", "No Key", 5.00)
	_, err := store.UpsertBook(ctx, book)
	require.Error(t, err)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	require.Zero(t, count, "a record without UPC must never be persisted")
}

func TestFirstNReturnsInsertionOrder(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		_, err := store.UpsertBook(ctx, testBook(fmt.Sprintf("upc-%d", i), fmt.Sprintf("Book %d", i), float64(i)))
		require.NoError(t, err)
	}

	rows, err := store.FirstN(ctx, 3)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for i, row := range rows {
		require.Equal(t, fmt.Sprintf("Book %d", i+1), row.Titulo)
	}

	// Re-upserting an early row must not change its position.
	_, err = store.UpsertBook(ctx, testBook("upc-1", "Book 1 Revised", 1.50))
	require.NoError(t, err)
	rows, err = store.FirstN(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "Book 1 Revised", rows[0].Titulo)
}

func TestNullableFieldsRoundTrip(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	book := testBook("upc-9", "Sparse", 3.00)
	book.Description = ""
	book.Category = ""
	_, err := store.UpsertBook(ctx, book)
	require.NoError(t, err)

	rows, err := store.FirstN(ctx, 1)
	require.NoError(t, err)
	require.Empty(t, rows[0].Descripcion)
	require.Empty(t, rows[0].Categoria)
}

func TestReopenIsIdempotent(t *testing.T) {
	store, path := openTestStore(t)
	ctx := context.Background()

	_, err := store.UpsertBook(ctx, testBook("upc-1", "Kept", 7.00))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	count, err := reopened.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}
