package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/aluiziolira/go-books-etl/config"
	"github.com/aluiziolira/go-books-etl/export"
	"github.com/aluiziolira/go-books-etl/storage"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.DefaultConfig()
	dbDefault := cfg.DBPath
	if value, ok := config.EnvString("SCRAPER_DB"); ok {
		dbDefault = value
	}
	outputDefault := cfg.ExportFile
	if value, ok := config.EnvString("SCRAPER_EXPORT"); ok {
		outputDefault = value
	}
	limitDefault := cfg.ExportLimit
	if value, ok, err := config.EnvInt("SCRAPER_EXPORT_LIMIT"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid SCRAPER_EXPORT_LIMIT: %v\n", err)
		return 1
	} else if ok {
		limitDefault = value
	}

	dbPath := flag.String("db", dbDefault, "SQLite database path")
	output := flag.String("output", outputDefault, "Export CSV path")
	limit := flag.Int("limit", limitDefault, "Number of rows to export")

	flag.Parse()

	if *limit <= 0 {
		slog.Error("limit must be positive", slog.Int("limit", *limit))
		return 1
	}

	store, err := storage.Open(*dbPath)
	if err != nil {
		slog.Error("opening store", slog.Any("error", err))
		return 1
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Error("close store", slog.Any("error", err))
		}
	}()

	ctx := context.Background()

	rows, err := store.FirstN(ctx, *limit)
	if err != nil {
		slog.Error("reading rows", slog.Any("error", err))
		return 1
	}
	fmt.Printf("First %d records:\n", len(rows))
	for _, row := range rows {
		fmt.Println(strings.Join(export.Record(row), ", "))
	}

	count, err := export.NewExporter(store).Export(ctx, *limit, *output)
	if err != nil {
		slog.Error("export failed", slog.Any("error", err))
		return 1
	}
	fmt.Printf("\nExported %d rows to %s\n", count, *output)
	return 0
}
