// Command libraryd runs the library catalogue and lending server.
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/campuslib/library-catalogue-go/catalogue"
	"github.com/campuslib/library-catalogue-go/catalogue/postgresengine"
	"github.com/campuslib/library-catalogue-go/configs"
	"github.com/campuslib/library-catalogue-go/httpapi"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "libraryd",
		Short:         "Library catalogue and lending server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newServeCmd(), newMigrateCmd(), newImportBooksCmd())

	return rootCmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema if it does not exist",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, logger, engine, pool, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := engine.EnsureSchema(cmd.Context()); err != nil {
				return err
			}

			logger.Info("schema is up to date")

			return nil
		},
	}
}

func newImportBooksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import-books <csv-file>",
		Short: "Bulk-load books from a CSV file into the catalogue",
		Long: "Bulk-load books from a CSV file with the columns\n" +
			"title,author,isbn,category,year_published,total_copies.\n" +
			"A header row is detected and skipped.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, logger, engine, pool, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			imported, skipped, err := importBooks(cmd.Context(), engine, args[0])
			if err != nil {
				return err
			}

			logger.Info("import finished", "imported", imported, "skipped", skipped)

			return nil
		},
	}
}

func runServe(ctx context.Context) error {
	cfg, logger, engine, pool, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := engine.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensuring schema: %w", err)
	}

	router := httpapi.NewRouter(httpapi.Services{
		Lending:   engine,
		History:   engine,
		Catalogue: engine,
		Users:     engine,
		Logger:    logger,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErrors := make(chan error, 1)

	go func() {
		logger.Info("server listening", "port", cfg.Port)
		serverErrors <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}

	case sig := <-stop:
		logger.Info("shutting down", "signal", sig.String())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	logger.Info("server stopped")

	return nil
}

// bootstrap loads configuration and wires the logger, pool and engine.
func bootstrap(ctx context.Context) (configs.Config, *slog.Logger, postgresengine.Engine, *pgxpool.Pool, error) {
	cfg, err := configs.Load()
	if err != nil {
		return configs.Config{}, nil, postgresengine.Engine{}, nil, err
	}

	logger := newLogger(cfg.LogLevel)

	poolCfg, err := cfg.PGXPoolConfig()
	if err != nil {
		return configs.Config{}, nil, postgresengine.Engine{}, nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return configs.Config{}, nil, postgresengine.Engine{}, nil, fmt.Errorf("connecting to database: %w", err)
	}

	engine, err := postgresengine.NewEngineFromPGXPool(
		pool,
		postgresengine.WithLogger(logger),
		postgresengine.WithContextualLogger(logger),
	)
	if err != nil {
		pool.Close()
		return configs.Config{}, nil, postgresengine.Engine{}, nil, err
	}

	return cfg, logger, engine, pool, nil
}

func newLogger(level string) *slog.Logger {
	var slogLevel slog.Level

	switch strings.ToLower(level) {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slogLevel}))
}

// importBooks streams a CSV file into the catalogue. Rows that fail
// validation or collide on ISBN are skipped, not fatal.
func importBooks(ctx context.Context, engine postgresengine.Engine, path string) (imported int, skipped int, err error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer func() { _ = file.Close() }()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = 6

	for line := 0; ; line++ {
		row, readErr := reader.Read()
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			return imported, skipped, fmt.Errorf("reading csv line %d: %w", line+1, readErr)
		}

		if line == 0 && strings.EqualFold(row[0], "title") {
			continue
		}

		input, parseErr := bookInputFromRow(row)
		if parseErr != nil {
			skipped++
			continue
		}

		if _, createErr := engine.CreateBook(ctx, input); createErr != nil {
			if errors.Is(createErr, catalogue.ErrDuplicateISBN) ||
				errors.Is(createErr, catalogue.ErrMissingTitleOrAuthor) ||
				errors.Is(createErr, catalogue.ErrNegativeCopyCount) {
				skipped++
				continue
			}

			return imported, skipped, fmt.Errorf("importing csv line %d: %w", line+1, createErr)
		}

		imported++
	}

	return imported, skipped, nil
}

func bookInputFromRow(row []string) (catalogue.NewBookInput, error) {
	input := catalogue.NewBookInput{
		Title:  strings.TrimSpace(row[0]),
		Author: strings.TrimSpace(row[1]),
	}

	if isbn := strings.TrimSpace(row[2]); isbn != "" {
		input.ISBN = &isbn
	}

	if category := strings.TrimSpace(row[3]); category != "" {
		input.Category = &category
	}

	if rawYear := strings.TrimSpace(row[4]); rawYear != "" {
		year, err := strconv.Atoi(rawYear)
		if err != nil {
			return catalogue.NewBookInput{}, fmt.Errorf("invalid year %q: %w", rawYear, err)
		}
		input.YearPublished = &year
	}

	input.TotalCopies = 1
	if rawCopies := strings.TrimSpace(row[5]); rawCopies != "" {
		copies, err := strconv.Atoi(rawCopies)
		if err != nil {
			return catalogue.NewBookInput{}, fmt.Errorf("invalid copy count %q: %w", rawCopies, err)
		}
		input.TotalCopies = copies
	}

	return input, nil
}
