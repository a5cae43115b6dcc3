package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/orderdesk/internal/linkimport"
	"github.com/xenking/orderdesk/internal/storage/postgres"
)

func main() {
	var (
		pattern     string
		databaseURL string
		managerID   string
		capacity    uint
		batchSize   int
	)
	flag.StringVar(&pattern, "files", "data/links*.csv.gz", "glob of gzip-compressed link exports")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&managerID, "manager-id", "", "manager that owns the imported links")
	flag.UintVar(&capacity, "bloom-capacity", 0, "expected tokens per file")
	flag.IntVar(&batchSize, "batch-size", 0, "links per COPY batch")
	flag.Parse()

	lg, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		lg.Fatal("Database URL is required: set --database-url or DATABASE_URL")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg := linkimport.Config{ManagerID: managerID, BloomCapacity: capacity, BatchSize: batchSize}
	if err := run(ctx, lg, cfg, pattern, databaseURL); err != nil {
		lg.Fatal("Link import failed", zap.Error(err))
	}
}

func run(ctx context.Context, lg *zap.Logger, cfg linkimport.Config, pattern, databaseURL string) error {
	files, err := filepath.Glob(pattern)
	if err != nil {
		return errors.Wrap(err, "expand files")
	}

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	im, err := linkimport.New(cfg, postgres.NewLinkRepository(pool), lg)
	if err != nil {
		return err
	}
	res, err := im.Run(ctx, files)
	if err != nil {
		return err
	}
	lg.Info("Link import completed",
		zap.Int64("lines", res.Lines),
		zap.Int64("invalid", res.Invalid),
		zap.Int("shared_tokens", res.Shared),
		zap.Int64("inserted", res.Inserted),
	)
	return nil
}
