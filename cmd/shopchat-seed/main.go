package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/shopchat/shopchat/internal/config"
	"github.com/shopchat/shopchat/internal/demo"
	"github.com/shopchat/shopchat/internal/observability"
	duckdbengine "github.com/shopchat/shopchat/internal/query/duckdb"
	postgresengine "github.com/shopchat/shopchat/internal/query/postgres"
	"github.com/shopchat/shopchat/internal/schema"
)

func main() {
	orders := flag.Int("orders", 50, "number of sample orders to generate")
	seed := flag.Int64("seed", 1, "random seed for the generated data")
	flag.Parse()

	cfg, err := config.LoadFromEnv("shopchat-seed")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg, os.Stdout)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	catalog := schema.NewRetailCatalog()
	stats, err := seedDatabase(ctx, cfg, catalog, demo.Options{
		Driver: cfg.Database.Driver,
		Orders: *orders,
		Seed:   *seed,
	})
	if err != nil {
		logger.Error("seeding failed", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("database seeded",
		slog.String("driver", cfg.Database.Driver),
		slog.Int("stores", stats.Stores),
		slog.Int("customers", stats.Customers),
		slog.Int("products", stats.Products),
		slog.Int("orders", stats.Orders),
		slog.Int("order_items", stats.OrderItems),
	)
}

func seedDatabase(ctx context.Context, cfg config.Config, catalog *schema.Catalog, opts demo.Options) (demo.Stats, error) {
	if cfg.Database.Driver == "postgres" {
		engine, err := postgresengine.Open(ctx, postgresengine.Config{
			DSN:             cfg.Database.DSN,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		})
		if err != nil {
			return demo.Stats{}, err
		}
		defer func() { _ = engine.Close() }()
		return demo.Seed(ctx, engine.DB(), catalog, opts)
	}

	engine, err := duckdbengine.Open(cfg.Database.Path)
	if err != nil {
		return demo.Stats{}, err
	}
	defer func() { _ = engine.Close() }()
	return demo.Seed(ctx, engine.DB(), catalog, opts)
}
