package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/querydesk/querydesk/internal/config"
	"github.com/querydesk/querydesk/internal/seed"
	"github.com/querydesk/querydesk/internal/store"
)

func main() {
	rows := flag.Int("rows", 100, "total employee rows to provision")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv("querydesk-seed")
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	dialect, err := store.ParseDialect(cfg.Store.Dialect)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dialect error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	db, err := store.Open(ctx, store.Config{Dialect: dialect, DSN: cfg.Store.DSN})
	if err != nil {
		fmt.Fprintf(os.Stderr, "store open error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	seeder := seed.NewSeeder(db, dialect, *rows, nil)
	if err := seeder.Ensure(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "seeding failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("employees dataset is ready")
}
