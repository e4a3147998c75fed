// Package main is the entry point for the Candela database migration
// tool. It applies the embedded schema migrations against either the
// SQLite or PostgreSQL backend named by the configuration.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/candleworks/candela/internal/config"
	"github.com/candleworks/candela/internal/repository/postgres"
	"github.com/candleworks/candela/internal/repository/sqlite"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// migrator is the slice of the database layer this tool needs.
type migrator interface {
	Version(ctx context.Context) (int, error)
	Migrate(ctx context.Context) error
	Close() error
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "version":
		fmt.Printf("Candela Migration Tool\n")
		fmt.Printf("Version: %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)

	case "up":
		db, driver := open()
		defer db.Close()
		if err := db.Migrate(context.Background()); err != nil {
			fatal("migrate: %v", err)
		}
		version, err := db.Version(context.Background())
		if err != nil {
			fatal("read schema version: %v", err)
		}
		fmt.Printf("%s schema is at version %d\n", driver, version)

	case "status":
		db, driver := open()
		defer db.Close()
		version, err := db.Version(context.Background())
		if err != nil {
			fatal("read schema version: %v", err)
		}
		fmt.Printf("driver:  %s\n", driver)
		fmt.Printf("version: %d\n", version)

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func open() (migrator, string) {
	cfg := config.MustLoad(os.Getenv("CANDELA_CONFIG"))
	logger := zerolog.New(os.Stderr).Level(zerolog.WarnLevel).With().Timestamp().Logger()
	ctx := context.Background()

	if cfg.Database.IsEmbedded() {
		db, err := sqlite.NewDB(ctx, sqlite.DefaultConfig(cfg.Database.Path), logger)
		if err != nil {
			fatal("open sqlite: %v", err)
		}
		return db, "sqlite"
	}

	pc := postgres.DefaultConfig()
	pc.Host = cfg.Database.Host
	pc.Port = cfg.Database.Port
	pc.User = cfg.Database.User
	pc.Password = cfg.Database.Password
	pc.Database = cfg.Database.Database
	pc.SSLMode = cfg.Database.SSLMode
	db, err := postgres.NewDB(ctx, pc, logger)
	if err != nil {
		fatal("open postgres: %v", err)
	}
	return db, "postgres"
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func printUsage() {
	fmt.Println(`Candela Migration Tool

Usage:
  candela-migrate <command>

Commands:
  up          Apply all pending migrations
  status      Show the current schema version
  version     Print version information
  help        Show this help message

Configuration is read the same way as the server: CANDELA_* environment
variables plus an optional config file named by CANDELA_CONFIG.

Examples:
  CANDELA_DATABASE_DRIVER=sqlite CANDELA_DATABASE_PATH=./data/candela.db candela-migrate up
  CANDELA_DATABASE_DRIVER=postgres CANDELA_DATABASE_HOST=db candela-migrate status`)
}
