// Package main is the entry point for the Candela admin tool.
// It talks straight to the database and storage, bypassing the HTTP
// API, for operational tasks: bootstrapping admins, auditing and
// deleting candles, and running the media GC by hand.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/candleworks/candela/internal/config"
	"github.com/candleworks/candela/internal/lock"
	"github.com/candleworks/candela/internal/repository"
	"github.com/candleworks/candela/internal/repository/postgres"
	"github.com/candleworks/candela/internal/repository/sqlite"
	"github.com/candleworks/candela/internal/service"
	"github.com/candleworks/candela/internal/storage"
	"github.com/candleworks/candela/internal/token"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 3 && (len(os.Args) < 2 || os.Args[1] != "help" && os.Args[1] != "version") {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "version":
		fmt.Printf("Candela Admin Tool\n")
		fmt.Printf("Version: %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)

	case "help":
		printUsage()

	case "user":
		runUser(os.Args[2], os.Args[3:])

	case "candle":
		runCandle(os.Args[2], os.Args[3:])

	case "gc":
		runGC(os.Args[2], os.Args[3:])

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// env opens everything a subcommand might need.
type env struct {
	cfg        *config.Config
	logger     zerolog.Logger
	users      repository.UserRepository
	candles    repository.CandleRepository
	references repository.ReferenceRepository
	closeDB    func() error
}

func openEnv(ctx context.Context) *env {
	cfg := config.MustLoad(os.Getenv("CANDELA_CONFIG"))
	logger := zerolog.New(os.Stderr).Level(zerolog.WarnLevel).With().Timestamp().Logger()

	e := &env{cfg: cfg, logger: logger}

	if cfg.Database.IsEmbedded() {
		db, err := sqlite.NewDB(ctx, sqlite.DefaultConfig(cfg.Database.Path), logger)
		if err != nil {
			fatal("open sqlite: %v", err)
		}
		if err := db.Migrate(ctx); err != nil {
			fatal("migrate: %v", err)
		}
		e.users = sqlite.NewUserRepository(db)
		e.candles = sqlite.NewCandleRepository(db)
		e.references = sqlite.NewReferenceRepository(db)
		e.closeDB = db.Close
		return e
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
	if err := db.Migrate(ctx); err != nil {
		fatal("migrate: %v", err)
	}
	e.users = postgres.NewUserRepository(db)
	e.candles = postgres.NewCandleRepository(db)
	e.references = postgres.NewReferenceRepository(db)
	e.closeDB = db.Close
	return e
}

// =============================================================================
// user
// =============================================================================

func runUser(sub string, args []string) {
	ctx := context.Background()

	switch sub {
	case "create-admin":
		fs := flag.NewFlagSet("user create-admin", flag.ExitOnError)
		email := fs.String("email", "", "email address for the new admin")
		fullName := fs.String("name", "", "display name")
		fs.Parse(args)
		if *email == "" {
			fatal("--email is required")
		}

		e := openEnv(ctx)
		defer e.closeDB()

		password := readPassword("Password: ")
		tokens := token.NewService(e.cfg.Auth.TokenSecret, e.cfg.Auth.TokenTTL)
		authService := service.NewAuthService(e.users, tokens, e.cfg.Auth.AdminAPIKey, e.logger)

		output, err := authService.CreateAdmin(ctx, service.CreateAdminInput{
			Email:       *email,
			Password:    password,
			FullName:    *fullName,
			AdminAPIKey: e.cfg.Auth.AdminAPIKey,
		})
		if err != nil {
			fatal("create admin: %v", err)
		}
		fmt.Printf("created admin %s (id %d)\n", output.User.Email, output.User.ID)

	case "list":
		e := openEnv(ctx)
		defer e.closeDB()

		userService := service.NewUserService(e.users, e.logger)
		output, err := userService.List(ctx, service.ListUsersInput{Limit: 100})
		if err != nil {
			fatal("list users: %v", err)
		}
		fmt.Printf("%-6s %-30s %-20s %s\n", "ID", "EMAIL", "NAME", "ADMIN")
		for _, u := range output.Users {
			fmt.Printf("%-6d %-30s %-20s %v\n", u.ID, u.Email, u.FullName, u.IsAdmin)
		}
		fmt.Printf("%d users total\n", output.Total)

	default:
		fatal("unknown user subcommand: %s", sub)
	}
}

// =============================================================================
// candle
// =============================================================================

func runCandle(sub string, args []string) {
	ctx := context.Background()

	switch sub {
	case "audit":
		fs := flag.NewFlagSet("candle audit", flag.ExitOnError)
		id := fs.Int64("id", 0, "candle id to audit")
		fs.Parse(args)
		if *id <= 0 {
			fatal("--id is required")
		}

		e := openEnv(ctx)
		defer e.closeDB()

		deletionService := service.NewDeletionService(e.candles, e.references, nil, e.logger)
		audit, err := deletionService.Audit(ctx, *id)
		if err != nil {
			fatal("audit: %v", err)
		}

		fmt.Printf("candle %d\n", audit.CandleID)
		for _, rel := range audit.Relations {
			kind := "disposable"
			if !rel.Disposable {
				kind = "blocking"
			}
			fmt.Printf("  %-15s %-10s %d rows\n", rel.Relation, kind, rel.Count)
			for _, row := range rel.Rows {
				fmt.Printf("    - %s\n", row.Detail)
			}
		}
		if audit.Blocking() {
			fmt.Println("delete would be BLOCKED by order history")
		} else if audit.HasReferences() {
			fmt.Println("delete possible; disposable rows would need --cascade")
		} else {
			fmt.Println("no references, delete is safe")
		}

	case "delete":
		fs := flag.NewFlagSet("candle delete", flag.ExitOnError)
		ids := fs.String("ids", "", "comma-separated candle ids")
		cascade := fs.Bool("cascade", false, "purge cart items, wishlists and reviews too")
		fs.Parse(args)
		idList := parseIDs(*ids)
		if len(idList) == 0 {
			fatal("--ids is required")
		}

		e := openEnv(ctx)
		defer e.closeDB()

		deletionService := service.NewDeletionService(e.candles, e.references, nil, e.logger)
		opts := service.DeleteOptions{CascadeDisposable: *cascade}

		if len(idList) == 1 {
			if err := deletionService.Delete(ctx, idList[0], opts); err != nil {
				fatal("delete: %v", err)
			}
			fmt.Printf("deleted candle %d\n", idList[0])
			return
		}

		output, err := deletionService.DeleteBatch(ctx, idList, opts)
		if err != nil {
			fatal("batch delete: %v", err)
		}
		fmt.Printf("deleted %d of %d\n", output.DeletedCount, len(idList))
		if len(output.Failed) > 0 {
			fmt.Printf("blocked by references: %v\n", output.Failed)
		}
		if len(output.NotFound) > 0 {
			fmt.Printf("not found: %v\n", output.NotFound)
		}

	default:
		fatal("unknown candle subcommand: %s", sub)
	}
}

// =============================================================================
// gc
// =============================================================================

func runGC(sub string, args []string) {
	ctx := context.Background()

	switch sub {
	case "run":
		fs := flag.NewFlagSet("gc run", flag.ExitOnError)
		dryRun := fs.Bool("dry-run", false, "report orphans without deleting")
		fs.Parse(args)

		e := openEnv(ctx)
		defer e.closeDB()

		var media storage.Backend
		var err error
		if e.cfg.Storage.Backend == "s3" {
			media, err = storage.NewS3Backend(ctx, storage.S3Config{
				Region:       e.cfg.Storage.S3Region,
				Bucket:       e.cfg.Storage.S3Bucket,
				Endpoint:     e.cfg.Storage.S3Endpoint,
				AccessKey:    e.cfg.Storage.S3AccessKey,
				SecretKey:    e.cfg.Storage.S3SecretKey,
				UsePathStyle: e.cfg.Storage.S3UsePathStyle,
			}, e.logger)
		} else {
			media, err = storage.NewFilesystemBackend(e.cfg.Storage.DataDir, e.logger)
		}
		if err != nil {
			fatal("open storage: %v", err)
		}

		gcConfig := service.GCConfig{
			Interval:    e.cfg.GC.Interval,
			GracePeriod: e.cfg.GC.GracePeriod,
			BatchSize:   e.cfg.GC.BatchSize,
			DryRun:      *dryRun || e.cfg.GC.DryRun,
		}
		// A one-shot CLI sweep has the process to itself, so no real
		// locking is needed.
		gc := service.NewMediaGC(e.candles, media, lock.NewNoOpLocker(), nil, e.logger, gcConfig)

		result := gc.RunOnce(ctx)
		verb := "deleted"
		if gcConfig.DryRun {
			verb = "would delete"
		}
		fmt.Printf("%s %d objects (%d bytes), %d skipped, %d errors in %s\n",
			verb, result.ObjectsDeleted, result.BytesFreed, result.Skipped, result.Errors,
			result.Duration.Round(time.Millisecond))

	default:
		fatal("unknown gc subcommand: %s", sub)
	}
}

// =============================================================================
// helpers
// =============================================================================

func parseIDs(s string) []int64 {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			fatal("invalid id: %q", part)
		}
		ids = append(ids, id)
	}
	return ids
}

// readPassword reads the password from the CANDELA_ADMIN_PASSWORD
// variable when set (for scripting), otherwise prompts on stdin.
func readPassword(prompt string) string {
	if p := os.Getenv("CANDELA_ADMIN_PASSWORD"); p != "" {
		return p
	}
	fmt.Print(prompt)
	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		fatal("read password: %v", scanner.Err())
	}
	return strings.TrimSpace(scanner.Text())
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func printUsage() {
	fmt.Println(`Candela Admin Tool

Usage:
  candela-admin <command> <subcommand> [flags]

Commands:
  user create-admin --email <email> [--name <name>]   Create an admin account
  user list                                            List accounts
  candle audit --id <id>                               Show dependent rows for a candle
  candle delete --ids <id,id,...> [--cascade]          Delete candles
  gc run [--dry-run]                                   Sweep orphaned media now
  version                                              Print version information
  help                                                 Show this help message

Configuration is read the same way as the server: CANDELA_* environment
variables plus an optional config file named by CANDELA_CONFIG.`)
}
