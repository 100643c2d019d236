package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/concierge/backend/internal/infrastructure/config"
	"github.com/concierge/backend/internal/infrastructure/logger"
	"github.com/concierge/backend/internal/infrastructure/migration"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

const defaultMigrationsDir = "migrations"

func main() {
	var (
		migrationsPath string
		logLevel       string
	)
	flag.StringVar(&migrationsPath, "path", "", "migrations directory (default: ./migrations)")
	flag.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(2)
	}

	log, err := logger.New(&logger.Config{
		Level:      logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger init:", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	if err := run(args[0], args[1:], migrationsPath, log); err != nil {
		log.Fatal("migrate command failed",
			zap.String("command", args[0]),
			zap.Error(err),
		)
	}
}

func run(command string, args []string, migrationsPath string, log *zap.Logger) error {
	path, err := resolveMigrationsPath(migrationsPath)
	if err != nil {
		return err
	}

	// create and list only touch the filesystem
	switch command {
	case "create":
		return runCreate(path, args, log)
	case "list":
		return runList(path, log)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	m, err := migration.New(db, path, log)
	if err != nil {
		return err
	}
	defer m.Close()

	switch command {
	case "up":
		return m.Up()
	case "down":
		return m.Down()
	case "step":
		n, err := intArg(args, "step count")
		if err != nil {
			return err
		}
		return m.Steps(n)
	case "goto":
		v, err := intArg(args, "target version")
		if err != nil {
			return err
		}
		if v < 0 {
			return fmt.Errorf("target version must not be negative")
		}
		return m.GoTo(uint(v))
	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			return err
		}
		if version == 0 {
			log.Info("no migrations applied")
		} else {
			log.Info("schema version", zap.Uint("version", version), zap.Bool("dirty", dirty))
		}
		return nil
	case "force":
		v, err := intArg(args, "version")
		if err != nil {
			return err
		}
		log.Warn("overriding recorded schema version", zap.Int("version", v))
		return m.Force(v)
	case "drop":
		if !hasConfirmFlag(args) {
			return fmt.Errorf("drop removes every database object; rerun with -confirm")
		}
		return m.Drop()
	default:
		printUsage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func runCreate(path string, args []string, log *zap.Logger) error {
	if len(args) == 0 {
		return fmt.Errorf("migration name required, e.g. migrate create add_rate_overrides_table")
	}
	description := ""
	if len(args) > 1 {
		description = args[1]
	}
	mf, err := migration.CreateMigration(path, args[0], description)
	if err != nil {
		return err
	}
	log.Info("migration files created",
		zap.String("version", mf.Version),
		zap.String("up", mf.UpPath),
		zap.String("down", mf.DownPath),
	)
	return nil
}

func runList(path string, log *zap.Logger) error {
	names, err := migration.ListMigrations(path)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		log.Info("no migrations found", zap.String("path", path))
		return nil
	}
	log.Info("available migrations", zap.Int("count", len(names)))
	for _, name := range names {
		fmt.Println("  -", name)
	}
	return nil
}

// resolveMigrationsPath falls back to ./migrations, then to the directory
// two levels above the binary for installs that keep the repo layout.
func resolveMigrationsPath(explicit string) (string, error) {
	path := explicit
	if path == "" {
		path = defaultMigrationsDir
		if _, err := os.Stat(path); err != nil {
			if execPath, execErr := os.Executable(); execErr == nil {
				candidate := filepath.Join(filepath.Dir(execPath), "..", "..", defaultMigrationsDir)
				if _, err := os.Stat(candidate); err == nil {
					path = candidate
				}
			}
		}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve migrations path: %w", err)
	}
	return abs, nil
}

func intArg(args []string, what string) (int, error) {
	if len(args) == 0 {
		return 0, fmt.Errorf("%s required", what)
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", what, args[0])
	}
	return n, nil
}

func hasConfirmFlag(args []string) bool {
	for _, arg := range args {
		if arg == "-confirm" || arg == "--confirm" {
			return true
		}
	}
	return false
}

func printUsage() {
	fmt.Println(`tariff schema migration tool

Usage:
  migrate [flags] <command> [arguments]

Commands:
  up                    apply all pending migrations
  down                  roll back all migrations
  step <n>              apply n migrations (negative rolls back)
  goto <version>        migrate to a specific version
  version               print the current schema version
  force <version>       set the recorded version without running migrations
  drop -confirm         drop every database object
  create <name> [desc]  write a new up/down migration pair
  list                  list migrations on disk

Flags:
  -path string          migrations directory (default: ./migrations)
  -log-level string     debug, info, warn or error (default: info)

Database settings come from config.yaml or CONCIERGE_DATABASE_* variables.`)
}
