package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/Proyectitos24/RepasoAlbaranes/internal/infrastructure/config"
	"github.com/Proyectitos24/RepasoAlbaranes/internal/infrastructure/logger"
	"github.com/Proyectitos24/RepasoAlbaranes/internal/infrastructure/migration"
	"github.com/Proyectitos24/RepasoAlbaranes/internal/infrastructure/persistence"
	"go.uber.org/zap"
)

func main() {
	// Parse flags
	var (
		storePath string
		logLevel  string
	)

	flag.StringVar(&storePath, "store", "", "Path to the store file (default: store.path from config)")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	// Get command
	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	command := args[0]

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	// List doesn't need the store
	if command == "list" {
		for _, m := range migration.Migrations() {
			fmt.Printf("  %3d  %s\n", m.Version, m.Name)
		}
		return
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}
	if storePath != "" {
		cfg.Store.Path = storePath
	}

	log.Info("Migration CLI started",
		zap.String("command", command),
		zap.String("store", cfg.Store.Path),
	)

	db, err := persistence.NewDatabase(&cfg.Store)
	if err != nil {
		log.Fatal("Failed to open store", zap.Error(err))
	}
	defer db.Close()

	ctx := context.Background()
	m := migration.NewManager(db.DB, log)

	// Execute command
	switch command {
	case "up":
		if err := m.EnsureSchema(ctx); err != nil {
			log.Fatal("Migration up failed", zap.Error(err))
		}
		version, err := m.Version(ctx)
		if err != nil {
			log.Fatal("Failed to get version", zap.Error(err))
		}
		log.Info("Store is up to date", zap.Int("version", version))

	case "version":
		version, err := m.Version(ctx)
		if err != nil {
			log.Fatal("Failed to get version", zap.Error(err))
		}
		if version == 0 {
			log.Info("No migrations applied")
		} else {
			log.Info("Current migration version", zap.Int("version", version))
		}

	case "status":
		applied, err := m.Applied(ctx)
		if err != nil {
			log.Fatal("Failed to read applied migrations", zap.Error(err))
		}
		pending, err := m.Pending(ctx)
		if err != nil {
			log.Fatal("Failed to read pending migrations", zap.Error(err))
		}
		for _, a := range applied {
			fmt.Printf("  applied  %3d  %-32s %s\n", a.Version, a.Name, a.AppliedAt)
		}
		for _, p := range pending {
			fmt.Printf("  pending  %3d  %s\n", p.Version, p.Name)
		}

	default:
		log.Error("Unknown command", zap.String("command", command))
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Store Migration Tool

Usage:
  migrate [flags] <command>

Commands:
  up          Apply all pending migrations
  version     Show current migration version
  status      Show applied and pending migrations
  list        List known migrations

Flags:
  -store string       Path to the store file (default: store.path from config)
  -log-level string   Log level: debug, info, warn, error (default: info)

Environment Variables:
  ALB_STORE_PATH, ALB_STORE_BUSY_TIMEOUT, ALB_STORE_WAL

Examples:
  # Bring a store copied from a device up to date
  migrate -store ./albaranes.db up

  # Check what a store still needs
  migrate -store ./albaranes.db status`)
}
