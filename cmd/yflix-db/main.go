package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/yemenflix/yflix/internal/adapters/storage"
	"github.com/yemenflix/yflix/internal/config"
)

const usage = "Usage: yflix-db [--store-driver json|sqlite] [--store-path PATH] seed [--force] [--admin-password P] | validate | stats"

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).With().Timestamp().Logger()
	os.Exit(run(context.Background(), logger, os.Args[1:], os.Stdout))
}

// run renvoie le code de sortie; le store est fermé avant le retour.
func run(ctx context.Context, logger zerolog.Logger, argv []string, stdout io.Writer) int {
	fs := pflag.NewFlagSet("yflix-db", pflag.ContinueOnError)
	driver := fs.String("store-driver", envOr("YFLIX_STORE_DRIVER", "json"), "Driver du store: json ou sqlite")
	path := fs.String("store-path", envOr("YFLIX_STORE_PATH", "serverdata/database.json"), "Chemin de la base")
	force := fs.Bool("force", false, "seed: écrase une base non vide")
	adminUser := fs.String("admin-user", envOr("YFLIX_ADMIN_USER", "admin"), "seed: nom du compte admin")
	adminPassword := fs.String("admin-password", os.Getenv("YFLIX_ADMIN_PASSWORD"), "seed: mot de passe admin (ou YFLIX_ADMIN_PASSWORD)")
	if err := fs.Parse(argv); err != nil {
		return 2
	}

	args := fs.Args()
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, usage)
		return 2
	}
	switch args[0] {
	case "seed", "validate", "stats":
	default:
		fmt.Fprintln(os.Stderr, "Commande inconnue:", args[0])
		fmt.Fprintln(os.Stderr, usage)
		return 2
	}

	store, err := storage.Open(ctx, config.StoreConfig{Driver: *driver, Path: *path})
	if err != nil {
		logger.Error().Err(err).Msg("open store")
		return 1
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn().Err(err).Msg("close store")
		}
	}()

	switch args[0] {
	case "seed":
		res, err := seed(ctx, logger, store, seedOptions{Force: *force, AdminUser: *adminUser, AdminPassword: *adminPassword})
		if err != nil {
			logger.Error().Err(err).Msg("seed failed")
			return 1
		}
		logger.Info().Int("content", res.Content).Int("notifications", res.Notifications).Str("admin", res.Admin).Str("path", *path).Msg("seeded")
	case "validate":
		report, err := validateStore(ctx, store)
		if err != nil {
			logger.Error().Err(err).Msg("validate failed")
			return 1
		}
		for _, p := range report.Problems {
			logger.Error().Str("collection", p.Collection).Str("id", p.ID).Msg(p.Error)
		}
		logger.Info().Int("documents", report.Checked).Int("invalid", len(report.Problems)).Msg("validation done")
		if len(report.Problems) > 0 {
			return 1
		}
	case "stats":
		counts, err := stats(ctx, store)
		if err != nil {
			logger.Error().Err(err).Msg("stats failed")
			return 1
		}
		for _, c := range counts {
			fmt.Fprintf(stdout, "%-16s %d\n", c.Collection, c.Count)
		}
	}
	return 0
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
