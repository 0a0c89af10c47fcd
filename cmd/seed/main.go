// Command seed loads the journal and plan catalogs from NDJSON files.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/journal-submission-api/internal/config"
	"github.com/journal-submission-api/internal/database"
	"github.com/journal-submission-api/internal/models"
	"github.com/journal-submission-api/internal/repository"
	"github.com/journal-submission-api/internal/service"
	"github.com/journal-submission-api/pkg/logger"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newSeedCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newSeedCommand() *cobra.Command {
	var (
		journalsPath string
		plansPath    string
		migrate      bool
	)

	cmd := &cobra.Command{
		Use:           "seed",
		Short:         "Load journals and subscription plans into the database",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if journalsPath == "" && plansPath == "" {
				return fmt.Errorf("nothing to do: pass --journals and/or --plans")
			}

			cfg := config.FromEnv()
			if err := cfg.ValidateDatabase(); err != nil {
				return err
			}
			log := logger.NewWithOptions(logger.Options{
				Level:   cfg.Log.Level,
				Pretty:  cfg.Log.Format == "pretty",
				Service: "journal-seed",
			})

			db, err := database.New(&cfg.Database, log)
			if err != nil {
				return err
			}
			defer db.Close()

			if migrate {
				if err := db.RunMigrations(cfg.Database.MigrationsPath); err != nil {
					return err
				}
			}

			catalog := service.NewServices(repository.New(db), cfg, log, service.Deps{}).Catalog

			// Plans first so a failed journal file still leaves usable plans.
			steps := []struct{ resource, path string }{
				{models.CatalogPlans, plansPath},
				{models.CatalogJournals, journalsPath},
			}
			failed := 0
			for _, step := range steps {
				if step.path == "" {
					continue
				}
				result, err := importFile(cmd.Context(), catalog, step.resource, step.path)
				if err != nil {
					return err
				}
				report(log, result)
				failed += result.Failed
			}
			if failed > 0 {
				return fmt.Errorf("%d records were rejected", failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&journalsPath, "journals", "", "Journals NDJSON file")
	cmd.Flags().StringVar(&plansPath, "plans", "", "Plans NDJSON file")
	cmd.Flags().BoolVar(&migrate, "migrate", true, "Run database migrations first")
	return cmd
}

func importFile(ctx context.Context, catalog service.CatalogService, resource, path string) (*models.CatalogImportResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	result, err := catalog.Import(ctx, resource, f)
	if err != nil {
		return nil, fmt.Errorf("import %s from %s: %w", resource, path, err)
	}
	return result, nil
}

func report(log zerolog.Logger, result *models.CatalogImportResult) {
	for _, e := range result.Errors {
		log.Warn().
			Str("resource", result.Resource).
			Int("line", e.Line).
			Str("field", e.Field).
			Interface("value", e.Value).
			Msg(e.Message)
	}
	log.Info().
		Str("resource", result.Resource).
		Int("total", result.Total).
		Int("inserted", result.Inserted).
		Int("failed", result.Failed).
		Msg("Seed finished")
}
