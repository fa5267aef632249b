// Command manualfetch runs the fetch-matches pipeline once from the command line.
// It writes the same predictions and automation log entry as a scheduled run.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"matchpredict/ingestion/internal/client"
	"matchpredict/ingestion/internal/config"
	"matchpredict/ingestion/internal/ingestion"
	"matchpredict/ingestion/internal/llm"
	"matchpredict/ingestion/internal/models"
	"matchpredict/ingestion/internal/repository"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func main() {
	var (
		date    string
		migrate bool
		asJSON  bool
	)

	root := &cobra.Command{
		Use:          "manualfetch",
		Short:        "Fetch scheduled matches and store new predictions",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var day time.Time
			if date != "" {
				d, err := time.ParseInLocation(models.DateLayout, date, time.UTC)
				if err != nil {
					return fmt.Errorf("--date must be YYYY-MM-DD: %w", err)
				}
				day = d
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			summary, err := run(ctx, config.MustLoad(), day, migrate)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(summary)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Processed %d matches for %s (%d analyses, %d purged, %d skipped)\n",
				summary.MatchesProcessed, summary.Date, summary.AnalysesGenerated, summary.Purged, summary.Skipped)
			for _, m := range summary.Matches {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", m)
			}
			return nil
		},
	}

	root.Flags().StringVar(&date, "date", "", "match day as YYYY-MM-DD (default: today)")
	root.Flags().BoolVar(&migrate, "migrate", false, "apply database migrations before running")
	root.Flags().BoolVar(&asJSON, "json", false, "print the run summary as JSON")

	if err := root.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, day time.Time, migrate bool) (*ingestion.Summary, error) {
	dbConfig := repository.Config{
		Host:     cfg.DatabaseHost,
		Port:     cfg.DatabasePort,
		User:     cfg.DatabaseUser,
		Password: cfg.DatabasePassword,
		Database: cfg.DatabaseName,
		SSLMode:  cfg.DatabaseSSLMode,
	}

	if migrate {
		if err := repository.Migrate(dbConfig); err != nil {
			return nil, err
		}
	}

	db, err := repository.NewDatabase(ctx, dbConfig)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	log.Info().Msg("Validating service health...")
	if err := db.Health(ctx); err != nil {
		return nil, err
	}

	source := client.NewClient(client.Config{
		BaseURL:     cfg.SportAPIBaseURL,
		APIKey:      cfg.SportAPIKey,
		Host:        cfg.SportAPIHost,
		Sport:       cfg.SportAPISport,
		Timeout:     cfg.SportAPITimeout,
		MinInterval: cfg.SportAPIMinInterval,
		MaxRetries:  cfg.SportAPIMaxRetries,
	})

	model, err := llm.NewGateway(llm.GatewayConfig{
		BaseURL: cfg.LLMBaseURL,
		APIKey:  cfg.LLMAPIKey,
		Model:   cfg.LLMModel,
		Timeout: cfg.LLMTimeout,
	})
	if err != nil {
		return nil, err
	}

	pipeline := ingestion.NewPipeline(source, db.Predictions, db.AutomationLogs, model, ingestion.Options{
		Leagues:        cfg.TrackedLeagues,
		MaxEvents:      cfg.MaxEventsPerRun,
		Retention:      cfg.Retention,
		RateLimitPause: cfg.RateLimitPause,
		CallPause:      cfg.CallPause,
		ModelLabel:     cfg.LLMModelLabel,
		Location:       cfg.RunLocation(),
	})

	return pipeline.Run(ctx, day)
}
