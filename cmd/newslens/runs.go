package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/quillon/newslens/internal/config"
	"github.com/quillon/newslens/internal/pipeline"
	"github.com/quillon/newslens/internal/report"
	"github.com/quillon/newslens/internal/storage"
	"github.com/quillon/newslens/internal/storage/csvbackend"
	"github.com/quillon/newslens/internal/storage/jsonbackend"
	"github.com/quillon/newslens/internal/storage/postgres"
	"github.com/quillon/newslens/internal/storage/sqlite"
)

func runsCmd() *cobra.Command {
	var (
		configPath string
		topic      string
		limit      int
		show       string
	)

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List archived runs, or replay one with --show",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			backend, err := openBackend(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			if backend == nil {
				return fmt.Errorf("archiving is disabled (archive_backend: none)")
			}
			defer backend.Close()

			if show != "" {
				return showRun(cmd.Context(), backend, show)
			}
			return listRuns(cmd.Context(), backend, topic, limit)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "config file (default: newslens.yaml)")
	cmd.Flags().StringVarP(&topic, "topic", "t", "", "only runs for this topic")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum runs to list")
	cmd.Flags().StringVar(&show, "show", "", "print the archived digest for this run id")
	return cmd
}

func listRuns(ctx context.Context, backend storage.Backend, topic string, limit int) error {
	records, err := backend.Query(ctx, storage.Filter{Topic: topic, Limit: limit})
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("no archived runs")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tTOPIC\tSTARTED\tARTICLES\tFAILED\tPARTIAL")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%t\n",
			r.RunID, r.Topic, r.StartedAt.Format(time.RFC3339),
			r.ArticleCount, r.FailedCount, r.Partial,
		)
	}
	return w.Flush()
}

func showRun(ctx context.Context, backend storage.Backend, runID string) error {
	// Backends filter on summary columns only, so match the id here.
	records, err := backend.Query(ctx, storage.Filter{})
	if err != nil {
		return err
	}
	for _, r := range records {
		if r.RunID != runID {
			continue
		}
		res, err := pipeline.Decode(r.Result)
		if err != nil {
			return fmt.Errorf("decode archived run: %w", err)
		}
		return report.WriteText(os.Stdout, res)
	}
	return fmt.Errorf("run %s not found in archive", runID)
}

// openBackend returns nil when archiving is disabled.
func openBackend(ctx context.Context, cfg config.Config) (storage.Backend, error) {
	switch cfg.ArchiveBackend {
	case "", "none":
		return nil, nil
	case "sqlite":
		return sqlite.New(cfg.ArchiveDSN)
	case "postgres":
		return postgres.New(ctx, cfg.ArchiveDSN)
	case "json":
		return jsonbackend.New(cfg.ArchiveDSN)
	case "csv":
		return csvbackend.New(cfg.ArchiveDSN)
	default:
		return nil, fmt.Errorf("unknown archive backend %q", cfg.ArchiveBackend)
	}
}
