package main

import (
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	syncuc "github.com/kailas-cloud/hoteldex/internal/usecase/sync"
)

func newSyncCmd(env *string) *cobra.Command {
	var req syncuc.Request

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one dump sync in the foreground",
		Long: `Run one dump sync to completion and print the final job as JSON.

Examples:
  hoteldex sync --kind hotel --country IT --index hotels_it
  hoteldex sync --kind region --country IT --index regions_it --language it
  hoteldex sync --kind hotel --country IT --index hotels_it --url https://example.com/dump.jsonl.zst`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, *env)
			if err != nil {
				return err
			}
			defer a.close()

			j, runErr := a.registry.Run(a.withLogger(ctx), req)
			if j == nil {
				return runErr
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(j.Snapshot()); err != nil {
				return fmt.Errorf("write job: %w", err)
			}
			if runErr != nil {
				a.logger.Error("Sync failed", zap.String("job_id", j.ID()), zap.Error(runErr))
				return fmt.Errorf("sync job %s failed: %w", j.ID(), runErr)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&req.Kind, "kind", "hotel", "dump kind: hotel or region")
	f.StringVar(&req.Country, "country", "", "ISO 3166-1 alpha-2 country to keep")
	f.StringVar(&req.Index, "index", "", "target index name")
	f.StringVar(&req.Language, "language", "", "dump language (default: provider language)")
	f.StringVar(&req.URL, "url", "", "dump URL; skips provider resolution")
	f.StringVar(&req.Source, "source", "", "provider name (default: configured provider)")
	_ = cmd.MarkFlagRequired("country")
	_ = cmd.MarkFlagRequired("index")
	return cmd
}
