package main

import (
	"github.com/spf13/cobra"

	"github.com/kailas-cloud/hoteldex/internal/version"
)

func newRootCmd() *cobra.Command {
	var env string

	root := &cobra.Command{
		Use:   "hoteldex",
		Short: "Hotel and region index synced from provider dumps",
		Long: `hoteldex downloads provider dumps, keeps the hotels and regions of
selected countries in a Redis search index, and answers lookups from that
index with a live provider fallback.

The configuration is read from config/<ENV>.yaml.`,
		Version:      version.String(),
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&env, "env", "", "config environment (default: $ENV or local)")

	root.AddCommand(newServeCmd(&env), newSyncCmd(&env))
	return root
}
