package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"WhiskeyIndex/internal/app"
	"WhiskeyIndex/internal/config"
	"WhiskeyIndex/internal/logging"
)

type rootCmd struct {
	*cobra.Command

	configPath  string
	datasetPath string

	cfg    config.Config
	logger *slog.Logger
}

func newRootCmd() *rootCmd {
	root := &rootCmd{}
	root.Command = &cobra.Command{
		Use:           "ttbreconcile",
		Short:         "Assign TTB label approval IDs to the whiskey index",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			root.cfg = config.Load(root.configPath)
			if root.datasetPath != "" {
				root.cfg.Dataset.Path = root.datasetPath
			}
			root.logger = logging.New(root.cfg.Logging.Level)
		},
	}

	root.PersistentFlags().StringVar(&root.configPath, "config", "", "YAML config file (default $WHISKEYINDEX_CONFIG)")
	root.PersistentFlags().StringVar(&root.datasetPath, "dataset", "", "Dataset CSV path (overrides config)")

	root.AddCommand(
		newMatchCmd(root),
		newAuditCmd(root),
		newClearCmd(root),
		newImportCmd(root),
		newSummaryCmd(root),
		newCheckCmd(root),
	)
	return root
}

// open builds the application for one command; callers must Close it.
func (r *rootCmd) open(cmd *cobra.Command, opts app.Options) (*app.Application, error) {
	return app.New(cmd.Context(), r.cfg, r.logger, opts)
}
