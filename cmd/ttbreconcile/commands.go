package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"WhiskeyIndex/internal/app"
	"WhiskeyIndex/internal/usecase"
)

type matchOptions struct {
	products []string
	exclude  []string
	source   string
	results  string
	dryRun   bool
	refresh  bool
	notify   bool
}

func newMatchCmd(root *rootCmd) *cobra.Command {
	var opts matchOptions

	cmd := &cobra.Command{
		Use:   "match",
		Short: "Search the COLA registry and fill missing TTB IDs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := root.open(cmd, app.Options{Source: opts.source, ResultsFile: opts.results})
			if err != nil {
				return err
			}
			defer application.Close()

			rep, err := application.Pipeline().Match(cmd.Context(), usecase.MatchOptions{
				Products: opts.products,
				Exclude:  opts.exclude,
				DryRun:   opts.dryRun,
				Refresh:  opts.refresh,
				Notify:   opts.notify,
			})
			if werr := usecase.WriteMatchReport(cmd.OutOrStdout(), rep); werr != nil && err == nil {
				err = werr
			}
			return err
		},
	}

	cmd.Flags().StringArrayVar(&opts.products, "product", nil, "Only match this dataset product (repeatable)")
	cmd.Flags().StringArrayVar(&opts.exclude, "exclude", nil, "Skip this dataset product (repeatable)")
	cmd.Flags().StringVar(&opts.source, "source", "colas", "Candidate source: colas or file")
	cmd.Flags().StringVar(&opts.results, "results", "", "Saved results JSON for --source file")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Report assignments without writing the dataset")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "Ignore cached registry searches")
	cmd.Flags().BoolVar(&opts.notify, "notify", false, "Send the review digest to Telegram")
	return cmd
}

func newAuditCmd(root *rootCmd) *cobra.Command {
	var notify bool

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Flag TTB IDs whose rows spread too far in proof",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := root.openOffline(cmd)
			if err != nil {
				return err
			}
			defer application.Close()

			groups, err := application.Pipeline().Audit(cmd.Context(), notify)
			if werr := usecase.WriteAuditReport(cmd.OutOrStdout(), groups); werr != nil && err == nil {
				err = werr
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&notify, "notify", false, "Send suspect identifiers to Telegram")
	return cmd
}

func newClearCmd(root *rootCmd) *cobra.Command {
	var opts usecase.ClearOptions

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove TTB IDs from every row holding them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := root.open(cmd, app.Options{})
			if err != nil {
				return err
			}
			defer application.Close()

			rep, err := application.Pipeline().Clear(cmd.Context(), opts)
			if err != nil && len(rep.Identifiers) == 0 {
				return err
			}
			if werr := usecase.WriteClearReport(cmd.OutOrStdout(), rep, opts.DryRun); werr != nil && err == nil {
				err = werr
			}
			return err
		},
	}

	cmd.Flags().StringArrayVar(&opts.Identifiers, "id", nil, "TTB ID to clear (repeatable)")
	cmd.Flags().BoolVar(&opts.Suspect, "suspect", false, "Clear every identifier flagged by audit")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Report rows without writing the dataset")
	return cmd
}

func newImportCmd(root *rootCmd) *cobra.Command {
	var (
		file   string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Apply manually researched TTB IDs",
		Long: "Reads lines of 'Product | Batch | Year | TTB_ID' or 'Product, Batch, Year: TTB_ID'\n" +
			"from --file or stdin. Rows that already hold an identifier are never overwritten.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = cmd.InOrStdin()
			if file != "" && file != "-" {
				f, err := os.Open(file)
				if err != nil {
					return fmt.Errorf("open %s: %w", file, err)
				}
				defer f.Close()
				in = f
			}

			application, err := root.open(cmd, app.Options{})
			if err != nil {
				return err
			}
			defer application.Close()

			rep, err := application.Pipeline().Import(cmd.Context(), in, dryRun)
			if err != nil && rep.Decisions == nil {
				return err
			}
			if werr := usecase.WriteImportReport(cmd.OutOrStdout(), rep); werr != nil && err == nil {
				err = werr
			}
			return err
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Input file (default stdin)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report without writing the dataset")
	return cmd
}

func newSummaryCmd(root *rootCmd) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Print TTB ID coverage of the dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := root.openOffline(cmd)
			if err != nil {
				return err
			}
			defer application.Close()

			cov, err := application.Pipeline().Summary()
			if err != nil {
				return err
			}
			return usecase.WriteCoverage(cmd.OutOrStdout(), cov)
		},
	}
}

func newCheckCmd(root *rootCmd) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate dataset sort order and row uniqueness",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := root.openOffline(cmd)
			if err != nil {
				return err
			}
			defer application.Close()

			violations, err := application.Pipeline().Check()
			if err != nil {
				return err
			}
			if err := usecase.WriteViolations(cmd.OutOrStdout(), violations); err != nil {
				return err
			}
			if len(violations) > 0 {
				return fmt.Errorf("dataset has %d violations", len(violations))
			}
			return nil
		},
	}
}

// openOffline builds the application without the ledger for read-only commands.
func (r *rootCmd) openOffline(cmd *cobra.Command) (*app.Application, error) {
	cfg := r.cfg
	cfg.Database.Driver = app.DriverNone
	return app.New(cmd.Context(), cfg, r.logger, app.Options{})
}
