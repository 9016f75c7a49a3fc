package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"WhiskeyIndex/internal/config"
	"WhiskeyIndex/internal/dataset"
	"WhiskeyIndex/internal/infrastructure/pacer"
	"WhiskeyIndex/internal/infrastructure/parser"
	"WhiskeyIndex/internal/infrastructure/storage"
	"WhiskeyIndex/internal/infrastructure/telegram"
	"WhiskeyIndex/internal/logging"
	"WhiskeyIndex/internal/ports"
	"WhiskeyIndex/internal/scanner"
	"WhiskeyIndex/internal/usecase"
)

// DriverNone disables the candidate cache and decision ledger.
const DriverNone = "none"

// Options selects the candidate source for one invocation.
type Options struct {
	// Source is a registered scanner name: "colas" (default) or "file".
	Source string
	// ResultsFile feeds the "file" scanner with saved search results.
	ResultsFile string
}

// Application wires configs to use cases and owns the adapters' lifecycle.
type Application struct {
	cfg      config.Config
	pipeline *usecase.Pipeline
	ledger   *storage.Ledger
}

// New builds the adapters described by cfg and the pipeline on top of them.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger, opts Options) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	registry := scanner.NewRegistry()
	registry.Register(parser.NewColaScanner(
		&http.Client{Timeout: cfg.Registry.Timeout},
		parser.ColaOptions{
			SearchURL:    cfg.Registry.SearchURL,
			DetailsURL:   cfg.Registry.DetailsURL,
			UserAgent:    cfg.Registry.UserAgent,
			MaxPages:     cfg.Registry.MaxPages,
			FetchDetails: cfg.Registry.DetailsEnabled(),
		},
		pacer.New(cfg.Registry.Delay),
		baseLogger.With("component", "scanner.colas"),
	))
	registry.Register(parser.NewFileScanner(opts.ResultsFile, baseLogger.With("component", "scanner.file")))

	strategy := strings.TrimSpace(opts.Source)
	if strategy == "" {
		strategy = "colas"
	}
	if _, err := registry.Resolve(strategy); err != nil {
		return nil, err
	}
	sourceOptions := map[string]string{}
	if opts.ResultsFile != "" {
		sourceOptions[parser.ResultsOption] = opts.ResultsFile
	}
	source := parser.NewStrategySource(registry, []string{strategy}, sourceOptions, baseLogger.With("component", "source"))

	application := &Application{cfg: cfg}

	var (
		cache     ports.CandidateCache
		decisions ports.DecisionLog
	)
	if driver := strings.ToLower(strings.TrimSpace(cfg.Database.Driver)); driver != "" && driver != DriverNone {
		ledger, err := storage.Open(ctx, driver, cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("open ledger: %w", err)
		}
		application.ledger = ledger
		cache, decisions = ledger, ledger
	}

	var notifier ports.Notifier
	if cfg.Notifications.Telegram.Enabled() {
		tg := cfg.Notifications.Telegram
		notifier = telegram.NewNotifier(tg.APIURL, tg.BotToken, tg.ChatID)
	}

	columns := dataset.DefaultColumns()
	if cfg.Dataset.IdentifierColumn != "" {
		columns.Identifier = cfg.Dataset.IdentifierColumn
	}

	application.pipeline = usecase.NewPipeline(usecase.PipelineDeps{
		DatasetPath: cfg.Dataset.Path,
		Columns:     columns,
		Policy:      cfg.Matching.Policy(),
		Products:    usecase.Products{Aliases: cfg.Products.Aliases, Exclude: cfg.Products.Exclude},
		Source:      source,
		Cache:       cache,
		Decisions:   decisions,
		Notifier:    notifier,
		Logger:      baseLogger.With("component", "pipeline"),
	})
	return application, nil
}

// Pipeline exposes the reconciliation use cases.
func (a *Application) Pipeline() *usecase.Pipeline {
	return a.pipeline
}

// Close releases the ledger connection, if any.
func (a *Application) Close() error {
	if a.ledger == nil {
		return nil
	}
	return a.ledger.Close()
}
