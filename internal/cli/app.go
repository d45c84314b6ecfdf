package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tracker/internal/amqp"
	"tracker/internal/backend"
	"tracker/internal/config"
	"tracker/internal/export"
	"tracker/internal/log"
	"tracker/internal/services"
	sheets "tracker/internal/sheets/google"
	"tracker/internal/storage"
)

// App bundles everything a command needs for one session.
type App struct {
	Config   *config.Config
	Logger   *log.Logger
	Tracker  *services.Tracker
	Exporter *export.Exporter

	backend   *backend.BackendResult
	publisher *amqp.Client
}

// NewApp opens the configured backend and builds the tracker on top of it.
// With ephemeralSession the session marker lives only as long as the process.
func NewApp(ctx context.Context, cfg *config.Config, logger *log.Logger, ephemeralSession bool) (*App, error) {
	if logger == nil {
		logger = log.Discard()
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	backendCfg.EphemeralSession = ephemeralSession

	result, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to create backend",
			log.FieldBackend, cfg.DataBackend,
			log.FieldErrorType, log.ErrorTypeDatabase,
			log.FieldError, err)
		return nil, err
	}

	app := &App{
		Config:   cfg,
		Logger:   logger,
		Exporter: export.NewExporter(logger),
		backend:  result,
	}

	opts := []services.Option{services.WithLogger(logger)}
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.WarnContext(ctx, "AMQP unavailable, transaction events disabled",
				log.FieldErrorType, log.ErrorTypeNetwork,
				log.FieldError, err)
		} else {
			app.publisher = client
			opts = append(opts, services.WithPublisher(client))
		}
	}

	app.Tracker = services.NewTracker(
		storage.NewTransactionRepository(result.Durable),
		storage.NewSessionStore(result.Session),
		opts...)
	return app, nil
}

// Sinks resolves export format names (csv, xlsx, sheets) to sinks writing
// into dir.
func (a *App) Sinks(ctx context.Context, formats []string, dir string) ([]export.Sink, error) {
	if dir == "" {
		dir = a.Config.ExportDir
	}

	var sinks []export.Sink
	seen := map[string]bool{}
	for _, f := range formats {
		format := strings.ToLower(strings.TrimSpace(f))
		if format == "" || seen[format] {
			continue
		}
		seen[format] = true

		switch format {
		case "csv":
			sinks = append(sinks, export.FileSink{Dir: dir})
		case "xlsx":
			sinks = append(sinks, export.XLSXSink{Dir: dir})
		case "sheets":
			if !a.Config.SheetsEnabled() {
				return nil, errors.New("sheets export requires GOOGLE_SPREADSHEET_ID")
			}
			client, err := sheets.New(ctx, sheets.Config{
				SpreadsheetID:   a.Config.GoogleSpreadsheetID,
				SheetName:       a.Config.GoogleSheetName,
				CredentialsJSON: a.Config.GoogleServiceAccountJSON,
				CredentialsFile: a.Config.GoogleServiceAccountFile,
			}, a.Logger)
			if err != nil {
				return nil, fmt.Errorf("sheets client: %w", err)
			}
			sinks = append(sinks, export.SheetsSink{Writer: client})
		default:
			return nil, fmt.Errorf("unknown export format %q (want csv, xlsx or sheets)", f)
		}
	}
	if len(sinks) == 0 {
		return nil, errors.New("no export format selected")
	}
	return sinks, nil
}

// Close releases the publisher and the backend.
func (a *App) Close() error {
	var errs []error
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	if err := a.backend.Close(); err != nil {
		errs = append(errs, fmt.Errorf("backend: %w", err))
	}
	return errors.Join(errs...)
}
