package export

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"tracker/internal/log"
)

// Result records where one sink put the document.
type Result struct {
	Sink     string
	Location string
}

type Exporter struct {
	logger *log.Logger
}

func NewExporter(logger *log.Logger) *Exporter {
	if logger == nil {
		logger = log.Discard()
	}
	return &Exporter{logger: logger.WithComponent(log.ComponentExport)}
}

// Export writes doc to every sink concurrently. Results are returned in sink
// order; the first failure cancels the remaining writes.
func (e *Exporter) Export(ctx context.Context, doc Document, sinks ...Sink) ([]Result, error) {
	if len(doc.Transactions) == 0 {
		return nil, ErrNothingToExport
	}

	results := make([]Result, len(sinks))
	g, ctx := errgroup.WithContext(ctx)
	for i, sink := range sinks {
		i, sink := i, sink
		g.Go(func() error {
			location, err := sink.Write(ctx, doc)
			if err != nil {
				e.logger.ErrorContext(ctx, "Export sink failed",
					log.FieldOperation, log.OpExport,
					log.FieldSink, sink.Name(),
					log.FieldUser, doc.User,
					log.FieldError, err)
				return fmt.Errorf("%s export: %w", sink.Name(), err)
			}
			e.logger.InfoContext(ctx, "Exported transactions",
				log.FieldOperation, log.OpExport,
				log.FieldSink, sink.Name(),
				log.FieldUser, doc.User,
				log.FieldCount, len(doc.Transactions),
				log.FieldPath, location)
			results[i] = Result{Sink: sink.Name(), Location: location}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
