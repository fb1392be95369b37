package hendelse

import (
	"context"
	"log/slog"
)

// Worker consumes hendelser from a channel and publishes them. Emission is
// decoupled from the request path so a slow broker never blocks a change,
// and a failed publish is logged rather than failing the sweep that caused
// it.
type Worker struct {
	publisher Publisher
	inbox     <-chan Hendelse
	logger    *slog.Logger
}

func NewWorker(publisher Publisher, inbox <-chan Hendelse, logger *slog.Logger) *Worker {
	return &Worker{publisher: publisher, inbox: inbox, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case h := <-w.inbox:
			if err := w.publisher.Publiser(ctx, h); err != nil {
				w.logger.ErrorContext(ctx, "kunne ikke publisere hendelse",
					"hendelse_id", h.ID,
					"deltaker_id", h.DeltakerID,
					"type", h.Type,
					"error", err,
				)
			}
		}
	}
}
