package app

import (
	"context"
	"errors"
	"log/slog"

	"github.com/felixgeelhaar/rehearse/internal/interview"
)

// fanout delivers each event to every sink. A failing sink does not stop
// the others; their errors are joined.
type fanout []interview.EventPublisher

func (f fanout) Publish(ctx context.Context, e interview.Event) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// publisher returns nil when there are no sinks so the controller keeps
// its no-op default
func (f fanout) publisher(logger *slog.Logger) interview.EventPublisher {
	switch len(f) {
	case 0:
		logger.Debug("no event sinks configured")
		return nil
	case 1:
		return f[0]
	default:
		return f
	}
}
