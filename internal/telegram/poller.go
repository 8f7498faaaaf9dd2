package telegram

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// UpdateHandler consumes one update. Implementations handle updates one at
// a time.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, update Update)
}

type updateSource interface {
	GetUpdates(ctx context.Context, offset int64, timeout int) ([]Update, error)
}

// Poller feeds getUpdates results to a handler until its context ends.
type Poller struct {
	source  updateSource
	handler UpdateHandler
	logger  *zap.Logger
	timeout int
	backoff time.Duration
}

func NewPoller(source updateSource, handler UpdateHandler, timeout int, logger *zap.Logger) *Poller {
	return &Poller{
		source:  source,
		handler: handler,
		logger:  logger,
		timeout: timeout,
		backoff: 3 * time.Second,
	}
}

// Run blocks until ctx is cancelled. Failed polls are logged and retried
// after a pause; the offset only advances past updates that were handled.
func (p *Poller) Run(ctx context.Context) error {
	var offset int64
	p.logger.Info("Polling for updates", zap.Int("timeout_seconds", p.timeout))

	for {
		if ctx.Err() != nil {
			return nil
		}

		updates, err := p.source.GetUpdates(ctx, offset, p.timeout)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			p.logger.Warn("getUpdates failed, backing off", zap.Error(err), zap.Duration("backoff", p.backoff))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(p.backoff):
			}
			continue
		}

		for _, u := range updates {
			p.handler.HandleUpdate(ctx, u)
			offset = u.UpdateID + 1
		}
	}
}
