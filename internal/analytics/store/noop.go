package store

import (
	"context"

	"github.com/serroba/shortlink/internal/analytics"
	"go.uber.org/zap"
)

// Noop logs analytics events instead of persisting them. It is used when no
// database is configured.
type Noop struct {
	logger *zap.Logger
}

// NewNoop creates a new logging analytics store.
func NewNoop(logger *zap.Logger) *Noop {
	return &Noop{logger: logger}
}

func (n *Noop) SaveClick(_ context.Context, event *analytics.ClickEvent) error {
	n.logger.Info("link clicked",
		zap.String("eventId", event.ID),
		zap.String("code", event.Code),
		zap.String("referrer", event.Referrer),
		zap.Time("clickedAt", event.ClickedAt),
	)

	return nil
}

func (n *Noop) SaveLinkCreated(_ context.Context, event *analytics.LinkCreatedEvent) error {
	n.logger.Info("link created",
		zap.String("eventId", event.ID),
		zap.String("code", event.Code),
		zap.String("originalUrl", event.OriginalURL),
		zap.Bool("customAlias", event.CustomAlias),
		zap.Time("createdAt", event.CreatedAt),
	)

	return nil
}

// Stats always fails; nothing is kept to report on.
func (n *Noop) Stats(context.Context, string, int) (*analytics.Stats, error) {
	return nil, analytics.ErrStatsUnavailable
}

var (
	_ analytics.Store  = (*Noop)(nil)
	_ analytics.Reader = (*Noop)(nil)
)
