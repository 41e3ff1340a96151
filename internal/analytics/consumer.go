package analytics

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/serroba/shortlink/internal/messaging"
	"go.uber.org/zap"
)

// RegisterConsumers adds the click and link-created consumers to group.
// Both write through to store.
func RegisterConsumers(
	group *messaging.ConsumerGroup,
	subscriber message.Subscriber,
	store Store,
	logger *zap.Logger,
) {
	group.Add(messaging.NewConsumer(subscriber, TopicLinkClicked, clickHandler(store, logger), logger))
	group.Add(messaging.NewConsumer(subscriber, TopicLinkCreated, linkCreatedHandler(store, logger), logger))
}

func clickHandler(store Store, logger *zap.Logger) messaging.Handler[ClickEvent] {
	return func(ctx context.Context, event *ClickEvent) error {
		if event.Code == "" {
			return fmt.Errorf("%w: click event %q has no code", messaging.ErrMalformed, event.ID)
		}

		if err := store.SaveClick(ctx, event); err != nil {
			return fmt.Errorf("save click %s: %w", event.ID, err)
		}

		logger.Debug("click recorded",
			zap.String("code", event.Code),
			zap.String("eventId", event.ID),
		)

		return nil
	}
}

func linkCreatedHandler(store Store, logger *zap.Logger) messaging.Handler[LinkCreatedEvent] {
	return func(ctx context.Context, event *LinkCreatedEvent) error {
		if event.Code == "" {
			return fmt.Errorf("%w: link event %q has no code", messaging.ErrMalformed, event.ID)
		}

		if err := store.SaveLinkCreated(ctx, event); err != nil {
			return fmt.Errorf("save link created %s: %w", event.ID, err)
		}

		logger.Debug("link created recorded",
			zap.String("code", event.Code),
			zap.Bool("customAlias", event.CustomAlias),
		)

		return nil
	}
}
