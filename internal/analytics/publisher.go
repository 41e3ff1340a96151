package analytics

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/serroba/shortlink/internal/messaging"
)

// Publisher publishes analytics events.
type Publisher struct {
	clicked messaging.Publish[ClickEvent]
	created messaging.Publish[LinkCreatedEvent]
}

// NewPublisher creates a new analytics publisher on top of a watermill publisher.
func NewPublisher(publisher message.Publisher) *Publisher {
	return &Publisher{
		clicked: messaging.NewPublishFunc[ClickEvent](publisher, TopicLinkClicked),
		created: messaging.NewPublishFunc[LinkCreatedEvent](publisher, TopicLinkCreated),
	}
}

// LinkClicked publishes a click event.
func (p *Publisher) LinkClicked(ctx context.Context, event *ClickEvent) error {
	return p.clicked(ctx, event)
}

// LinkCreated publishes a link created event.
func (p *Publisher) LinkCreated(ctx context.Context, event *LinkCreatedEvent) error {
	return p.created(ctx, event)
}
