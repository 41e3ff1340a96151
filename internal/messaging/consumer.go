package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/zap"
)

// DefaultHandlerTimeout bounds a single handler call.
const DefaultHandlerTimeout = 10 * time.Second

// ErrMalformed marks events that can never be processed. Such messages are
// acked and dropped instead of being redelivered.
var ErrMalformed = errors.New("malformed event")

// Handler processes a single event. Returning an error wrapping ErrMalformed
// drops the message; any other error requests redelivery.
type Handler[T any] func(ctx context.Context, event *T) error

// ConsumerOption customizes a Consumer.
type ConsumerOption func(*consumerConfig)

type consumerConfig struct {
	handlerTimeout time.Duration
}

// WithHandlerTimeout overrides DefaultHandlerTimeout.
func WithHandlerTimeout(d time.Duration) ConsumerOption {
	return func(c *consumerConfig) {
		if d > 0 {
			c.handlerTimeout = d
		}
	}
}

// Consumer decodes JSON messages from one topic and hands them to a typed handler.
type Consumer[T any] struct {
	subscriber message.Subscriber
	topic      string
	handler    Handler[T]
	timeout    time.Duration
	logger     *zap.Logger

	startOnce sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
}

func NewConsumer[T any](
	subscriber message.Subscriber,
	topic string,
	handler Handler[T],
	logger *zap.Logger,
	opts ...ConsumerOption,
) *Consumer[T] {
	cfg := consumerConfig{handlerTimeout: DefaultHandlerTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Consumer[T]{
		subscriber: subscriber,
		topic:      topic,
		handler:    handler,
		timeout:    cfg.handlerTimeout,
		logger:     logger.With(zap.String("topic", topic)),
		cancel:     func() {},
		done:       make(chan struct{}),
	}
}

func (c *Consumer[T]) Topic() string {
	return c.topic
}

// Start subscribes and processes messages in the background until ctx is
// cancelled or Shutdown is called. Start may only be called once.
func (c *Consumer[T]) Start(ctx context.Context) error {
	err := errors.New("consumer already started")

	c.startOnce.Do(func() {
		ctx, c.cancel = context.WithCancel(ctx)

		var msgs <-chan *message.Message

		msgs, err = c.subscriber.Subscribe(ctx, c.topic)
		if err != nil {
			c.cancel()
			close(c.done)

			err = fmt.Errorf("subscribe to %s: %w", c.topic, err)

			return
		}

		go c.consumeLoop(ctx, msgs)
	})

	return err
}

func (c *Consumer[T]) consumeLoop(ctx context.Context, msgs <-chan *message.Message) {
	defer close(c.done)

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}

			c.handleMessage(ctx, msg)
		}
	}
}

func (c *Consumer[T]) handleMessage(ctx context.Context, msg *message.Message) {
	logger := c.logger.With(zap.String("messageId", msg.UUID))

	err := c.process(ctx, msg)

	switch {
	case err == nil:
		msg.Ack()
		logger.Debug("processed event")
	case errors.Is(err, ErrMalformed):
		msg.Ack()
		logger.Error("dropping event", zap.Error(err))
	default:
		msg.Nack()
		logger.Warn("event failed, requesting redelivery", zap.Error(err))
	}
}

func (c *Consumer[T]) process(ctx context.Context, msg *message.Message) error {
	var event T
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return fmt.Errorf("%w: decode payload: %w", ErrMalformed, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	return c.handler(ctx, &event)
}

// Shutdown stops the consumer and waits for the in-flight message, if any.
// It is a no-op for a consumer that was never started.
func (c *Consumer[T]) Shutdown() error {
	started := true

	c.startOnce.Do(func() {
		started = false
		close(c.done)
	})

	if started {
		c.cancel()
	}

	<-c.done

	return nil
}
