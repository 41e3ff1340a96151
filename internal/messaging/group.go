package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/zap"
)

// Worker is a subscription that runs in the background until shut down.
type Worker interface {
	Topic() string
	Start(ctx context.Context) error
	Shutdown() error
}

// ConsumerGroup runs workers that share one subscriber. Workers stop in the
// reverse order they were started, then the subscriber is closed.
type ConsumerGroup struct {
	subscriber message.Subscriber
	logger     *zap.Logger

	mu      sync.Mutex
	workers []Worker

	stopOnce sync.Once
	stopErr  error
}

func NewConsumerGroup(subscriber message.Subscriber, logger *zap.Logger) *ConsumerGroup {
	return &ConsumerGroup{
		subscriber: subscriber,
		logger:     logger,
	}
}

// Add registers a worker. Workers added after Start are not started.
func (g *ConsumerGroup) Add(worker Worker) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.workers = append(g.workers, worker)
}

func (g *ConsumerGroup) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return len(g.workers)
}

// Topics lists the topics of the registered workers.
func (g *ConsumerGroup) Topics() []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	topics := make([]string, len(g.workers))
	for i, w := range g.workers {
		topics[i] = w.Topic()
	}

	return topics
}

// Start starts every worker. If one fails, those already running are shut
// down again and the returned error carries their shutdown errors too.
func (g *ConsumerGroup) Start(ctx context.Context) error {
	g.mu.Lock()
	workers := append([]Worker(nil), g.workers...)
	g.mu.Unlock()

	for i, w := range workers {
		if err := w.Start(ctx); err != nil {
			return errors.Join(
				fmt.Errorf("start %s consumer: %w", w.Topic(), err),
				stopAll(workers[:i]),
			)
		}
	}

	g.logger.Info("consumer group started", zap.Strings("topics", g.Topics()))

	return nil
}

// Shutdown stops the workers and closes the subscriber. Later calls return
// the result of the first.
func (g *ConsumerGroup) Shutdown() error {
	g.stopOnce.Do(func() {
		g.mu.Lock()
		workers := append([]Worker(nil), g.workers...)
		g.mu.Unlock()

		g.logger.Info("shutting down consumer group", zap.Int("workers", len(workers)))

		errs := []error{stopAll(workers)}
		if err := g.subscriber.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close subscriber: %w", err))
		}

		g.stopErr = errors.Join(errs...)
	})

	return g.stopErr
}

// stopAll shuts workers down last to first.
func stopAll(workers []Worker) error {
	var errs []error

	for i := len(workers) - 1; i >= 0; i-- {
		if err := workers[i].Shutdown(); err != nil {
			errs = append(errs, fmt.Errorf("stop %s consumer: %w", workers[i].Topic(), err))
		}
	}

	return errors.Join(errs...)
}
