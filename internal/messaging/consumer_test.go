package messaging_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/serroba/shortlink/internal/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type testEvent struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type mockSubscriber struct {
	msgChan      chan *message.Message
	subscribeErr error
	mu           sync.Mutex
	closed       bool
}

func newMockSubscriber() *mockSubscriber {
	return &mockSubscriber{
		msgChan: make(chan *message.Message, 10),
	}
}

func (m *mockSubscriber) Subscribe(_ context.Context, _ string) (<-chan *message.Message, error) {
	if m.subscribeErr != nil {
		return nil, m.subscribeErr
	}

	return m.msgChan, nil
}

func (m *mockSubscriber) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.closed {
		m.closed = true
		close(m.msgChan)
	}

	return nil
}

func noopHandler(context.Context, *testEvent) error { return nil }

type outcome int

const (
	acked outcome = iota + 1
	nacked
)

func waitOutcome(t *testing.T, msg *message.Message) outcome {
	t.Helper()

	select {
	case <-msg.Acked():
		return acked
	case <-msg.Nacked():
		return nacked
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for ack or nack")

		return 0
	}
}

func TestConsumer_Start(t *testing.T) {
	t.Run("starts successfully", func(t *testing.T) {
		consumer := messaging.NewConsumer(newMockSubscriber(), "test.topic", noopHandler, zap.NewNop())

		require.NoError(t, consumer.Start(context.Background()))
		assert.Equal(t, "test.topic", consumer.Topic())

		assert.NoError(t, consumer.Shutdown())
	})

	t.Run("returns error when subscribe fails", func(t *testing.T) {
		sub := &mockSubscriber{subscribeErr: errors.New("subscribe error")}
		consumer := messaging.NewConsumer(sub, "test.topic", noopHandler, zap.NewNop())

		err := consumer.Start(context.Background())

		require.ErrorContains(t, err, "test.topic")
		assert.NoError(t, consumer.Shutdown())
	})

	t.Run("second start fails", func(t *testing.T) {
		consumer := messaging.NewConsumer(newMockSubscriber(), "test.topic", noopHandler, zap.NewNop())

		require.NoError(t, consumer.Start(context.Background()))
		assert.Error(t, consumer.Start(context.Background()))

		assert.NoError(t, consumer.Shutdown())
	})
}

func TestConsumer_HandleMessage(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		err     error
		want    outcome
		called  bool
		logged  string
	}{
		{
			name:    "acks on success",
			payload: `{"id":"123","name":"test"}`,
			want:    acked,
			called:  true,
		},
		{
			name:    "drops undecodable payload",
			payload: "invalid json",
			want:    acked,
			logged:  "dropping event",
		},
		{
			name:    "drops malformed event",
			payload: `{"id":"1"}`,
			err:     fmt.Errorf("%w: missing name", messaging.ErrMalformed),
			want:    acked,
			called:  true,
			logged:  "dropping event",
		},
		{
			name:    "nacks on handler error",
			payload: `{"id":"1"}`,
			err:     errors.New("database down"),
			want:    nacked,
			called:  true,
			logged:  "event failed, requesting redelivery",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := newMockSubscriber()
			core, logs := observer.New(zapcore.WarnLevel)

			var (
				mu       sync.Mutex
				received *testEvent
			)

			consumer := messaging.NewConsumer(sub, "test.topic",
				func(_ context.Context, event *testEvent) error {
					mu.Lock()
					received = event
					mu.Unlock()

					return tt.err
				},
				zap.New(core),
			)
			require.NoError(t, consumer.Start(context.Background()))

			msg := message.NewMessage(uuid.NewString(), []byte(tt.payload))
			sub.msgChan <- msg

			assert.Equal(t, tt.want, waitOutcome(t, msg))
			require.NoError(t, consumer.Shutdown())

			mu.Lock()
			defer mu.Unlock()

			assert.Equal(t, tt.called, received != nil)

			if tt.logged != "" {
				entries := logs.FilterMessage(tt.logged).All()
				require.Len(t, entries, 1)
				assert.Equal(t, "test.topic", entries[0].ContextMap()["topic"])
				assert.Equal(t, msg.UUID, entries[0].ContextMap()["messageId"])
			}
		})
	}
}

func TestConsumer_HandlerTimeout(t *testing.T) {
	sub := newMockSubscriber()

	consumer := messaging.NewConsumer(sub, "test.topic",
		func(ctx context.Context, _ *testEvent) error {
			<-ctx.Done()

			return ctx.Err()
		},
		zap.NewNop(),
		messaging.WithHandlerTimeout(20*time.Millisecond),
	)
	require.NoError(t, consumer.Start(context.Background()))

	payload, err := json.Marshal(testEvent{ID: "slow"})
	require.NoError(t, err)

	msg := message.NewMessage(uuid.NewString(), payload)
	sub.msgChan <- msg

	assert.Equal(t, nacked, waitOutcome(t, msg))
	require.NoError(t, consumer.Shutdown())
}

func TestConsumer_Shutdown(t *testing.T) {
	t.Run("shuts down gracefully", func(t *testing.T) {
		consumer := messaging.NewConsumer(newMockSubscriber(), "test.topic", noopHandler, zap.NewNop())
		require.NoError(t, consumer.Start(context.Background()))

		assert.NoError(t, consumer.Shutdown())
	})

	t.Run("never started", func(t *testing.T) {
		consumer := messaging.NewConsumer(newMockSubscriber(), "test.topic", noopHandler, zap.NewNop())

		assert.NoError(t, consumer.Shutdown())
		assert.Error(t, consumer.Start(context.Background()))
	})

	t.Run("stops when the subscription closes", func(t *testing.T) {
		sub := newMockSubscriber()
		consumer := messaging.NewConsumer(sub, "test.topic", noopHandler, zap.NewNop())
		require.NoError(t, consumer.Start(context.Background()))

		require.NoError(t, sub.Close())
		assert.NoError(t, consumer.Shutdown())
	})
}
