package handlers_test

import (
	"context"
	"sync"

	"github.com/serroba/shortlink/internal/analytics"
	"github.com/serroba/shortlink/internal/shortener"
)

type mockShortener struct {
	code       shortener.Code
	url        string
	shortenErr error
	resolveErr error

	gotURL   string
	gotAlias string
}

func (m *mockShortener) Shorten(_ context.Context, originalURL, customAlias string) (shortener.Code, error) {
	m.gotURL = originalURL
	m.gotAlias = customAlias

	return m.code, m.shortenErr
}

func (m *mockShortener) Resolve(_ context.Context, _ shortener.Code) (string, error) {
	return m.url, m.resolveErr
}

type mockEvents struct {
	mu      sync.Mutex
	clicks  []*analytics.ClickEvent
	created []*analytics.LinkCreatedEvent
	err     error
}

func (m *mockEvents) LinkClicked(_ context.Context, event *analytics.ClickEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.clicks = append(m.clicks, event)

	return m.err
}

func (m *mockEvents) LinkCreated(_ context.Context, event *analytics.LinkCreatedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.created = append(m.created, event)

	return m.err
}

type mockStats struct {
	stats *analytics.Stats
	err   error

	gotLimit int
}

func (m *mockStats) Stats(_ context.Context, _ string, limit int) (*analytics.Stats, error) {
	m.gotLimit = limit

	return m.stats, m.err
}
