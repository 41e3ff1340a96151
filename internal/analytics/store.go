package analytics

import (
	"context"
	"errors"
	"time"
)

// RecentClicksLimit is the number of clicks returned in Stats.RecentActivity.
const RecentClicksLimit = 10

// ErrStatsUnavailable is returned by readers that cannot serve stats.
var ErrStatsUnavailable = errors.New("stats unavailable")

// Store persists analytics events. Saving an event twice is a no-op.
type Store interface {
	SaveClick(ctx context.Context, event *ClickEvent) error
	SaveLinkCreated(ctx context.Context, event *LinkCreatedEvent) error
}

// Reader serves per-code click statistics.
type Reader interface {
	Stats(ctx context.Context, code string, limit int) (*Stats, error)
}

// Stats summarises the clicks recorded for a code.
type Stats struct {
	Code           string
	TotalClicks    int64
	RecentActivity []Click
}

// Click is a single recorded visit. Client IPs are never exposed.
type Click struct {
	ClickedAt time.Time
	UserAgent string
	Referrer  string
}
