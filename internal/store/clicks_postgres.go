package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/serroba/shortlink/internal/analytics"
)

// ClickStore persists analytics events in PostgreSQL and serves link stats.
type ClickStore struct {
	pool *pgxpool.Pool
}

// NewClickStore creates a new PostgreSQL-backed analytics store.
func NewClickStore(pool *pgxpool.Pool) *ClickStore {
	return &ClickStore{pool: pool}
}

// SaveClick records a click. A redelivered event is ignored.
func (c *ClickStore) SaveClick(ctx context.Context, event *analytics.ClickEvent) error {
	query := `
		INSERT INTO clicks (event_id, code, client_ip, user_agent, referrer, clicked_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT ON CONSTRAINT clicks_event_id_key DO NOTHING
	`

	_, err := c.pool.Exec(ctx, query,
		event.ID,
		event.Code,
		orUnknown(event.ClientIP),
		orUnknown(event.UserAgent),
		event.Referrer,
		event.ClickedAt,
	)

	return err
}

// SaveLinkCreated records a link creation. A redelivered event is ignored.
func (c *ClickStore) SaveLinkCreated(ctx context.Context, event *analytics.LinkCreatedEvent) error {
	query := `
		INSERT INTO link_events (event_id, code, original_url, custom_alias, client_ip, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (event_id) DO NOTHING
	`

	_, err := c.pool.Exec(ctx, query,
		event.ID,
		event.Code,
		event.OriginalURL,
		event.CustomAlias,
		orUnknown(event.ClientIP),
		orUnknown(event.UserAgent),
		event.CreatedAt,
	)

	return err
}

// Stats returns the click total for code and its most recent limit clicks.
// Unknown codes report zero clicks.
func (c *ClickStore) Stats(ctx context.Context, code string, limit int) (*analytics.Stats, error) {
	stats := &analytics.Stats{
		Code:           code,
		RecentActivity: []analytics.Click{},
	}

	err := c.pool.QueryRow(ctx, `SELECT count(*) FROM clicks WHERE code = $1`, code).Scan(&stats.TotalClicks)
	if err != nil {
		return nil, fmt.Errorf("count clicks: %w", err)
	}

	if stats.TotalClicks == 0 || limit <= 0 {
		return stats, nil
	}

	query := `
		SELECT clicked_at, user_agent, referrer
		FROM clicks
		WHERE code = $1
		ORDER BY clicked_at DESC, id DESC
		LIMIT $2
	`

	rows, err := c.pool.Query(ctx, query, code, limit)
	if err != nil {
		return nil, fmt.Errorf("recent clicks: %w", err)
	}

	recent, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (analytics.Click, error) {
		var click analytics.Click

		err := row.Scan(&click.ClickedAt, &click.UserAgent, &click.Referrer)

		return click, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan clicks: %w", err)
	}

	stats.RecentActivity = recent

	return stats, nil
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}

	return s
}

var (
	_ analytics.Store  = (*ClickStore)(nil)
	_ analytics.Reader = (*ClickStore)(nil)
)
