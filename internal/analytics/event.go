package analytics

import "time"

const (
	TopicLinkClicked = "link.clicked"
	TopicLinkCreated = "link.created"
)

// ClickEvent is emitted after a code has been resolved for a redirect.
type ClickEvent struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	ClientIP  string    `json:"clientIp"`
	UserAgent string    `json:"userAgent"`
	Referrer  string    `json:"referrer,omitempty"`
	ClickedAt time.Time `json:"clickedAt"`
}

// EventID implements messaging.Identified.
func (e *ClickEvent) EventID() string {
	return e.ID
}

// LinkCreatedEvent is emitted when a URL is shortened.
type LinkCreatedEvent struct {
	ID          string    `json:"id"`
	Code        string    `json:"code"`
	OriginalURL string    `json:"originalUrl"`
	CustomAlias bool      `json:"customAlias"`
	ClientIP    string    `json:"clientIp"`
	UserAgent   string    `json:"userAgent"`
	CreatedAt   time.Time `json:"createdAt"`
}

// EventID implements messaging.Identified.
func (e *LinkCreatedEvent) EventID() string {
	return e.ID
}
