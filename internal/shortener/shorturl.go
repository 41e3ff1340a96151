package shortener

import "time"

// Code represents a short URL code.
type Code string

// ShortLink represents a shortened URL entity.
type ShortLink struct {
	ID          uint64
	Code        Code
	OriginalURL string
	CreatedAt   time.Time
}
