package handlers

import "time"

// ShortenRequest is the request body for creating a short URL.
type ShortenRequest struct {
	Body struct {
		URL         string `doc:"The URL to shorten"                          example:"https://example.com/very/long/path" json:"url"`
		CustomAlias string `doc:"Optional code to use instead of a derived one" example:"promo"                             json:"customAlias,omitempty"`
	}
}

// ShortenResponse is the response for a successfully created short URL.
type ShortenResponse struct {
	Location string `doc:"The short URL location" header:"Location"`
	Body     struct {
		Code        string `doc:"The short code"     example:"g9"                                 json:"code"`
		ShortURL    string `doc:"The full short URL" example:"http://localhost:8888/g9"           json:"shortUrl"`
		OriginalURL string `doc:"The original URL"   example:"https://example.com/very/long/path" json:"originalUrl"`
	}
}

// RedirectRequest is the request for redirecting a short URL.
type RedirectRequest struct {
	Code string `doc:"The short code" example:"g9" path:"code"`
}

// RedirectResponse carries the redirect status and target.
type RedirectResponse struct {
	Status       int
	Location     string `header:"Location"`
	CacheControl string `header:"Cache-Control"`
}

// StatsRequest is the request for click statistics of a code.
type StatsRequest struct {
	Code string `doc:"The short code" example:"g9" path:"code"`
}

// ClickView is a single click as exposed by the API. Client IPs are omitted.
type ClickView struct {
	ClickedAt time.Time `doc:"When the redirect happened" json:"clickedAt"`
	UserAgent string    `doc:"Visitor user agent"         json:"userAgent"`
	Referrer  string    `doc:"Referring page, if sent"    json:"referrer,omitempty"`
}

// StatsResponse is the response for click statistics.
type StatsResponse struct {
	Body struct {
		Code           string      `doc:"The short code"                  json:"code"`
		TotalClicks    int64       `doc:"Number of recorded redirects"    json:"totalClicks"`
		RecentActivity []ClickView `doc:"Most recent clicks, newest first" json:"recentActivity"`
	}
}
