package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/shortlink/internal/analytics"
	"github.com/serroba/shortlink/internal/shortener"
	"go.uber.org/zap"
)

// Shortener assigns and resolves short codes.
type Shortener interface {
	Shorten(ctx context.Context, originalURL, customAlias string) (shortener.Code, error)
	Resolve(ctx context.Context, code shortener.Code) (string, error)
}

// EventPublisher publishes analytics events. Failures are logged only.
type EventPublisher interface {
	LinkClicked(ctx context.Context, event *analytics.ClickEvent) error
	LinkCreated(ctx context.Context, event *analytics.LinkCreatedEvent) error
}

// URLHandler handles URL shortening operations.
type URLHandler struct {
	shortener Shortener
	stats     analytics.Reader
	events    EventPublisher
	newID     func() string
	baseURL   string
	logger    *zap.Logger
}

// NewURLHandler creates a new URL handler. newID generates analytics event ids.
func NewURLHandler(
	svc Shortener,
	stats analytics.Reader,
	events EventPublisher,
	newID func() string,
	baseURL string,
	logger *zap.Logger,
) *URLHandler {
	return &URLHandler{
		shortener: svc,
		stats:     stats,
		events:    events,
		newID:     newID,
		baseURL:   baseURL,
		logger:    logger,
	}
}

func (h *URLHandler) ShortenURL(ctx context.Context, req *ShortenRequest) (*ShortenResponse, error) {
	originalURL, err := ValidateURL(req.Body.URL)
	if err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}

	alias := req.Body.CustomAlias
	if alias != "" {
		if err = ValidateAlias(alias); err != nil {
			return nil, huma.Error400BadRequest(err.Error())
		}
	}

	code, err := h.shortener.Shorten(ctx, originalURL, alias)
	if err != nil {
		return nil, h.shortenError(err, alias)
	}

	meta, _ := RequestMetaFromContext(ctx)
	event := &analytics.LinkCreatedEvent{
		ID:          h.newID(),
		Code:        string(code),
		OriginalURL: originalURL,
		CustomAlias: alias != "",
		ClientIP:    meta.ClientIP,
		UserAgent:   meta.UserAgent,
		CreatedAt:   time.Now().UTC(),
	}

	if err = h.events.LinkCreated(ctx, event); err != nil {
		h.logger.Error("failed to publish link created event",
			zap.String("code", event.Code),
			zap.String("requestId", meta.RequestID),
			zap.Error(err),
		)
	}

	shortURL := h.baseURL + "/" + string(code)

	resp := &ShortenResponse{Location: shortURL}
	resp.Body.Code = string(code)
	resp.Body.ShortURL = shortURL
	resp.Body.OriginalURL = originalURL

	return resp, nil
}

func (h *URLHandler) shortenError(err error, alias string) error {
	switch {
	case errors.Is(err, shortener.ErrInvalidInput):
		return huma.Error400BadRequest(err.Error())
	case errors.Is(err, shortener.ErrAliasConflict):
		if alias == "" {
			// derived codes kept colliding with aliases
			h.logger.Error("could not allocate a free code", zap.Error(err))

			return huma.Error503ServiceUnavailable("could not allocate a short code, try again")
		}

		return huma.Error409Conflict("customAlias is already in use")
	case errors.Is(err, shortener.ErrUnavailable):
		h.logger.Error("store unavailable while shortening", zap.Error(err))

		return huma.Error503ServiceUnavailable("storage unavailable, try again later")
	default:
		h.logger.Error("failed to shorten url", zap.Error(err))

		return huma.Error500InternalServerError("failed to shorten url")
	}
}

func (h *URLHandler) RedirectToURL(ctx context.Context, req *RedirectRequest) (*RedirectResponse, error) {
	if !IsValidCode(req.Code) {
		return nil, huma.Error404NotFound("short url not found")
	}

	originalURL, err := h.shortener.Resolve(ctx, shortener.Code(req.Code))
	if err != nil {
		if errors.Is(err, shortener.ErrNotFound) {
			return nil, huma.Error404NotFound("short url not found")
		}

		h.logger.Error("failed to resolve code", zap.String("code", req.Code), zap.Error(err))

		return nil, huma.Error503ServiceUnavailable("storage unavailable, try again later")
	}

	meta, _ := RequestMetaFromContext(ctx)
	event := &analytics.ClickEvent{
		ID:        h.newID(),
		Code:      req.Code,
		ClientIP:  meta.ClientIP,
		UserAgent: meta.UserAgent,
		Referrer:  meta.Referrer,
		ClickedAt: time.Now().UTC(),
	}

	if err = h.events.LinkClicked(ctx, event); err != nil {
		h.logger.Error("failed to publish click event",
			zap.String("code", event.Code),
			zap.String("requestId", meta.RequestID),
			zap.Error(err),
		)
	}

	return &RedirectResponse{
		Status:       http.StatusFound,
		Location:     originalURL,
		CacheControl: "no-store",
	}, nil
}

func (h *URLHandler) GetStats(ctx context.Context, req *StatsRequest) (*StatsResponse, error) {
	if !IsValidCode(req.Code) {
		return nil, huma.Error404NotFound("short url not found")
	}

	stats, err := h.stats.Stats(ctx, req.Code, analytics.RecentClicksLimit)
	if err != nil {
		if errors.Is(err, analytics.ErrStatsUnavailable) {
			return nil, huma.Error503ServiceUnavailable("analytics are not enabled")
		}

		h.logger.Error("failed to read stats", zap.String("code", req.Code), zap.Error(err))

		return nil, huma.Error500InternalServerError("failed to fetch stats")
	}

	resp := &StatsResponse{}
	resp.Body.Code = req.Code
	resp.Body.TotalClicks = stats.TotalClicks
	resp.Body.RecentActivity = make([]ClickView, 0, len(stats.RecentActivity))

	for _, c := range stats.RecentActivity {
		resp.Body.RecentActivity = append(resp.Body.RecentActivity, ClickView{
			ClickedAt: c.ClickedAt,
			UserAgent: c.UserAgent,
			Referrer:  c.Referrer,
		})
	}

	return resp, nil
}
