package middleware

import (
	"net"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/shortlink/internal/handlers"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// RequestMeta is a middleware that adds a request id, client IP, user-agent,
// and referrer to the request context. An incoming X-Request-ID is kept.
// X-Forwarded-For and X-Real-IP are only read when trustProxy is set.
func RequestMeta(_ huma.API, newID func() string, trustProxy bool) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		requestID := ctx.Header(RequestIDHeader)
		if requestID == "" {
			requestID = newID()
		}

		ctx.SetHeader(RequestIDHeader, requestID)

		meta := handlers.RequestMeta{
			RequestID: requestID,
			ClientIP:  clientIP(ctx, trustProxy),
			UserAgent: ctx.Header("User-Agent"),
			Referrer:  ctx.Header("Referer"),
		}

		ctx = huma.WithContext(ctx, handlers.ContextWithRequestMeta(ctx.Context(), meta))

		next(ctx)
	}
}

func clientIP(ctx huma.Context, trustProxy bool) string {
	if trustProxy {
		// first entry is the original client
		if xff := ctx.Header("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")

			return strings.TrimSpace(first)
		}

		if xri := ctx.Header("X-Real-IP"); xri != "" {
			return strings.TrimSpace(xri)
		}
	}

	return remoteIP(ctx)
}

// remoteIP is the peer address without its port.
func remoteIP(ctx huma.Context) string {
	addr := ctx.RemoteAddr()

	ip, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}

	return ip
}
