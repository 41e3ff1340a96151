package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/shortlink/internal/handlers"
	"github.com/serroba/shortlink/internal/ratelimit"
	"go.uber.org/zap"
)

const (
	RateLimitLimitHeader     = "X-RateLimit-Limit"
	RateLimitRemainingHeader = "X-RateLimit-Remaining"
)

// PolicyRateLimiter returns a Huma middleware that applies policy-based rate limiting.
// It uses a ScopeResolver to determine which scopes apply to each request,
// then checks all applicable limits from the policy.
//
// Per-endpoint configuration can be provided via operation metadata using
// ratelimit.MetadataKey. This allows endpoints to:
//   - Disable rate limiting entirely (Disabled: true)
//   - Override the scope detection (Scope: ratelimit.ScopeRead)
//   - Define custom limits (Limits: []ratelimit.LimitConfig{...})
//
// Every limited response carries X-RateLimit-Limit and X-RateLimit-Remaining
// for the limit closest to running out. When the limiter store fails the
// request is let through.
func PolicyRateLimiter(
	api huma.API,
	limiter *ratelimit.PolicyLimiter,
	resolver ratelimit.ScopeResolver,
	logger *zap.Logger,
) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		path := operationPath(ctx)
		key := clientKey(ctx)

		var (
			decision ratelimit.Decision
			err      error
		)

		cfg := ratelimit.GetEndpointConfig(ctx)

		switch {
		case cfg != nil && cfg.Disabled:
			next(ctx)

			return
		case cfg != nil && len(cfg.Limits) > 0:
			decision, err = limiter.AllowEndpoint(ctx.Context(), key, path, cfg.Limits)
		default:
			decision, err = limiter.Allow(ctx.Context(), key, resolver.Resolve(ctx))
		}

		if err != nil {
			logger.Warn("rate limit check failed, allowing request",
				zap.String("path", path),
				zap.Error(err),
			)
			next(ctx)

			return
		}

		if decision.Limited() {
			ctx.SetHeader(RateLimitLimitHeader, strconv.FormatInt(decision.Config.Max, 10))
			ctx.SetHeader(RateLimitRemainingHeader, strconv.FormatInt(decision.Remaining(), 10))
		}

		if !decision.Allowed {
			rejectRateLimited(api, ctx, decision, path, logger)

			return
		}

		next(ctx)
	}
}

// operationPath returns the route template, so "/{code}" rather than "/abc".
func operationPath(ctx huma.Context) string {
	if op := ctx.Operation(); op != nil {
		return op.Path
	}

	return ctx.URL().Path
}

func rejectRateLimited(
	api huma.API,
	ctx huma.Context,
	decision ratelimit.Decision,
	path string,
	logger *zap.Logger,
) {
	scope := string(decision.Scope)
	if scope == "" {
		scope = "endpoint"
	}

	msg := fmt.Sprintf("rate limit exceeded: %s scope, %d/%d requests in %s",
		scope, decision.Count, decision.Config.Max, decision.Config.Window)

	ctx.SetHeader("Retry-After", fmt.Sprintf("%.0f", decision.Config.Window.Seconds()))

	logger.Warn("rate limit exceeded",
		zap.String("path", path),
		zap.String("method", ctx.Method()),
		zap.String("scope", scope),
		zap.Int64("count", decision.Count),
		zap.Int64("max", decision.Config.Max),
		zap.Duration("window", decision.Config.Window),
		zap.String("client_ip", requestClientIP(ctx)),
	)

	_ = huma.WriteErr(api, ctx, http.StatusTooManyRequests, msg)
}

// clientKey identifies a client by IP and User-Agent.
func clientKey(ctx huma.Context) string {
	hash := sha256.Sum256([]byte(requestClientIP(ctx) + "|" + ctx.Header("User-Agent")))

	return hex.EncodeToString(hash[:])
}

// requestClientIP prefers the IP resolved by RequestMeta, which knows whether
// proxy headers are trusted, and falls back to the peer address.
func requestClientIP(ctx huma.Context) string {
	if meta, ok := handlers.RequestMetaFromContext(ctx.Context()); ok && meta.ClientIP != "" {
		return meta.ClientIP
	}

	return remoteIP(ctx)
}
