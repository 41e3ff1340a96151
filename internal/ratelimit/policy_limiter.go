package ratelimit

import (
	"context"
	"fmt"
)

// Decision is the outcome of a rate limit check. When the request is allowed
// it describes the limit closest to running out; otherwise the limit that was
// exceeded. Scope is empty for endpoint-specific limits.
type Decision struct {
	Allowed bool
	Scope   Scope
	Config  LimitConfig
	Count   int64
}

// Limited reports whether any limit applied to the request.
func (d Decision) Limited() bool {
	return d.Config.Window > 0
}

// Remaining is the number of requests left in the reported window.
func (d Decision) Remaining() int64 {
	return max(d.Config.Max-d.Count, 0)
}

// PolicyLimiter enforces rate limits based on a policy and resolved scopes.
type PolicyLimiter struct {
	store  Store
	policy *Policy
}

// NewPolicyLimiter creates a new policy-based rate limiter.
func NewPolicyLimiter(store Store, policy *Policy) *PolicyLimiter {
	return &PolicyLimiter{
		store:  store,
		policy: policy,
	}
}

// Allow records the request against every limit of the given scopes and
// stops at the first limit exceeded.
func (l *PolicyLimiter) Allow(ctx context.Context, clientKey string, scopes []Scope) (Decision, error) {
	decision := Decision{Allowed: true}

	for _, scope := range scopes {
		for _, limit := range l.policy.Limits[scope] {
			key := fmt.Sprintf("%s:%s:%d", clientKey, scope, limit.Window.Milliseconds())

			next, err := l.record(ctx, key, scope, limit)
			if err != nil {
				return Decision{}, err
			}

			if decision = tighter(decision, next); !decision.Allowed {
				return decision, nil
			}
		}
	}

	return decision, nil
}

// AllowEndpoint applies endpoint-specific limits instead of the policy.
// Counters are shared by every request to the same route template.
func (l *PolicyLimiter) AllowEndpoint(
	ctx context.Context,
	clientKey, route string,
	limits []LimitConfig,
) (Decision, error) {
	decision := Decision{Allowed: true}

	for _, limit := range limits {
		key := fmt.Sprintf("%s:custom:%s:%d", clientKey, route, limit.Window.Milliseconds())

		next, err := l.record(ctx, key, "", limit)
		if err != nil {
			return Decision{}, err
		}

		if decision = tighter(decision, next); !decision.Allowed {
			return decision, nil
		}
	}

	return decision, nil
}

func (l *PolicyLimiter) record(ctx context.Context, key string, scope Scope, limit LimitConfig) (Decision, error) {
	count, err := l.store.Record(ctx, key, limit.Window)
	if err != nil {
		return Decision{}, fmt.Errorf("record %s: %w", key, err)
	}

	return Decision{Allowed: count <= limit.Max, Scope: scope, Config: limit, Count: count}, nil
}

// tighter keeps a rejection, or else the limit with fewer requests left.
func tighter(current, next Decision) Decision {
	if !next.Allowed || !current.Limited() || next.Remaining() < current.Remaining() {
		return next
	}

	return current
}
