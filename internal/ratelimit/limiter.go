package ratelimit

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type RouteClass int

const (
	// RouteExempt bypasses all counters entirely (health/status endpoints).
	RouteExempt RouteClass = iota
	// RouteChat is subject to the global quota and the per-client chat quota.
	RouteChat
	// RouteOther is subject to the global quota only.
	RouteOther
)

const (
	ScopeGlobal = "global"
	ScopeChat   = "chat"

	globalKey     = "rate_limit:global"
	chatKeyPrefix = "rate_limit:chat:"
)

// Decision is the outcome of an admission check. RetryAfter is only
// meaningful when Allowed is false.
type Decision struct {
	Allowed    bool
	Scope      string
	Limit      string
	RetryAfter int
}

var allow = Decision{Allowed: true}

type Limiter struct {
	store  CounterStore
	global Quota
	chat   Quota
}

func NewLimiter(store CounterStore, global, chat Quota) *Limiter {
	return &Limiter{store: store, global: global, chat: chat}
}

// Check runs the fixed-window admission check for one request. The global
// scope is checked first; a global denial short-circuits so the per-client
// chat counter is never incremented for that request. Store errors fail
// open: availability of the chat surface wins over strict enforcement.
func (l *Limiter) Check(ctx context.Context, clientIP string, route RouteClass) Decision {
	if route == RouteExempt {
		return allow
	}
	decision, err := l.checkScope(ctx, globalKey, ScopeGlobal, l.global)
	if err != nil {
		logutil.GetLogger(ctx).Error("counter store error, failing open",
			zap.String("scope", ScopeGlobal), zap.Error(err))
		return allow
	}
	if !decision.Allowed {
		return decision
	}
	if route != RouteChat {
		return allow
	}
	decision, err = l.checkScope(ctx, chatKeyPrefix+clientIP, ScopeChat, l.chat)
	if err != nil {
		logutil.GetLogger(ctx).Error("counter store error, failing open",
			zap.String("scope", ScopeChat), zap.String("client_ip", clientIP), zap.Error(err))
		return allow
	}
	return decision
}

func (l *Limiter) checkScope(ctx context.Context, key, scope string, quota Quota) (Decision, error) {
	n, err := l.store.Incr(ctx, key)
	if err != nil {
		return Decision{}, err
	}
	if n == 1 {
		// The increment created the counter; the window starts now. Later
		// increments within the window reuse this TTL.
		if err := l.store.Expire(ctx, key, quota.Window); err != nil {
			return Decision{}, err
		}
	}
	if n <= quota.Limit {
		return allow, nil
	}
	ttl, err := l.store.TTL(ctx, key)
	if err != nil {
		return Decision{}, err
	}
	retryAfter := int(ttl / time.Second)
	if retryAfter < 0 {
		retryAfter = 0
	}
	logutil.GetLogger(ctx).Warn("rate limit exceeded",
		zap.String("scope", scope),
		zap.String("key", key),
		zap.Int64("count", n),
		zap.Int("retry_after", retryAfter),
	)
	return Decision{Scope: scope, Limit: quota.String(), RetryAfter: retryAfter}, nil
}
