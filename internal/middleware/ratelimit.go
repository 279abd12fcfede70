package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vantor/ragserve/internal/metrics"
	"github.com/vantor/ragserve/internal/ratelimit"
)

// rateLimitResponse is the 429 payload. Clients key off retry_after to back
// off and show friendly_message verbatim.
type rateLimitResponse struct {
	Detail          string `json:"detail"`
	Type            string `json:"type"`
	Limit           string `json:"limit"`
	RetryAfter      int    `json:"retry_after"`
	FriendlyMessage string `json:"friendly_message"`
}

func classifyRoute(path string) ratelimit.RouteClass {
	switch {
	case path == "/" || path == "/health" || path == "/metrics":
		return ratelimit.RouteExempt
	case strings.HasPrefix(path, "/chat"):
		return ratelimit.RouteChat
	default:
		return ratelimit.RouteOther
	}
}

func RateLimit(limiter *ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		route := classifyRoute(c.Request.URL.Path)
		decision := limiter.Check(c.Request.Context(), c.ClientIP(), route)
		if decision.Allowed {
			c.Next()
			return
		}
		metrics.RateLimitDenied.WithLabelValues(decision.Scope).Inc()
		c.AbortWithStatusJSON(http.StatusTooManyRequests, buildLimitResponse(decision))
	}
}

func buildLimitResponse(d ratelimit.Decision) rateLimitResponse {
	if d.Scope == ratelimit.ScopeChat {
		return rateLimitResponse{
			Detail:          "Chat rate limit exceeded",
			Type:            "chat_rate_limit_exceeded",
			Limit:           d.Limit,
			RetryAfter:      d.RetryAfter,
			FriendlyMessage: "You're sending messages too quickly! Please wait before sending another message.",
		}
	}
	return rateLimitResponse{
		Detail:          "Global rate limit exceeded",
		Type:            "rate_limit_exceeded",
		Limit:           d.Limit,
		RetryAfter:      d.RetryAfter,
		FriendlyMessage: fmt.Sprintf("You've reached the global rate limit. Please try again in %d seconds.", d.RetryAfter),
	}
}
