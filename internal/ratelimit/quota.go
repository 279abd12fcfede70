package ratelimit

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Quota is a fixed-window limit: at most Limit requests per Window.
type Quota struct {
	Limit  int64
	Window time.Duration
	raw    string
}

func (q Quota) String() string {
	return q.raw
}

// ParseQuota parses the compact "<count>/<unit>" form, unit being one of
// second, minute, hour or day. An unknown unit falls back to day.
func ParseQuota(s string) (Quota, error) {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) != 2 {
		return Quota{}, fmt.Errorf("invalid quota %q: want <count>/<unit>", s)
	}
	limit, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil {
		return Quota{}, fmt.Errorf("invalid quota count in %q: %w", s, err)
	}
	if limit <= 0 {
		return Quota{}, fmt.Errorf("invalid quota %q: count must be positive", s)
	}
	return Quota{Limit: limit, Window: unitWindow(strings.TrimSpace(parts[1])), raw: s}, nil
}

func unitWindow(unit string) time.Duration {
	switch strings.ToLower(unit) {
	case "second":
		return time.Second
	case "minute":
		return time.Minute
	case "hour":
		return time.Hour
	case "day":
		return 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}
