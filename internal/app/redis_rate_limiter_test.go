package app

import (
	"context"
	"testing"
	"time"
)

func TestConsumeRateLimit_DisabledConfigurations(t *testing.T) {
	tests := []struct {
		name    string
		limiter *RedisWithdrawalRateLimiter
		subject string
		limit   int
		window  time.Duration
	}{
		{name: "nil limiter", limiter: nil, subject: "prod-1", limit: 5, window: time.Minute},
		{name: "nil client", limiter: &RedisWithdrawalRateLimiter{}, subject: "prod-1", limit: 5, window: time.Minute},
		{name: "zero limit", limiter: &RedisWithdrawalRateLimiter{}, subject: "prod-1", limit: 0, window: time.Minute},
		{name: "blank subject", limiter: &RedisWithdrawalRateLimiter{}, subject: "  ", limit: 5, window: time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			count, retryAfter, err := tt.limiter.ConsumeRateLimit(context.Background(), "withdrawal_request", tt.subject, tt.limit, tt.window)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if count != 0 || retryAfter != 0 {
				t.Fatalf("expected limiting disabled, got count=%d retryAfter=%d", count, retryAfter)
			}
		})
	}
}

func TestParseLimiterReply(t *testing.T) {
	current, ttlMs, err := parseLimiterReply([]interface{}{int64(3), int64(42000)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if current != 3 || ttlMs != 42000 {
		t.Fatalf("expected count=3 ttl=42000, got count=%d ttl=%d", current, ttlMs)
	}

	if _, _, err := parseLimiterReply("not a slice"); err == nil {
		t.Fatal("expected an error for a malformed reply")
	}
	if _, _, err := parseLimiterReply([]interface{}{"3", int64(1000)}); err == nil {
		t.Fatal("expected an error for a non-integer count")
	}
}
