package ratelimiter

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	privateChatRate = time.Second
	groupChatRate   = 3 * time.Second
)

// RateLimiter spaces out Telegram calls per chat. Group chats have negative
// IDs and a stricter limit.
type RateLimiter struct {
	limiters map[int64]*rate.Limiter
	mu       sync.Mutex
	log      *slog.Logger
}

func New(log *slog.Logger) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[int64]*rate.Limiter),
		log:      log,
	}
}

// Wait blocks until chatID may send again or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context, chatID int64) error {
	r := rl.limiter(chatID).Reserve()

	delay := r.Delay()
	if delay <= 0 {
		return nil
	}

	rl.log.DebugContext(ctx, "Rate limiting message",
		"chatID", chatID,
		"delay", delay)

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		r.Cancel()
		return ctx.Err()
	}
}

// Allow reports whether chatID may send now and consumes the slot if so.
// Intermediate streaming edits use it to drop updates instead of queueing.
func (rl *RateLimiter) Allow(chatID int64) bool {
	return rl.limiter(chatID).Allow()
}

func (rl *RateLimiter) Forget(chatID int64) {
	rl.mu.Lock()
	delete(rl.limiters, chatID)
	rl.mu.Unlock()
}

func (rl *RateLimiter) limiter(chatID int64) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	l, ok := rl.limiters[chatID]
	if !ok {
		l = rate.NewLimiter(rate.Every(getRate(chatID)), 1)
		rl.limiters[chatID] = l
	}

	return l
}

func getRate(chatID int64) time.Duration {
	if chatID < 0 {
		return groupChatRate
	}
	return privateChatRate
}
