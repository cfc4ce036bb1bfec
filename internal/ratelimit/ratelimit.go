// Package ratelimit paces sequential network work. The pipeline is
// deliberately serial, so a fixed delay between actions is all the
// sources ever see.
package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

type Limiter interface {
	Wait(ctx context.Context) error
	SetDelay(d time.Duration)
}

// FixedLimiter enforces a fixed delay (plus optional jitter) between
// consecutive Wait calls. Respects context cancellation while sleeping.
type FixedLimiter struct {
	delay      time.Duration
	jitter     bool
	lastAction time.Time
	mu         sync.Mutex
}

func NewFixedLimiter(delay time.Duration) *FixedLimiter {
	return &FixedLimiter{delay: delay}
}

// NewJitteredLimiter adds up to 25% random jitter on top of the fixed
// delay.
func NewJitteredLimiter(delay time.Duration) *FixedLimiter {
	return &FixedLimiter{delay: delay, jitter: true}
}

func (l *FixedLimiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	delay := l.delay
	if l.jitter && delay > 0 {
		delay += time.Duration(rand.Int63n(int64(delay)/4 + 1))
	}

	elapsed := time.Since(l.lastAction)
	if elapsed < delay {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay - elapsed):
		}
	}

	l.lastAction = time.Now()
	return nil
}

func (l *FixedLimiter) SetDelay(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.delay = d
}
