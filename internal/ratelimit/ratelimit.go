// Package ratelimit caps how many generation-rewrite requests the pipeline
// may spend per day. Over budget means the rules path, never an error.
package ratelimit

import (
	"fmt"
	"sync"
	"time"

	"mmnews/internal/logger"
)

// Limiter tracks daily generation usage. A max of 0 disables the cap.
type Limiter struct {
	mu        sync.Mutex
	used      int
	maxPerDay int
	resetTime time.Time
}

func New(maxPerDay int) *Limiter {
	return &Limiter{
		maxPerDay: maxPerDay,
		resetTime: time.Now().Add(24 * time.Hour),
	}
}

// CanUse reports whether budget remains for one more generation call.
func (l *Limiter) CanUse() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.checkReset()

	if l.maxPerDay > 0 && l.used >= l.maxPerDay {
		logger.Debug("generation budget exhausted", "used", l.used, "max", l.maxPerDay)
		return false
	}
	return true
}

// Use consumes one unit of budget.
func (l *Limiter) Use() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.checkReset()

	if l.maxPerDay > 0 && l.used >= l.maxPerDay {
		return fmt.Errorf("generation rate limit exceeded (%d/%d)", l.used, l.maxPerDay)
	}
	l.used++
	return nil
}

// Stats returns current usage for the monitoring endpoint.
func (l *Limiter) Stats() map[string]interface{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	return map[string]interface{}{
		"generation_used":  l.used,
		"generation_limit": l.maxPerDay,
		"reset_time":       l.resetTime.Format(time.RFC3339),
	}
}

func (l *Limiter) checkReset() {
	if time.Now().After(l.resetTime) {
		l.used = 0
		l.resetTime = time.Now().Add(24 * time.Hour)
	}
}
