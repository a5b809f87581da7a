// Package ratelimit enforces per-run request budgets for the extraction
// capability variants, so a misbehaving run cannot burn a day's quota.
package ratelimit

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Limiter tracks request counts per capability variant plus a global cap.
// Counters reset daily.
type Limiter struct {
	mu         sync.Mutex
	counts     map[string]int
	limits     map[string]int
	totalCount int
	maxTotal   int
	resetTime  time.Time
}

// New creates a limiter. limits maps variant name to its daily budget;
// zero or missing means unlimited for that variant. maxTotal of zero
// means no global cap.
func New(limits map[string]int, maxTotal int) *Limiter {
	l := &Limiter{
		counts:    make(map[string]int),
		limits:    make(map[string]int, len(limits)),
		maxTotal:  maxTotal,
		resetTime: time.Now().Add(24 * time.Hour),
	}
	for name, max := range limits {
		l.limits[name] = max
	}
	return l
}

// Allow reports whether the named variant still has budget.
func (l *Limiter) Allow(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.checkReset()

	if max := l.limits[name]; max > 0 && l.counts[name] >= max {
		slog.Warn("variant request budget reached", "variant", name, "used", l.counts[name], "limit", max)
		return false
	}
	if l.maxTotal > 0 && l.totalCount >= l.maxTotal {
		slog.Warn("total request budget reached", "used", l.totalCount, "limit", l.maxTotal)
		return false
	}
	return true
}

// Use consumes one request from the named variant's budget.
func (l *Limiter) Use(name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.checkReset()

	if max := l.limits[name]; max > 0 && l.counts[name] >= max {
		return fmt.Errorf("%s request budget exceeded", name)
	}
	if l.maxTotal > 0 && l.totalCount >= l.maxTotal {
		return fmt.Errorf("total request budget exceeded")
	}

	l.counts[name]++
	l.totalCount++

	slog.Debug("capability request counted",
		"variant", name, "used", l.counts[name], "total", l.totalCount)
	return nil
}

// Stats returns a snapshot of usage per variant.
func (l *Limiter) Stats() map[string]interface{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	stats := map[string]interface{}{
		"total_used":  l.totalCount,
		"total_limit": l.maxTotal,
		"reset_time":  l.resetTime,
	}
	for name, used := range l.counts {
		stats[name+"_used"] = used
		stats[name+"_limit"] = l.limits[name]
	}
	return stats
}

// checkReset zeroes counters once the reset time has passed.
func (l *Limiter) checkReset() {
	if time.Now().After(l.resetTime) {
		slog.Info("resetting capability request counters")
		l.counts = make(map[string]int)
		l.totalCount = 0
		l.resetTime = time.Now().Add(24 * time.Hour)
	}
}
