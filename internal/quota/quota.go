// Package quota tracks storage usage signals for resource accounting.
package quota

import (
	"sync"

	"blobcache/internal/core/logger"
)

// UsageTracker receives write-failure notifications. Implementations must
// not block; callers fire and forget.
type UsageTracker interface {
	NotifyWriteFailed(origin string)
}

// Accountant is an in-process UsageTracker that counts write failures per
// origin.
type Accountant struct {
	mu       sync.Mutex
	logger   *logger.Logger
	failures map[string]int64
}

func NewAccountant() *Accountant {
	return &Accountant{
		logger:   logger.NewLogger(logger.WithName("quota")),
		failures: make(map[string]int64),
	}
}

// NotifyWriteFailed implements UsageTracker.
func (a *Accountant) NotifyWriteFailed(origin string) {
	a.mu.Lock()
	a.failures[origin]++
	count := a.failures[origin]
	a.mu.Unlock()
	a.logger.Warn("storage write failed", "origin", origin, "failures", count)
}

// WriteFailures returns the number of failed writes recorded for origin.
func (a *Accountant) WriteFailures(origin string) int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.failures[origin]
}
