package tracker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"blobcache/internal/core/types"

	"github.com/dustin/go-humanize"
)

// Tracker records progress and outcome for a single transfer.
type Tracker struct {
	name      string
	mu        sync.RWMutex
	status    types.Status
	startedAt time.Time
	endedAt   time.Time
	current   int64
	total     int64
	err       error
}

func NewTracker(name string) *Tracker {
	return &Tracker{
		name:   name,
		status: types.StatusPending,
	}
}

func (t *Tracker) Name() string {
	return t.name
}

func (t *Tracker) Status() types.Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

func (t *Tracker) Err() error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.err
}

func (t *Tracker) Duration() time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.status.IsActive() {
		return time.Since(t.startedAt)
	}
	return t.endedAt.Sub(t.startedAt)
}

func (t *Tracker) Current() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current
}

func (t *Tracker) IncCurrent(n int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current = max(0, t.current+n)
}

func (t *Tracker) SetCurrent(current int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current = max(0, current)
}

func (t *Tracker) Total() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.total
}

func (t *Tracker) SetTotal(total int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.total = max(0, total)
}

// Progress returns current/total as a float from 0 to 1.
func (t *Tracker) Progress() float64 {
	if t.Total() == 0 {
		return 0
	}
	return float64(t.Current()) / float64(t.Total())
}

// ProgressBytes returns current/total as a human readable string.
func (t *Tracker) ProgressBytes() string {
	return fmt.Sprintf("%s/%s", types.Bytes(t.Current()), types.Bytes(t.Total()))
}

// Speed returns the average transfer speed in bytes per second.
func (t *Tracker) Speed() float64 {
	duration := t.Duration().Seconds()
	if duration == 0 {
		return 0
	}
	return float64(t.Current()) / duration
}

// SpeedBytes returns the average transfer speed as a human readable string.
func (t *Tracker) SpeedBytes() string {
	return fmt.Sprintf("%s/s", humanize.IBytes(uint64(t.Speed())))
}

// ETA returns the estimated time remaining based on the average speed.
func (t *Tracker) ETA() time.Duration {
	speed := t.Speed()
	if speed == 0 {
		return 0
	}
	delta := float64(t.Total() - t.Current())
	return time.Duration(delta/speed) * time.Second
}

// Start marks the tracker as running.
func (t *Tracker) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.startedAt = time.Now()
	t.status = types.StatusRunning
	t.err = nil
}

// Update finalizes the tracker from the transfer's result.
func (t *Tracker) Update(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.endedAt = time.Now()
	switch err {
	case nil:
		t.status = types.StatusSucceeded
	case context.Canceled:
		t.status = types.StatusCanceled
	default:
		t.status = types.StatusFailed
	}
	t.err = err
}

func (t *Tracker) IsPending() bool {
	return t.Status() == types.StatusPending
}

func (t *Tracker) IsRunning() bool {
	return t.Status() == types.StatusRunning
}

func (t *Tracker) IsSucceeded() bool {
	return t.Status().IsSuccess()
}

func (t *Tracker) IsFailed() bool {
	return t.Status() == types.StatusFailed
}
