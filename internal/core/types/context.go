// Provides helper functions for working with contexts.
package types

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// NewSignalNotifySubContext creates a cancellable sub-context that is
// cancelled when any of the provided signals are received.
func NewSignalNotifySubContext(ctx context.Context, signals ...os.Signal) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, signals...)
}

// DefaultSignalNotifyContext creates a context that is cancelled on
// SIGINT or SIGTERM.
func DefaultSignalNotifyContext() (context.Context, context.CancelFunc) {
	return NewSignalNotifySubContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
