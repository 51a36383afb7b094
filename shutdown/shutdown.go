// Package shutdown turns termination signals into context cancellation.
package shutdown

import (
	"context"
	"os"
	"os/signal"
)

// Context returns a copy of parent that is cancelled on the first
// termination signal. The returned stop func releases the signal handler.
func Context(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, signals()...)
}

// Notify relays termination signals to ch.
func Notify(ch chan<- os.Signal) {
	signal.Notify(ch, signals()...)
}
