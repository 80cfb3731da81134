package queuesync

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
)

// Handle controls a repeating task started by Every.
type Handle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Every runs fn on every interval of clock until ctx is cancelled or the
// returned handle is stopped. The first run happens one interval after
// the call.
func Every(ctx context.Context, clock clockwork.Clock, interval time.Duration, fn func(context.Context)) *Handle {
	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{cancel: cancel, done: make(chan struct{})}

	ticker := clock.NewTicker(interval)
	go func() {
		defer close(h.done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.Chan():
				fn(ctx)
			}
		}
	}()

	return h
}

// Stop cancels the task and waits for it to exit. Safe to call more than once.
func (h *Handle) Stop() {
	if h == nil {
		return
	}
	h.cancel()
	<-h.done
}

// Done is closed once the task has exited.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// stopAndDrainTimer stops a timer and drains its channel so a pending fire
// cannot leak into the next select.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
