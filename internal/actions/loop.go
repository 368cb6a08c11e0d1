package actions

import (
	"context"
	"sync"
	"time"
)

// loop runs a tick function on an interval until stopped. A tick returning
// false ends the loop on its own.
type loop struct {
	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// start launches the loop. It reports false when the loop is already
// running.
func (l *loop) start(interval time.Duration, tick func(ctx context.Context) bool) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.done != nil {
		return false
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	l.cancel, l.done = cancel, done

	go func() {
		defer close(done)
		defer cancel()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !tick(ctx) {
					l.mu.Lock()
					if l.done == done {
						l.cancel, l.done = nil, nil
					}
					l.mu.Unlock()
					return
				}
			}
		}
	}()
	return true
}

// stop cancels the loop and waits for it to exit. It reports false when the
// loop was not running.
func (l *loop) stop() bool {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.cancel, l.done = nil, nil
	l.mu.Unlock()
	if done == nil {
		return false
	}
	cancel()
	<-done
	return true
}

func (l *loop) active() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.done != nil
}
