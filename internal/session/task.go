package session

import (
	"context"
	"time"
)

// Task is a scheduled callback that owns its cancellation. Stop must not be
// called from inside the task's own callback; use Cancel there.
type Task struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Every runs fn each interval until ctx is done or the task is cancelled.
func Every(ctx context.Context, interval time.Duration, fn func(context.Context)) *Task {
	ctx, cancel := context.WithCancel(ctx)
	t := &Task{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(t.done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fn(ctx)
			}
		}
	}()

	return t
}

// After runs fn once after delay unless ctx is done or the task is cancelled
// first.
func After(ctx context.Context, delay time.Duration, fn func(context.Context)) *Task {
	ctx, cancel := context.WithCancel(ctx)
	t := &Task{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(t.done)

		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
		case <-timer.C:
			fn(ctx)
		}
	}()

	return t
}

func (t *Task) Cancel() {
	t.cancel()
}

// Stop cancels the task and waits for a running callback to return.
func (t *Task) Stop() {
	t.cancel()
	<-t.done
}
