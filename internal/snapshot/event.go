package snapshot

import (
	"context"
)

// Event describes a finished operation.
type Event struct {
	Op     string
	Result *Result
	Err    error
	// Kind is KindUnknown when Err is nil or untyped.
	Kind Kind
}

// Success reports whether the operation completed without error.
func (e Event) Success() bool {
	return e.Err == nil
}

// Listener is notified after every operation, successful or not. Listener
// errors never fail the operation; they are added to the result as
// warnings. Hooks, the remote mirror, the journal and metrics are
// listeners.
type Listener interface {
	Name() string
	Notify(ctx context.Context, ev Event) error
}

// finish stamps the duration and runs the listeners in registration order.
func (m *Manager) finish(ctx context.Context, res *Result, err error) {
	res.Duration = m.now().Sub(res.Started)
	ev := Event{Op: res.Op, Result: res, Err: err, Kind: KindOf(err)}

	lctx := context.WithoutCancel(ctx)
	for _, l := range m.listeners {
		if lerr := l.Notify(lctx, ev); lerr != nil {
			m.logger.Warn("Listener failed", "listener", l.Name(), "op", res.Op, "error", lerr)
			res.warn("%s: %v", l.Name(), lerr)
		}
	}
}
