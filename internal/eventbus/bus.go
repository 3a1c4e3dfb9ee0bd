// Package eventbus provides an in-memory, synchronous event bus. Mail
// listeners run on the sender's goroutine so that changes they make to a
// message take effect before it is handed to the transport.
package eventbus

import (
	"context"
	"log/slog"
	"sync"

	"github.com/knsuzuki/shopmail/internal/notification"
)

// Bus dispatches events to listeners subscribed by name.
type Bus struct {
	mu        sync.RWMutex
	listeners map[string][]Listener
	// order holds every subscription in registration order so that wildcard
	// and named listeners interleave the way they were added.
	order  []subscription
	logger *slog.Logger
}

type subscription struct {
	name     string
	listener Listener
}

var _ notification.EventPublisher = (*Bus)(nil)

// New creates an empty Bus. A nil logger uses slog.Default.
func New(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		listeners: make(map[string][]Listener),
		logger:    logger,
	}
}

// Subscribe registers listener for events named name, or for every event when
// name is Wildcard.
func (b *Bus) Subscribe(name string, listener Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners[name] = append(b.listeners[name], listener)
	b.order = append(b.order, subscription{name: name, listener: listener})
}

// Listeners returns how many listeners receive events named name, wildcard
// listeners included.
func (b *Bus) Listeners(name string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := len(b.listeners[Wildcard])
	if name != Wildcard {
		n += len(b.listeners[name])
	}
	return n
}

// Publish calls every matching listener in subscription order and returns
// once all of them have run. A panicking listener is logged and skipped.
func (b *Bus) Publish(ctx context.Context, e *notification.Event) {
	if e == nil {
		return
	}
	b.mu.RLock()
	matched := make([]Listener, 0, len(b.order))
	for _, s := range b.order {
		if s.name == Wildcard || s.name == e.Name {
			matched = append(matched, s.listener)
		}
	}
	b.mu.RUnlock()

	for _, l := range matched {
		b.call(ctx, l, e)
	}
}

func (b *Bus) call(ctx context.Context, l Listener, e *notification.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.ErrorContext(ctx, "eventbus: listener panicked",
				slog.String("event", e.Name),
				slog.Any("panic", r),
			)
		}
	}()
	l(ctx, e)
}

// LogListener returns a listener that logs every event at debug level.
func LogListener(logger *slog.Logger) Listener {
	return func(ctx context.Context, e *notification.Event) {
		attrs := []any{
			slog.String("event", e.Name),
			slog.String("kind", string(e.Kind)),
		}
		if e.Message != nil {
			attrs = append(attrs,
				slog.String("message_id", e.Message.ID),
				slog.String("subject", e.Message.Subject),
				slog.Any("to", e.Message.To),
			)
		}
		logger.DebugContext(ctx, "mail event", attrs...)
	}
}
