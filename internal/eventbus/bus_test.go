package eventbus_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knsuzuki/shopmail/internal/eventbus"
	"github.com/knsuzuki/shopmail/internal/notification"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func orderEvent() *notification.Event {
	return &notification.Event{
		Name:    notification.EventOrder,
		Kind:    notification.KindOrder,
		Message: &notification.Message{ID: "m-1", Subject: "[Acme] order", To: []string{"a@example.com"}},
	}
}

func TestPublish_RunsMatchingListenersInOrder(t *testing.T) {
	bus := eventbus.New(quietLogger())

	var calls []string
	bus.Subscribe(notification.EventOrder, func(_ context.Context, _ *notification.Event) { calls = append(calls, "order-1") })
	bus.Subscribe(eventbus.Wildcard, func(_ context.Context, _ *notification.Event) { calls = append(calls, "any") })
	bus.Subscribe(notification.EventContact, func(_ context.Context, _ *notification.Event) { calls = append(calls, "contact") })
	bus.Subscribe(notification.EventOrder, func(_ context.Context, _ *notification.Event) { calls = append(calls, "order-2") })

	bus.Publish(context.Background(), orderEvent())

	assert.Equal(t, []string{"order-1", "any", "order-2"}, calls)
}

func TestPublish_ListenerMutationsAreVisible(t *testing.T) {
	bus := eventbus.New(quietLogger())
	bus.Subscribe(notification.EventOrder, func(_ context.Context, e *notification.Event) {
		e.Message.Subject = "changed"
		e.Message.To = append(e.Message.To, "b@example.com")
	})

	e := orderEvent()
	bus.Publish(context.Background(), e)

	assert.Equal(t, "changed", e.Message.Subject)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, e.Message.To)
}

func TestPublish_PanickingListenerDoesNotStopOthers(t *testing.T) {
	var logs bytes.Buffer
	bus := eventbus.New(slog.New(slog.NewTextHandler(&logs, nil)))

	called := false
	bus.Subscribe(eventbus.Wildcard, func(context.Context, *notification.Event) { panic("boom") })
	bus.Subscribe(eventbus.Wildcard, func(context.Context, *notification.Event) { called = true })

	require.NotPanics(t, func() { bus.Publish(context.Background(), orderEvent()) })
	assert.True(t, called)
	assert.Contains(t, logs.String(), "listener panicked")
	assert.Contains(t, logs.String(), "boom")
}

func TestPublish_NoListeners(t *testing.T) {
	bus := eventbus.New(nil)
	assert.NotPanics(t, func() {
		bus.Publish(context.Background(), orderEvent())
		bus.Publish(context.Background(), nil)
	})
}

func TestListeners(t *testing.T) {
	bus := eventbus.New(quietLogger())
	noop := func(context.Context, *notification.Event) {}

	assert.Zero(t, bus.Listeners(notification.EventOrder))

	bus.Subscribe(notification.EventOrder, noop)
	bus.Subscribe(notification.EventOrder, noop)
	bus.Subscribe(eventbus.Wildcard, noop)

	assert.Equal(t, 3, bus.Listeners(notification.EventOrder))
	assert.Equal(t, 1, bus.Listeners(notification.EventContact))
	assert.Equal(t, 1, bus.Listeners(eventbus.Wildcard))
}

func TestLogListener(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	bus := eventbus.New(logger)
	bus.Subscribe(eventbus.Wildcard, eventbus.LogListener(logger))
	bus.Publish(context.Background(), orderEvent())

	out := logs.String()
	assert.Contains(t, out, `"msg":"mail event"`)
	assert.Contains(t, out, `"event":"mail.order"`)
	assert.Contains(t, out, `"message_id":"m-1"`)
}
