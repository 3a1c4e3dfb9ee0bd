// Package notification renders, addresses and sends the storefront's
// transactional mails (member registration, orders, password resets,
// shipping notices, ...). A Dispatcher drives every kind through the same
// steps: template lookup, render, build, pre-send event, transport, log and,
// for shipping notices, a history record per order.
package notification

import (
	"context"
	"log/slog"
)

// TemplateStore resolves a template id to its definition.
type TemplateStore interface {
	// FindTemplate returns ErrTemplateNotFound (wrapped) when id is unknown.
	FindTemplate(ctx context.Context, id int64) (*TemplateRef, error)
}

// Renderer produces a mail body from a template file and its variables.
type Renderer interface {
	Render(ctx context.Context, fileName string, vars RenderContext) (string, error)
}

// Event is published synchronously right before a message is sent.
//
// Listeners may change any field of *Message or point Message at a new
// value, and the dispatcher sends whatever they leave behind. They cannot
// cancel the send; a message left without a valid To fails with an
// *AddressError. Payload carries the render variables and must be treated
// as read-only.
type Event struct {
	Name    string
	Kind    Kind
	Message *Message
	Payload map[string]any
}

// EventPublisher lets other parts of the system observe or mutate a message
// before it is sent.
type EventPublisher interface {
	Publish(ctx context.Context, e *Event)
}

// Transport delivers a message. It must not retain msg after Send returns.
type Transport interface {
	// Name returns the transport identifier (e.g. "smtp").
	Name() string
	// Send delivers msg. A non-nil error means delivery failed for the
	// recipients listed in the result.
	Send(ctx context.Context, msg *Message) (SendResult, error)
}

// HistoryRecorder persists the history of shipping notices.
type HistoryRecorder interface {
	RecordMail(ctx context.Context, rec HistoryRecord) (int64, error)
}

// LogTransport writes messages to a logger instead of sending them.
type LogTransport struct {
	logger *slog.Logger
}

// NewLogTransport returns a Transport for development setups.
func NewLogTransport(logger *slog.Logger) *LogTransport {
	return &LogTransport{logger: logger}
}

// Name returns the transport identifier.
func (t *LogTransport) Name() string { return "log" }

// Send logs msg and reports every recipient delivered.
func (t *LogTransport) Send(ctx context.Context, msg *Message) (SendResult, error) {
	t.logger.InfoContext(ctx, "mail would be sent",
		slog.String("message_id", msg.ID),
		slog.String("subject", msg.Subject),
		slog.String("from", msg.From.String()),
		slog.Any("to", msg.To),
		slog.Any("bcc", msg.Bcc),
		slog.Int("body_bytes", len(msg.Body)),
	)
	return SendResult{Delivered: len(msg.Recipients())}, nil
}
