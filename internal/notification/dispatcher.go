package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/knsuzuki/shopmail/internal/notification"

// Send outcomes recorded on the sends counter.
const (
	outcomeSent             = "sent"
	outcomePartial          = "partial"
	outcomeTransportError   = "transport_error"
	outcomeTemplateNotFound = "template_not_found"
	outcomeRenderError      = "render_error"
	outcomeInvalidAddress   = "invalid_address"
	outcomeInvalidPayload   = "invalid_payload"
	outcomeError            = "error"
)

// Config wires a Dispatcher to its collaborators.
type Config struct {
	Shop      ShopProfile
	Settings  Settings
	Templates TemplateStore
	Renderer  Renderer
	Transport Transport
	History   HistoryRecorder
	// Events is optional; without it no pre-send event is published.
	Events EventPublisher
	Logger *slog.Logger
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Dispatcher sends every notification kind through the same pipeline.
// It holds no mutable state and is safe for concurrent use as long as its
// collaborators are.
type Dispatcher struct {
	shop      ShopProfile
	settings  Settings
	templates TemplateStore
	renderer  Renderer
	transport Transport
	history   HistoryRecorder
	events    EventPublisher
	logger    *slog.Logger
	now       func() time.Time

	tracer        trace.Tracer
	sends         metric.Int64Counter
	historyWrites metric.Int64Counter
}

// NewDispatcher validates cfg and returns a ready Dispatcher.
func NewDispatcher(cfg Config) (*Dispatcher, error) {
	if err := cfg.Shop.Validate(); err != nil {
		return nil, fmt.Errorf("shop profile: %w", err)
	}
	switch {
	case cfg.Templates == nil:
		return nil, errors.New("notification: template store is required")
	case cfg.Renderer == nil:
		return nil, errors.New("notification: renderer is required")
	case cfg.Transport == nil:
		return nil, errors.New("notification: transport is required")
	case cfg.History == nil:
		return nil, errors.New("notification: history recorder is required")
	}

	d := &Dispatcher{
		shop:      cfg.Shop,
		settings:  Settings{TemplateIDs: maps.Clone(cfg.Settings.TemplateIDs), ResetExpire: cfg.Settings.ResetExpire},
		templates: cfg.Templates,
		renderer:  cfg.Renderer,
		transport: cfg.Transport,
		history:   cfg.History,
		events:    cfg.Events,
		logger:    cfg.Logger,
		now:       cfg.Clock,
		tracer:    otel.Tracer(instrumentationName),
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	if d.now == nil {
		d.now = time.Now
	}

	meter := otel.Meter(instrumentationName)
	var err error
	d.sends, err = meter.Int64Counter("shopmail.mail.sends",
		metric.WithDescription("Mail sends by kind and outcome."),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating sends counter: %w", err)
	}
	d.historyWrites, err = meter.Int64Counter("shopmail.mail.history_writes",
		metric.WithDescription("Mail history writes by outcome."),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating history counter: %w", err)
	}
	return d, nil
}

// SendCustomerConfirm sends the provisional registration mail with the
// activation link.
func (d *Dispatcher) SendCustomerConfirm(ctx context.Context, c *Customer, activateURL string) (SendResult, error) {
	_, res, err := d.dispatch(ctx, KindCustomerConfirm, &payload{customer: c, url: activateURL})
	return res, err
}

// SendCustomerComplete sends the registration completed mail.
func (d *Dispatcher) SendCustomerComplete(ctx context.Context, c *Customer) (SendResult, error) {
	_, res, err := d.dispatch(ctx, KindCustomerComplete, &payload{customer: c})
	return res, err
}

// SendCustomerWithdraw sends the withdrawal confirmation to email. The
// customer's own address may already be anonymized at this point, hence the
// separate argument.
func (d *Dispatcher) SendCustomerWithdraw(ctx context.Context, c *Customer, email string) (SendResult, error) {
	_, res, err := d.dispatch(ctx, KindCustomerWithdraw, &payload{customer: c, email: email})
	return res, err
}

// SendContact acknowledges a contact-form submission to the address the
// visitor entered.
func (d *Dispatcher) SendContact(ctx context.Context, form ContactForm) (SendResult, error) {
	_, res, err := d.dispatch(ctx, KindContact, &payload{form: form})
	return res, err
}

// SendOrder sends the order confirmation and returns the message that was
// handed to the transport.
func (d *Dispatcher) SendOrder(ctx context.Context, o *Order) (*Message, error) {
	msg, _, err := d.dispatch(ctx, KindOrder, &payload{order: o})
	return msg, err
}

// SendAdminCustomerConfirm resends the activation mail on an operator's
// request. It is sent from the reply-to address.
func (d *Dispatcher) SendAdminCustomerConfirm(ctx context.Context, c *Customer, activateURL string) (SendResult, error) {
	_, res, err := d.dispatch(ctx, KindAdminCustomerConfirm, &payload{customer: c, url: activateURL})
	return res, err
}

// SendAdminOrder sends an operator-composed order mail. Subject, header and
// footer come from mail and must not be empty.
func (d *Dispatcher) SendAdminOrder(ctx context.Context, o *Order, mail AdminOrderMail) (*Message, error) {
	msg, _, err := d.dispatch(ctx, KindAdminOrder, &payload{order: o, admin: mail})
	return msg, err
}

// SendPasswordReset sends the password reset link. The template receives
// the configured expiry in minutes as "expire".
func (d *Dispatcher) SendPasswordReset(ctx context.Context, c *Customer, resetURL string) (SendResult, error) {
	_, res, err := d.dispatch(ctx, KindPasswordReset, &payload{customer: c, url: resetURL, expire: d.settings.ResetExpire})
	return res, err
}

// SendPasswordResetComplete sends the newly issued password.
func (d *Dispatcher) SendPasswordResetComplete(ctx context.Context, c *Customer, password string) (SendResult, error) {
	_, res, err := d.dispatch(ctx, KindPasswordResetComplete, &payload{customer: c, password: password})
	return res, err
}

// SendPointNotify tells the shop that an order left a customer with a
// negative point balance. The mail goes to the shop itself.
func (d *Dispatcher) SendPointNotify(ctx context.Context, o *Order, currentPoint, changePoint int) (SendResult, error) {
	_, res, err := d.dispatch(ctx, KindPointNotify, &payload{order: o, currentPoint: currentPoint, changePoint: changePoint})
	return res, err
}

// SendShippingNotify sends one shipping notice per distinct order in the
// shipment and records a history entry for every notice the transport
// accepted.
//
// A missing template aborts the whole shipment. An order whose payload,
// address or body is invalid is skipped and the remaining orders are still
// sent; the skipped orders come back as a *ShippingError. Transport and
// history failures are logged and never returned.
func (d *Dispatcher) SendShippingNotify(ctx context.Context, s *Shipping) error {
	if s == nil {
		return &ValidationError{Field: "shipping", Message: "must not be nil"}
	}
	start := d.now()
	d.logger.InfoContext(ctx, "shipping notice started", slog.Int64("shipping_id", s.ID))

	spec := kindTable[KindShippingNotify]
	ref, err := d.resolveTemplate(ctx, KindShippingNotify, spec, nil)
	if err != nil {
		d.count(ctx, KindShippingNotify, outcomeOf(err))
		return err
	}

	orders := s.distinctOrders()
	serr := &ShippingError{ShippingID: s.ID}
	for _, o := range orders {
		p := &payload{shipping: s, order: o}
		if err := spec.validate(p); err != nil {
			d.count(ctx, KindShippingNotify, outcomeInvalidPayload)
			d.skipOrder(ctx, serr, o, err)
			continue
		}
		dl, err := d.send(ctx, KindShippingNotify, spec, ref, p)
		if err != nil {
			d.skipOrder(ctx, serr, o, err)
			continue
		}
		serr.Sent++
		if dl.transportErr != nil {
			d.logger.WarnContext(ctx, "skipping mail history for undelivered shipping notice",
				slog.Int64("shipping_id", s.ID),
				slog.Int64("order_id", o.ID),
				slog.String("message_id", dl.msg.ID),
			)
			continue
		}
		d.recordHistory(ctx, o, dl.msg)
	}

	d.logger.InfoContext(ctx, "shipping notice completed",
		slog.Int64("shipping_id", s.ID),
		slog.Int("orders", len(orders)),
		slog.Int("skipped", len(serr.Skipped)),
		slog.Duration("elapsed", d.now().Sub(start)),
	)
	if len(serr.Skipped) > 0 {
		return serr
	}
	return nil
}

func (d *Dispatcher) skipOrder(ctx context.Context, serr *ShippingError, o *Order, err error) {
	serr.Skipped = append(serr.Skipped, OrderError{OrderID: o.ID, Err: err})
	d.logger.WarnContext(ctx, "skipping shipping notice for order",
		slog.Int64("shipping_id", serr.ShippingID),
		slog.Int64("order_id", o.ID),
		slog.Any("error", err),
	)
}

// ShippingNotifyBody renders the shipping notice body for one order of the
// shipment. A nil ref is resolved from the configured template id.
func (d *Dispatcher) ShippingNotifyBody(ctx context.Context, s *Shipping, o *Order, ref *TemplateRef) (string, error) {
	if s == nil {
		return "", &ValidationError{Field: "shipping", Message: "must not be nil"}
	}
	if o == nil {
		return "", &ValidationError{Field: "order", Message: "must not be nil"}
	}
	spec := kindTable[KindShippingNotify]
	p := &payload{shipping: s, order: o}
	if ref == nil {
		var err error
		if ref, err = d.resolveTemplate(ctx, KindShippingNotify, spec, p); err != nil {
			return "", err
		}
	}
	return d.render(ctx, ref, d.renderContext(ref, spec, p))
}

// delivery is the outcome of one transport hand-off.
type delivery struct {
	msg          *Message
	result       SendResult
	transportErr error
}

// dispatch runs the full pipeline for a single-message kind.
func (d *Dispatcher) dispatch(ctx context.Context, kind Kind, p *payload) (*Message, SendResult, error) {
	spec, ok := kindTable[kind]
	if !ok {
		return nil, SendResult{}, &ValidationError{Field: "kind", Message: fmt.Sprintf("unknown mail kind %q", kind)}
	}
	if err := spec.validate(p); err != nil {
		d.count(ctx, kind, outcomeInvalidPayload)
		return nil, SendResult{}, err
	}
	ref, err := d.resolveTemplate(ctx, kind, spec, p)
	if err != nil {
		d.count(ctx, kind, outcomeOf(err))
		return nil, SendResult{}, err
	}
	dl, err := d.send(ctx, kind, spec, ref, p)
	if err != nil {
		return nil, SendResult{}, err
	}
	return dl.msg, dl.result, nil
}

// send renders, builds, publishes and transports one message.
func (d *Dispatcher) send(ctx context.Context, kind Kind, spec kindSpec, ref *TemplateRef, p *payload) (delivery, error) {
	ctx, span := d.tracer.Start(ctx, "mail.send "+string(kind),
		trace.WithAttributes(
			attribute.String("mail.kind", string(kind)),
			attribute.Int64("mail.template_id", ref.ID),
		),
	)
	defer span.End()

	start := d.now()
	d.logger.InfoContext(ctx, "mail send started", slog.String("kind", string(kind)))

	vars := d.renderContext(ref, spec, p)
	body, err := d.render(ctx, ref, vars)
	if err != nil {
		return delivery{}, d.fail(ctx, span, kind, err)
	}

	subject := ref.Subject
	if spec.subject != "" {
		subject = spec.subject
	}
	msg, err := BuildMessage(d.shop, MessageSpec{
		Kind:     kind,
		Subject:  subject,
		FromRole: spec.fromRole,
		To:       spec.to(p, d.shop),
		Body:     body,
	})
	if err != nil {
		return delivery{}, d.fail(ctx, span, kind, err)
	}
	span.SetAttributes(attribute.String("mail.message_id", msg.ID))

	if d.events != nil {
		eventPayload := maps.Clone(vars)
		eventPayload["MailTemplate"] = ref
		ev := &Event{Name: spec.event, Kind: kind, Message: msg, Payload: eventPayload}
		d.events.Publish(ctx, ev)
		if ev.Message != nil {
			msg = ev.Message
		}
		if err := checkRecipients(msg); err != nil {
			return delivery{}, d.fail(ctx, span, kind, err)
		}
	}

	dl := delivery{msg: msg}
	dl.result, dl.transportErr = d.transport.Send(ctx, msg)
	outcome := outcomeSent
	switch {
	case dl.transportErr != nil:
		outcome = outcomeTransportError
		if !dl.result.Failed() {
			dl.result = failedResult(msg, dl.transportErr)
		}
		span.RecordError(dl.transportErr)
		span.SetStatus(codes.Error, "transport failed")
		d.logger.WarnContext(ctx, "mail transport failed",
			slog.String("kind", string(kind)),
			slog.String("message_id", msg.ID),
			slog.String("transport", d.transport.Name()),
			slog.Any("error", fmt.Errorf("%w: %w", ErrTransport, dl.transportErr)),
		)
	case dl.result.Failed():
		outcome = outcomePartial
		d.logger.WarnContext(ctx, "mail partially delivered",
			slog.String("kind", string(kind)),
			slog.String("message_id", msg.ID),
			slog.Any("failures", dl.result.Failures),
		)
	}
	d.count(ctx, kind, outcome)

	d.logger.InfoContext(ctx, "mail send completed",
		slog.String("kind", string(kind)),
		slog.String("message_id", msg.ID),
		slog.Int("count", dl.result.Delivered),
		slog.Duration("elapsed", d.now().Sub(start)),
	)
	return dl, nil
}

// checkRecipients rejects a message that observers left without a valid To.
func checkRecipients(msg *Message) error {
	if len(msg.To) == 0 {
		return &AddressError{Field: "to"}
	}
	for _, a := range msg.To {
		if _, err := parseAddress("to", a); err != nil {
			return err
		}
	}
	return nil
}

// resolveTemplate finds the template a kind renders with.
func (d *Dispatcher) resolveTemplate(ctx context.Context, kind Kind, spec kindSpec, p *payload) (*TemplateRef, error) {
	switch spec.source {
	case fromFixed:
		return &TemplateRef{Name: string(kind), FileName: spec.fixed, Subject: spec.subject}, nil
	case fromCaller:
		file := p.admin.TemplateFile
		if file == "" {
			file = spec.fixed
		}
		return &TemplateRef{
			Name:     string(kind),
			FileName: file,
			Subject:  p.admin.Subject,
			Header:   p.admin.Header,
			Footer:   p.admin.Footer,
		}, nil
	}

	id, ok := d.settings.TemplateIDs[kind]
	if !ok {
		return nil, &TemplateNotFoundError{Kind: kind}
	}
	ref, err := d.templates.FindTemplate(ctx, id)
	if err != nil {
		if errors.Is(err, ErrTemplateNotFound) {
			return nil, &TemplateNotFoundError{Kind: kind, ID: id}
		}
		return nil, fmt.Errorf("loading mail template %d: %w", id, err)
	}
	if ref == nil {
		return nil, &TemplateNotFoundError{Kind: kind, ID: id}
	}
	return ref, nil
}

// renderContext builds the variables common to every kind plus the kind's own.
func (d *Dispatcher) renderContext(ref *TemplateRef, spec kindSpec, p *payload) RenderContext {
	vars := RenderContext{
		"header":   ref.Header,
		"footer":   ref.Footer,
		"BaseInfo": d.shop,
	}
	spec.vars(p, vars)
	return vars
}

func (d *Dispatcher) render(ctx context.Context, ref *TemplateRef, vars RenderContext) (string, error) {
	body, err := d.renderer.Render(ctx, ref.FileName, vars)
	if err != nil {
		var re *RenderError
		if errors.As(err, &re) {
			return "", err
		}
		return "", &RenderError{File: ref.FileName, Err: err}
	}
	return body, nil
}

func (d *Dispatcher) recordHistory(ctx context.Context, o *Order, msg *Message) {
	rec := HistoryRecord{
		OrderID: o.ID,
		Subject: msg.Subject,
		Body:    msg.Body,
		SentAt:  d.now(),
	}
	id, err := d.history.RecordMail(ctx, rec)
	if err != nil {
		d.historyWrites.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "error")))
		d.logger.WarnContext(ctx, "recording mail history failed",
			slog.Int64("order_id", o.ID),
			slog.String("message_id", msg.ID),
			slog.Any("error", fmt.Errorf("%w: %w", ErrStorage, err)),
		)
		return
	}
	d.historyWrites.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "ok")))
	d.logger.DebugContext(ctx, "mail history recorded",
		slog.Int64("order_id", o.ID),
		slog.Int64("history_id", id),
	)
}

func (d *Dispatcher) fail(ctx context.Context, span trace.Span, kind Kind, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	d.count(ctx, kind, outcomeOf(err))
	d.logger.ErrorContext(ctx, "mail send aborted",
		slog.String("kind", string(kind)),
		slog.Any("error", err),
	)
	return err
}

func (d *Dispatcher) count(ctx context.Context, kind Kind, outcome string) {
	d.sends.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", string(kind)),
		attribute.String("outcome", outcome),
	))
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, ErrTemplateNotFound):
		return outcomeTemplateNotFound
	case errors.Is(err, ErrRender):
		return outcomeRenderError
	case errors.Is(err, ErrInvalidAddress):
		return outcomeInvalidAddress
	case errors.Is(err, ErrInvalidPayload):
		return outcomeInvalidPayload
	}
	return outcomeError
}
