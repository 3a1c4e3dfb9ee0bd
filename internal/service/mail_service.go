// Package service implements the business logic layer between the HTTP and
// CLI surfaces and the notification/storage packages. All interfaces are
// designed for easy mocking in tests.
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/knsuzuki/shopmail/internal/notification"
	"github.com/knsuzuki/shopmail/internal/storage"
)

// MailService defines the business logic interface for sending storefront mails
// and inspecting what was sent.
type MailService interface {
	// Send decodes the request body for kind and sends the mail.
	Send(ctx context.Context, kind notification.Kind, body json.RawMessage) (*SendResponse, error)

	// ListHistory returns shipping notice history, newest first. orderID 0
	// lists all orders.
	ListHistory(ctx context.Context, orderID int64, limit int) ([]notification.HistoryRecord, error)

	// ListTemplates returns every stored mail template.
	ListTemplates(ctx context.Context) ([]*notification.TemplateRef, error)

	// Kinds describes every kind the service can send.
	Kinds() []KindInfo
}

// KindInfo describes a sendable mail kind.
type KindInfo struct {
	Kind  notification.Kind `json:"kind"`
	Event string            `json:"event"`
}

// SendResponse reports what happened to one Send call. Which fields are set
// depends on the kind: order mails report the message, shipping notices the
// number of orders, every other kind the transport result.
type SendResponse struct {
	Kind      notification.Kind        `json:"kind"`
	MessageID string                   `json:"message_id,omitempty"`
	Subject   string                   `json:"subject,omitempty"`
	To        []string                 `json:"to,omitempty"`
	Result    *notification.SendResult `json:"result,omitempty"`
	Orders    int                      `json:"orders,omitempty"`
	Skipped   []SkippedOrder           `json:"skipped,omitempty"`
}

// SkippedOrder is an order of a shipment that got no notice.
type SkippedOrder struct {
	OrderID int64  `json:"order_id"`
	Error   string `json:"error"`
}

// Request bodies, one per kind.
type (
	customerRequest struct {
		Customer    *notification.Customer `json:"customer"`
		ActivateURL string                 `json:"activate_url"`
		ResetURL    string                 `json:"reset_url"`
		Email       string                 `json:"email"`
		Password    string                 `json:"password"`
	}
	contactRequest struct {
		Form notification.ContactForm `json:"form"`
	}
	orderRequest struct {
		Order        *notification.Order         `json:"order"`
		Mail         notification.AdminOrderMail `json:"mail"`
		CurrentPoint int                         `json:"current_point"`
		ChangePoint  int                         `json:"change_point"`
	}
	shippingRequest struct {
		Shipping *notification.Shipping `json:"shipping"`
	}
)

// mailService is the default implementation of MailService.
type mailService struct {
	dispatcher *notification.Dispatcher
	templates  storage.TemplateStore
	history    storage.MailHistoryStore
	logger     *slog.Logger
}

// NewMailService returns a MailService that sends through dispatcher.
func NewMailService(
	dispatcher *notification.Dispatcher,
	templates storage.TemplateStore,
	history storage.MailHistoryStore,
	logger *slog.Logger,
) MailService {
	return &mailService{
		dispatcher: dispatcher,
		templates:  templates,
		history:    history,
		logger:     logger,
	}
}

func (s *mailService) Send(ctx context.Context, kind notification.Kind, body json.RawMessage) (*SendResponse, error) {
	s.logger.DebugContext(ctx, "mail request",
		slog.String("kind", string(kind)),
		slog.Int("body_bytes", len(body)),
	)
	resp := &SendResponse{Kind: kind}
	var (
		res notification.SendResult
		msg *notification.Message
		err error
	)

	switch kind {
	case notification.KindCustomerConfirm, notification.KindAdminCustomerConfirm,
		notification.KindCustomerComplete, notification.KindCustomerWithdraw,
		notification.KindPasswordReset, notification.KindPasswordResetComplete:
		var req customerRequest
		if err := decode(body, &req); err != nil {
			return nil, err
		}
		res, err = s.sendCustomer(ctx, kind, req)

	case notification.KindContact:
		var req contactRequest
		if err := decode(body, &req); err != nil {
			return nil, err
		}
		res, err = s.dispatcher.SendContact(ctx, req.Form)

	case notification.KindOrder:
		var req orderRequest
		if err := decode(body, &req); err != nil {
			return nil, err
		}
		msg, err = s.dispatcher.SendOrder(ctx, req.Order)

	case notification.KindAdminOrder:
		var req orderRequest
		if err := decode(body, &req); err != nil {
			return nil, err
		}
		msg, err = s.dispatcher.SendAdminOrder(ctx, req.Order, req.Mail)

	case notification.KindPointNotify:
		var req orderRequest
		if err := decode(body, &req); err != nil {
			return nil, err
		}
		res, err = s.dispatcher.SendPointNotify(ctx, req.Order, req.CurrentPoint, req.ChangePoint)

	case notification.KindShippingNotify:
		var req shippingRequest
		if err := decode(body, &req); err != nil {
			return nil, err
		}
		err = s.dispatcher.SendShippingNotify(ctx, req.Shipping)
		var serr *notification.ShippingError
		switch {
		case errors.As(err, &serr) && serr.Sent > 0:
			resp.Orders = serr.Sent
			for _, o := range serr.Skipped {
				resp.Skipped = append(resp.Skipped, SkippedOrder{OrderID: o.OrderID, Error: o.Err.Error()})
			}
			return resp, nil
		case err != nil:
			return nil, translate(err)
		}
		resp.Orders = countOrders(req.Shipping)
		return resp, nil

	default:
		return nil, &NotFoundError{Resource: "mail kind", ID: string(kind)}
	}

	if err != nil {
		return nil, translate(err)
	}
	if msg != nil {
		resp.MessageID = msg.ID
		resp.Subject = msg.Subject
		resp.To = msg.To
		return resp, nil
	}
	resp.Result = &res
	return resp, nil
}

func (s *mailService) sendCustomer(ctx context.Context, kind notification.Kind, req customerRequest) (notification.SendResult, error) {
	switch kind {
	case notification.KindCustomerConfirm:
		return s.dispatcher.SendCustomerConfirm(ctx, req.Customer, req.ActivateURL)
	case notification.KindAdminCustomerConfirm:
		return s.dispatcher.SendAdminCustomerConfirm(ctx, req.Customer, req.ActivateURL)
	case notification.KindCustomerComplete:
		return s.dispatcher.SendCustomerComplete(ctx, req.Customer)
	case notification.KindCustomerWithdraw:
		return s.dispatcher.SendCustomerWithdraw(ctx, req.Customer, req.Email)
	case notification.KindPasswordReset:
		return s.dispatcher.SendPasswordReset(ctx, req.Customer, req.ResetURL)
	default:
		return s.dispatcher.SendPasswordResetComplete(ctx, req.Customer, req.Password)
	}
}

func (s *mailService) ListHistory(ctx context.Context, orderID int64, limit int) ([]notification.HistoryRecord, error) {
	if orderID < 0 {
		return nil, &ValidationError{Field: "order_id", Message: "must not be negative"}
	}
	list, err := s.history.ListMailHistory(ctx, storage.MailHistoryFilter{OrderID: orderID, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("listing mail history: %w", err)
	}
	return list, nil
}

func (s *mailService) ListTemplates(ctx context.Context) ([]*notification.TemplateRef, error) {
	list, err := s.templates.ListTemplates(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing mail templates: %w", err)
	}
	return list, nil
}

func (s *mailService) Kinds() []KindInfo {
	kinds := notification.Kinds()
	out := make([]KindInfo, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, KindInfo{Kind: k, Event: k.Event()})
	}
	return out
}

// decode strictly unmarshals a request body.
func decode(body json.RawMessage, v any) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return &ValidationError{Message: "request body is required"}
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &ValidationError{Message: fmt.Sprintf("invalid request body: %v", err)}
	}
	return nil
}

// translate maps notification errors onto the service error types the
// transports know how to present.
func translate(err error) error {
	var (
		nf *notification.TemplateNotFoundError
		ve *notification.ValidationError
		ae *notification.AddressError
	)
	switch {
	case errors.As(err, &nf):
		return &NotFoundError{Resource: "mail template", ID: strconv.FormatInt(nf.ID, 10)}
	case errors.As(err, &ve):
		return &ValidationError{Field: ve.Field, Message: ve.Message}
	case errors.As(err, &ae):
		return &ValidationError{Field: ae.Field, Message: ae.Error()}
	}
	return err
}

func countOrders(s *notification.Shipping) int {
	seen := make(map[int64]struct{})
	for _, o := range s.Orders {
		if o != nil {
			seen[o.ID] = struct{}{}
		}
	}
	return len(seen)
}
