package notification

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors. The typed errors below unwrap to these so callers can use
// errors.Is without caring about the details.
var (
	ErrTemplateNotFound = errors.New("mail template not found")
	ErrRender           = errors.New("mail render failed")
	ErrInvalidAddress   = errors.New("invalid mail address")
	ErrTransport        = errors.New("mail transport failed")
	ErrStorage          = errors.New("mail history storage failed")
	ErrInvalidPayload   = errors.New("invalid mail payload")
)

// TemplateNotFoundError is returned when no template exists for the id a
// kind is configured with.
type TemplateNotFoundError struct {
	Kind Kind
	ID   int64
}

func (e *TemplateNotFoundError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("mail template %d not found", e.ID)
	}
	return fmt.Sprintf("mail template %d for %s not found", e.ID, e.Kind)
}

func (e *TemplateNotFoundError) Unwrap() error { return ErrTemplateNotFound }

// RenderError wraps a template parse or execution failure.
type RenderError struct {
	File string
	Err  error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("rendering %q: %v", e.File, e.Err)
}

// Is lets errors.Is(err, ErrRender) match while Unwrap still exposes the
// underlying template error.
func (e *RenderError) Is(target error) bool { return target == ErrRender }

func (e *RenderError) Unwrap() error { return e.Err }

// AddressError is returned when a message field holds an empty or malformed
// address.
type AddressError struct {
	Field string
	Value string
	Err   error
}

func (e *AddressError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("invalid address for %s: %q", e.Field, e.Value)
	}
	return fmt.Sprintf("invalid address for %s: %q: %v", e.Field, e.Value, e.Err)
}

func (e *AddressError) Unwrap() error { return ErrInvalidAddress }

// ValidationError is returned when a required payload field is missing.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error for %q: %s", e.Field, e.Message)
	}
	return e.Message
}

func (e *ValidationError) Unwrap() error { return ErrInvalidPayload }

// OrderError is the reason one order of a shipment got no notice.
type OrderError struct {
	OrderID int64
	Err     error
}

func (e OrderError) Error() string {
	return fmt.Sprintf("order %d: %v", e.OrderID, e.Err)
}

// ShippingError reports the orders a shipping notice skipped. Orders not
// listed were sent. errors.Is and errors.As see every skipped order's error.
type ShippingError struct {
	ShippingID int64
	Sent       int
	Skipped    []OrderError
}

func (e *ShippingError) Error() string {
	parts := make([]string, len(e.Skipped))
	for i, s := range e.Skipped {
		parts[i] = s.Error()
	}
	return fmt.Sprintf("shipping %d: %d of %d notices skipped: %s",
		e.ShippingID, len(e.Skipped), e.Sent+len(e.Skipped), strings.Join(parts, "; "))
}

func (e *ShippingError) Unwrap() []error {
	errs := make([]error, len(e.Skipped))
	for i, s := range e.Skipped {
		errs[i] = s.Err
	}
	return errs
}
