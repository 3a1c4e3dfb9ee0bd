package notification

import (
	"net/mail"
	"strings"

	"github.com/google/uuid"
)

// MessageSpec is the per-send input to BuildMessage.
type MessageSpec struct {
	Kind Kind
	// Subject is the unprefixed subject line.
	Subject  string
	FromRole Role
	To       []string
	Body     string
}

// BuildMessage assembles an addressed message from the shop profile.
//
// The subject is prefixed with "[ShopName] ". Bcc is always the primary
// address, Reply-To the reply-to address and Return-Path the bounce address,
// whatever the kind.
func BuildMessage(shop ShopProfile, spec MessageSpec) (*Message, error) {
	from, err := parseAddress("from", shop.Address(spec.FromRole))
	if err != nil {
		return nil, err
	}
	if len(spec.To) == 0 {
		return nil, &AddressError{Field: "to"}
	}
	to := make([]string, 0, len(spec.To))
	for _, raw := range spec.To {
		addr, err := parseAddress("to", raw)
		if err != nil {
			return nil, err
		}
		to = append(to, addr)
	}
	bcc, err := parseAddress("bcc", shop.Email01)
	if err != nil {
		return nil, err
	}
	replyTo, err := parseAddress("reply_to", shop.Email03)
	if err != nil {
		return nil, err
	}
	returnPath, err := parseAddress("return_path", shop.Email04)
	if err != nil {
		return nil, err
	}

	return &Message{
		ID:         uuid.NewString(),
		Kind:       spec.Kind,
		Subject:    subjectLine(shop.Name, spec.Subject),
		From:       Address{Email: from, Name: shop.Name},
		To:         to,
		Bcc:        []string{bcc},
		ReplyTo:    replyTo,
		ReturnPath: returnPath,
		Body:       spec.Body,
	}, nil
}

func subjectLine(shopName, subject string) string {
	return "[" + shopName + "] " + subject
}

// parseAddress validates a bare addr-spec and returns it normalized.
// Display-name forms ("Name <a@b>") are rejected: names come from the shop
// profile, never from the address fields.
func parseAddress(field, raw string) (string, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return "", &AddressError{Field: field, Value: raw}
	}
	addr, err := mail.ParseAddress(v)
	if err != nil {
		return "", &AddressError{Field: field, Value: raw, Err: err}
	}
	if addr.Name != "" || addr.Address != v {
		return "", &AddressError{Field: field, Value: raw}
	}
	return addr.Address, nil
}
