package notification

import (
	"fmt"
	"strings"
	"time"
)

// Role tags one of the four shop addresses.
type Role int

// Shop address roles.
const (
	RolePrimary    Role = iota + 1 // email01: shop contact, Bcc on every send
	RoleSecondary                  // email02: support / inquiries
	RoleReplyTo                    // email03
	RoleReturnPath                 // email04: bounces
)

func (r Role) String() string {
	switch r {
	case RolePrimary:
		return "email01"
	case RoleSecondary:
		return "email02"
	case RoleReplyTo:
		return "email03"
	case RoleReturnPath:
		return "email04"
	}
	return fmt.Sprintf("role(%d)", int(r))
}

// ShopProfile holds the shop-wide addressing data. The dispatcher keeps its
// own copy and never mutates it.
type ShopProfile struct {
	Name    string `json:"shop_name"`
	Email01 string `json:"email01"`
	Email02 string `json:"email02"`
	Email03 string `json:"email03"`
	Email04 string `json:"email04"`
}

// Address returns the address configured for role.
func (p ShopProfile) Address(role Role) string {
	switch role {
	case RolePrimary:
		return p.Email01
	case RoleSecondary:
		return p.Email02
	case RoleReplyTo:
		return p.Email03
	case RoleReturnPath:
		return p.Email04
	}
	return ""
}

// Validate reports the first role whose address is empty or malformed.
func (p ShopProfile) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return &ValidationError{Field: "shop_name", Message: "must not be empty"}
	}
	for _, role := range []Role{RolePrimary, RoleSecondary, RoleReplyTo, RoleReturnPath} {
		if _, err := parseAddress(role.String(), p.Address(role)); err != nil {
			return err
		}
	}
	return nil
}

// Settings is the per-deployment kind configuration: which template id backs
// each kind, plus the password reset expiry exposed to templates.
type Settings struct {
	TemplateIDs map[Kind]int64
	// ResetExpire is the password reset link lifetime in minutes.
	ResetExpire int
}

// TemplateRef is a resolved template resource.
type TemplateRef struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	FileName string `json:"file_name"`
	Subject  string `json:"mail_subject"`
	Header   string `json:"mail_header"`
	Footer   string `json:"mail_footer"`
}

// RenderContext holds the variables passed to the renderer for one send.
type RenderContext map[string]any

// Customer is the slice of a storefront member the mails need.
type Customer struct {
	ID     int64  `json:"id"`
	Name01 string `json:"name01"`
	Name02 string `json:"name02"`
	Email  string `json:"email"`
}

// FullName joins family and given name the way the storefront prints it.
func (c *Customer) FullName() string {
	return strings.TrimSpace(c.Name01 + " " + c.Name02)
}

// OrderItem is one line of an order.
type OrderItem struct {
	ID          int64  `json:"id"`
	OrderID     int64  `json:"order_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	Price       int64  `json:"price"`
}

// Order is a placed order.
type Order struct {
	ID           int64       `json:"id"`
	OrderNo      string      `json:"order_no"`
	Name01       string      `json:"name01"`
	Name02       string      `json:"name02"`
	Email        string      `json:"email"`
	PaymentTotal int64       `json:"payment_total"`
	Items        []OrderItem `json:"items"`
}

// FullName joins family and given name.
func (o *Order) FullName() string {
	return strings.TrimSpace(o.Name01 + " " + o.Name02)
}

// Shipping is a fulfillment unit. One shipment may carry items of several
// orders; Items holds all of them and OrderItem.OrderID tells them apart.
type Shipping struct {
	ID             int64       `json:"id"`
	TrackingNumber string      `json:"tracking_number"`
	DeliveryName   string      `json:"delivery_name"`
	ShippingDate   time.Time   `json:"shipping_date"`
	Orders         []*Order    `json:"orders"`
	Items          []OrderItem `json:"items"`
}

// ItemsFor returns the shipment items that belong to orderID, in shipment order.
func (s *Shipping) ItemsFor(orderID int64) []OrderItem {
	var items []OrderItem
	for _, it := range s.Items {
		if it.OrderID == orderID {
			items = append(items, it)
		}
	}
	return items
}

// distinctOrders returns the shipment's orders with duplicates (by ID) and
// nil entries removed, keeping first-seen order.
func (s *Shipping) distinctOrders() []*Order {
	seen := make(map[int64]struct{}, len(s.Orders))
	out := make([]*Order, 0, len(s.Orders))
	for _, o := range s.Orders {
		if o == nil {
			continue
		}
		if _, ok := seen[o.ID]; ok {
			continue
		}
		seen[o.ID] = struct{}{}
		out = append(out, o)
	}
	return out
}

// ContactForm is the raw contact-form submission.
type ContactForm map[string]string

// Email returns the submitter's address.
func (f ContactForm) Email() string { return strings.TrimSpace(f["email"]) }

// AdminOrderMail carries the subject, header and footer an operator typed
// into the order mail screen.
type AdminOrderMail struct {
	Subject string `json:"mail_subject"`
	Header  string `json:"mail_header"`
	Footer  string `json:"mail_footer"`
	// TemplateFile overrides the body template; empty means admin_order.txt.
	TemplateFile string `json:"template_file,omitempty"`
}

// Address is a mailbox with an optional display name.
type Address struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

func (a Address) String() string {
	if a.Name == "" {
		return a.Email
	}
	return fmt.Sprintf("%s <%s>", a.Name, a.Email)
}

// Message is an addressed, transport-ready mail.
type Message struct {
	ID         string   `json:"id"`
	Kind       Kind     `json:"kind"`
	Subject    string   `json:"subject"`
	From       Address  `json:"from"`
	To         []string `json:"to"`
	Bcc        []string `json:"bcc"`
	ReplyTo    string   `json:"reply_to"`
	ReturnPath string   `json:"return_path"`
	Body       string   `json:"body"`
}

// Recipients returns To and Bcc in that order.
func (m *Message) Recipients() []string {
	out := make([]string, 0, len(m.To)+len(m.Bcc))
	out = append(out, m.To...)
	return append(out, m.Bcc...)
}

// HistoryRecord is the persisted trace of a shipping notice for one order.
type HistoryRecord struct {
	ID      int64     `json:"id"`
	OrderID int64     `json:"order_id"`
	Subject string    `json:"mail_subject"`
	Body    string    `json:"mail_body"`
	SentAt  time.Time `json:"send_date"`
}

// RecipientFailure is one address the transport could not deliver to.
type RecipientFailure struct {
	Address string `json:"address"`
	Reason  string `json:"reason"`
}

// SendResult is what the transport reported for one message.
type SendResult struct {
	Delivered int                `json:"delivered"`
	Failures  []RecipientFailure `json:"failures,omitempty"`
}

// Failed reports whether any recipient failed.
func (r SendResult) Failed() bool { return len(r.Failures) > 0 }

// failedResult reports every recipient of msg as failed with err.
func failedResult(msg *Message, err error) SendResult {
	res := SendResult{}
	for _, rcpt := range msg.Recipients() {
		res.Failures = append(res.Failures, RecipientFailure{Address: rcpt, Reason: err.Error()})
	}
	return res
}
