package notification

import (
	"fmt"
	"strings"
)

// Kind identifies one of the fixed notification types.
type Kind string

// Notification kinds.
const (
	KindCustomerConfirm       Kind = "customer_confirm"
	KindCustomerComplete      Kind = "customer_complete"
	KindCustomerWithdraw      Kind = "customer_withdraw"
	KindContact               Kind = "contact"
	KindOrder                 Kind = "order"
	KindAdminCustomerConfirm  Kind = "admin_customer_confirm"
	KindAdminOrder            Kind = "admin_order"
	KindPasswordReset         Kind = "password_reset"
	KindPasswordResetComplete Kind = "password_reset_complete"
	KindPointNotify           Kind = "point_notify"
	KindShippingNotify        Kind = "shipping_notify"
)

// Event names published before each send.
const (
	EventCustomerConfirm       = "mail.customer.confirm"
	EventCustomerComplete      = "mail.customer.complete"
	EventCustomerWithdraw      = "mail.customer.withdraw"
	EventContact               = "mail.contact"
	EventOrder                 = "mail.order"
	EventAdminCustomerConfirm  = "mail.admin.customer.confirm"
	EventAdminOrder            = "mail.admin.order"
	EventPasswordReset         = "mail.password.reset"
	EventPasswordResetComplete = "mail.password.reset.complete"
	EventPointNotify           = "mail.point.notify"
	EventShippingNotify        = "mail.shipping.notify"
)

const (
	pointNotifySubject = "ポイント通知"
	pointNotifyFile    = "point_notify.txt"
	adminOrderFile     = "admin_order.txt"
)

// Kinds returns every kind in declaration order.
func Kinds() []Kind {
	return []Kind{
		KindCustomerConfirm,
		KindCustomerComplete,
		KindCustomerWithdraw,
		KindContact,
		KindOrder,
		KindAdminCustomerConfirm,
		KindAdminOrder,
		KindPasswordReset,
		KindPasswordResetComplete,
		KindPointNotify,
		KindShippingNotify,
	}
}

// ParseKind converts s to a Kind, accepting dashes in place of underscores.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	if _, ok := kindTable[k]; !ok {
		return "", &ValidationError{Field: "kind", Message: fmt.Sprintf("unknown mail kind %q", s)}
	}
	return k, nil
}

// Event returns the name of the pre-send event for k.
func (k Kind) Event() string { return kindTable[k].event }

// templateSource says where a kind's template comes from.
type templateSource int

const (
	fromStore  templateSource = iota // Settings.TemplateIDs lookup
	fromFixed                        // fixed body file, no store lookup
	fromCaller                       // operator-supplied subject/header/footer
)

// payload is the union of every kind's input. Only the fields the kind's
// descriptor reads are set.
type payload struct {
	customer     *Customer
	order        *Order
	shipping     *Shipping
	form         ContactForm
	admin        AdminOrderMail
	url          string
	email        string
	password     string
	expire       int
	currentPoint int
	changePoint  int
}

// kindSpec drives dispatch for one kind.
type kindSpec struct {
	event    string
	source   templateSource
	fixed    string
	fromRole Role
	// subject, when set, replaces the template subject.
	subject  string
	validate func(p *payload) error
	to       func(p *payload, shop ShopProfile) []string
	vars     func(p *payload, vars RenderContext)
}

var kindTable = map[Kind]kindSpec{
	KindCustomerConfirm: {
		event:    EventCustomerConfirm,
		fromRole: RolePrimary,
		validate: requireCustomer,
		to:       customerEmail,
		vars: func(p *payload, v RenderContext) {
			v["Customer"] = p.customer
			v["activateUrl"] = p.url
		},
	},
	KindCustomerComplete: {
		event:    EventCustomerComplete,
		fromRole: RolePrimary,
		validate: requireCustomer,
		to:       customerEmail,
		vars: func(p *payload, v RenderContext) {
			v["Customer"] = p.customer
		},
	},
	KindCustomerWithdraw: {
		event:    EventCustomerWithdraw,
		fromRole: RolePrimary,
		validate: func(p *payload) error {
			if p.customer == nil {
				return &ValidationError{Field: "customer", Message: "must not be nil"}
			}
			return requireString("email", p.email)
		},
		to: func(p *payload, _ ShopProfile) []string { return []string{p.email} },
		vars: func(p *payload, v RenderContext) {
			v["Customer"] = p.customer
			v["email"] = p.email
		},
	},
	KindContact: {
		event:    EventContact,
		fromRole: RoleSecondary,
		validate: func(p *payload) error {
			if p.form == nil {
				return &ValidationError{Field: "form", Message: "must not be nil"}
			}
			return requireString("email", p.form.Email())
		},
		to: func(p *payload, _ ShopProfile) []string { return []string{p.form.Email()} },
		vars: func(p *payload, v RenderContext) {
			v["data"] = map[string]string(p.form)
		},
	},
	KindOrder: {
		event:    EventOrder,
		fromRole: RolePrimary,
		validate: requireOrder,
		to:       orderEmail,
		vars: func(p *payload, v RenderContext) {
			v["Order"] = p.order
		},
	},
	KindAdminCustomerConfirm: {
		event:    EventAdminCustomerConfirm,
		fromRole: RoleReplyTo,
		validate: requireCustomer,
		to:       customerEmail,
		vars: func(p *payload, v RenderContext) {
			v["Customer"] = p.customer
			v["activateUrl"] = p.url
		},
	},
	KindAdminOrder: {
		event:    EventAdminOrder,
		source:   fromCaller,
		fixed:    adminOrderFile,
		fromRole: RolePrimary,
		validate: func(p *payload) error {
			if err := requireOrder(p); err != nil {
				return err
			}
			if err := requireString("mail_subject", p.admin.Subject); err != nil {
				return err
			}
			if err := requireString("mail_header", p.admin.Header); err != nil {
				return err
			}
			return requireString("mail_footer", p.admin.Footer)
		},
		to: orderEmail,
		vars: func(p *payload, v RenderContext) {
			v["Order"] = p.order
		},
	},
	KindPasswordReset: {
		event:    EventPasswordReset,
		fromRole: RolePrimary,
		validate: requireCustomer,
		to:       customerEmail,
		vars: func(p *payload, v RenderContext) {
			v["Customer"] = p.customer
			v["resetUrl"] = p.url
			v["expire"] = p.expire
		},
	},
	KindPasswordResetComplete: {
		event:    EventPasswordResetComplete,
		fromRole: RolePrimary,
		validate: requireCustomer,
		to:       customerEmail,
		vars: func(p *payload, v RenderContext) {
			v["Customer"] = p.customer
			v["password"] = p.password
		},
	},
	KindPointNotify: {
		event:    EventPointNotify,
		source:   fromFixed,
		fixed:    pointNotifyFile,
		fromRole: RolePrimary,
		subject:  pointNotifySubject,
		validate: func(p *payload) error {
			if p.order == nil {
				return &ValidationError{Field: "order", Message: "must not be nil"}
			}
			return nil
		},
		to: func(_ *payload, shop ShopProfile) []string { return []string{shop.Email01} },
		vars: func(p *payload, v RenderContext) {
			v["Order"] = p.order
			v["currentPoint"] = p.currentPoint
			v["changePoint"] = p.changePoint
		},
	},
	KindShippingNotify: {
		event:    EventShippingNotify,
		fromRole: RolePrimary,
		validate: requireOrder,
		to:       orderEmail,
		vars: func(p *payload, v RenderContext) {
			v["Shipping"] = p.shipping
			v["Order"] = p.order
			v["ShippingItems"] = p.shipping.ItemsFor(p.order.ID)
		},
	},
}

func requireString(field, v string) error {
	if strings.TrimSpace(v) == "" {
		return &ValidationError{Field: field, Message: "must not be empty"}
	}
	return nil
}

func requireCustomer(p *payload) error {
	if p.customer == nil {
		return &ValidationError{Field: "customer", Message: "must not be nil"}
	}
	return requireString("customer.email", p.customer.Email)
}

func requireOrder(p *payload) error {
	if p.order == nil {
		return &ValidationError{Field: "order", Message: "must not be nil"}
	}
	return requireString("order.email", p.order.Email)
}

func customerEmail(p *payload, _ ShopProfile) []string { return []string{p.customer.Email} }

func orderEmail(p *payload, _ ShopProfile) []string { return []string{p.order.Email} }
