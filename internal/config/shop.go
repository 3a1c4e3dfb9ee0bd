package config

import (
	"bytes"
	"errors"
	"fmt"
	"net/mail"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/knsuzuki/shopmail/internal/notification"
)

// DefaultResetExpire is the password reset link lifetime in minutes.
const DefaultResetExpire = 10

// Template names used in the shop file, mapped to the kinds that render with
// them. entry_confirm serves both the customer and the operator resend.
var templateKinds = map[string][]notification.Kind{
	"order":             {notification.KindOrder},
	"entry_confirm":     {notification.KindCustomerConfirm, notification.KindAdminCustomerConfirm},
	"entry_complete":    {notification.KindCustomerComplete},
	"customer_withdraw": {notification.KindCustomerWithdraw},
	"contact":           {notification.KindContact},
	"forgot":            {notification.KindPasswordReset},
	"reset_complete":    {notification.KindPasswordResetComplete},
	"shipping_notify":   {notification.KindShippingNotify},
}

// DefaultTemplateIDs returns the stock template id for every template name.
func DefaultTemplateIDs() map[string]int64 {
	return map[string]int64{
		"order":             1,
		"entry_confirm":     2,
		"entry_complete":    3,
		"customer_withdraw": 4,
		"contact":           5,
		"forgot":            6,
		"reset_complete":    7,
		"shipping_notify":   8,
	}
}

// ShopConfig is the shop profile file.
//
//	shop_name: Acme
//	email01: shop@acme.test
//	email02: support@acme.test
//	email03: noreply@acme.test
//	email04: bounce@acme.test
//	templates:
//	  order: 1
//	customer_reset_expire: 10
type ShopConfig struct {
	Name    string `yaml:"shop_name"`
	Email01 string `yaml:"email01"`
	Email02 string `yaml:"email02"`
	Email03 string `yaml:"email03"`
	Email04 string `yaml:"email04"`

	// Templates overrides template ids by name; missing names keep their defaults.
	Templates   map[string]int64 `yaml:"templates"`
	ResetExpire int              `yaml:"customer_reset_expire"`
}

// LoadShopConfig reads, interpolates, defaults and validates the shop file at path.
func LoadShopConfig(path string) (*ShopConfig, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is operator-configured
	if err != nil {
		return nil, fmt.Errorf("reading shop file %q: %w", path, err)
	}
	cfg, err := ParseShopConfig(data)
	if err != nil {
		return nil, fmt.Errorf("shop file %q: %w", path, err)
	}
	return cfg, nil
}

// ParseShopConfig decodes a shop file. Unknown keys are rejected.
func ParseShopConfig(data []byte) (*ShopConfig, error) {
	var cfg ShopConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing: %w", err)
	}

	for _, f := range []*string{&cfg.Name, &cfg.Email01, &cfg.Email02, &cfg.Email03, &cfg.Email04} {
		v, err := interpolateEnv(*f)
		if err != nil {
			return nil, err
		}
		*f = strings.TrimSpace(v)
	}

	ids := DefaultTemplateIDs()
	for name, id := range cfg.Templates {
		ids[name] = id
	}
	cfg.Templates = ids
	if cfg.ResetExpire == 0 {
		cfg.ResetExpire = DefaultResetExpire
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every problem in the file at once.
func (c *ShopConfig) Validate() error {
	var errs []error
	if c.Name == "" {
		errs = append(errs, errors.New("shop_name is required"))
	}
	for _, f := range []struct{ key, value string }{
		{"email01", c.Email01},
		{"email02", c.Email02},
		{"email03", c.Email03},
		{"email04", c.Email04},
	} {
		if f.value == "" {
			errs = append(errs, fmt.Errorf("%s is required", f.key))
			continue
		}
		if addr, err := mail.ParseAddress(f.value); err != nil || addr.Address != f.value {
			errs = append(errs, fmt.Errorf("%s: %q is not a valid address", f.key, f.value))
		}
	}

	names := make([]string, 0, len(c.Templates))
	for name := range c.Templates {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, ok := templateKinds[name]; !ok {
			errs = append(errs, fmt.Errorf("templates: unknown template %q", name))
			continue
		}
		if c.Templates[name] <= 0 {
			errs = append(errs, fmt.Errorf("templates.%s: id must be positive", name))
		}
	}
	if c.ResetExpire < 0 {
		errs = append(errs, errors.New("customer_reset_expire must not be negative"))
	}
	return errors.Join(errs...)
}

// Profile returns the addressing data the dispatcher needs.
func (c *ShopConfig) Profile() notification.ShopProfile {
	return notification.ShopProfile{
		Name:    c.Name,
		Email01: c.Email01,
		Email02: c.Email02,
		Email03: c.Email03,
		Email04: c.Email04,
	}
}

// Settings returns the template id per kind and the reset expiry.
func (c *ShopConfig) Settings() notification.Settings {
	ids := make(map[notification.Kind]int64)
	for name, id := range c.Templates {
		for _, kind := range templateKinds[name] {
			ids[kind] = id
		}
	}
	return notification.Settings{TemplateIDs: ids, ResetExpire: c.ResetExpire}
}
