package notification

import (
	"fmt"
	"log/slog"
)

// SMTPConfig holds connection parameters for the SMTP transport.
type SMTPConfig struct {
	Host       string `json:"host"`
	Port       int    `json:"port"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	Encryption string `json:"encryption"` // "none", "starttls", "ssl_tls"
}

// SESConfig holds configuration for the AWS SES transport.
type SESConfig struct {
	Region          string `json:"region"`
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
	// ConfigurationSet is optional.
	ConfigurationSet string `json:"configuration_set"`
}

// TransportConfig selects and configures a Transport.
type TransportConfig struct {
	Provider string // "smtp", "ses" or "log"
	SMTP     SMTPConfig
	SES      SESConfig
}

// NewTransport builds the transport named by cfg.Provider.
func NewTransport(cfg TransportConfig, logger *slog.Logger) (Transport, error) {
	switch cfg.Provider {
	case "smtp":
		if cfg.SMTP.Host == "" {
			return nil, fmt.Errorf("smtp transport: host is required")
		}
		return NewSMTPTransport(cfg.SMTP), nil
	case "ses":
		if cfg.SES.Region == "" {
			return nil, fmt.Errorf("ses transport: region is required")
		}
		return NewSESTransport(cfg.SES), nil
	case "log", "":
		return NewLogTransport(logger), nil
	}
	return nil, fmt.Errorf("unknown mail transport %q (must be smtp, ses or log)", cfg.Provider)
}
