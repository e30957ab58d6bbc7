// Package email delivers one-off messages over exactly one of two
// transports: direct SMTP submission, or a transactional email HTTP API.
// Delivery is single-shot: no queue, no retry, and a failed attempt never
// falls through to the other transport.
package email

import (
	"errors"
	"fmt"
)

// Transport names
const (
	TransportSMTP = "smtp"
	TransportAPI  = "api"
)

// ErrNotConfigured is returned when no transport precondition holds.
// This is an operator problem, not a user-facing one.
var ErrNotConfigured = errors.New("email configuration is required: provide SMTP credentials or set RESEND_API_KEY")

// TransportError wraps a delivery failure from the selected transport
type TransportError struct {
	Transport string
	Err       error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s transport failed: %v", e.Transport, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Message is a single outbound email. It exists only for the duration of
// one dispatch call.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
	From    string // optional; transports fill in a default
}

// SMTPCredentials identify a specific sender account. They are supplied
// per call and never stored process-wide.
type SMTPCredentials struct {
	Server      string
	Port        int
	Email       string
	AppPassword string
}

// Complete reports whether the credentials are usable for SMTP delivery
func (c *SMTPCredentials) Complete() bool {
	return c != nil && c.Email != "" && c.AppPassword != ""
}

// Receipt describes a successful delivery
type Receipt struct {
	Transport  string `json:"transport"`
	ProviderID string `json:"provider_id,omitempty"`
}
