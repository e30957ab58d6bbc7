package email

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/campusdesk-dev/campusdesk/internal/config"
)

// PriorityAPI flips the default transport order so the transactional API
// wins when both transports are usable. The default (anything else) tries
// SMTP first, so mail originates from the caller's own address.
const (
	PrioritySMTP = "smtp"
	PriorityAPI  = "api"
)

type smtpSender interface {
	Send(msg Message, creds SMTPCredentials) error
}

type apiSender interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// Dispatcher selects one transport per message and performs delivery.
// Selection is deterministic: preconditions are evaluated in the
// configured priority order before any network attempt, and exactly one
// transport is ever attempted per call.
type Dispatcher struct {
	cfg    config.EmailConfig
	smtp   smtpSender
	api    apiSender
	logger zerolog.Logger
}

// NewDispatcher creates a dispatcher from the email configuration.
// insecureTLS disables SMTP certificate validation (development only).
func NewDispatcher(cfg config.EmailConfig, insecureTLS bool, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		cfg:    cfg,
		smtp:   &SMTPTransport{AppName: cfg.AppName, InsecureSkipVerify: insecureTLS},
		api:    NewAPITransport(cfg.ResendAPIKey, cfg.FromEmail),
		logger: logger,
	}
}

// Dispatch delivers a single message over exactly one transport.
//
// The SMTP precondition is satisfied when the caller supplied complete
// credentials; the API precondition when a provider key is configured.
// The first satisfied precondition in priority order picks the transport.
// A delivery failure surfaces as *TransportError and is never retried.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message, creds *SMTPCredentials) (*Receipt, error) {
	for _, transport := range d.order() {
		switch transport {
		case TransportSMTP:
			if !creds.Complete() {
				continue
			}
			d.logger.Info().
				Str("transport", TransportSMTP).
				Str("to", msg.To).
				Str("from", creds.Email).
				Msg("Dispatching email")
			if err := d.smtp.Send(msg, *creds); err != nil {
				return nil, &TransportError{Transport: TransportSMTP, Err: err}
			}
			return &Receipt{Transport: TransportSMTP}, nil

		case TransportAPI:
			if d.cfg.ResendAPIKey == "" {
				continue
			}
			d.logger.Info().
				Str("transport", TransportAPI).
				Str("to", msg.To).
				Msg("Dispatching email")
			providerID, err := d.api.Send(ctx, msg)
			if err != nil {
				return nil, &TransportError{Transport: TransportAPI, Err: err}
			}
			return &Receipt{Transport: TransportAPI, ProviderID: providerID}, nil
		}
	}

	return nil, ErrNotConfigured
}

func (d *Dispatcher) order() [2]string {
	if d.cfg.Priority == PriorityAPI {
		return [2]string{TransportAPI, TransportSMTP}
	}
	return [2]string{TransportSMTP, TransportAPI}
}
