package email

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/campusdesk-dev/campusdesk/internal/config"
)

type fakeSMTP struct {
	calls int
	err   error
	last  Message
}

func (f *fakeSMTP) Send(msg Message, creds SMTPCredentials) error {
	f.calls++
	f.last = msg
	return f.err
}

type fakeAPI struct {
	calls int
	err   error
	last  Message
}

func (f *fakeAPI) Send(ctx context.Context, msg Message) (string, error) {
	f.calls++
	f.last = msg
	if f.err != nil {
		return "", f.err
	}
	return "msg_123", nil
}

func newTestDispatcher(cfg config.EmailConfig) (*Dispatcher, *fakeSMTP, *fakeAPI) {
	smtp := &fakeSMTP{}
	api := &fakeAPI{}
	return &Dispatcher{cfg: cfg, smtp: smtp, api: api, logger: zerolog.Nop()}, smtp, api
}

func testCreds() *SMTPCredentials {
	return &SMTPCredentials{Server: "mail.example.edu", Port: 587, Email: "office@example.edu", AppPassword: "app-pass"}
}

func testMessage() Message {
	return Message{To: "parent@example.com", Subject: "Hello", Text: "hi"}
}

func TestDispatchSelectsSMTPWhenCredentialsSupplied(t *testing.T) {
	// API key also configured; SMTP still wins under the default priority
	d, smtp, api := newTestDispatcher(config.EmailConfig{Priority: PrioritySMTP, ResendAPIKey: "re_key"})

	receipt, err := d.Dispatch(context.Background(), testMessage(), testCreds())
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if receipt.Transport != TransportSMTP {
		t.Errorf("receipt.Transport = %q, want %q", receipt.Transport, TransportSMTP)
	}
	if smtp.calls != 1 {
		t.Errorf("smtp calls = %d, want 1", smtp.calls)
	}
	if api.calls != 0 {
		t.Errorf("api calls = %d, want 0", api.calls)
	}
}

func TestDispatchFallsToAPIWithoutCredentials(t *testing.T) {
	d, smtp, api := newTestDispatcher(config.EmailConfig{Priority: PrioritySMTP, ResendAPIKey: "re_key"})

	tests := []struct {
		name  string
		creds *SMTPCredentials
	}{
		{"nil credentials", nil},
		{"missing email", &SMTPCredentials{Server: "s", Port: 587, AppPassword: "p"}},
		{"missing password", &SMTPCredentials{Server: "s", Port: 587, Email: "a@b.c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			receipt, err := d.Dispatch(context.Background(), testMessage(), tt.creds)
			if err != nil {
				t.Fatalf("Dispatch() error = %v", err)
			}
			if receipt.Transport != TransportAPI {
				t.Errorf("receipt.Transport = %q, want %q", receipt.Transport, TransportAPI)
			}
			if receipt.ProviderID != "msg_123" {
				t.Errorf("receipt.ProviderID = %q, want %q", receipt.ProviderID, "msg_123")
			}
		})
	}

	if smtp.calls != 0 {
		t.Errorf("smtp calls = %d, want 0", smtp.calls)
	}
	if api.calls != 3 {
		t.Errorf("api calls = %d, want 3", api.calls)
	}
}

func TestDispatchAPIPriority(t *testing.T) {
	// With the flipped priority the API wins even when credentials are supplied
	d, smtp, api := newTestDispatcher(config.EmailConfig{Priority: PriorityAPI, ResendAPIKey: "re_key"})

	receipt, err := d.Dispatch(context.Background(), testMessage(), testCreds())
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if receipt.Transport != TransportAPI {
		t.Errorf("receipt.Transport = %q, want %q", receipt.Transport, TransportAPI)
	}
	if smtp.calls != 0 {
		t.Errorf("smtp calls = %d, want 0", smtp.calls)
	}
	if api.calls != 1 {
		t.Errorf("api calls = %d, want 1", api.calls)
	}
}

func TestDispatchAPIPriorityFallsToSMTPWithoutKey(t *testing.T) {
	d, smtp, api := newTestDispatcher(config.EmailConfig{Priority: PriorityAPI})

	receipt, err := d.Dispatch(context.Background(), testMessage(), testCreds())
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if receipt.Transport != TransportSMTP {
		t.Errorf("receipt.Transport = %q, want %q", receipt.Transport, TransportSMTP)
	}
	if smtp.calls != 1 || api.calls != 0 {
		t.Errorf("calls = smtp %d / api %d, want 1 / 0", smtp.calls, api.calls)
	}
}

func TestDispatchNotConfigured(t *testing.T) {
	d, smtp, api := newTestDispatcher(config.EmailConfig{Priority: PrioritySMTP})

	_, err := d.Dispatch(context.Background(), testMessage(), nil)
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("Dispatch() error = %v, want ErrNotConfigured", err)
	}
	if smtp.calls != 0 || api.calls != 0 {
		t.Errorf("calls = smtp %d / api %d, want no network attempts", smtp.calls, api.calls)
	}
}

func TestDispatchFailureDoesNotFallThrough(t *testing.T) {
	// Both transports usable; the selected one fails; the other must
	// never be attempted
	d, smtp, api := newTestDispatcher(config.EmailConfig{Priority: PrioritySMTP, ResendAPIKey: "re_key"})
	smtp.err = errors.New("535 authentication failed")

	_, err := d.Dispatch(context.Background(), testMessage(), testCreds())

	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("Dispatch() error = %T, want *TransportError", err)
	}
	if transportErr.Transport != TransportSMTP {
		t.Errorf("TransportError.Transport = %q, want %q", transportErr.Transport, TransportSMTP)
	}
	if !errors.Is(err, smtp.err) {
		t.Errorf("TransportError does not wrap the underlying error: %v", err)
	}
	if smtp.calls != 1 {
		t.Errorf("smtp calls = %d, want exactly 1 (no retry)", smtp.calls)
	}
	if api.calls != 0 {
		t.Errorf("api calls = %d, want 0 (no fallback after failure)", api.calls)
	}
}

func TestDispatchAPIFailureSurfaces(t *testing.T) {
	d, smtp, api := newTestDispatcher(config.EmailConfig{Priority: PrioritySMTP, ResendAPIKey: "re_key"})
	api.err = errors.New("provider returned status 422: invalid from address")

	_, err := d.Dispatch(context.Background(), testMessage(), nil)

	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("Dispatch() error = %T, want *TransportError", err)
	}
	if transportErr.Transport != TransportAPI {
		t.Errorf("TransportError.Transport = %q, want %q", transportErr.Transport, TransportAPI)
	}
	if api.calls != 1 {
		t.Errorf("api calls = %d, want exactly 1 (no retry)", api.calls)
	}
	if smtp.calls != 0 {
		t.Errorf("smtp calls = %d, want 0", smtp.calls)
	}
}
