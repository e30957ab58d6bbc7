package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

var (
	apiHost     = "https://api.resend.com"
	apiEndpoint = "/emails"
)

// fallbackFromAddress is the provider's shared onboarding sender, used
// when no from address is configured anywhere
const fallbackFromAddress = "onboarding@resend.dev"

// APITransport delivers messages through the Resend transactional email
// API: one POST per message, bearer-token auth, non-2xx is a failure.
type APITransport struct {
	Key     string
	From    string
	BaseURL string // overridable for tests; defaults to apiHost
	Client  *http.Client
}

// NewAPITransport creates a transport for the transactional email API
func NewAPITransport(key, from string) *APITransport {
	return &APITransport{
		Key:    key,
		From:   from,
		Client: &http.Client{Timeout: 30 * time.Second},
	}
}

type apiRequest struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html,omitempty"`
	Text    string `json:"text,omitempty"`
}

type apiResponse struct {
	ID string `json:"id"`
}

type apiError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// Send issues a single POST to the provider's message endpoint and
// returns the provider-assigned message ID
func (t *APITransport) Send(ctx context.Context, msg Message) (string, error) {
	from := msg.From
	if from == "" {
		from = t.From
	}
	if from == "" {
		from = fallbackFromAddress
	}

	payload, err := json.Marshal(apiRequest{
		From:    from,
		To:      msg.To,
		Subject: msg.Subject,
		HTML:    msg.HTML,
		Text:    msg.Text,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	baseURL := t.BaseURL
	if baseURL == "" {
		baseURL = apiHost
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+apiEndpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.Key)

	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("provider request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var provErr apiError
		if err := json.Unmarshal(body, &provErr); err == nil && provErr.Message != "" {
			return "", fmt.Errorf("provider returned status %d: %s", resp.StatusCode, provErr.Message)
		}
		return "", fmt.Errorf("provider returned status %d: %s", resp.StatusCode, string(body))
	}

	var result apiResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to decode provider response: %w", err)
	}
	return result.ID, nil
}
