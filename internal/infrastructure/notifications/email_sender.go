package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/medtravel/directory/internal/domain/providers"
	"github.com/medtravel/directory/pkg/config"
)

// EmailAPISender sends transactional email through a Resend-compatible HTTP API
type EmailAPISender struct {
	apiKey     string
	from       string
	httpClient *http.Client
	baseURL    string
}

var _ providers.EmailSender = (*EmailAPISender)(nil)

// NewEmailAPISender creates an email sender from configuration
func NewEmailAPISender(cfg *config.EmailConfig) (*EmailAPISender, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("EMAIL_API_KEY must be set")
	}

	return &EmailAPISender{
		apiKey: cfg.APIKey,
		from:   cfg.From,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL: strings.TrimRight(cfg.APIURL, "/"),
	}, nil
}

type sendEmailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	ReplyTo string   `json:"reply_to,omitempty"`
}

// SendEmailResponse is the API response for an accepted message
type SendEmailResponse struct {
	ID string `json:"id"`
}

type apiError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// Send delivers one message and returns the provider's message id
func (s *EmailAPISender) Send(ctx context.Context, msg providers.EmailMessage) (string, error) {
	if len(msg.To) == 0 {
		return "", fmt.Errorf("email has no recipients")
	}
	from := msg.From
	if from == "" {
		from = s.from
	}

	payload, err := json.Marshal(sendEmailRequest{
		From:    from,
		To:      msg.To,
		Subject: msg.Subject,
		HTML:    msg.HTML,
		ReplyTo: msg.ReplyTo,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/emails", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
			return "", fmt.Errorf("email API error (status %d): %s", resp.StatusCode, apiErr.Message)
		}
		return "", fmt.Errorf("email API error (status %d): %s", resp.StatusCode, string(body))
	}

	var sent SendEmailResponse
	if err := json.Unmarshal(body, &sent); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if sent.ID == "" {
		return "", fmt.Errorf("no message ID in response")
	}
	return sent.ID, nil
}
