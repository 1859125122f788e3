package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// EmailSender is the outbound email collaborator. Sends are best-effort:
// callers treat any error as log-and-move-on.
type EmailSender interface {
	Send(ctx context.Context, to, subject, html string) error
}

// EmailJob is one queued send.
type EmailJob struct {
	To      string
	Subject string
	HTML    string
}

// HTTPEmailSender posts messages to an email provider's HTTP API.
type HTTPEmailSender struct {
	apiURL string
	apiKey string
	client *http.Client
}

func NewHTTPEmailSender(apiURL, apiKey string) *HTTPEmailSender {
	return &HTTPEmailSender{
		apiURL: apiURL,
		apiKey: apiKey,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *HTTPEmailSender) Send(ctx context.Context, to, subject, html string) error {
	body, err := json.Marshal(map[string]string{
		"to":      to,
		"subject": subject,
		"html":    html,
	})
	if err != nil {
		return fmt.Errorf("email: failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("email: failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("email: send request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("email: provider returned status %d", resp.StatusCode)
	}
	return nil
}

// LogEmailSender is the dev/test fallback when no provider is configured: it
// logs instead of sending.
type LogEmailSender struct{}

func (LogEmailSender) Send(_ context.Context, to, subject, _ string) error {
	log.Info().Str("to", to).Str("subject", subject).Msg("email: no provider configured, logging only")
	return nil
}

func emailBody(title, message, orderNumber string) string {
	return fmt.Sprintf(
		`<html><body><h2>%s</h2><p>%s</p><p>Order reference: <strong>%s</strong></p></body></html>`,
		title, message, orderNumber,
	)
}
