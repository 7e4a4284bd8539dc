package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Mailer sends transactional email through a Resend-compatible HTTP API.
// When disabled it logs the message and drops it, which keeps local
// environments working without credentials.
type Mailer struct {
	apiURL      string
	apiKey      string
	fromAddress string
	sendTimeout time.Duration
	enabled     bool
	httpClient  *http.Client
	logger      *slog.Logger
}

type MailerConfig struct {
	APIURL      string
	APIKey      string
	FromAddress string
	SendTimeout time.Duration
	Enabled     bool
}

func NewMailer(config MailerConfig, logger *slog.Logger) *Mailer {
	timeout := config.SendTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Mailer{
		apiURL:      config.APIURL,
		apiKey:      config.APIKey,
		fromAddress: config.FromAddress,
		sendTimeout: timeout,
		enabled:     config.Enabled,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      logger,
	}
}

type emailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Text    string   `json:"text"`
}

func (m *Mailer) Send(ctx context.Context, to, subject, body string) error {
	if !m.enabled {
		m.logger.Info("mailer disabled, dropping email", "to", to, "subject", subject)
		return nil
	}

	payload := emailRequest{
		From:    m.fromAddress,
		To:      []string{to},
		Subject: subject,
		Text:    body,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal email request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, m.sendTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, "POST", m.apiURL+"/emails", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("email send failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("mail API returned status %d", resp.StatusCode)
	}

	m.logger.Info("email sent", "to", to, "subject", subject)
	return nil
}
