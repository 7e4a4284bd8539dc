package acquirer

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type ChargeStatus string

const (
	ChargeStatusActive    ChargeStatus = "ACTIVE"
	ChargeStatusCompleted ChargeStatus = "COMPLETED"
	ChargeStatusExpired   ChargeStatus = "EXPIRED"
)

// ChargeRequest is the outbound payload registering a PIX cob (charge) with
// the acquirer.
type ChargeRequest struct {
	ChargeID  string          `json:"charge_id"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	ExpiresAt time.Time       `json:"expires_at"`
}

func (r *ChargeRequest) Validate() error {
	if r.ChargeID == "" {
		return fmt.Errorf("charge_id is required")
	}
	if !r.Amount.IsPositive() {
		return fmt.Errorf("amount must be positive")
	}
	return nil
}

type ChargeData struct {
	TxID   string       `json:"txid"`
	BRCode string       `json:"br_code"`
	Status ChargeStatus `json:"status"`
}

type ChargeResponse struct {
	Data ChargeData `json:"data"`
}

// WebhookPayload is the inbound settlement notification. Status is the
// acquirer's vocabulary; the webhook handler maps it to a signal.
type WebhookPayload struct {
	TxID          string          `json:"txid"`
	Status        string          `json:"status"`
	Amount        decimal.Decimal `json:"amount"`
	FailureReason string          `json:"failure_reason,omitempty"`
}

const (
	WebhookStatusConfirmed = "CONCLUIDA"
	WebhookStatusFailed    = "NAO_REALIZADA"
	WebhookStatusReturned  = "DEVOLVIDA"
)
