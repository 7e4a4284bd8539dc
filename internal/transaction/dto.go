package transaction

import (
	"github.com/brpay/pix-gateway/internal/core/common/validation"
	"github.com/shopspring/decimal"
)

// CreateTransactionDTO is the transport shape for POST /transactions.
type CreateTransactionDTO struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description,omitempty"`
}

func (d *CreateTransactionDTO) Validate() error {
	if appErr := validation.ValidateChargeAmount(d.Amount); appErr != nil {
		return appErr
	}

	validator := validation.NewValidator()
	validator.Field("description", d.Description).MaxLength(200)
	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

// TransactionResponse is the API view of a transaction. Amounts are rendered
// with two decimal places since everything is BRL.
type TransactionResponse struct {
	ID            string  `json:"id"`
	Amount        string  `json:"amount"`
	Status        string  `json:"status"`
	Description   string  `json:"description,omitempty"`
	BRCode        *string `json:"br_code,omitempty"`
	FailureReason *string `json:"failure_reason,omitempty"`
	ExpiresAt     string  `json:"expires_at"`
	SettledAt     *string `json:"settled_at,omitempty"`
	CreatedAt     string  `json:"created_at"`
}

func ToResponse(t *Transaction) TransactionResponse {
	resp := TransactionResponse{
		ID:            t.ID,
		Amount:        t.Amount.StringFixed(2),
		Status:        t.Status,
		Description:   t.Description,
		BRCode:        t.BRCode,
		FailureReason: t.FailureReason,
		ExpiresAt:     t.ExpiresAt.Format(timeFormat),
		CreatedAt:     t.CreatedAt.Format(timeFormat),
	}
	if t.SettledAt != nil {
		settled := t.SettledAt.Format(timeFormat)
		resp.SettledAt = &settled
	}
	return resp
}

func ToResponseSlice(transactions []*Transaction) []TransactionResponse {
	result := make([]TransactionResponse, len(transactions))
	for i, t := range transactions {
		result[i] = ToResponse(t)
	}
	return result
}

const timeFormat = "2006-01-02T15:04:05Z07:00"
