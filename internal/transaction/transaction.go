package transaction

import (
	"time"

	transactionDatamodel "github.com/brpay/pix-gateway/internal/core/datamodel/transaction"
	"github.com/shopspring/decimal"
)

type Transaction struct {
	ID            string          `json:"id"`
	UserID        int64           `json:"user_id"`
	Amount        decimal.Decimal `json:"amount"`
	Status        string          `json:"status"`
	Description   string          `json:"description,omitempty"`
	AcquirerTxID  *string         `json:"acquirer_txid,omitempty"`
	BRCode        *string         `json:"br_code,omitempty"`
	FailureReason *string         `json:"failure_reason,omitempty"`
	ExpiresAt     time.Time       `json:"expires_at"`
	SettledAt     *time.Time      `json:"settled_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

const (
	StatusPending = "pending"
	StatusPaid    = "paid"
	StatusExpired = "expired"
	StatusFailed  = "failed"
)

// IsTerminal reports whether the transaction reached a final status. Terminal
// transactions never transition again.
func (t *Transaction) IsTerminal() bool {
	return t.Status == StatusPaid || t.Status == StatusExpired || t.Status == StatusFailed
}

// IsExpired reports whether a pending transaction's payment window has closed
// at the given instant. Expiry is observed lazily on read, not by a sweeper.
func (t *Transaction) IsExpired(now time.Time) bool {
	return t.Status == StatusPending && now.After(t.ExpiresAt)
}

func ToDataModel(t *Transaction) *transactionDatamodel.Transaction {
	return &transactionDatamodel.Transaction{
		ID:            t.ID,
		UserID:        t.UserID,
		Amount:        t.Amount,
		Status:        t.Status,
		Description:   t.Description,
		AcquirerTxID:  t.AcquirerTxID,
		BRCode:        t.BRCode,
		FailureReason: t.FailureReason,
		ExpiresAt:     t.ExpiresAt,
		SettledAt:     t.SettledAt,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}

func FromDataModel(t *transactionDatamodel.Transaction) *Transaction {
	return &Transaction{
		ID:            t.ID,
		UserID:        t.UserID,
		Amount:        t.Amount,
		Status:        t.Status,
		Description:   t.Description,
		AcquirerTxID:  t.AcquirerTxID,
		BRCode:        t.BRCode,
		FailureReason: t.FailureReason,
		ExpiresAt:     t.ExpiresAt,
		SettledAt:     t.SettledAt,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}

func FromDataModelSlice(transactions []*transactionDatamodel.Transaction) []*Transaction {
	result := make([]*Transaction, len(transactions))
	for i, t := range transactions {
		result[i] = FromDataModel(t)
	}
	return result
}
