package wallet

import (
	"time"

	walletDatamodel "github.com/brpay/pix-gateway/internal/core/datamodel/wallet"
	"github.com/shopspring/decimal"
)

type WalletBalance struct {
	UserID    int64           `json:"user_id"`
	Balance   decimal.Decimal `json:"balance"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// WalletTransaction is one append-only entry in a user's balance history.
// Entries are never mutated or deleted; the balance field on WalletBalance is
// a materialized cache of their sum.
type WalletTransaction struct {
	ID              int64           `json:"id"`
	UserID          int64           `json:"user_id"`
	Amount          decimal.Decimal `json:"amount"`
	PreviousBalance decimal.Decimal `json:"previous_balance"`
	NewBalance      decimal.Decimal `json:"new_balance"`
	Description     string          `json:"description"`
	ReferenceID     string          `json:"reference_id"`
	Status          string          `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
}

const StatusCompleted = "completed"

func BalanceFromDataModel(b *walletDatamodel.WalletBalance) *WalletBalance {
	return &WalletBalance{
		UserID:    b.UserID,
		Balance:   b.Balance,
		UpdatedAt: b.UpdatedAt,
	}
}

func TransactionFromDataModel(t *walletDatamodel.WalletTransaction) *WalletTransaction {
	return &WalletTransaction{
		ID:              t.ID,
		UserID:          t.UserID,
		Amount:          t.Amount,
		PreviousBalance: t.PreviousBalance,
		NewBalance:      t.NewBalance,
		Description:     t.Description,
		ReferenceID:     t.ReferenceID,
		Status:          t.Status,
		CreatedAt:       t.CreatedAt,
	}
}

func TransactionsFromDataModel(transactions []*walletDatamodel.WalletTransaction) []*WalletTransaction {
	result := make([]*WalletTransaction, len(transactions))
	for i, t := range transactions {
		result[i] = TransactionFromDataModel(t)
	}
	return result
}
