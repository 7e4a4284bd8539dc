package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EventTypeTransactionSettled = "transaction.settled"
	EventTypeTransactionFailed  = "transaction.failed"
	EventTypeTransactionExpired = "transaction.expired"
	EventTypeWalletCredited     = "wallet.credited"
)

type TransactionSettledEvent struct {
	BaseEvent
	TransactionID string          `json:"transaction_id"`
	UserID        int64           `json:"user_id"`
	Amount        decimal.Decimal `json:"amount"`
}

func NewTransactionSettledEvent(transactionID string, userID int64, amount decimal.Decimal) *TransactionSettledEvent {
	return &TransactionSettledEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeTransactionSettled,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"transaction_id": transactionID,
				"user_id":        userID,
				"amount":         amount.StringFixed(2),
			},
		},
		TransactionID: transactionID,
		UserID:        userID,
		Amount:        amount,
	}
}

type TransactionFailedEvent struct {
	BaseEvent
	TransactionID string `json:"transaction_id"`
	UserID        int64  `json:"user_id"`
	FailureReason string `json:"failure_reason"`
}

func NewTransactionFailedEvent(transactionID string, userID int64, failureReason string) *TransactionFailedEvent {
	return &TransactionFailedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeTransactionFailed,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"transaction_id": transactionID,
				"user_id":        userID,
				"failure_reason": failureReason,
			},
		},
		TransactionID: transactionID,
		UserID:        userID,
		FailureReason: failureReason,
	}
}

type TransactionExpiredEvent struct {
	BaseEvent
	TransactionID string `json:"transaction_id"`
	UserID        int64  `json:"user_id"`
}

func NewTransactionExpiredEvent(transactionID string, userID int64) *TransactionExpiredEvent {
	return &TransactionExpiredEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeTransactionExpired,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"transaction_id": transactionID,
				"user_id":        userID,
			},
		},
		TransactionID: transactionID,
		UserID:        userID,
	}
}

type WalletCreditedEvent struct {
	BaseEvent
	UserID      int64           `json:"user_id"`
	Amount      decimal.Decimal `json:"amount"`
	NewBalance  decimal.Decimal `json:"new_balance"`
	ReferenceID string          `json:"reference_id"`
}

func NewWalletCreditedEvent(userID int64, amount, newBalance decimal.Decimal, referenceID string) *WalletCreditedEvent {
	return &WalletCreditedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeWalletCredited,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"user_id":      userID,
				"amount":       amount.StringFixed(2),
				"new_balance":  newBalance.StringFixed(2),
				"reference_id": referenceID,
			},
		},
		UserID:      userID,
		Amount:      amount,
		NewBalance:  newBalance,
		ReferenceID: referenceID,
	}
}
