package wallet

import (
	"time"

	"github.com/shopspring/decimal"
)

type WalletBalance struct {
	UserID    int64           `gorm:"primaryKey;column:user_id"`
	Balance   decimal.Decimal `gorm:"column:balance;type:numeric(14,2);not null;default:0"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (WalletBalance) TableName() string {
	return "wallet_balances"
}

// WalletTransaction rows are append-only; ReferenceID carries the idempotency
// key of the economic effect that produced the row (the settling transaction's
// id for PIX credits) and is unique per wallet event.
type WalletTransaction struct {
	ID              int64           `gorm:"primaryKey"`
	UserID          int64           `gorm:"column:user_id;not null;index"`
	Amount          decimal.Decimal `gorm:"column:amount;type:numeric(14,2);not null"`
	PreviousBalance decimal.Decimal `gorm:"column:previous_balance;type:numeric(14,2);not null"`
	NewBalance      decimal.Decimal `gorm:"column:new_balance;type:numeric(14,2);not null"`
	Description     string          `gorm:"column:description;not null"`
	ReferenceID     string          `gorm:"column:reference_id;not null;uniqueIndex"`
	Status          string          `gorm:"column:status;default:completed"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (WalletTransaction) TableName() string {
	return "wallet_transactions"
}
