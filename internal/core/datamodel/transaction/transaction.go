package transaction

import (
	"time"

	"github.com/shopspring/decimal"
)

type Transaction struct {
	ID            string          `gorm:"primaryKey;column:id"`
	UserID        int64           `gorm:"column:user_id;not null;index"`
	Amount        decimal.Decimal `gorm:"column:amount;type:numeric(14,2);not null"`
	Status        string          `gorm:"column:status;default:pending;index"`
	Description   string          `gorm:"column:description"`
	AcquirerTxID  *string         `gorm:"column:acquirer_txid;uniqueIndex"`
	BRCode        *string         `gorm:"column:br_code"`
	FailureReason *string         `gorm:"column:failure_reason"`
	ExpiresAt     time.Time       `gorm:"column:expires_at;not null"`
	SettledAt     *time.Time      `gorm:"column:settled_at"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (Transaction) TableName() string {
	return "transactions"
}
