package postgres

import (
	"errors"
	"time"

	walletDatamodel "github.com/brpay/pix-gateway/internal/core/datamodel/wallet"
	walletpkg "github.com/brpay/pix-gateway/internal/wallet"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WalletRepository struct {
	db *gorm.DB
}

func NewWalletRepository(db *gorm.DB) walletpkg.RepositoryAPI {
	return &WalletRepository{
		db: db,
	}
}

// Credit runs the whole credit as one store transaction: idempotency lookup on
// reference_id, row-locked balance read, ledger append, balance write. The
// unique index on reference_id backs the lookup against races between two
// inserts of the same key.
func (r *WalletRepository) Credit(userID int64, amount decimal.Decimal, description, referenceID string) (*walletDatamodel.WalletTransaction, bool, error) {
	var entry *walletDatamodel.WalletTransaction
	created := false

	err := r.db.Transaction(func(tx *gorm.DB) error {
		var existing walletDatamodel.WalletTransaction
		err := tx.Where("reference_id = ?", referenceID).First(&existing).Error
		if err == nil {
			entry = &existing
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		balanceQuery := tx
		if tx.Dialector.Name() == "postgres" {
			balanceQuery = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		var balance walletDatamodel.WalletBalance
		err = balanceQuery.Where("user_id = ?", userID).First(&balance).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			balance = walletDatamodel.WalletBalance{
				UserID:    userID,
				Balance:   decimal.Zero,
				UpdatedAt: time.Now(),
			}
			if err := tx.Create(&balance).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		previous := balance.Balance
		next := previous.Add(amount)

		newEntry := &walletDatamodel.WalletTransaction{
			UserID:          userID,
			Amount:          amount,
			PreviousBalance: previous,
			NewBalance:      next,
			Description:     description,
			ReferenceID:     referenceID,
			Status:          walletpkg.StatusCompleted,
			CreatedAt:       time.Now(),
		}
		if err := tx.Create(newEntry).Error; err != nil {
			return err
		}

		if err := tx.Model(&walletDatamodel.WalletBalance{}).
			Where("user_id = ?", userID).
			Updates(map[string]interface{}{
				"balance":    next,
				"updated_at": time.Now(),
			}).Error; err != nil {
			return err
		}

		entry = newEntry
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	return entry, created, nil
}

// GetBalance returns nil without error when the user has no wallet row yet.
func (r *WalletRepository) GetBalance(userID int64) (*walletDatamodel.WalletBalance, error) {
	var balance walletDatamodel.WalletBalance
	err := r.db.Where("user_id = ?", userID).First(&balance).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &balance, nil
}

func (r *WalletRepository) GetTransactions(userID int64, limit, offset int) ([]*walletDatamodel.WalletTransaction, error) {
	var transactions []*walletDatamodel.WalletTransaction
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&transactions).Error
	return transactions, err
}

func (r *WalletRepository) GetByReferenceID(referenceID string) (*walletDatamodel.WalletTransaction, error) {
	var t walletDatamodel.WalletTransaction
	err := r.db.Where("reference_id = ?", referenceID).First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}
