package postgres

import (
	"time"

	apperrors "github.com/brpay/pix-gateway/internal"
	transactionDatamodel "github.com/brpay/pix-gateway/internal/core/datamodel/transaction"
	transactionpkg "github.com/brpay/pix-gateway/internal/transaction"
	"gorm.io/gorm"
)

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) transactionpkg.RepositoryAPI {
	return &TransactionRepository{
		db: db,
	}
}

func (r *TransactionRepository) Create(t *transactionDatamodel.Transaction) error {
	return r.db.Create(t).Error
}

func (r *TransactionRepository) GetByID(id string) (*transactionDatamodel.Transaction, error) {
	var t transactionDatamodel.Transaction
	err := r.db.Where("id = ?", id).First(&t).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *TransactionRepository) GetByAcquirerTxID(txid string) (*transactionDatamodel.Transaction, error) {
	var t transactionDatamodel.Transaction
	err := r.db.Where("acquirer_txid = ?", txid).First(&t).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *TransactionRepository) GetByUserID(userID int64, limit, offset int) ([]*transactionDatamodel.Transaction, error) {
	var transactions []*transactionDatamodel.Transaction
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&transactions).Error
	return transactions, err
}

// UpdateStatusConditional is the compare-and-swap on status. The WHERE clause
// carries the expected prior status, so concurrent finalizers serialize at the
// store: exactly one update reports an affected row.
func (r *TransactionRepository) UpdateStatusConditional(id, target, expected string, settledAt *time.Time, failureReason *string) (int64, error) {
	updates := map[string]interface{}{
		"status":     target,
		"updated_at": time.Now(),
	}

	if settledAt != nil {
		updates["settled_at"] = *settledAt
	}

	if failureReason != nil {
		updates["failure_reason"] = *failureReason
	}

	result := r.db.Model(&transactionDatamodel.Transaction{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(updates)

	return result.RowsAffected, result.Error
}
