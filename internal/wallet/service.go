package wallet

import (
	"log/slog"
	"time"

	errors "github.com/brpay/pix-gateway/internal"
	walletDatamodel "github.com/brpay/pix-gateway/internal/core/datamodel/wallet"
	"github.com/shopspring/decimal"
)

// RepositoryAPI defines wallet data access. Credit must run the idempotency
// lookup, the balance read, the ledger append, and the balance write in one
// store transaction so concurrent credits to the same user cannot lose
// updates.
type RepositoryAPI interface {
	Credit(userID int64, amount decimal.Decimal, description, referenceID string) (entry *walletDatamodel.WalletTransaction, created bool, err error)
	GetBalance(userID int64) (*walletDatamodel.WalletBalance, error)
	GetTransactions(userID int64, limit, offset int) ([]*walletDatamodel.WalletTransaction, error)
	GetByReferenceID(referenceID string) (*walletDatamodel.WalletTransaction, error)
}

// Service owns per-user balances and their append-only history. It is the
// only writer of WalletBalance.
type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// Credit appends a wallet transaction and moves the cached balance, idempotent
// on referenceID: delivering the same economic effect twice returns the
// original entry untouched. The returned bool reports whether a new entry was
// written.
func (s *Service) Credit(userID int64, amount decimal.Decimal, description, referenceID string) (*WalletTransaction, bool, error) {
	if amount.Sign() <= 0 {
		s.logger.Error("rejecting non-positive credit",
			"user_id", userID,
			"amount", amount.String(),
			"reference_id", referenceID)
		return nil, false, errors.NewValidationError("credit amount must be positive", errors.ErrCodeInvalidAmount)
	}
	if referenceID == "" {
		return nil, false, errors.NewValidationError("idempotency key is required", errors.ErrCodeValidationFailed)
	}

	entry, created, err := s.repo.Credit(userID, amount, description, referenceID)
	if err != nil {
		s.logger.Error("wallet credit failed",
			"error", err,
			"user_id", userID,
			"reference_id", referenceID)
		return nil, false, errors.NewInternalError("failed to credit wallet", err)
	}

	if created {
		s.logger.Info("wallet credited",
			"user_id", userID,
			"amount", amount.StringFixed(2),
			"new_balance", entry.NewBalance.StringFixed(2),
			"reference_id", referenceID)
	} else {
		s.logger.Info("duplicate credit suppressed",
			"user_id", userID,
			"reference_id", referenceID)
	}

	return TransactionFromDataModel(entry), created, nil
}

// GetBalance returns the user's balance, zero-valued for users with no wallet
// activity yet. Absence is not an error.
func (s *Service) GetBalance(userID int64) (*WalletBalance, error) {
	record, err := s.repo.GetBalance(userID)
	if err != nil {
		s.logger.Error("failed to get balance", "error", err, "user_id", userID)
		return nil, errors.NewInternalError("failed to get wallet balance", err)
	}
	if record == nil {
		return &WalletBalance{
			UserID:    userID,
			Balance:   decimal.Zero,
			UpdatedAt: time.Now(),
		}, nil
	}
	return BalanceFromDataModel(record), nil
}

func (s *Service) GetTransactions(userID int64, limit, offset int) ([]*WalletTransaction, error) {
	records, err := s.repo.GetTransactions(userID, limit, offset)
	if err != nil {
		s.logger.Error("failed to list wallet transactions", "error", err, "user_id", userID)
		return nil, errors.NewInternalError("failed to list wallet transactions", err)
	}
	return TransactionsFromDataModel(records), nil
}
