package transaction

import (
	"context"
	"log/slog"
	"time"

	errors "github.com/brpay/pix-gateway/internal"
	transactionDatamodel "github.com/brpay/pix-gateway/internal/core/datamodel/transaction"
	"github.com/brpay/pix-gateway/internal/core/events"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RepositoryAPI defines the data access methods for transactions. The
// conditional update is the concurrency primitive everything else relies on:
// it must apply atomically and report how many rows it touched.
type RepositoryAPI interface {
	Create(t *transactionDatamodel.Transaction) error
	GetByID(id string) (*transactionDatamodel.Transaction, error)
	GetByAcquirerTxID(txid string) (*transactionDatamodel.Transaction, error)
	GetByUserID(userID int64, limit, offset int) ([]*transactionDatamodel.Transaction, error)
	UpdateStatusConditional(id, target, expected string, settledAt *time.Time, failureReason *string) (int64, error)
}

// ChargeCreator registers a charge with the PIX acquirer and returns the
// acquirer's txid plus the BR Code payload the payer scans.
type ChargeCreator interface {
	CreateCharge(ctx context.Context, chargeID string, amount decimal.Decimal, expiresAt time.Time) (txid string, brCode string, err error)
}

// Service owns the canonical lifecycle state of payment transactions. It is
// the only writer of status transitions.
type Service struct {
	repo          RepositoryAPI
	chargeCreator ChargeCreator
	expiryWindow  time.Duration
	eventBus      *events.EventBus
	logger        *slog.Logger
	now           func() time.Time
}

func NewService(repo RepositoryAPI, chargeCreator ChargeCreator, expiryWindow time.Duration, logger *slog.Logger) *Service {
	if expiryWindow <= 0 {
		expiryWindow = time.Hour
	}
	return &Service{
		repo:          repo,
		chargeCreator: chargeCreator,
		expiryWindow:  expiryWindow,
		logger:        logger,
		now:           time.Now,
	}
}

// WithClock overrides the service clock, used by tests to simulate expiry.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// WithEventBus enables lifecycle event publication.
func (s *Service) WithEventBus(bus *events.EventBus) *Service {
	s.eventBus = bus
	return s
}

// Create allocates a pending transaction and registers the charge with the
// acquirer. The expiry window is fixed at creation and never changes.
func (s *Service) Create(ctx context.Context, userID int64, dto *CreateTransactionDTO) (*Transaction, error) {
	if err := dto.Validate(); err != nil {
		s.logger.Error("transaction validation failed", "error", err, "user_id", userID)
		return nil, err
	}

	now := s.now()
	txn := &Transaction{
		ID:          uuid.New().String(),
		UserID:      userID,
		Amount:      dto.Amount,
		Status:      StatusPending,
		Description: dto.Description,
		ExpiresAt:   now.Add(s.expiryWindow),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if s.chargeCreator != nil {
		txid, brCode, err := s.chargeCreator.CreateCharge(ctx, txn.ID, txn.Amount, txn.ExpiresAt)
		if err != nil {
			s.logger.Error("acquirer charge creation failed",
				"error", err,
				"transaction_id", txn.ID,
				"user_id", userID)
			return nil, errors.NewExternalError("failed to create PIX charge", err)
		}
		txn.AcquirerTxID = &txid
		txn.BRCode = &brCode
	}

	if err := s.repo.Create(ToDataModel(txn)); err != nil {
		s.logger.Error("failed to persist transaction", "error", err, "transaction_id", txn.ID)
		return nil, errors.NewInternalError("failed to create transaction", err)
	}

	s.logger.Info("transaction created",
		"transaction_id", txn.ID,
		"user_id", userID,
		"amount", txn.Amount.StringFixed(2),
		"expires_at", txn.ExpiresAt)

	return txn, nil
}

// Get returns the transaction, applying lazy expiry first: a pending
// transaction whose window has closed is transitioned to expired before being
// returned. The conditional transition makes this safe against a concurrent
// settlement; whoever loses the race simply re-reads.
func (s *Service) Get(ctx context.Context, id string) (*Transaction, error) {
	record, err := s.repo.GetByID(id)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, err
		}
		s.logger.Error("failed to load transaction", "error", err, "transaction_id", id)
		return nil, errors.NewInternalError("failed to load transaction", err)
	}
	txn := FromDataModel(record)

	if txn.IsExpired(s.now()) {
		expired, err := s.Transition(ctx, txn.ID, StatusExpired, StatusPending, nil, nil)
		if err == nil {
			s.logger.Info("transaction expired on read", "transaction_id", txn.ID)
			if s.eventBus != nil {
				s.eventBus.Publish(ctx, events.NewTransactionExpiredEvent(expired.ID, expired.UserID))
			}
			return expired, nil
		}
		if !errors.IsConflict(err) {
			return nil, err
		}
		// Lost the race to another finalizer: the stored status is now
		// authoritative.
		record, err := s.repo.GetByID(id)
		if err != nil {
			if errors.IsNotFound(err) {
				return nil, err
			}
			return nil, errors.NewInternalError("failed to load transaction", err)
		}
		return FromDataModel(record), nil
	}

	return txn, nil
}

// GetByAcquirerTxID resolves the acquirer's txid to the gateway transaction.
// No lazy expiry here: callers settle through Observe, which re-reads via Get.
func (s *Service) GetByAcquirerTxID(txid string) (*Transaction, error) {
	record, err := s.repo.GetByAcquirerTxID(txid)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, err
		}
		s.logger.Error("failed to resolve acquirer txid", "error", err, "txid", txid)
		return nil, errors.NewInternalError("failed to load transaction", err)
	}
	return FromDataModel(record), nil
}

// GetUserTransactions lists a user's transactions without lazy expiry; listing
// is informational and individual reads finalize state.
func (s *Service) GetUserTransactions(userID int64, limit, offset int) ([]*Transaction, error) {
	records, err := s.repo.GetByUserID(userID, limit, offset)
	if err != nil {
		s.logger.Error("failed to list transactions", "error", err, "user_id", userID)
		return nil, errors.NewInternalError("failed to list transactions", err)
	}
	return FromDataModelSlice(records), nil
}

// Transition applies a conditional status update: it succeeds only if the
// stored status still equals expected. A zero-row update means another
// observer finalized the row first and yields a ConflictError the caller must
// resolve by re-reading.
func (s *Service) Transition(ctx context.Context, id, target, expected string, settledAt *time.Time, failureReason *string) (*Transaction, error) {
	affected, err := s.repo.UpdateStatusConditional(id, target, expected, settledAt, failureReason)
	if err != nil {
		s.logger.Error("conditional transition failed",
			"error", err,
			"transaction_id", id,
			"target", target,
			"expected", expected)
		return nil, errors.NewInternalError("failed to update transaction status", err)
	}

	if affected == 0 {
		// Either the row is gone or its status moved. Distinguish so callers
		// can surface NotFound instead of retry-looping.
		if _, getErr := s.repo.GetByID(id); getErr != nil {
			if errors.IsNotFound(getErr) {
				return nil, getErr
			}
			return nil, errors.NewInternalError("failed to load transaction", getErr)
		}
		return nil, errors.ErrStatusConflict
	}

	record, err := s.repo.GetByID(id)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, err
		}
		return nil, errors.NewInternalError("failed to load transaction", err)
	}

	s.logger.Info("transaction transitioned",
		"transaction_id", id,
		"from", expected,
		"to", target)

	return FromDataModel(record), nil
}
