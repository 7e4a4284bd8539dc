package reconciler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	errors "github.com/brpay/pix-gateway/internal"
	"github.com/brpay/pix-gateway/internal/core/events"
	"github.com/brpay/pix-gateway/internal/transaction"
	"github.com/brpay/pix-gateway/internal/wallet"
	"github.com/shopspring/decimal"
)

const creditDescription = "PIX settlement"

// amountTolerance absorbs acquirer rounding on confirmed amounts. Anything
// beyond one centavo is treated as a mismatched settlement.
var amountTolerance = decimal.New(1, -2)

// TransactionLedger is the slice of the transaction service the Reconciler
// drives. Get applies lazy expiry; Transition is the conditional update.
type TransactionLedger interface {
	Get(ctx context.Context, id string) (*transaction.Transaction, error)
	Transition(ctx context.Context, id, target, expected string, settledAt *time.Time, failureReason *string) (*transaction.Transaction, error)
}

// WalletLedger is the slice of the wallet service the Reconciler drives.
type WalletLedger interface {
	Credit(userID int64, amount decimal.Decimal, description, referenceID string) (*wallet.WalletTransaction, bool, error)
}

// Service decides, for each observation of a transaction, whether a state
// transition and/or a wallet credit must occur, and guarantees each economic
// effect happens at most once however many times the observation is repeated.
type Service struct {
	transactions TransactionLedger
	wallets      WalletLedger
	eventBus     *events.EventBus
	logger       *slog.Logger
	now          func() time.Time
}

func NewService(transactions TransactionLedger, wallets WalletLedger, eventBus *events.EventBus, logger *slog.Logger) *Service {
	return &Service{
		transactions: transactions,
		wallets:      wallets,
		eventBus:     eventBus,
		logger:       logger,
		now:          time.Now,
	}
}

// WithClock overrides the service clock for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Observe drives a transaction toward a terminal state in response to a poll
// or an acquirer event. The conditional transition is the single serialization
// point: of any number of concurrent observers delivering the same settlement,
// exactly one wins the pending->paid update and performs the credit. The
// wallet's idempotency key (the transaction id) is an independent second
// guard, not the primary mechanism.
func (s *Service) Observe(ctx context.Context, transactionID string, signal Signal) (*transaction.Transaction, error) {
	txn, err := s.transactions.Get(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	if txn.IsTerminal() {
		return s.observeTerminal(ctx, txn, signal)
	}

	switch signal.Kind {
	case SignalPoll:
		return txn, nil
	case SignalSettled:
		return s.settle(ctx, txn, signal.Amount)
	case SignalFailed:
		return s.fail(ctx, txn, signal.Reason)
	default:
		return nil, errors.NewValidationError(fmt.Sprintf("unknown signal kind %q", signal.Kind), errors.ErrCodeValidationFailed)
	}
}

// observeTerminal handles duplicate deliveries and late polls. Terminal state
// never changes, but a settled signal against a paid transaction re-runs the
// credit: that recovers a crash between transition and credit, and the
// idempotency key makes it a no-op otherwise.
func (s *Service) observeTerminal(ctx context.Context, txn *transaction.Transaction, signal Signal) (*transaction.Transaction, error) {
	if signal.Kind == SignalSettled && txn.Status == transaction.StatusPaid {
		if err := s.credit(ctx, txn); err != nil {
			return nil, err
		}
	}

	s.logger.Info("observation on terminal transaction is a no-op",
		"transaction_id", txn.ID,
		"status", txn.Status,
		"signal", signal.Kind)

	return txn, nil
}

func (s *Service) settle(ctx context.Context, txn *transaction.Transaction, amountConfirmed decimal.Decimal) (*transaction.Transaction, error) {
	diff := amountConfirmed.Sub(txn.Amount).Abs()
	if diff.GreaterThan(amountTolerance) {
		s.logger.Warn("settlement amount mismatch",
			"transaction_id", txn.ID,
			"expected", txn.Amount.StringFixed(2),
			"confirmed", amountConfirmed.StringFixed(2))
		return nil, errors.NewAmountMismatchError(fmt.Sprintf(
			"confirmed amount %s does not match charge amount %s",
			amountConfirmed.StringFixed(2), txn.Amount.StringFixed(2)))
	}

	settledAt := s.now()
	paid, err := s.transactions.Transition(ctx, txn.ID, transaction.StatusPaid, transaction.StatusPending, &settledAt, nil)
	if err != nil {
		if errors.IsConflict(err) {
			// Another observer finalized the row first; its outcome stands.
			final, rerr := s.transactions.Get(ctx, txn.ID)
			if rerr != nil {
				return nil, rerr
			}
			s.logger.Info("settlement lost transition race",
				"transaction_id", txn.ID,
				"final_status", final.Status)
			return final, nil
		}
		return nil, err
	}

	if err := s.credit(ctx, paid); err != nil {
		// The transition committed; surfacing the failure makes the acquirer
		// redeliver, and the paid+settled branch above re-attempts the credit.
		return nil, err
	}

	s.eventBus.Publish(ctx, events.NewTransactionSettledEvent(paid.ID, paid.UserID, paid.Amount))

	return paid, nil
}

func (s *Service) credit(ctx context.Context, txn *transaction.Transaction) error {
	entry, created, err := s.wallets.Credit(txn.UserID, txn.Amount, creditDescription, txn.ID)
	if err != nil {
		s.logger.Error("wallet credit failed after settlement",
			"error", err,
			"transaction_id", txn.ID,
			"user_id", txn.UserID)
		return err
	}

	if created {
		s.eventBus.Publish(ctx, events.NewWalletCreditedEvent(entry.UserID, entry.Amount, entry.NewBalance, entry.ReferenceID))
	}

	return nil
}

func (s *Service) fail(ctx context.Context, txn *transaction.Transaction, reason string) (*transaction.Transaction, error) {
	failed, err := s.transactions.Transition(ctx, txn.ID, transaction.StatusFailed, transaction.StatusPending, nil, &reason)
	if err != nil {
		if errors.IsConflict(err) {
			final, rerr := s.transactions.Get(ctx, txn.ID)
			if rerr != nil {
				return nil, rerr
			}
			s.logger.Info("failure signal lost transition race",
				"transaction_id", txn.ID,
				"final_status", final.Status)
			return final, nil
		}
		return nil, err
	}

	s.eventBus.Publish(ctx, events.NewTransactionFailedEvent(failed.ID, failed.UserID, reason))

	return failed, nil
}
