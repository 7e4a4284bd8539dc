package reconciler_test

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	apperrors "github.com/brpay/pix-gateway/internal"
	"github.com/brpay/pix-gateway/internal/core/events"
	reconcilerPkg "github.com/brpay/pix-gateway/internal/reconciler"
	"github.com/brpay/pix-gateway/internal/transaction"
	"github.com/brpay/pix-gateway/internal/wallet"
)

func TestReconciler(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Reconciler Suite")
}

// mockTransactionLedger mimics the store-level conditional transition: the
// update succeeds only when the current status equals the expected one.
type mockTransactionLedger struct {
	mu           sync.Mutex
	transactions map[string]*transaction.Transaction
	getError     error
}

func newMockTransactionLedger() *mockTransactionLedger {
	return &mockTransactionLedger{transactions: make(map[string]*transaction.Transaction)}
}

func (m *mockTransactionLedger) put(txn *transaction.Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *txn
	m.transactions[txn.ID] = &copied
}

func (m *mockTransactionLedger) Get(ctx context.Context, id string) (*transaction.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getError != nil {
		return nil, m.getError
	}
	txn, ok := m.transactions[id]
	if !ok {
		return nil, apperrors.ErrTransactionNotFound
	}
	copied := *txn
	return &copied, nil
}

func (m *mockTransactionLedger) Transition(ctx context.Context, id, target, expected string, settledAt *time.Time, failureReason *string) (*transaction.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	txn, ok := m.transactions[id]
	if !ok {
		return nil, apperrors.ErrTransactionNotFound
	}
	if txn.Status != expected {
		return nil, apperrors.ErrStatusConflict
	}
	txn.Status = target
	txn.SettledAt = settledAt
	txn.FailureReason = failureReason
	copied := *txn
	return &copied, nil
}

type mockWalletLedger struct {
	mu          sync.Mutex
	entries     map[string]*wallet.WalletTransaction
	balance     decimal.Decimal
	creditError error
	creditCalls int
}

func newMockWalletLedger() *mockWalletLedger {
	return &mockWalletLedger{entries: make(map[string]*wallet.WalletTransaction)}
}

func (m *mockWalletLedger) Credit(userID int64, amount decimal.Decimal, description, referenceID string) (*wallet.WalletTransaction, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creditCalls++
	if m.creditError != nil {
		return nil, false, m.creditError
	}
	if existing, ok := m.entries[referenceID]; ok {
		return existing, false, nil
	}
	previous := m.balance
	m.balance = m.balance.Add(amount)
	entry := &wallet.WalletTransaction{
		ID:              int64(len(m.entries) + 1),
		UserID:          userID,
		Amount:          amount,
		PreviousBalance: previous,
		NewBalance:      m.balance,
		Description:     description,
		ReferenceID:     referenceID,
		Status:          wallet.StatusCompleted,
		CreatedAt:       time.Now(),
	}
	m.entries[referenceID] = entry
	return entry, true, nil
}

var _ = Describe("Reconciler", func() {
	var (
		ledger     *mockTransactionLedger
		wallets    *mockWalletLedger
		reconciler *reconcilerPkg.Service
		ctx        context.Context
		now        time.Time
	)

	newPending := func(id string, amount string) *transaction.Transaction {
		return &transaction.Transaction{
			ID:        id,
			UserID:    42,
			Amount:    decimal.RequireFromString(amount),
			Status:    transaction.StatusPending,
			ExpiresAt: now.Add(time.Hour),
			CreatedAt: now,
		}
	}

	BeforeEach(func() {
		ctx = context.Background()
		now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
		ledger = newMockTransactionLedger()
		wallets = newMockWalletLedger()
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
		eventBus := events.NewEventBus(logger)
		reconciler = reconcilerPkg.NewService(ledger, wallets, eventBus, logger).
			WithClock(func() time.Time { return now })
	})

	Describe("polling", func() {
		It("returns the pending transaction unchanged", func() {
			ledger.put(newPending("tx-1", "100.00"))

			result, err := reconciler.Observe(ctx, "tx-1", reconcilerPkg.PollSignal())

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Status).To(Equal(transaction.StatusPending))
			Expect(wallets.creditCalls).To(BeZero())
		})

		It("returns not found for an unknown transaction", func() {
			_, err := reconciler.Observe(ctx, "missing", reconcilerPkg.PollSignal())

			appErr, ok := apperrors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(apperrors.ErrCodeTransactionNotFound))
		})
	})

	Describe("settlement", func() {
		It("transitions to paid and credits the wallet exactly once", func() {
			ledger.put(newPending("tx-1", "150.00"))

			result, err := reconciler.Observe(ctx, "tx-1", reconcilerPkg.SettledSignal(decimal.RequireFromString("150.00")))

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Status).To(Equal(transaction.StatusPaid))
			Expect(result.SettledAt).NotTo(BeNil())
			Expect(result.SettledAt.Equal(now)).To(BeTrue())

			entry := wallets.entries["tx-1"]
			Expect(entry).NotTo(BeNil())
			Expect(entry.Amount.Equal(decimal.RequireFromString("150.00"))).To(BeTrue())
			Expect(entry.Description).To(Equal("PIX settlement"))
		})

		It("accepts a confirmed amount within one centavo", func() {
			ledger.put(newPending("tx-1", "150.00"))

			result, err := reconciler.Observe(ctx, "tx-1", reconcilerPkg.SettledSignal(decimal.RequireFromString("150.01")))

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Status).To(Equal(transaction.StatusPaid))
			Expect(wallets.entries["tx-1"].Amount.Equal(decimal.RequireFromString("150.00"))).To(BeTrue())
		})

		It("rejects a confirmed amount beyond the tolerance and leaves the charge pending", func() {
			ledger.put(newPending("tx-1", "150.00"))

			_, err := reconciler.Observe(ctx, "tx-1", reconcilerPkg.SettledSignal(decimal.RequireFromString("150.02")))

			appErr, ok := apperrors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(apperrors.ErrCodeAmountMismatch))

			current, _ := ledger.Get(ctx, "tx-1")
			Expect(current.Status).To(Equal(transaction.StatusPending))
			Expect(wallets.creditCalls).To(BeZero())
		})

		It("credits the ledger amount, not the confirmed amount, under tolerance rounding", func() {
			ledger.put(newPending("tx-1", "150.00"))

			_, err := reconciler.Observe(ctx, "tx-1", reconcilerPkg.SettledSignal(decimal.RequireFromString("149.99")))

			Expect(err).NotTo(HaveOccurred())
			Expect(wallets.balance.Equal(decimal.RequireFromString("150.00"))).To(BeTrue())
		})

		It("does not repeat the credit on duplicate delivery", func() {
			ledger.put(newPending("tx-1", "150.00"))
			signal := reconcilerPkg.SettledSignal(decimal.RequireFromString("150.00"))

			_, err := reconciler.Observe(ctx, "tx-1", signal)
			Expect(err).NotTo(HaveOccurred())

			result, err := reconciler.Observe(ctx, "tx-1", signal)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Status).To(Equal(transaction.StatusPaid))

			Expect(wallets.balance.Equal(decimal.RequireFromString("150.00"))).To(BeTrue())
			Expect(len(wallets.entries)).To(Equal(1))
		})

		It("settles exactly once under concurrent delivery", func() {
			ledger.put(newPending("tx-1", "150.00"))
			signal := reconcilerPkg.SettledSignal(decimal.RequireFromString("150.00"))

			var wg sync.WaitGroup
			errs := make([]error, 10)
			for i := 0; i < 10; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					_, errs[i] = reconciler.Observe(ctx, "tx-1", signal)
				}(i)
			}
			wg.Wait()

			for _, err := range errs {
				Expect(err).NotTo(HaveOccurred())
			}
			Expect(wallets.balance.Equal(decimal.RequireFromString("150.00"))).To(BeTrue())
			Expect(len(wallets.entries)).To(Equal(1))
		})

		It("surfaces a credit failure so the acquirer redelivers", func() {
			ledger.put(newPending("tx-1", "150.00"))
			wallets.creditError = fmt.Errorf("wallet store unavailable")

			_, err := reconciler.Observe(ctx, "tx-1", reconcilerPkg.SettledSignal(decimal.RequireFromString("150.00")))
			Expect(err).To(HaveOccurred())

			current, _ := ledger.Get(ctx, "tx-1")
			Expect(current.Status).To(Equal(transaction.StatusPaid))
		})

		It("recovers a missed credit when a paid transaction is settled again", func() {
			ledger.put(newPending("tx-1", "150.00"))
			wallets.creditError = fmt.Errorf("wallet store unavailable")
			signal := reconcilerPkg.SettledSignal(decimal.RequireFromString("150.00"))

			_, err := reconciler.Observe(ctx, "tx-1", signal)
			Expect(err).To(HaveOccurred())

			wallets.creditError = nil
			result, err := reconciler.Observe(ctx, "tx-1", signal)

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Status).To(Equal(transaction.StatusPaid))
			Expect(wallets.balance.Equal(decimal.RequireFromString("150.00"))).To(BeTrue())
		})

		It("returns the terminal state when the transition race is lost", func() {
			expired := newPending("tx-1", "150.00")
			expired.Status = transaction.StatusExpired
			ledger.put(expired)

			result, err := reconciler.Observe(ctx, "tx-1", reconcilerPkg.SettledSignal(decimal.RequireFromString("150.00")))

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Status).To(Equal(transaction.StatusExpired))
			Expect(wallets.creditCalls).To(BeZero())
		})
	})

	Describe("failure signals", func() {
		It("transitions to failed and records the reason", func() {
			ledger.put(newPending("tx-1", "150.00"))

			result, err := reconciler.Observe(ctx, "tx-1", reconcilerPkg.FailedSignal("payer rejected charge"))

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Status).To(Equal(transaction.StatusFailed))
			Expect(result.FailureReason).NotTo(BeNil())
			Expect(*result.FailureReason).To(Equal("payer rejected charge"))
			Expect(wallets.creditCalls).To(BeZero())
		})

		It("is a no-op against a paid transaction", func() {
			paid := newPending("tx-1", "150.00")
			paid.Status = transaction.StatusPaid
			ledger.put(paid)

			result, err := reconciler.Observe(ctx, "tx-1", reconcilerPkg.FailedSignal("late failure"))

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Status).To(Equal(transaction.StatusPaid))
		})

		It("is idempotent across duplicate failure deliveries", func() {
			ledger.put(newPending("tx-1", "150.00"))

			_, err := reconciler.Observe(ctx, "tx-1", reconcilerPkg.FailedSignal("payer rejected charge"))
			Expect(err).NotTo(HaveOccurred())

			result, err := reconciler.Observe(ctx, "tx-1", reconcilerPkg.FailedSignal("payer rejected charge"))
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Status).To(Equal(transaction.StatusFailed))
		})
	})
})
