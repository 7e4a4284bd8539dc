package reconciler_test

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	apperrors "github.com/brpay/pix-gateway/internal"
	"github.com/brpay/pix-gateway/internal/acquirer"
	"github.com/brpay/pix-gateway/internal/core/events"
	reconcilerPkg "github.com/brpay/pix-gateway/internal/reconciler"
	"github.com/brpay/pix-gateway/internal/transaction"
	"github.com/brpay/pix-gateway/internal/transport"
)

type mockTransactionFinder struct {
	byTxID   map[string]*transaction.Transaction
	getError error
}

func (m *mockTransactionFinder) GetByAcquirerTxID(txid string) (*transaction.Transaction, error) {
	if m.getError != nil {
		return nil, m.getError
	}
	txn, ok := m.byTxID[txid]
	if !ok {
		return nil, apperrors.ErrTransactionNotFound
	}
	return txn, nil
}

var _ = Describe("WebhookHandler", func() {
	const secret = "webhook-test-secret"

	var (
		ledger  *mockTransactionLedger
		wallets *mockWalletLedger
		finder  *mockTransactionFinder
		handler *reconcilerPkg.WebhookHandler
		now     time.Time
	)

	seedPending := func(id, txid, amount string) {
		acquirerTxID := txid
		txn := &transaction.Transaction{
			ID:           id,
			UserID:       42,
			Amount:       decimal.RequireFromString(amount),
			Status:       transaction.StatusPending,
			AcquirerTxID: &acquirerTxID,
			ExpiresAt:    now.Add(time.Hour),
			CreatedAt:    now,
		}
		ledger.put(txn)
		finder.byTxID[txid] = txn
	}

	postCallback := func(body []byte, signature string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/pix/callback", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(acquirer.SignatureHeader, signature)
		rec := httptest.NewRecorder()
		handler.HandleSettlementCallback(rec, req)
		return rec
	}

	signedCallback := func(body []byte) *httptest.ResponseRecorder {
		return postCallback(body, acquirer.SignPayload(body, secret))
	}

	BeforeEach(func() {
		now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
		ledger = newMockTransactionLedger()
		wallets = newMockWalletLedger()
		finder = &mockTransactionFinder{byTxID: make(map[string]*transaction.Transaction)}

		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
		eventBus := events.NewEventBus(logger)
		reconciler := reconcilerPkg.NewService(ledger, wallets, eventBus, logger).
			WithClock(func() time.Time { return now })
		handler = reconcilerPkg.NewWebhookHandler(transport.NewBaseHandler(logger), reconciler, finder, secret, logger)
	})

	It("rejects a callback with a bad signature", func() {
		seedPending("tx-1", "E123", "150.00")
		body := []byte(`{"txid":"E123","status":"CONCLUIDA","amount":"150.00"}`)

		rec := postCallback(body, "deadbeef")

		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		Expect(wallets.creditCalls).To(BeZero())
	})

	It("rejects a malformed body", func() {
		body := []byte(`{"txid":`)

		rec := signedCallback(body)

		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("rejects an unknown status", func() {
		seedPending("tx-1", "E123", "150.00")
		body := []byte(`{"txid":"E123","status":"EM_PROCESSAMENTO","amount":"150.00"}`)

		rec := signedCallback(body)

		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("returns not found for an unknown txid", func() {
		body := []byte(`{"txid":"E999","status":"CONCLUIDA","amount":"150.00"}`)

		rec := signedCallback(body)

		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})

	It("answers 5xx when the transaction lookup fails so the acquirer redelivers", func() {
		finder.getError = fmt.Errorf("connection refused")
		body := []byte(`{"txid":"E123","status":"CONCLUIDA","amount":"150.00"}`)

		rec := signedCallback(body)

		Expect(rec.Code).To(Equal(http.StatusInternalServerError))
	})

	It("settles the charge and credits the wallet", func() {
		seedPending("tx-1", "E123", "150.00")
		body := []byte(`{"txid":"E123","status":"CONCLUIDA","amount":"150.00"}`)

		rec := signedCallback(body)

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring(`"status":"paid"`))

		current, _ := ledger.Get(context.Background(), "tx-1")
		Expect(current.Status).To(Equal(transaction.StatusPaid))
		Expect(wallets.balance.Equal(decimal.RequireFromString("150.00"))).To(BeTrue())
	})

	It("returns 200 on duplicate delivery without repeating the credit", func() {
		seedPending("tx-1", "E123", "150.00")
		body := []byte(`{"txid":"E123","status":"CONCLUIDA","amount":"150.00"}`)

		Expect(signedCallback(body).Code).To(Equal(http.StatusOK))
		Expect(signedCallback(body).Code).To(Equal(http.StatusOK))

		Expect(wallets.balance.Equal(decimal.RequireFromString("150.00"))).To(BeTrue())
		Expect(len(wallets.entries)).To(Equal(1))
	})

	It("rejects a mismatched amount with 422 and leaves the charge pending", func() {
		seedPending("tx-1", "E123", "150.00")
		body := []byte(`{"txid":"E123","status":"CONCLUIDA","amount":"140.00"}`)

		rec := signedCallback(body)

		Expect(rec.Code).To(Equal(http.StatusUnprocessableEntity))

		current, _ := ledger.Get(context.Background(), "tx-1")
		Expect(current.Status).To(Equal(transaction.StatusPending))
	})

	It("marks the charge failed on a failure callback", func() {
		seedPending("tx-1", "E123", "150.00")
		body := []byte(`{"txid":"E123","status":"NAO_REALIZADA","failure_reason":"saldo insuficiente"}`)

		rec := signedCallback(body)

		Expect(rec.Code).To(Equal(http.StatusOK))

		current, _ := ledger.Get(context.Background(), "tx-1")
		Expect(current.Status).To(Equal(transaction.StatusFailed))
		Expect(*current.FailureReason).To(Equal("saldo insuficiente"))
	})

	It("treats a returned payment as a failure", func() {
		seedPending("tx-1", "E123", "150.00")
		body := []byte(`{"txid":"E123","status":"DEVOLVIDA"}`)

		rec := signedCallback(body)

		Expect(rec.Code).To(Equal(http.StatusOK))

		current, _ := ledger.Get(context.Background(), "tx-1")
		Expect(current.Status).To(Equal(transaction.StatusFailed))
	})

	It("answers 5xx when the credit fails so the acquirer redelivers", func() {
		seedPending("tx-1", "E123", "150.00")
		wallets.creditError = fmt.Errorf("wallet store unavailable")
		body := []byte(`{"txid":"E123","status":"CONCLUIDA","amount":"150.00"}`)

		rec := signedCallback(body)

		Expect(rec.Code).To(BeNumerically(">=", 500))

		wallets.creditError = nil
		Expect(signedCallback(body).Code).To(Equal(http.StatusOK))
		Expect(wallets.balance.Equal(decimal.RequireFromString("150.00"))).To(BeTrue())
	})
})
