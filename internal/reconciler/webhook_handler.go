package reconciler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	apperrors "github.com/brpay/pix-gateway/internal"
	"github.com/brpay/pix-gateway/internal/acquirer"
	acquirertypes "github.com/brpay/pix-gateway/internal/core/datamodel/acquirer"
	"github.com/brpay/pix-gateway/internal/transaction"
	"github.com/brpay/pix-gateway/internal/transport"
)

// TransactionFinder resolves the acquirer's txid to our transaction.
type TransactionFinder interface {
	GetByAcquirerTxID(txid string) (*transaction.Transaction, error)
}

type WebhookHandler struct {
	*transport.BaseHandler
	reconciler    *Service
	finder        TransactionFinder
	webhookSecret string
	logger        *slog.Logger
}

func NewWebhookHandler(baseHandler *transport.BaseHandler, reconciler *Service, finder TransactionFinder, webhookSecret string, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		BaseHandler:   baseHandler,
		reconciler:    reconciler,
		finder:        finder,
		webhookSecret: webhookSecret,
		logger:        logger,
	}
}

type WebhookResponse struct {
	Status        string `json:"status"`
	TransactionID string `json:"transaction_id"`
	Message       string `json:"message"`
}

// HandleSettlementCallback receives the acquirer's settlement notification.
// Returning a non-2xx status makes the acquirer redeliver, so only errors
// where a retry can succeed map to 5xx; duplicates return 200.
func (h *WebhookHandler) HandleSettlementCallback(w http.ResponseWriter, r *http.Request) {
	rawBody, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Error("failed to read webhook body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !acquirer.VerifySignature(rawBody, r.Header.Get(acquirer.SignatureHeader), h.webhookSecret) {
		h.logger.Warn("webhook signature verification failed")
		h.WriteError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	var payload acquirertypes.WebhookPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		h.logger.Error("invalid webhook payload", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.logger.Info("received settlement callback",
		"txid", payload.TxID,
		"status", payload.Status,
		"amount", payload.Amount.StringFixed(2))

	if payload.TxID == "" {
		h.WriteError(w, http.StatusBadRequest, "txid is required")
		return
	}

	signal, ok := mapWebhookStatus(&payload)
	if !ok {
		h.logger.Error("unknown webhook status", "txid", payload.TxID, "status", payload.Status)
		h.WriteError(w, http.StatusBadRequest, "unknown status")
		return
	}

	txn, err := h.finder.GetByAcquirerTxID(payload.TxID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			h.logger.Warn("no transaction for webhook txid", "txid", payload.TxID)
		}
		h.HandleServiceError(w, err)
		return
	}

	result, err := h.reconciler.Observe(r.Context(), txn.ID, signal)
	if err != nil {
		h.logger.Error("failed to process settlement callback",
			"error", err,
			"txid", payload.TxID,
			"transaction_id", txn.ID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, WebhookResponse{
		Status:        result.Status,
		TransactionID: result.ID,
		Message:       "callback processed",
	})
}

// mapWebhookStatus translates acquirer vocabulary into a signal. A returned
// payment (DEVOLVIDA) means the payer was refunded by the acquirer, so it is
// treated as a failure.
func mapWebhookStatus(payload *acquirertypes.WebhookPayload) (Signal, bool) {
	switch payload.Status {
	case acquirertypes.WebhookStatusConfirmed:
		return SettledSignal(payload.Amount), true
	case acquirertypes.WebhookStatusFailed:
		reason := payload.FailureReason
		if reason == "" {
			reason = "payment not completed"
		}
		return FailedSignal(reason), true
	case acquirertypes.WebhookStatusReturned:
		reason := payload.FailureReason
		if reason == "" {
			reason = "payment returned to payer"
		}
		return FailedSignal(reason), true
	default:
		return Signal{}, false
	}
}
