package transaction

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	errors "github.com/brpay/pix-gateway/internal"
	"github.com/brpay/pix-gateway/internal/auth"
	"github.com/brpay/pix-gateway/internal/transport"
	"github.com/brpay/pix-gateway/pkg/logger"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	Create(ctx context.Context, userID int64, dto *CreateTransactionDTO) (*Transaction, error)
	Get(ctx context.Context, id string) (*Transaction, error)
	GetUserTransactions(userID int64, limit, offset int) ([]*Transaction, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(service ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
	}
}

func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.Logger.Error("CreateTransaction: user not found in context")
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto CreateTransactionDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("CreateTransaction: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	txn, err := h.Service.Create(r.Context(), user.ID, &dto)
	if err != nil {
		h.Logger.Error("CreateTransaction: service error", "error", err, "user_id", user.ID)
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("CreateTransaction: charge created",
		"transaction_id", txn.ID,
		"user_id", user.ID,
		"amount", txn.Amount.StringFixed(2))

	h.WriteJSON(w, http.StatusCreated, ToResponse(txn))
}

// GetTransaction reads one transaction. The read itself finalizes expiry, so
// a poll after the window closes observes expired, never stale pending.
// Other users' transactions read as not found rather than forbidden.
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.Logger.Error("GetTransaction: user not found in context")
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		h.WriteError(w, http.StatusBadRequest, "transaction ID is required")
		return
	}

	txn, err := h.Service.Get(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	if txn.UserID != user.ID {
		h.Logger.Warn("GetTransaction: ownership mismatch", "transaction_id", id, "user_id", user.ID)
		h.HandleServiceError(w, errors.NewNotFoundError("transaction not found", errors.ErrCodeTransactionNotFound))
		return
	}

	h.WriteJSON(w, http.StatusOK, ToResponse(txn))
}

func (h *Handler) GetUserTransactions(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.Logger.Error("GetUserTransactions: user not found in context")
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	limit := 20
	offset := 0

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}

	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}

	transactions, err := h.Service.GetUserTransactions(user.ID, limit, offset)
	if err != nil {
		h.Logger.Error("GetUserTransactions: service error", "error", err, "user_id", user.ID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": ToResponseSlice(transactions),
		"limit":        limit,
		"offset":       offset,
	})
}
