package wallet

import (
	"net/http"
	"strconv"

	"github.com/brpay/pix-gateway/internal/auth"
	"github.com/brpay/pix-gateway/internal/transport"
)

type ServiceAPI interface {
	GetBalance(userID int64) (*WalletBalance, error)
	GetTransactions(userID int64, limit, offset int) ([]*WalletTransaction, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(nil),
		Service:     service,
	}
}

type BalanceResponse struct {
	UserID    int64  `json:"user_id"`
	Balance   string `json:"balance"`
	UpdatedAt string `json:"updated_at"`
}

func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	balance, err := h.Service.GetBalance(user.ID)
	if err != nil {
		h.Logger.Error("GetBalance: service error", "error", err, "user_id", user.ID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, BalanceResponse{
		UserID:    balance.UserID,
		Balance:   balance.Balance.StringFixed(2),
		UpdatedAt: balance.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
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

	transactions, err := h.Service.GetTransactions(user.ID, limit, offset)
	if err != nil {
		h.Logger.Error("GetTransactions: service error", "error", err, "user_id", user.ID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": transactions,
		"limit":        limit,
		"offset":       offset,
	})
}
