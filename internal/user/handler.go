package user

import (
	"encoding/json"
	"net/http"

	"github.com/brpay/pix-gateway/internal/auth"
	"github.com/brpay/pix-gateway/internal/transport"
)

type ServiceAPI interface {
	GetByID(id int64) (*User, error)
	UpdatePixKey(id int64, dto *UpdatePixKeyDTO) (*User, error)
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

func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	authUser, ok := auth.UserFromContext(r.Context())
	if !ok || authUser == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.Service.GetByID(authUser.ID)
	if err != nil {
		h.Logger.Error("GetCurrentUser: service error", "error", err, "user_id", authUser.ID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) UpdatePixKey(w http.ResponseWriter, r *http.Request) {
	authUser, ok := auth.UserFromContext(r.Context())
	if !ok || authUser == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto UpdatePixKeyDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.Service.UpdatePixKey(authUser.ID, &dto)
	if err != nil {
		h.Logger.Error("UpdatePixKey: service error", "error", err, "user_id", authUser.ID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, user)
}
