package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/internal/attend/service"
	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/internal/attend/store"
	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/pkg/httpx"
	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/pkg/slogx"
)

type AccountsHandler struct {
	CredentialService *service.CredentialService
}

type createAccountRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type createAccountResponse struct {
	AccountID string `json:"account_id"`
	Username  string `json:"username"`
	Role      string `json:"role"`
}

func (h *AccountsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	if req.Username == "" || req.Password == "" || req.Role == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "username, password, and role are required")
		return
	}

	acc, err := h.CredentialService.CreateAccount(ctx, req.Username, req.Password, req.Role)
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			httpx.WriteError(w, http.StatusConflict, "conflict", "Username already taken")
			return
		}
		log.Error("account creation failed", "error", err)
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, createAccountResponse{
		AccountID: acc.ID,
		Username:  acc.Username,
		Role:      acc.Role,
	})
}
