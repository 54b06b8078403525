package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/internal/attend/service"
	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/pkg/httpx"
	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/pkg/slogx"
)

type LoginHandler struct {
	CredentialService *service.CredentialService
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	AccountID   string `json:"account_id"`
	Role        string `json:"role"`
}

func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	if req.Username == "" || req.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "username and password are required")
		return
	}

	token, acc, err := h.CredentialService.Login(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			httpx.WriteError(w, http.StatusUnauthorized, "invalid_grant", "Invalid username or password")
			return
		}
		log.Error("login failed", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Login failed")
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, loginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		AccountID:   acc.ID,
		Role:        acc.Role,
	})
}
