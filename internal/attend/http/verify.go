package http

import (
	"encoding/json"
	"net/http"

	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/internal/attend/domain"
	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/internal/attend/service"
	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/pkg/httpx"
	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/pkg/slogx"
)

type VerifyHandler struct {
	VerifyService *service.VerifyService
}

type verifyRequest struct {
	SessionID string                `json:"session_id"`
	Token     string                `json:"qr_token"`
	Sensors   domain.SensorSnapshot `json:"sensors"`
}

type verifyResponse struct {
	Matched    bool                 `json:"matched"`
	Confidence float64              `json:"confidence"`
	Reason     string               `json:"reason,omitempty"`
	Scores     domain.ChannelScores `json:"scores"`
}

func (h *VerifyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	if req.SessionID == "" || req.Token == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "session_id and qr_token are required")
		return
	}

	verdict, err := h.VerifyService.Verify(ctx, service.VerifyRequest{
		SessionID: req.SessionID,
		HolderID:  httpx.PrincipalFromCtx(ctx),
		Token:     req.Token,
		Sensors:   req.Sensors,
	})
	if err != nil {
		log.Error("verification failed", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Verification failed")
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, verifyResponse{
		Matched:    verdict.Matched,
		Confidence: verdict.Confidence,
		Reason:     string(verdict.Reason),
		Scores:     verdict.Scores,
	})
}
