package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/internal/attend/domain"
	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/internal/attend/service"
	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/pkg/httpx"
	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/pkg/slogx"
)

type SessionsHandler struct {
	SessionService *service.SessionService
}

type startSessionRequest struct {
	ClassID           string `json:"class_id"`
	RoomID            string `json:"room_id"`
	SubjectID         string `json:"subject_id"`
	ExpectedAttendees int    `json:"expected_attendees"`
}

type sessionResponse struct {
	SessionID string     `json:"session_id"`
	HostID    string     `json:"host_id"`
	ClassID   string     `json:"class_id"`
	RoomID    string     `json:"room_id"`
	SubjectID string     `json:"subject_id"`
	Status    string     `json:"status"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`

	TotalPresent int `json:"total_present"`
	TotalFailed  int `json:"total_failed"`
	TotalPending int `json:"total_pending"`
	Total        int `json:"total"`
}

func (h *SessionsHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	if req.ClassID == "" || req.RoomID == "" || req.SubjectID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "class_id, room_id, and subject_id are required")
		return
	}

	sess, err := h.SessionService.Start(ctx, service.StartSessionRequest{
		HostID:            httpx.PrincipalFromCtx(ctx),
		ClassID:           req.ClassID,
		RoomID:            req.RoomID,
		SubjectID:         req.SubjectID,
		ExpectedAttendees: req.ExpectedAttendees,
	})
	if err != nil {
		if errors.Is(err, service.ErrRoomNotFound) {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Unknown room")
			return
		}
		log.Error("session start failed", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to start session")
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, sessionResponse{
		SessionID:    sess.ID,
		HostID:       sess.HostID,
		ClassID:      sess.ClassID,
		RoomID:       sess.RoomID,
		SubjectID:    sess.SubjectID,
		Status:       sess.Status,
		StartedAt:    sess.StartedAt,
		TotalPending: sess.ExpectedAttendees,
		Total:        sess.ExpectedAttendees,
	})
}

func (h *SessionsHandler) HandleEnd(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	// Hosts normally complete a session; abandoning one marks it expired.
	status := domain.SessionCompleted
	if r.URL.Query().Get("expire") == "true" {
		status = domain.SessionExpired
	}

	sess, err := h.SessionService.End(ctx, r.PathValue("id"), httpx.PrincipalFromCtx(ctx), status)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSessionNotFound):
			httpx.WriteError(w, http.StatusNotFound, "not_found", "Session not found")
		case errors.Is(err, service.ErrSessionNotOwned):
			httpx.WriteError(w, http.StatusForbidden, "forbidden", "Session belongs to another host")
		case errors.Is(err, service.ErrSessionEnded):
			httpx.WriteError(w, http.StatusConflict, "conflict", "Session already ended")
		default:
			log.Error("session end failed", "error", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to end session")
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, sessionResponse{
		SessionID: sess.ID,
		HostID:    sess.HostID,
		ClassID:   sess.ClassID,
		RoomID:    sess.RoomID,
		SubjectID: sess.SubjectID,
		Status:    sess.Status,
		StartedAt: sess.StartedAt,
		EndedAt:   sess.EndedAt,
	})
}

func (h *SessionsHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sess, tally, err := h.SessionService.Status(ctx, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "not_found", "Session not found")
			return
		}
		slogx.FromContext(ctx).Error("session status failed", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to fetch session")
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, sessionResponse{
		SessionID:    sess.ID,
		HostID:       sess.HostID,
		ClassID:      sess.ClassID,
		RoomID:       sess.RoomID,
		SubjectID:    sess.SubjectID,
		Status:       sess.Status,
		StartedAt:    sess.StartedAt,
		EndedAt:      sess.EndedAt,
		TotalPresent: tally.Present,
		TotalFailed:  tally.Failed,
		TotalPending: tally.Pending,
		Total:        tally.Total,
	})
}
