package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/internal/attend/service"
	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/internal/attend/store"
	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/pkg/httpx"
	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/pkg/slogx"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Scanner apps and dashboards connect from arbitrary origins; bearer
	// auth happens before the upgrade.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// SessionStreamHandler bridges a relay subscription onto a websocket. The
// subscriber gets the session snapshot first, then live pushes.
type SessionStreamHandler struct {
	Relay  *service.Relay
	Store  store.Store
	Logger *slog.Logger
}

func (h *SessionStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	sessionID := r.PathValue("id")

	if _, err := h.Store.Sessions().GetSessionByID(ctx, sessionID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "not_found", "Session not found")
			return
		}
		log.Error("session lookup failed", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to fetch session")
		return
	}

	msgs, err := h.Relay.Subscribe(ctx, sessionID)
	if err != nil {
		log.Error("relay subscribe failed", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to subscribe")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		log.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	log.Info("relay stream opened",
		slog.String("session_id", sessionID),
		slog.String("principal", httpx.PrincipalFromCtx(ctx)))

	// Discard inbound frames; this stream is one-way. The read loop also
	// surfaces close frames so the write loop can stop.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()

	for {
		select {
		case m, ok := <-msgs:
			if !ok {
				// Relay shut down; tell the client to go away cleanly.
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
					time.Now().Add(wsWriteWait))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(m); err != nil {
				log.Debug("relay stream write failed", "error", err)
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
