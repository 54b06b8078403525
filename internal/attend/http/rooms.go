package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/internal/attend/domain"
	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/internal/attend/store"
	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/pkg/httpx"
	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/pkg/idx"
	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/pkg/slogx"
)

type RoomsHandler struct {
	Store store.Store
}

type roomPayload struct {
	ID             string   `json:"id,omitempty"`
	Name           string   `json:"name"`
	WifiSSID       string   `json:"wifi_ssid,omitempty"`
	WifiBSSID      string   `json:"wifi_bssid,omitempty"`
	Beacons        []string `json:"beacons,omitempty"`
	Latitude       float64  `json:"latitude,omitempty"`
	Longitude      float64  `json:"longitude,omitempty"`
	GeofenceRadius float64  `json:"geofence_radius,omitempty"`
}

func roomToPayload(r domain.RoomProfile) roomPayload {
	return roomPayload{
		ID:             r.ID,
		Name:           r.Name,
		WifiSSID:       r.WifiSSID,
		WifiBSSID:      r.WifiBSSID,
		Beacons:        r.Beacons,
		Latitude:       r.Latitude,
		Longitude:      r.Longitude,
		GeofenceRadius: r.GeofenceRadius,
	}
}

func (h *RoomsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req roomPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	if req.Name == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "name is required")
		return
	}

	room := domain.RoomProfile{
		ID:             idx.New().String(),
		Name:           req.Name,
		WifiSSID:       req.WifiSSID,
		WifiBSSID:      req.WifiBSSID,
		Beacons:        req.Beacons,
		Latitude:       req.Latitude,
		Longitude:      req.Longitude,
		GeofenceRadius: req.GeofenceRadius,
	}
	if err := h.Store.Rooms().CreateRoom(ctx, room); err != nil {
		log.Error("room creation failed", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to create room")
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, roomToPayload(room))
}

func (h *RoomsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	rooms, err := h.Store.Rooms().ListRooms(ctx)
	if err != nil {
		slogx.FromContext(ctx).Error("room listing failed", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to list rooms")
		return
	}

	out := make([]roomPayload, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, roomToPayload(room))
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"rooms": out})
}

func (h *RoomsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	room, err := h.Store.Rooms().GetRoomByID(ctx, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "not_found", "Room not found")
			return
		}
		slogx.FromContext(ctx).Error("room lookup failed", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to fetch room")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, roomToPayload(room))
}
