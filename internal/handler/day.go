package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/KenL-TW/travel-planner-pro/internal/apperr"
	"github.com/KenL-TW/travel-planner-pro/internal/store"
	ws "github.com/KenL-TW/travel-planner-pro/internal/websocket"
)

type DayHandler struct {
	days   *store.DayStore
	trips  *store.TripStore
	hub    *ws.Hub
	logger *slog.Logger
}

func NewDayHandler(ds *store.DayStore, ts *store.TripStore, hub *ws.Hub, logger *slog.Logger) *DayHandler {
	return &DayHandler{days: ds, trips: ts, hub: hub, logger: logger}
}

// Create appends a day to the end of the trip.
func (h *DayHandler) Create(w http.ResponseWriter, r *http.Request) {
	tripID := r.PathValue("trip_id")
	trip, err := h.trips.GetByID(tripID)
	if err != nil {
		writeError(w, err)
		return
	}
	if trip == nil {
		writeError(w, apperr.NotFound("trip", tripID))
		return
	}

	day, err := h.days.Append(tripID)
	if err != nil {
		h.logger.Error("append day", "trip_id", tripID, "error", err)
		writeError(w, err)
		return
	}

	h.hub.Broadcast(ws.NewMessage("day", "created", day.ID, tripID))
	writeJSON(w, http.StatusCreated, day)
}

func (h *DayHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	existing, err := h.days.GetByID(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if existing == nil {
		writeError(w, apperr.NotFound("day", id))
		return
	}

	var req struct {
		Date string `json:"date"`
		Note string `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validation("day", "", "invalid JSON"))
		return
	}
	if !validDate(req.Date) {
		writeError(w, apperr.Validation("day", "date", "must be YYYY-MM-DD"))
		return
	}

	day, err := h.days.Update(id, req.Date, req.Note)
	if err != nil {
		h.logger.Error("update day", "day_id", id, "error", err)
		writeError(w, err)
		return
	}

	h.hub.Broadcast(ws.NewMessage("day", "updated", id, day.TripID))
	writeJSON(w, http.StatusOK, day)
}

// Delete removes the day, cascading its events and tasks, and renumbers the
// trip's remaining days.
func (h *DayHandler) Delete(w http.ResponseWriter, r *http.Request) {
	tripID := r.PathValue("trip_id")
	id := r.PathValue("id")

	existing, err := h.days.GetByID(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if existing == nil || existing.TripID != tripID {
		writeError(w, apperr.NotFound("day", id))
		return
	}

	if err := h.days.Delete(id, tripID); err != nil {
		h.logger.Error("delete day", "day_id", id, "error", err)
		writeError(w, err)
		return
	}

	h.hub.Broadcast(ws.NewMessage("day", "deleted", id, tripID))
	w.WriteHeader(http.StatusNoContent)
}
