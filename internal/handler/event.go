package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/KenL-TW/travel-planner-pro/internal/apperr"
	"github.com/KenL-TW/travel-planner-pro/internal/model"
	"github.com/KenL-TW/travel-planner-pro/internal/store"
	ws "github.com/KenL-TW/travel-planner-pro/internal/websocket"
)

type EventHandler struct {
	events *store.EventStore
	days   *store.DayStore
	hub    *ws.Hub
	logger *slog.Logger
}

func NewEventHandler(es *store.EventStore, ds *store.DayStore, hub *ws.Hub, logger *slog.Logger) *EventHandler {
	return &EventHandler{events: es, days: ds, hub: hub, logger: logger}
}

// Create inserts a blank event into the day; the UI fills it in with Update.
func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	dayID := r.PathValue("day_id")
	day, err := h.days.GetByID(dayID)
	if err != nil {
		writeError(w, err)
		return
	}
	if day == nil {
		writeError(w, apperr.NotFound("day", dayID))
		return
	}

	event, err := h.events.Create(day.TripID, dayID)
	if err != nil {
		h.logger.Error("create event", "day_id", dayID, "error", err)
		writeError(w, err)
		return
	}

	h.hub.Broadcast(ws.NewMessage("event", "created", event.ID, day.TripID))
	writeJSON(w, http.StatusCreated, event)
}

func (h *EventHandler) ListByDay(w http.ResponseWriter, r *http.Request) {
	dayID := r.PathValue("day_id")
	day, err := h.days.GetByID(dayID)
	if err != nil {
		writeError(w, err)
		return
	}
	if day == nil {
		writeError(w, apperr.NotFound("day", dayID))
		return
	}

	events, err := h.events.ListByDay(dayID)
	if err != nil {
		writeError(w, err)
		return
	}
	if events == nil {
		events = []model.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	event, err := h.events.GetByID(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if event == nil {
		writeError(w, apperr.NotFound("event", id))
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	existing, err := h.events.GetByID(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if existing == nil {
		writeError(w, apperr.NotFound("event", id))
		return
	}

	var req struct {
		Time     string  `json:"time"`
		Title    string  `json:"title"`
		Location string  `json:"location"`
		Category string  `json:"category"`
		Cost     float64 `json:"cost"`
		Notes    string  `json:"notes"`
		Tags     string  `json:"tags"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validation("event", "", "invalid JSON"))
		return
	}
	if !validClock(req.Time) {
		writeError(w, apperr.Validation("event", "time", "must be HH:MM"))
		return
	}
	if req.Cost < 0 {
		writeError(w, apperr.Validation("event", "cost", "must not be negative"))
		return
	}

	event, err := h.events.Update(id, req.Time, req.Title, req.Location, req.Category, req.Cost, req.Notes, req.Tags)
	if err != nil {
		h.logger.Error("update event", "event_id", id, "error", err)
		writeError(w, err)
		return
	}

	h.hub.Broadcast(ws.NewMessage("event", "updated", id, event.TripID))
	writeJSON(w, http.StatusOK, event)
}

// Delete removes the event; its tasks cascade.
func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	existing, err := h.events.GetByID(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if existing == nil {
		writeError(w, apperr.NotFound("event", id))
		return
	}

	if err := h.events.Delete(id); err != nil {
		h.logger.Error("delete event", "event_id", id, "error", err)
		writeError(w, err)
		return
	}

	h.hub.Broadcast(ws.NewMessage("event", "deleted", id, existing.TripID))
	w.WriteHeader(http.StatusNoContent)
}
