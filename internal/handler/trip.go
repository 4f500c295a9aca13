package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/KenL-TW/travel-planner-pro/internal/apperr"
	"github.com/KenL-TW/travel-planner-pro/internal/model"
	"github.com/KenL-TW/travel-planner-pro/internal/store"
	"github.com/KenL-TW/travel-planner-pro/internal/transfer"
	ws "github.com/KenL-TW/travel-planner-pro/internal/websocket"
)

type TripHandler struct {
	trips    *store.TripStore
	members  *store.MemberStore
	transfer *transfer.Service
	hub      *ws.Hub
	logger   *slog.Logger
}

func NewTripHandler(ts *store.TripStore, ms *store.MemberStore, tr *transfer.Service, hub *ws.Hub, logger *slog.Logger) *TripHandler {
	return &TripHandler{trips: ts, members: ms, transfer: tr, hub: hub, logger: logger}
}

type tripRequest struct {
	Title       string `json:"title"`
	Destination string `json:"destination"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	Currency    string `json:"currency"`
}

func (h *TripHandler) parseAndValidate(w http.ResponseWriter, r *http.Request) (*tripRequest, bool) {
	var req tripRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validation("trip", "", "invalid JSON"))
		return nil, false
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, apperr.Validation("trip", "title", "title is required"))
		return nil, false
	}
	if !validDate(req.StartDate) {
		writeError(w, apperr.Validation("trip", "start_date", "must be YYYY-MM-DD"))
		return nil, false
	}
	if !validDate(req.EndDate) {
		writeError(w, apperr.Validation("trip", "end_date", "must be YYYY-MM-DD"))
		return nil, false
	}
	return &req, true
}

func (h *TripHandler) List(w http.ResponseWriter, r *http.Request) {
	trips, err := h.trips.List()
	if err != nil {
		h.logger.Error("list trips", "error", err)
		writeError(w, err)
		return
	}
	if trips == nil {
		trips = []model.Trip{}
	}
	writeJSON(w, http.StatusOK, trips)
}

func (h *TripHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseAndValidate(w, r)
	if !ok {
		return
	}

	trip, err := h.trips.Create(req.Title, req.Destination, req.StartDate, req.EndDate, req.Currency)
	if err != nil {
		h.logger.Error("create trip", "error", err)
		writeError(w, err)
		return
	}

	h.hub.Broadcast(ws.NewMessage("trip", "created", trip.ID, trip.ID))
	writeJSON(w, http.StatusCreated, trip)
}

func (h *TripHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	trip, err := h.trips.GetByID(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if trip == nil {
		writeError(w, apperr.NotFound("trip", id))
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

// Plan returns the assembled trip: days with events and tasks, checklists
// with items, and the active team.
func (h *TripHandler) Plan(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	te, team, err := h.transfer.AssembleTrip(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if team == nil {
		team = []model.Member{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"trip":       te.Trip,
		"days":       te.Days,
		"checklists": te.Checklists,
		"members":    team,
	})
}

func (h *TripHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	existing, err := h.trips.GetByID(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if existing == nil {
		writeError(w, apperr.NotFound("trip", id))
		return
	}

	req, ok := h.parseAndValidate(w, r)
	if !ok {
		return
	}
	if req.Currency == "" {
		req.Currency = existing.Currency
	}

	trip, err := h.trips.Update(id, req.Title, req.Destination, req.StartDate, req.EndDate, req.Currency)
	if err != nil {
		h.logger.Error("update trip", "trip_id", id, "error", err)
		writeError(w, err)
		return
	}

	h.hub.Broadcast(ws.NewMessage("trip", "updated", id, id))
	writeJSON(w, http.StatusOK, trip)
}

func (h *TripHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	existing, err := h.trips.GetByID(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if existing == nil {
		writeError(w, apperr.NotFound("trip", id))
		return
	}

	if err := h.trips.Delete(id); err != nil {
		h.logger.Error("delete trip", "trip_id", id, "error", err)
		writeError(w, err)
		return
	}

	h.hub.Broadcast(ws.NewMessage("trip", "deleted", id, id))
	w.WriteHeader(http.StatusNoContent)
}

func (h *TripHandler) Team(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	trip, err := h.trips.GetByID(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if trip == nil {
		writeError(w, apperr.NotFound("trip", id))
		return
	}

	team, err := h.trips.Team(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if team == nil {
		team = []model.Member{}
	}
	writeJSON(w, http.StatusOK, team)
}

func (h *TripHandler) AddTeamMember(w http.ResponseWriter, r *http.Request) {
	tripID := r.PathValue("id")
	memberID := r.PathValue("member_id")

	trip, err := h.trips.GetByID(tripID)
	if err != nil {
		writeError(w, err)
		return
	}
	if trip == nil {
		writeError(w, apperr.NotFound("trip", tripID))
		return
	}

	member, err := h.members.GetByID(memberID)
	if err != nil {
		writeError(w, err)
		return
	}
	if member == nil {
		writeError(w, apperr.NotFound("member", memberID))
		return
	}
	if !member.Active {
		writeError(w, apperr.Constraint("member", memberID, "member is deactivated"))
		return
	}

	if err := h.trips.AddTeamMember(tripID, memberID); err != nil {
		h.logger.Error("add team member", "trip_id", tripID, "member_id", memberID, "error", err)
		writeError(w, err)
		return
	}

	h.hub.Broadcast(ws.NewMessage("team", "updated", memberID, tripID))
	w.WriteHeader(http.StatusNoContent)
}

// RemoveTeamMember takes the member off the team and unassigns their tasks
// on this trip. The member record itself is untouched.
func (h *TripHandler) RemoveTeamMember(w http.ResponseWriter, r *http.Request) {
	tripID := r.PathValue("id")
	memberID := r.PathValue("member_id")

	trip, err := h.trips.GetByID(tripID)
	if err != nil {
		writeError(w, err)
		return
	}
	if trip == nil {
		writeError(w, apperr.NotFound("trip", tripID))
		return
	}

	if err := h.trips.RemoveTeamMember(tripID, memberID); err != nil {
		h.logger.Error("remove team member", "trip_id", tripID, "member_id", memberID, "error", err)
		writeError(w, err)
		return
	}

	h.hub.Broadcast(ws.NewMessage("team", "updated", memberID, tripID))
	w.WriteHeader(http.StatusNoContent)
}
