package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/KenL-TW/travel-planner-pro/internal/apperr"
	"github.com/KenL-TW/travel-planner-pro/internal/model"
	"github.com/KenL-TW/travel-planner-pro/internal/store"
	ws "github.com/KenL-TW/travel-planner-pro/internal/websocket"
)

type ChecklistHandler struct {
	checklists *store.ChecklistStore
	trips      *store.TripStore
	hub        *ws.Hub
	logger     *slog.Logger
}

func NewChecklistHandler(cs *store.ChecklistStore, ts *store.TripStore, hub *ws.Hub, logger *slog.Logger) *ChecklistHandler {
	return &ChecklistHandler{checklists: cs, trips: ts, hub: hub, logger: logger}
}

func (h *ChecklistHandler) Create(w http.ResponseWriter, r *http.Request) {
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

	var req struct {
		Key   string `json:"list_key"`
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validation("checklist", "", "invalid JSON"))
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, apperr.Validation("checklist", "title", "title is required"))
		return
	}
	// An omitted key means a custom list; the store applies the default.
	req.Key = strings.TrimSpace(req.Key)
	switch req.Key {
	case "", model.ChecklistKeyDocuments, model.ChecklistKeyPacking, model.ChecklistKeyCustom:
	default:
		writeError(w, apperr.Validation("checklist", "list_key", "unknown list key"))
		return
	}

	list, err := h.checklists.Create(tripID, req.Key, req.Title)
	if err != nil {
		h.logger.Error("create checklist", "trip_id", tripID, "error", err)
		writeError(w, err)
		return
	}

	h.hub.Broadcast(ws.NewMessage("checklist", "created", list.ID, tripID))
	writeJSON(w, http.StatusCreated, list)
}

func (h *ChecklistHandler) List(w http.ResponseWriter, r *http.Request) {
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

	lists, err := h.checklists.ListByTrip(tripID)
	if err != nil {
		writeError(w, err)
		return
	}

	type listWithItems struct {
		model.Checklist
		Items []model.ChecklistItem `json:"items"`
	}
	out := make([]listWithItems, 0, len(lists))
	for _, l := range lists {
		items, err := h.checklists.ListItems(l.ID)
		if err != nil {
			writeError(w, err)
			return
		}
		if items == nil {
			items = []model.ChecklistItem{}
		}
		out = append(out, listWithItems{Checklist: l, Items: items})
	}
	writeJSON(w, http.StatusOK, out)
}

// Delete removes the checklist; its items cascade.
func (h *ChecklistHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	existing, err := h.checklists.GetByID(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if existing == nil {
		writeError(w, apperr.NotFound("checklist", id))
		return
	}

	if err := h.checklists.Delete(id); err != nil {
		h.logger.Error("delete checklist", "checklist_id", id, "error", err)
		writeError(w, err)
		return
	}

	h.hub.Broadcast(ws.NewMessage("checklist", "deleted", id, existing.TripID))
	w.WriteHeader(http.StatusNoContent)
}

// --- Item handlers ---

func (h *ChecklistHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	checklistID := r.PathValue("checklist_id")
	list, err := h.checklists.GetByID(checklistID)
	if err != nil {
		writeError(w, err)
		return
	}
	if list == nil {
		writeError(w, apperr.NotFound("checklist", checklistID))
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validation("checklist_item", "", "invalid JSON"))
		return
	}
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		writeError(w, apperr.Validation("checklist_item", "text", "text is required"))
		return
	}

	item, err := h.checklists.CreateItem(checklistID, req.Text)
	if err != nil {
		h.logger.Error("create checklist item", "checklist_id", checklistID, "error", err)
		writeError(w, err)
		return
	}

	h.hub.Broadcast(ws.NewMessage("checklist_item", "created", item.ID, list.TripID))
	writeJSON(w, http.StatusCreated, item)
}

func (h *ChecklistHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	existing, err := h.checklists.GetItemByID(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if existing == nil {
		writeError(w, apperr.NotFound("checklist_item", id))
		return
	}

	var req struct {
		Text    string `json:"text"`
		Checked bool   `json:"checked"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validation("checklist_item", "", "invalid JSON"))
		return
	}
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		writeError(w, apperr.Validation("checklist_item", "text", "text is required"))
		return
	}

	item, err := h.checklists.UpdateItem(id, req.Text, req.Checked)
	if err != nil {
		h.logger.Error("update checklist item", "item_id", id, "error", err)
		writeError(w, err)
		return
	}

	h.broadcastItem(item, "updated")
	writeJSON(w, http.StatusOK, item)
}

func (h *ChecklistHandler) ToggleItem(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	item, err := h.checklists.ToggleItem(id)
	if err != nil {
		h.logger.Error("toggle checklist item", "item_id", id, "error", err)
		writeError(w, err)
		return
	}
	if item == nil {
		writeError(w, apperr.NotFound("checklist_item", id))
		return
	}

	h.broadcastItem(item, "updated")
	writeJSON(w, http.StatusOK, item)
}

func (h *ChecklistHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	existing, err := h.checklists.GetItemByID(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if existing == nil {
		writeError(w, apperr.NotFound("checklist_item", id))
		return
	}

	if err := h.checklists.DeleteItem(id); err != nil {
		h.logger.Error("delete checklist item", "item_id", id, "error", err)
		writeError(w, err)
		return
	}

	h.broadcastItem(existing, "deleted")
	w.WriteHeader(http.StatusNoContent)
}

func (h *ChecklistHandler) broadcastItem(item *model.ChecklistItem, action string) {
	tripID := ""
	if list, err := h.checklists.GetByID(item.ChecklistID); err == nil && list != nil {
		tripID = list.TripID
	}
	h.hub.Broadcast(ws.NewMessage("checklist_item", action, item.ID, tripID))
}
