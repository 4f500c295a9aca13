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

type TaskHandler struct {
	tasks   *store.TaskStore
	events  *store.EventStore
	trips   *store.TripStore
	members *store.MemberStore
	hub     *ws.Hub
	logger  *slog.Logger
}

func NewTaskHandler(ts *store.TaskStore, es *store.EventStore, trips *store.TripStore, ms *store.MemberStore, hub *ws.Hub, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{tasks: ts, events: es, trips: trips, members: ms, hub: hub, logger: logger}
}

// checkAssignee verifies the assignee exists and is on the trip's team.
func (h *TaskHandler) checkAssignee(tripID string, assigneeID *string) error {
	if assigneeID == nil || *assigneeID == "" {
		return nil
	}
	member, err := h.members.GetByID(*assigneeID)
	if err != nil {
		return err
	}
	if member == nil {
		return apperr.NotFound("member", *assigneeID)
	}
	onTeam, err := h.trips.OnTeam(tripID, *assigneeID)
	if err != nil {
		return err
	}
	if !onTeam {
		return apperr.Constraint("member", *assigneeID, "member is not on the trip team")
	}
	return nil
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("event_id")
	event, err := h.events.GetByID(eventID)
	if err != nil {
		writeError(w, err)
		return
	}
	if event == nil {
		writeError(w, apperr.NotFound("event", eventID))
		return
	}

	var req struct {
		Text       string  `json:"text"`
		AssigneeID *string `json:"assignee_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validation("task", "", "invalid JSON"))
		return
	}
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		writeError(w, apperr.Validation("task", "text", "text is required"))
		return
	}
	if err := h.checkAssignee(event.TripID, req.AssigneeID); err != nil {
		writeError(w, err)
		return
	}

	task, err := h.tasks.Create(event.TripID, eventID, req.Text, req.AssigneeID)
	if err != nil {
		h.logger.Error("create task", "event_id", eventID, "error", err)
		writeError(w, err)
		return
	}

	h.hub.Broadcast(ws.NewMessage("task", "created", task.ID, event.TripID))
	writeJSON(w, http.StatusCreated, task)
}

func (h *TaskHandler) ListByEvent(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("event_id")
	event, err := h.events.GetByID(eventID)
	if err != nil {
		writeError(w, err)
		return
	}
	if event == nil {
		writeError(w, apperr.NotFound("event", eventID))
		return
	}

	tasks, err := h.tasks.ListByEvent(eventID)
	if err != nil {
		writeError(w, err)
		return
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	task, err := h.tasks.GetByID(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if task == nil {
		writeError(w, apperr.NotFound("task", id))
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	existing, err := h.tasks.GetByID(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if existing == nil {
		writeError(w, apperr.NotFound("task", id))
		return
	}

	var req struct {
		Text       string  `json:"text"`
		Status     string  `json:"status"`
		AssigneeID *string `json:"assignee_id"`
		DueDate    string  `json:"due_date"`
		Priority   string  `json:"priority"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validation("task", "", "invalid JSON"))
		return
	}
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		writeError(w, apperr.Validation("task", "text", "text is required"))
		return
	}
	if !model.ValidStatus(req.Status) {
		writeError(w, apperr.Validation("task", "status", "must be todo, doing or done"))
		return
	}
	if !model.ValidPriority(req.Priority) {
		writeError(w, apperr.Validation("task", "priority", "must be low, medium or high"))
		return
	}
	if !validDate(req.DueDate) {
		writeError(w, apperr.Validation("task", "due_date", "must be YYYY-MM-DD"))
		return
	}
	if err := h.checkAssignee(existing.TripID, req.AssigneeID); err != nil {
		writeError(w, err)
		return
	}

	task, err := h.tasks.Update(id, req.Text, req.Status, req.AssigneeID, req.DueDate, req.Priority)
	if err != nil {
		h.logger.Error("update task", "task_id", id, "error", err)
		writeError(w, err)
		return
	}

	h.hub.Broadcast(ws.NewMessage("task", "updated", id, existing.TripID))
	writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	existing, err := h.tasks.GetByID(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if existing == nil {
		writeError(w, apperr.NotFound("task", id))
		return
	}

	if err := h.tasks.Delete(id); err != nil {
		h.logger.Error("delete task", "task_id", id, "error", err)
		writeError(w, err)
		return
	}

	h.hub.Broadcast(ws.NewMessage("task", "deleted", id, existing.TripID))
	w.WriteHeader(http.StatusNoContent)
}

// Board returns the trip's tasks with event and day context, filtered by
// query parameters.
func (h *TaskHandler) Board(w http.ResponseWriter, r *http.Request) {
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

	q := r.URL.Query()
	f := store.BoardFilter{
		Keyword:    strings.TrimSpace(q.Get("q")),
		Category:   q.Get("category"),
		Status:     q.Get("status"),
		Priority:   q.Get("priority"),
		AssigneeID: q.Get("assignee_id"),
	}
	if f.Status != "" && !model.ValidStatus(f.Status) {
		writeError(w, apperr.Validation("task", "status", "must be todo, doing or done"))
		return
	}
	if f.Priority != "" && !model.ValidPriority(f.Priority) {
		writeError(w, apperr.Validation("task", "priority", "must be low, medium or high"))
		return
	}
	if f.Category != "" && !model.ValidCategory(f.Category) {
		writeError(w, apperr.Validation("event", "category", "unknown category"))
		return
	}

	board, err := h.tasks.Board(tripID, f)
	if err != nil {
		h.logger.Error("board query", "trip_id", tripID, "error", err)
		writeError(w, err)
		return
	}
	if board == nil {
		board = []model.BoardTask{}
	}
	writeJSON(w, http.StatusOK, board)
}
