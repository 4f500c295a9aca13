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

type MemberHandler struct {
	members *store.MemberStore
	hub     *ws.Hub
	logger  *slog.Logger
}

func NewMemberHandler(ms *store.MemberStore, hub *ws.Hub, logger *slog.Logger) *MemberHandler {
	return &MemberHandler{members: ms, hub: hub, logger: logger}
}

type memberRequest struct {
	Name  string `json:"name"`
	Role  string `json:"role"`
	Email string `json:"email"`
}

func parseMember(w http.ResponseWriter, r *http.Request) (*memberRequest, bool) {
	var req memberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validation("member", "", "invalid JSON"))
		return nil, false
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, apperr.Validation("member", "name", "name is required"))
		return nil, false
	}
	return &req, true
}

// List returns the roster; ?active=true narrows to active members.
func (h *MemberHandler) List(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"
	members, err := h.members.List(activeOnly)
	if err != nil {
		h.logger.Error("list members", "error", err)
		writeError(w, err)
		return
	}
	if members == nil {
		members = []model.Member{}
	}
	writeJSON(w, http.StatusOK, members)
}

func (h *MemberHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := parseMember(w, r)
	if !ok {
		return
	}

	member, err := h.members.Create(req.Name, req.Role, req.Email)
	if err != nil {
		h.logger.Error("create member", "error", err)
		writeError(w, err)
		return
	}

	h.hub.Broadcast(ws.NewMessage("member", "created", member.ID, ""))
	writeJSON(w, http.StatusCreated, member)
}

func (h *MemberHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	member, err := h.members.GetByID(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if member == nil {
		writeError(w, apperr.NotFound("member", id))
		return
	}
	writeJSON(w, http.StatusOK, member)
}

func (h *MemberHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	existing, err := h.members.GetByID(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if existing == nil {
		writeError(w, apperr.NotFound("member", id))
		return
	}

	req, ok := parseMember(w, r)
	if !ok {
		return
	}

	member, err := h.members.Update(id, req.Name, req.Role, req.Email)
	if err != nil {
		h.logger.Error("update member", "member_id", id, "error", err)
		writeError(w, err)
		return
	}

	h.hub.Broadcast(ws.NewMessage("member", "updated", id, ""))
	writeJSON(w, http.StatusOK, member)
}

// SetActive activates or deactivates a member. Members are never deleted so
// past assignments keep resolving.
func (h *MemberHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	existing, err := h.members.GetByID(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if existing == nil {
		writeError(w, apperr.NotFound("member", id))
		return
	}

	var req struct {
		Active bool `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validation("member", "", "invalid JSON"))
		return
	}

	if err := h.members.SetActive(id, req.Active); err != nil {
		h.logger.Error("set member active", "member_id", id, "error", err)
		writeError(w, err)
		return
	}

	member, err := h.members.GetByID(id)
	if err != nil {
		writeError(w, err)
		return
	}

	h.hub.Broadcast(ws.NewMessage("member", "updated", id, ""))
	writeJSON(w, http.StatusOK, member)
}
