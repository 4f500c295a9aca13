package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/KenL-TW/travel-planner-pro/internal/apperr"
	"github.com/KenL-TW/travel-planner-pro/internal/model"
	"github.com/KenL-TW/travel-planner-pro/internal/snapshot"
	"github.com/KenL-TW/travel-planner-pro/internal/store"
	"github.com/KenL-TW/travel-planner-pro/internal/transfer"
	ws "github.com/KenL-TW/travel-planner-pro/internal/websocket"
)

type SnapshotHandler struct {
	manager   *snapshot.Manager
	snapshots *store.SnapshotStore
	settings  *store.SettingsStore
	transfer  *transfer.Service
	hub       *ws.Hub
	logger    *slog.Logger
}

func NewSnapshotHandler(m *snapshot.Manager, ss *store.SnapshotStore, settings *store.SettingsStore, tr *transfer.Service, hub *ws.Hub, logger *slog.Logger) *SnapshotHandler {
	return &SnapshotHandler{manager: m, snapshots: ss, settings: settings, transfer: tr, hub: hub, logger: logger}
}

// Run triggers an immediate snapshot. The passphrase is cached in memory so
// scheduled runs can reuse it; it is never persisted.
func (h *SnapshotHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Passphrase string `json:"passphrase"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validation("snapshot", "", "invalid JSON"))
		return
	}
	if len(req.Passphrase) < 8 {
		writeError(w, apperr.Validation("snapshot", "passphrase", "must be at least 8 characters"))
		return
	}

	id, err := h.manager.RunNow(r.Context(), req.Passphrase)
	if err != nil {
		h.logger.Error("snapshot run", "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	h.manager.CachePassphrase(req.Passphrase)

	record, err := h.snapshots.GetByID(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

func (h *SnapshotHandler) List(w http.ResponseWriter, r *http.Request) {
	snapshots, err := h.snapshots.List(50)
	if err != nil {
		h.logger.Error("list snapshots", "error", err)
		writeError(w, err)
		return
	}
	if snapshots == nil {
		snapshots = []model.Snapshot{}
	}
	writeJSON(w, http.StatusOK, snapshots)
}

func (h *SnapshotHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.manager.Status())
}

// Restore downloads a snapshot, decrypts it, and imports it as new trips.
func (h *SnapshotHandler) Restore(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, apperr.Validation("snapshot", "id", "must be an integer"))
		return
	}

	var req struct {
		Passphrase string `json:"passphrase"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validation("snapshot", "", "invalid JSON"))
		return
	}
	if req.Passphrase == "" {
		writeError(w, apperr.Validation("snapshot", "passphrase", "passphrase is required"))
		return
	}

	doc, err := h.manager.Fetch(r.Context(), id, req.Passphrase)
	if err != nil {
		h.logger.Error("snapshot fetch", "snapshot_id", id, "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}

	tripIDs, err := h.transfer.Import(doc)
	if err != nil {
		writeError(w, err)
		return
	}

	for _, tripID := range tripIDs {
		h.hub.Broadcast(ws.NewMessage("trip", "created", tripID, tripID))
	}
	writeJSON(w, http.StatusCreated, map[string]any{"trip_ids": tripIDs})
}

// snapshotSettingKeys are the keys exposed over the settings endpoint. The
// passphrase salt is internal and stays out of API responses.
var snapshotSettingKeys = []string{"snapshot_enabled", "snapshot_hour", "snapshot_retention_days"}

func (h *SnapshotHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settings.GetSnapshotSettings()
	if err != nil {
		writeError(w, err)
		return
	}
	out := map[string]string{}
	for _, k := range snapshotSettingKeys {
		out[k] = settings[k]
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *SnapshotHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled       *bool `json:"enabled"`
		Hour          *int  `json:"hour"`
		RetentionDays *int  `json:"retention_days"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validation("settings", "", "invalid JSON"))
		return
	}

	if req.Hour != nil && (*req.Hour < 0 || *req.Hour > 23) {
		writeError(w, apperr.Validation("settings", "hour", "must be 0-23"))
		return
	}
	if req.RetentionDays != nil && *req.RetentionDays < 1 {
		writeError(w, apperr.Validation("settings", "retention_days", "must be at least 1"))
		return
	}

	if req.Enabled != nil {
		if err := h.settings.Set("snapshot_enabled", strconv.FormatBool(*req.Enabled)); err != nil {
			writeError(w, err)
			return
		}
	}
	if req.Hour != nil {
		if err := h.settings.Set("snapshot_hour", strconv.Itoa(*req.Hour)); err != nil {
			writeError(w, err)
			return
		}
	}
	if req.RetentionDays != nil {
		if err := h.settings.Set("snapshot_retention_days", strconv.Itoa(*req.RetentionDays)); err != nil {
			writeError(w, err)
			return
		}
	}

	h.GetSettings(w, r)
}
