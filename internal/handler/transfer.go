package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/KenL-TW/travel-planner-pro/internal/apperr"
	"github.com/KenL-TW/travel-planner-pro/internal/transfer"
	ws "github.com/KenL-TW/travel-planner-pro/internal/websocket"
)

type TransferHandler struct {
	transfer *transfer.Service
	hub      *ws.Hub
	logger   *slog.Logger
}

func NewTransferHandler(tr *transfer.Service, hub *ws.Hub, logger *slog.Logger) *TransferHandler {
	return &TransferHandler{transfer: tr, hub: hub, logger: logger}
}

// ExportAll downloads every trip and the member roster as one JSON document.
func (h *TransferHandler) ExportAll(w http.ResponseWriter, r *http.Request) {
	doc, err := h.transfer.ExportAll()
	if err != nil {
		h.logger.Error("export all", "error", err)
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="planner-export.json"`)
	writeJSON(w, http.StatusOK, doc)
}

// ExportTrip downloads a single trip, with only the members it references.
func (h *TransferHandler) ExportTrip(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	doc, err := h.transfer.ExportTrip(id)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="trip-export.json"`)
	writeJSON(w, http.StatusOK, doc)
}

// Import validates the whole document up front and applies it atomically.
// Every record error is reported at once; on failure nothing is written.
func (h *TransferHandler) Import(w http.ResponseWriter, r *http.Request) {
	var doc transfer.Document
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeError(w, apperr.Validation("import", "", "invalid JSON"))
		return
	}

	tripIDs, err := h.transfer.Import(&doc)
	if err != nil {
		h.logger.Warn("import rejected", "error", err)
		writeError(w, err)
		return
	}

	for _, id := range tripIDs {
		h.hub.Broadcast(ws.NewMessage("trip", "created", id, id))
	}
	writeJSON(w, http.StatusCreated, map[string]any{"trip_ids": tripIDs})
}
