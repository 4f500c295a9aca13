// Package server wires the stores, handlers, websocket hub, and snapshot
// manager into one HTTP surface.
package server

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/KenL-TW/travel-planner-pro/internal/handler"
	"github.com/KenL-TW/travel-planner-pro/internal/middleware"
	"github.com/KenL-TW/travel-planner-pro/internal/snapshot"
	"github.com/KenL-TW/travel-planner-pro/internal/store"
	"github.com/KenL-TW/travel-planner-pro/internal/transfer"
	ws "github.com/KenL-TW/travel-planner-pro/internal/websocket"
)

type Server struct {
	db     *sql.DB
	logger *slog.Logger

	hub      *ws.Hub
	limiter  *middleware.RateLimiter
	snapshot *snapshot.Manager

	trips      *handler.TripHandler
	days       *handler.DayHandler
	events     *handler.EventHandler
	tasks      *handler.TaskHandler
	members    *handler.MemberHandler
	checklists *handler.ChecklistHandler
	transfers  *handler.TransferHandler
	snapshots  *handler.SnapshotHandler
}

func New(db *sql.DB, snapCfg snapshot.Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	tripStore := store.NewTripStore(db)
	dayStore := store.NewDayStore(db)
	eventStore := store.NewEventStore(db)
	taskStore := store.NewTaskStore(db)
	memberStore := store.NewMemberStore(db)
	checklistStore := store.NewChecklistStore(db)
	snapshotStore := store.NewSnapshotStore(db)
	settingsStore := store.NewSettingsStore(db)

	transferSvc := transfer.NewService(db, logger.With("component", "transfer"))

	snapManager := snapshot.NewManager(snapCfg, transferSvc, snapshotStore, settingsStore,
		func(status snapshot.Status) {
			hub.Broadcast(ws.NewMessage("snapshot", string(status.State), "", ""))
		},
		logger.With("component", "snapshot"),
	)

	s := &Server{
		db:       db,
		logger:   logger,
		hub:      hub,
		limiter:  middleware.NewRateLimiter(),
		snapshot: snapManager,

		trips:      handler.NewTripHandler(tripStore, memberStore, transferSvc, hub, logger.With("handler", "trip")),
		days:       handler.NewDayHandler(dayStore, tripStore, hub, logger.With("handler", "day")),
		events:     handler.NewEventHandler(eventStore, dayStore, hub, logger.With("handler", "event")),
		tasks:      handler.NewTaskHandler(taskStore, eventStore, tripStore, memberStore, hub, logger.With("handler", "task")),
		members:    handler.NewMemberHandler(memberStore, hub, logger.With("handler", "member")),
		checklists: handler.NewChecklistHandler(checklistStore, tripStore, hub, logger.With("handler", "checklist")),
		transfers:  handler.NewTransferHandler(transferSvc, hub, logger.With("handler", "transfer")),
		snapshots:  handler.NewSnapshotHandler(snapManager, snapshotStore, settingsStore, transferSvc, hub, logger.With("handler", "snapshot")),
	}

	return s
}

// Snapshot exposes the manager so main can run its schedule loop.
func (s *Server) Snapshot() *snapshot.Manager {
	return s.snapshot
}

// Start launches background loops: the websocket hub is passive, but the
// rate limiter needs periodic cleanup and the snapshot manager its schedule.
func (s *Server) Start(ctx context.Context) {
	s.snapshot.Start(ctx)

	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.limiter.Cleanup()
			}
		}
	}()
}

func (s *Server) Stop() {
	s.snapshot.Stop()
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		if err := s.db.Ping(); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.Handle("GET /ws", ws.HandleWebSocket(s.hub))

	// Trips
	mux.HandleFunc("GET /api/trips", s.trips.List)
	mux.HandleFunc("POST /api/trips", s.trips.Create)
	mux.HandleFunc("GET /api/trips/{id}", s.trips.Get)
	mux.HandleFunc("GET /api/trips/{id}/plan", s.trips.Plan)
	mux.HandleFunc("PUT /api/trips/{id}", s.trips.Update)
	mux.HandleFunc("DELETE /api/trips/{id}", s.trips.Delete)
	mux.HandleFunc("GET /api/trips/{id}/team", s.trips.Team)
	mux.HandleFunc("PUT /api/trips/{id}/team/{member_id}", s.trips.AddTeamMember)
	mux.HandleFunc("DELETE /api/trips/{id}/team/{member_id}", s.trips.RemoveTeamMember)

	// Days
	mux.HandleFunc("POST /api/trips/{trip_id}/days", s.days.Create)
	mux.HandleFunc("PUT /api/days/{id}", s.days.Update)
	mux.HandleFunc("DELETE /api/trips/{trip_id}/days/{id}", s.days.Delete)

	// Events
	mux.HandleFunc("POST /api/days/{day_id}/events", s.events.Create)
	mux.HandleFunc("GET /api/days/{day_id}/events", s.events.ListByDay)
	mux.HandleFunc("GET /api/events/{id}", s.events.Get)
	mux.HandleFunc("PUT /api/events/{id}", s.events.Update)
	mux.HandleFunc("DELETE /api/events/{id}", s.events.Delete)

	// Tasks and the board
	mux.HandleFunc("POST /api/events/{event_id}/tasks", s.tasks.Create)
	mux.HandleFunc("GET /api/events/{event_id}/tasks", s.tasks.ListByEvent)
	mux.HandleFunc("GET /api/tasks/{id}", s.tasks.Get)
	mux.HandleFunc("PUT /api/tasks/{id}", s.tasks.Update)
	mux.HandleFunc("DELETE /api/tasks/{id}", s.tasks.Delete)
	mux.HandleFunc("GET /api/trips/{trip_id}/board", s.tasks.Board)

	// Members
	mux.HandleFunc("GET /api/members", s.members.List)
	mux.HandleFunc("POST /api/members", s.members.Create)
	mux.HandleFunc("GET /api/members/{id}", s.members.Get)
	mux.HandleFunc("PUT /api/members/{id}", s.members.Update)
	mux.HandleFunc("PUT /api/members/{id}/active", s.members.SetActive)

	// Checklists
	mux.HandleFunc("GET /api/trips/{trip_id}/checklists", s.checklists.List)
	mux.HandleFunc("POST /api/trips/{trip_id}/checklists", s.checklists.Create)
	mux.HandleFunc("DELETE /api/checklists/{id}", s.checklists.Delete)
	mux.HandleFunc("POST /api/checklists/{checklist_id}/items", s.checklists.CreateItem)
	mux.HandleFunc("PUT /api/checklist-items/{id}", s.checklists.UpdateItem)
	mux.HandleFunc("POST /api/checklist-items/{id}/toggle", s.checklists.ToggleItem)
	mux.HandleFunc("DELETE /api/checklist-items/{id}", s.checklists.DeleteItem)

	// Import and export. Imports are rate limited per client IP.
	mux.HandleFunc("GET /api/export", s.transfers.ExportAll)
	mux.HandleFunc("GET /api/trips/{id}/export", s.transfers.ExportTrip)
	importLimit := middleware.RateLimit(s.limiter, middleware.RealIP, 10, time.Minute)
	mux.Handle("POST /api/import", importLimit(http.HandlerFunc(s.transfers.Import)))

	// Snapshots
	mux.HandleFunc("POST /api/snapshots", s.snapshots.Run)
	mux.HandleFunc("GET /api/snapshots", s.snapshots.List)
	mux.HandleFunc("GET /api/snapshots/status", s.snapshots.Status)
	mux.Handle("POST /api/snapshots/{id}/restore", importLimit(http.HandlerFunc(s.snapshots.Restore)))
	mux.HandleFunc("GET /api/settings/snapshot", s.snapshots.GetSettings)
	mux.HandleFunc("PUT /api/settings/snapshot", s.snapshots.UpdateSettings)

	return middleware.Instrument(s.logger)(mux)
}
