// Package transfer serializes the trip graph to a portable JSON document
// and restores it. Export nests children under their owners; import
// validates the whole document before touching the database and applies it
// in a single transaction.
package transfer

import (
	"database/sql"
	"log/slog"
	"sort"
	"time"

	"github.com/KenL-TW/travel-planner-pro/internal/apperr"
	"github.com/KenL-TW/travel-planner-pro/internal/model"
	"github.com/KenL-TW/travel-planner-pro/internal/store"
)

// Document is the top-level export format: trips with their nested graphs,
// plus the member roster they reference.
type Document struct {
	ExportedAt time.Time      `json:"exported_at"`
	Trips      []TripExport   `json:"trips"`
	Members    []model.Member `json:"members"`
}

type TripExport struct {
	model.Trip
	Days       []DayExport       `json:"days"`
	Checklists []ChecklistExport `json:"checklists"`
	Team       []string          `json:"team"`
}

type DayExport struct {
	model.Day
	Events []EventExport `json:"events"`
}

type EventExport struct {
	model.Event
	Tasks []model.Task `json:"tasks"`
}

type ChecklistExport struct {
	model.Checklist
	Items []model.ChecklistItem `json:"items"`
}

// Service reads and writes the full entity graph.
type Service struct {
	db         *sql.DB
	trips      *store.TripStore
	days       *store.DayStore
	events     *store.EventStore
	tasks      *store.TaskStore
	members    *store.MemberStore
	checklists *store.ChecklistStore
	logger     *slog.Logger
}

func NewService(db *sql.DB, logger *slog.Logger) *Service {
	return &Service{
		db:         db,
		trips:      store.NewTripStore(db),
		days:       store.NewDayStore(db),
		events:     store.NewEventStore(db),
		tasks:      store.NewTaskStore(db),
		members:    store.NewMemberStore(db),
		checklists: store.NewChecklistStore(db),
		logger:     logger,
	}
}

// ExportTrip builds the document for a single trip.
func (s *Service) ExportTrip(tripID string) (*Document, error) {
	trip, err := s.trips.GetByID(tripID)
	if err != nil {
		return nil, err
	}
	if trip == nil {
		return nil, apperr.NotFound("trip", tripID)
	}

	te, err := s.exportTrip(*trip)
	if err != nil {
		return nil, err
	}

	members, err := s.referencedMembers(te)
	if err != nil {
		return nil, err
	}

	return &Document{
		ExportedAt: time.Now().UTC(),
		Trips:      []TripExport{*te},
		Members:    members,
	}, nil
}

// referencedMembers resolves every member the trip export mentions: team
// rows regardless of active state, plus task assignees. Anything less
// produces a document that fails its own import validation.
func (s *Service) referencedMembers(te *TripExport) ([]model.Member, error) {
	ids := make(map[string]struct{}, len(te.Team))
	for _, id := range te.Team {
		ids[id] = struct{}{}
	}
	for _, de := range te.Days {
		for _, ee := range de.Events {
			for _, tk := range ee.Tasks {
				if tk.AssigneeID != nil {
					ids[*tk.AssigneeID] = struct{}{}
				}
			}
		}
	}

	members := make([]model.Member, 0, len(ids))
	for id := range ids {
		m, err := s.members.GetByID(id)
		if err != nil {
			return nil, err
		}
		if m != nil {
			members = append(members, *m)
		}
	}
	sort.Slice(members, func(i, j int) bool { return members[i].CreatedAt.Before(members[j].CreatedAt) })
	return members, nil
}

// ExportAll builds the document for every trip and the full member roster.
func (s *Service) ExportAll() (*Document, error) {
	trips, err := s.trips.List()
	if err != nil {
		return nil, err
	}

	doc := &Document{ExportedAt: time.Now().UTC()}
	for _, t := range trips {
		te, err := s.exportTrip(t)
		if err != nil {
			return nil, err
		}
		doc.Trips = append(doc.Trips, *te)
	}

	doc.Members, err = s.members.List(false)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// AssembleTrip returns the nested plan for one trip plus its team, for UI
// consumption. It shares the export builder so the plan and the export file
// always agree.
func (s *Service) AssembleTrip(tripID string) (*TripExport, []model.Member, error) {
	trip, err := s.trips.GetByID(tripID)
	if err != nil {
		return nil, nil, err
	}
	if trip == nil {
		return nil, nil, apperr.NotFound("trip", tripID)
	}
	te, err := s.exportTrip(*trip)
	if err != nil {
		return nil, nil, err
	}
	team, err := s.trips.Team(tripID)
	if err != nil {
		return nil, nil, err
	}
	return te, team, nil
}

func (s *Service) exportTrip(trip model.Trip) (*TripExport, error) {
	te := &TripExport{Trip: trip, Days: []DayExport{}, Checklists: []ChecklistExport{}, Team: []string{}}

	days, err := s.days.ListByTrip(trip.ID)
	if err != nil {
		return nil, err
	}
	for _, d := range days {
		de := DayExport{Day: d, Events: []EventExport{}}
		events, err := s.events.ListByDay(d.ID)
		if err != nil {
			return nil, err
		}
		for _, e := range events {
			ee := EventExport{Event: e, Tasks: []model.Task{}}
			tasks, err := s.tasks.ListByEvent(e.ID)
			if err != nil {
				return nil, err
			}
			if tasks != nil {
				ee.Tasks = tasks
			}
			de.Events = append(de.Events, ee)
		}
		te.Days = append(te.Days, de)
	}

	lists, err := s.checklists.ListByTrip(trip.ID)
	if err != nil {
		return nil, err
	}
	for _, c := range lists {
		ce := ChecklistExport{Checklist: c, Items: []model.ChecklistItem{}}
		items, err := s.checklists.ListItems(c.ID)
		if err != nil {
			return nil, err
		}
		if items != nil {
			ce.Items = items
		}
		te.Checklists = append(te.Checklists, ce)
	}

	team, err := s.trips.TeamIDs(trip.ID)
	if err != nil {
		return nil, err
	}
	te.Team = append(te.Team, team...)

	return te, nil
}
