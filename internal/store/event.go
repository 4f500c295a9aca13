package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/KenL-TW/travel-planner-pro/internal/model"
)

type EventStore struct {
	db *sql.DB
}

func NewEventStore(db *sql.DB) *EventStore {
	return &EventStore{db: db}
}

func scanEvent(scanner interface{ Scan(...any) error }) (*model.Event, error) {
	var e model.Event
	err := scanner.Scan(
		&e.ID, &e.TripID, &e.DayID, &e.Time, &e.Title, &e.Location,
		&e.Category, &e.Cost, &e.Notes, &e.Tags, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

const eventCols = `event_id, trip_id, day_id, time, title, location, category, cost, notes, tags, created_at`

// Create inserts a blank event into the day: noon, empty title, category
// "other". Callers fill it in with Update.
func (s *EventStore) Create(tripID, dayID string) (*model.Event, error) {
	id := model.NewID(model.PrefixEvent)
	_, err := s.db.Exec(
		`INSERT INTO events (event_id, trip_id, day_id, time, title, location, category, cost, notes, tags, created_at)
		 VALUES (?, ?, ?, ?, '', '', ?, 0, '', '', ?)`,
		id, tripID, dayID, model.DefaultEventTime, model.CategoryOther, time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	return s.GetByID(id)
}

func (s *EventStore) GetByID(id string) (*model.Event, error) {
	row := s.db.QueryRow(`SELECT `+eventCols+` FROM events WHERE event_id = ?`, id)
	e, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

func (s *EventStore) ListByDay(dayID string) ([]model.Event, error) {
	rows, err := s.db.Query(
		`SELECT `+eventCols+` FROM events WHERE day_id = ? ORDER BY time ASC, created_at ASC`, dayID,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

func (s *EventStore) ListByTrip(tripID string) ([]model.Event, error) {
	rows, err := s.db.Query(
		`SELECT `+eventCols+` FROM events WHERE trip_id = ? ORDER BY day_id, time ASC, created_at ASC`, tripID,
	)
	if err != nil {
		return nil, fmt.Errorf("list trip events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

func (s *EventStore) Update(id, eventTime, title, location, category string, cost float64, notes, tags string) (*model.Event, error) {
	if !model.ValidCategory(category) {
		category = model.CategoryOther
	}
	_, err := s.db.Exec(
		`UPDATE events SET time = ?, title = ?, location = ?, category = ?, cost = ?, notes = ?, tags = ? WHERE event_id = ?`,
		eventTime, title, location, category, cost, notes, tags, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	return s.GetByID(id)
}

// Delete removes the event; its tasks cascade.
func (s *EventStore) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM events WHERE event_id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}
