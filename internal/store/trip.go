package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/KenL-TW/travel-planner-pro/internal/model"
)

type TripStore struct {
	db *sql.DB
}

func NewTripStore(db *sql.DB) *TripStore {
	return &TripStore{db: db}
}

func scanTrip(scanner interface{ Scan(...any) error }) (*model.Trip, error) {
	var t model.Trip
	err := scanner.Scan(&t.ID, &t.Title, &t.Destination, &t.StartDate, &t.EndDate, &t.Currency, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

const tripCols = `trip_id, title, destination, start_date, end_date, currency, created_at`

// Create inserts a trip together with its starter content: day 1 and the
// documents/packing checklists. Everything happens in one transaction.
func (s *TripStore) Create(title, destination, startDate, endDate, currency string) (*model.Trip, error) {
	if currency == "" {
		currency = model.DefaultCurrency
	}
	now := time.Now().UTC()
	tripID := model.NewID(model.PrefixTrip)

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO trips (trip_id, title, destination, start_date, end_date, currency, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		tripID, title, destination, startDate, endDate, currency, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert trip: %w", err)
	}

	_, err = tx.Exec(
		`INSERT INTO days (day_id, trip_id, day_no, date, note, created_at) VALUES (?, ?, 1, ?, '', ?)`,
		model.NewID(model.PrefixDay), tripID, startDate, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert first day: %w", err)
	}

	starters := []struct{ key, title string }{
		{model.ChecklistKeyDocuments, "Documents & IDs"},
		{model.ChecklistKeyPacking, "Packing list"},
	}
	for _, c := range starters {
		_, err = tx.Exec(
			`INSERT INTO checklists (checklist_id, trip_id, list_key, title, created_at) VALUES (?, ?, ?, ?, ?)`,
			model.NewID(model.PrefixChecklist), tripID, c.key, c.title, now,
		)
		if err != nil {
			return nil, fmt.Errorf("insert starter checklist: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.GetByID(tripID)
}

func (s *TripStore) GetByID(id string) (*model.Trip, error) {
	row := s.db.QueryRow(`SELECT `+tripCols+` FROM trips WHERE trip_id = ?`, id)
	t, err := scanTrip(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get trip: %w", err)
	}
	return t, nil
}

func (s *TripStore) List() ([]model.Trip, error) {
	rows, err := s.db.Query(`SELECT ` + tripCols + ` FROM trips ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list trips: %w", err)
	}
	defer rows.Close()

	var trips []model.Trip
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trip: %w", err)
		}
		trips = append(trips, *t)
	}
	return trips, rows.Err()
}

func (s *TripStore) Update(id, title, destination, startDate, endDate, currency string) (*model.Trip, error) {
	_, err := s.db.Exec(
		`UPDATE trips SET title = ?, destination = ?, start_date = ?, end_date = ?, currency = ? WHERE trip_id = ?`,
		title, destination, startDate, endDate, currency, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update trip: %w", err)
	}
	return s.GetByID(id)
}

// Delete removes the trip; days, events, tasks, checklists and team rows go
// with it via ON DELETE CASCADE.
func (s *TripStore) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM trips WHERE trip_id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete trip: %w", err)
	}
	return nil
}

// Team returns the active members on the trip's team, oldest first.
func (s *TripStore) Team(tripID string) ([]model.Member, error) {
	rows, err := s.db.Query(
		`SELECT m.member_id, m.name, m.role, m.email, m.active, m.created_at
		 FROM members m
		 JOIN trip_members tm ON tm.member_id = m.member_id
		 WHERE tm.trip_id = ? AND m.active = 1
		 ORDER BY m.created_at ASC`, tripID,
	)
	if err != nil {
		return nil, fmt.Errorf("trip team: %w", err)
	}
	defer rows.Close()

	var members []model.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan team member: %w", err)
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

// TeamIDs returns every member id linked to the trip, including members
// deactivated since they joined. Exports use it so task assignees always
// resolve inside the exported document.
func (s *TripStore) TeamIDs(tripID string) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT tm.member_id
		 FROM trip_members tm
		 JOIN members m ON m.member_id = tm.member_id
		 WHERE tm.trip_id = ?
		 ORDER BY m.created_at ASC`, tripID,
	)
	if err != nil {
		return nil, fmt.Errorf("trip team ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan team id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AddTeamMember puts a member on the trip's team. Adding twice is a no-op.
func (s *TripStore) AddTeamMember(tripID, memberID string) error {
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO trip_members (trip_id, member_id) VALUES (?, ?)`,
		tripID, memberID,
	)
	if err != nil {
		return fmt.Errorf("add team member: %w", err)
	}
	return nil
}

// RemoveTeamMember takes a member off the trip's team and unassigns (does
// not delete) their tasks on that trip.
func (s *TripStore) RemoveTeamMember(tripID, memberID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM trip_members WHERE trip_id = ? AND member_id = ?`, tripID, memberID); err != nil {
		return fmt.Errorf("remove team member: %w", err)
	}
	if _, err := tx.Exec(`UPDATE tasks SET assignee_id = NULL WHERE trip_id = ? AND assignee_id = ?`, tripID, memberID); err != nil {
		return fmt.Errorf("unassign tasks: %w", err)
	}

	return tx.Commit()
}

// OnTeam reports whether the member is on the trip's team.
func (s *TripStore) OnTeam(tripID, memberID string) (bool, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM trip_members WHERE trip_id = ? AND member_id = ?`,
		tripID, memberID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check team membership: %w", err)
	}
	return count > 0, nil
}
