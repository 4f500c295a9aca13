package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/KenL-TW/travel-planner-pro/internal/model"
)

type DayStore struct {
	db *sql.DB
}

func NewDayStore(db *sql.DB) *DayStore {
	return &DayStore{db: db}
}

func scanDay(scanner interface{ Scan(...any) error }) (*model.Day, error) {
	var d model.Day
	err := scanner.Scan(&d.ID, &d.TripID, &d.DayNo, &d.Date, &d.Note, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

const dayCols = `day_id, trip_id, day_no, date, note, created_at`

// Append adds a new day at the end of the trip's sequence.
func (s *DayStore) Append(tripID string) (*model.Day, error) {
	var maxNo int
	err := s.db.QueryRow(`SELECT COALESCE(MAX(day_no), 0) FROM days WHERE trip_id = ?`, tripID).Scan(&maxNo)
	if err != nil {
		return nil, fmt.Errorf("max day_no: %w", err)
	}

	id := model.NewID(model.PrefixDay)
	_, err = s.db.Exec(
		`INSERT INTO days (day_id, trip_id, day_no, date, note, created_at) VALUES (?, ?, ?, '', '', ?)`,
		id, tripID, maxNo+1, time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert day: %w", err)
	}
	return s.GetByID(id)
}

func (s *DayStore) GetByID(id string) (*model.Day, error) {
	row := s.db.QueryRow(`SELECT `+dayCols+` FROM days WHERE day_id = ?`, id)
	d, err := scanDay(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get day: %w", err)
	}
	return d, nil
}

func (s *DayStore) ListByTrip(tripID string) ([]model.Day, error) {
	rows, err := s.db.Query(`SELECT `+dayCols+` FROM days WHERE trip_id = ? ORDER BY day_no ASC`, tripID)
	if err != nil {
		return nil, fmt.Errorf("list days: %w", err)
	}
	defer rows.Close()

	var days []model.Day
	for rows.Next() {
		d, err := scanDay(rows)
		if err != nil {
			return nil, fmt.Errorf("scan day: %w", err)
		}
		days = append(days, *d)
	}
	return days, rows.Err()
}

func (s *DayStore) Update(id, date, note string) (*model.Day, error) {
	_, err := s.db.Exec(`UPDATE days SET date = ?, note = ? WHERE day_id = ?`, date, note, id)
	if err != nil {
		return nil, fmt.Errorf("update day: %w", err)
	}
	return s.GetByID(id)
}

// Delete removes the day (cascading its events and tasks) and renumbers the
// remaining days of the trip to a dense 1..N sequence.
func (s *DayStore) Delete(id, tripID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM days WHERE day_id = ? AND trip_id = ?`, id, tripID); err != nil {
		return fmt.Errorf("delete day: %w", err)
	}

	rows, err := tx.Query(`SELECT day_id FROM days WHERE trip_id = ? ORDER BY day_no ASC`, tripID)
	if err != nil {
		return fmt.Errorf("list remaining days: %w", err)
	}
	var ids []string
	for rows.Next() {
		var dayID string
		if err := rows.Scan(&dayID); err != nil {
			rows.Close()
			return fmt.Errorf("scan day id: %w", err)
		}
		ids = append(ids, dayID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate days: %w", err)
	}

	// Ascending updates never collide with the UNIQUE(trip_id, day_no)
	// constraint: each target number was just vacated.
	for i, dayID := range ids {
		if _, err := tx.Exec(`UPDATE days SET day_no = ? WHERE day_id = ?`, i+1, dayID); err != nil {
			return fmt.Errorf("renumber day: %w", err)
		}
	}

	return tx.Commit()
}
