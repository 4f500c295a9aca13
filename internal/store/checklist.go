package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/KenL-TW/travel-planner-pro/internal/model"
)

type ChecklistStore struct {
	db *sql.DB
}

func NewChecklistStore(db *sql.DB) *ChecklistStore {
	return &ChecklistStore{db: db}
}

func scanChecklist(scanner interface{ Scan(...any) error }) (*model.Checklist, error) {
	var c model.Checklist
	err := scanner.Scan(&c.ID, &c.TripID, &c.Key, &c.Title, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

const checklistCols = `checklist_id, trip_id, list_key, title, created_at`

func (s *ChecklistStore) Create(tripID, key, title string) (*model.Checklist, error) {
	if key == "" {
		key = model.ChecklistKeyCustom
	}
	id := model.NewID(model.PrefixChecklist)
	_, err := s.db.Exec(
		`INSERT INTO checklists (checklist_id, trip_id, list_key, title, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, tripID, key, title, time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert checklist: %w", err)
	}
	return s.GetByID(id)
}

func (s *ChecklistStore) GetByID(id string) (*model.Checklist, error) {
	row := s.db.QueryRow(`SELECT `+checklistCols+` FROM checklists WHERE checklist_id = ?`, id)
	c, err := scanChecklist(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get checklist: %w", err)
	}
	return c, nil
}

func (s *ChecklistStore) ListByTrip(tripID string) ([]model.Checklist, error) {
	rows, err := s.db.Query(
		`SELECT `+checklistCols+` FROM checklists WHERE trip_id = ? ORDER BY created_at ASC`, tripID,
	)
	if err != nil {
		return nil, fmt.Errorf("list checklists: %w", err)
	}
	defer rows.Close()

	var lists []model.Checklist
	for rows.Next() {
		c, err := scanChecklist(rows)
		if err != nil {
			return nil, fmt.Errorf("scan checklist: %w", err)
		}
		lists = append(lists, *c)
	}
	return lists, rows.Err()
}

// Delete removes the checklist; its items cascade.
func (s *ChecklistStore) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM checklists WHERE checklist_id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete checklist: %w", err)
	}
	return nil
}

// --- Item methods ---

func scanChecklistItem(scanner interface{ Scan(...any) error }) (*model.ChecklistItem, error) {
	var it model.ChecklistItem
	var checked int
	err := scanner.Scan(&it.ID, &it.ChecklistID, &it.Text, &checked, &it.CreatedAt)
	if err != nil {
		return nil, err
	}
	it.Checked = checked != 0
	return &it, nil
}

const checklistItemCols = `item_id, checklist_id, text, checked, created_at`

func (s *ChecklistStore) CreateItem(checklistID, text string) (*model.ChecklistItem, error) {
	id := model.NewID(model.PrefixChecklistItem)
	_, err := s.db.Exec(
		`INSERT INTO checklist_items (item_id, checklist_id, text, checked, created_at) VALUES (?, ?, ?, 0, ?)`,
		id, checklistID, text, time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert checklist item: %w", err)
	}
	return s.GetItemByID(id)
}

func (s *ChecklistStore) GetItemByID(id string) (*model.ChecklistItem, error) {
	row := s.db.QueryRow(`SELECT `+checklistItemCols+` FROM checklist_items WHERE item_id = ?`, id)
	it, err := scanChecklistItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get checklist item: %w", err)
	}
	return it, nil
}

func (s *ChecklistStore) ListItems(checklistID string) ([]model.ChecklistItem, error) {
	rows, err := s.db.Query(
		`SELECT `+checklistItemCols+` FROM checklist_items WHERE checklist_id = ? ORDER BY created_at ASC`, checklistID,
	)
	if err != nil {
		return nil, fmt.Errorf("list checklist items: %w", err)
	}
	defer rows.Close()

	var items []model.ChecklistItem
	for rows.Next() {
		it, err := scanChecklistItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan checklist item: %w", err)
		}
		items = append(items, *it)
	}
	return items, rows.Err()
}

func (s *ChecklistStore) UpdateItem(id, text string, checked bool) (*model.ChecklistItem, error) {
	c := 0
	if checked {
		c = 1
	}
	_, err := s.db.Exec(`UPDATE checklist_items SET text = ?, checked = ? WHERE item_id = ?`, text, c, id)
	if err != nil {
		return nil, fmt.Errorf("update checklist item: %w", err)
	}
	return s.GetItemByID(id)
}

// ToggleItem flips the item's checked flag.
func (s *ChecklistStore) ToggleItem(id string) (*model.ChecklistItem, error) {
	it, err := s.GetItemByID(id)
	if err != nil {
		return nil, err
	}
	if it == nil {
		return nil, nil
	}
	return s.UpdateItem(id, it.Text, !it.Checked)
}

func (s *ChecklistStore) DeleteItem(id string) error {
	_, err := s.db.Exec(`DELETE FROM checklist_items WHERE item_id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete checklist item: %w", err)
	}
	return nil
}
