package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/KenL-TW/travel-planner-pro/internal/model"
)

type TaskStore struct {
	db *sql.DB
}

func NewTaskStore(db *sql.DB) *TaskStore {
	return &TaskStore{db: db}
}

func scanTask(scanner interface{ Scan(...any) error }) (*model.Task, error) {
	var t model.Task
	var assignee sql.NullString
	err := scanner.Scan(
		&t.ID, &t.TripID, &t.EventID, &t.Text, &t.Status, &assignee,
		&t.DueDate, &t.Priority, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if assignee.Valid {
		t.AssigneeID = &assignee.String
	}
	return &t, nil
}

const taskCols = `task_id, trip_id, event_id, text, status, assignee_id, due_date, priority, created_at`

func (s *TaskStore) Create(tripID, eventID, text string, assigneeID *string) (*model.Task, error) {
	var assignee sql.NullString
	if assigneeID != nil {
		assignee = sql.NullString{String: *assigneeID, Valid: true}
	}

	id := model.NewID(model.PrefixTask)
	_, err := s.db.Exec(
		`INSERT INTO tasks (task_id, trip_id, event_id, text, status, assignee_id, due_date, priority, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, '', ?, ?)`,
		id, tripID, eventID, text, model.StatusTodo, assignee, model.PriorityMedium, time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	return s.GetByID(id)
}

func (s *TaskStore) GetByID(id string) (*model.Task, error) {
	row := s.db.QueryRow(`SELECT `+taskCols+` FROM tasks WHERE task_id = ?`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

func (s *TaskStore) ListByEvent(eventID string) ([]model.Task, error) {
	rows, err := s.db.Query(
		`SELECT `+taskCols+` FROM tasks WHERE event_id = ? ORDER BY created_at ASC`, eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

func (s *TaskStore) Update(id, text, status string, assigneeID *string, dueDate, priority string) (*model.Task, error) {
	var assignee sql.NullString
	if assigneeID != nil {
		assignee = sql.NullString{String: *assigneeID, Valid: true}
	}
	_, err := s.db.Exec(
		`UPDATE tasks SET text = ?, status = ?, assignee_id = ?, due_date = ?, priority = ? WHERE task_id = ?`,
		text, status, assignee, dueDate, priority, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return s.GetByID(id)
}

func (s *TaskStore) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM tasks WHERE task_id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

// BoardFilter narrows the task board. Zero-valued fields are no-ops; set
// fields compose with AND.
type BoardFilter struct {
	Keyword    string
	Category   string
	Status     string
	Priority   string
	AssigneeID string
}

// Board returns the trip's tasks joined with event/day context, filtered,
// ordered by due date ascending (tasks without a due date last) and then by
// creation order.
func (s *TaskStore) Board(tripID string, f BoardFilter) ([]model.BoardTask, error) {
	query := `SELECT t.task_id, t.trip_id, t.event_id, t.text, t.status, t.assignee_id,
		t.due_date, t.priority, t.created_at,
		COALESCE(m.name, ''), e.title, e.time, e.category, e.location, d.day_no, d.date
	FROM tasks t
	JOIN events e ON e.event_id = t.event_id
	JOIN days d ON d.day_id = e.day_id
	LEFT JOIN members m ON m.member_id = t.assignee_id
	WHERE t.trip_id = ?`
	args := []any{tripID}

	if f.Keyword != "" {
		kw := strings.ToLower(f.Keyword)
		query += ` AND (instr(lower(t.text), ?) > 0 OR instr(lower(e.title), ?) > 0 OR instr(lower(e.location), ?) > 0)`
		args = append(args, kw, kw, kw)
	}
	if f.Category != "" {
		query += ` AND e.category = ?`
		args = append(args, f.Category)
	}
	if f.Status != "" {
		query += ` AND t.status = ?`
		args = append(args, f.Status)
	}
	if f.Priority != "" {
		query += ` AND t.priority = ?`
		args = append(args, f.Priority)
	}
	if f.AssigneeID != "" {
		query += ` AND t.assignee_id = ?`
		args = append(args, f.AssigneeID)
	}

	query += ` ORDER BY CASE WHEN t.due_date = '' THEN 1 ELSE 0 END, t.due_date ASC, t.created_at ASC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("board query: %w", err)
	}
	defer rows.Close()

	var board []model.BoardTask
	for rows.Next() {
		var b model.BoardTask
		var assignee sql.NullString
		err := rows.Scan(
			&b.ID, &b.TripID, &b.EventID, &b.Text, &b.Status, &assignee,
			&b.DueDate, &b.Priority, &b.CreatedAt,
			&b.AssigneeName, &b.EventTitle, &b.EventTime, &b.EventCategory,
			&b.EventLocation, &b.DayNo, &b.DayDate,
		)
		if err != nil {
			return nil, fmt.Errorf("scan board task: %w", err)
		}
		if assignee.Valid {
			b.AssigneeID = &assignee.String
		}
		board = append(board, b)
	}
	return board, rows.Err()
}
