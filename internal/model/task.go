package model

import "time"

type Task struct {
	ID         string    `json:"task_id"`
	TripID     string    `json:"trip_id"`
	EventID    string    `json:"event_id"`
	Text       string    `json:"text"`
	Status     string    `json:"status"`
	AssigneeID *string   `json:"assignee_id,omitempty"`
	DueDate    string    `json:"due_date,omitempty"`
	Priority   string    `json:"priority"`
	CreatedAt  time.Time `json:"created_at"`
}

// Task statuses.
const (
	StatusTodo  = "todo"
	StatusDoing = "doing"
	StatusDone  = "done"
)

func ValidStatus(s string) bool {
	return s == StatusTodo || s == StatusDoing || s == StatusDone
}

// Task priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

func ValidPriority(p string) bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// BoardTask is a task joined with its event and day context, as shown on
// the filterable task board.
type BoardTask struct {
	Task
	AssigneeName  string `json:"assignee_name,omitempty"`
	EventTitle    string `json:"event_title"`
	EventTime     string `json:"event_time"`
	EventCategory string `json:"event_category"`
	EventLocation string `json:"event_location,omitempty"`
	DayNo         int    `json:"day_no"`
	DayDate       string `json:"day_date,omitempty"`
}
