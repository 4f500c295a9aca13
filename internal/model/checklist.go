package model

import "time"

type Checklist struct {
	ID        string    `json:"checklist_id"`
	TripID    string    `json:"trip_id"`
	Key       string    `json:"list_key"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

type ChecklistItem struct {
	ID          string    `json:"item_id"`
	ChecklistID string    `json:"checklist_id"`
	Text        string    `json:"text"`
	Checked     bool      `json:"checked"`
	CreatedAt   time.Time `json:"created_at"`
}

// Well-known checklist keys. New trips get a documents and a packing list;
// anything else is "custom".
const (
	ChecklistKeyDocuments = "documents"
	ChecklistKeyPacking   = "packing"
	ChecklistKeyCustom    = "custom"
)
