package model

import "time"

// Day is one calendar day within a trip. DayNo is a dense 1..N sequence
// maintained by the store on insert and delete.
type Day struct {
	ID        string    `json:"day_id"`
	TripID    string    `json:"trip_id"`
	DayNo     int       `json:"day_no"`
	Date      string    `json:"date,omitempty"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
