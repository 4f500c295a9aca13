package model

import "time"

type Trip struct {
	ID          string    `json:"trip_id"`
	Title       string    `json:"title"`
	Destination string    `json:"destination"`
	StartDate   string    `json:"start_date,omitempty"`
	EndDate     string    `json:"end_date,omitempty"`
	Currency    string    `json:"currency"`
	CreatedAt   time.Time `json:"created_at"`
}

// DefaultCurrency is applied when a trip is created without one.
const DefaultCurrency = "USD"
