package model

import "time"

type Event struct {
	ID        string    `json:"event_id"`
	TripID    string    `json:"trip_id"`
	DayID     string    `json:"day_id"`
	Time      string    `json:"time"`
	Title     string    `json:"title"`
	Location  string    `json:"location,omitempty"`
	Category  string    `json:"category"`
	Cost      float64   `json:"cost"`
	Notes     string    `json:"notes,omitempty"`
	Tags      string    `json:"tags,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Event categories. Unknown categories are coerced to CategoryOther on
// update; imports reject them instead.
const (
	CategoryTransport   = "transport"
	CategoryLodging     = "lodging"
	CategoryFood        = "food"
	CategorySightseeing = "sightseeing"
	CategoryShopping    = "shopping"
	CategoryOther       = "other"
)

var Categories = []string{
	CategoryTransport,
	CategoryLodging,
	CategoryFood,
	CategorySightseeing,
	CategoryShopping,
	CategoryOther,
}

func ValidCategory(c string) bool {
	for _, v := range Categories {
		if c == v {
			return true
		}
	}
	return false
}

// DefaultEventTime is the time slot new events start in.
const DefaultEventTime = "12:00"
