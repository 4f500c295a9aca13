package model

import "time"

// Member is a team participant. Members are referenced by trips through the
// trip_members table and by tasks as assignees; they are never owned by a
// trip, so deleting a trip leaves its members intact.
type Member struct {
	ID        string    `json:"member_id"`
	Name      string    `json:"name"`
	Role      string    `json:"role,omitempty"`
	Email     string    `json:"email,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}
