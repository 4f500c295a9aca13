package model

import (
	"encoding/hex"

	"github.com/google/uuid"
)

// NewID generates a prefixed opaque identifier, e.g. "trip_9f86d081...".
// Prefixes make ids self-describing in exports and logs.
func NewID(prefix string) string {
	u := uuid.New()
	return prefix + "_" + hex.EncodeToString(u[:])
}

// Entity id prefixes.
const (
	PrefixTrip          = "trip"
	PrefixDay           = "day"
	PrefixEvent         = "ev"
	PrefixTask          = "tk"
	PrefixMember        = "mem"
	PrefixChecklist     = "cl"
	PrefixChecklistItem = "it"
)
