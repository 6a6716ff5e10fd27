package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ValidInteractionTypes lists the interaction types accepted on writes.
// The schema additionally reserves "Meeting", which no write path accepts.
var ValidInteractionTypes = []string{"Visit", "Call", "Virtual"}

// IsValidInteractionType reports whether t is accepted by the write paths.
func IsValidInteractionType(t string) bool {
	for _, v := range ValidInteractionTypes {
		if t == v {
			return true
		}
	}
	return false
}

// Interaction is a logged touchpoint with a healthcare professional.
// The schema carries additional descriptive columns (date, attendees,
// topics, materials, samples, sentiment, outcomes, follow-ups) that no
// code path populates yet; they are not mapped here.
type Interaction struct {
	ID              int64     `json:"id"`
	HCPName         string    `json:"hcp_name"`
	InteractionType string    `json:"interaction_type"`
	Notes           string    `json:"notes"`
	CreatedAt       time.Time `json:"created_at"`
}
