package models

import (
	"time"

	"github.com/google/uuid"
)

// RSVP is a public response to an event. Duplicate emails per event are allowed.
type RSVP struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	EventID   uuid.UUID `json:"eventId"`
	CreatedAt time.Time `json:"createdAt"`
}
