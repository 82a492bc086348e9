package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event is a public event owned by an ADMIN or EVENT_OWNER identity.
type Event struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location"`
	Date        time.Time `json:"date"`
	PublicSlug  string    `json:"publicSlug"`
	OwnerID     uuid.UUID `json:"ownerId"`
	// AdditionalFields is an ordered JSON array of label/value pairs, kept verbatim.
	AdditionalFields json.RawMessage `json:"additionalFields"`
	Owner            *UserPublic     `json:"owner,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// EmptyFields is the stored value of an event without additional fields.
var EmptyFields = json.RawMessage(`[]`)
