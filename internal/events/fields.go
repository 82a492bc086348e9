package events

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/aura-events/backend/internal/models"
)

var errFieldsNotArray = errors.New("additionalFields must be a JSON array")

// normalizeFields accepts any JSON array and passes it through unchanged. Absent
// or null becomes an empty array. Element shape is not checked.
func normalizeFields(raw json.RawMessage) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return models.EmptyFields, nil
	}
	if trimmed[0] != '[' || !json.Valid(trimmed) {
		return nil, errFieldsNotArray
	}
	return trimmed, nil
}
