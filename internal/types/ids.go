package types

import (
	"github.com/google/uuid"
)

// SessionID identifies one editing session held by the builder API.
type SessionID string

// NewSessionID generates a UUIDv7 session identifier.
// Panics on clock regression (uuid.Must); acceptable for ID generation.
func NewSessionID() SessionID {
	return SessionID(uuid.Must(uuid.NewV7()).String())
}

// ParseSessionID validates and converts a string to SessionID.
func ParseSessionID(s string) (SessionID, error) {
	_, err := uuid.Parse(s)
	if err != nil {
		return "", err
	}
	return SessionID(s), nil
}

// NewRadioToken returns a grouping token for one rule's boolean radio pair.
// Every rule instance gets its own token so independent boolean rules on one
// page never share a radio group.
func NewRadioToken() string {
	return "ruleBuilderBooleanRadio-" + uuid.Must(uuid.NewV7()).String()
}
