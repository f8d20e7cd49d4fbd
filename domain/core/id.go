package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID identifies a report job or one of its artifacts
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Validate rejects ids that cannot be used as a single directory name:
// empty, "." and "..", or containing a path separator.
func (id ID) Validate() error {
	s := string(id)
	switch {
	case strings.TrimSpace(s) == "":
		return NewValidationError("id", "cannot be empty")
	case s == "." || s == "..":
		return NewValidationError("id", fmt.Sprintf("%q is reserved", s))
	case strings.ContainsAny(s, `/\`):
		return NewValidationError("id", fmt.Sprintf("%q cannot contain a path separator", s))
	}
	return nil
}

// ParseID parses a string into an ID
func ParseID(s string) (ID, error) {
	id := ID(strings.TrimSpace(s))
	if err := id.Validate(); err != nil {
		return "", err
	}
	return id, nil
}
