package util

import (
	"strings"

	"github.com/google/uuid"
)

// NewID returns a random 32-char hex ID for request correlation.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// NewUUID returns a random RFC 4122 identifier.
func NewUUID() string {
	return uuid.NewString()
}
