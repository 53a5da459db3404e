// Package ids produces unique string identifiers.
package ids

import "github.com/google/uuid"

// Generator produces unique string ids.
type Generator interface {
	NewID() string
}

// UUID generates random (version 4) UUID strings.
type UUID struct{}

// NewID returns a new random UUID string.
func (UUID) NewID() string {
	return uuid.NewString()
}
