package types

import (
	"github.com/google/uuid"
)

// NewRunID generates a UUIDv7 pipeline run identifier.
// Time-ordered IDs keep run logs sortable by creation time.
// Panics on clock regression (uuid.Must); acceptable for ID generation.
func NewRunID() RunID {
	return RunID(uuid.Must(uuid.NewV7()).String())
}

// NewJobID generates a UUIDv7 job identifier.
// Panics on clock regression (uuid.Must); acceptable for ID generation.
func NewJobID() JobID {
	return JobID(uuid.Must(uuid.NewV7()).String())
}
