package catalog

import (
	"time"

	"github.com/google/uuid"
)

// NewID returns a fresh random id.
func NewID() ID {
	return ID(uuid.NewString())
}

// Now returns the creation timestamp used for new entries. It is UTC and
// truncated to microseconds, the finest precision every backend stores.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
