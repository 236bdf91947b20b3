package domain

import (
	"time"

	"github.com/google/uuid"
)

// Person is a profile linked to imported posts, such as the driver of a ride.
// Identity is (Provider, ExternalID); Name keeps the value from the first import.
type Person struct {
	ID         uuid.UUID
	Provider   string
	ExternalID string
	Name       string
	CreatedAt  time.Time
}
