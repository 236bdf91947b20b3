package service

import (
	"context"
	"fmt"

	"github.com/pkordes/rideshare-importer/internal/domain"
	"github.com/pkordes/rideshare-importer/internal/messages"
	"github.com/pkordes/rideshare-importer/internal/repo"
)

// DriverLinker is a Subscriber that attaches the ride's driver, as a person
// keyed by the provider's driver id, to the imported post.
type DriverLinker struct {
	people repo.PersonRepo
	msgs   messages.Catalog
}

// NewDriverLinker constructs a DriverLinker naming people with msgs.DriverPerson.
func NewDriverLinker(people repo.PersonRepo, msgs messages.Catalog) *DriverLinker {
	return &DriverLinker{people: people, msgs: msgs}
}

// PostInserted links the driver of ev's trip, if the trip has one.
func (l *DriverLinker) PostInserted(ctx context.Context, ev domain.PostEvent) error {
	driverID := ev.Document.Trip.DriverUUID.String()
	if ev.Document.DriverName == "" || driverID == "" {
		return nil
	}

	name := fmt.Sprintf(l.msgs.DriverPerson, ev.Document.DriverName)
	person, err := l.people.Upsert(ctx, domain.Provider, driverID, name)
	if err != nil {
		return fmt.Errorf("service.DriverLinker.PostInserted: %w", err)
	}
	if err := l.people.AddToPost(ctx, ev.PostID, person.ID); err != nil {
		return fmt.Errorf("service.DriverLinker.PostInserted: %w", err)
	}
	return nil
}
