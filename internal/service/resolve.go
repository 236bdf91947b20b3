package service

import (
	"fmt"

	"github.com/pkordes/rideshare-importer/internal/domain"
)

// ResolveDriver returns the display name of the trip's driver.
// A trip without a driverUUID has no driver and resolves to "".
// Returns domain.ErrMissingReference if the id is not in drivers.
func ResolveDriver(trip domain.RawTrip, drivers map[string]domain.Driver) (string, error) {
	id := trip.DriverUUID.String()
	if id == "" {
		return "", nil
	}
	d, ok := drivers[id]
	if !ok {
		return "", fmt.Errorf("service.ResolveDriver: %w: driver %q", domain.ErrMissingReference, id)
	}
	return d.DisplayName, nil
}

// ResolveCity returns the display name of the trip's city.
// Returns domain.ErrMissingReference if the id is empty or not in cities.
func ResolveCity(trip domain.RawTrip, cities map[string]domain.City) (string, error) {
	id := trip.CityID.String()
	c, ok := cities[id]
	if !ok || id == "" {
		return "", fmt.Errorf("service.ResolveCity: %w: city %q", domain.ErrMissingReference, id)
	}
	return c.DisplayName, nil
}
