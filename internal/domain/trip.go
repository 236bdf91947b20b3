// Package domain contains the core data types for the RideShare importer.
// This package does no I/O and is imported by every other internal package
// (repo, service, handler).
package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Provider is the rideshare_provider value written on every imported post.
const Provider = "uber"

// FlexString is a string field that the export tool writes either as a JSON
// string or as a JSON number (city ids, fares, distances). null decodes to "".
type FlexString string

// UnmarshalJSON accepts a JSON string, number or null.
func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("domain.FlexString: want string or number, got %s", b)
	}
	*f = FlexString(n.String())
	return nil
}

// String returns the value with surrounding whitespace removed.
func (f FlexString) String() string {
	return strings.TrimSpace(string(f))
}

// Driver is an entry of the export's drivers collection, keyed by ID.
type Driver struct {
	ID          FlexString `json:"uuid"`
	DisplayName string     `json:"firstname"`
}

// City is an entry of the export's cities collection, keyed by ID.
type City struct {
	ID          FlexString `json:"id"`
	DisplayName string     `json:"name"`
}

// TripMap is the optional static map attached to a trip. URL encodes the
// route as a path=enc:<polyline> query parameter.
type TripMap struct {
	URL string `json:"url"`
}

// Receipt carries optional trip facts together with the labels the rider's
// locale used for them. Any field may be empty.
type Receipt struct {
	CarMake       FlexString `json:"car_make"`
	CarMakeLabel  string     `json:"car_make_label"`
	Duration      FlexString `json:"duration"`
	DurationLabel string     `json:"trip_time_label"`
	Distance      FlexString `json:"distance"`
	DistanceLabel string     `json:"distance_label"`
}

// RawTrip is a trip record as exported. Only the fields the importer reads
// are typed; Raw keeps the complete original object for archival.
type RawTrip struct {
	UUID            string     `json:"uuid" validate:"required"`
	Status          string     `json:"status" validate:"required"`
	VehicleViewName string     `json:"vehicleViewName"`
	DriverUUID      FlexString `json:"driverUUID"`
	CityID          FlexString `json:"cityID"`
	PickupAddress   string     `json:"begintripFormattedAddress"`
	DropoffAddress  string     `json:"dropoffFormattedAddress"`
	TripMap         *TripMap   `json:"tripMap"`
	Receipt         *Receipt   `json:"receipt"`
	ClientFare      FlexString `json:"clientFare"`
	CurrencyCode    string     `json:"currencyCode"`
	RequestTime     FlexString `json:"requestTime"`

	Raw json.RawMessage `json:"-"`

	// Invalid is set when the record could not be decoded into the typed
	// fields. Only UUID, Status and Raw are meaningful then.
	Invalid error `json:"-"`
}

// MapURL returns the trip map URL, or "" when the trip has no map.
func (t RawTrip) MapURL() string {
	if t.TripMap == nil {
		return ""
	}
	return strings.TrimSpace(t.TripMap.URL)
}

// Export is the decoded export file: drivers and cities indexed by id, and
// the trips in their original order. It is read-only for one import run.
type Export struct {
	Drivers map[string]Driver
	Cities  map[string]City
	Trips   []RawTrip
}
