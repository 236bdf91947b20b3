package service

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/pkordes/rideshare-importer/internal/domain"
	"github.com/pkordes/rideshare-importer/internal/messages"
)

// Hooks lets the embedding application override what the importer computes.
// Every field is optional; a nil hook leaves the value unchanged.
type Hooks struct {
	// Title receives the composed title, the normalized service label, the
	// city name and the trip, and returns the title to use.
	Title func(title, service, city string, trip domain.RawTrip) string

	// Body receives the rendered HTML body and returns the body to use.
	Body func(body string, trip domain.RawTrip) string

	// Post receives the record about to be persisted. Setting ID redirects
	// the write to that existing post; uuid.Nil creates a new one.
	Post func(post domain.Post, trip domain.RawTrip) domain.Post
}

// Transformer turns a completed trip into a TripDocument.
type Transformer struct {
	msgs     messages.Catalog
	hooks    Hooks
	validate *validator.Validate
}

// NewTransformer constructs a Transformer rendering with the given catalog.
func NewTransformer(msgs messages.Catalog, hooks Hooks) *Transformer {
	return &Transformer{msgs: msgs, hooks: hooks, validate: validator.New()}
}

// Transform builds the document for trip, whose driver and city names have
// already been resolved. driverName may be empty.
// Returns domain.ErrValidation if the trip is incomplete, not completed, or
// has an unparseable request time.
func (t *Transformer) Transform(trip domain.RawTrip, driverName, cityName string) (domain.TripDocument, error) {
	if trip.Invalid != nil {
		return domain.TripDocument{}, fmt.Errorf("service.Transformer.Transform: %w", trip.Invalid)
	}
	if err := t.validate.Struct(trip); err != nil {
		return domain.TripDocument{}, fmt.Errorf("service.Transformer.Transform: %w: %v", domain.ErrValidation, err)
	}
	if domain.ParseTripStatus(trip.Status) != domain.StatusCompleted {
		return domain.TripDocument{}, fmt.Errorf("service.Transformer.Transform: %w: trip status is %q", domain.ErrValidation, trip.Status)
	}
	occurredAt, err := ParseRequestTime(trip.RequestTime.String())
	if err != nil {
		return domain.TripDocument{}, fmt.Errorf("service.Transformer.Transform: %w: %v", domain.ErrValidation, err)
	}

	serviceLabel := NormalizeService(trip.VehicleViewName)
	doc := domain.TripDocument{
		ExternalID:     trip.UUID,
		Status:         domain.StatusCompleted,
		ServiceLabel:   serviceLabel,
		DriverName:     driverName,
		CityName:       cityName,
		PickupAddress:  trip.PickupAddress,
		DropoffAddress: trip.DropoffAddress,
		MapURL:         trip.MapURL(),
		Polyline:       ExtractPolyline(trip.MapURL()),
		OccurredAt:     occurredAt,
		RawJSON:        string(trip.Raw),
		Trip:           trip,
	}
	if amount, currency := trip.ClientFare.String(), strings.TrimSpace(trip.CurrencyCode); amount != "" && currency != "" {
		doc.Fare = &domain.Fare{Amount: amount, Currency: currency}
	}
	if trip.Receipt != nil {
		r := *trip.Receipt
		doc.Receipt = &r
	}

	doc.Title = fmt.Sprintf(t.msgs.Title, serviceLabel, cityName)
	if t.hooks.Title != nil {
		doc.Title = t.hooks.Title(doc.Title, serviceLabel, cityName, trip)
	}

	body, err := renderBody(t.msgs, doc)
	if err != nil {
		return domain.TripDocument{}, fmt.Errorf("service.Transformer.Transform: %w", err)
	}
	doc.Body = body
	if t.hooks.Body != nil {
		doc.Body = t.hooks.Body(doc.Body, trip)
	}

	return doc, nil
}

// NormalizeService prefixes the vehicle view name with "Uber " unless it
// already mentions uber in any casing ("Pool" → "Uber Pool", "UberX" stays).
// The name is used as given: an empty name yields "Uber ".
func NormalizeService(name string) string {
	if strings.Contains(strings.ToLower(name), "uber") {
		return name
	}
	return "Uber " + name
}

// ExtractPolyline returns the encoded polyline carried after "enc:" in the
// map URL's path query parameter. Any missing piece yields "".
func ExtractPolyline(mapURL string) string {
	if mapURL == "" {
		return ""
	}
	u, err := url.Parse(mapURL)
	if err != nil {
		return ""
	}
	_, polyline, found := strings.Cut(u.Query().Get("path"), "enc:")
	if !found {
		return ""
	}
	return polyline
}

// requestTimeLayouts are the textual forms the export tool has used.
var requestTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseRequestTime parses a trip's requestTime, given either as text or as
// Unix epoch milliseconds.
func ParseRequestTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("request time is empty")
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	for _, layout := range requestTimeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized request time %q", s)
}
