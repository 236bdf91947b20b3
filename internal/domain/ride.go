package domain

import (
	"time"

	"github.com/google/uuid"
)

// TripStatus is the completion state of a trip. Only completed trips are imported.
type TripStatus string

const (
	StatusCompleted TripStatus = "COMPLETED"
	StatusOther     TripStatus = "OTHER"
)

// ParseTripStatus maps the export's status string onto a TripStatus.
func ParseTripStatus(s string) TripStatus {
	if s == string(StatusCompleted) {
		return StatusCompleted
	}
	return StatusOther
}

// Fare is the amount charged to the rider, kept as exported text.
type Fare struct {
	Amount   string
	Currency string
}

// TripDocument is the canonical form of a completed trip, ready to be
// persisted. ExternalID is the only identity key used for deduplication.
type TripDocument struct {
	ExternalID     string
	Status         TripStatus
	ServiceLabel   string
	DriverName     string // empty when the trip has no resolved driver
	CityName       string
	PickupAddress  string
	DropoffAddress string
	MapURL         string
	Polyline       string // empty when no encoded path was found
	Fare           *Fare
	Receipt        *Receipt
	OccurredAt     time.Time
	RawJSON        string

	Title string
	Body  string

	// Trip is the source record, passed to hooks and subscribers.
	Trip RawTrip
}

// Post publication statuses.
const (
	PostStatusPublish = "publish"
	PostStatusDraft   = "draft"
)

// Post is a content item in the destination store. The store owns its ID;
// uuid.Nil means "not yet persisted" and asks the store to create it.
type Post struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	Status      string    `json:"status"`
	PublishedAt time.Time `json:"published_at"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Metadata keys written on imported posts.
const (
	MetaProvider    = "rideshare_provider"
	MetaExternalID  = "rideshare_id"
	MetaServiceType = "rideshare_type"
	MetaRawImport   = "raw_import_data"
	MetaPolyline    = "geo_polyline_encoded"
	MetaGeoPublic   = "geo_public"
)

// Ride is the read-side view of an imported post joined with its metadata.
type Ride struct {
	PostID       uuid.UUID
	ExternalID   string
	ServiceLabel string
	Title        string
	Status       string
	PublishedAt  time.Time
	Polyline     string // empty when the post has no route
}

// PostEvent is emitted after a trip's post and metadata have been written.
type PostEvent struct {
	PostID   uuid.UUID
	Created  bool
	Document TripDocument
}
