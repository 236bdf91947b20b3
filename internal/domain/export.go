package domain

import "time"

// ExportRow is a single row in the flat export of imported rides.
// Empty strings stand in for absent values; PublishedAt is always set.
type ExportRow struct {
	PostID       string
	ExternalID   string
	ServiceLabel string
	Title        string
	Status       string
	PublishedAt  time.Time
	Polyline     string
}

// NewExportRow flattens a Ride into an ExportRow.
func NewExportRow(r Ride) ExportRow {
	return ExportRow{
		PostID:       r.PostID.String(),
		ExternalID:   r.ExternalID,
		ServiceLabel: r.ServiceLabel,
		Title:        r.Title,
		Status:       r.Status,
		PublishedAt:  r.PublishedAt,
		Polyline:     r.Polyline,
	}
}
