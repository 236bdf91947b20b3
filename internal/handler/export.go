// export.go implements GET /rides/export.
// Returns every imported ride as a flat table.
// Supports content negotiation via ?format=csv (CSV) or default (JSON).

package handler

import (
	"bytes"
	"encoding/csv"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"

	"github.com/pkordes/rideshare-importer/internal/domain"
)

// Export formats accepted by ?format=.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// csvHeaders defines the column names written as the first row of any CSV export.
var csvHeaders = []string{
	"post_id", "external_id", "service", "title", "status", "published_at", "polyline",
}

// ExportRow is the JSON form of one exported ride.
type ExportRow struct {
	PostID      uuid.UUID `json:"post_id"`
	ExternalID  string    `json:"external_id"`
	Service     *string   `json:"service,omitempty"`
	Title       string    `json:"title"`
	Status      string    `json:"status"`
	PublishedAt time.Time `json:"published_at"`
	Polyline    *string   `json:"polyline,omitempty"`
}

// GetExport handles GET /rides/export.
// It returns a flat table of every imported ride, newest first.
// Use ?format=csv to receive CSV; default is JSON.
func (s *Server) GetExport(w http.ResponseWriter, r *http.Request) {
	var format *string
	if err := runtime.BindQueryParameter("form", true, false, "format", r.URL.Query(), &format); err != nil {
		writeError(w, http.StatusBadRequest, requestBody("invalid format: "+err.Error()))
		return
	}
	if format != nil && *format != FormatJSON && *format != FormatCSV {
		writeError(w, http.StatusBadRequest, requestBody(`format must be "json" or "csv"`))
		return
	}

	rows, err := s.rides.Export(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	if format != nil && *format == FormatCSV {
		writeCSV(w, rows)
		return
	}
	writeJSON(w, http.StatusOK, buildJSONResponse(rows))
}

// buildJSONResponse converts domain rows to the JSON response.
func buildJSONResponse(rows []domain.ExportRow) []ExportRow {
	out := make([]ExportRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, domainRowToJSONRow(r))
	}
	return out
}

// writeCSV encodes domain rows as a CSV attachment.
func writeCSV(w http.ResponseWriter, rows []domain.ExportRow) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)

	//nolint:errcheck // bytes.Buffer writes do not fail
	cw.Write(csvHeaders)
	for _, r := range rows {
		//nolint:errcheck
		cw.Write(domainRowToCSVRecord(r))
	}
	cw.Flush()

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="rides.csv"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck
	buf.WriteTo(w)
}

// domainRowToJSONRow maps a domain.ExportRow to its JSON form.
// Fields that are empty strings become nil pointers (omitempty in JSON).
func domainRowToJSONRow(r domain.ExportRow) ExportRow {
	postID, _ := uuid.Parse(r.PostID)

	row := ExportRow{
		PostID:      postID,
		ExternalID:  r.ExternalID,
		Title:       r.Title,
		Status:      r.Status,
		PublishedAt: r.PublishedAt.UTC(),
	}
	if r.ServiceLabel != "" {
		row.Service = &r.ServiceLabel
	}
	if r.Polyline != "" {
		row.Polyline = &r.Polyline
	}
	return row
}

// domainRowToCSVRecord encodes a domain.ExportRow as a flat string slice.
func domainRowToCSVRecord(r domain.ExportRow) []string {
	return []string{
		r.PostID,
		r.ExternalID,
		r.ServiceLabel,
		r.Title,
		r.Status,
		r.PublishedAt.UTC().Format(time.RFC3339),
		r.Polyline,
	}
}
