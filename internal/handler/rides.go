package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"

	"github.com/pkordes/rideshare-importer/internal/domain"
)

// Ride is the JSON form of an imported ride.
type Ride struct {
	ID          uuid.UUID `json:"id"`
	ExternalID  string    `json:"external_id"`
	Service     string    `json:"service"`
	Title       string    `json:"title"`
	Status      string    `json:"status"`
	PublishedAt time.Time `json:"published_at"`
	Polyline    *string   `json:"polyline,omitempty"`
}

// Pagination describes the page returned by a list endpoint.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// RideList is the body of GET /rides.
type RideList struct {
	Data       []Ride     `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// ListRides handles GET /rides.
// Supports ?page= and ?limit= query parameters (defaults: page=1, limit=20, max=100).
func (s *Server) ListRides(w http.ResponseWriter, r *http.Request) {
	var page, limit *int
	if err := runtime.BindQueryParameter("form", true, false, "page", r.URL.Query(), &page); err != nil {
		writeError(w, http.StatusBadRequest, requestBody("invalid page: "+err.Error()))
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &limit); err != nil {
		writeError(w, http.StatusBadRequest, requestBody("invalid limit: "+err.Error()))
		return
	}

	params := domain.NewPaginationParams(page, limit)
	rides, total, err := s.rides.ListPaged(r.Context(), params)
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	data := make([]Ride, len(rides))
	for i, ride := range rides {
		data[i] = rideToResponse(ride)
	}
	writeJSON(w, http.StatusOK, RideList{
		Data: data,
		Pagination: Pagination{
			Page:       params.Page,
			Limit:      params.Limit,
			Total:      int(total),
			TotalPages: params.TotalPages(total),
		},
	})
}

// rideToResponse converts a domain.Ride into its JSON form.
func rideToResponse(r domain.Ride) Ride {
	resp := Ride{
		ID:          r.PostID,
		ExternalID:  r.ExternalID,
		Service:     r.ServiceLabel,
		Title:       r.Title,
		Status:      r.Status,
		PublishedAt: r.PublishedAt.UTC(),
	}
	if r.Polyline != "" {
		resp.Polyline = &r.Polyline
	}
	return resp
}

// internalError logs err and answers 500 without leaking it.
func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	s.log.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	writeError(w, http.StatusInternalServerError, internalBody())
}
