// Package handler implements the HTTP surface of the RideShare importer.
// All handlers are methods on Server. Methods are split into files by
// concern (health.go, import.go, rides.go, export.go) but share the same
// Server struct so they can access its dependencies.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pkordes/rideshare-importer/internal/domain"
	"github.com/pkordes/rideshare-importer/internal/messages"
	"github.com/pkordes/rideshare-importer/internal/middleware"
	"github.com/pkordes/rideshare-importer/internal/service"
)

// multipartOverhead is allowed on top of MaxUploadBytes for the multipart
// envelope around the uploaded file.
const multipartOverhead = 1 << 20

// ImportServicer defines the import operation the upload handler depends on.
// Defining the interface here (in the consumer package) follows the Go
// convention: "accept interfaces, return concrete types". It lets handler
// tests inject a mock without touching the database or service layer.
type ImportServicer interface {
	ImportUpload(ctx context.Context, up service.Upload, report service.Reporter) (domain.ImportSummary, error)
}

// RideServicer defines the read operations over imported rides.
type RideServicer interface {
	ListPaged(ctx context.Context, p domain.PaginationParams) ([]domain.Ride, int64, error)
	Export(ctx context.Context) ([]domain.ExportRow, error)
}

// Options carries the settings handlers need from configuration.
type Options struct {
	// SiteURL is linked from the page shown once an import has finished.
	SiteURL string
	// MaxUploadBytes caps the size of an uploaded export file.
	MaxUploadBytes int64
	// UploadDir holds uploads while they are imported. Empty means the OS temp dir.
	UploadDir string
	// Messages holds the user-visible strings of the import pages.
	Messages messages.Catalog
}

// Server holds the dependencies shared by every handler.
type Server struct {
	imports ImportServicer
	rides   RideServicer
	opts    Options
	log     *slog.Logger
}

// NewServer constructs the Server with all its dependencies.
func NewServer(imports ImportServicer, rides RideServicer, opts Options, log *slog.Logger) *Server {
	return &Server{imports: imports, rides: rides, opts: opts, log: log}
}

// Routes returns the router for every endpoint. Cross-cutting middleware
// (request IDs, logging, recovery, CORS) is applied by the caller.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.NotFound(notFound)
	r.Get("/healthz", s.GetHealth)

	r.Route("/import", func(r chi.Router) {
		r.Get("/", s.GetImport)
		r.With(middleware.NewMaxBodySizeHandler(s.opts.MaxUploadBytes+multipartOverhead)).
			Post("/", s.PostImport)
	})

	r.Get("/rides", s.ListRides)
	r.Get("/rides/export", s.GetExport)
	return r
}

// notFound answers unknown routes with the JSON error body.
func notFound(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, notFoundBody("no such endpoint"))
}
