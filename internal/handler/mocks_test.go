package handler_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/pkordes/rideshare-importer/internal/domain"
	"github.com/pkordes/rideshare-importer/internal/handler"
	"github.com/pkordes/rideshare-importer/internal/messages"
	"github.com/pkordes/rideshare-importer/internal/service"
)

// mockImportServicer is a test double for handler.ImportServicer.
type mockImportServicer struct {
	importUpload func(ctx context.Context, up service.Upload, report service.Reporter) (domain.ImportSummary, error)
}

func (m *mockImportServicer) ImportUpload(ctx context.Context, up service.Upload, report service.Reporter) (domain.ImportSummary, error) {
	return m.importUpload(ctx, up, report)
}

// compile-time check: mockImportServicer must satisfy handler.ImportServicer.
var _ handler.ImportServicer = (*mockImportServicer)(nil)

// mockRideServicer is a test double for handler.RideServicer.
// Set only the method fields your test needs.
type mockRideServicer struct {
	listPaged func(ctx context.Context, p domain.PaginationParams) ([]domain.Ride, int64, error)
	export    func(ctx context.Context) ([]domain.ExportRow, error)
}

func (m *mockRideServicer) ListPaged(ctx context.Context, p domain.PaginationParams) ([]domain.Ride, int64, error) {
	return m.listPaged(ctx, p)
}
func (m *mockRideServicer) Export(ctx context.Context) ([]domain.ExportRow, error) {
	return m.export(ctx)
}

var _ handler.RideServicer = (*mockRideServicer)(nil)

// the production services satisfy the handler interfaces.
var (
	_ handler.ImportServicer = (*service.ImportService)(nil)
	_ handler.RideServicer   = (*service.RideService)(nil)
)

func testOptions() handler.Options {
	return handler.Options{
		SiteURL:        "https://rides.example.com/",
		MaxUploadBytes: 1 << 10,
		Messages:       messages.Default(),
	}
}

// newHTTPHandler wires a Server with the given mocks into its router.
// This mirrors how the serve command wires it in production.
func newHTTPHandler(imports handler.ImportServicer, rides handler.RideServicer, opts handler.Options) http.Handler {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return handler.NewServer(imports, rides, opts, log).Routes()
}
