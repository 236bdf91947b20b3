package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/pkordes/rideshare-importer/internal/domain"
)

// Reporter receives the result of each trip as soon as it is processed.
type Reporter interface {
	TripProcessed(r domain.TripResult)
}

// ReporterFunc adapts a plain function to Reporter.
type ReporterFunc func(r domain.TripResult)

// TripProcessed calls f.
func (f ReporterFunc) TripProcessed(r domain.TripResult) { f(r) }

// Recorder receives import outcomes for metrics.
type Recorder interface {
	ObserveTrip(outcome domain.Outcome)
	ObserveRun(summary domain.ImportSummary, err error)
}

type nopRecorder struct{}

func (nopRecorder) ObserveTrip(domain.Outcome) {}
func (nopRecorder) ObserveRun(domain.ImportSummary, error) {}

// Upload is an uploaded export file that must be removed once imported.
type Upload interface {
	Open() (io.ReadCloser, error)
	Cleanup() error
}

// ImportService runs whole imports: parse, then resolve, transform and
// upsert every trip in export order. Trips are processed one at a time.
type ImportService struct {
	transformer *Transformer
	upserter    *Upserter
	recorder    Recorder
	log         *slog.Logger
}

// NewImportService constructs an ImportService. recorder may be nil.
func NewImportService(transformer *Transformer, upserter *Upserter, recorder Recorder, log *slog.Logger) *ImportService {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &ImportService{transformer: transformer, upserter: upserter, recorder: recorder, log: log}
}

// Run imports every trip of the export in data. report may be nil.
//
// A malformed export fails the run before anything is written. A failing
// trip is reported and logged, and the run moves on to the next one. Trips
// that are not completed are skipped without error.
func (s *ImportService) Run(ctx context.Context, data []byte, report Reporter) (domain.ImportSummary, error) {
	start := time.Now()
	var summary domain.ImportSummary

	export, err := ParseExport(data)
	if err != nil {
		s.recorder.ObserveRun(summary, err)
		return summary, fmt.Errorf("service.ImportService.Run: %w", err)
	}
	s.log.InfoContext(ctx, "import started",
		"trips", len(export.Trips), "drivers", len(export.Drivers), "cities", len(export.Cities))

	for i, trip := range export.Trips {
		if err := ctx.Err(); err != nil {
			summary.Duration = time.Since(start)
			s.recorder.ObserveRun(summary, err)
			return summary, fmt.Errorf("service.ImportService.Run: %w", err)
		}

		result := s.processTrip(ctx, export, trip)
		result.Index = i
		summary.Add(result)
		s.recorder.ObserveTrip(result.Outcome)
		if report != nil {
			report.TripProcessed(result)
		}
	}

	summary.Duration = time.Since(start)
	s.recorder.ObserveRun(summary, nil)
	s.log.InfoContext(ctx, "import finished",
		"total", summary.Total,
		"created", summary.Created,
		"updated", summary.Updated,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"duration_ms", summary.Duration.Milliseconds(),
	)
	return summary, nil
}

// ImportUpload reads up, runs the import and removes the upload whatever
// the outcome.
func (s *ImportService) ImportUpload(ctx context.Context, up Upload, report Reporter) (domain.ImportSummary, error) {
	defer func() {
		if err := up.Cleanup(); err != nil {
			s.log.WarnContext(ctx, "upload cleanup failed", "error", err)
		}
	}()

	rc, err := up.Open()
	if err != nil {
		return domain.ImportSummary{}, fmt.Errorf("service.ImportService.ImportUpload: %w", err)
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return domain.ImportSummary{}, fmt.Errorf("service.ImportService.ImportUpload: read: %w", err)
	}

	return s.Run(ctx, data, report)
}

// processTrip runs one trip through the pipeline. References are resolved
// before the store is touched, so a trip with a dangling reference leaves no
// trace in the store.
func (s *ImportService) processTrip(ctx context.Context, export domain.Export, trip domain.RawTrip) domain.TripResult {
	result := domain.TripResult{ExternalID: trip.UUID}

	if domain.ParseTripStatus(trip.Status) != domain.StatusCompleted {
		result.Outcome = domain.OutcomeSkipped
		return result
	}

	fail := func(err error) domain.TripResult {
		s.log.WarnContext(ctx, "trip import failed", "external_id", trip.UUID, "error", err)
		result.Outcome = domain.OutcomeFailed
		result.Err = err
		return result
	}

	if trip.Invalid != nil {
		return fail(trip.Invalid)
	}
	driverName, err := ResolveDriver(trip, export.Drivers)
	if err != nil {
		return fail(err)
	}
	cityName, err := ResolveCity(trip, export.Cities)
	if err != nil {
		return fail(err)
	}
	doc, err := s.transformer.Transform(trip, driverName, cityName)
	if err != nil {
		return fail(err)
	}
	res, err := s.upserter.Upsert(ctx, doc)
	if err != nil {
		return fail(err)
	}

	result.PostID = res.Post.ID.String()
	result.Outcome = domain.OutcomeUpdated
	if res.Created {
		result.Outcome = domain.OutcomeCreated
	}
	return result
}
