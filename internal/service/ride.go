package service

import (
	"context"
	"fmt"

	"github.com/pkordes/rideshare-importer/internal/domain"
	"github.com/pkordes/rideshare-importer/internal/repo"
)

// RideService serves the read side of imported rides: paged listing and a
// flat export of everything imported so far.
type RideService struct {
	posts repo.PostRepo
}

// NewRideService constructs a RideService backed by the provided PostRepo.
func NewRideService(posts repo.PostRepo) *RideService {
	return &RideService{posts: posts}
}

// ListPaged returns one page of imported rides and the total count.
// Always returns a non-nil slice.
func (s *RideService) ListPaged(ctx context.Context, p domain.PaginationParams) ([]domain.Ride, int64, error) {
	rides, total, err := s.posts.ListRides(ctx, p)
	if err != nil {
		return nil, 0, fmt.Errorf("service.RideService.ListPaged: %w", err)
	}
	if rides == nil {
		rides = []domain.Ride{}
	}
	return rides, total, nil
}

// Export returns one row per imported ride, newest first, walking every page.
func (s *RideService) Export(ctx context.Context) ([]domain.ExportRow, error) {
	rows := []domain.ExportRow{}
	p := domain.PaginationParams{Page: 1, Limit: domain.MaxPageLimit}
	for {
		rides, total, err := s.posts.ListRides(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("service.RideService.Export: %w", err)
		}
		for _, r := range rides {
			rows = append(rows, domain.NewExportRow(r))
		}
		if len(rides) == 0 || int64(len(rows)) >= total {
			return rows, nil
		}
		p = p.Next()
	}
}
