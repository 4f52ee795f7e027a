package services

import (
	"context"

	"github.com/velotracker/apiserver/types"
)

// RideRepository defines persistence operations for rides.
type RideRepository interface {
	Create(ctx context.Context, ride types.Ride) (types.Ride, error)
	ListByUser(ctx context.Context, userID int) ([]types.Ride, error)
	GetByID(ctx context.Context, userID, id int) (types.Ride, error)
	Update(ctx context.Context, userID, id int, title, notes string) (types.Ride, error)
	Delete(ctx context.Context, userID, id int) error
}

// RideService encapsulates ride use-cases.
type RideService struct {
	repo RideRepository
}

func NewRideService(repo RideRepository) *RideService {
	return &RideService{repo: repo}
}

func (s *RideService) Create(ctx context.Context, ride types.Ride) (types.Ride, error) {
	return s.repo.Create(ctx, ride)
}

func (s *RideService) ListByUser(ctx context.Context, userID int) ([]types.Ride, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *RideService) GetByID(ctx context.Context, userID, id int) (types.Ride, error) {
	return s.repo.GetByID(ctx, userID, id)
}

func (s *RideService) Update(ctx context.Context, userID, id int, title, notes string) (types.Ride, error) {
	return s.repo.Update(ctx, userID, id, title, notes)
}

func (s *RideService) Delete(ctx context.Context, userID, id int) error {
	return s.repo.Delete(ctx, userID, id)
}
