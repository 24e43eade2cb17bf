package flights

import (
	"context"

	"github.com/Domenick1991/airticket/internal/domain"
	"github.com/Domenick1991/airticket/internal/repository"
	"github.com/sirupsen/logrus"
)

type FlightUseCase interface {
	List(ctx context.Context) ([]domain.Flight, error)
	GetByID(ctx context.Context, id int64) (*domain.Flight, error)
	ListSeats(ctx context.Context, flightID int64) ([]domain.Seat, error)
}

// FlightCache holds the flight list only. Seat availability is always read live.
type FlightCache interface {
	GetFlights(ctx context.Context) ([]domain.Flight, error)
	SetFlights(ctx context.Context, flights []domain.Flight) error
}

type FlightService struct {
	repo   repository.FlightRepository
	cache  FlightCache
	logger *logrus.Logger
}

func NewFlightService(repo repository.FlightRepository, cache FlightCache, logger *logrus.Logger) *FlightService {
	return &FlightService{repo: repo, cache: cache, logger: logger}
}

func (s *FlightService) List(ctx context.Context) ([]domain.Flight, error) {
	if s.cache != nil {
		cached, err := s.cache.GetFlights(ctx)
		if err != nil {
			s.logger.WithError(err).Warn("flights cache read failed")
		} else if cached != nil {
			return cached, nil
		}
	}

	flights, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetFlights(ctx, flights); err != nil {
			s.logger.WithError(err).Warn("flights cache write failed")
		}
	}
	return flights, nil
}

func (s *FlightService) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	return s.repo.GetByID(ctx, id)
}

// ListSeats returns the seat map with current availability.
func (s *FlightService) ListSeats(ctx context.Context, flightID int64) ([]domain.Seat, error) {
	if _, err := s.repo.GetByID(ctx, flightID); err != nil {
		return nil, err
	}
	return s.repo.ListSeats(ctx, flightID)
}

var _ FlightUseCase = (*FlightService)(nil)
