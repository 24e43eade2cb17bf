package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Domenick1991/airticket/internal/domain"
	"github.com/jackc/pgx/v5"
)

type FlightRepository interface {
	List(ctx context.Context) ([]domain.Flight, error)
	GetByID(ctx context.Context, id int64) (*domain.Flight, error)
	ListSeats(ctx context.Context, flightID int64) ([]domain.Seat, error)
	GetSeat(ctx context.Context, flightID, seatID int64) (*domain.Seat, error)
}

type PGFlightRepository struct {
	db DB
}

func NewFlightRepository(db DB) FlightRepository {
	return &PGFlightRepository{db: db}
}

const flightColumns = `id, from_airport, to_airport, departure_time, arrival_time, capacity, base_price, created_at, updated_at`

func (r *PGFlightRepository) List(ctx context.Context) ([]domain.Flight, error) {
	rows, err := r.db.Query(ctx, `SELECT `+flightColumns+` FROM flights ORDER BY departure_time`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	flights := make([]domain.Flight, 0)
	for rows.Next() {
		var f domain.Flight
		if err := rows.Scan(&f.ID, &f.FromAirport, &f.ToAirport, &f.DepartureTime, &f.ArrivalTime, &f.Capacity, &f.BasePrice, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, err
		}
		flights = append(flights, f)
	}
	return flights, rows.Err()
}

func (r *PGFlightRepository) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	row := r.db.QueryRow(ctx, `SELECT `+flightColumns+` FROM flights WHERE id=$1`, id)
	var f domain.Flight
	if err := row.Scan(&f.ID, &f.FromAirport, &f.ToAirport, &f.DepartureTime, &f.ArrivalTime, &f.Capacity, &f.BasePrice, &f.CreatedAt, &f.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrFlightNotFound
		}
		return nil, fmt.Errorf("get flight %d: %w", id, err)
	}
	return &f, nil
}

// ListSeats reads availability straight from the ledger table.
func (r *PGFlightRepository) ListSeats(ctx context.Context, flightID int64) ([]domain.Seat, error) {
	rows, err := r.db.Query(ctx, `SELECT id, flight_id, number, class, is_booked, is_sold FROM seats WHERE flight_id=$1 ORDER BY id`, flightID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seats := make([]domain.Seat, 0)
	for rows.Next() {
		var s domain.Seat
		if err := rows.Scan(&s.ID, &s.FlightID, &s.Number, &s.Class, &s.IsBooked, &s.IsSold); err != nil {
			return nil, err
		}
		seats = append(seats, s)
	}
	return seats, rows.Err()
}

func (r *PGFlightRepository) GetSeat(ctx context.Context, flightID, seatID int64) (*domain.Seat, error) {
	var s domain.Seat
	err := r.db.QueryRow(ctx, `SELECT id, flight_id, number, class, is_booked, is_sold FROM seats WHERE id=$1 AND flight_id=$2`, seatID, flightID).
		Scan(&s.ID, &s.FlightID, &s.Number, &s.Class, &s.IsBooked, &s.IsSold)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSeatNotFound
		}
		return nil, fmt.Errorf("get seat %d: %w", seatID, err)
	}
	return &s, nil
}

var _ FlightRepository = (*PGFlightRepository)(nil)
