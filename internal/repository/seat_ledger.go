package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Domenick1991/airticket/internal/domain"
	"github.com/jackc/pgx/v5"
)

// SeatLedger owns every mutation of seats.is_booked / seats.is_sold. All of its
// methods run on the caller's transaction.
type SeatLedger struct{}

// Reserve flips is_booked from false to true. Losing the race to another
// reservation yields domain.ErrSeatUnavailable.
func (SeatLedger) Reserve(ctx context.Context, q Querier, flightID, seatID int64) (*domain.Seat, error) {
	var s domain.Seat
	err := q.QueryRow(ctx, `UPDATE seats SET is_booked = true, updated_at = now()
		WHERE id = $1 AND flight_id = $2 AND is_booked = false
		RETURNING id, flight_id, number, class, is_booked, is_sold`, seatID, flightID).
		Scan(&s.ID, &s.FlightID, &s.Number, &s.Class, &s.IsBooked, &s.IsSold)
	if err == nil {
		return &s, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("reserve seat %d: %w", seatID, err)
	}

	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM seats WHERE id = $1 AND flight_id = $2)`, seatID, flightID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check seat %d: %w", seatID, err)
	}
	if !exists {
		return nil, domain.ErrSeatNotFound
	}
	return nil, domain.ErrSeatUnavailable
}

// Release returns an unsold seat to inventory. It reports whether the flag
// actually changed so callers can detect a double release.
func (SeatLedger) Release(ctx context.Context, q Querier, seatID int64) (bool, error) {
	tag, err := q.Exec(ctx, `UPDATE seats SET is_booked = false, updated_at = now()
		WHERE id = $1 AND is_booked = true AND is_sold = false`, seatID)
	if err != nil {
		return false, fmt.Errorf("release seat %d: %w", seatID, err)
	}
	return tag.RowsAffected() == 1, nil
}

// Confirm makes a reservation permanent. The seat must already be booked.
func (SeatLedger) Confirm(ctx context.Context, q Querier, seatID int64) error {
	tag, err := q.Exec(ctx, `UPDATE seats SET is_sold = true, updated_at = now()
		WHERE id = $1 AND is_booked = true`, seatID)
	if err != nil {
		return fmt.Errorf("confirm seat %d: %w", seatID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: seat %d is not booked", domain.ErrDataIntegrity, seatID)
	}
	return nil
}
