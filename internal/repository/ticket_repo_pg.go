package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Domenick1991/airticket/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type TicketRepository interface {
	CreatePending(ctx context.Context, ticket *domain.Ticket) error
	AttachPaymentToken(ctx context.Context, id uuid.UUID, session domain.PaymentSession) (*domain.Ticket, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Ticket, error)
	GetByCode(ctx context.Context, code string) (*domain.Ticket, error)
	ListByCustomer(ctx context.Context, customerID string) ([]domain.Ticket, error)
	Finalize(ctx context.Context, id uuid.UUID, outcome domain.Outcome) (*domain.FinalizeResult, error)
}

type PGTicketRepository struct {
	db     DB
	ledger SeatLedger
}

func NewTicketRepository(db DB) TicketRepository {
	return &PGTicketRepository{db: db}
}

const ticketColumns = `id, code, flight_id, seat_id, customer_id, price, status, payment_token, payment_redirect_url, created_at, updated_at`

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var t domain.Ticket
	if err := row.Scan(&t.ID, &t.Code, &t.FlightID, &t.SeatID, &t.CustomerID, &t.Price, &t.Status, &t.PaymentToken, &t.PaymentRedirectURL, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

// CreatePending reserves the seat and inserts the ticket in one transaction.
func (r *PGTicketRepository) CreatePending(ctx context.Context, ticket *domain.Ticket) error {
	tx, err := r.db.BeginTx(ctx, txOptions)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := r.ledger.Reserve(ctx, tx, ticket.FlightID, ticket.SeatID); err != nil {
		return err
	}

	ticket.Status = domain.TicketStatusPending
	if err := tx.QueryRow(ctx, `INSERT INTO tickets (id, code, flight_id, seat_id, customer_id, price, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`, ticket.ID, ticket.Code, ticket.FlightID, ticket.SeatID, ticket.CustomerID, ticket.Price, ticket.Status).
		Scan(&ticket.CreatedAt, &ticket.UpdatedAt); err != nil {
		if constraint, ok := uniqueViolation(err); ok {
			if constraint == "tickets_code_key" {
				return domain.ErrDuplicateTicketCode
			}
			return domain.ErrSeatUnavailable
		}
		return fmt.Errorf("insert ticket: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *PGTicketRepository) AttachPaymentToken(ctx context.Context, id uuid.UUID, session domain.PaymentSession) (*domain.Ticket, error) {
	t, err := scanTicket(r.db.QueryRow(ctx, `UPDATE tickets SET payment_token=$1, payment_redirect_url=$2, updated_at=now()
		WHERE id=$3 AND status=$4 RETURNING `+ticketColumns, session.Token, session.RedirectURL, id, domain.TicketStatusPending))
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("attach payment token: %w", err)
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return nil, domain.ErrTicketNotPending
}

func (r *PGTicketRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Ticket, error) {
	t, err := scanTicket(r.db.QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTicketNotFound
		}
		return nil, fmt.Errorf("get ticket %s: %w", id, err)
	}
	return t, nil
}

func (r *PGTicketRepository) GetByCode(ctx context.Context, code string) (*domain.Ticket, error) {
	t, err := scanTicket(r.db.QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE code=$1`, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTicketNotFound
		}
		return nil, fmt.Errorf("get ticket by code %s: %w", code, err)
	}
	return t, nil
}

func (r *PGTicketRepository) ListByCustomer(ctx context.Context, customerID string) ([]domain.Ticket, error) {
	rows, err := r.db.Query(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE customer_id=$1 ORDER BY created_at DESC`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tickets := make([]domain.Ticket, 0)
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, *t)
	}
	return tickets, rows.Err()
}

// Finalize applies a payment outcome to a ticket. The ticket row is locked for
// the duration of the transaction so concurrent notifications for the same
// order are applied one after the other; repeats are reported with Applied=false.
func (r *PGTicketRepository) Finalize(ctx context.Context, id uuid.UUID, outcome domain.Outcome) (*domain.FinalizeResult, error) {
	res := &domain.FinalizeResult{Outcome: outcome}
	if outcome == domain.OutcomePending {
		return res, nil
	}

	tx, err := r.db.BeginTx(ctx, txOptions)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	current, err := scanTicket(tx.QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("lock ticket %s: %w", id, err)
		}
		if outcome == domain.OutcomeFailed {
			return res, nil
		}
		return nil, fmt.Errorf("%w: %w: ticket %s missing on %s", domain.ErrDataIntegrity, domain.ErrTicketNotFound, id, outcome)
	}

	res.Ticket = current
	if current.Status == domain.TicketStatusSuccess {
		return res, nil
	}

	switch outcome {
	case domain.OutcomeSuccess:
		if err := r.ledger.Confirm(ctx, tx, current.SeatID); err != nil {
			return nil, err
		}
		updated, err := scanTicket(tx.QueryRow(ctx, `UPDATE tickets SET status=$1, updated_at=now() WHERE id=$2 RETURNING `+ticketColumns, domain.TicketStatusSuccess, id))
		if err != nil {
			return nil, fmt.Errorf("mark ticket %s paid: %w", id, err)
		}
		res.Ticket = updated
	case domain.OutcomeFailed:
		if _, err := tx.Exec(ctx, `DELETE FROM tickets WHERE id=$1`, id); err != nil {
			return nil, fmt.Errorf("delete ticket %s: %w", id, err)
		}
		released, err := r.ledger.Release(ctx, tx, current.SeatID)
		if err != nil {
			return nil, err
		}
		if !released {
			return nil, fmt.Errorf("%w: seat %d of pending ticket %s was not booked", domain.ErrDataIntegrity, current.SeatID, id)
		}
		current.Status = domain.TicketStatusFailed
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	res.Applied = true
	return res, nil
}

var _ TicketRepository = (*PGTicketRepository)(nil)
