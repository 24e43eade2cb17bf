package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/Domenick1991/airticket/internal/domain"
	"github.com/Domenick1991/airticket/internal/kafka"
	"github.com/Domenick1991/airticket/internal/metrics"
	"github.com/Domenick1991/airticket/internal/repository"
	"github.com/google/uuid"
	"github.com/lithammer/shortuuid/v3"
	"github.com/sirupsen/logrus"
)

const (
	codeSuffixLength   = 10
	maxCodeGenAttempts = 3
)

// TicketLifecycle owns ticket state. Finalize is the only way a ticket leaves PENDING.
type TicketLifecycle interface {
	CreatePendingTicket(ctx context.Context, flightID, seatID int64, customerID string, price int64) (*domain.Ticket, error)
	AttachPaymentToken(ctx context.Context, ticketID uuid.UUID, session domain.PaymentSession) (*domain.Ticket, error)
	Finalize(ctx context.Context, ticketID uuid.UUID, outcome domain.Outcome) (*domain.FinalizeResult, error)
	GetByCode(ctx context.Context, code string) (*domain.Ticket, error)
}

// CheckoutUseCase is what the customer and admin API calls.
type CheckoutUseCase interface {
	Book(ctx context.Context, identity domain.Identity, input BookInput) (*Checkout, error)
	RetryPayment(ctx context.Context, identity domain.Identity, ticketID uuid.UUID) (*Checkout, error)
	OverrideStatus(ctx context.Context, identity domain.Identity, ticketID uuid.UUID, outcome domain.Outcome) (*domain.FinalizeResult, error)
	Get(ctx context.Context, identity domain.Identity, ticketID uuid.UUID) (*domain.Ticket, error)
	ListForCustomer(ctx context.Context, identity domain.Identity) ([]domain.Ticket, error)
}

type PaymentGateway interface {
	CreateTransaction(ctx context.Context, ticket domain.Ticket, flight domain.Flight) (domain.PaymentSession, error)
}

type EventProducer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type BookInput struct {
	FlightID int64 `json:"flight_id" binding:"required"`
	SeatID   int64 `json:"seat_id" binding:"required"`
}

// Checkout is a ticket together with the payment session to complete it.
// Payment is nil when the gateway could not be reached.
type Checkout struct {
	Ticket  *domain.Ticket         `json:"ticket"`
	Payment *domain.PaymentSession `json:"payment,omitempty"`
}

type BookingService struct {
	tickets     repository.TicketRepository
	flights     repository.FlightRepository
	gateway     PaymentGateway
	producer    EventProducer
	eventsTopic string
	metrics     *metrics.Metrics
	logger      *logrus.Logger
	newCode     func() string
}

type BookingServiceOption func(*BookingService)

func WithEvents(producer EventProducer, topic string) BookingServiceOption {
	return func(s *BookingService) {
		s.producer = producer
		s.eventsTopic = topic
	}
}

func WithMetrics(m *metrics.Metrics) BookingServiceOption {
	return func(s *BookingService) {
		s.metrics = m
	}
}

func WithCodeGenerator(gen func() string) BookingServiceOption {
	return func(s *BookingService) {
		s.newCode = gen
	}
}

func NewBookingService(
	tickets repository.TicketRepository,
	flights repository.FlightRepository,
	gateway PaymentGateway,
	logger *logrus.Logger,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		tickets: tickets,
		flights: flights,
		gateway: gateway,
		logger:  logger,
		newCode: newTicketCode,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

func newTicketCode() string {
	return domain.TicketCodePrefix + shortuuid.New()[:codeSuffixLength]
}

// CreatePendingTicket reserves the seat and stores a PENDING ticket atomically.
func (s *BookingService) CreatePendingTicket(ctx context.Context, flightID, seatID int64, customerID string, price int64) (*domain.Ticket, error) {
	for attempt := 1; ; attempt++ {
		ticket := &domain.Ticket{
			ID:         uuid.New(),
			Code:       s.newCode(),
			FlightID:   flightID,
			SeatID:     seatID,
			CustomerID: customerID,
			Price:      price,
			Status:     domain.TicketStatusPending,
		}

		err := s.tickets.CreatePending(ctx, ticket)
		if err == nil {
			s.metrics.TicketCreated()
			s.publish(ctx, kafka.EventTicketCreated, ticket)
			return ticket, nil
		}
		if errors.Is(err, domain.ErrSeatUnavailable) {
			s.metrics.SeatConflict()
		}
		if !errors.Is(err, domain.ErrDuplicateTicketCode) || attempt == maxCodeGenAttempts {
			return nil, err
		}
		s.logger.WithField("code", ticket.Code).Warn("ticket code collision, regenerating")
	}
}

func (s *BookingService) AttachPaymentToken(ctx context.Context, ticketID uuid.UUID, session domain.PaymentSession) (*domain.Ticket, error) {
	return s.tickets.AttachPaymentToken(ctx, ticketID, session)
}

// Finalize applies a payment outcome and announces it once it has been committed.
func (s *BookingService) Finalize(ctx context.Context, ticketID uuid.UUID, outcome domain.Outcome) (*domain.FinalizeResult, error) {
	res, err := s.tickets.Finalize(ctx, ticketID, outcome)
	if err != nil {
		return nil, err
	}
	if !res.Applied {
		return res, nil
	}

	s.logger.WithFields(logrus.Fields{
		"ticket_id": ticketID,
		"code":      res.Ticket.Code,
		"outcome":   outcome.String(),
	}).Info("ticket finalized")

	switch outcome {
	case domain.OutcomeSuccess:
		s.publish(ctx, kafka.EventTicketPaid, res.Ticket)
	case domain.OutcomeFailed:
		s.publish(ctx, kafka.EventTicketFailed, res.Ticket)
	}
	return res, nil
}

func (s *BookingService) GetByCode(ctx context.Context, code string) (*domain.Ticket, error) {
	return s.tickets.GetByCode(ctx, code)
}

// Book prices the seat, creates the pending ticket and opens a payment session.
// On gateway failure the ticket is returned alongside the error and stays PENDING.
func (s *BookingService) Book(ctx context.Context, identity domain.Identity, input BookInput) (*Checkout, error) {
	flight, err := s.flights.GetByID(ctx, input.FlightID)
	if err != nil {
		return nil, err
	}
	seat, err := s.flights.GetSeat(ctx, input.FlightID, input.SeatID)
	if err != nil {
		return nil, err
	}

	ticket, err := s.CreatePendingTicket(ctx, flight.ID, seat.ID, identity.ID, seat.Price(*flight))
	if err != nil {
		return nil, err
	}
	return s.initiatePayment(ctx, ticket, flight)
}

// RetryPayment hands back the stored session or opens a new one.
func (s *BookingService) RetryPayment(ctx context.Context, identity domain.Identity, ticketID uuid.UUID) (*Checkout, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.CustomerID != identity.ID {
		return nil, domain.ErrForbidden
	}
	if ticket.Status != domain.TicketStatusPending {
		return nil, domain.ErrTicketNotPending
	}

	if ticket.HasPaymentToken() {
		session := domain.PaymentSession{Token: *ticket.PaymentToken}
		if ticket.PaymentRedirectURL != nil {
			session.RedirectURL = *ticket.PaymentRedirectURL
		}
		return &Checkout{Ticket: ticket, Payment: &session}, nil
	}

	flight, err := s.flights.GetByID(ctx, ticket.FlightID)
	if err != nil {
		return nil, err
	}
	return s.initiatePayment(ctx, ticket, flight)
}

func (s *BookingService) initiatePayment(ctx context.Context, ticket *domain.Ticket, flight *domain.Flight) (*Checkout, error) {
	session, err := s.gateway.CreateTransaction(ctx, *ticket, *flight)
	if err != nil {
		s.metrics.GatewayError()
		s.logger.WithError(err).WithField("code", ticket.Code).Warn("payment initiation failed, ticket left pending")
		return &Checkout{Ticket: ticket}, fmt.Errorf("initiate payment for %s: %w", ticket.Code, err)
	}

	updated, err := s.tickets.AttachPaymentToken(ctx, ticket.ID, session)
	if err != nil {
		return nil, fmt.Errorf("attach payment token to %s: %w", ticket.Code, err)
	}
	return &Checkout{Ticket: updated, Payment: &session}, nil
}

// OverrideStatus lets an administrator force an outcome through Finalize.
func (s *BookingService) OverrideStatus(ctx context.Context, identity domain.Identity, ticketID uuid.UUID, outcome domain.Outcome) (*domain.FinalizeResult, error) {
	if !identity.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	if _, err := s.tickets.GetByID(ctx, ticketID); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"ticket_id": ticketID,
		"admin_id":  identity.ID,
		"outcome":   outcome.String(),
	}).Warn("manual ticket status override")
	return s.Finalize(ctx, ticketID, outcome)
}

func (s *BookingService) Get(ctx context.Context, identity domain.Identity, ticketID uuid.UUID) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !identity.CanView(ticket) {
		return nil, domain.ErrForbidden
	}
	return ticket, nil
}

func (s *BookingService) ListForCustomer(ctx context.Context, identity domain.Identity) ([]domain.Ticket, error) {
	return s.tickets.ListByCustomer(ctx, identity.ID)
}

// publish is best effort: the database is the source of truth.
func (s *BookingService) publish(ctx context.Context, eventType string, ticket *domain.Ticket) {
	if s.producer == nil || s.eventsTopic == "" {
		return
	}
	if err := s.producer.Publish(ctx, s.eventsTopic, ticket.Code, kafka.NewTicketEvent(eventType, ticket)); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"event": eventType,
			"code":  ticket.Code,
		}).Warn("failed to publish ticket event")
	}
}

var (
	_ TicketLifecycle = (*BookingService)(nil)
	_ CheckoutUseCase = (*BookingService)(nil)
)
