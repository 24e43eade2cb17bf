package reconcile

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/Domenick1991/airticket/internal/domain"
	"github.com/Domenick1991/airticket/internal/metrics"
	"github.com/Domenick1991/airticket/internal/payment"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Tickets is the slice of the ticket lifecycle the reconciler drives.
type Tickets interface {
	GetByCode(ctx context.Context, code string) (*domain.Ticket, error)
	Finalize(ctx context.Context, ticketID uuid.UUID, outcome domain.Outcome) (*domain.FinalizeResult, error)
}

type NotificationVerifier interface {
	Verify(n payment.Notification) error
}

// OrderLocker marks an order as being reconciled. Correctness comes from the
// ticket row lock taken by Finalize; the order lock only makes overlapping
// deliveries visible.
type OrderLocker interface {
	AcquireOrderLock(ctx context.Context, orderID string, ttl time.Duration) (string, bool, error)
	ReleaseOrderLock(ctx context.Context, orderID, token string) error
}

type Result struct {
	OrderID string
	Outcome domain.Outcome
	Applied bool
}

type Reconciler struct {
	tickets  Tickets
	verifier NotificationVerifier
	locker   OrderLocker
	lockTTL  time.Duration
	metrics  *metrics.Metrics
	logger   *logrus.Logger
}

func NewReconciler(tickets Tickets, verifier NotificationVerifier, locker OrderLocker, lockTTL time.Duration, m *metrics.Metrics, logger *logrus.Logger) *Reconciler {
	return &Reconciler{
		tickets:  tickets,
		verifier: verifier,
		locker:   locker,
		lockTTL:  lockTTL,
		metrics:  m,
		logger:   logger,
	}
}

// Reconcile applies one gateway notification. Redelivering the same payload
// leaves the same end state; duplicates return a Result with Applied=false.
func (r *Reconciler) Reconcile(ctx context.Context, body []byte) (Result, error) {
	n, err := payment.ParseNotification(body)
	if err != nil {
		r.metrics.Notification(metrics.ResultMalformed)
		r.logger.WithError(err).Warn("rejected malformed payment notification")
		return Result{}, err
	}

	log := r.logger.WithFields(logrus.Fields{
		"order_id":           n.OrderID,
		"transaction_status": n.TransactionStatus,
		"fraud_status":       n.FraudStatus,
		"status_code":        n.StatusCode,
		"gross_amount":       n.GrossAmount,
		"transaction_id":     n.TransactionID,
	})

	if err := r.verifier.Verify(n); err != nil {
		r.metrics.Notification(metrics.ResultInvalidSignature)
		log.WithError(err).Error("payment notification failed signature check")
		return Result{}, err
	}

	res := Result{OrderID: n.OrderID, Outcome: n.Outcome()}

	ticket, err := r.tickets.GetByCode(ctx, n.OrderID)
	if err != nil {
		if errors.Is(err, domain.ErrTicketNotFound) {
			r.metrics.Notification(metrics.ResultTicketNotFound)
			log.Warn("payment notification for unknown or already failed ticket")
			return res, err
		}
		r.metrics.Notification(metrics.ResultError)
		log.WithError(err).Error("failed to look up ticket")
		return res, err
	}
	log = log.WithField("ticket_id", ticket.ID)

	if res.Outcome == domain.OutcomePending {
		r.metrics.Notification(metrics.ResultPending)
		log.Info("payment still pending")
		return res, nil
	}

	if err := checkAmount(n, ticket); err != nil {
		if res.Outcome == domain.OutcomeSuccess {
			r.metrics.Notification(metrics.ResultIntegrity)
			log.WithError(err).WithField("price", ticket.Price).Error("paid amount does not match ticket price")
			return res, err
		}
		log.WithError(err).WithField("price", ticket.Price).Warn("amount mismatch on failed payment")
	}

	if r.locker != nil {
		token, locked, err := r.locker.AcquireOrderLock(ctx, n.OrderID, r.lockTTL)
		switch {
		case err != nil:
			log.WithError(err).Warn("order lock unavailable, relying on row lock")
		case !locked:
			r.metrics.Notification(metrics.ResultInFlight)
			log.Info("notification for this order already in flight, waiting on row lock")
		default:
			defer func() {
				if err := r.locker.ReleaseOrderLock(context.WithoutCancel(ctx), n.OrderID, token); err != nil {
					log.WithError(err).Warn("failed to release order lock")
				}
			}()
		}
	}

	fin, err := r.tickets.Finalize(ctx, ticket.ID, res.Outcome)
	if err != nil {
		if errors.Is(err, domain.ErrDataIntegrity) {
			r.metrics.Notification(metrics.ResultIntegrity)
			log.WithError(err).Error("ticket finalize violated an invariant")
			return res, err
		}
		r.metrics.Notification(metrics.ResultError)
		log.WithError(err).Error("failed to finalize ticket")
		return res, err
	}

	res.Applied = fin.Applied
	if fin.Applied {
		r.metrics.Notification(metrics.ResultApplied)
		log.WithField("outcome", res.Outcome.String()).Info("payment notification applied")
	} else {
		r.metrics.Notification(metrics.ResultDuplicate)
		log.WithField("outcome", res.Outcome.String()).Info("duplicate payment notification ignored")
	}
	return res, nil
}

func checkAmount(n payment.Notification, t *domain.Ticket) error {
	amount, err := n.Amount()
	if err != nil {
		return fmt.Errorf("%w: gross_amount %q", domain.ErrMalformedPayload, n.GrossAmount)
	}
	if int64(math.Round(amount)) != t.Price {
		return fmt.Errorf("%w: gross_amount %s for ticket priced %d", domain.ErrDataIntegrity, n.GrossAmount, t.Price)
	}
	return nil
}
