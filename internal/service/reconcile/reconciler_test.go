package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Domenick1991/airticket/config"
	"github.com/Domenick1991/airticket/internal/cache"
	"github.com/Domenick1991/airticket/internal/domain"
	"github.com/Domenick1991/airticket/internal/metrics"
	"github.com/Domenick1991/airticket/internal/payment"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const serverKey = "SB-Mid-server-test"

// memoryTickets mirrors the repository's finalize rules over in-memory state.
type memoryTickets struct {
	mu        sync.Mutex
	tickets   map[string]*domain.Ticket
	booked    map[int64]bool
	sold      map[int64]bool
	releases  int
	finalizes int
}

func newMemoryTickets(tickets ...domain.Ticket) *memoryTickets {
	m := &memoryTickets{
		tickets: map[string]*domain.Ticket{},
		booked:  map[int64]bool{},
		sold:    map[int64]bool{},
	}
	for i := range tickets {
		t := tickets[i]
		m.tickets[t.Code] = &t
		m.booked[t.SeatID] = true
	}
	return m
}

func (m *memoryTickets) GetByCode(_ context.Context, code string) (*domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickets[code]
	if !ok {
		return nil, domain.ErrTicketNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memoryTickets) Finalize(_ context.Context, id uuid.UUID, outcome domain.Outcome) (*domain.FinalizeResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finalizes++

	res := &domain.FinalizeResult{Outcome: outcome}
	if outcome == domain.OutcomePending {
		return res, nil
	}

	var current *domain.Ticket
	for _, t := range m.tickets {
		if t.ID == id {
			current = t
		}
	}
	if current == nil {
		if outcome == domain.OutcomeFailed {
			return res, nil
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrDataIntegrity, domain.ErrTicketNotFound)
	}
	res.Ticket = current
	if current.Status == domain.TicketStatusSuccess {
		return res, nil
	}

	switch outcome {
	case domain.OutcomeSuccess:
		m.sold[current.SeatID] = true
		current.Status = domain.TicketStatusSuccess
	case domain.OutcomeFailed:
		delete(m.tickets, current.Code)
		m.booked[current.SeatID] = false
		m.releases++
		current.Status = domain.TicketStatusFailed
	}
	res.Applied = true
	return res, nil
}

type fixture struct {
	store      *memoryTickets
	redis      *miniredis.Miniredis
	locker     *cache.RedisCache
	hook       *test.Hook
	reconciler *Reconciler
}

var t1 = domain.Ticket{
	ID:         uuid.MustParse("6a1f2f38-9d4e-4b8e-9a55-0d1f1b1c7e01"),
	Code:       "TKT-7Hq2LmN9xP",
	FlightID:   4,
	SeatID:     12,
	CustomerID: "cust-1",
	Price:      1_250_000,
	Status:     domain.TicketStatusPending,
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	locker := cache.NewRedisCache(config.RedisConfig{Addr: mr.Addr()}, time.Minute)
	t.Cleanup(func() { _ = locker.Close() })

	logger, hook := test.NewNullLogger()
	store := newMemoryTickets(t1)
	return &fixture{
		store:  store,
		redis:  mr,
		locker: locker,
		hook:   hook,
		reconciler: NewReconciler(store, payment.NewVerifier(serverKey), locker, 30*time.Second,
			metrics.New(prometheus.NewRegistry()), logger),
	}
}

func notification(t *testing.T, orderID, transactionStatus, fraudStatus, grossAmount string) []byte {
	t.Helper()
	statusCode := "200"
	if transactionStatus == payment.StatusPending {
		statusCode = "201"
	}
	body, err := json.Marshal(payment.Notification{
		OrderID:           orderID,
		TransactionStatus: transactionStatus,
		FraudStatus:       fraudStatus,
		StatusCode:        statusCode,
		GrossAmount:       grossAmount,
		SignatureKey:      payment.Signature(orderID, statusCode, grossAmount, serverKey),
		TransactionID:     "trx-1",
	})
	require.NoError(t, err)
	return body
}

func TestReconcile_SettlementMarksTicketPaid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	body := notification(t, t1.Code, payment.StatusSettlement, "", "1250000.00")

	res, err := f.reconciler.Reconcile(ctx, body)
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, domain.OutcomeSuccess, res.Outcome)

	ticket, err := f.store.GetByCode(ctx, t1.Code)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusSuccess, ticket.Status)
	assert.True(t, f.store.booked[t1.SeatID])
	assert.True(t, f.store.sold[t1.SeatID])

	res, err = f.reconciler.Reconcile(ctx, body)
	require.NoError(t, err)
	assert.False(t, res.Applied)

	ticket, err = f.store.GetByCode(ctx, t1.Code)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusSuccess, ticket.Status)
	assert.False(t, f.redis.Exists("lock:order:"+t1.Code))
}

func TestReconcile_ExpireDeletesTicketAndReleasesSeat(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	body := notification(t, t1.Code, payment.StatusExpire, "", "1250000.00")

	res, err := f.reconciler.Reconcile(ctx, body)
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, domain.OutcomeFailed, res.Outcome)

	_, err = f.store.GetByCode(ctx, t1.Code)
	assert.ErrorIs(t, err, domain.ErrTicketNotFound)
	assert.False(t, f.store.booked[t1.SeatID])

	_, err = f.reconciler.Reconcile(ctx, body)
	assert.ErrorIs(t, err, domain.ErrTicketNotFound)
	assert.False(t, f.store.booked[t1.SeatID])
	assert.Equal(t, 1, f.store.releases)
	assert.Equal(t, logrus.WarnLevel, f.hook.LastEntry().Level)
}

func TestReconcile_TamperedSignatureChangesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var n payment.Notification
	require.NoError(t, json.Unmarshal(notification(t, t1.Code, payment.StatusSettlement, "", "1250000.00"), &n))
	n.SignatureKey = "0" + n.SignatureKey[1:]
	if n.SignatureKey == payment.Signature(n.OrderID, n.StatusCode, n.GrossAmount, serverKey) {
		n.SignatureKey = "1" + n.SignatureKey[1:]
	}
	body, err := json.Marshal(n)
	require.NoError(t, err)

	_, err = f.reconciler.Reconcile(ctx, body)
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)

	ticket, err := f.store.GetByCode(ctx, t1.Code)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusPending, ticket.Status)
	assert.True(t, f.store.booked[t1.SeatID])
	assert.Zero(t, f.store.finalizes)
	assert.Equal(t, logrus.ErrorLevel, f.hook.LastEntry().Level)
}

func TestReconcile_TamperedAmountFailsSignature(t *testing.T) {
	f := newFixture(t)

	var n payment.Notification
	require.NoError(t, json.Unmarshal(notification(t, t1.Code, payment.StatusSettlement, "", "1250000.00"), &n))
	n.GrossAmount = "1.00"
	body, err := json.Marshal(n)
	require.NoError(t, err)

	_, err = f.reconciler.Reconcile(context.Background(), body)
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)
	assert.Zero(t, f.store.finalizes)
}

func TestReconcile_PendingStatusesLeaveTicketAlone(t *testing.T) {
	tests := []struct {
		name              string
		transactionStatus string
		fraudStatus       string
	}{
		{"pending", payment.StatusPending, ""},
		{"capture challenged", payment.StatusCapture, payment.FraudChallenge},
		{"capture without fraud status", payment.StatusCapture, ""},
		{"unrecognized", "authorize", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()

			res, err := f.reconciler.Reconcile(ctx, notification(t, t1.Code, tt.transactionStatus, tt.fraudStatus, "1250000.00"))
			require.NoError(t, err)
			assert.Equal(t, domain.OutcomePending, res.Outcome)
			assert.False(t, res.Applied)

			ticket, err := f.store.GetByCode(ctx, t1.Code)
			require.NoError(t, err)
			assert.Equal(t, domain.TicketStatusPending, ticket.Status)
			assert.Zero(t, f.store.finalizes)
		})
	}
}

func TestReconcile_CaptureAccepted(t *testing.T) {
	f := newFixture(t)

	res, err := f.reconciler.Reconcile(context.Background(), notification(t, t1.Code, payment.StatusCapture, payment.FraudAccept, "1250000.00"))
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, domain.OutcomeSuccess, res.Outcome)
}

func TestReconcile_MalformedPayload(t *testing.T) {
	f := newFixture(t)

	for _, body := range []string{`not json`, `{}`, `{"order_id":"TKT-7Hq2LmN9xP","transaction_status":"settlement"}`} {
		_, err := f.reconciler.Reconcile(context.Background(), []byte(body))
		assert.ErrorIs(t, err, domain.ErrMalformedPayload)
	}
	assert.Zero(t, f.store.finalizes)
}

func TestReconcile_UnknownOrder(t *testing.T) {
	f := newFixture(t)

	_, err := f.reconciler.Reconcile(context.Background(), notification(t, "TKT-doesnotexst", payment.StatusSettlement, "", "1250000.00"))
	assert.ErrorIs(t, err, domain.ErrTicketNotFound)
}

func TestReconcile_AmountMismatch(t *testing.T) {
	t.Run("on success is an integrity error", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.reconciler.Reconcile(context.Background(), notification(t, t1.Code, payment.StatusSettlement, "", "1000.00"))
		assert.ErrorIs(t, err, domain.ErrDataIntegrity)
		assert.Zero(t, f.store.finalizes)
		assert.Equal(t, logrus.ErrorLevel, f.hook.LastEntry().Level)
	})

	t.Run("on failure is only logged", func(t *testing.T) {
		f := newFixture(t)

		res, err := f.reconciler.Reconcile(context.Background(), notification(t, t1.Code, payment.StatusCancel, "", "1000.00"))
		require.NoError(t, err)
		assert.True(t, res.Applied)
		assert.False(t, f.store.booked[t1.SeatID])
	})
}

func TestReconcile_DeliveryWhileLockedStillFinalizes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	token, locked, err := f.locker.AcquireOrderLock(ctx, t1.Code, time.Minute)
	require.NoError(t, err)
	require.True(t, locked)

	res, err := f.reconciler.Reconcile(ctx, notification(t, t1.Code, payment.StatusSettlement, "", "1250000.00"))
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, 1, f.store.finalizes)
	assert.True(t, f.redis.Exists("lock:order:"+t1.Code), "lock held by another delivery must survive")

	require.NoError(t, f.locker.ReleaseOrderLock(ctx, t1.Code, token))
	assert.False(t, f.redis.Exists("lock:order:"+t1.Code))
}

// rowLockedTickets serializes Finalize like the ticket row lock does and holds
// the first caller inside it until release is closed.
type rowLockedTickets struct {
	*memoryTickets
	row      sync.Mutex
	waiting  atomic.Int32
	entered  chan struct{}
	release  chan struct{}
	holdOnce sync.Once
}

func (r *rowLockedTickets) Finalize(ctx context.Context, id uuid.UUID, outcome domain.Outcome) (*domain.FinalizeResult, error) {
	r.waiting.Add(1)
	r.row.Lock()
	defer r.row.Unlock()
	r.holdOnce.Do(func() {
		close(r.entered)
		<-r.release
	})
	return r.memoryTickets.Finalize(ctx, id, outcome)
}

func TestReconcile_ConcurrentIdenticalDeliveriesAreSerialized(t *testing.T) {
	f := newFixture(t)
	store := &rowLockedTickets{
		memoryTickets: f.store,
		entered:       make(chan struct{}),
		release:       make(chan struct{}),
	}
	logger, hook := test.NewNullLogger()
	reconciler := NewReconciler(store, payment.NewVerifier(serverKey), f.locker, 30*time.Second, nil, logger)
	body := notification(t, t1.Code, payment.StatusSettlement, "", "1250000.00")

	type outcome struct {
		res Result
		err error
	}
	first := make(chan outcome, 1)
	go func() {
		res, err := reconciler.Reconcile(context.Background(), body)
		first <- outcome{res, err}
	}()
	<-store.entered

	second := make(chan outcome, 1)
	go func() {
		res, err := reconciler.Reconcile(context.Background(), body)
		second <- outcome{res, err}
	}()
	assert.Eventually(t, func() bool { return store.waiting.Load() == 2 }, time.Second, 5*time.Millisecond)
	close(store.release)

	a, b := <-first, <-second
	require.NoError(t, a.err)
	require.NoError(t, b.err)
	assert.True(t, a.res.Applied)
	assert.False(t, b.res.Applied)
	assert.Equal(t, 2, f.store.finalizes)
	assert.True(t, f.store.sold[t1.SeatID])
	assert.False(t, f.redis.Exists("lock:order:"+t1.Code))

	var sawInFlight bool
	for _, e := range hook.AllEntries() {
		if e.Message == "notification for this order already in flight, waiting on row lock" {
			sawInFlight = true
			assert.Equal(t, logrus.InfoLevel, e.Level)
		}
	}
	assert.True(t, sawInFlight)
}

func TestReconcile_LockStoreDownFallsBackToRowLock(t *testing.T) {
	f := newFixture(t)
	f.redis.Close()

	res, err := f.reconciler.Reconcile(context.Background(), notification(t, t1.Code, payment.StatusSettlement, "", "1250000.00"))
	require.NoError(t, err)
	assert.True(t, res.Applied)
}

type failingTickets struct {
	*memoryTickets
	err error
}

func (f failingTickets) Finalize(context.Context, uuid.UUID, domain.Outcome) (*domain.FinalizeResult, error) {
	return nil, f.err
}

func TestReconcile_FinalizeErrorsSurface(t *testing.T) {
	logger, hook := test.NewNullLogger()
	store := failingTickets{memoryTickets: newMemoryTickets(t1), err: errors.New("connection reset")}
	r := NewReconciler(store, payment.NewVerifier(serverKey), nil, time.Second, nil, logger)

	_, err := r.Reconcile(context.Background(), notification(t, t1.Code, payment.StatusSettlement, "", "1250000.00"))
	assert.EqualError(t, err, "connection reset")
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}

func TestReconcile_NonFiniteAmountIsMalformed(t *testing.T) {
	f := newFixture(t)

	for _, amount := range []string{"NaN", "Inf", "-Inf"} {
		_, err := f.reconciler.Reconcile(context.Background(), notification(t, t1.Code, payment.StatusSettlement, "", amount))
		assert.ErrorIs(t, err, domain.ErrMalformedPayload, amount)
	}
	assert.Zero(t, f.store.finalizes)
}
