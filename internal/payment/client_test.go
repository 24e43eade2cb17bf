package payment

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Domenick1991/airticket/config"
	"github.com/Domenick1991/airticket/internal/domain"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func testTicket() (domain.Ticket, domain.Flight) {
	flight := domain.Flight{ID: 4, FromAirport: "CGK", ToAirport: "DPS", BasePrice: 500_000}
	ticket := domain.Ticket{
		ID:         uuid.New(),
		Code:       "TKT-abcdefghij",
		FlightID:   flight.ID,
		SeatID:     12,
		CustomerID: "customer-1",
		Price:      1_250_000,
		Status:     domain.TicketStatusPending,
	}
	return ticket, flight
}

func TestClient_CreateTransaction(t *testing.T) {
	var got createTransactionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transactions", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, serverKey, user)
		assert.Empty(t, pass)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"token":"snap-token","redirect_url":"https://pay.example/snap-token"}`))
	}))
	defer srv.Close()

	client := NewClient(config.PaymentConfig{BaseURL: srv.URL + "/", ServerKey: serverKey, TimeoutSeconds: 2, Currency: "IDR"}, testLogger())
	ticket, flight := testTicket()

	session, err := client.CreateTransaction(context.Background(), ticket, flight)
	require.NoError(t, err)
	assert.Equal(t, "snap-token", session.Token)
	assert.Equal(t, "https://pay.example/snap-token", session.RedirectURL)

	assert.Equal(t, ticket.Code, got.TransactionDetails.OrderID)
	assert.Equal(t, ticket.Price, got.TransactionDetails.GrossAmount)
	require.Len(t, got.ItemDetails, 1)
	assert.Equal(t, "Flight CGK - DPS", got.ItemDetails[0].Name)
	assert.Equal(t, ticket.Price, got.ItemDetails[0].Price)
}

func TestClient_CreateTransaction_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"rejected", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error_messages":["transaction_details.order_id has already been taken"]}`))
		}},
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"garbage body", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<html>`))
		}},
		{"no token", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{}`))
		}},
		{"timeout", func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(1500 * time.Millisecond)
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			client := NewClient(config.PaymentConfig{BaseURL: srv.URL, ServerKey: serverKey, TimeoutSeconds: 1}, testLogger())
			ticket, flight := testTicket()

			_, err := client.CreateTransaction(context.Background(), ticket, flight)
			assert.ErrorIs(t, err, domain.ErrPaymentGateway)
		})
	}
}
