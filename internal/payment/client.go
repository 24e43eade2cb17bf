package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Domenick1991/airticket/config"
	"github.com/Domenick1991/airticket/internal/domain"
	"github.com/sirupsen/logrus"
)

const maxItemNameLength = 50

// Client creates payment transactions on a Snap-style hosted checkout.
type Client struct {
	baseURL   string
	serverKey string
	currency  string
	http      *http.Client
	logger    *logrus.Logger
}

func NewClient(cfg config.PaymentConfig, logger *logrus.Logger) *Client {
	timeout := cfg.Timeout()
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		serverKey: cfg.ServerKey,
		currency:  cfg.Currency,
		http:      &http.Client{Timeout: timeout},
		logger:    logger,
	}
}

type transactionDetails struct {
	OrderID     string `json:"order_id"`
	GrossAmount int64  `json:"gross_amount"`
}

type itemDetails struct {
	ID       string `json:"id"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
	Name     string `json:"name"`
}

type customerDetails struct {
	FirstName string `json:"first_name"`
}

type createTransactionRequest struct {
	TransactionDetails transactionDetails `json:"transaction_details"`
	ItemDetails        []itemDetails      `json:"item_details"`
	CustomerDetails    customerDetails    `json:"customer_details"`
	Currency           string             `json:"currency,omitempty"`
}

type createTransactionResponse struct {
	Token         string   `json:"token"`
	RedirectURL   string   `json:"redirect_url"`
	ErrorMessages []string `json:"error_messages"`
}

// CreateTransaction asks the gateway for a payment session keyed by the ticket
// code. Every failure is wrapped in domain.ErrPaymentGateway.
func (c *Client) CreateTransaction(ctx context.Context, ticket domain.Ticket, flight domain.Flight) (domain.PaymentSession, error) {
	name := "Flight " + flight.Route()
	if len(name) > maxItemNameLength {
		name = name[:maxItemNameLength]
	}

	payload := createTransactionRequest{
		TransactionDetails: transactionDetails{OrderID: ticket.Code, GrossAmount: ticket.Price},
		ItemDetails: []itemDetails{{
			ID:       fmt.Sprintf("FLT-%d-SEAT-%d", flight.ID, ticket.SeatID),
			Price:    ticket.Price,
			Quantity: 1,
			Name:     name,
		}},
		CustomerDetails: customerDetails{FirstName: ticket.CustomerID},
		Currency:        c.currency,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return domain.PaymentSession{}, fmt.Errorf("%w: marshal request: %v", domain.ErrPaymentGateway, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transactions", bytes.NewReader(body))
	if err != nil {
		return domain.PaymentSession{}, fmt.Errorf("%w: build request: %v", domain.ErrPaymentGateway, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(c.serverKey, "")

	log := c.logger.WithFields(logrus.Fields{"order_id": ticket.Code, "gross_amount": ticket.Price})
	log.Info("Creating payment transaction")

	resp, err := c.http.Do(req)
	if err != nil {
		log.WithError(err).Error("Failed to call payment gateway")
		return domain.PaymentSession{}, fmt.Errorf("%w: %v", domain.ErrPaymentGateway, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.PaymentSession{}, fmt.Errorf("%w: read response: %v", domain.ErrPaymentGateway, err)
	}

	var out createTransactionResponse
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			log.WithField("status_code", resp.StatusCode).Error("Failed to parse payment gateway response")
			return domain.PaymentSession{}, fmt.Errorf("%w: parse response: %v", domain.ErrPaymentGateway, err)
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.WithFields(logrus.Fields{
			"status_code": resp.StatusCode,
			"errors":      out.ErrorMessages,
		}).Error("Payment gateway rejected transaction")
		return domain.PaymentSession{}, fmt.Errorf("%w: status %d: %s", domain.ErrPaymentGateway, resp.StatusCode, strings.Join(out.ErrorMessages, "; "))
	}
	if out.Token == "" {
		return domain.PaymentSession{}, fmt.Errorf("%w: no token returned", domain.ErrPaymentGateway)
	}

	log.Info("Payment transaction created")
	return domain.PaymentSession{Token: out.Token, RedirectURL: out.RedirectURL}, nil
}
