package domain

import "time"

type Flight struct {
	ID            int64     `json:"id"`
	FromAirport   string    `json:"from_airport"`
	ToAirport     string    `json:"to_airport"`
	DepartureTime time.Time `json:"departure_time"`
	ArrivalTime   time.Time `json:"arrival_time"`
	Capacity      int       `json:"capacity"`
	BasePrice     int64     `json:"base_price"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Route is the human readable line item sent to the payment gateway.
func (f Flight) Route() string {
	return f.FromAirport + " - " + f.ToAirport
}
