package domain

type SeatClass string

const (
	SeatClassEconomy  SeatClass = "ECONOMY"
	SeatClassBusiness SeatClass = "BUSINESS"
	SeatClassFirst    SeatClass = "FIRST"
)

// PriceOffset is added on top of the flight base price.
func (c SeatClass) PriceOffset() int64 {
	switch c {
	case SeatClassBusiness:
		return 750_000
	case SeatClassFirst:
		return 2_000_000
	default:
		return 0
	}
}

func (c SeatClass) Valid() bool {
	switch c {
	case SeatClassEconomy, SeatClassBusiness, SeatClassFirst:
		return true
	}
	return false
}

// Seat is booked while a PENDING or SUCCESS ticket references it.
// IsSold marks a booking confirmed by payment; sold seats are never released.
type Seat struct {
	ID       int64     `json:"id"`
	FlightID int64     `json:"flight_id"`
	Number   string    `json:"number"`
	Class    SeatClass `json:"class"`
	IsBooked bool      `json:"is_booked"`
	IsSold   bool      `json:"-"`
}

func (s Seat) Price(f Flight) int64 {
	return f.BasePrice + s.Class.PriceOffset()
}
