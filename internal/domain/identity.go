package domain

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// Identity is the authenticated principal handed over by the identity provider.
type Identity struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

func (i Identity) CanView(t *Ticket) bool {
	return i.IsAdmin() || (t != nil && t.CustomerID == i.ID)
}
