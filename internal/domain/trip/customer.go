package trip

import "strings"

// Customer is the contact a quote or booking belongs to.
type Customer struct {
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	Phone     string  `json:"phone"`
	Company   *string `json:"company,omitempty"`
	OrgNumber *string `json:"org_number,omitempty"`
}

// Normalize trims the contact fields and lowercases the email.
func (c Customer) Normalize() Customer {
	out := Customer{
		Name:  strings.TrimSpace(c.Name),
		Email: strings.ToLower(strings.TrimSpace(c.Email)),
		Phone: strings.TrimSpace(c.Phone),
	}
	out.Company = trimmedOrNil(c.Company)
	out.OrgNumber = trimmedOrNil(c.OrgNumber)
	return out
}

// Reachable returns true if there is any way to contact the customer.
func (c Customer) Reachable() bool {
	return c.Email != "" || c.Phone != ""
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// PriceBreakdown is the output of the external pricing step. The core stores
// and forwards it without interpreting the amounts.
type PriceBreakdown struct {
	ExVATCents int64  `json:"ex_vat_cents"`
	VATCents   int64  `json:"vat_cents"`
	TotalCents int64  `json:"total_cents"`
	Currency   string `json:"currency"`
}
