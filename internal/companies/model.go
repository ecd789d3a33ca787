package companies

import "time"

// Company represents a contractor company using the platform. The compliance
// module is opt-in per company; every core operation is gated on the flag.
type Company struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	TaxID             string    `json:"tax_id"`
	ComplianceEnabled bool      `json:"compliance_enabled"`
	Active            bool      `json:"active"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}
