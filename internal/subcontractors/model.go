package subcontractors

import "time"

// Subcontractor is the document-submitting party, scoped to one company.
// UserUIDs are the verified identities allowed to upload on its behalf.
type Subcontractor struct {
	ID        string    `json:"id"`
	CompanyID string    `json:"company_id"`
	Name      string    `json:"name"`
	TaxID     string    `json:"tax_id"`
	Active    bool      `json:"active"`
	UserUIDs  []string  `json:"user_uids"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateInput captures the fields accepted when registering a subcontractor.
type CreateInput struct {
	CompanyID string   `validate:"required"`
	Name      string   `validate:"required"`
	TaxID     string   `validate:"required"`
	UserUIDs  []string `validate:"dive,required"`
}
