package requirements

import "time"

// Requirement is a named document type a subcontractor must supply each
// period. Deactivation is a tombstone so historical submissions keep pointing
// at a meaningful record.
type Requirement struct {
	ID        string            `json:"id"`
	CompanyID string            `json:"company_id"`
	Name      string            `json:"name"`
	Active    bool              `json:"active"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// CreateInput captures the fields accepted when declaring a requirement.
type CreateInput struct {
	CompanyID string            `validate:"required"`
	Name      string            `validate:"required,min=2"`
	Metadata  map[string]string `validate:"-"`
}

// UpdateInput captures the mutable fields of a requirement.
type UpdateInput struct {
	CompanyID string            `validate:"required"`
	ID        string            `validate:"required"`
	Name      string            `validate:"required,min=2"`
	Metadata  map[string]string `validate:"-"`
}
