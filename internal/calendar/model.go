package calendar

import "time"

// Month is the admin-configured template supplying a period's milestone dates.
// Once a period has been derived from it, Editable is cleared and the entry is
// frozen.
type Month struct {
	CompanyID      string    `json:"company_id"`
	Year           int       `json:"year"`
	PeriodKey      string    `json:"period_key"`
	CutoffUpload   time.Time `json:"cutoff_upload"`
	ReviewDeadline time.Time `json:"review_deadline"`
	PaymentDate    time.Time `json:"payment_date"`
	Editable       bool      `json:"editable"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// UpsertInput captures the fields the admin workflow may set.
type UpsertInput struct {
	CompanyID      string    `validate:"required"`
	PeriodKey      string    `validate:"required,len=7"`
	CutoffUpload   time.Time `validate:"required"`
	ReviewDeadline time.Time `validate:"required"`
	PaymentDate    time.Time `validate:"required"`
}
