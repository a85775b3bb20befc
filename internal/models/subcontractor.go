package models

import "time"

// Subcontractor is RiskSure's own record of a vendor. ABN is the natural
// key used to detect that an externally-sourced vendor and an existing
// subcontractor are the same business.
type Subcontractor struct {
	ID        string
	CompanyID string
	Name      string
	Email     string
	Phone     string
	ABN       string // empty when unknown
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}
