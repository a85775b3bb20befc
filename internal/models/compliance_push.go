package models

import "time"

// CompliancePushRecord is an append-only audit entry for one attempt to
// push a verification outcome to the external platform.
type CompliancePushRecord struct {
	ID               string                 `json:"id"`
	CompanyID        string                 `json:"company_id"`
	SubcontractorID  string                 `json:"subcontractor_id"`
	VerificationID   string                 `json:"verification_id"`
	Pushed           bool                   `json:"pushed"`
	Message          string                 `json:"message"`
	ExternalVendorID int64                  `json:"external_vendor_id,omitempty"`
	Details          map[string]interface{} `json:"details,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
}
