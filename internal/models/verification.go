package models

import "time"

const (
	VerificationStatusPass    = "pass"
	VerificationStatusFail    = "fail"
	VerificationStatusPending = "pending"
)

// Verification is the outcome of one compliance check on a subcontractor.
type Verification struct {
	ID              string
	CompanyID       string
	SubcontractorID string
	Status          string
	CreatedAt       time.Time
}
