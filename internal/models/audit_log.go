package models

import "time"

// AuditLog records who did what to which entity.
type AuditLog struct {
	ID         string
	CompanyID  string
	UserID     string
	EntityType string
	EntityID   string
	Action     string
	Details    map[string]interface{}
	CreatedAt  time.Time
}
