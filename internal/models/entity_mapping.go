package models

import "time"

// EntityType identifies the kind of record on the external platform.
type EntityType string

const (
	EntityTypeVendor  EntityType = "vendor"
	EntityTypeProject EntityType = "project"
)

// LocalEntityType identifies the kind of record on our side.
type LocalEntityType string

const (
	LocalTypeSubcontractor LocalEntityType = "subcontractor"
	LocalTypeProject       LocalEntityType = "project"
)

type MappingStatus string

const (
	MappingStatusActive MappingStatus = "active"
	MappingStatusPaused MappingStatus = "paused"
	MappingStatusError  MappingStatus = "error"
)

type SyncDirection string

const (
	DirectionInbound  SyncDirection = "inbound"
	DirectionOutbound SyncDirection = "outbound"
)

// EntityMapping associates one external entity with one local entity.
// Unique on (company_id, external_company_id, entity_type, external_id):
// an external record can never point at two local records.
type EntityMapping struct {
	ID                string
	CompanyID         string
	ExternalCompanyID string
	EntityType        EntityType
	ExternalID        int64
	LocalType         LocalEntityType
	LocalID           string
	Direction         SyncDirection
	Status            MappingStatus
	LastSyncedAt      time.Time
	ErrorDetail       string
	CreatedAt         time.Time
}
