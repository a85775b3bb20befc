package repository

import (
	"context"
	"database/sql"

	"github.com/juggajay/RiskSure.AI-sub002/internal/models"
	"github.com/lib/pq"
)

type EntityMappingRepository struct {
	db *sql.DB
}

func NewEntityMappingRepository(db *sql.DB) *EntityMappingRepository {
	return &EntityMappingRepository{db: db}
}

// GetByExternalIDs bulk-loads the mappings for a batch of external ids in
// one round trip, keyed by external id.
func (r *EntityMappingRepository) GetByExternalIDs(ctx context.Context, companyID, externalCompanyID string, entityType models.EntityType, externalIDs []int64) (map[int64]*models.EntityMapping, error) {
	result := make(map[int64]*models.EntityMapping)
	if len(externalIDs) == 0 {
		return result, nil
	}

	query := `
		SELECT id, company_id, external_company_id, entity_type, external_id,
		       local_type, local_id, direction, status, last_synced_at, error_detail, created_at
		FROM entity_mappings
		WHERE company_id = $1 AND external_company_id = $2 AND entity_type = $3
		  AND external_id = ANY($4)
	`

	rows, err := r.db.QueryContext(ctx, query, companyID, externalCompanyID, string(entityType), pq.Array(externalIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		m, err := scanMapping(rows)
		if err != nil {
			return nil, err
		}
		result[m.ExternalID] = m
	}

	return result, rows.Err()
}

// Upsert inserts the mapping, or refreshes last_synced_at/status/error on
// the existing row. The composite unique constraint means two racing runs
// can never produce two local counterparts for one external entity; the
// existing local pointer is deliberately left untouched on conflict.
func (r *EntityMappingRepository) Upsert(ctx context.Context, m *models.EntityMapping) (*models.EntityMapping, error) {
	query := `
		INSERT INTO entity_mappings (
			company_id, external_company_id, entity_type, external_id,
			local_type, local_id, direction, status, last_synced_at, error_detail
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NULLIF($9, ''))
		ON CONFLICT (company_id, external_company_id, entity_type, external_id)
		DO UPDATE SET
			status = EXCLUDED.status,
			last_synced_at = EXCLUDED.last_synced_at,
			error_detail = EXCLUDED.error_detail
		RETURNING id, company_id, external_company_id, entity_type, external_id,
		          local_type, local_id, direction, status, last_synced_at, error_detail, created_at
	`

	row := r.db.QueryRowContext(ctx, query,
		m.CompanyID,
		m.ExternalCompanyID,
		string(m.EntityType),
		m.ExternalID,
		string(m.LocalType),
		m.LocalID,
		string(m.Direction),
		string(m.Status),
		m.ErrorDetail,
	)
	return scanMapping(row)
}

// GetByLocalEntity finds the external counterpart of a local record. Used
// by the compliance push path.
func (r *EntityMappingRepository) GetByLocalEntity(ctx context.Context, localType models.LocalEntityType, localID string) (*models.EntityMapping, error) {
	query := `
		SELECT id, company_id, external_company_id, entity_type, external_id,
		       local_type, local_id, direction, status, last_synced_at, error_detail, created_at
		FROM entity_mappings
		WHERE local_type = $1 AND local_id = $2
	`

	m, err := scanMapping(r.db.QueryRowContext(ctx, query, string(localType), localID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMapping(row rowScanner) (*models.EntityMapping, error) {
	m := &models.EntityMapping{}
	var errorDetail sql.NullString

	err := row.Scan(
		&m.ID,
		&m.CompanyID,
		&m.ExternalCompanyID,
		&m.EntityType,
		&m.ExternalID,
		&m.LocalType,
		&m.LocalID,
		&m.Direction,
		&m.Status,
		&m.LastSyncedAt,
		&errorDetail,
		&m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	m.ErrorDetail = errorDetail.String
	return m, nil
}
