package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/juggajay/RiskSure.AI-sub002/internal/models"
)

type CompliancePushRepository struct {
	db *sql.DB
}

func NewCompliancePushRepository(db *sql.DB) *CompliancePushRepository {
	return &CompliancePushRepository{db: db}
}

// Insert appends one push attempt. Records are never updated or deleted.
func (r *CompliancePushRepository) Insert(ctx context.Context, rec *models.CompliancePushRecord) error {
	var details []byte
	if rec.Details != nil {
		var err error
		details, err = json.Marshal(rec.Details)
		if err != nil {
			return err
		}
	}

	var externalVendorID sql.NullInt64
	if rec.ExternalVendorID != 0 {
		externalVendorID = sql.NullInt64{Int64: rec.ExternalVendorID, Valid: true}
	}

	query := `
		INSERT INTO compliance_pushes (
			company_id, subcontractor_id, verification_id, pushed, message, external_vendor_id, details
		)
		VALUES ($1, $2, NULLIF($3, '')::uuid, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	return r.db.QueryRowContext(ctx, query,
		rec.CompanyID,
		rec.SubcontractorID,
		rec.VerificationID,
		rec.Pushed,
		rec.Message,
		externalVendorID,
		details,
	).Scan(&rec.ID, &rec.CreatedAt)
}

// ListBySubcontractor returns the push history newest-first, with each
// record's JSON detail payload parsed.
func (r *CompliancePushRepository) ListBySubcontractor(ctx context.Context, companyID, subcontractorID string) ([]*models.CompliancePushRecord, error) {
	query := `
		SELECT id, company_id, subcontractor_id, COALESCE(verification_id::text, ''),
		       pushed, message, external_vendor_id, details, created_at
		FROM compliance_pushes
		WHERE company_id = $1 AND subcontractor_id = $2
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, companyID, subcontractorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.CompliancePushRecord
	for rows.Next() {
		rec := &models.CompliancePushRecord{}
		var externalVendorID sql.NullInt64
		var details []byte

		err := rows.Scan(
			&rec.ID,
			&rec.CompanyID,
			&rec.SubcontractorID,
			&rec.VerificationID,
			&rec.Pushed,
			&rec.Message,
			&externalVendorID,
			&details,
			&rec.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		rec.ExternalVendorID = externalVendorID.Int64
		if len(details) > 0 {
			if err := json.Unmarshal(details, &rec.Details); err != nil {
				return nil, err
			}
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}
