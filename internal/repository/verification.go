package repository

import (
	"context"
	"database/sql"

	"github.com/juggajay/RiskSure.AI-sub002/internal/models"
)

type VerificationRepository struct {
	db *sql.DB
}

func NewVerificationRepository(db *sql.DB) *VerificationRepository {
	return &VerificationRepository{db: db}
}

func (r *VerificationRepository) FindByID(ctx context.Context, companyID, id string) (*models.Verification, error) {
	query := `
		SELECT id, company_id, subcontractor_id, status, created_at
		FROM verifications
		WHERE id = $1 AND company_id = $2
	`

	v := &models.Verification{}
	err := r.db.QueryRowContext(ctx, query, id, companyID).Scan(
		&v.ID, &v.CompanyID, &v.SubcontractorID, &v.Status, &v.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// LatestBySubcontractor resolves "latest" by creation time.
func (r *VerificationRepository) LatestBySubcontractor(ctx context.Context, companyID, subcontractorID string) (*models.Verification, error) {
	query := `
		SELECT id, company_id, subcontractor_id, status, created_at
		FROM verifications
		WHERE company_id = $1 AND subcontractor_id = $2
		ORDER BY created_at DESC
		LIMIT 1
	`

	v := &models.Verification{}
	err := r.db.QueryRowContext(ctx, query, companyID, subcontractorID).Scan(
		&v.ID, &v.CompanyID, &v.SubcontractorID, &v.Status, &v.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}
