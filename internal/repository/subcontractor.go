package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/juggajay/RiskSure.AI-sub002/internal/models"
	"github.com/lib/pq"
)

type SubcontractorRepository struct {
	db *sql.DB
}

func NewSubcontractorRepository(db *sql.DB) *SubcontractorRepository {
	return &SubcontractorRepository{db: db}
}

func (r *SubcontractorRepository) Create(ctx context.Context, s *models.Subcontractor) (*models.Subcontractor, error) {
	query := `
		INSERT INTO subcontractors (company_id, name, email, phone, abn, status)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)
		RETURNING id, created_at, updated_at
	`

	status := s.Status
	if status == "" {
		status = "active"
	}

	err := r.db.QueryRowContext(ctx, query,
		s.CompanyID, s.Name, s.Email, s.Phone, s.ABN, status,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}

	s.Status = status
	return s, nil
}

func (r *SubcontractorRepository) Update(ctx context.Context, s *models.Subcontractor) error {
	s.UpdatedAt = time.Now()

	query := `
		UPDATE subcontractors
		SET name = $3, email = $4, phone = $5, abn = NULLIF($6, ''), updated_at = $7
		WHERE id = $1 AND company_id = $2
	`

	_, err := r.db.ExecContext(ctx, query, s.ID, s.CompanyID, s.Name, s.Email, s.Phone, s.ABN, s.UpdatedAt)
	return err
}

func (r *SubcontractorRepository) FindByID(ctx context.Context, companyID, id string) (*models.Subcontractor, error) {
	query := `
		SELECT id, company_id, name, email, phone, abn, status, created_at, updated_at
		FROM subcontractors
		WHERE id = $1 AND company_id = $2
	`

	s, err := scanSubcontractor(r.db.QueryRowContext(ctx, query, id, companyID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// FindByABNs is the batched natural-key lookup used for conflict
// detection: one round trip for the whole candidate set.
func (r *SubcontractorRepository) FindByABNs(ctx context.Context, companyID string, abns []string) ([]*models.Subcontractor, error) {
	if len(abns) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, company_id, name, email, phone, abn, status, created_at, updated_at
		FROM subcontractors
		WHERE company_id = $1 AND abn = ANY($2)
	`

	rows, err := r.db.QueryContext(ctx, query, companyID, pq.Array(abns))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []*models.Subcontractor
	for rows.Next() {
		s, err := scanSubcontractor(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, s)
	}

	return subs, rows.Err()
}

func scanSubcontractor(row rowScanner) (*models.Subcontractor, error) {
	s := &models.Subcontractor{}
	var abn sql.NullString

	err := row.Scan(
		&s.ID,
		&s.CompanyID,
		&s.Name,
		&s.Email,
		&s.Phone,
		&abn,
		&s.Status,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	s.ABN = abn.String
	return s, nil
}
