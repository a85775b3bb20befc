package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/juggajay/RiskSure.AI-sub002/internal/models"
)

type ProjectRepository struct {
	db *sql.DB
}

func NewProjectRepository(db *sql.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

func (r *ProjectRepository) Create(ctx context.Context, p *models.Project) (*models.Project, error) {
	query := `
		INSERT INTO projects (company_id, name, address, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`

	status := p.Status
	if status == "" {
		status = "active"
	}

	err := r.db.QueryRowContext(ctx, query, p.CompanyID, p.Name, p.Address, status).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}

	p.Status = status
	return p, nil
}

func (r *ProjectRepository) Update(ctx context.Context, p *models.Project) error {
	p.UpdatedAt = time.Now()

	query := `
		UPDATE projects
		SET name = $3, address = $4, status = $5, updated_at = $6
		WHERE id = $1 AND company_id = $2
	`

	_, err := r.db.ExecContext(ctx, query, p.ID, p.CompanyID, p.Name, p.Address, p.Status, p.UpdatedAt)
	return err
}

func (r *ProjectRepository) FindByID(ctx context.Context, companyID, id string) (*models.Project, error) {
	query := `
		SELECT id, company_id, name, address, status, created_at, updated_at
		FROM projects
		WHERE id = $1 AND company_id = $2
	`

	p := &models.Project{}
	err := r.db.QueryRowContext(ctx, query, id, companyID).Scan(
		&p.ID, &p.CompanyID, &p.Name, &p.Address, &p.Status, &p.CreatedAt, &p.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}
