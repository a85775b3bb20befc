package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/juggajay/RiskSure.AI-sub002/internal/models"
)

type AuditLogRepository struct {
	db *sql.DB
}

func NewAuditLogRepository(db *sql.DB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

func (r *AuditLogRepository) Insert(ctx context.Context, entry *models.AuditLog) error {
	var details []byte
	if entry.Details != nil {
		var err error
		details, err = json.Marshal(entry.Details)
		if err != nil {
			return err
		}
	}

	query := `
		INSERT INTO audit_logs (company_id, user_id, entity_type, entity_id, action, details)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	return r.db.QueryRowContext(ctx, query,
		entry.CompanyID,
		entry.UserID,
		entry.EntityType,
		entry.EntityID,
		entry.Action,
		details,
	).Scan(&entry.ID, &entry.CreatedAt)
}
