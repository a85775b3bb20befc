package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/juggajay/RiskSure.AI-sub002/internal/models"
)

type OAuthConnectionRepository struct {
	db *sql.DB
}

func NewOAuthConnectionRepository(db *sql.DB) *OAuthConnectionRepository {
	return &OAuthConnectionRepository{db: db}
}

// Save upserts the connection for (company, provider). The unique
// constraint guarantees at most one row per pair.
func (r *OAuthConnectionRepository) Save(ctx context.Context, conn *models.OAuthConnection) error {
	conn.UpdatedAt = time.Now()
	if conn.CreatedAt.IsZero() {
		conn.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO oauth_connections (
			company_id, provider, access_token, refresh_token,
			external_company_id, external_company_name, pending_company_selection,
			expires_at, created_at, updated_at
		)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7, $8, $9, $10)
		ON CONFLICT(company_id, provider) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			external_company_id = EXCLUDED.external_company_id,
			external_company_name = EXCLUDED.external_company_name,
			pending_company_selection = EXCLUDED.pending_company_selection,
			expires_at = EXCLUDED.expires_at,
			updated_at = EXCLUDED.updated_at
		RETURNING id
	`

	return r.db.QueryRowContext(ctx, query,
		conn.CompanyID,
		conn.Provider,
		conn.AccessToken,
		conn.RefreshToken,
		conn.ExternalCompanyID,
		conn.ExternalCompanyName,
		conn.PendingCompanySelection,
		conn.ExpiresAt,
		conn.CreatedAt,
		conn.UpdatedAt,
	).Scan(&conn.ID)
}

func (r *OAuthConnectionRepository) FindByCompany(ctx context.Context, companyID, provider string) (*models.OAuthConnection, error) {
	query := `
		SELECT id, company_id, provider, access_token, refresh_token,
		       external_company_id, external_company_name, pending_company_selection,
		       expires_at, created_at, updated_at
		FROM oauth_connections
		WHERE company_id = $1 AND provider = $2
	`

	conn := &models.OAuthConnection{}
	var refreshToken, externalCompanyID sql.NullString

	err := r.db.QueryRowContext(ctx, query, companyID, provider).Scan(
		&conn.ID,
		&conn.CompanyID,
		&conn.Provider,
		&conn.AccessToken,
		&refreshToken,
		&externalCompanyID,
		&conn.ExternalCompanyName,
		&conn.PendingCompanySelection,
		&conn.ExpiresAt,
		&conn.CreatedAt,
		&conn.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	conn.RefreshToken = refreshToken.String
	conn.ExternalCompanyID = externalCompanyID.String
	return conn, nil
}

// UpdateTokens rotates the token pair in a single statement keyed by
// connection id. Concurrent rotations race benignly; last writer wins and
// both writers end up with a token the platform accepts.
func (r *OAuthConnectionRepository) UpdateTokens(ctx context.Context, id, accessToken, refreshToken string, expiresAt time.Time) error {
	query := `
		UPDATE oauth_connections
		SET access_token = $2,
		    refresh_token = NULLIF($3, ''),
		    expires_at = $4,
		    updated_at = NOW()
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, id, accessToken, refreshToken, expiresAt)
	return err
}

// SelectCompany records which external company the connection operates on
// and clears the pending flag.
func (r *OAuthConnectionRepository) SelectCompany(ctx context.Context, id, externalCompanyID, externalCompanyName string) error {
	query := `
		UPDATE oauth_connections
		SET external_company_id = $2,
		    external_company_name = $3,
		    pending_company_selection = false,
		    updated_at = NOW()
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, id, externalCompanyID, externalCompanyName)
	return err
}

// Delete disconnects the company from the provider. The only path that
// removes a connection row.
func (r *OAuthConnectionRepository) Delete(ctx context.Context, companyID, provider string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM oauth_connections WHERE company_id = $1 AND provider = $2`, companyID, provider)
	return err
}
