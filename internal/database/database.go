package database

import (
	"database/sql"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

func New(connectionString string, log *zap.Logger) (*sql.DB, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	if err := migrate(db); err != nil {
		return nil, err
	}

	log.Info("connected to postgres")
	return db, nil
}

func migrate(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS oauth_connections (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		company_id VARCHAR(100) NOT NULL,
		provider VARCHAR(50) NOT NULL,
		access_token TEXT NOT NULL,
		refresh_token TEXT,
		external_company_id VARCHAR(100),
		external_company_name VARCHAR(255) DEFAULT '',
		pending_company_selection BOOLEAN DEFAULT true,
		expires_at TIMESTAMP,
		created_at TIMESTAMP DEFAULT NOW(),
		updated_at TIMESTAMP DEFAULT NOW(),
		UNIQUE(company_id, provider)
	);

	CREATE TABLE IF NOT EXISTS entity_mappings (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		company_id VARCHAR(100) NOT NULL,
		external_company_id VARCHAR(100) NOT NULL,
		entity_type VARCHAR(20) NOT NULL,
		external_id BIGINT NOT NULL,
		local_type VARCHAR(20) NOT NULL,
		local_id VARCHAR(100) NOT NULL,
		direction VARCHAR(20) NOT NULL DEFAULT 'inbound',
		status VARCHAR(20) NOT NULL DEFAULT 'active',
		last_synced_at TIMESTAMP DEFAULT NOW(),
		error_detail TEXT,
		created_at TIMESTAMP DEFAULT NOW(),
		UNIQUE(company_id, external_company_id, entity_type, external_id)
	);

	CREATE INDEX IF NOT EXISTS idx_entity_mappings_local
		ON entity_mappings (local_type, local_id);

	CREATE TABLE IF NOT EXISTS subcontractors (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		company_id VARCHAR(100) NOT NULL,
		name VARCHAR(255) NOT NULL,
		email VARCHAR(255) DEFAULT '',
		phone VARCHAR(50) DEFAULT '',
		abn VARCHAR(11),
		status VARCHAR(20) NOT NULL DEFAULT 'active',
		created_at TIMESTAMP DEFAULT NOW(),
		updated_at TIMESTAMP DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_subcontractors_abn
		ON subcontractors (company_id, abn);

	CREATE TABLE IF NOT EXISTS projects (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		company_id VARCHAR(100) NOT NULL,
		name VARCHAR(255) NOT NULL,
		address VARCHAR(500) DEFAULT '',
		status VARCHAR(20) NOT NULL DEFAULT 'active',
		created_at TIMESTAMP DEFAULT NOW(),
		updated_at TIMESTAMP DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS verifications (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		company_id VARCHAR(100) NOT NULL,
		subcontractor_id UUID NOT NULL,
		status VARCHAR(20) NOT NULL,
		created_at TIMESTAMP DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS compliance_pushes (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		company_id VARCHAR(100) NOT NULL,
		subcontractor_id UUID NOT NULL,
		verification_id UUID,
		pushed BOOLEAN NOT NULL,
		message TEXT DEFAULT '',
		external_vendor_id BIGINT,
		details JSONB,
		created_at TIMESTAMP DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS trusted_services (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		api_key VARCHAR(255) UNIQUE NOT NULL,
		name VARCHAR(255) NOT NULL,
		allowed_actions TEXT[],
		is_active BOOLEAN DEFAULT true,
		created_at TIMESTAMP DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS audit_logs (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		company_id VARCHAR(100) NOT NULL,
		user_id VARCHAR(100) DEFAULT '',
		entity_type VARCHAR(50) NOT NULL,
		entity_id VARCHAR(100) NOT NULL,
		action VARCHAR(50) NOT NULL,
		details JSONB,
		created_at TIMESTAMP DEFAULT NOW()
	);
	`

	_, err := db.Exec(schema)
	return err
}
