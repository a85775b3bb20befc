package models

import "time"

// ProviderProcore is the only provider the adapter currently connects to.
const ProviderProcore = "procore"

// OAuthConnection holds the token pair for one company's connection to the
// external platform. At most one row exists per (company, provider).
type OAuthConnection struct {
	ID                      string
	CompanyID               string
	Provider                string
	AccessToken             string
	RefreshToken            string // empty when the provider did not issue one
	ExternalCompanyID       string // empty until the user selects a company
	ExternalCompanyName     string
	PendingCompanySelection bool
	ExpiresAt               time.Time
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

func (c *OAuthConnection) IsExpired() bool {
	return time.Now().After(c.ExpiresAt)
}

func (c *OAuthConnection) ShouldRefresh() bool {
	// Refresh 5 minutes before expiry
	return time.Now().Add(5 * time.Minute).After(c.ExpiresAt)
}
