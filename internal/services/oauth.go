package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/juggajay/RiskSure.AI-sub002/internal/models"
)

type oauthConnectionStore interface {
	Save(ctx context.Context, conn *models.OAuthConnection) error
	FindByCompany(ctx context.Context, companyID, provider string) (*models.OAuthConnection, error)
	SelectCompany(ctx context.Context, id, externalCompanyID, externalCompanyName string) error
	Delete(ctx context.Context, companyID, provider string) error
}

type OAuthService struct {
	baseURL      string
	clientID     string
	clientSecret string
	redirectURI  string
	conns        oauthConnectionStore
	httpClient   *http.Client
	log          *zap.Logger
}

func NewOAuthService(baseURL, clientID, clientSecret, redirectURI string, conns oauthConnectionStore, log *zap.Logger) *OAuthService {
	return &OAuthService{
		baseURL:      baseURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		redirectURI:  redirectURI,
		conns:        conns,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log,
	}
}

// RedirectURI returns the configured redirect URI.
func (s *OAuthService) RedirectURI() string {
	return s.redirectURI
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// ExchangeCode exchanges the authorization code and saves the connection
// for the company. The connection starts pending: the user still has to
// pick which external company it operates on.
func (s *OAuthService) ExchangeCode(ctx context.Context, companyID, code string) (*models.OAuthConnection, error) {
	data := url.Values{}
	data.Set("grant_type", "authorization_code")
	data.Set("code", code)
	data.Set("redirect_uri", s.redirectURI)

	tokenResp, err := s.tokenRequest(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	conn := &models.OAuthConnection{
		CompanyID:               companyID,
		Provider:                models.ProviderProcore,
		AccessToken:             tokenResp.AccessToken,
		RefreshToken:            tokenResp.RefreshToken,
		PendingCompanySelection: true,
		ExpiresAt:               time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second),
	}

	if err := s.conns.Save(ctx, conn); err != nil {
		return nil, fmt.Errorf("failed to save connection: %w", err)
	}

	s.log.Info("connection established", zap.String("company_id", companyID))
	return conn, nil
}

// RefreshToken exchanges a refresh token for a new pair. Persistence is
// the token coordinator's responsibility, not this method's.
func (s *OAuthService) RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	data := url.Values{}
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", refreshToken)

	return s.tokenRequest(ctx, data)
}

// SelectCompany pins the connection to one external company and clears
// the pending flag.
func (s *OAuthService) SelectCompany(ctx context.Context, companyID, externalCompanyID, externalCompanyName string) error {
	if externalCompanyID == "" {
		return &ValidationError{Message: "external company id is required"}
	}

	conn, err := s.conns.FindByCompany(ctx, companyID, models.ProviderProcore)
	if err != nil {
		return err
	}
	if conn == nil {
		return ErrNotConnected
	}

	if err := s.conns.SelectCompany(ctx, conn.ID, externalCompanyID, externalCompanyName); err != nil {
		return fmt.Errorf("failed to select company: %w", err)
	}

	s.log.Info("external company selected",
		zap.String("company_id", companyID),
		zap.String("external_company_id", externalCompanyID))
	return nil
}

// Disconnect removes the connection row. Mappings survive a disconnect;
// reconnecting resumes where syncs left off.
func (s *OAuthService) Disconnect(ctx context.Context, companyID string) error {
	return s.conns.Delete(ctx, companyID, models.ProviderProcore)
}

func (s *OAuthService) tokenRequest(ctx context.Context, data url.Values) (*TokenResponse, error) {
	data.Set("client_id", s.clientID)
	data.Set("client_secret", s.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/oauth/token", strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("token request failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	var tokenResp TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return nil, fmt.Errorf("token response missing access_token")
	}

	return &tokenResp, nil
}
